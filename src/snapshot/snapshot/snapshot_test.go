package snapshot

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

type fakeBalanceSource struct {
	entries []utils.RawBalanceEntry
	err     error
}

func (f *fakeBalanceSource) NormalizedBalances(blockNumber int64) ([]utils.RawBalanceEntry, error) {
	return f.entries, f.err
}

type fakeDebtSource struct {
	entries []utils.RawDebtEntry
	err     error
}

func (f *fakeDebtSource) NormalizedDebts(startBlock int64, endBlock int64) ([]utils.RawDebtEntry, error) {
	return f.entries, f.err
}

type fakeExclusionSource struct {
	excluded map[common.Address]bool
	err      error
}

func (f *fakeExclusionSource) GetExcludedAddresses() (map[common.Address]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.excluded == nil {
		return map[common.Address]bool{}, nil
	}
	return f.excluded, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var (
	addrA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB = common.HexToAddress("0x2222222222222222222222222222222222222222")
	addrC = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func TestComputeInitialStateMergesSources(t *testing.T) {
	generator := NewGenerator(
		&fakeBalanceSource{entries: []utils.RawBalanceEntry{
			{Address: addrA, LpBalance: dec("100"), RaiLpBalance: dec("40")},
		}},
		&fakeDebtSource{entries: []utils.RawDebtEntry{
			{Address: addrA, Debt: dec("10")},
			{Address: addrA, Debt: dec("15")},
		}},
		&fakeExclusionSource{},
	)

	state, err := generator.ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	record := state[addrA]
	if record == nil {
		t.Fatal("record for addrA is missing")
	}
	if !record.Debt.Equal(dec("25")) {
		t.Errorf("debts must accumulate: %s", record.Debt)
	}
	if !record.LpBalance.Equal(dec("100")) || !record.RaiLpBalance.Equal(dec("40")) {
		t.Errorf("balances must be assigned: %s / %s", record.LpBalance, record.RaiLpBalance)
	}
	if !record.StakingWeight.Equal(dec("25")) {
		t.Errorf("staking weight must be min(25, 40): %s", record.StakingWeight)
	}
	if !record.Earned.IsZero() || !record.RewardPerWeightStored.IsZero() {
		t.Error("reward checkpoints must start at zero")
	}
}

func TestComputeInitialStateKeySet(t *testing.T) {
	generator := NewGenerator(
		&fakeBalanceSource{entries: []utils.RawBalanceEntry{
			{Address: addrA, LpBalance: dec("1"), RaiLpBalance: dec("1")},
		}},
		&fakeDebtSource{entries: []utils.RawDebtEntry{
			{Address: addrB, Debt: dec("2")},
			{Address: addrC, Debt: dec("3")},
		}},
		&fakeExclusionSource{excluded: map[common.Address]bool{addrC: true}},
	)

	state, err := generator.ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(state) != 2 {
		t.Fatalf("expected 2 users, got %d", len(state))
	}
	if state[addrA] == nil || state[addrB] == nil {
		t.Error("expected addrA and addrB in the state")
	}
	if state[addrC] != nil {
		t.Error("excluded address must not appear")
	}
}

func TestExcludedAddressWithBothEntries(t *testing.T) {
	generator := NewGenerator(
		&fakeBalanceSource{entries: []utils.RawBalanceEntry{
			{Address: addrA, LpBalance: dec("100"), RaiLpBalance: dec("40")},
		}},
		&fakeDebtSource{entries: []utils.RawDebtEntry{
			{Address: addrA, Debt: dec("10")},
		}},
		&fakeExclusionSource{excluded: map[common.Address]bool{addrA: true}},
	)

	state, err := generator.ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(state) != 0 {
		t.Errorf("excluded address contributed to the output: %v", state)
	}
}

func TestOneSidedRecordsGetZeroWeight(t *testing.T) {
	generator := NewGenerator(
		&fakeBalanceSource{entries: []utils.RawBalanceEntry{
			{Address: addrA, LpBalance: dec("100"), RaiLpBalance: dec("40")},
		}},
		&fakeDebtSource{entries: []utils.RawDebtEntry{
			{Address: addrB, Debt: dec("25")},
		}},
		&fakeExclusionSource{},
	)

	state, err := generator.ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	for _, addr := range []common.Address{addrA, addrB} {
		record := state[addr]
		if record == nil {
			t.Fatalf("record for %s is missing", addr.Hex())
		}
		if !record.StakingWeight.IsZero() {
			t.Errorf("one-sided record for %s must have zero weight, got %s", addr.Hex(), record.StakingWeight)
		}
		if record.StakingWeight.Sign() < 0 {
			t.Errorf("staking weight must never be negative")
		}
	}
	if !state[addrA].Debt.IsZero() || !state[addrB].RaiLpBalance.IsZero() {
		t.Error("missing-side fields must default to zero")
	}
}

func TestComputeInitialStateIdempotence(t *testing.T) {
	build := func() *Generator {
		return NewGenerator(
			&fakeBalanceSource{entries: []utils.RawBalanceEntry{
				{Address: addrA, LpBalance: dec("100"), RaiLpBalance: dec("40")},
				{Address: addrB, LpBalance: dec("7"), RaiLpBalance: dec("3")},
			}},
			&fakeDebtSource{entries: []utils.RawDebtEntry{
				{Address: addrA, Debt: dec("10")},
				{Address: addrB, Debt: dec("2")},
				{Address: addrA, Debt: dec("15")},
			}},
			&fakeExclusionSource{},
		)
	}

	first, err := build().ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	second, err := build().ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	firstCommitment := utils.ComputeSnapshotCommitment(first.SortedRecords())
	secondCommitment := utils.ComputeSnapshotCommitment(second.SortedRecords())
	if string(firstCommitment) != string(secondCommitment) {
		t.Error("identical inputs must produce identical snapshots")
	}
}

func TestComputeInitialStatePipelineErrorAborts(t *testing.T) {
	pipelineErr := errors.New("query failed")

	_, err := NewGenerator(
		&fakeBalanceSource{err: pipelineErr},
		&fakeDebtSource{},
		&fakeExclusionSource{},
	).ComputeInitialState(100, 200)
	if !errors.Is(err, pipelineErr) {
		t.Errorf("balance pipeline error must abort, got %v", err)
	}

	_, err = NewGenerator(
		&fakeBalanceSource{},
		&fakeDebtSource{err: pipelineErr},
		&fakeExclusionSource{},
	).ComputeInitialState(100, 200)
	if !errors.Is(err, pipelineErr) {
		t.Errorf("debt pipeline error must abort, got %v", err)
	}

	_, err = NewGenerator(
		&fakeBalanceSource{},
		&fakeDebtSource{},
		&fakeExclusionSource{err: pipelineErr},
	).ComputeInitialState(100, 200)
	if !errors.Is(err, pipelineErr) {
		t.Errorf("exclusion retrieval error must abort, got %v", err)
	}
}

func TestValidateCatchesTamperedRecord(t *testing.T) {
	generator := NewGenerator(
		&fakeBalanceSource{entries: []utils.RawBalanceEntry{
			{Address: addrA, LpBalance: dec("100"), RaiLpBalance: dec("40")},
		}},
		&fakeDebtSource{entries: []utils.RawDebtEntry{
			{Address: addrA, Debt: dec("10")},
		}},
		&fakeExclusionSource{},
	)
	state, err := generator.ComputeInitialState(100, 200)
	if err != nil {
		t.Fatal(err.Error())
	}
	if err = state.Validate(); err != nil {
		t.Fatal(err.Error())
	}

	state[addrA].StakingWeight = dec("999")
	err = state.Validate()
	if !errors.Is(err, utils.ErrIncompleteRecord) {
		t.Errorf("expected incomplete record error, got %v", err)
	}

	state[addrA].StakingWeight = dec("10")
	state[addrA].Debt = dec("-1")
	err = state.Validate()
	if !errors.Is(err, utils.ErrIncompleteRecord) {
		t.Errorf("expected incomplete record error for negative debt, got %v", err)
	}
}

func TestSortedRecordsOrder(t *testing.T) {
	state := InitialState{
		addrB: &utils.UserRecord{Address: addrB},
		addrA: &utils.UserRecord{Address: addrA},
		addrC: &utils.UserRecord{Address: addrC},
	}
	records := state.SortedRecords()
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	if records[0].Address != addrA || records[1].Address != addrB || records[2].Address != addrC {
		t.Error("records are not in address order")
	}
}

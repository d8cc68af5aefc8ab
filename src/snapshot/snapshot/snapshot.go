package snapshot

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

// Generator merges the two normalized pipelines into one per-user state.
type Generator struct {
	balances   BalanceSource
	debts      DebtSource
	exclusions ExclusionSource
}

func NewGenerator(balances BalanceSource, debts DebtSource, exclusions ExclusionSource) *Generator {
	return &Generator{
		balances:   balances,
		debts:      debts,
		exclusions: exclusions,
	}
}

// ComputeInitialState builds the reward-eligibility snapshot for the block
// range. The balance and debt pipelines run concurrently; the fold over the
// record map is strictly sequential once both have completed. Any pipeline
// error aborts the whole snapshot, no partial state is ever returned.
func (g *Generator) ComputeInitialState(startBlock int64, endBlock int64) (InitialState, error) {
	type balanceResult struct {
		entries []utils.RawBalanceEntry
		err     error
	}
	type debtResult struct {
		entries []utils.RawDebtEntry
		err     error
	}
	balanceCh := make(chan balanceResult, 1)
	debtCh := make(chan debtResult, 1)
	go func() {
		entries, err := g.balances.NormalizedBalances(startBlock)
		balanceCh <- balanceResult{entries: entries, err: err}
	}()
	go func() {
		entries, err := g.debts.NormalizedDebts(startBlock, endBlock)
		debtCh <- debtResult{entries: entries, err: err}
	}()
	balances := <-balanceCh
	debts := <-debtCh
	if balances.err != nil {
		return nil, balances.err
	}
	if debts.err != nil {
		return nil, debts.err
	}

	partials := make(map[common.Address]*partialRecord)
	applyBalances(partials, balances.entries)
	applyDebts(partials, debts.entries)

	excluded, err := g.exclusions.GetExcludedAddresses()
	if err != nil {
		return nil, err
	}
	for addr := range excluded {
		delete(partials, addr)
	}

	// no record may be created past this point
	state := make(InitialState, len(partials))
	for addr, record := range partials {
		state[addr] = record.promote(addr)
	}

	if err = state.Validate(); err != nil {
		return nil, err
	}
	logx.Infof("initial state for blocks %d-%d has %d users (%d balance entries, %d debt entries, %d excluded)",
		startBlock, endBlock, len(state), len(balances.entries), len(debts.entries), len(excluded))
	return state, nil
}

func getOrCreate(partials map[common.Address]*partialRecord, addr common.Address) *partialRecord {
	record, ok := partials[addr]
	if !ok {
		record = newPartialRecord()
		partials[addr] = record
	}
	return record
}

// applyBalances assigns lpBalance and raiLpBalance. The source yields at most
// one row per address; should a duplicate ever appear the last row wins.
func applyBalances(partials map[common.Address]*partialRecord, entries []utils.RawBalanceEntry) {
	for i := 0; i < len(entries); i++ {
		record := getOrCreate(partials, entries[i].Address)
		record.lpBalance = entries[i].LpBalance
		record.raiLpBalance = entries[i].RaiLpBalance
	}
}

// applyDebts accumulates debt: a user may own several safes and their debts
// sum.
func applyDebts(partials map[common.Address]*partialRecord, entries []utils.RawDebtEntry) {
	for i := 0; i < len(entries); i++ {
		record := getOrCreate(partials, entries[i].Address)
		record.debt = record.debt.Add(entries[i].Debt)
	}
}

// Validate re-checks every record after weight derivation and names the
// offender on failure. It must run after promotion, never before.
func (s InitialState) Validate() error {
	for addr, record := range s {
		if record == nil {
			return fmt.Errorf("%w: user %s has no record", utils.ErrIncompleteRecord, addr.Hex())
		}
		if record.Address != addr {
			return fmt.Errorf("%w: user %s record carries address %s", utils.ErrIncompleteRecord, addr.Hex(), record.Address.Hex())
		}
		if record.Debt.Sign() < 0 {
			return fmt.Errorf("%w: user %s debt %s is negative", utils.ErrIncompleteRecord, addr.Hex(), record.Debt)
		}
		if record.LpBalance.Sign() < 0 || record.RaiLpBalance.Sign() < 0 {
			return fmt.Errorf("%w: user %s lp balance %s / rai lp balance %s is negative",
				utils.ErrIncompleteRecord, addr.Hex(), record.LpBalance, record.RaiLpBalance)
		}
		if !record.StakingWeight.Equal(decimal.Min(record.Debt, record.RaiLpBalance)) {
			return fmt.Errorf("%w: user %s staking weight %s is not min(debt %s, rai lp balance %s)",
				utils.ErrIncompleteRecord, addr.Hex(), record.StakingWeight, record.Debt, record.RaiLpBalance)
		}
	}
	return nil
}

// SortedRecords returns the records in address order, the canonical order for
// commitments, tree leaves and exports.
func (s InitialState) SortedRecords() []*utils.UserRecord {
	records := make([]*utils.UserRecord, 0, len(s))
	for _, record := range s {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return bytes.Compare(records[i].Address.Bytes(), records[j].Address.Bytes()) < 0
	})
	return records
}

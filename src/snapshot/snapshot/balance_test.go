package snapshot

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/geb-labs/staking-snapshot/src/snapshot/model"
	"github.com/geb-labs/staking-snapshot/src/utils"
)

type fakeBalanceStore struct {
	rows    []model.LpBalance
	offsets []int
	err     error
}

func (f *fakeBalanceStore) GetPositiveBalancesByPage(blockNumber int64, limit int, offset int) ([]model.LpBalance, error) {
	f.offsets = append(f.offsets, offset)
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.rows) {
		end = len(f.rows)
	}
	return f.rows[offset:end], nil
}

type fakePoolStore struct {
	state *model.PoolState
	err   error
}

func (f *fakePoolStore) GetPoolState(blockNumber int64) (*model.PoolState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.state, nil
}

func wad(human string) string {
	return decimal.RequireFromString(human).Shift(utils.WadDecimals).String()
}

func TestNormalizedBalancesRatio(t *testing.T) {
	balanceStore := &fakeBalanceStore{
		rows: []model.LpBalance{
			{BlockNumber: 100, Address: "0x1111111111111111111111111111111111111111", Balance: wad("100")},
		},
	}
	poolStore := &fakePoolStore{
		state: &model.PoolState{BlockNumber: 100, RaiReserve: wad("40"), TotalSupply: wad("100")},
	}

	entries, err := NewBalanceNormalizer(balanceStore, poolStore).NormalizedBalances(100)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].LpBalance.Equal(decimal.RequireFromString("100")) {
		t.Errorf("lp balance mismatch: %s", entries[0].LpBalance)
	}
	if !entries[0].RaiLpBalance.Equal(decimal.RequireFromString("40")) {
		t.Errorf("rai lp balance mismatch: %s", entries[0].RaiLpBalance)
	}
}

func TestNormalizedBalancesInconsistentPoolState(t *testing.T) {
	balanceStore := &fakeBalanceStore{
		rows: []model.LpBalance{
			{BlockNumber: 100, Address: "0x1111111111111111111111111111111111111111", Balance: wad("100")},
		},
	}

	for _, state := range []*model.PoolState{
		{BlockNumber: 100, RaiReserve: wad("40"), TotalSupply: "0"},
		{BlockNumber: 100, RaiReserve: "0", TotalSupply: wad("100")},
	} {
		_, err := NewBalanceNormalizer(balanceStore, &fakePoolStore{state: state}).NormalizedBalances(100)
		if !errors.Is(err, utils.ErrInconsistentPoolState) {
			t.Errorf("expected inconsistent pool state error, got %v", err)
		}
	}
}

func TestNormalizedBalancesMissingPoolState(t *testing.T) {
	normalizer := NewBalanceNormalizer(&fakeBalanceStore{}, &fakePoolStore{err: utils.DbErrNotFound})
	_, err := normalizer.NormalizedBalances(100)
	if !errors.Is(err, utils.DbErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestNormalizedBalancesPagination(t *testing.T) {
	rows := make([]model.LpBalance, 1500)
	for i := 0; i < len(rows); i++ {
		rows[i] = model.LpBalance{
			BlockNumber: 100,
			Address:     fmt.Sprintf("0x%040x", i+1),
			Balance:     wad("1"),
		}
	}
	balanceStore := &fakeBalanceStore{rows: rows}
	poolStore := &fakePoolStore{
		state: &model.PoolState{BlockNumber: 100, RaiReserve: wad("40"), TotalSupply: wad("100")},
	}

	entries, err := NewBalanceNormalizer(balanceStore, poolStore).NormalizedBalances(100)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != 1500 {
		t.Errorf("expected 1500 entries, got %d", len(entries))
	}
	if len(balanceStore.offsets) != 2 || balanceStore.offsets[0] != 0 || balanceStore.offsets[1] != 1000 {
		t.Errorf("unexpected page offsets: %v", balanceStore.offsets)
	}
}

func TestNormalizedBalancesExactlyFullLastPage(t *testing.T) {
	rows := make([]model.LpBalance, 1000)
	for i := 0; i < len(rows); i++ {
		rows[i] = model.LpBalance{
			BlockNumber: 100,
			Address:     fmt.Sprintf("0x%040x", i+1),
			Balance:     wad("1"),
		}
	}
	balanceStore := &fakeBalanceStore{rows: rows}
	poolStore := &fakePoolStore{
		state: &model.PoolState{BlockNumber: 100, RaiReserve: wad("40"), TotalSupply: wad("100")},
	}

	entries, err := NewBalanceNormalizer(balanceStore, poolStore).NormalizedBalances(100)
	if err != nil {
		t.Fatal(err.Error())
	}
	if len(entries) != 1000 {
		t.Errorf("expected 1000 entries, got %d", len(entries))
	}
	// a full page forces one more fetch to observe the end
	if len(balanceStore.offsets) != 2 || balanceStore.offsets[1] != 1000 {
		t.Errorf("unexpected page offsets: %v", balanceStore.offsets)
	}
}

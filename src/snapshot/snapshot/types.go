package snapshot

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

// partialRecord is a user record before weight derivation. It has no staking
// weight field at all, so an unpromoted record can never leak into the
// returned state.
type partialRecord struct {
	debt                  decimal.Decimal
	lpBalance             decimal.Decimal
	raiLpBalance          decimal.Decimal
	earned                decimal.Decimal
	rewardPerWeightStored decimal.Decimal
}

func newPartialRecord() *partialRecord {
	return &partialRecord{
		debt:                  decimal.Zero,
		lpBalance:             decimal.Zero,
		raiLpBalance:          decimal.Zero,
		earned:                decimal.Zero,
		rewardPerWeightStored: decimal.Zero,
	}
}

// promote derives stakingWeight = min(debt, raiLpBalance) and completes the
// record. Whichever of debt exposure and RAI backing is smaller bounds the
// reward-eligible weight.
func (p *partialRecord) promote(addr common.Address) *utils.UserRecord {
	return &utils.UserRecord{
		Address:               addr,
		Debt:                  p.debt,
		LpBalance:             p.lpBalance,
		RaiLpBalance:          p.raiLpBalance,
		Earned:                p.earned,
		RewardPerWeightStored: p.rewardPerWeightStored,
		StakingWeight:         decimal.Min(p.debt, p.raiLpBalance),
	}
}

// InitialState maps each participant address to its completed record.
type InitialState map[common.Address]*utils.UserRecord

// BalanceSource yields the normalized pool token positions at a block.
type BalanceSource interface {
	NormalizedBalances(blockNumber int64) ([]utils.RawBalanceEntry, error)
}

// DebtSource yields rate-adjusted debts measured at startBlock, attributed to
// owners resolved as of endBlock.
type DebtSource interface {
	NormalizedDebts(startBlock int64, endBlock int64) ([]utils.RawDebtEntry, error)
}

// ExclusionSource supplies the addresses removed from every snapshot.
type ExclusionSource interface {
	GetExcludedAddresses() (map[common.Address]bool, error)
}

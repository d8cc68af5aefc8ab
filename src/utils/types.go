package utils

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// UserRecord is the completed reward-eligibility state of one participant.
// StakingWeight = min(Debt, RaiLpBalance): the effective stake is capped by
// both the debt exposure and the RAI backing it via the pool position.
// Earned and RewardPerWeightStored are checkpoints consumed by the reward
// accrual process downstream and start at zero in an initial snapshot.
type UserRecord struct {
	Address               common.Address  `csv:"address"`
	Debt                  decimal.Decimal `csv:"debt"`
	LpBalance             decimal.Decimal `csv:"lp_balance"`
	RaiLpBalance          decimal.Decimal `csv:"rai_lp_balance"`
	Earned                decimal.Decimal `csv:"earned"`
	RewardPerWeightStored decimal.Decimal `csv:"reward_per_weight_stored"`
	StakingWeight         decimal.Decimal `csv:"staking_weight"`
}

// RawBalanceEntry is one normalized pool token position. RaiLpBalance is the
// RAI amount implied by LpBalance at the pool ratio of the snapshot block.
type RawBalanceEntry struct {
	Address      common.Address
	LpBalance    decimal.Decimal
	RaiLpBalance decimal.Decimal
}

// RawDebtEntry is one safe's rate-adjusted debt, attributed to the resolved
// owner address rather than the safe handler.
type RawDebtEntry struct {
	Address common.Address
	Debt    decimal.Decimal
}

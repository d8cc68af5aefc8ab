package snapshot

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/geb-labs/staking-snapshot/src/snapshot/model"
	"github.com/geb-labs/staking-snapshot/src/utils"
)

// LpBalanceStore is the paginated balance query the normalizer consumes.
type LpBalanceStore interface {
	GetPositiveBalancesByPage(blockNumber int64, limit int, offset int) ([]model.LpBalance, error)
}

// PoolStateStore is the point-in-time pool scalar lookup.
type PoolStateStore interface {
	GetPoolState(blockNumber int64) (*model.PoolState, error)
}

// BalanceNormalizer converts raw pool token balances into implied RAI
// holdings using the pool reserve/supply ratio of the same block.
type BalanceNormalizer struct {
	balanceStore LpBalanceStore
	poolStore    PoolStateStore
}

func NewBalanceNormalizer(balanceStore LpBalanceStore, poolStore PoolStateStore) *BalanceNormalizer {
	return &BalanceNormalizer{
		balanceStore: balanceStore,
		poolStore:    poolStore,
	}
}

// NormalizedBalances retrieves every positive balance at blockNumber and
// derives raiLpBalance = balance * raiReserve / totalSupply. Pool state is
// read at the same block as the balances; a zero reserve or supply is fatal
// before any entry is produced.
func (b *BalanceNormalizer) NormalizedBalances(blockNumber int64) ([]utils.RawBalanceEntry, error) {
	poolState, err := b.poolStore.GetPoolState(blockNumber)
	if err != nil {
		return nil, err
	}
	raiReserve, err := utils.ParseWad(poolState.RaiReserve)
	if err != nil {
		return nil, fmt.Errorf("parse rai reserve at block %d: %w", blockNumber, err)
	}
	totalSupply, err := utils.ParseWad(poolState.TotalSupply)
	if err != nil {
		return nil, fmt.Errorf("parse pool total supply at block %d: %w", blockNumber, err)
	}
	if raiReserve.Sign() <= 0 || totalSupply.Sign() <= 0 {
		return nil, fmt.Errorf("%w: block %d rai reserve %s total supply %s",
			utils.ErrInconsistentPoolState, blockNumber, poolState.RaiReserve, poolState.TotalSupply)
	}

	entries := make([]utils.RawBalanceEntry, 0, utils.QueryPageSize)
	for offset := 0; ; offset += utils.QueryPageSize {
		page, err := b.balanceStore.GetPositiveBalancesByPage(blockNumber, utils.QueryPageSize, offset)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(page); i++ {
			lpBalance, err := utils.ParseWad(page[i].Balance)
			if err != nil {
				return nil, fmt.Errorf("parse lp balance of %s at block %d: %w", page[i].Address, blockNumber, err)
			}
			entries = append(entries, utils.RawBalanceEntry{
				Address:      common.HexToAddress(page[i].Address),
				LpBalance:    lpBalance,
				RaiLpBalance: lpBalance.Mul(raiReserve).DivRound(totalSupply, utils.RayDecimals),
			})
		}
		if len(page) < utils.QueryPageSize {
			break
		}
	}
	logx.Infof("normalized %d lp balance entries at block %d", len(entries), blockNumber)
	return entries, nil
}

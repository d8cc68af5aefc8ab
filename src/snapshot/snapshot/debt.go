package snapshot

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/zeromicro/go-zero/core/logx"

	"github.com/geb-labs/staking-snapshot/src/snapshot/model"
	"github.com/geb-labs/staking-snapshot/src/utils"
)

// SafeStore is the paginated safe query the normalizer consumes.
type SafeStore interface {
	GetOpenSafesByPage(blockNumber int64, limit int, offset int) ([]model.Safe, error)
}

// SafeOwnerStore yields ownership rows recorded at or before a block.
type SafeOwnerStore interface {
	GetOwnersUpToBlock(blockNumber int64) ([]model.SafeOwner, error)
}

// RateStore is the point-in-time accumulated rate lookup.
type RateStore interface {
	GetAccumulatedRate(blockNumber int64) (*model.AccumulatedRate, error)
}

// DebtNormalizer turns raw safe debts into rate-adjusted debts attributed to
// owner addresses. Debt is measured at the start block, ownership as of the
// end block, so a safe transferred mid-period credits the new owner.
type DebtNormalizer struct {
	safeStore  SafeStore
	ownerStore SafeOwnerStore
	rateStore  RateStore
}

func NewDebtNormalizer(safeStore SafeStore, ownerStore SafeOwnerStore, rateStore RateStore) *DebtNormalizer {
	return &DebtNormalizer{
		safeStore:  safeStore,
		ownerStore: ownerStore,
		rateStore:  rateStore,
	}
}

// NormalizedDebts retrieves every open safe at startBlock, scales its debt by
// the accumulated rate at startBlock and resolves its handler to the owner as
// of endBlock. A safe whose handler has no resolvable owner is dropped and
// reported, not attributed anywhere.
func (d *DebtNormalizer) NormalizedDebts(startBlock int64, endBlock int64) ([]utils.RawDebtEntry, error) {
	rateRow, err := d.rateStore.GetAccumulatedRate(startBlock)
	if err != nil {
		return nil, err
	}
	rate, err := utils.ParseRay(rateRow.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse accumulated rate at block %d: %w", startBlock, err)
	}
	owners, err := d.resolveOwners(endBlock)
	if err != nil {
		return nil, err
	}

	entries := make([]utils.RawDebtEntry, 0, utils.QueryPageSize)
	skipped := 0
	for offset := 0; ; offset += utils.QueryPageSize {
		page, err := d.safeStore.GetOpenSafesByPage(startBlock, utils.QueryPageSize, offset)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(page); i++ {
			owner, ok := owners[strings.ToLower(page[i].Handler)]
			if !ok {
				logx.Errorf("safe handler %s has no resolvable owner at block %d, dropping its debt", page[i].Handler, endBlock)
				skipped++
				continue
			}
			debt, err := utils.ParseWad(page[i].Debt)
			if err != nil {
				return nil, fmt.Errorf("parse debt of safe %s at block %d: %w", page[i].Handler, startBlock, err)
			}
			entries = append(entries, utils.RawDebtEntry{
				Address: owner,
				Debt:    debt.Mul(rate),
			})
		}
		if len(page) < utils.QueryPageSize {
			break
		}
	}
	logx.Infof("normalized %d debt entries at block %d, %d safes skipped", len(entries), startBlock, skipped)
	return entries, nil
}

// resolveOwners folds ownership rows into the latest owner per handler as of
// blockNumber. Rows arrive oldest first, so later transfers win.
func (d *DebtNormalizer) resolveOwners(blockNumber int64) (map[string]common.Address, error) {
	rows, err := d.ownerStore.GetOwnersUpToBlock(blockNumber)
	if err != nil {
		return nil, err
	}
	owners := make(map[string]common.Address, len(rows))
	for i := 0; i < len(rows); i++ {
		owners[strings.ToLower(rows[i].Handler)] = common.HexToAddress(rows[i].Owner)
	}
	return owners, nil
}

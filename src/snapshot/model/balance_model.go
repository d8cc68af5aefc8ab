package model

import (
	"gorm.io/gorm"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

const (
	BalanceTableNamePrefix = `lp_balance`
)

type (
	LpBalanceModel interface {
		CreateLpBalanceTable() error
		DropLpBalanceTable() error
		CreateLpBalances(balances []LpBalance) error
		GetPositiveBalancesByPage(blockNumber int64, limit int, offset int) (balances []LpBalance, err error)
		GetRowCounts() (count int64, err error)
	}

	defaultLpBalanceModel struct {
		table string
		DB    *gorm.DB
	}

	// LpBalance is one address's pool token balance at a block, raw wad scale.
	LpBalance struct {
		gorm.Model
		BlockNumber int64  `gorm:"index:idx_balance_block_addr,unique,priority:1" csv:"block_number"`
		Address     string `gorm:"index:idx_balance_block_addr,unique,priority:2;size:42" csv:"address"`
		Balance     string `gorm:"type:decimal(65,0)" csv:"balance"`
	}
)

func NewLpBalanceModel(db *gorm.DB, suffix string) LpBalanceModel {
	return &defaultLpBalanceModel{
		table: BalanceTableNamePrefix + suffix,
		DB:    db,
	}
}

func (m *defaultLpBalanceModel) TableName() string {
	return m.table
}

func (m *defaultLpBalanceModel) CreateLpBalanceTable() error {
	return m.DB.Table(m.table).AutoMigrate(LpBalance{})
}

func (m *defaultLpBalanceModel) DropLpBalanceTable() error {
	return m.DB.Migrator().DropTable(m.table)
}

func (m *defaultLpBalanceModel) CreateLpBalances(balances []LpBalance) error {
	dbTx := m.DB.Table(m.table).Create(balances)
	if dbTx.Error != nil {
		return utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return nil
}

// GetPositiveBalancesByPage returns one page of positive balances at a block,
// in address order. An empty or short page ends the caller's pagination.
func (m *defaultLpBalanceModel) GetPositiveBalancesByPage(blockNumber int64, limit int, offset int) (balances []LpBalance, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Where("block_number = ? and balance > 0", blockNumber).
		Order("address asc").Offset(offset).Limit(limit).Find(&balances)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return balances, nil
}

func (m *defaultLpBalanceModel) GetRowCounts() (count int64, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).Count(&count)
	if dbTx.Error != nil {
		return 0, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return count, nil
}

package model

import (
	"gorm.io/gorm"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

const (
	PoolStateTableNamePrefix = `pool_state`
	RateTableNamePrefix      = `accumulated_rate`
)

type (
	PoolStateModel interface {
		CreatePoolStateTable() error
		DropPoolStateTable() error
		CreatePoolStates(states []PoolState) error
		GetPoolState(blockNumber int64) (state *PoolState, err error)
	}

	defaultPoolStateModel struct {
		table string
		DB    *gorm.DB
	}

	// PoolState is the RAI reserve and pool token total supply of the tracked
	// uniswap pair at a block, raw wad scale.
	PoolState struct {
		gorm.Model
		BlockNumber int64  `gorm:"index:idx_pool_block,unique" csv:"block_number"`
		RaiReserve  string `gorm:"type:decimal(65,0)" csv:"rai_reserve"`
		TotalSupply string `gorm:"type:decimal(65,0)" csv:"total_supply"`
	}

	RateModel interface {
		CreateRateTable() error
		DropRateTable() error
		CreateRates(rates []AccumulatedRate) error
		GetAccumulatedRate(blockNumber int64) (rate *AccumulatedRate, err error)
	}

	defaultRateModel struct {
		table string
		DB    *gorm.DB
	}

	// AccumulatedRate is the engine's global interest rate factor at a block,
	// raw ray scale.
	AccumulatedRate struct {
		gorm.Model
		BlockNumber int64  `gorm:"index:idx_rate_block,unique" csv:"block_number"`
		Rate        string `gorm:"type:decimal(65,0)" csv:"rate"`
	}
)

func NewPoolStateModel(db *gorm.DB, suffix string) PoolStateModel {
	return &defaultPoolStateModel{
		table: PoolStateTableNamePrefix + suffix,
		DB:    db,
	}
}

func (m *defaultPoolStateModel) TableName() string {
	return m.table
}

func (m *defaultPoolStateModel) CreatePoolStateTable() error {
	return m.DB.Table(m.table).AutoMigrate(PoolState{})
}

func (m *defaultPoolStateModel) DropPoolStateTable() error {
	return m.DB.Migrator().DropTable(m.table)
}

func (m *defaultPoolStateModel) CreatePoolStates(states []PoolState) error {
	dbTx := m.DB.Table(m.table).Create(states)
	if dbTx.Error != nil {
		return utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return nil
}

func (m *defaultPoolStateModel) GetPoolState(blockNumber int64) (state *PoolState, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Where("block_number = ?", blockNumber).Limit(1).Find(&state)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	} else if dbTx.RowsAffected == 0 {
		return nil, utils.DbErrNotFound
	}
	return state, nil
}

func NewRateModel(db *gorm.DB, suffix string) RateModel {
	return &defaultRateModel{
		table: RateTableNamePrefix + suffix,
		DB:    db,
	}
}

func (m *defaultRateModel) TableName() string {
	return m.table
}

func (m *defaultRateModel) CreateRateTable() error {
	return m.DB.Table(m.table).AutoMigrate(AccumulatedRate{})
}

func (m *defaultRateModel) DropRateTable() error {
	return m.DB.Migrator().DropTable(m.table)
}

func (m *defaultRateModel) CreateRates(rates []AccumulatedRate) error {
	dbTx := m.DB.Table(m.table).Create(rates)
	if dbTx.Error != nil {
		return utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return nil
}

func (m *defaultRateModel) GetAccumulatedRate(blockNumber int64) (rate *AccumulatedRate, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Where("block_number = ?", blockNumber).Limit(1).Find(&rate)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	} else if dbTx.RowsAffected == 0 {
		return nil, utils.DbErrNotFound
	}
	return rate, nil
}

package model

import (
	"gorm.io/gorm"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

const (
	SafeTableNamePrefix      = `safe`
	SafeOwnerTableNamePrefix = `safe_owner`
)

type (
	SafeModel interface {
		CreateSafeTable() error
		DropSafeTable() error
		CreateSafes(safes []Safe) error
		GetOpenSafesByPage(blockNumber int64, limit int, offset int) (safes []Safe, err error)
		GetRowCounts() (count int64, err error)
	}

	defaultSafeModel struct {
		table string
		DB    *gorm.DB
	}

	// Safe is one safe's generated debt at a block, raw wad scale, keyed by
	// the opaque handler address the engine knows the position by.
	Safe struct {
		gorm.Model
		BlockNumber int64  `gorm:"index:idx_safe_block_handler,unique,priority:1" csv:"block_number"`
		Handler     string `gorm:"index:idx_safe_block_handler,unique,priority:2;size:42" csv:"handler"`
		Debt        string `gorm:"type:decimal(65,0)" csv:"debt"`
	}

	SafeOwnerModel interface {
		CreateSafeOwnerTable() error
		DropSafeOwnerTable() error
		CreateSafeOwners(owners []SafeOwner) error
		GetOwnersUpToBlock(blockNumber int64) (owners []SafeOwner, err error)
	}

	defaultSafeOwnerModel struct {
		table string
		DB    *gorm.DB
	}

	// SafeOwner records that Owner controls Handler from BlockNumber onwards.
	SafeOwner struct {
		gorm.Model
		BlockNumber int64  `gorm:"index" csv:"block_number"`
		Handler     string `gorm:"index;size:42" csv:"handler"`
		Owner       string `gorm:"size:42" csv:"owner"`
	}
)

func NewSafeModel(db *gorm.DB, suffix string) SafeModel {
	return &defaultSafeModel{
		table: SafeTableNamePrefix + suffix,
		DB:    db,
	}
}

func (m *defaultSafeModel) TableName() string {
	return m.table
}

func (m *defaultSafeModel) CreateSafeTable() error {
	return m.DB.Table(m.table).AutoMigrate(Safe{})
}

func (m *defaultSafeModel) DropSafeTable() error {
	return m.DB.Migrator().DropTable(m.table)
}

func (m *defaultSafeModel) CreateSafes(safes []Safe) error {
	dbTx := m.DB.Table(m.table).Create(safes)
	if dbTx.Error != nil {
		return utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return nil
}

// GetOpenSafesByPage returns one page of safes with debt > 0 at a block, in
// handler order.
func (m *defaultSafeModel) GetOpenSafesByPage(blockNumber int64, limit int, offset int) (safes []Safe, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Where("block_number = ? and debt > 0", blockNumber).
		Order("handler asc").Offset(offset).Limit(limit).Find(&safes)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return safes, nil
}

func (m *defaultSafeModel) GetRowCounts() (count int64, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).Count(&count)
	if dbTx.Error != nil {
		return 0, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return count, nil
}

func NewSafeOwnerModel(db *gorm.DB, suffix string) SafeOwnerModel {
	return &defaultSafeOwnerModel{
		table: SafeOwnerTableNamePrefix + suffix,
		DB:    db,
	}
}

func (m *defaultSafeOwnerModel) TableName() string {
	return m.table
}

func (m *defaultSafeOwnerModel) CreateSafeOwnerTable() error {
	return m.DB.Table(m.table).AutoMigrate(SafeOwner{})
}

func (m *defaultSafeOwnerModel) DropSafeOwnerTable() error {
	return m.DB.Migrator().DropTable(m.table)
}

func (m *defaultSafeOwnerModel) CreateSafeOwners(owners []SafeOwner) error {
	dbTx := m.DB.Table(m.table).Create(owners)
	if dbTx.Error != nil {
		return utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return nil
}

// GetOwnersUpToBlock returns every ownership row recorded at or before the
// block, oldest first, so the caller's fold leaves the latest owner per
// handler in place.
func (m *defaultSafeOwnerModel) GetOwnersUpToBlock(blockNumber int64) (owners []SafeOwner, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Where("block_number <= ?", blockNumber).
		Order("block_number asc").Find(&owners)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return owners, nil
}

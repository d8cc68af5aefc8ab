package model

import (
	"gorm.io/gorm"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

const (
	SnapshotTableNamePrefix = `snapshot`
)

type (
	SnapshotModel interface {
		CreateSnapshotTable() error
		DropSnapshotTable() error
		CreateSnapshot(snapshot *Snapshot) error
		GetSnapshotByRange(startBlock int64, endBlock int64) (snapshot *Snapshot, err error)
		GetLatestSnapshot() (snapshot *Snapshot, err error)
	}

	defaultSnapshotModel struct {
		table string
		DB    *gorm.DB
	}

	// Snapshot is one persisted initial-state run. UserData carries the full
	// record set, gob encoded, s2 compressed and base64 wrapped.
	Snapshot struct {
		gorm.Model
		StartBlock int64  `gorm:"index:idx_snapshot_range,unique,priority:1"`
		EndBlock   int64  `gorm:"index:idx_snapshot_range,unique,priority:2"`
		Commitment string `gorm:"size:128"`
		TreeRoot   string `gorm:"size:128"`
		UserCount  int64
		UserData   string `gorm:"type:longtext"`
	}
)

func NewSnapshotModel(db *gorm.DB, suffix string) SnapshotModel {
	return &defaultSnapshotModel{
		table: SnapshotTableNamePrefix + suffix,
		DB:    db,
	}
}

func (m *defaultSnapshotModel) TableName() string {
	return m.table
}

func (m *defaultSnapshotModel) CreateSnapshotTable() error {
	return m.DB.Table(m.table).AutoMigrate(Snapshot{})
}

func (m *defaultSnapshotModel) DropSnapshotTable() error {
	return m.DB.Migrator().DropTable(m.table)
}

func (m *defaultSnapshotModel) CreateSnapshot(snapshot *Snapshot) error {
	dbTx := m.DB.Table(m.table).Create(snapshot)
	if dbTx.Error != nil {
		return utils.ConvertMysqlErrToDbErr(dbTx.Error)
	}
	return nil
}

func (m *defaultSnapshotModel) GetSnapshotByRange(startBlock int64, endBlock int64) (snapshot *Snapshot, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Where("start_block = ? and end_block = ?", startBlock, endBlock).Limit(1).Find(&snapshot)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	} else if dbTx.RowsAffected == 0 {
		return nil, utils.DbErrNotFound
	}
	return snapshot, nil
}

func (m *defaultSnapshotModel) GetLatestSnapshot() (snapshot *Snapshot, err error) {
	dbTx := m.DB.Clauses(utils.MaxExecutionTimeHint).Table(m.table).
		Order("end_block desc").Limit(1).Find(&snapshot)
	if dbTx.Error != nil {
		return nil, utils.ConvertMysqlErrToDbErr(dbTx.Error)
	} else if dbTx.RowsAffected == 0 {
		return nil, utils.DbErrNotFound
	}
	return snapshot, nil
}

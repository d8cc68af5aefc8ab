package utils

import (
	"gorm.io/hints"
)

const (
	// SnapshotTreeDepth bounds the snapshot inclusion tree to 2^28 users.
	SnapshotTreeDepth = 28
	// QueryPageSize is the fixed page size for every paginated table read.
	QueryPageSize = 1000

	// WadDecimals/RayDecimals are the fixed-point scales used by the protocol
	// contracts: balances and debts are wad (1e18), rates are ray (1e27).
	WadDecimals = 18
	RayDecimals = 27

	ExclusionSetKey = "snapshot_excluded_addresses"
)

var (
	MaxExecutionTimeHint = hints.New("MAX_EXECUTION_TIME(60000)")
)

package snapshot

import (
	bsmt "github.com/bnb-chain/zkbnb-smt"

	"github.com/geb-labs/staking-snapshot/src/utils"
)

// BuildSnapshotTree writes one poseidon leaf per record into the tree, in
// address order, commits and returns the root. Record index in the sorted
// order is the leaf index, so inclusion proofs can be served later from the
// persisted record set alone.
func BuildSnapshotTree(tree bsmt.SparseMerkleTree, records []*utils.UserRecord) ([]byte, error) {
	for i := 0; i < len(records); i++ {
		err := tree.Set(uint64(i), utils.UserRecordToHash(records[i]))
		if err != nil {
			return nil, err
		}
	}
	_, err := tree.Commit(nil)
	if err != nil {
		return nil, err
	}
	return tree.Root(), nil
}

package utils

import (
	"hash"
	"time"

	bsmt "github.com/bnb-chain/zkbnb-smt"
	"github.com/bnb-chain/zkbnb-smt/database"
	"github.com/bnb-chain/zkbnb-smt/database/memory"
	"github.com/bnb-chain/zkbnb-smt/database/redis"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon"
)

var (
	NilRecordHash []byte
)

func NewSnapshotTree(driver string, addr string) (snapshotTree bsmt.SparseMerkleTree, err error) {

	hasher := bsmt.NewHasherPool(func() hash.Hash {
		return poseidon.NewPoseidon()
	})

	var db database.TreeDB
	if driver == "memory" {
		db = memory.NewMemoryDB()
	} else if driver == "redis" {
		redisOption := &redis.RedisConfig{}
		redisOption.Addr = addr
		redisOption.DialTimeout = 10 * time.Second
		redisOption.ReadTimeout = 10 * time.Second
		redisOption.WriteTimeout = 10 * time.Second
		redisOption.PoolTimeout = 15 * time.Second
		redisOption.IdleTimeout = 5 * time.Minute
		redisOption.PoolSize = 500
		redisOption.MaxRetries = 5
		redisOption.MinRetryBackoff = 8 * time.Millisecond
		redisOption.MaxRetryBackoff = 512 * time.Millisecond
		db, err = redis.New(redisOption)
		if err != nil {
			return nil, err
		}
	}

	snapshotTree, err = bsmt.NewBNBSparseMerkleTree(hasher, db, SnapshotTreeDepth, NilRecordHash)
	if err != nil {
		return nil, err
	}
	return snapshotTree, nil
}

// VerifyInclusionProof checks a record leaf against a snapshot tree root.
func VerifyInclusionProof(root []byte, recordIndex uint32, proof [][]byte, node []byte) bool {
	if len(proof) != SnapshotTreeDepth {
		return false
	}
	hasher := poseidon.NewPoseidon()
	for i := 0; i < SnapshotTreeDepth; i++ {
		bit := recordIndex & (1 << i)
		if bit == 0 {
			hasher.Write(node)
			hasher.Write(proof[i])
		} else {
			hasher.Write(proof[i])
			hasher.Write(node)
		}
		node = hasher.Sum(nil)
		hasher.Reset()
	}
	if string(node) != string(root) {
		return false
	}
	return true
}

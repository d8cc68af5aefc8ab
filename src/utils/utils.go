package utils

import (
	"bytes"
	"encoding/base64"
	"encoding/gob"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr/poseidon"
	"github.com/go-sql-driver/mysql"
	"github.com/klauspost/compress/s2"
	"github.com/shopspring/decimal"
)

// ParseWad parses a raw 1e18-scale chain integer into a decimal amount.
func ParseWad(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Shift(-WadDecimals), nil
}

// ParseRay parses a raw 1e27-scale chain integer into a decimal rate.
func ParseRay(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.Shift(-RayDecimals), nil
}

// DecimalToWadBytes truncates d to the wad grid and returns the big-endian
// bytes of the resulting integer. Record fields are non-negative.
func DecimalToWadBytes(d decimal.Decimal) []byte {
	if d.Sign() < 0 {
		panic("negative value in record hash: " + d.String())
	}
	return d.Shift(WadDecimals).Truncate(0).BigInt().Bytes()
}

// UserRecordToHash computes the poseidon leaf hash of one record.
func UserRecordToHash(record *UserRecord) []byte {
	return poseidon.PoseidonBytes(
		record.Address.Bytes(),
		DecimalToWadBytes(record.Debt),
		DecimalToWadBytes(record.LpBalance),
		DecimalToWadBytes(record.RaiLpBalance),
		DecimalToWadBytes(record.Earned),
		DecimalToWadBytes(record.RewardPerWeightStored),
		DecimalToWadBytes(record.StakingWeight),
	)
}

// ComputeSnapshotCommitment hashes the record set into a single commitment.
// Records must be passed in address order so that two runs over identical
// inputs commit to identical values.
func ComputeSnapshotCommitment(records []*UserRecord) []byte {
	hasher := poseidon.NewPoseidon()
	for i := 0; i < len(records); i++ {
		hasher.Write(UserRecordToHash(records[i]))
	}
	return hasher.Sum(nil)
}

// EncodeUserRecords serializes the record set for db storage.
func EncodeUserRecords(records []*UserRecord) (string, error) {
	var serializeBuf bytes.Buffer
	enc := gob.NewEncoder(&serializeBuf)
	err := enc.Encode(records)
	if err != nil {
		return "", err
	}
	compressedBuf := s2.Encode(nil, serializeBuf.Bytes())
	return base64.StdEncoding.EncodeToString(compressedBuf), nil
}

func DecodeUserRecords(data string) ([]*UserRecord, error) {
	b, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("decode snapshot data failed: %w", err)
	}
	uncompressedData, err := s2.Decode(nil, b)
	if err != nil {
		return nil, fmt.Errorf("uncompress snapshot data failed: %w", err)
	}
	var records []*UserRecord
	dec := gob.NewDecoder(bytes.NewBuffer(uncompressedData))
	err = dec.Decode(&records)
	if err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data failed: %w", err)
	}
	return records, nil
}

func ConvertMysqlErrToDbErr(err error) error {
	if mysqlErr, ok := err.(*mysql.MySQLError); ok {
		if mysqlErr.Number == 1317 {
			return DbErrQueryInterrupted
		}
		if mysqlErr.Number == 3024 {
			return DbErrQueryTimeout
		}
		if mysqlErr.Number == 1146 {
			return DbErrTableNotFound
		}
	}
	return err
}

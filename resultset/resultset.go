// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package resultset parses the claimed result table carried alongside a
// proof and checks that every column's recomputed multilinear-extension
// evaluation at the sumcheck point matches the plan's claimed
// column-evaluation vector.
package resultset

import (
	"encoding/binary"
	"errors"

	"github.com/zeebo/blake3"

	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/lagrange"
	"github.com/luxfi/sxt-verify/reader"
)

// ErrResultColumnCountMismatch is returned when the result table's column
// count differs from the plan's output-column evaluation count.
var ErrResultColumnCountMismatch = errors.New("resultset: result column count mismatch")

// ErrInvalidResultColumnName is returned when a column's "quoted" byte is
// not zero.
var ErrInvalidResultColumnName = errors.New("resultset: invalid result column name")

// ErrInconsistentResultColumnLengths is returned when result columns do not
// all share the same row count.
var ErrInconsistentResultColumnLengths = errors.New("resultset: inconsistent result column lengths")

// ErrIncorrectResult is returned when a column's recomputed MLE evaluation
// does not match the plan's claimed evaluation.
var ErrIncorrectResult = errors.New("resultset: incorrect result")

// ErrUnsupportedDataTypeVariant is returned for a column-type tag outside
// the implemented set.
var ErrUnsupportedDataTypeVariant = errors.New("resultset: unsupported data type variant")

// ErrTrailingBytes is returned when the result buffer has unconsumed bytes
// after every declared column has been parsed.
var ErrTrailingBytes = errors.New("resultset: trailing bytes in result table")

// ColumnTypeBigInt is the only implemented result-column variant.
const ColumnTypeBigInt = 0

// Column is one parsed result-table column: its declared name and signed
// 64-bit row values.
type Column struct {
	Name string
	Rows []int64
}

// ColumnDigest returns a blake3 hash of a column's name together with its
// row count, for result-inspection tooling that wants a cheap integrity
// fingerprint independent of the field-level MLE check. It is never
// consulted by Verify itself.
func ColumnDigest(col Column) [32]byte {
	h := blake3.New()
	h.Write([]byte(col.Name))
	var rowCountWord [8]byte
	binary.BigEndian.PutUint64(rowCountWord[:], uint64(len(col.Rows)))
	h.Write(rowCountWord[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Parse decodes the result-table wire format: a u64 column count, then per
// column a length-prefixed name, a zero "quoted" byte, a u32 type tag, a
// u64 row count, and the rows themselves.
func Parse(buf []byte) ([]Column, error) {
	c := reader.New(buf)

	next, numColumns, err := reader.U64(c)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, numColumns)
	for i := range columns {
		var nameBytes []byte
		next, nameBytes, err = reader.LengthPrefixedBytes(next)
		if err != nil {
			return nil, err
		}

		var quoteByte []byte
		next, quoteByte, err = reader.Bytes(next, 1)
		if err != nil {
			return nil, err
		}
		if quoteByte[0] != 0 {
			return nil, ErrInvalidResultColumnName
		}

		var variant uint32
		next, variant, err = reader.U32(next)
		if err != nil {
			return nil, err
		}
		if variant != ColumnTypeBigInt {
			return nil, ErrUnsupportedDataTypeVariant
		}

		var rowCount uint64
		next, rowCount, err = reader.U64(next)
		if err != nil {
			return nil, err
		}

		rows := make([]int64, rowCount)
		for j := range rows {
			var v int64
			next, v, err = reader.RawI64(next)
			if err != nil {
				return nil, err
			}
			rows[j] = v
		}

		columns[i] = Column{Name: string(nameBytes), Rows: rows}
	}

	if !next.Done() {
		return nil, ErrTrailingBytes
	}
	return columns, nil
}

// Verify parses the result bytes and checks that every column's recomputed
// MLE evaluation at point matches the corresponding entry of
// planColumnEvals.
func Verify(resultBytes []byte, planColumnEvals []field.Element, point []field.Element) error {
	columns, err := Parse(resultBytes)
	if err != nil {
		return err
	}
	if len(columns) != len(planColumnEvals) {
		return ErrResultColumnCountMismatch
	}

	m := -1
	for _, col := range columns {
		if m == -1 {
			m = len(col.Rows)
			continue
		}
		if len(col.Rows) != m {
			return ErrInconsistentResultColumnLengths
		}
	}
	if m == -1 {
		m = 0
	}

	evalVec := lagrange.EvaluationVec(uint64(m), point)

	for i, col := range columns {
		sum := field.Zero()
		for j, row := range col.Rows {
			lifted := field.LiftSigned(row)
			sum = field.Add(sum, field.Mul(lifted, evalVec[j]))
		}
		if !field.Equal(sum, planColumnEvals[i]) {
			return ErrIncorrectResult
		}
	}
	return nil
}

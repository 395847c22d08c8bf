// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package reader provides stateless, position-tracked reads over the flat
// byte cursor that plans, results, and proofs are encoded into. Every
// reader returns the remaining cursor alongside its payload; underflow is
// reported, never panicked.
package reader

import (
	"encoding/binary"
	"errors"

	"github.com/holiman/uint256"

	"github.com/luxfi/sxt-verify/field"
)

// ErrUnderflow is returned whenever a read would run past the end of the
// supplied byte slice.
var ErrUnderflow = errors.New("reader: buffer underflow")

// sizeOf multiplies an attacker-controlled element count by its encoded
// width and reports whether the byte length overflows, without relying on
// native uint64 multiplication's silent wraparound. A length-prefixed array
// field is fully untrusted until this check passes, so every array reader
// below computes its total size through uint256 before allocating.
func sizeOf(count uint64, width uint64) (int, bool) {
	c, w := uint256.NewInt(count), uint256.NewInt(width)
	total, overflow := new(uint256.Int).MulOverflow(c, w)
	if overflow || !total.IsUint64() {
		return 0, false
	}
	n := total.Uint64()
	if n > uint64(^uint(0)>>1) {
		return 0, false
	}
	return int(n), true
}

// Cursor is a read-only position into a byte buffer. It never mutates its
// backing array; advancing a cursor returns a new one.
type Cursor struct {
	buf []byte
	pos int
}

// New creates a cursor positioned at the start of buf.
func New(buf []byte) Cursor {
	return Cursor{buf: buf}
}

// Remaining returns the number of unread bytes.
func (c Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// Done reports whether every byte has been consumed.
func (c Cursor) Done() bool {
	return c.pos == len(c.buf)
}

func (c Cursor) take(n int) (Cursor, []byte, error) {
	if n < 0 || c.Remaining() < n {
		return c, nil, ErrUnderflow
	}
	payload := c.buf[c.pos : c.pos+n]
	return Cursor{buf: c.buf, pos: c.pos + n}, payload, nil
}

// U32 reads a big-endian uint32.
func U32(c Cursor) (Cursor, uint32, error) {
	next, payload, err := c.take(4)
	if err != nil {
		return c, 0, err
	}
	return next, binary.BigEndian.Uint32(payload), nil
}

// U64 reads a big-endian uint64.
func U64(c Cursor) (Cursor, uint64, error) {
	next, payload, err := c.take(8)
	if err != nil {
		return c, 0, err
	}
	return next, binary.BigEndian.Uint64(payload), nil
}

// I8 reads a sign-extended 8-bit integer, lifted into F_p.
func I8(c Cursor) (Cursor, field.Element, error) {
	next, payload, err := c.take(1)
	if err != nil {
		return c, field.Element{}, err
	}
	return next, field.LiftSigned(int64(int8(payload[0]))), nil
}

// I16 reads a sign-extended 16-bit big-endian integer, lifted into F_p.
func I16(c Cursor) (Cursor, field.Element, error) {
	next, payload, err := c.take(2)
	if err != nil {
		return c, field.Element{}, err
	}
	v := int16(binary.BigEndian.Uint16(payload))
	return next, field.LiftSigned(int64(v)), nil
}

// I32 reads a sign-extended 32-bit big-endian integer, lifted into F_p.
func I32(c Cursor) (Cursor, field.Element, error) {
	next, payload, err := c.take(4)
	if err != nil {
		return c, field.Element{}, err
	}
	v := int32(binary.BigEndian.Uint32(payload))
	return next, field.LiftSigned(int64(v)), nil
}

// I64 reads a sign-extended 64-bit big-endian integer, lifted into F_p.
func I64(c Cursor) (Cursor, field.Element, error) {
	next, payload, err := c.take(8)
	if err != nil {
		return c, field.Element{}, err
	}
	v := int64(binary.BigEndian.Uint64(payload))
	return next, field.LiftSigned(v), nil
}

// RawI64 reads a sign-extended 64-bit big-endian integer as a plain int64,
// without lifting it into F_p. Used by callers (e.g. resultset) that need
// the native value before deciding how to fold it into the field.
func RawI64(c Cursor) (Cursor, int64, error) {
	next, payload, err := c.take(8)
	if err != nil {
		return c, 0, err
	}
	return next, int64(binary.BigEndian.Uint64(payload)), nil
}

// Bytes reads a raw, fixed-length byte slice.
func Bytes(c Cursor, n int) (Cursor, []byte, error) {
	return c.take(n)
}

// WordArray reads a u64 length prefix followed by length 32-byte words.
func WordArray(c Cursor) (Cursor, [][32]byte, error) {
	next, n, err := U64(c)
	if err != nil {
		return c, nil, err
	}
	total, ok := sizeOf(n, 32)
	if !ok || next.Remaining() < total {
		return c, nil, ErrUnderflow
	}
	out := make([][32]byte, n)
	for i := range out {
		var payload []byte
		next, payload, err = next.take(32)
		if err != nil {
			return c, nil, err
		}
		copy(out[i][:], payload)
	}
	return next, out, nil
}

// ScalarArray reads a u64 length prefix followed by length 32-byte words,
// each decoded directly into a field element.
func ScalarArray(c Cursor) (Cursor, []field.Element, error) {
	next, words, err := WordArray(c)
	if err != nil {
		return c, nil, err
	}
	out := make([]field.Element, len(words))
	for i, w := range words {
		out[i] = field.FromBytes32(w)
	}
	return next, out, nil
}

// U64Array reads a u64 length prefix followed by length 8-byte big-endian
// unsigned integers.
func U64Array(c Cursor) (Cursor, []uint64, error) {
	next, n, err := U64(c)
	if err != nil {
		return c, nil, err
	}
	total, ok := sizeOf(n, 8)
	if !ok || next.Remaining() < total {
		return c, nil, ErrUnderflow
	}
	out := make([]uint64, n)
	for i := range out {
		var v uint64
		next, v, err = U64(next)
		if err != nil {
			return c, nil, err
		}
		out[i] = v
	}
	return next, out, nil
}

// PointPair is the 64-byte (x, y) big-endian encoding of a BN254 G1 affine
// point, exactly as it appears in commitment arrays.
type PointPair struct {
	X, Y [32]byte
}

// PointPairArray reads a u64 length prefix followed by length 64-byte
// point-pairs (two words per point).
func PointPairArray(c Cursor) (Cursor, []PointPair, error) {
	next, n, err := U64(c)
	if err != nil {
		return c, nil, err
	}
	total, ok := sizeOf(n, 64)
	if !ok || next.Remaining() < total {
		return c, nil, ErrUnderflow
	}
	out := make([]PointPair, n)
	for i := range out {
		var payload []byte
		next, payload, err = next.take(64)
		if err != nil {
			return c, nil, err
		}
		copy(out[i].X[:], payload[:32])
		copy(out[i].Y[:], payload[32:64])
	}
	return next, out, nil
}

// LengthPrefixedBytes reads a u64 length prefix followed by that many raw
// bytes (used for names).
func LengthPrefixedBytes(c Cursor) (Cursor, []byte, error) {
	next, n, err := U64(c)
	if err != nil {
		return c, nil, err
	}
	return next.take(int(n))
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package transcript implements the public-coin Fiat-Shamir transcript that
// drives the verifier deterministically: every challenge the verifier ever
// uses is derived from previously appended bytes, never from an external
// randomness source.
package transcript

import (
	"encoding/binary"
	"math/big"

	"golang.org/x/crypto/sha3"

	"github.com/luxfi/sxt-verify/field"
)

// InitialState is keccak256(""), the fixed seed every transcript starts
// from before any public inputs are mixed in.
var InitialState = [32]byte{
	0xc5, 0xd2, 0x46, 0x01, 0x86, 0xf7, 0x23, 0x3c,
	0x92, 0x7e, 0x7d, 0xb2, 0xdc, 0xc7, 0x03, 0xc0,
	0xe5, 0x00, 0xb6, 0x53, 0xca, 0x82, 0x27, 0x3b,
	0x7b, 0xfa, 0xd8, 0x04, 0x5d, 0x85, 0xa4, 0x70,
}

// Transcript holds the single 32-byte Fiat-Shamir state. The zero value is
// not valid; construct one with New.
type Transcript struct {
	state [32]byte
}

// New creates a transcript seeded with the given initial state, normally
// transcript.InitialState.
func New(initial [32]byte) *Transcript {
	return &Transcript{state: initial}
}

func keccak256(parts ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// State returns a copy of the current transcript state. Exposed for tests
// that need to assert determinism independent of the public API.
func (t *Transcript) State() [32]byte {
	return t.state
}

// AppendBytes mixes data into the transcript: state <- keccak256(state || data).
func (t *Transcript) AppendBytes(data []byte) {
	t.state = keccak256(t.state[:], data)
}

// AppendArray mixes a sequence of field elements into the transcript as the
// 32-byte big-endian encoding of the array length followed by each
// element's canonical 32-byte word.
func (t *Transcript) AppendArray(scalars []field.Element) {
	var lenWord [32]byte
	binary.BigEndian.PutUint64(lenWord[24:], uint64(len(scalars)))

	buf := make([]byte, 0, 32+32*len(scalars))
	buf = append(buf, lenWord[:]...)
	for _, s := range scalars {
		w := field.ToBytes32(s)
		buf = append(buf, w[:]...)
	}
	t.AppendBytes(buf)
}

// DrawChallenge emits the current state masked into F_p, then advances the
// state by re-hashing it. The mask is applied before, not after, hashing:
// the emitted challenge is a function of the pre-draw state.
func (t *Transcript) DrawChallenge() field.Element {
	masked := new(big.Int).SetBytes(t.state[:])
	masked.And(masked, field.ModulusMask())

	var c field.Element
	c.SetBigInt(masked)

	t.state = keccak256(t.state[:])
	return c
}

// DrawChallenges draws n challenges in order, each re-hashing the state as
// in DrawChallenge.
func (t *Transcript) DrawChallenges(n int) []field.Element {
	out := make([]field.Element, n)
	for i := range out {
		out[i] = t.DrawChallenge()
	}
	return out
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package field provides arithmetic over the BN254 scalar field F_p, the
// field every non-boolean value in the verifier is an element of.
package field

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Element is a field element modulo the BN254 scalar modulus. It is a thin
// alias over fr.Element so that every arithmetic operation goes through
// gnark-crypto's Montgomery-form reduction rather than a hand-rolled bigint
// modulus.
type Element = fr.Element

// Modulus returns p, the BN254 scalar-field modulus, as a big.Int.
func Modulus() *big.Int {
	return fr.Modulus()
}

// modulusMask is the largest value of the form 2^k-1 strictly below the
// modulus. BN254's scalar modulus is a 254-bit number just above 2^253, so
// k=253: masking a uniformly random 32-byte string with this value always
// yields an integer below p, with no rejection sampling required.
var modulusMask = func() *big.Int {
	one := big.NewInt(1)
	mask := new(big.Int).Lsh(one, 253)
	return mask.Sub(mask, one)
}()

// ModulusMask returns the 253-bit all-ones mask used to turn a transcript
// state into a uniformly distributed field element.
func ModulusMask() *big.Int {
	return new(big.Int).Set(modulusMask)
}

// Zero returns the additive identity.
func Zero() Element {
	var e Element
	return e
}

// One returns the multiplicative identity.
func One() Element {
	var e Element
	e.SetOne()
	return e
}

// Add returns a+b mod p.
func Add(a, b Element) Element {
	var r Element
	r.Add(&a, &b)
	return r
}

// Sub returns a-b mod p.
func Sub(a, b Element) Element {
	var r Element
	r.Sub(&a, &b)
	return r
}

// Mul returns a*b mod p.
func Mul(a, b Element) Element {
	var r Element
	r.Mul(&a, &b)
	return r
}

// Neg returns -a mod p.
func Neg(a Element) Element {
	var r Element
	r.Neg(&a)
	return r
}

// FromUint64 lifts a small non-negative integer into F_p.
func FromUint64(v uint64) Element {
	var e Element
	e.SetUint64(v)
	return e
}

// LiftSigned maps a signed integer into F_p by lift(x) = x mod p, i.e. wraps
// negative values around by adding p. gnark-crypto's
// SetBigInt already performs this reduction for a negative big.Int, so no
// separate branch is needed here.
func LiftSigned(x int64) Element {
	var e Element
	e.SetBigInt(big.NewInt(x))
	return e
}

// FromBytes32 decodes a 32-byte big-endian word into a field element. Values
// at or above the modulus are reduced, matching the wire format's use of
// raw 32-byte words rather than canonical encodings.
func FromBytes32(word [32]byte) Element {
	var e Element
	e.SetBytes(word[:])
	return e
}

// ToBytes32 encodes a field element as its canonical 32-byte big-endian
// word, the representation used throughout the proof/plan/result wire
// format.
func ToBytes32(e Element) [32]byte {
	return e.Bytes()
}

// Equal reports whether a and b represent the same field element.
func Equal(a, b Element) bool {
	return a.Equal(&b)
}

// IsZero reports whether e is the additive identity.
func IsZero(e Element) bool {
	return e.IsZero()
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package curve provides the three BN254 EC/pairing primitives the verifier
// needs (scalar multiplication, point addition, and a pairing check). Only
// the pairing check sits behind the Backend interface, whose default
// implementation is gnark-crypto; scalar multiplication and point addition
// are plain functions that always call gnark-crypto directly.
package curve

import (
	"errors"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254"
	"github.com/consensys/gnark-crypto/ecc/bn254/fp"

	"github.com/luxfi/sxt-verify/field"
)

// ErrInvalidECAddInputs is returned by G1FromWords and G2FromWords when the
// decoded coordinates are not a point on the curve.
var ErrInvalidECAddInputs = errors.New("curve: invalid EC add inputs")

// ErrInvalidECMulInputs is the error kind for a rejected scalar-multiplication
// input. No function in this package returns it: ScalarMul and ScalarMul2
// take already-decoded points and do not fail.
var ErrInvalidECMulInputs = errors.New("curve: invalid EC mul inputs")

// ErrInvalidECPairingInputs is returned when a pairing-check input is not a
// valid curve point, or the two input lists have mismatched lengths.
var ErrInvalidECPairingInputs = errors.New("curve: invalid EC pairing inputs")

// G1 is a BN254 G1 affine point, encoded in the wire format as two 32-byte
// big-endian words (x, y).
type G1 struct {
	inner bn254.G1Affine
}

// G2 is a BN254 G2 affine point, encoded as four 32-byte big-endian words
// (x.a0, x.a1, y.a0, y.a1).
type G2 struct {
	inner bn254.G2Affine
}

// G1FromWords decodes a commitment's two-word encoding into a G1 point.
func G1FromWords(x, y [32]byte) (G1, error) {
	var p bn254.G1Affine
	p.X.SetBytes(x[:])
	p.Y.SetBytes(y[:])
	if !(p.X.IsZero() && p.Y.IsZero()) && !p.IsOnCurve() {
		return G1{}, ErrInvalidECAddInputs
	}
	return G1{inner: p}, nil
}

// Words encodes a G1 point back into its two-word big-endian form.
func (p G1) Words() (x, y [32]byte) {
	xb := p.inner.X.Bytes()
	yb := p.inner.Y.Bytes()
	return xb, yb
}

// G2FromWords decodes a four-word encoding into a G2 point.
func G2FromWords(xa0, xa1, ya0, ya1 [32]byte) (G2, error) {
	var p bn254.G2Affine
	p.X.A0.SetBytes(xa0[:])
	p.X.A1.SetBytes(xa1[:])
	p.Y.A0.SetBytes(ya0[:])
	p.Y.A1.SetBytes(ya1[:])
	zero := p.X.A0.IsZero() && p.X.A1.IsZero() && p.Y.A0.IsZero() && p.Y.A1.IsZero()
	if !zero && !p.IsOnCurve() {
		return G2{}, ErrInvalidECAddInputs
	}
	return G2{inner: p}, nil
}

// G1Generator and G1NegGenerator are the BN254 G1 generator (1, 2) and its
// negation.
var (
	G1Generator    = mustG1(big.NewInt(1), big.NewInt(2))
	G1NegGenerator = func() G1 {
		g := G1Generator
		return Neg(g)
	}()
)

func mustG1(x, y *big.Int) G1 {
	var p bn254.G1Affine
	p.X.SetBigInt(x)
	p.Y.SetBigInt(y)
	return G1{inner: p}
}

func mustFp(hex string) fp.Element {
	var e fp.Element
	e.SetString(hex)
	return e
}

// G2Generator and G2NegGenerator are the standard BN254 G2 generator and
// its negation (the same constants used by the Ethereum EIP-197 pairing
// precompile).
var (
	g2GenX0 = mustFp("10857046999023057135944570762232829481370756359578518086990519993285655852781")
	g2GenX1 = mustFp("11559732032986387107991004021392285783925812861821192530917403151452391805634")
	g2GenY0 = mustFp("8495653923123431417604973247489272438418190587263600148770280649306958101930")
	g2GenY1 = mustFp("4082367875863433681332203403145435568316851327593401208105741076214120093531")

	G2Generator = G2{inner: func() bn254.G2Affine {
		var g bn254.G2Affine
		g.X.A0, g.X.A1 = g2GenX0, g2GenX1
		g.Y.A0, g.Y.A1 = g2GenY0, g2GenY1
		return g
	}()}
	G2NegGenerator = Neg2(G2Generator)
)

// TauScalar is the trusted-setup secret τ used to derive TauH. Production
// deployments never have this value in the clear; TauH alone is the
// ceremony's public artifact. It is exported here only because this
// placeholder ceremony is deterministic and test fixtures need to
// construct HyperKZG openings against it without a real prover.
var TauScalar = field.FromUint64(8145550671885248517)

// TauH is the trusted-setup verification point τH used by the HyperKZG
// pairing check. Production deployments replace this constant
// with the real ceremony output; this placeholder is deterministic so tests
// built against it are reproducible.
var TauH = ScalarMul2(G2Generator, TauScalar)

// Neg returns the additive inverse of a G1 point.
func Neg(p G1) G1 {
	var r bn254.G1Affine
	r.Neg(&p.inner)
	return G1{inner: r}
}

// Neg2 returns the additive inverse of a G2 point.
func Neg2(p G2) G2 {
	var r bn254.G2Affine
	r.Neg(&p.inner)
	return G2{inner: r}
}

// Add returns a+b on G1.
func Add(a, b G1) G1 {
	var r bn254.G1Affine
	r.Add(&a.inner, &b.inner)
	return G1{inner: r}
}

// ScalarMul returns s*p on G1.
func ScalarMul(p G1, s field.Element) G1 {
	var r bn254.G1Affine
	sBig := new(big.Int)
	s.BigInt(sBig)
	r.ScalarMultiplication(&p.inner, sBig)
	return G1{inner: r}
}

// ScalarMul2 returns s*p on G2.
func ScalarMul2(p G2, s field.Element) G2 {
	var r bn254.G2Affine
	sBig := new(big.Int)
	s.BigInt(sBig)
	r.ScalarMultiplication(&p.inner, sBig)
	return G2{inner: r}
}

// MSM computes the multi-scalar-multiplication sum_i scalars[i]*points[i]
// via repeated ScalarMul/Add calls, the same shape an on-chain deployment
// gets from repeated EC precompile calls rather than a single batched MSM
// primitive.
func MSM(points []G1, scalars []field.Element) G1 {
	var acc G1
	first := true
	for i, p := range points {
		term := ScalarMul(p, scalars[i])
		if first {
			acc = term
			first = false
			continue
		}
		acc = Add(acc, term)
	}
	return acc
}

// Backend abstracts the pairing check so an alternate implementation can be
// substituted without touching verification logic. GnarkBackend is the only
// implementation in this repository, and tests use it as well.
type Backend interface {
	PairingCheck(g1s []G1, g2s []G2) (bool, error)
}

// GnarkBackend is the default Backend, delegating to gnark-crypto's
// optimal-ate pairing implementation.
type GnarkBackend struct{}

// PairingCheck verifies that the product of e(g1s[i], g2s[i]) over all i is
// the identity element of the target group.
func (GnarkBackend) PairingCheck(g1s []G1, g2s []G2) (bool, error) {
	if len(g1s) != len(g2s) {
		return false, ErrInvalidECPairingInputs
	}
	p := make([]bn254.G1Affine, len(g1s))
	q := make([]bn254.G2Affine, len(g2s))
	for i := range g1s {
		p[i] = g1s[i].inner
		q[i] = g2s[i].inner
	}
	ok, err := bn254.PairingCheck(p, q)
	if err != nil {
		return false, ErrInvalidECPairingInputs
	}
	return ok, nil
}

// Default is the backend used by production verification paths.
var Default Backend = GnarkBackend{}

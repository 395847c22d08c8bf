// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package hyperkzg implements the batch polynomial-commitment verifier:
// a transcript-driven random linear combination of many claimed
// commitment/evaluation pairs at one point, followed by the HyperKZG
// single-point opening check (MicroNova §6) over that combined claim.
package hyperkzg

import (
	"errors"

	"github.com/luxfi/sxt-verify/curve"
	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/reader"
	"github.com/luxfi/sxt-verify/transcript"
)

// ErrHyperKZGInconsistentV is returned when the proof's v-array fails the
// per-round consistency check (step 5).
var ErrHyperKZGInconsistentV = errors.New("hyperkzg: inconsistent v array")

// ErrHyperKZGEmptyPoint is returned when the evaluation point has length 0.
var ErrHyperKZGEmptyPoint = errors.New("hyperkzg: empty evaluation point")

// ErrHyperKZGPairingCheckFailed is returned when the final bilinear pairing
// identity does not hold.
var ErrHyperKZGPairingCheckFailed = errors.New("hyperkzg: pairing check failed")

// ErrHyperKZGProofSizeMismatch is returned when the proof buffer is too
// short for the shape implied by the evaluation point's length.
var ErrHyperKZGProofSizeMismatch = errors.New("hyperkzg: proof size mismatch")

// ErrPCSBatchLengthMismatch is returned when the commitment and evaluation
// lists passed to BatchVerify differ in length.
var ErrPCSBatchLengthMismatch = errors.New("hyperkzg: commitment/evaluation count mismatch")

// Proof is one HyperKZG opening proof: ℓ-1 intermediate fold commitments,
// ℓ rows of 3-tuples (v0,v1,v2), and 3 final witness commitments.
type Proof struct {
	Com []curve.G1
	V   [][3]field.Element
	W   [3]curve.G1
}

// ParseProof reads a HyperKZG proof shaped for an ℓ-length evaluation
// point: (ℓ-1) G1 points, then ℓ rows of 3 field words, then 3 G1 points.
// The shape has no independent length prefix; ℓ is supplied by the
// caller from the evaluation point already in hand.
func ParseProof(c reader.Cursor, l int) (reader.Cursor, Proof, error) {
	if l == 0 {
		return c, Proof{}, ErrHyperKZGEmptyPoint
	}

	next := c
	com := make([]curve.G1, l-1)
	for i := range com {
		var raw []byte
		var err error
		next, raw, err = reader.Bytes(next, 64)
		if err != nil {
			return c, Proof{}, ErrHyperKZGProofSizeMismatch
		}
		var x, y [32]byte
		copy(x[:], raw[:32])
		copy(y[:], raw[32:64])
		p, err := curve.G1FromWords(x, y)
		if err != nil {
			return c, Proof{}, err
		}
		com[i] = p
	}

	v := make([][3]field.Element, l)
	for i := range v {
		var raw []byte
		var err error
		next, raw, err = reader.Bytes(next, 96)
		if err != nil {
			return c, Proof{}, ErrHyperKZGProofSizeMismatch
		}
		for j := 0; j < 3; j++ {
			var w [32]byte
			copy(w[:], raw[j*32:(j+1)*32])
			v[i][j] = field.FromBytes32(w)
		}
	}

	var w [3]curve.G1
	for i := range w {
		var raw []byte
		var err error
		next, raw, err = reader.Bytes(next, 64)
		if err != nil {
			return c, Proof{}, ErrHyperKZGProofSizeMismatch
		}
		var x, y [32]byte
		copy(x[:], raw[:32])
		copy(y[:], raw[32:64])
		p, err := curve.G1FromWords(x, y)
		if err != nil {
			return c, Proof{}, err
		}
		w[i] = p
	}

	return next, Proof{Com: com, V: v, W: w}, nil
}

func flattenG1(points []curve.G1) []byte {
	buf := make([]byte, 0, 64*len(points))
	for _, p := range points {
		x, y := p.Words()
		buf = append(buf, x[:]...)
		buf = append(buf, y[:]...)
	}
	return buf
}

// verifyPoint checks the HyperKZG opening of a single combined
// commitment/evaluation claim against proof, following MicroNova §6.
func verifyPoint(tr *transcript.Transcript, backend curve.Backend, combinedC curve.G1, combinedY field.Element, point []field.Element, proof Proof) error {
	l := len(point)
	if l == 0 {
		return ErrHyperKZGEmptyPoint
	}

	tr.AppendBytes(flattenG1(proof.Com))
	r := tr.DrawChallenge()

	flatV := make([]field.Element, 0, 3*l)
	for _, row := range proof.V {
		flatV = append(flatV, row[0], row[1], row[2])
	}
	tr.AppendArray(flatV)
	q := tr.DrawChallenge()

	tr.AppendBytes(flattenG1(proof.W[:]))
	d := tr.DrawChallenge()

	// Step 4: b = sum_i sum_j q^i * d^j * v[i][j].
	b := field.Zero()
	qPow := field.One()
	for i := 0; i < l; i++ {
		dPow := field.One()
		rowSum := field.Zero()
		for j := 0; j < 3; j++ {
			rowSum = field.Add(rowSum, field.Mul(dPow, proof.V[i][j]))
			dPow = field.Mul(dPow, d)
		}
		b = field.Add(b, field.Mul(qPow, rowSum))
		qPow = field.Mul(qPow, q)
	}

	// Step 5: consistency check across rounds, v[l][2] := combinedY.
	one := field.One()
	two := field.Add(one, one)
	for i := 0; i < l; i++ {
		var vNext2 field.Element
		if i+1 < l {
			vNext2 = proof.V[i+1][2]
		} else {
			vNext2 = combinedY
		}
		xi := point[i]
		v0, v1 := proof.V[i][0], proof.V[i][1]

		term1 := field.Mul(r, field.Add(field.Mul(two, vNext2), field.Mul(field.Sub(xi, one), field.Add(v1, v0))))
		term2 := field.Mul(xi, field.Sub(v1, v0))
		check := field.Add(term1, term2)
		if !field.IsZero(check) {
			return ErrHyperKZGInconsistentV
		}
	}

	// Step 6: L.
	foldWeights := make([]field.Element, len(proof.Com))
	qi := q
	for i := range foldWeights {
		foldWeights[i] = qi
		qi = field.Mul(qi, q)
	}
	foldedCom := curve.MSM(proof.Com, foldWeights)
	inner := curve.Add(combinedC, foldedCom)

	dPlusOne := field.Add(one, d)
	dSquared := field.Mul(d, d)
	scaleFactor := field.Add(dPlusOne, dSquared)

	dr := field.Mul(d, r)
	drSquared := field.Mul(dr, dr)

	l1 := curve.ScalarMul(inner, scaleFactor)
	l2 := curve.ScalarMul(curve.G1Generator, field.Neg(b))
	l3 := curve.ScalarMul(proof.W[0], r)
	l4 := curve.ScalarMul(proof.W[1], field.Neg(dr))
	l5 := curve.ScalarMul(proof.W[2], drSquared)

	L := curve.Add(curve.Add(curve.Add(l1, l2), curve.Add(l3, l4)), l5)

	// Step 7: R.
	R := curve.MSM([]curve.G1{proof.W[0], proof.W[1], proof.W[2]}, []field.Element{one, d, dSquared})

	// Step 8: pairing check.
	ok, err := backend.PairingCheck([]curve.G1{L, R}, []curve.G2{curve.G2NegGenerator, curve.TauH})
	if err != nil {
		return err
	}
	if !ok {
		return ErrHyperKZGPairingCheckFailed
	}
	return nil
}

// BatchVerify combines commitments/evaluations into a single claim via
// transcript-drawn powers of one challenge, then verifies the HyperKZG
// opening proof read from c.
func BatchVerify(tr *transcript.Transcript, backend curve.Backend, commitments []curve.G1, evaluations []field.Element, point []field.Element, c reader.Cursor) (reader.Cursor, error) {
	if len(commitments) != len(evaluations) {
		return c, ErrPCSBatchLengthMismatch
	}
	if len(point) == 0 {
		return c, ErrHyperKZGEmptyPoint
	}

	tr.AppendBytes(flattenG1(commitments))
	tr.AppendArray(evaluations)
	gamma := tr.DrawChallenge()

	weights := make([]field.Element, len(commitments))
	gammaPow := field.One()
	for i := range weights {
		weights[i] = gammaPow
		gammaPow = field.Mul(gammaPow, gamma)
	}

	combinedC := curve.MSM(commitments, weights)
	combinedY := field.Zero()
	for i, e := range evaluations {
		combinedY = field.Add(combinedY, field.Mul(weights[i], e))
	}

	next, proof, err := ParseProof(c, len(point))
	if err != nil {
		return c, err
	}

	if err := verifyPoint(tr, backend, combinedC, combinedY, point, proof); err != nil {
		return c, err
	}
	return next, nil
}

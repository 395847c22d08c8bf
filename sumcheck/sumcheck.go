// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sumcheck implements the multi-round consistency check that
// reduces a claim about a sum over the boolean hypercube to a single
// evaluation, verified round by round against the Fiat-Shamir transcript.
package sumcheck

import (
	"errors"

	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/reader"
	"github.com/luxfi/sxt-verify/transcript"
)

// ErrRoundEvaluationMismatch is returned when a round's actual sum does not
// match the expected evaluation carried over from the previous round.
var ErrRoundEvaluationMismatch = errors.New("sumcheck: round evaluation mismatch")

// ErrInvalidSumcheckProofSize is returned when the proof's coefficient
// count is zero or not evenly divisible by the number of variables.
var ErrInvalidSumcheckProofSize = errors.New("sumcheck: invalid proof size")

// Result carries the outputs of a completed sumcheck run: the evaluation
// point drawn round by round, the final round's evaluation, and the
// per-round polynomial degree implied by the proof's shape.
type Result struct {
	Point        []field.Element
	ExpectedEval field.Element
	Degree       int
}

// Verify runs the sumcheck protocol over nu variables, reading the u64
// total-length-prefixed coefficient stream from c and mixing every round's
// coefficients into tr before drawing that round's challenge. nu must be
// > 0.
func Verify(tr *transcript.Transcript, c reader.Cursor, nu int) (reader.Cursor, Result, error) {
	next, total, err := reader.U64(c)
	if err != nil {
		return c, Result{}, err
	}
	if total == 0 || total%uint64(nu) != 0 {
		return c, Result{}, ErrInvalidSumcheckProofSize
	}
	perRound := total / uint64(nu)
	degree := int(perRound) - 1

	point := make([]field.Element, nu)
	expected := field.Zero()

	for r := 0; r < nu; r++ {
		var rawCoeffs []byte
		next, rawCoeffs, err = reader.Bytes(next, int(perRound)*32)
		if err != nil {
			return c, Result{}, err
		}
		coeffs := make([]field.Element, perRound)
		for i := range coeffs {
			var w [32]byte
			copy(w[:], rawCoeffs[i*32:(i+1)*32])
			coeffs[i] = field.FromBytes32(w)
		}

		tr.AppendBytes(rawCoeffs)
		x := tr.DrawChallenge()
		point[r] = x

		roundEval := horner(coeffs, x)
		actualSum := field.Add(horner(coeffs, field.Zero()), horner(coeffs, field.One()))

		if !field.Equal(actualSum, expected) {
			return c, Result{}, ErrRoundEvaluationMismatch
		}
		expected = roundEval
	}

	return next, Result{Point: point, ExpectedEval: expected, Degree: degree}, nil
}

// horner evaluates a polynomial given leading-coefficient-first
// coefficients. The ordering is part of the wire format.
func horner(coeffs []field.Element, x field.Element) field.Element {
	acc := field.Zero()
	for _, c := range coeffs {
		acc = field.Add(field.Mul(acc, x), c)
	}
	return acc
}

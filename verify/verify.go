// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package verify is the top-level Proof-of-SQL verifier orchestrator: it
// wires the transcript, sumcheck, plan/expression interpreter,
// result-column evaluator, and HyperKZG batch verifier into the single
// entry point that decides whether a serialized proof honestly answers a
// filter query against committed tables.
package verify

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/log"

	"github.com/luxfi/sxt-verify/builder"
	"github.com/luxfi/sxt-verify/curve"
	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/hyperkzg"
	"github.com/luxfi/sxt-verify/lagrange"
	"github.com/luxfi/sxt-verify/plan"
	"github.com/luxfi/sxt-verify/reader"
	"github.com/luxfi/sxt-verify/resultset"
	"github.com/luxfi/sxt-verify/sumcheck"
	"github.com/luxfi/sxt-verify/transcript"
)

// ErrAggregateEvaluationMismatch is returned when the plan's folded
// constraint aggregate does not reduce to zero.
var ErrAggregateEvaluationMismatch = errors.New("verify: aggregate evaluation mismatch")

// logger is nil unless a caller opts into debug tracing via SetLogger.
var logger log.Logger

// SetLogger installs a logger for verification-path debug tracing. Logging
// never affects the verification result; it exists only as a side channel
// for callers who want visibility into where a proof was rejected.
func SetLogger(l log.Logger) {
	logger = l
}

func debug(msg string, ctx ...interface{}) {
	if logger != nil {
		logger.Debug(msg, ctx...)
	}
}

// Verify decides whether proofBytes is an honest Proof-of-SQL proof that
// planBytes was evaluated against tables of the given lengths, committed to
// by commitments, yielding resultBytes.
func Verify(planBytes, resultBytes, proofBytes []byte, tableLengths []uint64, commitments []curve.G1) error {
	tr := transcript.New(transcript.InitialState)
	tr.AppendBytes(planBytes)
	tr.AppendBytes(resultBytes)
	tr.AppendArray(u64sToField(tableLengths))
	appendCommitments(tr, commitments)
	tr.AppendBytes(make([]byte, 8)) // domain-separation zero u64 tag

	c := reader.New(proofBytes)

	next, rangeLength, err := reader.U64(c)
	if err != nil {
		return err
	}
	next, numChallenges, err := reader.U64(next)
	if err != nil {
		return err
	}
	next, chiLengths, err := reader.U64Array(next)
	if err != nil {
		return err
	}
	next, rhoLengths, err := reader.U64Array(next)
	if err != nil {
		return err
	}
	next, firstRoundCommitmentPairs, err := reader.PointPairArray(next)
	if err != nil {
		return err
	}
	firstRoundCommitments, err := decodePairs(firstRoundCommitmentPairs)
	if err != nil {
		return err
	}

	tr.AppendBytes(concatBytes(
		encodeU64(rangeLength),
		encodeU64(numChallenges),
		encodeU64Array(chiLengths),
		encodeU64Array(rhoLengths),
		encodePointPairs(firstRoundCommitmentPairs),
	))
	challenges := tr.DrawChallenges(int(numChallenges))

	next, numConstraints, err := reader.U64(next)
	if err != nil {
		return err
	}
	next, finalRoundCommitmentPairs, err := reader.PointPairArray(next)
	if err != nil {
		return err
	}
	finalRoundCommitments, err := decodePairs(finalRoundCommitmentPairs)
	if err != nil {
		return err
	}

	tr.AppendBytes(concatBytes(
		encodeU64(numConstraints),
		encodePointPairs(finalRoundCommitmentPairs),
	))
	constraintMultipliers := tr.DrawChallenges(int(numConstraints))

	nu := ceilLog2(maxU64(2, rangeLength))
	rowMultiplierChallenges := tr.DrawChallenges(nu)

	next, scResult, err := sumcheck.Verify(tr, next, nu)
	if err != nil {
		debug("sumcheck rejected proof", "error", err)
		return err
	}
	x := scResult.Point

	b := builder.New(scResult.ExpectedEval, scResult.Degree)
	b.SetChallenges(challenges)
	b.SetConstraintMultipliers(constraintMultipliers)

	tableChiEvals := make([]field.Element, len(tableLengths))
	for i, l := range tableLengths {
		tableChiEvals[i] = lagrange.TruncatedSum(l, x)
	}
	b.SetTableChiEvaluations(tableChiEvals)

	chiEvalsQueue := make([]field.Element, len(chiLengths))
	for i, l := range chiLengths {
		chiEvalsQueue[i] = lagrange.TruncatedSum(l, x)
	}
	b.SetChiEvaluations(chiEvalsQueue)

	rhoEvalsQueue := make([]field.Element, len(rhoLengths))
	for i, l := range rhoLengths {
		rhoEvalsQueue[i] = lagrange.TruncatedSum(l, x)
	}
	b.SetRhoEvaluations(rhoEvalsQueue)

	b.SetRowMultipliersEvaluation(lagrange.InnerProduct(rangeLength, rowMultiplierChallenges, x))

	next, firstRoundMLEs, err := reader.ScalarArray(next)
	if err != nil {
		return err
	}
	next, columnEvaluations, err := reader.ScalarArray(next)
	if err != nil {
		return err
	}
	next, finalRoundMLEs, err := reader.ScalarArray(next)
	if err != nil {
		return err
	}
	tr.AppendArray(firstRoundMLEs)
	tr.AppendArray(columnEvaluations)
	tr.AppendArray(finalRoundMLEs)

	b.SetFirstRoundMLEs(firstRoundMLEs)
	b.SetColumnEvaluations(columnEvaluations)
	b.SetFinalRoundMLEs(finalRoundMLEs)

	planCursor, err := skipPlanNamesPrefix(reader.New(planBytes))
	if err != nil {
		return err
	}
	_, outputColumnEvals, err := plan.Eval(planCursor, b)
	if err != nil {
		debug("plan evaluation rejected proof", "error", err)
		return err
	}
	if !field.IsZero(b.AggregateEvaluation()) {
		return ErrAggregateEvaluationMismatch
	}

	if err := resultset.Verify(resultBytes, outputColumnEvals, x); err != nil {
		debug("result table rejected", "error", err)
		return err
	}

	allCommitments := make([]curve.G1, 0, len(commitments)+len(firstRoundCommitments)+len(finalRoundCommitments))
	allCommitments = append(allCommitments, commitments...)
	allCommitments = append(allCommitments, firstRoundCommitments...)
	allCommitments = append(allCommitments, finalRoundCommitments...)

	allEvaluations := make([]field.Element, 0, len(columnEvaluations)+len(firstRoundMLEs)+len(finalRoundMLEs))
	allEvaluations = append(allEvaluations, columnEvaluations...)
	allEvaluations = append(allEvaluations, firstRoundMLEs...)
	allEvaluations = append(allEvaluations, finalRoundMLEs...)

	if _, err := hyperkzg.BatchVerify(tr, curve.Default, allCommitments, allEvaluations, x, next); err != nil {
		debug("PCS batch verification rejected proof", "error", err)
		return err
	}

	return nil
}

func skipPlanNamesPrefix(c reader.Cursor) (reader.Cursor, error) {
	next, numTables, err := reader.U64(c)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < numTables; i++ {
		next, _, err = reader.LengthPrefixedBytes(next)
		if err != nil {
			return c, err
		}
	}

	next, numColumns, err := reader.U64(next)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < numColumns; i++ {
		next, _, err = reader.U64(next)
		if err != nil {
			return c, err
		}
		next, _, err = reader.LengthPrefixedBytes(next)
		if err != nil {
			return c, err
		}
		next, _, err = reader.U32(next)
		if err != nil {
			return c, err
		}
	}

	next, numOutputs, err := reader.U64(next)
	if err != nil {
		return c, err
	}
	for i := uint64(0); i < numOutputs; i++ {
		next, _, err = reader.LengthPrefixedBytes(next)
		if err != nil {
			return c, err
		}
	}

	return next, nil
}

func decodePairs(pairs []reader.PointPair) ([]curve.G1, error) {
	out := make([]curve.G1, len(pairs))
	for i, p := range pairs {
		g, err := curve.G1FromWords(p.X, p.Y)
		if err != nil {
			return nil, err
		}
		out[i] = g
	}
	return out, nil
}

func appendCommitments(tr *transcript.Transcript, commitments []curve.G1) {
	var lenWord [32]byte
	binary.BigEndian.PutUint64(lenWord[24:], uint64(2*len(commitments)))

	buf := make([]byte, 0, 32+64*len(commitments))
	buf = append(buf, lenWord[:]...)
	for _, cpt := range commitments {
		x, y := cpt.Words()
		buf = append(buf, x[:]...)
		buf = append(buf, y[:]...)
	}
	tr.AppendBytes(buf)
}

func u64sToField(vs []uint64) []field.Element {
	out := make([]field.Element, len(vs))
	for i, v := range vs {
		out[i] = field.FromUint64(v)
	}
	return out
}

func encodeU64(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func encodeU64Array(vs []uint64) []byte {
	buf := encodeU64(uint64(len(vs)))
	for _, v := range vs {
		buf = append(buf, encodeU64(v)...)
	}
	return buf
}

func encodePointPairs(pairs []reader.PointPair) []byte {
	buf := encodeU64(uint64(len(pairs)))
	for _, p := range pairs {
		buf = append(buf, p.X[:]...)
		buf = append(buf, p.Y[:]...)
	}
	return buf
}

func concatBytes(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func ceilLog2(n uint64) int {
	if n <= 1 {
		return 0
	}
	bits := 0
	v := n - 1
	for v > 0 {
		bits++
		v >>= 1
	}
	return bits
}

func maxU64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

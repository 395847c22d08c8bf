// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package plan interprets proof plans (currently only the Filter variant)
// into the identity/zero-sum constraints that tie a claimed output-column
// evaluation to the input table through a random-fold multiset check.
package plan

import (
	"errors"

	"github.com/luxfi/sxt-verify/builder"
	"github.com/luxfi/sxt-verify/expr"
	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/reader"
)

// ErrUnsupportedProofPlanVariant is returned for a plan tag outside the
// implemented set.
var ErrUnsupportedProofPlanVariant = errors.New("plan: unsupported proof plan variant")

// TagFilter is the filter plan's wire tag.
const TagFilter = 0

// Eval decodes and evaluates the plan rooted at c, returning the plan's
// claimed output-column evaluations.
func Eval(c reader.Cursor, b *builder.Builder) (reader.Cursor, []field.Element, error) {
	next, tag, err := reader.U32(c)
	if err != nil {
		return c, nil, err
	}

	switch tag {
	case TagFilter:
		return evalFilter(next, b)
	default:
		return c, nil, ErrUnsupportedProofPlanVariant
	}
}

func evalFilter(c reader.Cursor, b *builder.Builder) (reader.Cursor, []field.Element, error) {
	next, tableIdx, err := reader.U64(c)
	if err != nil {
		return c, nil, err
	}
	chiIn, err := b.GetTableChiEvaluation(tableIdx)
	if err != nil {
		return c, nil, err
	}

	alpha, err := b.ConsumeChallenge()
	if err != nil {
		return c, nil, err
	}

	var selEval field.Element
	next, selEval, err = expr.Eval(next, b, chiIn)
	if err != nil {
		return c, nil, err
	}

	var outputCount uint64
	next, outputCount, err = reader.U64(next)
	if err != nil {
		return c, nil, err
	}

	beta, err := b.ConsumeChallenge()
	if err != nil {
		return c, nil, err
	}

	columnEvals := make([]field.Element, outputCount)
	for i := range columnEvals {
		var v field.Element
		next, v, err = expr.Eval(next, b, chiIn)
		if err != nil {
			return c, nil, err
		}
		columnEvals[i] = v
	}
	cFold := hornerFold(columnEvals, beta)

	outputEvals := make([]field.Element, outputCount)
	for i := range outputEvals {
		d, err := b.ConsumeFinalRoundMLE()
		if err != nil {
			return c, nil, err
		}
		outputEvals[i] = d
	}
	dFold := hornerFold(outputEvals, beta)

	cStar, err := b.ConsumeFinalRoundMLE()
	if err != nil {
		return c, nil, err
	}
	dStar, err := b.ConsumeFinalRoundMLE()
	if err != nil {
		return c, nil, err
	}

	chiOut, err := b.ConsumeChiEvaluation()
	if err != nil {
		return c, nil, err
	}

	// c* * S - d* ≡ 0
	zeroSum := field.Sub(field.Mul(cStar, selEval), dStar)
	if err := b.ProduceZeroSumConstraint(zeroSum, 2); err != nil {
		return c, nil, err
	}

	// (1 + alpha*c_fold) * c* - chi_in ≡ 0
	cIdentity := field.Sub(field.Mul(onePlusAlphaFold(alpha, cFold), cStar), chiIn)
	if err := b.ProduceIdentityConstraint(cIdentity, 2); err != nil {
		return c, nil, err
	}

	// (1 + alpha*d_fold) * d* - chi_out ≡ 0
	dIdentity := field.Sub(field.Mul(onePlusAlphaFold(alpha, dFold), dStar), chiOut)
	if err := b.ProduceIdentityConstraint(dIdentity, 2); err != nil {
		return c, nil, err
	}

	return next, outputEvals, nil
}

func onePlusAlphaFold(alpha, fold field.Element) field.Element {
	return field.Add(field.One(), field.Mul(alpha, fold))
}

// hornerFold folds [c_1,...,c_l] into Σ c_i * beta^(l-i) via Horner's
// method, matching the column-array ordering used by the input-column and
// output-column folds.
func hornerFold(values []field.Element, beta field.Element) field.Element {
	acc := field.Zero()
	for _, v := range values {
		acc = field.Add(field.Mul(acc, beta), v)
	}
	return acc
}

// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package expr recursively evaluates proof expressions (column
// references, literals, equality tests, and arithmetic over them) into
// the field scalar that represents the expression's output column MLE at
// the sumcheck point, issuing whatever constraints the variant requires
// along the way.
package expr

import (
	"errors"

	"github.com/luxfi/sxt-verify/builder"
	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/reader"
)

// ErrUnsupportedProofExprVariant is returned for an expression tag outside
// the implemented set.
var ErrUnsupportedProofExprVariant = errors.New("expr: unsupported proof expression variant")

// ErrUnsupportedLiteralVariant is returned for a literal sub-tag other than
// BigInt.
var ErrUnsupportedLiteralVariant = errors.New("expr: unsupported literal variant")

// Expression variant wire tags.
const (
	TagColumn   = 0
	TagLiteral  = 1
	TagEquals   = 2
	TagAdd      = 3
	TagSubtract = 4
	TagCast     = 5
)

// LiteralBigInt is the only implemented literal sub-tag.
const LiteralBigInt = 0

// Eval decodes and recursively evaluates one expression rooted at c. b
// supplies column evaluations and the constraint/MLE queues; chiEval is the
// indicator-column evaluation for the column length the expression operates
// over; every sub-expression in one tree shares the same chiEval.
//
// Add and Subtract operate on operands that are already chi-scaled by their
// own recursive evaluation (Column evaluations come pre-scaled from the
// builder; Literal scales explicitly by chiEval), so they combine fields
// directly rather than re-multiplying by chiEval.
func Eval(c reader.Cursor, b *builder.Builder, chiEval field.Element) (reader.Cursor, field.Element, error) {
	next, tag, err := reader.U32(c)
	if err != nil {
		return c, field.Element{}, err
	}

	switch tag {
	case TagColumn:
		var idx uint64
		next, idx, err = reader.U64(next)
		if err != nil {
			return c, field.Element{}, err
		}
		v, err := b.GetColumnEvaluation(idx)
		if err != nil {
			return c, field.Element{}, err
		}
		return next, v, nil

	case TagLiteral:
		var litTag uint32
		next, litTag, err = reader.U32(next)
		if err != nil {
			return c, field.Element{}, err
		}
		if litTag != LiteralBigInt {
			return c, field.Element{}, ErrUnsupportedLiteralVariant
		}
		var lifted field.Element
		next, lifted, err = reader.I64(next)
		if err != nil {
			return c, field.Element{}, err
		}
		return next, field.Mul(lifted, chiEval), nil

	case TagEquals:
		var lhs, rhs field.Element
		next, lhs, err = Eval(next, b, chiEval)
		if err != nil {
			return c, field.Element{}, err
		}
		next, rhs, err = Eval(next, b, chiEval)
		if err != nil {
			return c, field.Element{}, err
		}

		diff := field.Sub(lhs, rhs)
		dStar, err := b.ConsumeFinalRoundMLE()
		if err != nil {
			return c, field.Element{}, err
		}
		r, err := b.ConsumeFinalRoundMLE()
		if err != nil {
			return c, field.Element{}, err
		}

		if err := b.ProduceIdentityConstraint(field.Mul(r, diff), 2); err != nil {
			return c, field.Element{}, err
		}
		rhsTerm := field.Add(field.Mul(diff, dStar), r)
		if err := b.ProduceIdentityConstraint(field.Sub(chiEval, rhsTerm), 2); err != nil {
			return c, field.Element{}, err
		}
		return next, r, nil

	case TagAdd:
		var lhs, rhs field.Element
		next, lhs, err = Eval(next, b, chiEval)
		if err != nil {
			return c, field.Element{}, err
		}
		next, rhs, err = Eval(next, b, chiEval)
		if err != nil {
			return c, field.Element{}, err
		}
		return next, field.Add(lhs, rhs), nil

	case TagSubtract:
		var lhs, rhs field.Element
		next, lhs, err = Eval(next, b, chiEval)
		if err != nil {
			return c, field.Element{}, err
		}
		next, rhs, err = Eval(next, b, chiEval)
		if err != nil {
			return c, field.Element{}, err
		}
		return next, field.Sub(lhs, rhs), nil

	case TagCast:
		return Eval(next, b, chiEval)

	default:
		return c, field.Element{}, ErrUnsupportedProofExprVariant
	}
}

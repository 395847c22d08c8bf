// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package builder holds the mutable state threaded through plan and
// expression evaluation: the queues populated from the proof's first- and
// final-round messages, the indexed evaluation vectors, and the running
// constraint aggregate that the orchestrator checks against zero at the
// end of verification.
package builder

import (
	"errors"

	"github.com/luxfi/sxt-verify/field"
)

// ErrEmptyQueue is returned when a queue is consumed past its length.
var ErrEmptyQueue = errors.New("builder: queue is empty")

// ErrInvalidIndex is returned when an indexed vector is read out of bounds.
var ErrInvalidIndex = errors.New("builder: index out of range")

// ErrConstraintDegreeTooHigh is returned when a constraint's degree exceeds
// the sumcheck's degree bound.
var ErrConstraintDegreeTooHigh = errors.New("builder: constraint degree exceeds max_degree")

// queue is a head-first FIFO of scalars with no removal beyond Consume.
type queue struct {
	items []field.Element
	pos   int
}

func newQueue(items []field.Element) queue {
	return queue{items: items}
}

func (q *queue) consume() (field.Element, error) {
	if q.pos >= len(q.items) {
		return field.Element{}, ErrEmptyQueue
	}
	v := q.items[q.pos]
	q.pos++
	return v, nil
}

// remaining reports how many items are left unconsumed, for tests that
// check queue discipline.
func (q *queue) remaining() int {
	return len(q.items) - q.pos
}

// Builder is the central evaluation state shared by every plan/expression
// evaluator during one verification run.
type Builder struct {
	challenges            queue
	firstRoundMLEs        queue
	finalRoundMLEs        queue
	chiEvaluations        queue
	rhoEvaluations        queue
	constraintMultipliers queue

	columnEvaluations     []field.Element
	tableChiEvaluations   []field.Element

	aggregateEvaluation      field.Element
	rowMultipliersEvaluation field.Element
	maxDegree                int
}

// New constructs a Builder with aggregate_evaluation initialized to
// -expectedEval mod p, so a fully consumed plan drives it back to zero.
func New(expectedEval field.Element, maxDegree int) *Builder {
	return &Builder{
		aggregateEvaluation: field.Neg(expectedEval),
		maxDegree:           maxDegree,
	}
}

// SetChallenges installs the challenges queue.
func (b *Builder) SetChallenges(v []field.Element) { b.challenges = newQueue(v) }

// SetFirstRoundMLEs installs the first_round_mles queue.
func (b *Builder) SetFirstRoundMLEs(v []field.Element) { b.firstRoundMLEs = newQueue(v) }

// SetFinalRoundMLEs installs the final_round_mles queue.
func (b *Builder) SetFinalRoundMLEs(v []field.Element) { b.finalRoundMLEs = newQueue(v) }

// SetChiEvaluations installs the chi_evaluations queue.
func (b *Builder) SetChiEvaluations(v []field.Element) { b.chiEvaluations = newQueue(v) }

// SetRhoEvaluations installs the rho_evaluations queue.
func (b *Builder) SetRhoEvaluations(v []field.Element) { b.rhoEvaluations = newQueue(v) }

// SetConstraintMultipliers installs the constraint_multipliers queue.
func (b *Builder) SetConstraintMultipliers(v []field.Element) {
	b.constraintMultipliers = newQueue(v)
}

// SetColumnEvaluations installs the column_evaluations indexed vector.
func (b *Builder) SetColumnEvaluations(v []field.Element) { b.columnEvaluations = v }

// SetTableChiEvaluations installs the table_chi_evaluations indexed vector.
func (b *Builder) SetTableChiEvaluations(v []field.Element) { b.tableChiEvaluations = v }

// SetRowMultipliersEvaluation installs the row_multipliers_evaluation slot.
func (b *Builder) SetRowMultipliersEvaluation(v field.Element) { b.rowMultipliersEvaluation = v }

// RowMultipliersEvaluation returns the row_multipliers_evaluation slot.
func (b *Builder) RowMultipliersEvaluation() field.Element { return b.rowMultipliersEvaluation }

// AggregateEvaluation returns the current running aggregate.
func (b *Builder) AggregateEvaluation() field.Element { return b.aggregateEvaluation }

// MaxDegree returns the sumcheck degree bound.
func (b *Builder) MaxDegree() int { return b.maxDegree }

// ConsumeChallenge dequeues one challenge.
func (b *Builder) ConsumeChallenge() (field.Element, error) { return b.challenges.consume() }

// ConsumeFirstRoundMLE dequeues one first-round MLE value.
func (b *Builder) ConsumeFirstRoundMLE() (field.Element, error) { return b.firstRoundMLEs.consume() }

// ConsumeFinalRoundMLE dequeues one final-round MLE value.
func (b *Builder) ConsumeFinalRoundMLE() (field.Element, error) { return b.finalRoundMLEs.consume() }

// ConsumeChiEvaluation dequeues one chi evaluation.
func (b *Builder) ConsumeChiEvaluation() (field.Element, error) { return b.chiEvaluations.consume() }

// ConsumeRhoEvaluation dequeues one rho evaluation.
func (b *Builder) ConsumeRhoEvaluation() (field.Element, error) { return b.rhoEvaluations.consume() }

// ConsumeConstraintMultiplier dequeues one constraint multiplier.
func (b *Builder) ConsumeConstraintMultiplier() (field.Element, error) {
	return b.constraintMultipliers.consume()
}

// RemainingChallenges reports the unconsumed length of the challenges queue.
func (b *Builder) RemainingChallenges() int { return b.challenges.remaining() }

// RemainingConstraintMultipliers reports the unconsumed length of the
// constraint_multipliers queue.
func (b *Builder) RemainingConstraintMultipliers() int { return b.constraintMultipliers.remaining() }

// GetColumnEvaluation reads the column_evaluations vector at i.
func (b *Builder) GetColumnEvaluation(i uint64) (field.Element, error) {
	if i >= uint64(len(b.columnEvaluations)) {
		return field.Element{}, ErrInvalidIndex
	}
	return b.columnEvaluations[i], nil
}

// GetTableChiEvaluation reads the table_chi_evaluations vector at i.
func (b *Builder) GetTableChiEvaluation(i uint64) (field.Element, error) {
	if i >= uint64(len(b.tableChiEvaluations)) {
		return field.Element{}, ErrInvalidIndex
	}
	return b.tableChiEvaluations[i], nil
}

// ProduceIdentityConstraint folds a pointwise identity eval(i)≡0 into the
// aggregate, scaled by a fresh constraint multiplier and the shared
// row_multipliers_evaluation that reduces the "for all rows" claim to one
// scalar.
func (b *Builder) ProduceIdentityConstraint(eval field.Element, degree int) error {
	if degree+1 > b.maxDegree {
		return ErrConstraintDegreeTooHigh
	}
	mult, err := b.ConsumeConstraintMultiplier()
	if err != nil {
		return err
	}
	term := field.Mul(field.Mul(eval, mult), b.rowMultipliersEvaluation)
	b.aggregateEvaluation = field.Add(b.aggregateEvaluation, term)
	return nil
}

// ProduceZeroSumConstraint folds a zero-sum claim Σᵢ eval(i)=0 into the
// aggregate, scaled by a fresh constraint multiplier. No row multiplier is
// needed: the sumcheck already sums over rows.
func (b *Builder) ProduceZeroSumConstraint(eval field.Element, degree int) error {
	if degree > b.maxDegree {
		return ErrConstraintDegreeTooHigh
	}
	mult, err := b.ConsumeConstraintMultiplier()
	if err != nil {
		return err
	}
	term := field.Mul(eval, mult)
	b.aggregateEvaluation = field.Add(b.aggregateEvaluation, term)
	return nil
}

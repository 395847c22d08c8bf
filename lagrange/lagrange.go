// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package lagrange evaluates multilinear Lagrange basis quantities over the
// boolean hypercube: the truncated sum χ_I used to fold table/column
// lengths into a single scalar, and the full evaluation vector used to
// recompute a claimed result table's MLE evaluation.
//
// Throughout, χ_i(X) for a ν-bit index i and point X=(x_0,...,x_{ν-1}) is
// Π_j (x_j if bit_j(i)=1 else 1-x_j), with bit_0 the least-significant bit.
package lagrange

import "github.com/luxfi/sxt-verify/field"

// TruncatedSum returns Σ_{i<L} χ_i(X) in O(len(X)) time.
//
// It walks the bits of L from most to least significant, maintaining the
// running product `prefix` of the "matched" factors ℓ_j(bit_j(L)) for
// positions already visited (those above the current one). Whenever the
// current bit of L is 1, every index that agrees with L on the higher bits
// and has a 0 in this position, with arbitrary lower bits, is strictly
// less than L, and its Lagrange-basis contributions sum to prefix *
// (1-x_k) (the free lower bits sum to 1, since Σ_b ℓ_j(b)=1 for every j).
func TruncatedSum(length uint64, x []field.Element) field.Element {
	nu := len(x)
	if nu == 0 {
		if length == 0 {
			return field.Zero()
		}
		return field.One()
	}
	if length >= uint64(1)<<uint(nu) {
		return field.One()
	}

	prefix := field.One()
	sum := field.Zero()
	for k := nu - 1; k >= 0; k-- {
		xk := x[k]
		bit := (length >> uint(k)) & 1
		if bit == 1 {
			term := field.Mul(prefix, field.Sub(field.One(), xk))
			sum = field.Add(sum, term)
			prefix = field.Mul(prefix, xk)
		} else {
			prefix = field.Mul(prefix, field.Sub(field.One(), xk))
		}
	}
	return sum
}

// InnerProduct returns Σ_{i<L} χ_i(X)·χ_i(Y) in O(len(X)) time.
//
// The per-position "matched" factor is now ℓ_j^X(b)·ℓ_j^Y(b), and the
// "free lower bits" no longer sum to 1 in general; they sum to
// Π_{j<k} [(1-x_j)(1-y_j)+x_j*y_j]. That product is precomputed bottom-up
// (freeBelow) before the same high-to-low walk used by TruncatedSum.
func InnerProduct(length uint64, x, y []field.Element) field.Element {
	nu := len(x)
	if nu == 0 {
		if length == 0 {
			return field.Zero()
		}
		return field.One()
	}
	if length >= uint64(1)<<uint(nu) {
		return fullInnerProduct(x, y)
	}

	sumTerm := make([]field.Element, nu)
	freeBelow := make([]field.Element, nu)
	freeBelow[0] = field.One()
	for k := 0; k < nu; k++ {
		bothZero := field.Mul(field.Sub(field.One(), x[k]), field.Sub(field.One(), y[k]))
		bothOne := field.Mul(x[k], y[k])
		sumTerm[k] = field.Add(bothZero, bothOne)
		if k+1 < nu {
			freeBelow[k+1] = field.Mul(freeBelow[k], sumTerm[k])
		}
	}

	prefixAbove := field.One()
	sum := field.Zero()
	for k := nu - 1; k >= 0; k-- {
		bit := (length >> uint(k)) & 1
		matchZero := field.Mul(field.Sub(field.One(), x[k]), field.Sub(field.One(), y[k]))
		if bit == 1 {
			term := field.Mul(field.Mul(prefixAbove, matchZero), freeBelow[k])
			sum = field.Add(sum, term)
			prefixAbove = field.Mul(prefixAbove, field.Mul(x[k], y[k]))
		} else {
			prefixAbove = field.Mul(prefixAbove, matchZero)
		}
	}
	return sum
}

func fullInnerProduct(x, y []field.Element) field.Element {
	r := field.One()
	for j := range x {
		bothZero := field.Mul(field.Sub(field.One(), x[j]), field.Sub(field.One(), y[j]))
		bothOne := field.Mul(x[j], y[j])
		r = field.Mul(r, field.Add(bothZero, bothOne))
	}
	return r
}

// EvaluationVec returns the L-entry vector [e_0,...,e_{L-1}] of Lagrange
// coefficients at X, via the standard doubling expansion: starting from the
// single coefficient 1, each variable x_j doubles the vector, scaling the
// low half by (1-x_j) and the high half by x_j. Once the vector already
// covers L entries, remaining variables only ever multiply those entries by
// their (1-x_j) factor (every surviving index has a 0 bit there), so the
// doubling stops and a flat scale continues instead.
func EvaluationVec(length uint64, x []field.Element) []field.Element {
	vec := make([]field.Element, 1, nextPow2(length))
	vec[0] = field.One()

	for _, xj := range x {
		oneMinusXj := field.Sub(field.One(), xj)

		if uint64(len(vec)) >= length {
			for i := range vec {
				vec[i] = field.Mul(vec[i], oneMinusXj)
			}
			continue
		}

		next := make([]field.Element, 0, 2*len(vec))
		for _, e := range vec {
			next = append(next, field.Mul(e, oneMinusXj))
		}
		for _, e := range vec {
			next = append(next, field.Mul(e, xj))
		}
		vec = next
	}

	if uint64(len(vec)) > length {
		vec = vec[:length]
	}
	return vec
}

func nextPow2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

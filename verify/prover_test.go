// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package verify

// This file is a test-only honest prover. It exists so the round-trip
// tests in verify_test.go can assert acceptance of honestly generated
// proofs and precise rejection of tampered ones, without depending on an
// external proving system. It exploits curve.TauScalar, the deterministic
// test trusted-setup secret, to compute KZG commitments and witnesses
// directly as scalar multiples of the generator.
//
// The prover mirrors Verify's transcript operations step for step; any
// drift between the two shows up immediately as a rejected honest proof.

import (
	"encoding/binary"

	"github.com/luxfi/sxt-verify/curve"
	"github.com/luxfi/sxt-verify/field"
	"github.com/luxfi/sxt-verify/lagrange"
	"github.com/luxfi/sxt-verify/reader"
	"github.com/luxfi/sxt-verify/transcript"
)

// ---- wire builders ----

func encodeU32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func encodeI64(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func encodeName(s string) []byte {
	return append(encodeU64(uint64(len(s))), []byte(s)...)
}

func encodeScalarArray(vs []field.Element) []byte {
	buf := encodeU64(uint64(len(vs)))
	for _, v := range vs {
		w := field.ToBytes32(v)
		buf = append(buf, w[:]...)
	}
	return buf
}

func encodeG1Array(points []curve.G1) []byte {
	buf := encodeU64(uint64(len(points)))
	for _, p := range points {
		x, y := p.Words()
		buf = append(buf, x[:]...)
		buf = append(buf, y[:]...)
	}
	return buf
}

func flattenPoints(points []curve.G1) []byte {
	buf := make([]byte, 0, 64*len(points))
	for _, p := range points {
		x, y := p.Words()
		buf = append(buf, x[:]...)
		buf = append(buf, y[:]...)
	}
	return buf
}

func exprColumn(idx uint64) []byte {
	return append(encodeU32(0), encodeU64(idx)...)
}

func exprLiteralBigInt(v int64) []byte {
	out := encodeU32(1)
	out = append(out, encodeU32(0)...)
	return append(out, encodeI64(v)...)
}

func exprEquals(lhs, rhs []byte) []byte {
	out := encodeU32(2)
	out = append(out, lhs...)
	return append(out, rhs...)
}

func exprAdd(lhs, rhs []byte) []byte {
	out := encodeU32(3)
	out = append(out, lhs...)
	return append(out, rhs...)
}

type planColumn struct {
	table uint64
	name  string
	typ   uint32
}

// buildFilterPlan assembles plan bytes: the names prefix the verifier
// skips, then the filter body.
func buildFilterPlan(tableName string, columns []planColumn, outputs []string, tableIdx uint64, selection []byte, outputExprs [][]byte) []byte {
	var buf []byte
	buf = append(buf, encodeU64(1)...)
	buf = append(buf, encodeName(tableName)...)

	buf = append(buf, encodeU64(uint64(len(columns)))...)
	for _, c := range columns {
		buf = append(buf, encodeU64(c.table)...)
		buf = append(buf, encodeName(c.name)...)
		buf = append(buf, encodeU32(c.typ)...)
	}

	buf = append(buf, encodeU64(uint64(len(outputs)))...)
	for _, o := range outputs {
		buf = append(buf, encodeName(o)...)
	}

	buf = append(buf, encodeU32(0)...)
	buf = append(buf, encodeU64(tableIdx)...)
	buf = append(buf, selection...)
	buf = append(buf, encodeU64(uint64(len(outputExprs)))...)
	for _, e := range outputExprs {
		buf = append(buf, e...)
	}
	return buf
}

// buildResult assembles result-table bytes for BigInt columns.
func buildResult(names []string, columns [][]int64) []byte {
	buf := encodeU64(uint64(len(columns)))
	for i, col := range columns {
		buf = append(buf, encodeName(names[i])...)
		buf = append(buf, 0)
		buf = append(buf, encodeU32(0)...)
		buf = append(buf, encodeU64(uint64(len(col)))...)
		for _, v := range col {
			buf = append(buf, encodeI64(v)...)
		}
	}
	return buf
}

// ---- polynomial helpers ----
//
// A "table" is a column's evaluations over the full 2^nu hypercube, which
// doubles as the coefficient vector of the univariate polynomial HyperKZG
// commits to. Index bit 0 corresponds to the first sumcheck variable.

func liftColumn(rows []int64, n int) []field.Element {
	out := make([]field.Element, n)
	for i, v := range rows {
		out[i] = field.LiftSigned(v)
	}
	return out
}

func indicatorColumn(length uint64, n int) []field.Element {
	out := make([]field.Element, n)
	for i := uint64(0); i < length && i < uint64(n); i++ {
		out[i] = field.One()
	}
	return out
}

func evalUnivariate(coeffs []field.Element, x field.Element) field.Element {
	acc := field.Zero()
	for k := len(coeffs) - 1; k >= 0; k-- {
		acc = field.Add(field.Mul(acc, x), coeffs[k])
	}
	return acc
}

func commitTable(table []field.Element) curve.G1 {
	return curve.ScalarMul(curve.G1Generator, evalUnivariate(table, curve.TauScalar))
}

// foldTable partially evaluates the first remaining variable at x:
// out[j] = (1-x)*t[2j] + x*t[2j+1].
func foldTable(t []field.Element, x field.Element) []field.Element {
	half := len(t) / 2
	out := make([]field.Element, half)
	oneMinusX := field.Sub(field.One(), x)
	for j := 0; j < half; j++ {
		out[j] = field.Add(field.Mul(oneMinusX, t[2*j]), field.Mul(x, t[2*j+1]))
	}
	return out
}

func invert(e field.Element) field.Element {
	var inv field.Element
	inv.Inverse(&e)
	return inv
}

// ---- row-level plan interpreter ----
//
// proverState mirrors plan.Eval and expr.Eval, but over whole witness
// columns instead of single MLE evaluations. It records the final-round
// witness tables in the order the verifier will consume their claimed
// evaluations, and every constraint as a sum of products of tables.

type term struct {
	coef   field.Element
	tables []int
}

type constraintSpec struct {
	terms    []term
	identity bool
}

type proverState struct {
	n          int
	tables     [][]field.Element
	challenges []field.Element
	chPos      int
	finalRound []int
	chiLengths []uint64

	constraints []constraintSpec
}

func (ps *proverState) addTable(t []field.Element) int {
	ps.tables = append(ps.tables, t)
	return len(ps.tables) - 1
}

func (ps *proverState) nextChallenge() field.Element {
	c := ps.challenges[ps.chPos]
	ps.chPos++
	return c
}

func (ps *proverState) rowwise(a, b int, f func(x, y field.Element) field.Element) int {
	out := make([]field.Element, ps.n)
	for i := range out {
		out[i] = f(ps.tables[a][i], ps.tables[b][i])
	}
	return ps.addTable(out)
}

// evalExpr walks the same expression bytes expr.Eval will, producing the
// chi-scaled witness column for each node.
func (ps *proverState) evalExpr(c reader.Cursor, chi int) (reader.Cursor, int, error) {
	next, tag, err := reader.U32(c)
	if err != nil {
		return c, 0, err
	}

	switch tag {
	case 0: // column
		var idx uint64
		next, idx, err = reader.U64(next)
		if err != nil {
			return c, 0, err
		}
		return next, int(idx), nil

	case 1: // literal (BigInt)
		next, _, err = reader.U32(next)
		if err != nil {
			return c, 0, err
		}
		var lifted field.Element
		next, lifted, err = reader.I64(next)
		if err != nil {
			return c, 0, err
		}
		out := make([]field.Element, ps.n)
		for i := range out {
			out[i] = field.Mul(lifted, ps.tables[chi][i])
		}
		return next, ps.addTable(out), nil

	case 2: // equals
		var lhs, rhs int
		next, lhs, err = ps.evalExpr(next, chi)
		if err != nil {
			return c, 0, err
		}
		next, rhs, err = ps.evalExpr(next, chi)
		if err != nil {
			return c, 0, err
		}

		diff := ps.rowwise(lhs, rhs, field.Sub)

		rCol := make([]field.Element, ps.n)
		dStarCol := make([]field.Element, ps.n)
		for i := 0; i < ps.n; i++ {
			if field.IsZero(ps.tables[diff][i]) {
				rCol[i] = ps.tables[chi][i]
			} else {
				dStarCol[i] = invert(ps.tables[diff][i])
			}
		}
		r := ps.addTable(rCol)
		dStar := ps.addTable(dStarCol)
		ps.finalRound = append(ps.finalRound, dStar, r)

		ps.constraints = append(ps.constraints,
			constraintSpec{
				terms:    []term{{coef: field.One(), tables: []int{r, diff}}},
				identity: true,
			},
			constraintSpec{
				terms: []term{
					{coef: field.One(), tables: []int{chi}},
					{coef: field.Neg(field.One()), tables: []int{diff, dStar}},
					{coef: field.Neg(field.One()), tables: []int{r}},
				},
				identity: true,
			},
		)
		return next, r, nil

	case 3: // add
		var lhs, rhs int
		next, lhs, err = ps.evalExpr(next, chi)
		if err != nil {
			return c, 0, err
		}
		next, rhs, err = ps.evalExpr(next, chi)
		if err != nil {
			return c, 0, err
		}
		return next, ps.rowwise(lhs, rhs, field.Add), nil

	case 4: // subtract
		var lhs, rhs int
		next, lhs, err = ps.evalExpr(next, chi)
		if err != nil {
			return c, 0, err
		}
		next, rhs, err = ps.evalExpr(next, chi)
		if err != nil {
			return c, 0, err
		}
		return next, ps.rowwise(lhs, rhs, field.Sub), nil

	case 5: // cast
		return ps.evalExpr(next, chi)
	}
	panic("prover: unsupported expression tag")
}

func (ps *proverState) hornerFoldTables(cols []int, beta field.Element) int {
	out := make([]field.Element, ps.n)
	for _, col := range cols {
		for i := range out {
			out[i] = field.Add(field.Mul(out[i], beta), ps.tables[col][i])
		}
	}
	return ps.addTable(out)
}

// evalFilter mirrors plan.evalFilter's consumption order exactly.
func (ps *proverState) evalFilter(planBody reader.Cursor, tableLengths []uint64) error {
	next, tag, err := reader.U32(planBody)
	if err != nil {
		return err
	}
	if tag != 0 {
		panic("prover: unsupported plan tag")
	}

	next, tableIdx, err := reader.U64(next)
	if err != nil {
		return err
	}
	chiIn := ps.addTable(indicatorColumn(tableLengths[tableIdx], ps.n))

	alpha := ps.nextChallenge()

	next, sel, err := ps.evalExpr(next, chiIn)
	if err != nil {
		return err
	}

	next, outputCount, err := reader.U64(next)
	if err != nil {
		return err
	}

	beta := ps.nextChallenge()

	inputCols := make([]int, outputCount)
	for i := range inputCols {
		next, inputCols[i], err = ps.evalExpr(next, chiIn)
		if err != nil {
			return err
		}
	}
	cFold := ps.hornerFoldTables(inputCols, beta)

	// Compact the selected rows to the front of each output column.
	var selected []int
	for i := 0; i < ps.n; i++ {
		if field.Equal(ps.tables[sel][i], field.One()) {
			selected = append(selected, i)
		}
	}
	m := uint64(len(selected))

	outputCols := make([]int, outputCount)
	for i := range outputCols {
		out := make([]field.Element, ps.n)
		for j, row := range selected {
			out[j] = ps.tables[inputCols[i]][row]
		}
		outputCols[i] = ps.addTable(out)
	}
	ps.finalRound = append(ps.finalRound, outputCols...)
	dFold := ps.hornerFoldTables(outputCols, beta)

	chiOut := ps.addTable(indicatorColumn(m, ps.n))
	ps.chiLengths = append(ps.chiLengths, m)

	cStarCol := make([]field.Element, ps.n)
	dStarCol := make([]field.Element, ps.n)
	for i := 0; i < ps.n; i++ {
		cDenom := field.Add(field.One(), field.Mul(alpha, ps.tables[cFold][i]))
		cStarCol[i] = field.Mul(ps.tables[chiIn][i], invert(cDenom))
		dDenom := field.Add(field.One(), field.Mul(alpha, ps.tables[dFold][i]))
		dStarCol[i] = field.Mul(ps.tables[chiOut][i], invert(dDenom))
	}
	cStar := ps.addTable(cStarCol)
	dStar := ps.addTable(dStarCol)
	ps.finalRound = append(ps.finalRound, cStar, dStar)

	ps.constraints = append(ps.constraints,
		constraintSpec{
			terms: []term{
				{coef: field.One(), tables: []int{cStar, sel}},
				{coef: field.Neg(field.One()), tables: []int{dStar}},
			},
		},
		constraintSpec{
			terms: []term{
				{coef: field.One(), tables: []int{cStar}},
				{coef: alpha, tables: []int{cFold, cStar}},
				{coef: field.Neg(field.One()), tables: []int{chiIn}},
			},
			identity: true,
		},
		constraintSpec{
			terms: []term{
				{coef: field.One(), tables: []int{dStar}},
				{coef: alpha, tables: []int{dFold, dStar}},
				{coef: field.Neg(field.One()), tables: []int{chiOut}},
			},
			identity: true,
		},
	)
	_ = next
	return nil
}

// ---- sumcheck prover ----

// sumcheckDegree is the per-round polynomial degree: constraint products of
// two multilinears times the row-multiplier multilinear.
const sumcheckDegree = 3

// interpolateCubic recovers leading-first coefficients of the cubic through
// (0,s0)..(3,s3) via Newton's forward differences.
func interpolateCubic(s [4]field.Element) [4]field.Element {
	d1 := field.Sub(s[1], s[0])
	d2 := field.Sub(s[2], s[1])
	d3 := field.Sub(s[3], s[2])
	dd1 := field.Sub(d2, d1)
	dd2 := field.Sub(d3, d2)
	ddd := field.Sub(dd2, dd1)

	inv2 := invert(field.FromUint64(2))
	inv3 := invert(field.FromUint64(3))
	inv6 := field.Mul(inv2, inv3)

	a := field.Mul(ddd, inv6)
	b := field.Sub(field.Mul(dd1, inv2), field.Mul(ddd, inv2))
	c := field.Add(field.Sub(d1, field.Mul(dd1, inv2)), field.Mul(ddd, inv3))
	return [4]field.Element{a, b, c, s[0]}
}

// proveSumcheck produces the wire-format sumcheck proof for
// f = sum over terms of coef * prod(tables), folding tables in place so
// that afterwards each table holds its MLE evaluation at the drawn point.
func proveSumcheck(tr *transcript.Transcript, terms []term, tables [][]field.Element, nu int) ([]byte, []field.Element) {
	body := encodeU64(uint64((sumcheckDegree + 1) * nu))
	point := make([]field.Element, nu)

	for r := 0; r < nu; r++ {
		half := len(tables[0]) / 2

		var samples [4]field.Element
		for t := 0; t <= sumcheckDegree; t++ {
			tF := field.FromUint64(uint64(t))
			oneMinusT := field.Sub(field.One(), tF)
			sum := field.Zero()
			for j := 0; j < half; j++ {
				for _, tm := range terms {
					prod := tm.coef
					for _, tbl := range tm.tables {
						v := field.Add(field.Mul(oneMinusT, tables[tbl][2*j]), field.Mul(tF, tables[tbl][2*j+1]))
						prod = field.Mul(prod, v)
					}
					sum = field.Add(sum, prod)
				}
			}
			samples[t] = sum
		}

		coeffs := interpolateCubic(samples)
		var roundBytes []byte
		for _, cf := range coeffs {
			w := field.ToBytes32(cf)
			roundBytes = append(roundBytes, w[:]...)
		}
		body = append(body, roundBytes...)

		tr.AppendBytes(roundBytes)
		x := tr.DrawChallenge()
		point[r] = x

		for i := range tables {
			tables[i] = foldTable(tables[i], x)
		}
	}

	return body, point
}

// ---- HyperKZG prover ----

// proveHyperKZG mirrors hyperkzg.BatchVerify's transcript schedule and
// produces the opening proof for the gamma-combined polynomial. polys must
// commit (honestly) to the listed evaluation claims; commitments is
// whatever the verifier will be handed, honest or not.
func proveHyperKZG(tr *transcript.Transcript, commitments []curve.G1, evaluations []field.Element, polys [][]field.Element, point []field.Element) []byte {
	l := len(point)

	tr.AppendBytes(flattenPoints(commitments))
	tr.AppendArray(evaluations)
	gamma := tr.DrawChallenge()

	combined := make([]field.Element, len(polys[0]))
	gammaPow := field.One()
	for _, poly := range polys {
		for k := range poly {
			combined[k] = field.Add(combined[k], field.Mul(gammaPow, poly[k]))
		}
		gammaPow = field.Mul(gammaPow, gamma)
	}

	folds := make([][]field.Element, l+1)
	folds[0] = combined
	for i := 0; i < l; i++ {
		folds[i+1] = foldTable(folds[i], point[i])
	}

	com := make([]curve.G1, l-1)
	for i := range com {
		com[i] = commitTable(folds[i+1])
	}

	tr.AppendBytes(flattenPoints(com))
	r := tr.DrawChallenge()
	negR := field.Neg(r)
	rSquared := field.Mul(r, r)

	v := make([][3]field.Element, l)
	flatV := make([]field.Element, 0, 3*l)
	for i := 0; i < l; i++ {
		v[i][0] = evalUnivariate(folds[i], r)
		v[i][1] = evalUnivariate(folds[i], negR)
		v[i][2] = evalUnivariate(folds[i], rSquared)
		flatV = append(flatV, v[i][0], v[i][1], v[i][2])
	}
	tr.AppendArray(flatV)
	q := tr.DrawChallenge()

	batched := make([]field.Element, len(combined))
	qPow := field.One()
	for i := 0; i < l; i++ {
		for k := range folds[i] {
			batched[k] = field.Add(batched[k], field.Mul(qPow, folds[i][k]))
		}
		qPow = field.Mul(qPow, q)
	}

	bAtTau := evalUnivariate(batched, curve.TauScalar)
	var w [3]curve.G1
	for j, z := range []field.Element{r, negR, rSquared} {
		witness := field.Mul(
			field.Sub(bAtTau, evalUnivariate(batched, z)),
			invert(field.Sub(curve.TauScalar, z)),
		)
		w[j] = curve.ScalarMul(curve.G1Generator, witness)
	}

	tr.AppendBytes(flattenPoints(w[:]))
	tr.DrawChallenge()

	var buf []byte
	buf = append(buf, flattenPoints(com)...)
	for i := 0; i < l; i++ {
		for j := 0; j < 3; j++ {
			word := field.ToBytes32(v[i][j])
			buf = append(buf, word[:]...)
		}
	}
	buf = append(buf, flattenPoints(w[:])...)
	return buf
}

// ---- top-level prover ----

type fixture struct {
	columns     [][]int64
	tableLength uint64
	planBytes   []byte
	resultBytes []byte

	// tamperCommitment, if non-nil, replaces the committed column at that
	// index with a point unrelated to its data while keeping the rest of
	// the proving run consistent with the transcript.
	tamperCommitment *int
}

type provenQuery struct {
	planBytes    []byte
	resultBytes  []byte
	proofBytes   []byte
	tableLengths []uint64
	commitments  []curve.G1

	// sumcheckOffset is the byte offset of the sumcheck section inside
	// proofBytes, for tests that mutate specific proof regions.
	sumcheckOffset int
}

// prove runs the full honest prover for a single-table filter fixture.
func prove(fx fixture) provenQuery {
	nu := ceilLog2(maxU64(2, fx.tableLength))
	n := 1 << nu
	tableLengths := []uint64{fx.tableLength}

	columnTables := make([][]field.Element, len(fx.columns))
	commitments := make([]curve.G1, len(fx.columns))
	for i, col := range fx.columns {
		columnTables[i] = liftColumn(col, n)
		commitments[i] = commitTable(columnTables[i])
	}
	if fx.tamperCommitment != nil {
		i := *fx.tamperCommitment
		commitments[i] = curve.Add(commitments[i], curve.G1Generator)
	}

	planCursor, err := skipPlanNamesPrefix(reader.New(fx.planBytes))
	if err != nil {
		panic(err)
	}

	// Dry run with zero challenges to learn the challenge count and the
	// output length before the first-round message is fixed.
	dry := &proverState{n: n, challenges: make([]field.Element, 16)}
	dry.tables = append(dry.tables, columnTables...)
	if err := dry.evalFilter(planCursor, tableLengths); err != nil {
		panic(err)
	}
	numChallenges := uint64(dry.chPos)
	chiLengths := dry.chiLengths

	firstRoundMsg := concatBytes(
		encodeU64(fx.tableLength),
		encodeU64(numChallenges),
		encodeU64Array(chiLengths),
		encodeU64Array(nil),
		encodeG1Array(nil),
	)

	tr := transcript.New(transcript.InitialState)
	tr.AppendBytes(fx.planBytes)
	tr.AppendBytes(fx.resultBytes)
	tr.AppendArray(u64sToField(tableLengths))
	appendCommitments(tr, commitments)
	tr.AppendBytes(make([]byte, 8))

	tr.AppendBytes(firstRoundMsg)
	challenges := tr.DrawChallenges(int(numChallenges))

	ps := &proverState{n: n, challenges: challenges}
	ps.tables = append(ps.tables, columnTables...)
	if err := ps.evalFilter(planCursor, tableLengths); err != nil {
		panic(err)
	}

	finalCommitments := make([]curve.G1, len(ps.finalRound))
	finalPolys := make([][]field.Element, len(ps.finalRound))
	for i, tbl := range ps.finalRound {
		finalPolys[i] = ps.tables[tbl]
		finalCommitments[i] = commitTable(ps.tables[tbl])
	}

	numConstraints := uint64(len(ps.constraints))
	finalRoundMsg := concatBytes(
		encodeU64(numConstraints),
		encodeG1Array(finalCommitments),
	)
	tr.AppendBytes(finalRoundMsg)
	multipliers := tr.DrawChallenges(int(numConstraints))
	rowChallenges := tr.DrawChallenges(nu)

	rho := make([]field.Element, n)
	copy(rho, lagrange.EvaluationVec(fx.tableLength, rowChallenges))
	rhoIdx := ps.addTable(rho)

	var terms []term
	for k, spec := range ps.constraints {
		for _, tm := range spec.terms {
			scaled := term{coef: field.Mul(multipliers[k], tm.coef)}
			scaled.tables = append(scaled.tables, tm.tables...)
			if spec.identity {
				scaled.tables = append(scaled.tables, rhoIdx)
			}
			terms = append(terms, scaled)
		}
	}

	sumcheckBytes, point := proveSumcheck(tr, terms, ps.tables, nu)

	columnEvaluations := make([]field.Element, len(columnTables))
	for i := range columnTables {
		columnEvaluations[i] = ps.tables[i][0]
	}
	finalRoundMLEs := make([]field.Element, len(ps.finalRound))
	for i, tbl := range ps.finalRound {
		finalRoundMLEs[i] = ps.tables[tbl][0]
	}
	var firstRoundMLEs []field.Element

	tr.AppendArray(firstRoundMLEs)
	tr.AppendArray(columnEvaluations)
	tr.AppendArray(finalRoundMLEs)

	allCommitments := append(append([]curve.G1{}, commitments...), finalCommitments...)
	allEvaluations := append(append([]field.Element{}, columnEvaluations...), finalRoundMLEs...)
	allPolys := append(append([][]field.Element{}, columnTables...), finalPolys...)

	kzgBytes := proveHyperKZG(tr, allCommitments, allEvaluations, allPolys, point)

	proofBytes := concatBytes(
		firstRoundMsg,
		finalRoundMsg,
		sumcheckBytes,
		encodeScalarArray(firstRoundMLEs),
		encodeScalarArray(columnEvaluations),
		encodeScalarArray(finalRoundMLEs),
		kzgBytes,
	)

	return provenQuery{
		planBytes:      fx.planBytes,
		resultBytes:    fx.resultBytes,
		proofBytes:     proofBytes,
		tableLengths:   tableLengths,
		commitments:    commitments,
		sumcheckOffset: len(firstRoundMsg) + len(finalRoundMsg),
	}
}

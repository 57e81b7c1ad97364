package emit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/config"
	"github.com/feyeleanor/relcore/expr"
	"github.com/feyeleanor/relcore/resolve"
)

func tok(off, length int) expr.Token { return expr.Token{Offset: off, Length: length} }

func newTestEmitter(source string) (*Emitter, *expr.Tree) {
	tr := expr.NewTree(nil, source)
	reg := resolve.NewFuncRegistry()
	ctx := arena.NewCtx(nil)
	e := NewEmitter(tr, reg, ctx, config.Default())
	return e, tr
}

// TestBetweenLowering is spec §8 scenario G: the emitted opcode
// sequence for "x BETWEEN 2 AND 4" must be
// Column, Dup, Integer 2, Ge, Pull 1, Integer 4, Le, And.
func TestBetweenLowering(t *testing.T) {
	assert := assert.New(t)

	e, tr := newTestEmitter("x BETWEEN 2 AND 4")
	col := tr.NewLeaf(expr.OpColumn, tok(0, 1))
	tr.Node(col).TableCursor = 0
	tr.Node(col).ColumnIndex = 0

	lower := tr.NewLeaf(expr.OpInteger, tok(10, 1))
	upper := tr.NewLeaf(expr.OpInteger, tok(16, 1))
	list := expr.List{}
	list.Append(expr.ArgItem{Expr: lower})
	list.Append(expr.ArgItem{Expr: upper})

	between := tr.NewBinary(expr.OpBetween, col, expr.NoRef, expr.Token{})
	tr.Node(between).Args = list
	tr.Node(between).HasArgs = true

	e.EmitValue(between)

	got := make([]Opcode, len(e.Program.Ops))
	for i, op := range e.Program.Ops {
		got[i] = op.Code
	}
	assert.Equal([]Opcode{Column, Dup, Integer, Ge, Pull, Integer, Le, And}, got)
	assert.Equal(2, e.Program.Ops[2].P1)
	assert.Equal(4, e.Program.Ops[5].P1)
	assert.Equal(1, e.Program.Ops[4].P1)
}

// TestComparisonOpcodeOffsetIdentity is spec §8 property 5.
func TestComparisonOpcodeOffsetIdentity(t *testing.T) {
	assert := assert.New(t)

	pairs := map[Opcode]Opcode{
		Eq: EqText, Ne: NeText, Lt: LtText, Le: LeText, Gt: GtText, Ge: GeText,
	}
	for numeric, text := range pairs {
		assert.Equal(text, numeric.TextVariant())
		assert.Equal(Opcode(6), text-numeric)
	}
}

// TestComparisonAffinityBias checks the text-variant is only picked
// when FileFormat >= 4 and the comparison's affinity is text (spec
// §4.3).
func TestComparisonAffinityBias(t *testing.T) {
	assert := assert.New(t)

	e, tr := newTestEmitter("a=b")
	a := tr.NewLeaf(expr.OpColumn, tok(0, 1))
	b := tr.NewLeaf(expr.OpColumn, tok(2, 1))
	eqNode := tr.NewBinary(expr.OpEq, a, b, expr.Token{})
	tr.Node(eqNode).Affinity = expr.AffinityText

	e.EmitValue(eqNode)
	last := e.Program.Ops[len(e.Program.Ops)-1]
	assert.Equal(EqText, last.Code)
}

// TestShortCircuitAnd is spec §8 property 3: the branch emitter for
// "A AND B" never unconditionally evaluates B.
func TestShortCircuitAnd(t *testing.T) {
	assert := assert.New(t)

	e, tr := newTestEmitter("a AND b")
	a := tr.NewLeaf(expr.OpColumn, tok(0, 1))
	b := tr.NewLeaf(expr.OpColumn, tok(6, 1))
	andNode := tr.NewBinary(expr.OpAnd, a, b, expr.Token{})

	target := e.Program.MakeLabel()
	e.EmitBranchTrue(andNode, target, false)
	e.Program.ResolveLabel(target)

	// The program must contain a conditional branch on "a" that can
	// skip evaluating "b" entirely (a jump whose target is past a's
	// test and before b's evaluation), not an unconditional sequence
	// that always touches both columns before any branch exists.
	sawBranchBeforeSecondColumn := false
	columnsSeen := 0
	for _, op := range e.Program.Ops {
		if op.Code == Column {
			columnsSeen++
			if columnsSeen == 1 {
				continue
			}
		}
		if (op.Code == If || op.Code == IfNot) && columnsSeen == 1 {
			sawBranchBeforeSecondColumn = true
		}
	}
	assert.True(sawBranchBeforeSecondColumn, "A's branch must be emitted before B is evaluated")
}

func TestFoldUnaryMinusOnLiteral(t *testing.T) {
	assert := assert.New(t)

	e, tr := newTestEmitter("-5")
	five := tr.NewLeaf(expr.OpInteger, tok(1, 1))
	neg := tr.NewBinary(expr.OpUnaryMinus, five, expr.NoRef, expr.Token{})

	e.EmitValue(neg)
	assert.Equal(1, len(e.Program.Ops))
	assert.Equal(Integer, e.Program.Ops[0].Code)
	assert.Equal(-5, e.Program.Ops[0].P1)
}

func TestFoldDoubleUnaryMinus(t *testing.T) {
	assert := assert.New(t)

	e, tr := newTestEmitter("- -5")
	five := tr.NewLeaf(expr.OpInteger, tok(3, 1))
	inner := tr.NewBinary(expr.OpUnaryMinus, five, expr.NoRef, expr.Token{})
	outer := tr.NewBinary(expr.OpUnaryMinus, inner, expr.NoRef, expr.Token{})

	e.EmitValue(outer)
	assert.Equal(1, len(e.Program.Ops))
	assert.Equal(Integer, e.Program.Ops[0].Code)
	assert.Equal(5, e.Program.Ops[0].P1)
}

func TestEmitListWithAffinities(t *testing.T) {
	assert := assert.New(t)

	e, tr := newTestEmitter("a, 1")
	a := tr.NewLeaf(expr.OpColumn, tok(0, 1))
	tr.Node(a).Affinity = expr.AffinityText
	one := tr.NewLeaf(expr.OpInteger, tok(3, 1))

	list := &expr.List{}
	list.Append(expr.ArgItem{Expr: a})
	list.Append(expr.ArgItem{Expr: one})

	n := e.EmitList(list, true)
	assert.Equal(4, n)
	assert.Equal(String, e.Program.Ops[1].Code)
	assert.Equal("text", e.Program.Ops[1].P3)
}

func TestProgramLabelResolution(t *testing.T) {
	assert := assert.New(t)

	p := NewProgram()
	lbl := p.MakeLabel()
	p.AddOp2(Goto, 0, lbl)
	p.AddOp0(Null)
	p.ResolveLabel(lbl)
	target := p.CurrentAddr()
	p.Seal()

	assert.Equal(target, p.Ops[0].P2)
}

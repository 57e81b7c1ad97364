package emit

import "github.com/feyeleanor/relcore/expr"

// EmitBranchTrue evaluates ref as boolean and jumps to target if it
// is true (or, when jumpIfNull is set, also if it is NULL); otherwise
// falls through (spec §4.3/§6 "Branch" / "emit-branch-true").
func (e *Emitter) EmitBranchTrue(ref expr.Ref, target int, jumpIfNull bool) {
	e.emitBranch(ref, target, jumpIfNull, true)
}

// EmitBranchFalse is EmitBranchTrue's mirror image (spec §6
// "emit-branch-false").
func (e *Emitter) EmitBranchFalse(ref expr.Ref, target int, jumpIfNull bool) {
	e.emitBranch(ref, target, jumpIfNull, false)
}

func (e *Emitter) emitBranch(ref expr.Ref, target int, jumpIfNull, wantTrue bool) {
	if e.stopped() {
		return
	}
	n := e.Tree.Node(ref)
	if n == nil {
		return
	}

	switch n.Op {
	case expr.OpAnd:
		e.emitAndBranch(n, target, jumpIfNull, wantTrue)
		return
	case expr.OpOr:
		e.emitOrBranch(n, target, jumpIfNull, wantTrue)
		return
	case expr.OpNot:
		// IfTrue(NOT A) == IfFalse(A); IfFalse(NOT A) == IfTrue(A).
		// The null-jump flag itself is unaffected — NOT NULL is
		// still NULL (spec §4.3 "flipping the null-jump flag through
		// NOT boundaries" governs the branch direction, not the
		// flag's value).
		e.emitBranch(n.Left, target, jumpIfNull, !wantTrue)
		return
	case expr.OpEq, expr.OpNe, expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
		e.emitComparisonBranch(n, target, jumpIfNull, wantTrue)
		return
	case expr.OpIsNull:
		e.emitNullTestBranch(n, target, wantTrue, true)
		return
	case expr.OpNotNull:
		e.emitNullTestBranch(n, target, wantTrue, false)
		return
	}

	// Generic fallback: emit the value form then If/IfNot with the
	// given target (spec §4.3).
	e.EmitValue(ref)
	if wantTrue {
		e.Program.AddOp2(If, 0, target)
	} else {
		e.Program.AddOp2(IfNot, 0, target)
	}
}

// emitAndBranch implements short-circuit AND (spec §8.3): IfTrue(A
// AND B) never evaluates B unless A already came out true; IfFalse
// mirrors it with no intermediate label needed since either operand
// failing is already sufficient.
func (e *Emitter) emitAndBranch(n *expr.Node, target int, jumpIfNull, wantTrue bool) {
	if wantTrue {
		skip := e.Program.MakeLabel()
		e.emitBranch(n.Left, skip, !jumpIfNull, false)
		e.emitBranch(n.Right, target, jumpIfNull, true)
		e.Program.ResolveLabel(skip)
	} else {
		e.emitBranch(n.Left, target, jumpIfNull, false)
		e.emitBranch(n.Right, target, jumpIfNull, false)
	}
}

// emitOrBranch implements short-circuit OR, the dual of emitAndBranch.
func (e *Emitter) emitOrBranch(n *expr.Node, target int, jumpIfNull, wantTrue bool) {
	if wantTrue {
		e.emitBranch(n.Left, target, jumpIfNull, true)
		e.emitBranch(n.Right, target, jumpIfNull, true)
	} else {
		skip := e.Program.MakeLabel()
		e.emitBranch(n.Left, skip, !jumpIfNull, true)
		e.emitBranch(n.Right, target, jumpIfNull, false)
		e.Program.ResolveLabel(skip)
	}
}

// emitComparisonBranch implements "comparisons emit the fused op
// p1=null-jump-flag, p2=target form, so they do not leave a boolean
// on the stack" (spec §4.3). IfFalse uses the logically-complemented
// comparison opcode (Eq<->Ne, Lt<->Ge, Le<->Gt) rather than the
// generic If/IfNot fallback, since a direct complement is always
// available for these six operators.
func (e *Emitter) emitComparisonBranch(n *expr.Node, target int, jumpIfNull, wantTrue bool) {
	e.EmitValue(n.Left)
	e.EmitValue(n.Right)
	op := n.Op
	if !wantTrue {
		op = complementComparison(op)
	}
	code := comparisonOpcodeForOp(op)
	if e.Tunables.FileFormat >= 4 && n.Affinity == expr.AffinityText {
		code = code.TextVariant()
	}
	p1 := 0
	if jumpIfNull {
		p1 = 1
	}
	e.Program.AddOp2(code, p1, target)
}

func complementComparison(op expr.Op) expr.Op {
	switch op {
	case expr.OpEq:
		return expr.OpNe
	case expr.OpNe:
		return expr.OpEq
	case expr.OpLt:
		return expr.OpGe
	case expr.OpGe:
		return expr.OpLt
	case expr.OpLe:
		return expr.OpGt
	case expr.OpGt:
		return expr.OpLe
	}
	return op
}

func comparisonOpcodeForOp(op expr.Op) Opcode {
	switch op {
	case expr.OpEq:
		return Eq
	case expr.OpNe:
		return Ne
	case expr.OpLt:
		return Lt
	case expr.OpLe:
		return Le
	case expr.OpGt:
		return Gt
	case expr.OpGe:
		return Ge
	}
	return opInvalid
}

// emitNullTestBranch emits the operand and a direct IsNull/NotNull
// conditional jump: ISNULL's own opcode already is a branch-shaped
// "pop 1, test, jump if null" primitive, so IfTrue(ISNULL x) and
// IfFalse(NOTNULL x) both reduce to the IsNull opcode directly (and
// symmetrically for NotNull), with no generic fallback needed.
func (e *Emitter) emitNullTestBranch(n *expr.Node, target int, wantTrue, isNullOp bool) {
	e.EmitValue(n.Left)
	jumpOnNull := isNullOp == wantTrue
	if jumpOnNull {
		e.Program.AddOp2(IsNull, 0, target)
	} else {
		e.Program.AddOp2(NotNull, 0, target)
	}
}

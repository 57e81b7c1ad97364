package emit

import "github.com/feyeleanor/relcore/expr"

// foldUnaryMinus implements spec §4.3's "Unary minus on a literal
// numeric token: fuse by prepending '-' and re-emitting the literal,
// preserving the 32-bit-fit heuristic", plus a supplemented extension
// grounded on original_source/src/expr.c's recursive application of
// the same fold rule: a double unary minus ("- -x") over a literal
// folds to the literal unchanged, rather than negating twice through
// two Negate opcodes (SPEC_FULL.md "Supplemented features" #1).
//
// n must have Op == expr.OpUnaryMinus.
func (e *Emitter) foldUnaryMinus(n *expr.Node) {
	child := e.Tree.Node(n.Left)
	if child == nil {
		e.Program.AddOp0(Null)
		return
	}

	if child.Op == expr.OpUnaryMinus {
		grandchild := e.Tree.Node(child.Left)
		if grandchild != nil && isNumericLiteral(grandchild.Op) {
			// "- - <literal>" folds to the literal unchanged.
			e.EmitValue(child.Left)
			return
		}
	}

	if isNumericLiteral(child.Op) {
		e.emitNegatedLiteral(child)
		return
	}

	e.EmitValue(n.Left)
	e.Program.AddOp0(Negate)
}

func isNumericLiteral(op expr.Op) bool {
	return op == expr.OpInteger || op == expr.OpFloat
}

// emitNegatedLiteral prepends '-' to the literal's token text and
// re-emits it through the ordinary literal paths, preserving the
// 32-bit-fit / oversized-falls-back-to-String heuristic those already
// implement.
func (e *Emitter) emitNegatedLiteral(lit *expr.Node) {
	text := "-" + e.Tree.TokenText(lit.Token)
	switch lit.Op {
	case expr.OpInteger:
		e.emitIntegerLiteralText(text)
	case expr.OpFloat:
		e.Program.AddOp3(Float, 0, 0, text)
	}
}

func (e *Emitter) emitIntegerLiteralText(text string) {
	n := &expr.Node{Op: expr.OpInteger, Token: expr.OwnToken(text)}
	e.emitIntegerLiteral(n)
}

package resolve

import "github.com/feyeleanor/relcore/expr"

// SubqueryAffinity lets a host-provided Subselect payload report the
// affinity of its first result-set column, for "SELECT -> affinity of
// the first result-set column" (spec §4.2 "Type inference"). A
// Subselect value that does not implement this is treated as text.
type SubqueryAffinity interface {
	FirstColumnAffinity() expr.Affinity
}

// AnnotateAffinities walks the whole subtree rooted at ref, bottom-up,
// calling InferAffinity at every node so each one's Affinity field is
// populated — not just the root. InferAffinity's own per-node rule
// recurses into specific children only when the rule needs their
// value (comparison, CASE, AS, SELECT); this walk guarantees every
// other node, whose affinity the rule ignores, still gets visited.
func (r *Resolver) AnnotateAffinities(ref expr.Ref) {
	n := r.Tree.Node(ref)
	if n == nil {
		return
	}
	r.AnnotateAffinities(n.Left)
	r.AnnotateAffinities(n.Right)
	if n.HasArgs {
		for _, item := range n.Args.Items {
			r.AnnotateAffinities(item.Expr)
		}
	}
	if n.Op == expr.OpAsAlias {
		r.AnnotateAffinities(n.AliasTarget)
	}
	r.InferAffinity(ref)
}

// InferAffinity implements spec §4.2's "Type inference" pass: a fixed
// rule table assigning numeric-vs-text affinity to every node. Pure
// function of the (already-resolved) children's affinity, so running
// it twice over an unchanged tree yields the same result — the
// "idempotent after the first invocation" property falls out of this
// rather than needing a guard flag.
func (r *Resolver) InferAffinity(ref expr.Ref) expr.Affinity {
	n := r.Tree.Node(ref)
	if n == nil {
		return expr.AffinityUnknown
	}

	switch {
	case n.Op.IsArithmeticOrBitwise(),
		n.Op == expr.OpIsNull, n.Op == expr.OpNotNull,
		n.Op == expr.OpBetween, n.Op == expr.OpGlob, n.Op == expr.OpLike,
		n.Op == expr.OpUnaryMinus, n.Op == expr.OpUnaryPlus, n.Op == expr.OpBitNot:
		n.Affinity = expr.AffinityNumeric

	case n.Op == expr.OpString, n.Op == expr.OpNull,
		n.Op == expr.OpConcat, n.Op == expr.OpVariable:
		n.Affinity = expr.AffinityText

	case n.Op.IsComparison():
		left := r.InferAffinity(n.Left)
		if left == expr.AffinityNumeric {
			n.Affinity = expr.AffinityNumeric
		} else {
			n.Affinity = r.InferAffinity(n.Right)
		}

	case n.Op == expr.OpAsAlias:
		n.Affinity = r.InferAffinity(n.AliasTarget)

	case n.Op == expr.OpColumn, n.Op == expr.OpFunction, n.Op == expr.OpAggregateFunction:
		// Affinity already stored on the node by resolution (column)
		// or by the function registry (left untouched here — the
		// registry is consulted for arity/aggregate-ness, not
		// affinity, so a function defaults to whatever the checker
		// or host already annotated, per spec's "the stored
		// affinity").

	case n.Op == expr.OpSelectSubquery:
		if sa, ok := n.Subselect.(SubqueryAffinity); ok {
			n.Affinity = sa.FirstColumnAffinity()
		} else {
			n.Affinity = expr.AffinityText
		}

	case n.Op == expr.OpCase:
		n.Affinity = r.caseAffinity(n)

	case n.Op == expr.OpAnd, n.Op == expr.OpOr, n.Op == expr.OpNot,
		n.Op == expr.OpIn, n.Op == expr.OpInteger, n.Op == expr.OpFloat:
		n.Affinity = expr.AffinityNumeric

	default:
		n.Affinity = expr.AffinityText
	}

	return n.Affinity
}

// caseAffinity implements "CASE -> numeric if the ELSE branch or any
// THEN branch is numeric, else text" (spec §4.2).
func (r *Resolver) caseAffinity(n *expr.Node) expr.Affinity {
	if n.Right != expr.NoRef {
		if r.InferAffinity(n.Right) == expr.AffinityNumeric {
			return expr.AffinityNumeric
		}
	}
	if n.HasArgs {
		for i := 1; i < len(n.Args.Items); i += 2 {
			if r.InferAffinity(n.Args.Items[i].Expr) == expr.AffinityNumeric {
				return expr.AffinityNumeric
			}
		}
	}
	return expr.AffinityText
}

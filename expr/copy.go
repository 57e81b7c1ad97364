package expr

// DeepCopy produces an independent subtree rooted in dst (which may
// be t itself, or a fresh Tree when the copy needs a disjoint
// lifetime, e.g. to serve as a sub-query template per spec §3
// "Lifetimes"). Every token is materialised as an owned copy and
// every child subtree is recursively copied; list element order and
// per-element aliases are preserved, and the copied list's top-level
// span is always set (spec §4.1 "Deep copy").
//
// Grounded on _examples/feyeleanor-wendigo/expr.go's Expr.Dup /
// ExprList.Dup, re-expressed as an arena-to-arena copy instead of a
// pointer-graph clone (spec §9 design note: "Deep-copy is a linear
// walk that allocates a contiguous block of slots").
func (t *Tree) DeepCopy(dst *Tree, r Ref) Ref {
	n := t.Node(r)
	if n == nil {
		return NoRef
	}
	if dst.ctx.OOM() {
		return NoRef
	}

	newRef := dst.alloc()
	if newRef == NoRef {
		return NoRef
	}

	left := t.DeepCopy(dst, n.Left)
	right := t.DeepCopy(dst, n.Right)

	dn := dst.Node(newRef)
	*dn = *n
	dn.Left = left
	dn.Right = right
	dn.freed = false
	dn.Token = ownCopy(t, n.Token)
	dn.RaiseMessage = ownCopy(t, n.RaiseMessage)

	if n.HasArgs {
		dn.Args = List{Span: n.Args.Span, Items: make([]ArgItem, len(n.Args.Items))}
		for i, item := range n.Args.Items {
			dn.Args.Items[i] = ArgItem{
				Expr:      t.DeepCopy(dst, item.Expr),
				Alias:     item.Alias,
				SortOrder: item.SortOrder,
				Done:      item.Done,
			}
		}
		dn = dst.Node(newRef) // the item copies above may have grown dst's arena
		if dn.Args.Span == (Span{}) && n.Span != (Span{}) {
			dn.Args.Span = n.Span
		}
	}

	// Subselects are opaque to this module (spec §1: the parser
	// produces the nested SELECT tree; we only carry the pointer).
	// A Compare between two subselect-bearing trees is always
	// unequal (spec §4.1), so there is no structural copy to do here
	// beyond keeping the same opaque reference.
	dn.Subselect = n.Subselect

	return newRef
}

func ownCopy(t *Tree, tok Token) Token {
	if tok.Owned {
		return tok
	}
	return OwnToken(t.TokenText(tok))
}

// Compare reports structural equality of op, children, arg-lists,
// resolved slot numbers, and token bytes (case-insensitive,
// length-bounded). Subselects compare equal only when both sides are
// absent; two trees containing subselects are always unequal (spec
// §4.1 "Compare").
func Compare(ta *Tree, a Ref, tb *Tree, b Ref) bool {
	na, nb := ta.Node(a), tb.Node(b)
	if na == nil && nb == nil {
		return true
	}
	if na == nil || nb == nil {
		return false
	}
	if na.Subselect != nil || nb.Subselect != nil {
		return false
	}
	if na.Op != nb.Op {
		return false
	}
	if na.DBIndex != nb.DBIndex || na.TableCursor != nb.TableCursor ||
		na.ColumnIndex != nb.ColumnIndex || na.AggSlot != nb.AggSlot ||
		na.Affinity != nb.Affinity {
		return false
	}
	if !tokenEqualFold(ta, na.Token, tb, nb.Token) {
		return false
	}
	if !Compare(ta, na.Left, tb, nb.Left) {
		return false
	}
	if !Compare(ta, na.Right, tb, nb.Right) {
		return false
	}
	if na.HasArgs != nb.HasArgs {
		return false
	}
	if na.HasArgs {
		if len(na.Args.Items) != len(nb.Args.Items) {
			return false
		}
		for i := range na.Args.Items {
			ia, ib := na.Args.Items[i], nb.Args.Items[i]
			if !Compare(ta, ia.Expr, tb, ib.Expr) {
				return false
			}
			if !equalFold(ia.Alias, ib.Alias) || ia.SortOrder != ib.SortOrder {
				return false
			}
		}
	}
	return true
}

func tokenEqualFold(ta *Tree, a Token, tb *Tree, b Token) bool {
	return equalFold(ta.TokenText(a), tb.TokenText(b))
}

// equalFold is a case-insensitive, length-bounded comparison matching
// _examples/feyeleanor-wendigo/util.go's CaseInsensitiveMatch, which
// first checks len(a)==len(b) before scanning byte-by-byte.
func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}

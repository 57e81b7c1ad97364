package expr

import (
	"strconv"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/config"
)

// Tree is the arena backing every Node in one expression (or
// expression-list) construction. Source is the single buffer owning
// every borrowed Token (spec §9: "token spans as (offset, length)
// into a single source-text buffer owned by the parse context").
//
// Grounded on _examples/feyeleanor-wendigo/expr.go's sqlite3*Expr
// constructors (Expr/ExprFunction/ExprAttachSubtrees), re-targeted
// from heap-pointer ownership to index ownership into nodes.
type Tree struct {
	Source string
	nodes  []Node
	ctx    *arena.Ctx

	// maxListLen is the per-ExprList element cap enforced by
	// AppendToList (supplemented feature, see SPEC_FULL.md:
	// expr.c's sqlite3ExprListCheckLength). Defaults to
	// config.Default().MaxExprListLength; override with
	// SetMaxListLen.
	maxListLen int
}

func NewTree(ctx *arena.Ctx, source string) *Tree {
	if ctx == nil {
		ctx = arena.NewCtx(nil)
	}
	return &Tree{Source: source, ctx: ctx, maxListLen: config.Default().MaxExprListLength}
}

// SetMaxListLen overrides the ExprList length cap AppendToList
// enforces, e.g. with config.Tunables.MaxExprListLength from the
// embedding host's own configuration.
func (t *Tree) SetMaxListLen(n int) { t.maxListLen = n }

func (t *Tree) Ctx() *arena.Ctx { return t.ctx }

func (t *Tree) Node(r Ref) *Node {
	if r == NoRef {
		return nil
	}
	return &t.nodes[r]
}

func (t *Tree) Len() int { return len(t.nodes) }

// alloc appends a fresh, zeroed node and returns its Ref, or NoRef if
// the context is already OOM-failed. Once OOM is sticky, every
// subsequent construction call short-circuits to NoRef without
// touching the arena (spec §7's OOM stickiness).
func (t *Tree) alloc() Ref {
	if t.ctx.OOM() {
		return NoRef
	}
	t.nodes = append(t.nodes, Node{})
	r := Ref(len(t.nodes) - 1)
	t.nodes[r].reset()
	return r
}

// TokenText returns the lexeme backing tok, from the Tree's source
// buffer if borrowed or from the token's own owned copy otherwise.
func (t *Tree) TokenText(tok Token) string {
	if tok.Owned {
		return tok.Text
	}
	if tok.Offset < 0 || tok.Offset+tok.Length > len(t.Source) {
		return ""
	}
	return t.Source[tok.Offset : tok.Offset+tok.Length]
}

// BorrowToken makes a Token referencing a span of Source without
// copying. Caller guarantees Source outlives every Tree built over
// it (spec §3 "caller guarantees token lifetime >= node lifetime").
func (t *Tree) BorrowToken(offset, length int) Token {
	return Token{Offset: offset, Length: length}
}

// OwnToken materialises an independent copy of text, used when a
// node's token must outlive the Tree's Source buffer (e.g. after a
// rename, or as part of DeepCopy).
func OwnToken(text string) Token {
	return Token{Owned: true, Text: text}
}

// NewLeaf constructs a leaf node (op, token) -> node (spec §4.1).
// Returns NoRef on OOM without attempting to reclaim anything the
// caller passed in — there is nothing to reclaim for a leaf.
func (t *Tree) NewLeaf(op Op, tok Token) Ref {
	r := t.alloc()
	if r == NoRef {
		return NoRef
	}
	n := t.Node(r)
	n.Op = op
	n.Token = tok
	n.Span = Span{Offset: tok.Offset, Length: tok.Length}
	return r
}

// NewBinary constructs (op, left, right, token?) -> node. The
// resulting span covers left.span..right.span when both children are
// present; otherwise it is the token's own span (spec §4.1).
//
// Per spec §4.1's OOM guarantee, construction never reclaims the
// left/right subtrees it was handed: on OOM they are leaked, a
// concession inherited unchanged from the teacher's
// sqlite3ExprAttachSubtrees comment ("That memory is leaked under
// OOM, a concession to keep the failure path branch-free").
func (t *Tree) NewBinary(op Op, left, right Ref, tok Token) Ref {
	r := t.alloc()
	if r == NoRef {
		return NoRef
	}
	n := t.Node(r)
	n.Op = op
	n.Left = left
	n.Right = right
	n.Token = tok
	n.Span = t.spanOf(left, right, tok)
	return r
}

func (t *Tree) spanOf(left, right Ref, tok Token) Span {
	lp, rp := t.Node(left), t.Node(right)
	switch {
	case lp != nil && rp != nil:
		end := rp.Span.Offset + rp.Span.Length
		return Span{Offset: lp.Span.Offset, Length: end - lp.Span.Offset}
	case lp != nil:
		end := lp.Span.Offset + lp.Span.Length
		if tok.Length > 0 {
			end = tok.Offset + tok.Length
		}
		return Span{Offset: lp.Span.Offset, Length: end - lp.Span.Offset}
	default:
		return Span{Offset: tok.Offset, Length: tok.Length}
	}
}

// NewFunctionCall constructs (arg-list, name-token) -> node with
// Op=OpFunction (spec §4.1).
func (t *Tree) NewFunctionCall(nameTok Token, args List) Ref {
	r := t.alloc()
	if r == NoRef {
		return NoRef
	}
	n := t.Node(r)
	n.Op = OpFunction
	n.Token = nameTok
	n.Args = args
	n.HasArgs = true
	n.Span = Span{Offset: nameTok.Offset, Length: nameTok.Length}
	return r
}

// AppendToList appends (expr, alias, sortOrder) to list and returns
// the new element's index, enforcing the configured MaxExprListLength
// cap (supplemented feature, see SPEC_FULL.md). Lists built with
// List.Append directly bypass the cap; "at most one list element per
// source-syntax expression" remains the caller's own responsibility.
func (t *Tree) AppendToList(list *List, item Ref, alias string, order SortOrder) (idx int, ok bool) {
	if t.maxListLen > 0 && len(list.Items) >= t.maxListLen {
		t.ctx.RaiseError(arena.Misuse, "expression list exceeds the maximum of %d elements", t.maxListLen)
		return -1, false
	}
	return list.Append(ArgItem{Expr: item, Alias: dequoteAliasOnce(alias), SortOrder: order}), true
}

// dequoteAliasOnce strips one layer of matching quotes, honouring the
// "aliases are dequoted exactly once at insertion time" invariant
// (spec §3 "Expression list").
func dequoteAliasOnce(alias string) string {
	if len(alias) >= 2 {
		first, last := alias[0], alias[len(alias)-1]
		if (first == '"' && last == '"') || (first == '\'' && last == '\'') || (first == '`' && last == '`') {
			return alias[1 : len(alias)-1]
		}
		if first == '[' && last == ']' {
			return alias[1 : len(alias)-1]
		}
	}
	return alias
}

// DeleteTree recursively marks children, subselect, list entries, and
// owned tokens as released (spec §4.1 "Delete"). Null-safe: deleting
// NoRef is a no-op, and so is deleting a Ref that was already deleted
// (its freed flag is set).
func (t *Tree) DeleteTree(r Ref) {
	n := t.Node(r)
	if n == nil || n.freed {
		return
	}
	n.freed = true
	t.DeleteTree(n.Left)
	t.DeleteTree(n.Right)
	if n.HasArgs {
		for _, item := range n.Args.Items {
			t.DeleteTree(item.Expr)
		}
	}
	n.Subselect = nil
	n.Left, n.Right = NoRef, NoRef
}

// IsConstant reports whether expr contains no column references,
// variables, or subselects — the check IN (value-list) elements must
// pass (spec §6 "is-constant").
func (t *Tree) IsConstant(r Ref) bool {
	n := t.Node(r)
	if n == nil {
		return true
	}
	switch n.Op {
	case OpColumn, OpVariable, OpSelectSubquery, OpBareID, OpDotted, OpAggregateFunction:
		return false
	case OpFunction:
		// A bare function call is never treated as constant by this
		// checker: functions may be non-deterministic (e.g. random()),
		// mirroring sqlite3ExprIsConstant's conservative treatment of
		// TK_FUNCTION outside a constant-folding context.
		return false
	}
	if !t.IsConstant(n.Left) || !t.IsConstant(n.Right) {
		return false
	}
	if n.HasArgs {
		for _, item := range n.Args.Items {
			if !t.IsConstant(item.Expr) {
				return false
			}
		}
	}
	return true
}

// IsInteger reports whether expr is an integer literal that fits in
// 32 bits, writing the value out on success (spec §6 "is-integer").
func (t *Tree) IsInteger(r Ref) (value int32, ok bool) {
	n := t.Node(r)
	if n == nil || n.Op != OpInteger {
		return 0, false
	}
	text := t.TokenText(n.Token)
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, false
	}
	if v < -(1<<31) || v > (1<<31)-1 {
		return 0, false
	}
	return int32(v), true
}

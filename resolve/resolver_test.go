package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/expr"
)

func tok(off, length int) expr.Token { return expr.Token{Offset: off, Length: length} }

// TestColumnResolution is spec §8 scenario A.
func TestColumnResolution(t *testing.T) {
	assert := assert.New(t)

	tr := expr.NewTree(nil, "x+1")
	x := tr.NewLeaf(expr.OpBareID, tok(0, 1))
	one := tr.NewLeaf(expr.OpInteger, tok(2, 1))
	root := tr.NewBinary(expr.OpAdd, x, one, expr.Token{})

	scope := &Scope{Sources: []Table{{
		Alias:  "A",
		Cursor: 0,
		Columns: []Column{
			{Name: "x", Affinity: expr.AffinityNumeric},
			{Name: "y", Affinity: expr.AffinityText},
		},
	}}}

	r := NewResolver(tr, nil, nil)
	ctx := arena.NewCtx(nil)
	errCount := r.Resolve(ctx, scope, root)
	assert.Equal(0, errCount)

	xNode := tr.Node(x)
	assert.Equal(expr.OpColumn, xNode.Op)
	assert.Equal(0, xNode.TableCursor)
	assert.Equal(0, xNode.ColumnIndex)
	assert.Equal(expr.AffinityNumeric, xNode.Affinity)

	r.AnnotateAffinities(root)
	assert.Equal(expr.AffinityNumeric, tr.Node(root).Affinity)
}

// TestAliasRewriteInWhere is spec §8 scenario B.
func TestAliasRewriteInWhere(t *testing.T) {
	assert := assert.New(t)

	tr := expr.NewTree(nil, "a+b k<10")
	a := tr.NewLeaf(expr.OpBareID, tok(0, 1))
	b := tr.NewLeaf(expr.OpBareID, tok(2, 1))
	aPlusB := tr.NewBinary(expr.OpAdd, a, b, expr.Token{})

	k := tr.NewLeaf(expr.OpBareID, tok(4, 1))
	ten := tr.NewLeaf(expr.OpInteger, tok(6, 2))
	whereExpr := tr.NewBinary(expr.OpLt, k, ten, expr.Token{})

	scope := &Scope{
		Sources: []Table{{Alias: "t", Cursor: 0, Columns: []Column{
			{Name: "a", Affinity: expr.AffinityNumeric},
			{Name: "b", Affinity: expr.AffinityNumeric},
		}}},
		Aliases: []ResultAlias{{Name: "k", Expr: aPlusB}},
	}

	r := NewResolver(tr, nil, nil)
	ctx := arena.NewCtx(nil)
	errCount := r.Resolve(ctx, scope, whereExpr)
	assert.Equal(0, errCount)

	kNode := tr.Node(k)
	assert.Equal(expr.OpAsAlias, kNode.Op)
	assert.True(expr.Compare(tr, kNode.AliasTarget, tr, aPlusB))
}

// TestAmbiguousName is spec §8 scenario C.
func TestAmbiguousName(t *testing.T) {
	assert := assert.New(t)

	tr := expr.NewTree(nil, "x")
	x := tr.NewLeaf(expr.OpBareID, tok(0, 1))

	scope := &Scope{Sources: []Table{
		{Alias: "t1", Cursor: 0, Columns: []Column{{Name: "x", Affinity: expr.AffinityNumeric}}},
		{Alias: "t2", Cursor: 1, Columns: []Column{{Name: "x", Affinity: expr.AffinityNumeric}}},
	}}

	r := NewResolver(tr, nil, nil)
	ctx := arena.NewCtx(nil)
	errCount := r.Resolve(ctx, scope, x)
	assert.Equal(1, errCount)
	assert.Contains(ctx.Message(), "ambiguous column name: x")
	assert.Equal(expr.OpBareID, tr.Node(x).Op, "op must be unchanged on ambiguous error")
}

// TestAggregateDetection is spec §8 scenario D.
func TestAggregateDetection(t *testing.T) {
	assert := assert.New(t)

	tr := expr.NewTree(nil, "count(*)+1")
	countCall := tr.NewFunctionCall(tok(0, 5), expr.List{})
	one := tr.NewLeaf(expr.OpInteger, tok(9, 1))
	root := tr.NewBinary(expr.OpAdd, countCall, one, expr.Token{})

	registry := NewFuncRegistry()
	registry.Register("count", 0, true)

	r := NewResolver(tr, nil, registry)
	ctx := arena.NewCtx(nil)

	errCount, hasAgg := r.Check(ctx, root, true)
	assert.Equal(0, errCount)
	assert.True(hasAgg)
	assert.Equal(expr.OpAggregateFunction, tr.Node(countCall).Op)

	errCount = r.AnalyzeAggregates(ctx, root)
	assert.Equal(0, errCount)
	assert.Equal(1, len(r.Agg.Entries))
	assert.True(r.Agg.Entries[0].IsAggregate)
	assert.Equal(countCall, r.Agg.Entries[0].Expr)
}

// TestWrongArityIsDistinctFromUnknownFunction is spec §4.2's
// "Missing → error; wrong arity → error" distinction: a call to a
// registered name at an arity it was never registered at must raise
// a wrong-arity error, not an unknown-function one, and vice versa
// for a name that isn't registered under any arity.
func TestWrongArityIsDistinctFromUnknownFunction(t *testing.T) {
	assert := assert.New(t)

	registry := NewFuncRegistry()
	registry.Register("count", 1, true)

	tr := expr.NewTree(nil, "count(1,2)")
	arg1 := tr.NewLeaf(expr.OpInteger, tok(6, 1))
	arg2 := tr.NewLeaf(expr.OpInteger, tok(8, 1))
	args := expr.List{}
	args.Append(expr.ArgItem{Expr: arg1})
	args.Append(expr.ArgItem{Expr: arg2})
	wrongArity := tr.NewFunctionCall(tok(0, 5), args)

	r := NewResolver(tr, nil, registry)
	ctx := arena.NewCtx(nil)
	errCount, _ := r.Check(ctx, wrongArity, true)
	assert.Equal(1, errCount)
	assert.Contains(ctx.Message(), "wrong number of arguments")

	tr2 := expr.NewTree(nil, "nosuch(1)")
	noSuchFn := tr2.NewFunctionCall(tok(0, 6), expr.List{})
	r2 := NewResolver(tr2, nil, registry)
	ctx2 := arena.NewCtx(nil)
	errCount2, _ := r2.Check(ctx2, noSuchFn, true)
	assert.Equal(1, errCount2)
	assert.Contains(ctx2.Message(), "no such function")
}

// TestResolverIdempotence is spec §8 property 2.
func TestResolverIdempotence(t *testing.T) {
	assert := assert.New(t)

	tr := expr.NewTree(nil, "x IN (1, 2, 3)")
	one := tr.NewLeaf(expr.OpInteger, tok(6, 1))
	two := tr.NewLeaf(expr.OpInteger, tok(9, 1))
	three := tr.NewLeaf(expr.OpInteger, tok(12, 1))
	list := expr.List{}
	tr.AppendToList(&list, one, "", expr.SortAsc)
	tr.AppendToList(&list, two, "", expr.SortAsc)
	tr.AppendToList(&list, three, "", expr.SortAsc)

	x := tr.NewLeaf(expr.OpBareID, tok(0, 1))
	inNode := tr.NewBinary(expr.OpIn, x, expr.NoRef, expr.Token{})
	tr.Node(inNode).Args = list
	tr.Node(inNode).HasArgs = true

	scope := &Scope{Sources: []Table{{Alias: "t", Cursor: 0, Columns: []Column{
		{Name: "x", Affinity: expr.AffinityNumeric},
	}}}}

	r := NewResolver(tr, nil, nil)
	ctx := arena.NewCtx(nil)

	errCount1 := r.Resolve(ctx, scope, inNode)
	assert.Equal(0, errCount1)
	setID1 := tr.Node(inNode).SetID

	errCount2 := r.Resolve(ctx, scope, inNode)
	assert.Equal(0, errCount2, "a second pass over an already-resolved tree raises no new errors")
	assert.Equal(setID1, tr.Node(inNode).SetID, "a second pass must not reallocate the set identifier")
}

package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestTree(source string) *Tree {
	return NewTree(nil, source)
}

func tok(off, length int) Token { return Token{Offset: off, Length: length} }

// buildSum constructs "a+1" as a fresh tree and returns (tree, root).
func buildSum(t *Tree) Ref {
	a := t.NewLeaf(OpBareID, tok(0, 1))
	one := t.NewLeaf(OpInteger, tok(2, 1))
	return t.NewBinary(OpAdd, a, one, Token{})
}

func TestDeepCopyRoundTrip(t *testing.T) {
	assert := assert.New(t)

	src := newTestTree("a+1")
	root := buildSum(src)

	dst := newTestTree("a+1")
	copied := src.DeepCopy(dst, root)

	assert.True(Compare(src, root, dst, copied), "deep copy must compare equal to the original")

	src.DeleteTree(root)
	assert.True(dst.Node(copied) != nil, "deleting the original must leave the copy intact")
	assert.Equal(OpAdd, dst.Node(copied).Op)
}

func TestCompareStructural(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTree("a+1 a+2")
	left := buildSum(tr)

	b := tr.NewLeaf(OpBareID, tok(4, 1))
	two := tr.NewLeaf(OpInteger, tok(6, 1))
	right := tr.NewBinary(OpAdd, b, two, Token{})

	assert.False(Compare(tr, left, tr, right), "different literal token text must compare unequal")
}

func TestIsConstant(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTree("1+2")
	one := tr.NewLeaf(OpInteger, tok(0, 1))
	two := tr.NewLeaf(OpInteger, tok(2, 1))
	sum := tr.NewBinary(OpAdd, one, two, Token{})
	assert.True(tr.IsConstant(sum))

	col := tr.NewLeaf(OpColumn, Token{})
	withCol := tr.NewBinary(OpAdd, sum, col, Token{})
	assert.False(tr.IsConstant(withCol))
}

func TestIsInteger(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTree("42 9999999999999999999")
	small := tr.NewLeaf(OpInteger, tok(0, 2))
	v, ok := tr.IsInteger(small)
	assert.True(ok)
	assert.Equal(int32(42), v)

	huge := tr.NewLeaf(OpInteger, tok(3, 19))
	_, ok = tr.IsInteger(huge)
	assert.False(ok, "out-of-32-bit-range integers are not is-integer")
}

func TestDequote(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("abc", Dequote(`"abc"`))
	assert.Equal(`a"b`, Dequote(`"a""b"`))
	assert.Equal("abc", Dequote("`abc`"))
	assert.Equal("abc", Dequote("[abc]"))
	assert.Equal("abc", Dequote("abc"))
}

// TestAppendToListEnforcesMaxLen is the MaxExprListLength supplement
// (see SPEC_FULL.md §Supplemented features).
func TestAppendToListEnforcesMaxLen(t *testing.T) {
	assert := assert.New(t)

	tr := newTestTree("f(...)")
	tr.SetMaxListLen(3)
	item := tr.NewLeaf(OpInteger, tok(0, 1))

	list := List{}
	for i := 0; i < 3; i++ {
		idx, ok := tr.AppendToList(&list, item, "", SortAsc)
		assert.True(ok)
		assert.Equal(i, idx)
	}
	assert.Equal(0, tr.Ctx().ErrCount())

	idx, ok := tr.AppendToList(&list, item, "", SortAsc)
	assert.False(ok, "a fourth element must be rejected once maxListLen is 3")
	assert.Equal(-1, idx)
	assert.Equal(3, list.Len(), "the list must not grow past the cap")
	assert.Equal(1, tr.Ctx().ErrCount())
}

func TestSplitDottedName(t *testing.T) {
	assert := assert.New(t)

	db, tbl, col := SplitDottedName("main.t.x")
	assert.Equal("main", db)
	assert.Equal("t", tbl)
	assert.Equal("x", col)

	_, tbl2, col2 := SplitDottedName("t.x")
	assert.Equal("t", tbl2)
	assert.Equal("x", col2)

	_, _, col3 := SplitDottedName("x")
	assert.Equal("x", col3)
}

package expr

// Ref addresses a node within a Tree's arena by index. The sentinel
// NoRef (-1) means "no child", replacing the teacher's nil *Expr
// pointer (spec §9's "arena of node slots addressed by index, with
// children as indices" design note).
type Ref int32

const NoRef Ref = -1

// Token is a (offset, length, owned?) borrow into a Tree's source
// text, or an owned copy once upgraded (spec §3 "token"). Mirrors
// _examples/feyeleanor-wendigo/util.go's Dequote/Token-slice idiom,
// re-expressed as a value type instead of a pointer into a C buffer.
type Token struct {
	Offset int
	Length int
	Owned  bool
	Text   string // valid only when Owned
}

// Span is the outer lexeme span covering a subtree (spec §3 "span").
type Span struct {
	Offset int
	Length int
}

// ArgItem is one element of an Args list: an (expression, optional
// alias, sort order, done-flag) tuple (spec §3 "args"), used by
// function calls, IN lists, CASE when/then pairs, and sort lists.
type ArgItem struct {
	Expr      Ref
	Alias     string
	SortOrder SortOrder
	Done      bool
}

// List is the ordered, grow-on-append Expression list from spec §3.
// Backed by a plain Go slice: append() already gives amortised O(1)
// growth with doubling capacity, satisfying the spec's capacity rule
// without a hand-rolled resize routine.
type List struct {
	Items []ArgItem
	// Span is the list's own outer span, materialised eagerly on
	// deep-copy (spec §4.1 "the copied list's top-level span is
	// always materialised — needed later for naming result columns").
	Span Span
}

func (l *List) Len() int { return len(l.Items) }

// Append adds an item and returns its index within the list,
// uncapped. Capacity growth is whatever append() does. Tree.AppendToList
// is the capped alternative that enforces MaxExprListLength (spec
// supplement, see SPEC_FULL.md §Supplemented features); Append itself
// performs no length check.
func (l *List) Append(item ArgItem) int {
	l.Items = append(l.Items, item)
	return len(l.Items) - 1
}

// Node is the tagged expression node from spec §3. Side fields filled
// in by resolution are grouped at the bottom and are meaningless
// (zero) until Op becomes OpColumn or OpAggregateFunction.
type Node struct {
	Op Op

	Left, Right Ref
	Args        List
	HasArgs     bool // Args is meaningful iff true; distinguishes an empty call from no list at all
	Subselect   any  // opaque nested SELECT tree; nil if absent (out of scope per spec §1)

	Token Token
	Span  Span

	// Resolution side fields (spec §3 "Resolution side fields").
	DBIndex     int
	TableCursor int
	ColumnIndex int // -1 means the implicit row identifier
	Affinity    Affinity
	AggSlot     int

	// AliasTarget holds the index of the duplicated result-set
	// expression once the resolver rewrites this node to OpAsAlias
	// (spec §4.2 step 5). NoRef, set when the node is allocated,
	// means "not an alias".
	AliasTarget Ref

	// RaiseAction / RaiseMessage are meaningful only when Op ==
	// OpRaise (spec §4.3 "RAISE").
	RaiseAction  RaiseAction
	RaiseMessage Token

	// SetID is the runtime set identifier allocated for an OpIn node
	// whose right-hand side was a constant value list (spec §4.2 "IN
	// handling"). Meaningful only when Op == OpIn and Subselect==nil.
	SetID int

	// Resolved marks a structural node (OpIn, OpSelectSubquery) whose
	// cursor/set/cell has already been allocated, so a second
	// resolver pass over an already-resolved tree is a no-op rather
	// than reallocating a fresh resource each time (spec §8.2
	// "Resolver idempotence").
	Resolved bool

	// AggClassified marks a node already assigned an AggSlot by
	// AnalyzeAggregates, for the same idempotence reason.
	AggClassified bool

	freed bool
}

func (n *Node) reset() {
	*n = Node{Left: NoRef, Right: NoRef, AliasTarget: NoRef, ColumnIndex: 0}
}

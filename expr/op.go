package expr

// Op is the expression node discriminant (spec §3 "op"). Grouped the
// way spec.md §3 groups them: literal, identifier, operator,
// structural. Re-expressed from the teacher's TK_* token constants
// (_examples/feyeleanor-wendigo/expr.go's TK_COLUMN/TK_IN/TK_BETWEEN/
// TK_CASE switch) as a single Go enum rather than reusing lexer token
// codes, since this module never sees raw lexer tokens — only
// already-parsed Op values the parser hands in.
type Op uint8

const (
	opInvalid Op = iota

	// Literal kinds.
	OpNull
	OpInteger
	OpFloat
	OpString
	OpVariable

	// Identifier kinds.
	OpBareID            // unqualified name, e.g. "x"
	OpDotted            // qualified name, e.g. "t.x" or "db.t.x"
	OpDoubleQuotedIdent // "x" before it's known to be a column or a string literal
	OpColumn            // resolved: table_cursor/column_index/affinity set

	// Arithmetic / bitwise operators (binary).
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpBitAnd
	OpBitOr
	OpShiftLeft
	OpShiftRight
	OpConcat

	// Comparison operators (binary). Text-variant opcodes the
	// emitter picks are this op's numeric opcode + 6 (spec §4.3).
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Logical operators.
	OpAnd
	OpOr

	// Unary operators.
	OpNot
	OpBitNot
	OpUnaryMinus
	OpUnaryPlus
	OpIsNull
	OpNotNull

	// Structural kinds.
	OpFunction
	OpAggregateFunction
	OpIn
	OpBetween
	OpCase
	OpSelectSubquery
	OpAsAlias
	OpRaise
	OpLike
	OpGlob
)

// Affinity is the coarse type a column or expression is treated as
// for comparison (glossary: "Affinity").
type Affinity uint8

const (
	AffinityUnknown Affinity = iota
	AffinityNumeric
	AffinityText
)

// RaiseAction distinguishes the four RAISE() forms (spec §4.3).
type RaiseAction uint8

const (
	RaiseRollback RaiseAction = iota
	RaiseAbort
	RaiseFail
	RaiseIgnore
)

// SortOrder is carried by args-list entries used as ORDER BY/sort
// lists (spec §3 "args").
type SortOrder uint8

const (
	SortAsc SortOrder = iota
	SortDesc
)

// IsComparison reports whether op is one of the six comparison
// operators the emitter biases toward the text-variant opcode when
// the compared affinity is text (spec §4.3).
func (op Op) IsComparison() bool {
	switch op {
	case OpEq, OpNe, OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

func (op Op) IsArithmeticOrBitwise() bool {
	switch op {
	case OpAdd, OpSub, OpMul, OpDiv, OpMod, OpBitAnd, OpBitOr, OpShiftLeft, OpShiftRight:
		return true
	}
	return false
}

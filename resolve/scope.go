// Package resolve implements identifier binding, aggregate
// classification, and type inference over an expr.Tree (spec §4.2).
// Grounded on _examples/feyeleanor-wendigo/resolve.go's lookupName/
// resolveAlias and _examples/feyeleanor-wendigo/analyze.go's
// aggregate-table population, re-expressed against the arena-indexed
// expr.Tree instead of a pointer-graph Expr/NameContext pair.
package resolve

import "github.com/feyeleanor/relcore/expr"

// Column describes one column of a source table for name-matching
// purposes (spec §4.2 step 2).
type Column struct {
	Name     string
	Affinity expr.Affinity
	// IsRowid marks the column that doubles as the table's implicit
	// row identifier (an INTEGER PRIMARY KEY column), which binds to
	// ColumnIndex -1 instead of its ordinal position (spec §3
	// "Row identifier").
	IsRowid bool
}

// Table is one source-list entry: a schema table (optionally
// database-qualified) with an optional result alias overriding the
// schema name for matching purposes (spec §4.2 step 2: "Alias names
// override schema names for the table comparison").
type Table struct {
	Database string
	Name     string
	Alias    string
	Cursor   int
	Columns  []Column
}

func (t *Table) matchName(zTab string) bool {
	if t.Alias != "" {
		return equalFold(t.Alias, zTab)
	}
	return equalFold(t.Name, zTab)
}

// ResultAlias is one entry of the result-set alias list consulted by
// step 5 ("try matching against an aliased result-set entry").
type ResultAlias struct {
	Name string
	Expr expr.Ref
}

// TriggerPseudoTable pins a row for a trigger body's new.*/old.*
// pseudo-table (spec §4.2 step 3).
type TriggerPseudoTable struct {
	Name   string // "new" or "old"
	Table  Table
	Cursor int
}

// Scope bundles everything bindIdentifier needs: the source-table list,
// the optional alias list, and (inside a trigger body) the pinned
// new/old pseudo-tables.
type Scope struct {
	Sources       []Table
	Aliases       []ResultAlias
	TriggerRows   []TriggerPseudoTable // spec step 3
	InsideTrigger bool
	// AllowAggregates is read by neither the identifier binder nor
	// Check, which takes its allow-aggregates flag as a parameter
	// (spec §4.2 "Function arity & existence check"); it is carried
	// here for callers that thread one Scope through both passes.
	AllowAggregates bool
}

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

// isRowidAlias reports whether name is one of the three pseudo-column
// spellings for the implicit row identifier (spec §4.2 step 4).
func isRowidAlias(name string) bool {
	return equalFold(name, "_ROWID_") || equalFold(name, "ROWID") || equalFold(name, "OID")
}

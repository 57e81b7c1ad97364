package expr

// AggEntry is one row of the aggregate table (spec §3 "Aggregate
// table"): a parse-time flat vector of (expr-pointer, is-aggregate-
// call?, function-binding?) entries.
type AggEntry struct {
	Expr        Ref
	IsAggregate bool
	Binding     any // resolved function binding, opaque to this package
}

// AggTable is the per-query side table the resolver's aggregate
// classification pass populates (spec §4.2 "Aggregate classification").
// Each distinct column reference inside an aggregate context gets a
// non-aggregate slot; each distinct aggregate call gets an aggregate
// slot. A Node's AggSlot field indexes into Entries.
type AggTable struct {
	Entries []AggEntry
}

// AddColumn registers a non-aggregate column-reference slot and
// returns its index.
func (a *AggTable) AddColumn(ref Ref) int {
	a.Entries = append(a.Entries, AggEntry{Expr: ref, IsAggregate: false})
	return len(a.Entries) - 1
}

// AddAggregate registers an aggregate-call slot with its resolved
// function binding and returns its index.
func (a *AggTable) AddAggregate(ref Ref, binding any) int {
	a.Entries = append(a.Entries, AggEntry{Expr: ref, IsAggregate: true, Binding: binding})
	return len(a.Entries) - 1
}

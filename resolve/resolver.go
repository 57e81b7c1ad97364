package resolve

import (
	"log/slog"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/expr"
	"github.com/feyeleanor/relcore/internal/logging"
)

// Resolver binds identifiers to (table, column) slots over one
// expr.Tree (spec §4.2). Grounded on
// _examples/feyeleanor-wendigo/resolve.go's lookupName, re-expressed
// to return an error count instead of a WRC_Abort/WRC_Prune walker
// result and operating on Refs instead of *Expr.
type Resolver struct {
	Tree     *expr.Tree
	Alloc    Allocator
	Registry *FuncRegistry
	Agg      *expr.AggTable
	log      *slog.Logger
}

func NewResolver(tree *expr.Tree, alloc Allocator, registry *FuncRegistry) *Resolver {
	if alloc == nil {
		alloc = &Counters{}
	}
	if registry == nil {
		registry = NewFuncRegistry()
	}
	return &Resolver{
		Tree:     tree,
		Alloc:    alloc,
		Registry: registry,
		Agg:      &expr.AggTable{},
		log:      logging.Named("resolve"),
	}
}

// Resolve binds every identifier-kind node in the subtree rooted at
// root against scope, returning the number of errors raised (spec §6
// "resolve(parse-ctx, source-list, alias-list, expr) -> error count").
// A non-zero count leaves a formatted message on ctx.
func (r *Resolver) Resolve(ctx *arena.Ctx, scope *Scope, root expr.Ref) int {
	before := ctx.ErrCount()
	r.resolveNode(ctx, scope, root)
	return ctx.ErrCount() - before
}

func (r *Resolver) resolveNode(ctx *arena.Ctx, scope *Scope, ref expr.Ref) {
	if ctx.OOM() {
		return
	}
	n := r.Tree.Node(ref)
	if n == nil {
		return
	}

	switch n.Op {
	case expr.OpBareID, expr.OpDotted, expr.OpDoubleQuotedIdent:
		r.bindIdentifier(ctx, scope, ref)
		return // bindIdentifier does not descend into an alias rewrite's copied target
	case expr.OpIn:
		r.resolveNode(ctx, scope, n.Left)
		r.bindIn(ctx, scope, ref)
		return
	case expr.OpSelectSubquery:
		r.bindScalarSubselect(ctx, ref)
		return
	}

	r.resolveNode(ctx, scope, n.Left)
	r.resolveNode(ctx, scope, n.Right)
	if n.HasArgs {
		for _, item := range n.Args.Items {
			r.resolveNode(ctx, scope, item.Expr)
		}
	}
}

// bindIdentifier implements spec §4.2's seven-step lookup, mutating
// the node in place on a successful bind.
func (r *Resolver) bindIdentifier(ctx *arena.Ctx, scope *Scope, ref expr.Ref) {
	n := r.Tree.Node(ref)
	text := r.Tree.TokenText(n.Token)
	zDB, zTab, zCol := expr.SplitDottedName(text)

	cnt, cntTab := 0, 0
	var matchTable *Table
	var matchCol Column
	var matchColIdx int

	for i := range scope.Sources {
		t := &scope.Sources[i]
		if zTab != "" && !t.matchName(zTab) {
			continue
		}
		if zDB != "" && !equalFold(t.Database, zDB) {
			continue
		}
		if zTab != "" || zDB != "" {
			cntTab++
			if matchTable == nil {
				matchTable = t
			}
		}
		for ci, col := range t.Columns {
			if equalFold(col.Name, zCol) {
				cnt++
				matchTable = t
				matchCol = col
				matchColIdx = ci
			}
		}
		if zTab == "" && zDB == "" {
			// unqualified: still count the table as "in scope" once,
			// for the benefit of step 4's single-candidate rowid check.
			if cntTab == 0 {
				cntTab = len(scope.Sources)
			}
		}
	}

	// Step 3: trigger new/old pseudo-table retry.
	if cnt == 0 && scope.InsideTrigger && zTab != "" {
		for _, trig := range scope.TriggerRows {
			if !equalFold(trig.Name, zTab) {
				continue
			}
			for ci, col := range trig.Table.Columns {
				if equalFold(col.Name, zCol) {
					cnt++
					cntTab++
					matchTable = &trig.Table
					matchCol = col
					matchColIdx = ci
				}
			}
		}
	}

	// Step 4: rowid pseudo-column, exactly one candidate table in scope.
	if cnt == 0 && isRowidAlias(zCol) {
		var candidate *Table
		nCandidates := 0
		for i := range scope.Sources {
			t := &scope.Sources[i]
			if zTab != "" && !t.matchName(zTab) {
				continue
			}
			candidate = t
			nCandidates++
		}
		if nCandidates == 1 {
			n.Op = expr.OpColumn
			n.TableCursor = candidate.Cursor
			n.ColumnIndex = -1
			n.Affinity = expr.AffinityNumeric
			n.DBIndex = 0
			return
		}
	}

	// Step 5: alias rewrite against the result-set alias list, only
	// for an unqualified name.
	if cnt == 0 && zTab == "" && zDB == "" {
		for _, alias := range scope.Aliases {
			if equalFold(alias.Name, zCol) {
				// DeepCopy appends to this same arena, which may move
				// it; re-fetch n before writing to it.
				target := r.Tree.DeepCopy(r.Tree, alias.Expr)
				n = r.Tree.Node(ref)
				n.Op = expr.OpAsAlias
				n.AliasTarget = target
				n.Left = expr.NoRef
				n.Right = expr.NoRef
				return
			}
		}
	}

	// Step 6: a double-quoted identifier that didn't resolve is left
	// as-is for the caller to reinterpret as a string literal.
	if cnt == 0 && n.Op == expr.OpDoubleQuotedIdent {
		return
	}

	if cnt == 0 {
		ctx.RaiseError(arena.NameNotFound, "no such column: %s", qualifiedName(zDB, zTab, zCol))
		return
	}
	if cnt > 1 {
		ctx.RaiseError(arena.NameAmbiguous, "ambiguous column name: %s", qualifiedName(zDB, zTab, zCol))
		return
	}

	// Exactly one match: rewrite to a resolved column reference.
	n.Op = expr.OpColumn
	n.TableCursor = matchTable.Cursor
	if matchCol.IsRowid {
		n.ColumnIndex = -1
	} else {
		n.ColumnIndex = matchColIdx
	}
	n.Affinity = matchCol.Affinity
	n.Left, n.Right = expr.NoRef, expr.NoRef
}

func qualifiedName(db, tab, col string) string {
	switch {
	case db != "" && tab != "":
		return db + "." + tab + "." + col
	case tab != "":
		return tab + "." + col
	default:
		return col
	}
}

// bindIn implements spec §4.2 "IN handling". The right-hand side
// shape (subselect vs value list) is already recorded on the node by
// the parser: Subselect != nil means a nested SELECT, otherwise the
// node's Args list holds the candidate values.
func (r *Resolver) bindIn(ctx *arena.Ctx, scope *Scope, ref expr.Ref) {
	n := r.Tree.Node(ref)
	if n.Subselect != nil {
		if !n.Resolved {
			n.TableCursor = r.Alloc.NextCursor()
			n.Resolved = true
		}
		return
	}
	for _, item := range n.Args.Items {
		r.resolveNode(ctx, scope, item.Expr)
		if !r.Tree.IsConstant(item.Expr) {
			ctx.RaiseError(arena.Misuse, "right-hand side of IN operator must be constant")
			return
		}
	}
	if !n.Resolved {
		n.SetID = r.Alloc.NextSetID()
		n.Resolved = true
	}
}

// bindScalarSubselect implements spec §4.2 "Scalar subselect":
// allocate a memory cell and record it in ColumnIndex.
func (r *Resolver) bindScalarSubselect(ctx *arena.Ctx, ref expr.Ref) {
	n := r.Tree.Node(ref)
	if !n.Resolved {
		n.ColumnIndex = r.Alloc.NextMemCell()
		n.Resolved = true
	}
}

package resolve

import (
	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/expr"
)

// Check implements spec §4.2 "Function arity & existence check" and
// §6's check(parse-ctx, expr, allow-aggregates?, out-has-aggregate?)
// entry point. Recurses into arguments with the aggregate-context
// flag flipped off for the arguments of an aggregate call, to forbid
// nested aggregates.
func (r *Resolver) Check(ctx *arena.Ctx, root expr.Ref, allowAggregates bool) (errCount int, hasAggregate bool) {
	before := ctx.ErrCount()
	hasAggregate = r.check(ctx, root, allowAggregates)
	return ctx.ErrCount() - before, hasAggregate
}

func (r *Resolver) check(ctx *arena.Ctx, ref expr.Ref, allowAggregates bool) (hasAggregate bool) {
	n := r.Tree.Node(ref)
	if n == nil || ctx.OOM() {
		return false
	}

	switch n.Op {
	case expr.OpFunction, expr.OpAggregateFunction:
		name := r.Tree.TokenText(n.Token)
		arity := 0
		if n.HasArgs {
			arity = len(n.Args.Items)
		}
		binding, found := r.Registry.Lookup(name, arity)
		if !found {
			if r.Registry.ExistsAnyArity(name) {
				ctx.RaiseError(arena.Arity, "wrong number of arguments to function %s()", name)
			} else {
				ctx.RaiseError(arena.UnknownFunction, "no such function: %s", name)
			}
			return false
		}
		isAgg := binding.IsAggregate
		if isAgg {
			n.Op = expr.OpAggregateFunction
		}
		if isAgg && !allowAggregates {
			ctx.RaiseError(arena.AggregateMisuse, "misuse of aggregate function %s()", name)
			return false
		}
		// Arguments of an aggregate may not themselves be aggregates
		// (spec §4.2: "Recurse into arguments with the
		// aggregate-context flag flipped off for arguments of an
		// aggregate, to forbid nested aggregates").
		childAllow := allowAggregates && !isAgg
		childHasAgg := false
		if n.HasArgs {
			for _, item := range n.Args.Items {
				if r.check(ctx, item.Expr, childAllow) {
					childHasAgg = true
				}
			}
		}
		if isAgg {
			return true
		}
		return childHasAgg
	}

	left := r.check(ctx, n.Left, allowAggregates)
	right := r.check(ctx, n.Right, allowAggregates)
	hasAggregate = left || right
	if n.HasArgs {
		for _, item := range n.Args.Items {
			if r.check(ctx, item.Expr, allowAggregates) {
				hasAggregate = true
			}
		}
	}
	return hasAggregate
}

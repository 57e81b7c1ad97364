package emit

import "github.com/feyeleanor/relcore/expr"

// EmitList implements spec §4.3's "Expression list emission": emits
// each element's value form in order; if includeAffinities is set,
// also pushes a string "numeric" or "text" after each value. Returns
// the number of values pushed (n or 2n).
func (e *Emitter) EmitList(list *expr.List, includeAffinities bool) int {
	if list == nil {
		return 0
	}
	count := 0
	for _, item := range list.Items {
		e.EmitValue(item.Expr)
		count++
		if includeAffinities {
			e.Program.AddOp3(String, 0, 0, e.affinityName(item.Expr))
			count++
		}
	}
	return count
}

func (e *Emitter) affinityName(ref expr.Ref) string {
	n := e.Tree.Node(ref)
	if n != nil && n.Affinity == expr.AffinityNumeric {
		return "numeric"
	}
	return "text"
}

package resolve

import "github.com/feyeleanor/relcore/expr"

// Compare forwards to expr.Compare, exposed here because spec §6
// lists compare(a, b) -> bool alongside the other resolver entry
// points consumed by the statement compiler.
func (r *Resolver) Compare(a, b expr.Ref) bool {
	return expr.Compare(r.Tree, a, r.Tree, b)
}

// IsConstant forwards to expr.Tree.IsConstant (spec §6).
func (r *Resolver) IsConstant(ref expr.Ref) bool {
	return r.Tree.IsConstant(ref)
}

// IsInteger forwards to expr.Tree.IsInteger (spec §6).
func (r *Resolver) IsInteger(ref expr.Ref) (int32, bool) {
	return r.Tree.IsInteger(ref)
}

package resolve

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// Binding is a resolved function registration: the arity it was
// found at (may be -1 for variadic) and whether it is an aggregate.
// Opaque payload beyond that is left to the host (spec §4.2 calls
// this the "function binding").
type Binding struct {
	Name        string
	Arity       int // -1 means variadic
	IsAggregate bool
}

type registryKey struct {
	name  string
	arity int
}

// FuncRegistry is the function name/arity registry the checker
// consults (spec §4.2 "Function arity & existence check"). Backed by
// an LRU of resolved lookups (see SPEC_FULL.md's domain-stack note on
// github.com/hashicorp/golang-lru/v2, grounded on the docdb module's
// dependency closure) so that re-running the checker over the same
// tree twice — required to be idempotent by spec §8.2 — doesn't
// re-walk the registration list on every pass.
type FuncRegistry struct {
	byName map[string][]Binding
	cache  *lru.Cache[registryKey, Binding]
}

func NewFuncRegistry() *FuncRegistry {
	cache, _ := lru.New[registryKey, Binding](256)
	return &FuncRegistry{
		byName: make(map[string][]Binding),
		cache:  cache,
	}
}

// Register adds a function binding at a fixed arity, or -1 for a
// variadic function matched at any arity.
func (r *FuncRegistry) Register(name string, arity int, isAggregate bool) {
	key := normalizeFuncName(name)
	r.byName[key] = append(r.byName[key], Binding{Name: name, Arity: arity, IsAggregate: isAggregate})
	r.cache.Remove(registryKey{key, arity})
}

// Lookup finds a binding for name at exactly arity n, then retries at
// arity -1 (variadic) on miss (spec §4.2: "look up the name in the
// registry at arity n; on miss, retry with arity -1").
func (r *FuncRegistry) Lookup(name string, n int) (Binding, bool) {
	key := normalizeFuncName(name)
	if b, ok := r.cache.Get(registryKey{key, n}); ok {
		return b, true
	}
	for _, b := range r.byName[key] {
		if b.Arity == n {
			r.cache.Add(registryKey{key, n}, b)
			return b, true
		}
	}
	for _, b := range r.byName[key] {
		if b.Arity == -1 {
			r.cache.Add(registryKey{key, n}, b)
			return b, true
		}
	}
	return Binding{}, false
}

// ExistsAnyArity reports whether name is registered under some arity,
// used on a Lookup miss to tell "no such function" apart from "wrong
// number of arguments" (spec §4.2: "Missing → error; wrong arity →
// error" are distinct outcomes). Grounded on the teacher's
// FindFunction(zId, -2, ...) probe
// (_examples/feyeleanor-wendigo/resolve.go:450-457), which re-queries
// at a sentinel arity that matches no real call to ask "does this
// name exist at all" without caring which arity it was registered at.
func (r *FuncRegistry) ExistsAnyArity(name string) bool {
	key := normalizeFuncName(name)
	return len(r.byName[key]) > 0
}

func normalizeFuncName(name string) string {
	out := make([]byte, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

package arena

import "sync"

// Sticky holds the first error observed by a sorter instance (spec
// §4.4/§7: "An error, once observed, is sticky: subsequent operations
// are no-ops that re-surface the same code."). Guarded by a mutex
// because the multi-threaded sorter mode lets worker goroutines raise
// it concurrently with the main thread's own checks.
type Sticky struct {
	mu  sync.Mutex
	err *Status
}

// Test returns the stored error, if any, without modifying it. Every
// Sorter method calls this first (spec §7: "all methods test it
// first").
func (s *Sticky) Test() *Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Set records st as the sticky error if none is set yet, and returns
// whatever is now stored (the new error, or a pre-existing one that
// arrived first). The first error wins; later ones are dropped.
func (s *Sticky) Set(st *Status) *Status {
	if st == nil {
		return s.Test()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = st
	}
	return s.err
}

// Clear resets the sticky error. Used only by Sorter.Reset, which per
// spec §4.4 cheaply rewinds a sorter back to its init state.
func (s *Sticky) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = nil
}

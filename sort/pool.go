package sort

import (
	"github.com/panjf2000/ants/v2"

	"github.com/feyeleanor/relcore/arena"
)

// antsPool adapts github.com/panjf2000/ants/v2 to the ThreadPool
// interface (spec §6 "Thread primitives": spawn(fn, arg) -> handle;
// join(handle) -> status). Grounded on the ants.NewPool/Submit usage
// surveyed in _examples/KartikBazzad-bunbase's server wiring; ants
// supplies the fixed-size goroutine pool, the join handshake itself
// is a plain channel since ants.Submit is fire-and-forget.
type antsPool struct {
	pool *ants.Pool
}

// NewThreadPool returns a ThreadPool backed by an ants pool of size
// workers. Closing the returned pool is the caller's responsibility
// via Release once the sorter that owns it is closed.
func NewThreadPool(workers int) (*antsPool, error) {
	p, err := ants.NewPool(workers)
	if err != nil {
		return nil, err
	}
	return &antsPool{pool: p}, nil
}

func (p *antsPool) Release() { p.pool.Release() }

type antsHandle struct {
	done chan struct{}
	st   *arena.Status
}

func (h *antsHandle) Join() *arena.Status {
	<-h.done
	return h.st
}

func (p *antsPool) Spawn(fn func() *arena.Status) Handle {
	h := &antsHandle{done: make(chan struct{})}
	err := p.pool.Submit(func() {
		h.st = fn()
		close(h.done)
	})
	if err != nil {
		h.st = arena.New(arena.Misuse, "sort: thread pool submit failed: %v", err)
		close(h.done)
	}
	return h
}

package resolve

// Allocator hands out the fresh cursor indices, memory cells, and set
// identifiers the resolver needs while binding IN and scalar-subquery
// nodes (spec §4.2 "IN handling", "Scalar subselect"). The real
// B-tree cursor/register space is owned by the VM (out of scope per
// spec §1); this interface is the seam between the two.
type Allocator interface {
	NextCursor() int
	NextMemCell() int
	NextSetID() int
}

// Counters is the default Allocator: three independent monotonic
// counters, sufficient for tests and for any host that doesn't need
// to interleave these with its own cursor/register space.
type Counters struct {
	cursor, mem, set int
}

func (c *Counters) NextCursor() int  { c.cursor++; return c.cursor - 1 }
func (c *Counters) NextMemCell() int { c.mem++; return c.mem - 1 }
func (c *Counters) NextSetID() int   { c.set++; return c.set - 1 }

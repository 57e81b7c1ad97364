package sort

import "github.com/feyeleanor/relcore/arena"

// Stream is anything the tournament-tree merge can treat as one input
// reader: a PmaReader, an IncrMerger, or (at rewind with no PMA ever
// flushed) the in-memory sorted list itself.
type Stream interface {
	Key() []byte
	EOF() bool
	Advance() *arena.Status
}

// MergeEngine is the tournament-tree k-way merge of spec §4.4
// "Tournament-tree merge", grounded on vdbesort.c's MergeEngine
// (aTree/aReadr). Readers are conceptually padded out to the next
// power of two P with phantom always-EOF streams; tree holds, for
// each internal node i in [1,P), the reader index that currently wins
// that subtree. tree[1] always names the overall minimum.
type MergeEngine struct {
	cmp      KeyComparer
	scratch  UnpackedRecord
	readers  []Stream
	p        int
	tree     []int
}

// NewMergeEngine builds the tree bottom-up in a single pass: every
// internal node's two children (2i, 2i+1) are either already-computed
// internal winners or, once 2i >= P, the raw reader index of a leaf.
func NewMergeEngine(cmp KeyComparer, scratch UnpackedRecord, readers []Stream) *MergeEngine {
	m := &MergeEngine{
		cmp:     cmp,
		scratch: scratch,
		readers: readers,
		p:       nextPow2(len(readers)),
	}
	if m.p > 1 {
		m.tree = make([]int, m.p)
		for i := m.p - 1; i >= 1; i-- {
			m.recompute(i)
		}
	}
	return m
}

func nextPow2(n int) int {
	if n <= 1 {
		return n
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// childWinner resolves tree slot index (in the shared [1,2P) index
// space) to the reader index it currently names: a leaf slot (>= P)
// is the reader at node-P directly; an internal slot is whatever was
// last stored at tree[node].
func (m *MergeEngine) childWinner(node int) int {
	if node >= m.p {
		return node - m.p
	}
	return m.tree[node]
}

// less orders two reader indices: an out-of-range or EOF reader
// always loses; ties (equal keys, or both EOF) resolve to the lower
// index, preserving a stable merge order (spec §4.4 "ties resolve in
// favour of the lower reader index").
func (m *MergeEngine) less(a, b int) bool {
	aEOF := a >= len(m.readers) || m.readers[a].EOF()
	bEOF := b >= len(m.readers) || m.readers[b].EOF()
	switch {
	case aEOF && bEOF:
		return a <= b
	case aEOF:
		return false
	case bEOF:
		return true
	}
	if c := m.cmp.Compare(m.readers[a].Key(), m.readers[b].Key(), m.scratch); c != 0 {
		return c < 0
	}
	return a <= b
}

func (m *MergeEngine) recompute(node int) {
	left := m.childWinner(2 * node)
	right := m.childWinner(2*node + 1)
	if m.less(left, right) {
		m.tree[node] = left
	} else {
		m.tree[node] = right
	}
}

// Winner returns the reader index currently holding the minimum key.
func (m *MergeEngine) Winner() int {
	if m.p <= 1 {
		return 0
	}
	return m.tree[1]
}

func (m *MergeEngine) Key() []byte { return m.readers[m.Winner()].Key() }
func (m *MergeEngine) EOF() bool   { return m.readers[m.Winner()].EOF() }

// Advance pops the current minimum, advances its reader, and repairs
// the tree by recomputing every ancestor of that reader's leaf (spec
// §4.4 "roughly log2 P comparisons per advance").
func (m *MergeEngine) Advance() *arena.Status {
	if m.p <= 1 {
		if len(m.readers) == 1 {
			return m.readers[0].Advance()
		}
		return nil
	}
	winner := m.Winner()
	if st := m.readers[winner].Advance(); st != nil {
		return st
	}
	for node := (winner + m.p) / 2; node >= 1; node /= 2 {
		m.recompute(node)
	}
	return nil
}

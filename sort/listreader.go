package sort

import "github.com/feyeleanor/relcore/arena"

// listStream adapts an already-sorted SorterRecord linked list to the
// Stream interface, used at rewind when no PMA was ever flushed:
// "sort the in-memory list and serve reads directly from it" (spec
// §4.4 "Rewind").
type listStream struct {
	cur *SorterRecord
}

func newListStream(head *SorterRecord) *listStream { return &listStream{cur: head} }

func (s *listStream) Key() []byte { return s.cur.Data }
func (s *listStream) EOF() bool   { return s.cur == nil }
func (s *listStream) Advance() *arena.Status {
	if s.cur != nil {
		s.cur = s.cur.Next
	}
	return nil
}

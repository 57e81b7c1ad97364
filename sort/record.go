package sort

// SorterRecord is one buffered record awaiting a flush, grounded on
// vdbesort.c's SorterRecord (its u.pNext/u.iPmaSize union collapses
// here into two separate fields since Go has no union).
//
// Seq is the record's write-order sequence number, assigned by
// Sorter.Write. The in-memory merge sort's comparator breaks ties on
// Seq rather than relying on merge order, which keeps stability (spec
// §8 property 6) correct independent of how the 64-bin merge happens
// to thread its lists together.
type SorterRecord struct {
	Data []byte
	Seq  int64
	Next *SorterRecord
}

// SorterList is the in-memory working list accumulated between
// flushes (vdbesort.c's SorterList: a singly-linked list plus a
// running byte total used by the write-path threshold check).
type SorterList struct {
	Head     *SorterRecord
	Count    int
	DataSize int64
}

// Append adds rec to the front of the list. Order within the list is
// irrelevant to correctness (Sort always produces a fully-ordered
// result keyed by comparator + Seq); prepending keeps Append O(1).
func (l *SorterList) Append(rec *SorterRecord) {
	rec.Next = l.Head
	l.Head = rec
	l.Count++
	l.DataSize += int64(len(rec.Data))
}

// Reset empties the list without releasing the backing records (the
// caller has already taken ownership of Head, e.g. by handing it to a
// flush).
func (l *SorterList) Reset() {
	l.Head = nil
	l.Count = 0
	l.DataSize = 0
}

// recordCompare produces a comparator closed over a KeyComparer and
// its scratch UnpackedRecord, used by both the 64-bin in-memory sort
// and the tournament-tree merge's EOF-aware ordering.
func recordCompare(cmp KeyComparer, scratch UnpackedRecord) func(a, b *SorterRecord) int {
	return func(a, b *SorterRecord) int {
		if c := cmp.Compare(a.Data, b.Data, scratch); c != 0 {
			return c
		}
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		default:
			return 0
		}
	}
}

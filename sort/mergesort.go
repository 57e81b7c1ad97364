package sort

// sortRecords implements the 64-bin in-memory merge sort described in
// spec §4.4 "In-memory sort", grounded on vdbesort.c's
// vdbeSorterSort/vdbeSorterMerge: each incoming record starts as a
// singleton list and is folded into a fixed array of bins, merging
// with bin i and clearing it until an empty bin is found. Once every
// input record has been folded in, the occupied bins are merged
// left-to-right into the final ordered list.
const sortBinCount = 64

func sortRecords(head *SorterRecord, compare func(a, b *SorterRecord) int) *SorterRecord {
	var bins [sortBinCount]*SorterRecord

	for p := head; p != nil; {
		next := p.Next
		p.Next = nil
		cur := p

		placed := false
		for i := 0; i < sortBinCount; i++ {
			if bins[i] == nil {
				bins[i] = cur
				placed = true
				break
			}
			cur = mergeRecords(bins[i], cur, compare)
			bins[i] = nil
		}
		if !placed {
			// Every bin was occupied (2^64 records folded without a
			// gap, never reachable in practice); fold the overflow
			// into the last bin rather than drop it.
			bins[sortBinCount-1] = mergeRecords(bins[sortBinCount-1], cur, compare)
		}
		p = next
	}

	var result *SorterRecord
	for i := 0; i < sortBinCount; i++ {
		if bins[i] != nil {
			result = mergeRecords(result, bins[i], compare)
		}
	}
	return result
}

// mergeRecords merges two already-sorted singly-linked lists into
// one sorted list. Either argument may be nil.
func mergeRecords(a, b *SorterRecord, compare func(x, y *SorterRecord) int) *SorterRecord {
	var head, tail *SorterRecord
	appendNode := func(n *SorterRecord) {
		if tail == nil {
			head = n
		} else {
			tail.Next = n
		}
		tail = n
	}
	for a != nil && b != nil {
		if compare(a, b) <= 0 {
			appendNode(a)
			a = a.Next
		} else {
			appendNode(b)
			b = b.Next
		}
	}
	for a != nil {
		appendNode(a)
		a = a.Next
	}
	for b != nil {
		appendNode(b)
		b = b.Next
	}
	if tail != nil {
		tail.Next = nil
	}
	return head
}

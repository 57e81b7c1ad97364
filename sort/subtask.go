package sort

import "github.com/feyeleanor/relcore/arena"

// pmaRun records where one flushed PMA landed within a subtask's
// file, so rewind can reopen readers over it.
type pmaRun struct {
	base int64
	size int64
}

// SortSubtask is one worker's private state (spec §5 "Only the
// subtask's own list, file, file2, and scratch objects are touched by
// its worker"), grounded on vdbesort.c's SortSubtask. Nothing in this
// package assigns file2 (wrapIncremental opens its own temp files for
// each IncrMerger); Sorter.Close closes it only if it is set.
type SortSubtask struct {
	list    SorterList
	file    TempFile
	file2   TempFile
	scratch UnpackedRecord
	runs    []pmaRun
	next    int64 // next free offset in file
	sticky  arena.Sticky
}

// flush sorts the subtask's current list and appends it to file as
// one PMA, recording the run for later rewind.
func (s *SortSubtask) flush(cmp KeyComparer, pageSize int, compress bool) *arena.Status {
	if st := s.sticky.Test(); st != nil {
		return st
	}
	if s.list.Head == nil {
		return nil
	}
	sorted := sortRecords(s.list.Head, recordCompare(cmp, s.scratch))
	s.list.Reset()

	var records []*SorterRecord
	for p := sorted; p != nil; p = p.Next {
		records = append(records, p)
	}

	base := s.next
	size, st := WritePMA(s.file, base, pageSize, records, compress)
	if st != nil {
		return s.sticky.Set(st)
	}
	s.runs = append(s.runs, pmaRun{base: base, size: size})
	s.next += size
	return nil
}

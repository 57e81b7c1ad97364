package sort

import (
	"golang.org/x/sync/errgroup"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/config"
)

type sorterState int

const (
	stateInit sorterState = iota
	stateWriting
	stateReading
	stateClosed
)

// Sorter is the external merge-sort engine of spec §4.4, grounded on
// vdbesort.c's VdbeSorter. One Sorter is owned by one VM cursor
// (spec §6: "init(db, n-key-fields, cursor) -> status; creates a
// sorter owned by the cursor") and enforces the lifecycle
// init -> [write]* -> rewind -> [rowkey|advance|compare]* -> close,
// with reset cheaply rewinding back to init.
type Sorter struct {
	cmp      KeyComparer
	factory  RecordFactory
	vfs      TempVFS
	heap     HeapHint
	tunables config.Tunables
	pool     *antsPool

	nKeyFields int
	state      sorterState
	seq        int64
	sticky     arena.Sticky

	list SorterList

	subtasks     []*SortSubtask
	fgIndex      int // index of the foreground subtask; [0,fgIndex) are background workers
	rrIndex      int
	pendingFlush []Handle // len == fgIndex; nil entry means that worker is idle

	root Stream
	eof  bool
}

// NewSorter wires the host callbacks required by spec §6 into a
// fresh, uninitialised Sorter. Call Init before writing.
func NewSorter(cmp KeyComparer, factory RecordFactory, vfs TempVFS, heap HeapHint, tunables config.Tunables) *Sorter {
	return &Sorter{cmp: cmp, factory: factory, vfs: vfs, heap: heap, tunables: tunables}
}

func (s *Sorter) newScratch() UnpackedRecord { return s.factory.NewScratch(s.nKeyFields) }

// Init opens one temp file per subtask (spec §5: "temporary files are
// owned exclusively by their subtask") and, when WorkerCount > 1,
// stands up the background thread pool.
func (s *Sorter) Init(nKeyFields int) *arena.Status {
	if err := s.tunables.Validate(); err != nil {
		return s.sticky.Set(arena.New(arena.Misuse, "sort: %v", err))
	}
	s.nKeyFields = nKeyFields

	workers := s.tunables.WorkerCount
	if workers < 1 {
		workers = 1
	}
	s.fgIndex = workers - 1
	s.subtasks = make([]*SortSubtask, workers)
	for i := range s.subtasks {
		f, err := s.vfs.OpenTemp()
		if err != nil {
			return s.sticky.Set(arena.New(arena.IO, "sort: open temp failed: %v", err))
		}
		s.subtasks[i] = &SortSubtask{file: f, scratch: s.newScratch()}
	}
	if workers > 1 {
		pool, err := NewThreadPool(workers - 1)
		if err != nil {
			return s.sticky.Set(arena.New(arena.Misuse, "sort: thread pool init failed: %v", err))
		}
		s.pool = pool
		s.pendingFlush = make([]Handle, workers-1)
	}
	s.state = stateInit
	return nil
}

// Write buffers one record, flushing the working list to a PMA when
// either threshold of spec §4.4's write path is crossed.
func (s *Sorter) Write(data []byte) *arena.Status {
	if st := s.sticky.Test(); st != nil {
		return st
	}
	if s.state != stateInit && s.state != stateWriting {
		return s.sticky.Set(arena.New(arena.Misuse, "sort: write called out of order"))
	}
	s.state = stateWriting

	rec := &SorterRecord{Data: append([]byte(nil), data...), Seq: s.seq}
	s.seq++
	s.list.Append(rec)

	needFlush := s.list.DataSize > s.tunables.MaxPMASize ||
		(s.list.DataSize > s.tunables.MinPMASize && s.heap != nil && s.heap.NearlyFull())
	if needFlush {
		return s.flushForeground()
	}
	return nil
}

// flushForeground hands the current working list off to a subtask by
// ownership transfer (spec §5: "the main thread transfers the
// in-memory list... into the subtask's list field before spawning the
// worker, and retains no reference until join") and either runs the
// flush inline (single-threaded) or dispatches it round-robin to a
// background worker.
func (s *Sorter) flushForeground() *arena.Status {
	idx, st := s.acquireSubtask()
	if st != nil {
		return s.sticky.Set(st)
	}
	sub := s.subtasks[idx]
	sub.list = s.list
	s.list.Reset()

	if s.pool == nil || idx == s.fgIndex {
		return s.sticky.Set(sub.flush(s.cmp, s.tunables.PageSize, s.tunables.CompressPMA))
	}
	cmp := s.cmp
	pageSize := s.tunables.PageSize
	compress := s.tunables.CompressPMA
	s.pendingFlush[idx] = s.pool.Spawn(func() *arena.Status {
		return sub.flush(cmp, pageSize, compress)
	})
	return nil
}

// acquireSubtask picks the next background worker round-robin,
// blocking to join it first if it is still busy with a prior flush —
// one of the two suspension points spec §5 permits the main thread.
// With no pool configured (single-threaded mode) the foreground
// subtask is always returned.
func (s *Sorter) acquireSubtask() (int, *arena.Status) {
	if s.pool == nil {
		return s.fgIndex, nil
	}
	idx := s.rrIndex
	s.rrIndex = (s.rrIndex + 1) % s.fgIndex
	if h := s.pendingFlush[idx]; h != nil {
		s.pendingFlush[idx] = nil
		if st := h.Join(); st != nil {
			return idx, st
		}
	}
	return idx, nil
}

// Rewind terminates the write phase and readies the read phase (spec
// §4.4 "Rewind"). With no PMA ever flushed, the in-memory list is
// sorted and served directly; otherwise the remaining list is flushed
// as a final PMA, every outstanding writer is joined highest-index
// first, and the merge-engine tree is built and seeded.
func (s *Sorter) Rewind() (bool, *arena.Status) {
	if st := s.sticky.Test(); st != nil {
		return true, st
	}
	if s.state != stateInit && s.state != stateWriting {
		return true, s.sticky.Set(arena.New(arena.Misuse, "sort: rewind called out of order"))
	}

	anyFlushed := false
	for _, sub := range s.subtasks {
		if len(sub.runs) > 0 {
			anyFlushed = true
			break
		}
	}

	if !anyFlushed {
		sorted := sortRecords(s.list.Head, recordCompare(s.cmp, s.newScratch()))
		s.list.Reset()
		s.root = newListStream(sorted)
		s.state = stateReading
		s.eof = s.root.EOF()
		return s.eof, nil
	}

	if s.list.Head != nil {
		if st := s.flushForeground(); st != nil {
			return true, st
		}
	}

	// Spec §4.4: "Joining is done main-thread-last, from the
	// highest-indexed worker downwards, to avoid a worker joining
	// another worker still holding a lock the main thread wants to
	// reclaim."
	for i := s.fgIndex - 1; i >= 0; i-- {
		if h := s.pendingFlush[i]; h != nil {
			s.pendingFlush[i] = nil
			if st := h.Join(); st != nil {
				return true, s.sticky.Set(st)
			}
		}
	}

	var streams []Stream
	for _, sub := range s.subtasks {
		for _, run := range sub.runs {
			r, st := OpenPmaReader(sub.file, run.base, s.tunables.PageSize)
			if st != nil {
				return true, s.sticky.Set(st)
			}
			streams = append(streams, r)
		}
	}

	root, st := s.buildMergeTree(streams)
	if st != nil {
		return true, s.sticky.Set(st)
	}
	s.root = root
	s.state = stateReading
	s.eof = root.EOF()
	return s.eof, nil
}

// buildMergeTree implements spec §4.4 "Incremental & multi-level
// merge": when the PMA count exceeds the fan-in constant, groups of
// up to FanIn streams are merged and each group's merge engine is
// wrapped in an IncrMerger, recursively, until one root engine of at
// most FanIn readers remains. Sibling subtrees at the same level are
// constructed concurrently via errgroup when the sorter is running
// multi-threaded.
func (s *Sorter) buildMergeTree(streams []Stream) (Stream, *arena.Status) {
	if len(streams) <= s.tunables.FanIn {
		return NewMergeEngine(s.cmp, s.newScratch(), streams), nil
	}

	groups := chunkStreams(streams, s.tunables.FanIn)
	next := make([]Stream, len(groups))

	if s.pool != nil {
		var g errgroup.Group
		for i, grp := range groups {
			i, grp := i, grp
			g.Go(func() error {
				wrapped, st := s.wrapIncremental(grp)
				if st != nil {
					return st
				}
				next[i] = wrapped
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			if st, ok := err.(*arena.Status); ok {
				return nil, st
			}
			return nil, arena.New(arena.IO, "sort: merge-tree construction failed: %v", err)
		}
	} else {
		for i, grp := range groups {
			wrapped, st := s.wrapIncremental(grp)
			if st != nil {
				return nil, st
			}
			next[i] = wrapped
		}
	}
	return s.buildMergeTree(next)
}

func chunkStreams(streams []Stream, size int) [][]Stream {
	var out [][]Stream
	for len(streams) > 0 {
		n := size
		if n > len(streams) {
			n = len(streams)
		}
		out = append(out, streams[:n])
		streams = streams[n:]
	}
	return out
}

func (s *Sorter) wrapIncremental(group []Stream) (Stream, *arena.Status) {
	child := NewMergeEngine(s.cmp, s.newScratch(), group)
	cur, err := s.vfs.OpenTemp()
	if err != nil {
		return nil, arena.New(arena.IO, "sort: open temp failed: %v", err)
	}
	var next TempFile
	var pool ThreadPool // left nil unless s.pool is set: a nil *antsPool boxed
	// into this interface would compare != nil, breaking IncrMerger's
	// single-threaded detection.
	if s.pool != nil {
		next, err = s.vfs.OpenTemp()
		if err != nil {
			return nil, arena.New(arena.IO, "sort: open temp failed: %v", err)
		}
		pool = s.pool
	}
	im := NewIncrMerger(child, cur, next, pool, s.tunables.MaxPMASize, s.tunables.PageSize, s.tunables.CompressPMA)
	if st := im.Init(); st != nil {
		return nil, st
	}
	return im, nil
}

// Advance is spec §4.4 "Advance / key-access": pops the current
// minimum and walks the tournament tree's repair path.
func (s *Sorter) Advance() (bool, *arena.Status) {
	if st := s.sticky.Test(); st != nil {
		return true, st
	}
	if s.state != stateReading {
		return true, s.sticky.Set(arena.New(arena.Misuse, "sort: advance called out of order"))
	}
	if s.eof {
		return true, nil
	}
	if st := s.root.Advance(); st != nil {
		return true, s.sticky.Set(st)
	}
	s.eof = s.root.EOF()
	return s.eof, nil
}

// RowKey returns the current key, valid until the next Advance (spec
// §4.4).
func (s *Sorter) RowKey() ([]byte, *arena.Status) {
	if st := s.sticky.Test(); st != nil {
		return nil, st
	}
	if s.state != stateReading {
		return nil, s.sticky.Set(arena.New(arena.Misuse, "sort: rowkey called out of order"))
	}
	if s.eof {
		return nil, arena.New(arena.Misuse, "sort: rowkey called at eof")
	}
	return s.root.Key(), nil
}

// Compare decodes the current sorter key and returns its three-valued
// comparison against a caller-owned key (spec §4.4 "compare").
// ignoreTrailingN is honoured only when the configured KeyComparer
// also implements TrailingTrimmer.
func (s *Sorter) Compare(key []byte, ignoreTrailingN int) (int, *arena.Status) {
	if st := s.sticky.Test(); st != nil {
		return 0, st
	}
	if s.state != stateReading {
		return 0, s.sticky.Set(arena.New(arena.Misuse, "sort: compare called out of order"))
	}
	if s.eof {
		return 0, arena.New(arena.Misuse, "sort: compare called at eof")
	}

	cur := s.root.Key()
	if ignoreTrailingN > 0 {
		if trimmer, ok := s.cmp.(TrailingTrimmer); ok {
			cur = trimmer.TrimTrailing(cur, ignoreTrailingN)
			key = trimmer.TrimTrailing(key, ignoreTrailingN)
		}
	}

	scratch := s.newScratch()
	result := s.cmp.Compare(cur, key, scratch)
	if st := scratch.Err(); st != nil {
		return 0, s.sticky.Set(st)
	}
	return result, nil
}

// Reset cheaply rewinds the sorter back to init state (spec §4.4
// "reset rewinds to init cheaply"), clearing the sticky error too —
// unlike arena.Ctx's OOM flag, a sorter's error does not outlive a
// reset.
func (s *Sorter) Reset() *arena.Status {
	s.sticky.Clear()
	s.list.Reset()
	for _, sub := range s.subtasks {
		sub.list.Reset()
		sub.runs = nil
		sub.next = 0
		sub.sticky.Clear()
	}
	s.pendingFlush = make([]Handle, s.fgIndex)
	s.rrIndex = 0
	s.root = nil
	s.eof = false
	s.seq = 0
	s.state = stateInit
	return nil
}

// Close always releases resources regardless of error state (spec
// §4.4/§7: "close always releases resources regardless of error
// state").
func (s *Sorter) Close() *arena.Status {
	for i := s.fgIndex - 1; i >= 0; i-- {
		if h := s.pendingFlush[i]; h != nil {
			h.Join()
			s.pendingFlush[i] = nil
		}
	}
	for _, sub := range s.subtasks {
		if sub.file != nil {
			sub.file.Close()
		}
		if sub.file2 != nil {
			sub.file2.Close()
		}
	}
	if s.pool != nil {
		s.pool.Release()
	}
	s.state = stateClosed
	return nil
}

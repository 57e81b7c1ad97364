package sort

import "github.com/feyeleanor/relcore/arena"

// IncrMerger is a non-leaf reader in a multi-level merge tree (spec
// §4.4 "Incremental & multi-level merge"): rather than materialising
// its entire child subtree up front, it refills a bounded backing
// region of a temp file on demand, reusing the PMA write/read format
// for that region. Grounded on vdbesort.c's IncrMerger: single-
// threaded mode reuses one backing file; multi-threaded mode
// alternates between two ("current"/"next"), refilling the idle one
// in the background while the main thread drains the other.
type IncrMerger struct {
	child      Stream
	pool       ThreadPool
	pageSize   int
	regionSize int64
	compress   bool

	current TempFile
	next    TempFile // nil unless pool != nil (multi-threaded mode)

	reader     Stream
	childDone  bool
	populating Handle
	nextSize   int64
	nextErr    *arena.Status
}

// NewIncrMerger constructs a merger over child, backed by current
// (and, for multi-threaded mode, next). Init must be called before
// use.
func NewIncrMerger(child Stream, current, next TempFile, pool ThreadPool, regionSize int64, pageSize int, compress bool) *IncrMerger {
	return &IncrMerger{
		child:      child,
		current:    current,
		next:       next,
		pool:       pool,
		regionSize: regionSize,
		pageSize:   pageSize,
		compress:   compress,
	}
}

// Init performs the first synchronous population of the backing
// region and, in multi-threaded mode, kicks off a background
// population of the alternate file.
func (m *IncrMerger) Init() *arena.Status {
	size, eof, st := m.populate(m.current)
	if st != nil {
		return st
	}
	m.childDone = eof
	if size == 0 {
		m.reader = newListStream(nil)
		return nil
	}
	reader, st := OpenPmaReader(m.current, 0, m.pageSize)
	if st != nil {
		return st
	}
	m.reader = reader
	m.maybePrefetch()
	return nil
}

// populate drains records from the child stream into file, as a PMA,
// until either regionSize bytes have been buffered or the child is
// exhausted.
func (m *IncrMerger) populate(file TempFile) (size int64, eof bool, st *arena.Status) {
	var records []*SorterRecord
	var used int64
	for !m.child.EOF() {
		key := m.child.Key()
		records = append(records, &SorterRecord{Data: append([]byte(nil), key...)})
		used += int64(len(key))
		if st := m.child.Advance(); st != nil {
			return 0, false, st
		}
		if used >= m.regionSize {
			break
		}
	}
	if len(records) == 0 {
		return 0, m.child.EOF(), nil
	}
	n, st := WritePMA(file, 0, m.pageSize, records, m.compress)
	if st != nil {
		return 0, false, st
	}
	return n, m.child.EOF(), nil
}

// maybePrefetch starts a background refill of the alternate file
// when running multi-threaded and the child has more to give.
func (m *IncrMerger) maybePrefetch() {
	if m.pool == nil || m.next == nil || m.childDone || m.populating != nil {
		return
	}
	next := m.next
	m.populating = m.pool.Spawn(func() *arena.Status {
		size, eof, st := m.populate(next)
		m.nextSize = size
		m.childDone = m.childDone || eof
		m.nextErr = st
		return st
	})
}

func (m *IncrMerger) Key() []byte { return m.reader.Key() }
func (m *IncrMerger) EOF() bool   { return m.reader.EOF() }

// Advance steps the current backing reader, refilling its region
// (joining a background populate first, if one is in flight) when it
// runs out and the child still has data.
func (m *IncrMerger) Advance() *arena.Status {
	if st := m.reader.Advance(); st != nil {
		return st
	}
	if !m.reader.EOF() {
		return nil
	}
	if m.populating != nil {
		// Spec §5 "Suspension/blocking": advance always joins the
		// populator before reading its region.
		if st := m.populating.Join(); st != nil {
			return st
		}
		m.populating = nil
		if m.nextErr != nil {
			return m.nextErr
		}
		m.current, m.next = m.next, m.current
		if m.nextSize == 0 {
			m.reader = newListStream(nil)
			return nil
		}
		reader, st := OpenPmaReader(m.current, 0, m.pageSize)
		if st != nil {
			return st
		}
		m.reader = reader
		m.maybePrefetch()
		return nil
	}
	if m.childDone {
		return nil
	}
	// Single-threaded, or no prefetch in flight: populate the current
	// region synchronously.
	size, eof, st := m.populate(m.current)
	if st != nil {
		return st
	}
	m.childDone = eof
	if size == 0 {
		m.reader = newListStream(nil)
		return nil
	}
	reader, st := OpenPmaReader(m.current, 0, m.pageSize)
	if st != nil {
		return st
	}
	m.reader = reader
	m.maybePrefetch()
	return nil
}

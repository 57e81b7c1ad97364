package sort

import (
	"io"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/config"
)

// memFile is an in-memory TempFile fake; Fetch always declines so
// every test exercises the buffered PMA read path rather than the
// memory-mapped one.
type memFile struct{ buf []byte }

func (f *memFile) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.buf)) {
		return 0, io.EOF
	}
	n := copy(p, f.buf[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *memFile) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(f.buf)) {
		grown := make([]byte, end)
		copy(grown, f.buf)
		f.buf = grown
	}
	copy(f.buf[off:end], p)
	return len(p), nil
}

func (f *memFile) Truncate(size int64) error {
	if size < int64(len(f.buf)) {
		f.buf = f.buf[:size]
	}
	return nil
}
func (f *memFile) Close() error                     { return nil }
func (f *memFile) Fetch(off, n int64) ([]byte, bool) { return nil, false }
func (f *memFile) Unfetch(off int64, data []byte)    {}

type memVFS struct{}

func (memVFS) OpenTemp() (TempFile, error) { return &memFile{}, nil }
func (memVFS) ControlMmapSize(int64)       {}
func (memVFS) Now() int64                  { return 0 }

// byteKeyComparer treats a record's first byte as its sort key; the
// remainder is an opaque payload (a "tag") carried through untouched.
type byteKeyComparer struct{}

func (byteKeyComparer) Compare(left, right []byte, _ UnpackedRecord) int {
	switch {
	case left[0] < right[0]:
		return -1
	case left[0] > right[0]:
		return 1
	default:
		return 0
	}
}

type noopScratch struct{}

func (noopScratch) Err() *arena.Status { return nil }

type fixedFactory struct{}

func (fixedFactory) NewScratch(int) UnpackedRecord { return noopScratch{} }

type neverFull struct{}

func (neverFull) NearlyFull() bool { return false }

func newTestSorter(tun config.Tunables) *Sorter {
	return NewSorter(byteKeyComparer{}, fixedFactory{}, memVFS{}, neverFull{}, tun)
}

func drain(t *testing.T, s *Sorter) [][]byte {
	assert := assert.New(t)
	var out [][]byte
	eof, st := s.Rewind()
	assert.Nil(st)
	for !eof {
		key, st := s.RowKey()
		assert.Nil(st)
		out = append(out, append([]byte(nil), key...))
		eof, st = s.Advance()
		assert.Nil(st)
	}
	return out
}

// TestSorterRoundTripInMemory is spec §8 scenario E.
func TestSorterRoundTripInMemory(t *testing.T) {
	assert := assert.New(t)

	tun := config.Default()
	tun.WorkerCount = 1
	tun.MaxPMASize = 1 << 30
	tun.MinPMASize = 1 << 30

	s := newTestSorter(tun)
	assert.Nil(s.Init(1))

	keys := []byte{5, 2, 5, 1, 3}
	tags := []byte{'a', 'b', 'c', 'd', 'e'}
	for i := range keys {
		assert.Nil(s.Write([]byte{keys[i], tags[i]}))
	}

	got := drain(t, s)
	want := [][]byte{{1, 'd'}, {2, 'b'}, {3, 'e'}, {5, 'a'}, {5, 'c'}}
	assert.Equal(want, got)
}

// TestSorterRoundTripSpilled is spec §8 scenario F: the same input,
// forced to spill after every two records, must produce exactly three
// PMAs and the same output as scenario E.
func TestSorterRoundTripSpilled(t *testing.T) {
	assert := assert.New(t)

	tun := config.Default()
	tun.WorkerCount = 1
	tun.MaxPMASize = 3 // two 2-byte records (4 bytes) exceeds this
	tun.MinPMASize = 1 << 30

	s := newTestSorter(tun)
	assert.Nil(s.Init(1))

	keys := []byte{5, 2, 5, 1, 3}
	tags := []byte{'a', 'b', 'c', 'd', 'e'}
	for i := range keys {
		assert.Nil(s.Write([]byte{keys[i], tags[i]}))
	}

	got := drain(t, s)
	want := [][]byte{{1, 'd'}, {2, 'b'}, {3, 'e'}, {5, 'a'}, {5, 'c'}}
	assert.Equal(want, got)
	assert.Equal(3, len(s.subtasks[0].runs), "exactly three PMAs must have been written")
}

// TestSorterStabilityAcrossPmas is spec §8 property 6, exercised
// across PMA boundaries rather than only within one in-memory sort:
// equal keys flushed into separate PMAs must still come back out in
// original write order.
func TestSorterStabilityAcrossPmas(t *testing.T) {
	assert := assert.New(t)

	tun := config.Default()
	tun.WorkerCount = 1
	tun.MaxPMASize = 1 // force a flush after nearly every write
	tun.MinPMASize = 1 << 30

	s := newTestSorter(tun)
	assert.Nil(s.Init(1))

	tags := []byte{'a', 'b', 'c', 'd'}
	for _, tag := range tags {
		assert.Nil(s.Write([]byte{5, tag}))
	}

	got := drain(t, s)
	assert.True(len(s.subtasks[0].runs) > 1, "the forced threshold must have produced more than one PMA")
	want := [][]byte{{5, 'a'}, {5, 'b'}, {5, 'c'}, {5, 'd'}}
	assert.Equal(want, got)
}

// TestSorterMonotonicMultiLevel is spec §8 property 7, run with a
// fan-in small enough to force the multi-level merge-engine tree of
// spec §4.4 "Incremental & multi-level merge".
func TestSorterMonotonicMultiLevel(t *testing.T) {
	assert := assert.New(t)

	tun := config.Default()
	tun.WorkerCount = 1
	tun.FanIn = 2
	tun.MaxPMASize = 1
	tun.MinPMASize = 1 << 30

	s := newTestSorter(tun)
	assert.Nil(s.Init(1))

	keys := []byte{7, 3, 9, 1, 4, 4, 2, 8, 0, 6}
	for i, k := range keys {
		assert.Nil(s.Write([]byte{k, byte(i)}))
	}

	got := drain(t, s)
	assert.Equal(len(keys), len(got))
	for i := 1; i < len(got); i++ {
		assert.LessOrEqual(got[i-1][0], got[i][0], "consecutive keys must be non-decreasing")
	}

	sorted := append([]byte(nil), keys...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var gotKeys []byte
	for _, k := range got {
		gotKeys = append(gotKeys, k[0])
	}
	assert.Equal(sorted, gotKeys)
}

// TestTournamentTreeInvariant is spec §8 property 9: after each
// advance the winner's key must be less-or-equal to every non-EOF
// reader's key.
func TestTournamentTreeInvariant(t *testing.T) {
	assert := assert.New(t)

	lists := [][]byte{
		{1, 4, 9},
		{2, 2, 8},
		{0, 5, 6},
		{3, 7},
		{},
	}
	var streams []Stream
	for _, vals := range lists {
		var head, tail *SorterRecord
		for _, v := range vals {
			rec := &SorterRecord{Data: []byte{v}}
			if tail == nil {
				head = rec
			} else {
				tail.Next = rec
			}
			tail = rec
		}
		streams = append(streams, newListStream(head))
	}

	m := NewMergeEngine(byteKeyComparer{}, noopScratch{}, streams)
	checkInvariant := func() {
		winner := m.Winner()
		if m.readers[winner].EOF() {
			for _, r := range m.readers {
				assert.True(r.EOF(), "once the winner is EOF every reader must be EOF")
			}
			return
		}
		wk := m.readers[winner].Key()[0]
		for i, r := range m.readers {
			if i == winner || r.EOF() {
				continue
			}
			assert.LessOrEqual(wk, r.Key()[0])
		}
	}

	total := 0
	for _, v := range lists {
		total += len(v)
	}
	checkInvariant()
	for i := 0; i < total; i++ {
		assert.Nil(m.Advance())
		checkInvariant()
	}
}

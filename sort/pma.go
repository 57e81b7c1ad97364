package sort

import (
	"io"

	"github.com/dustin/go-humanize"
	"github.com/klauspost/compress/snappy"

	"github.com/feyeleanor/relcore/arena"
	"github.com/feyeleanor/relcore/internal/varint"
)

// PmaWriter is the page-aligned buffered writer described in spec
// §4.4 "PMA write format", grounded on vdbesort.c's PmaWriter: writes
// are coalesced into page-sized blocks and a final flush emits any
// short tail. Once the writer's error flag is set it discards all
// subsequent writes and surfaces the error at Finish.
type PmaWriter struct {
	file    TempFile
	base    int64 // absolute offset this PMA's data begins at
	written int64 // bytes written to file so far (absolute position = base+written)
	buf     []byte
	used    int
	err     *arena.Status
}

func newPmaWriter(file TempFile, base int64, pageSize int) *PmaWriter {
	return &PmaWriter{file: file, base: base, buf: make([]byte, pageSize)}
}

func (w *PmaWriter) setErr(st *arena.Status) {
	if w.err == nil {
		w.err = st
	}
}

func (w *PmaWriter) flushPage() {
	if w.err != nil || w.used == 0 {
		return
	}
	if _, err := w.file.WriteAt(w.buf[:w.used], w.base+w.written); err != nil {
		w.setErr(arena.New(arena.IO, "sort: pma write of %s failed: %v", humanize.Bytes(uint64(w.used)), err))
		return
	}
	w.written += int64(w.used)
	w.used = 0
}

func (w *PmaWriter) writeBytes(p []byte) {
	if w.err != nil {
		return
	}
	for len(p) > 0 {
		n := copy(w.buf[w.used:], p)
		w.used += n
		p = p[n:]
		if w.used == len(w.buf) {
			w.flushPage()
			if w.err != nil {
				return
			}
		}
	}
}

func (w *PmaWriter) writeVarint(v uint64) {
	var tmp [varint.MaxLen]byte
	n := varint.Put(tmp[:], v)
	w.writeBytes(tmp[:n])
}

// WritePMA serialises records (already sorted) as one PMA: a leading
// compression-flag byte (domain-stack addition, spec SPEC_FULL.md
// §4.4: snappy-compressed PMA pages), then a varint of total record
// bytes, followed by a varint-length-prefixed copy of each record
// (compressed individually with snappy when compress is true).
// Returns the number of bytes the PMA occupies on disk (including its
// own header), for use as the next PMA's base offset.
func WritePMA(file TempFile, base int64, pageSize int, records []*SorterRecord, compress bool) (size int64, st *arena.Status) {
	w := newPmaWriter(file, base, pageSize)

	payloads := records
	if compress {
		payloads = make([]*SorterRecord, len(records))
		for i, r := range records {
			payloads[i] = &SorterRecord{Data: snappy.Encode(nil, r.Data)}
		}
	}

	var total uint64
	for _, r := range payloads {
		total += uint64(varint.Len(uint64(len(r.Data)))) + uint64(len(r.Data))
	}

	if compress {
		w.writeBytes([]byte{1})
	} else {
		w.writeBytes([]byte{0})
	}
	w.writeVarint(total)
	for _, r := range payloads {
		w.writeVarint(uint64(len(r.Data)))
		w.writeBytes(r.Data)
	}
	w.flushPage()
	if w.err != nil {
		return 0, w.err
	}
	return w.written, nil
}

// PmaReader is the buffered reader described in spec §4.4 "PMA read
// format and buffering", grounded on vdbesort.c's PmaReader. In
// mapped mode (the host's TempFile.Fetch succeeded) reads return
// pointers directly into the map and buffering is skipped entirely;
// otherwise reads are served from a page-sized buffer, falling back
// to a growing allocation for records that straddle the buffer's
// edge.
type PmaReader struct {
	file TempFile

	cursor int64 // absolute offset of the next unread byte
	end    int64 // absolute offset one past this PMA's last record byte

	mapped    []byte // non-nil: direct map of [mapBase, end)
	mapBase   int64
	buf       []byte
	bufBase   int64
	bufLen    int
	alloc     []byte // scratch for a record split across a buffer refill
	pageSize   int
	compressed bool
	key        []byte
	eof        bool
	err        *arena.Status
}

// OpenPmaReader reads the leading compression flag and total-bytes
// varint at base and positions the reader at the first record.
func OpenPmaReader(file TempFile, base int64, pageSize int) (*PmaReader, *arena.Status) {
	r := &PmaReader{file: file, cursor: base, pageSize: pageSize}

	if data, ok := file.Fetch(base, int64(pageSize)); ok {
		r.mapped = data
		r.mapBase = base
	} else {
		r.buf = make([]byte, pageSize)
		if st := r.fill(base); st != nil {
			return nil, st
		}
	}

	flag, st := r.sliceAt(r.cursor, 1)
	if st != nil {
		return nil, st
	}
	r.compressed = flag[0] != 0
	r.cursor++

	total, n := r.readVarintAt(r.cursor)
	if n == 0 {
		return nil, arena.New(arena.Corruption, "sort: pma header varint did not validate")
	}
	r.cursor += int64(n)
	r.end = r.cursor + int64(total)

	if r.mapped != nil && int64(len(r.mapped)) < r.end-r.mapBase {
		if data, ok := file.Fetch(r.mapBase, r.end-r.mapBase); ok {
			r.mapped = data
		} else {
			r.mapped = nil
			r.buf = make([]byte, pageSize)
			if st := r.fill(r.cursor); st != nil {
				return nil, st
			}
		}
	}

	if st := r.advance(); st != nil {
		return nil, st
	}
	return r, nil
}

func (r *PmaReader) fill(at int64) *arena.Status {
	n, err := r.file.ReadAt(r.buf, at)
	if n == 0 && err != nil && err != io.EOF {
		return arena.New(arena.IO, "sort: pma read failed: %v", err)
	}
	r.bufBase = at
	r.bufLen = n
	return nil
}

// sliceAt returns a view of n bytes starting at absolute offset off,
// either directly from the map/buffer (no copy) or, if the span
// straddles the buffer's loaded window, via r.alloc.
func (r *PmaReader) sliceAt(off int64, n int64) ([]byte, *arena.Status) {
	if r.mapped != nil {
		lo := off - r.mapBase
		return r.mapped[lo : lo+n], nil
	}
	if off >= r.bufBase && off+n <= r.bufBase+int64(r.bufLen) {
		lo := off - r.bufBase
		return r.buf[lo : lo+n], nil
	}
	r.alloc = make([]byte, n)
	if _, err := r.file.ReadAt(r.alloc, off); err != nil {
		return nil, arena.New(arena.IO, "sort: pma read failed: %v", err)
	}
	if st := r.fill(off + n); st != nil {
		return nil, st
	}
	return r.alloc, nil
}

// readVarintAt decodes a varint starting at absolute offset off,
// fast-pathing when the whole varint is already resident.
func (r *PmaReader) readVarintAt(off int64) (uint64, int) {
	if r.mapped != nil {
		lo := off - r.mapBase
		if lo >= 0 && lo <= int64(len(r.mapped)) {
			return varint.Get(r.mapped[lo:])
		}
		return 0, 0
	}
	if off >= r.bufBase && off < r.bufBase+int64(r.bufLen) {
		lo := off - r.bufBase
		if v, n := varint.Get(r.buf[lo:r.bufLen]); n > 0 {
			return v, n
		}
	}
	// Slow path: one byte at a time across a refill boundary.
	var tmp [9]byte
	for i := 0; i < len(tmp); i++ {
		b, st := r.sliceAt(off+int64(i), 1)
		if st != nil {
			return 0, 0
		}
		tmp[i] = b[0]
		if v, n := varint.Get(tmp[:i+1]); n == i+1 {
			return v, n
		}
	}
	return 0, 0
}

func (r *PmaReader) advance() *arena.Status {
	if r.cursor >= r.end {
		r.eof = true
		r.key = nil
		return nil
	}
	length, n := r.readVarintAt(r.cursor)
	if n == 0 {
		return arena.New(arena.Corruption, "sort: pma record-length varint did not validate")
	}
	r.cursor += int64(n)
	data, st := r.sliceAt(r.cursor, int64(length))
	if st != nil {
		return st
	}
	r.cursor += int64(length)
	if r.compressed {
		decoded, err := snappy.Decode(nil, data)
		if err != nil {
			return arena.New(arena.Corruption, "sort: pma snappy frame did not validate: %v", err)
		}
		data = decoded
	}
	r.key = data
	return nil
}

func (r *PmaReader) Key() []byte { return r.key }
func (r *PmaReader) EOF() bool   { return r.eof }
func (r *PmaReader) Advance() *arena.Status {
	if r.err != nil {
		return r.err
	}
	if r.eof {
		return nil
	}
	if st := r.advance(); st != nil {
		r.err = st
		return st
	}
	return nil
}

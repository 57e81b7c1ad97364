// Package config holds the tunables shared by the emitter and the
// sorter. The teacher does not have a dedicated config package (its
// knobs are sqlite3_limit()/PRAGMA-level global state), so this is
// grounded on the bunbase pack's pkg/config idiom: a plain struct of
// defaults, overridable by the embedding application.
package config

import "fmt"

// Tunables bundles the knobs named throughout spec.md §4.3-§4.4.
type Tunables struct {
	// FileFormat is the on-disk schema format version consulted by
	// the emitter's comparison-opcode affinity bias (spec §4.3):
	// the text-comparison opcode variant is only used when
	// FileFormat >= 4.
	FileFormat int

	// MaxPMASize is the in-memory threshold (bytes) that forces a
	// flush of the sorter's working list to a PMA. Zero forces a
	// spill on every write. Validate, which Sorter.Init calls,
	// rejects a negative value or one above MaxAllowedPMASize.
	MaxPMASize int64

	// MinPMASize is the smaller threshold past which a flush is
	// triggered only when the host's heap-nearly-full hint fires
	// (spec §4.4 write path).
	MinPMASize int64

	// MaxAllowedPMASize is the hard ceiling on MaxPMASize, grounded
	// on vdbesort.c's SQLITE_MAX_PMASZ (supplemented feature, see
	// SPEC_FULL.md).
	MaxAllowedPMASize int64

	// FanIn is the merge fan-in constant (spec §4.4: "fan-in
	// constant (16)") before the sorter builds a multi-level tree of
	// merge engines.
	FanIn int

	// WorkerCount is N from spec §5: up to WorkerCount-1 background
	// workers plus the foreground thread. WorkerCount<=1 forces
	// single-threaded cooperative mode.
	WorkerCount int

	// PageSize is the page-aligned block size used by the PMA
	// writer/reader's buffered I/O.
	PageSize int

	// MaxExprListLength bounds a single ExprList's element count
	// (supplemented feature, see SPEC_FULL.md), grounded on
	// expr.c's sqlite3ExprListCheckLength.
	MaxExprListLength int

	// CompressPMA turns on snappy compression of each PMA record
	// (domain stack addition, see SPEC_FULL.md §4.4).
	CompressPMA bool
}

// Default mirrors the teacher's historical SQLite defaults where one
// exists (PageSize, FanIn, MaxExprListLength), and picks
// GOMAXPROCS-shaped values for the rest.
func Default() Tunables {
	return Tunables{
		FileFormat:        4,
		MaxPMASize:        64 << 20, // 64 MiB, sqlite3's SORTER_MAX_MERGE_COUNT-adjacent default order of magnitude
		MinPMASize:        1 << 20,
		MaxAllowedPMASize: 2 << 30,
		FanIn:             16,
		WorkerCount:       4,
		PageSize:          4096,
		MaxExprListLength: 2000,
		CompressPMA:       false,
	}
}

func (t Tunables) Validate() error {
	if t.MaxPMASize < 0 {
		return fmt.Errorf("config: MaxPMASize must be >= 0, got %d", t.MaxPMASize)
	}
	if t.MaxAllowedPMASize > 0 && t.MaxPMASize > t.MaxAllowedPMASize {
		return fmt.Errorf("config: MaxPMASize %d exceeds MaxAllowedPMASize %d", t.MaxPMASize, t.MaxAllowedPMASize)
	}
	if t.FanIn < 2 {
		return fmt.Errorf("config: FanIn must be >= 2, got %d", t.FanIn)
	}
	if t.PageSize <= 0 {
		return fmt.Errorf("config: PageSize must be > 0, got %d", t.PageSize)
	}
	return nil
}

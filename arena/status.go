// Package arena provides the allocation and error-reporting context
// shared by the expression tree, resolver, emitter and sorter.
//
// The teacher's malloc.c/status.c model a process-wide Mem0Global
// guarded by a single mutex, with sticky OOM state and an accumulated
// error count. This package keeps that shape (sticky OOM, accumulated
// error count, a most-recent-message slot) but threads it explicitly
// through every allocating call via Ctx instead of reaching for
// package-level state.
package arena

import "fmt"

// Code is the engine's error taxonomy (spec §7). Zero value is OK.
type Code int

const (
	OK Code = iota
	OOM
	NameNotFound
	NameAmbiguous
	Arity
	UnknownFunction
	AggregateMisuse
	SchemaMismatch
	Misuse
	IO
	Corruption
)

func (c Code) String() string {
	switch c {
	case OK:
		return "ok"
	case OOM:
		return "out of memory"
	case NameNotFound:
		return "no such column"
	case NameAmbiguous:
		return "ambiguous column name"
	case Arity:
		return "wrong number of arguments"
	case UnknownFunction:
		return "no such function"
	case AggregateMisuse:
		return "misuse of aggregate function"
	case SchemaMismatch:
		return "sorter key-field count mismatch"
	case Misuse:
		return "misuse"
	case IO:
		return "disk I/O error"
	case Corruption:
		return "database disk image is malformed"
	default:
		return "unknown error"
	}
}

// Status is the (status-code, optional message) pair every public
// entry point in this module returns, matching spec §6/§7. A nil
// *Status means success; callers must not treat a zero Status the
// same way (always test for nil).
type Status struct {
	Code    Code
	Message string
}

func New(code Code, format string, args ...any) *Status {
	return &Status{Code: code, Message: fmt.Sprintf(format, args...)}
}

func OOMStatus() *Status {
	return &Status{Code: OOM, Message: OOM.String()}
}

func (s *Status) Error() string {
	if s == nil {
		return ""
	}
	if s.Message == "" {
		return s.Code.String()
	}
	return s.Message
}

// Is reports whether s carries the given code; a nil Status is never
// equal to any non-OK code.
func (s *Status) Is(code Code) bool {
	if s == nil {
		return code == OK
	}
	return s.Code == code
}

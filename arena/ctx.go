package arena

import (
	"fmt"
	"log/slog"
)

// Ctx is the AllocatorCtx called for by spec §9's design note: an
// explicit, per-compilation context threaded into every allocating
// operation in expr/resolve/emit, replacing the teacher's global
// Mem0Global + Parse.db.mallocFailed pair.
//
// Propagation policy (spec §7): OOM is sticky — once set it never
// clears for the lifetime of the Ctx. Ordinary resolver/checker
// errors accumulate in ErrCount and are not sticky individually, but
// HasError() going true is itself sticky in effect because callers
// are expected to stop emitting once it is true.
type Ctx struct {
	oom      bool
	errCount int
	message  string
	logger   *slog.Logger
}

func NewCtx(logger *slog.Logger) *Ctx {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ctx{logger: logger}
}

// OOM reports whether this context has ever observed an allocation
// failure. Sticky: never clears.
func (c *Ctx) OOM() bool { return c.oom }

// ErrCount is the number of non-OOM errors raised so far, matching
// the resolver/checker's "return error count" contract (spec §6).
func (c *Ctx) ErrCount() int { return c.errCount }

// HasError reports whether any error (OOM or otherwise) is visible.
// The emitter consults this to decide whether to stop emitting
// bytecode (spec §7's propagation policy).
func (c *Ctx) HasError() bool { return c.oom || c.errCount > 0 }

// Message is the most recently formatted error message, owned by the
// Ctx until the next error is raised.
func (c *Ctx) Message() string { return c.message }

// RaiseOOM marks this context OOM-failed and returns the status. Per
// spec §7, construction in this state does not attempt to reclaim
// memory already handed to the caller — that is a concession to keep
// the failure path branch-free, inherited unchanged from the source.
func (c *Ctx) RaiseOOM() *Status {
	c.oom = true
	c.message = OOM.String()
	c.logger.Error("allocation failed", "code", OOM.String())
	return OOMStatus()
}

// RaiseError formats and records a non-OOM error, incrementing
// ErrCount, and returns it. Multiple calls accumulate so a single
// resolve/check pass can report every error it finds in one pass.
func (c *Ctx) RaiseError(code Code, format string, args ...any) *Status {
	st := New(code, format, args...)
	c.errCount++
	c.message = st.Message
	c.logger.Warn("compile error", "code", code.String(), "message", st.Message)
	return st
}

// Reset clears accumulated errors but never clears OOM: a Ctx that
// has seen an allocation failure is permanently suspect, matching the
// sticky OOM semantics of the teacher's mallocFailed flag.
func (c *Ctx) Reset() {
	c.errCount = 0
	c.message = ""
}

func (c *Ctx) Logger() *slog.Logger { return c.logger }

// Errorf is a convenience used by callers that already have a
// fmt.Stringer-shaped value and don't want to repeat Sprintf at every
// call site.
func (c *Ctx) Errorf(code Code, v ...any) *Status {
	return c.RaiseError(code, "%s", fmt.Sprint(v...))
}

// Package logging is a thin wrapper around log/slog, shaped after
// the bunbase pack's pkg/logger: a sync.Once-guarded global logger
// selectable between JSON and text handlers, with a Get() accessor
// that lazily initializes a sane default so tests and library callers
// never need to call Init explicitly.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

type Config struct {
	Level     string // DEBUG, INFO, WARN, ERROR
	Format    string // json, text
	AddSource bool
}

var (
	once   sync.Once
	global *slog.Logger
)

func Init(cfg Config) {
	once.Do(func() {
		global = build(cfg)
		slog.SetDefault(global)
	})
}

func build(cfg Config) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

// Get returns the global logger, initializing it with a quiet default
// (WARN/text) on first use so callers that never call Init still get
// a working *slog.Logger instead of a nil-deref.
func Get() *slog.Logger {
	if global == nil {
		Init(Config{Level: "WARN", Format: "text"})
	}
	return global
}

// Named returns a logger scoped to a component (the resolver takes
// one under "resolve").
func Named(component string) *slog.Logger {
	return Get().With("component", component)
}

// Package logutil keeps *slog.Logger plumbing nil-safe so constructors
// can take an optional logger without sprinkling nil checks.
package logutil

import (
	"io"
	"log/slog"
)

var noop = slog.New(slog.NewTextHandler(io.Discard, nil))

// Noop returns a logger that discards everything.
func Noop() *slog.Logger { return noop }

// NoopIfNil returns l, or a discard logger when l is nil. Call it first
// in any constructor that accepts a *slog.Logger.
func NoopIfNil(l *slog.Logger) *slog.Logger {
	if l == nil {
		return noop
	}
	return l
}

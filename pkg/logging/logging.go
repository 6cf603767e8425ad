// Package logging sets up the process logger and defines the attribute keys
// used across the codebase so log output stays greppable.
package logging

import (
	"log/slog"
	"os"
)

// Common log attribute keys.
const (
	KeyOperation = "operation"
	KeyTask      = "task"
	KeyEvent     = "event"
	KeyBackend   = "backend"
	KeyError     = "error"
)

// New returns a text logger on stderr. Verbose enables debug records.
func New(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(h)
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// TaskID returns a slog attribute for a task id.
func TaskID(id string) slog.Attr {
	return slog.String(KeyTask, id)
}

// EventID returns a slog attribute for a calendar event id.
func EventID(id string) slog.Attr {
	return slog.String(KeyEvent, id)
}

// Err returns a slog attribute for an error value.
func Err(err error) slog.Attr {
	return slog.String(KeyError, err.Error())
}

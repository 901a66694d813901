// Package observability holds the structured logging conventions shared by
// the engine, the stores and the CLI.
package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
)

const (
	// LogFieldTurnID is the field name for the reconciliation turn ID.
	LogFieldTurnID = "turn_id"
	// LogFieldIdentity is the field name for the store key of an identity.
	LogFieldIdentity = "identity"
	// LogFieldFields is the field name for the list of parsed marker fields.
	LogFieldFields = "fields"
	// LogFieldBackend is the field name for the store backend.
	LogFieldBackend = "backend"
	// LogFieldPath is the field name for a storage path or address.
	LogFieldPath = "path"
	// LogFieldCount is the field name for affected record counts.
	LogFieldCount = "count"
	// LogFieldCaller is the field name for the admin caller ID.
	LogFieldCaller = "caller"
)

// ParseLevel maps a level name to a slog level. An empty name is info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Errorf("unknown log level %q", name)
}

// NewLogger builds a text or JSON logger writing to w.
func NewLogger(w io.Writer, level slog.Level, format string) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return nil, errors.Errorf("unknown log format %q", format)
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

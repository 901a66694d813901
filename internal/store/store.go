// Package store provides the affinity state store interface and its
// JSON file, SQLite and Redis implementations.
package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pkg/errors"

	"github.com/rcliao/favourpro/internal/model"
)

// PutParams holds the fields of a record being written.
//
// Favour is a raw value (int, int64, float64, json.Number or a numeric
// string). When it cannot be coerced to an integer the previously stored
// favour is kept. Empty text fields keep the stored text.
type PutParams struct {
	Favour       any
	Attitude     string
	Relationship string
}

// Predicate selects records for DeleteMatching.
type Predicate func(key model.Key, rec model.Record) bool

// Store defines the affinity storage interface.
type Store interface {
	// Get returns the record for key, or a copy of the default.
	Get(ctx context.Context, key model.Key) model.Record

	// Put writes a record and persists the whole mapping.
	Put(ctx context.Context, key model.Key, p PutParams) (model.Record, error)

	// Delete removes one record. It reports whether the key existed.
	Delete(ctx context.Context, key model.Key) (bool, error)

	// DeleteAll removes every record and returns how many were removed.
	DeleteAll(ctx context.Context) (int, error)

	// DeleteMatching removes records selected by pred.
	DeleteMatching(ctx context.Context, pred Predicate) (int, error)

	// All returns every record in insertion order.
	All(ctx context.Context) ([]model.Entry, error)

	// SetDefault changes the record handed out for unknown keys.
	// Persisted records are not migrated.
	SetDefault(rec model.Record)

	// Default returns the current default record.
	Default() model.Record

	// Close flushes and releases the store.
	Close() error
}

// Historian is implemented by stores that keep past revisions.
type Historian interface {
	History(ctx context.Context, key model.Key, limit int) ([]Revision, error)
}

// Backend names.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// ErrUnknownBackend is returned by Open for unsupported backends.
var ErrUnknownBackend = errors.New("unknown store backend")

// Options configures Open.
type Options struct {
	Backend     string
	Path        string
	RedisAddr   string
	RedisPrefix string
	Default     model.Record
	Logger      *slog.Logger
}

// Open creates the store selected by opts.Backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendJSON:
		return NewJSONStore(opts.Path, opts.Default, opts.Logger)
	case BackendSQLite:
		return NewSQLiteStore(opts.Path, opts.Default, opts.Logger)
	case BackendRedis:
		return NewRedisStore(ctx, RedisOptions{
			Addr:    opts.RedisAddr,
			Prefix:  opts.RedisPrefix,
			Default: opts.Default,
			Logger:  opts.Logger,
		})
	}
	return nil, errors.Wrapf(ErrUnknownBackend, "%q", opts.Backend)
}

// defaults holds the runtime-changeable default record shared by all backends.
type defaults struct {
	mu  sync.RWMutex
	rec model.Record
}

func (d *defaults) SetDefault(rec model.Record) {
	d.mu.Lock()
	d.rec = rec.Fill(model.DefaultRecord)
	d.mu.Unlock()
}

func (d *defaults) Default() model.Record {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.rec
}

// merge applies p on top of prev, the record currently visible for the key.
func merge(prev model.Record, p PutParams) model.Record {
	next := prev
	if f, ok := CoerceFavour(p.Favour); ok {
		next.Favour = f
	}
	if p.Attitude != "" {
		next.Attitude = p.Attitude
	}
	if p.Relationship != "" {
		next.Relationship = p.Relationship
	}
	return next
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}

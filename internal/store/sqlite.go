package store

import (
	"context"
	"database/sql"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/observability"
)

// SQLiteStore implements Store using SQLite. Each write is a single
// transaction, so it is durable once Put returns. Every write is also
// appended to a history table keyed by a monotonic ULID.
type SQLiteStore struct {
	defaults

	db      *sql.DB
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	logger  *slog.Logger
}

// Revision is one historical write of a record.
type Revision struct {
	ID        string       `json:"id" yaml:"id"`
	Key       model.Key    `json:"key" yaml:"key"`
	Record    model.Record `json:"record" yaml:"record"`
	CreatedAt time.Time    `json:"created_at" yaml:"created_at"`
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string, def model.Record, logger *slog.Logger) (*SQLiteStore, error) {
	if dbPath == "" {
		return nil, errors.New("sqlite store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db dir")
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, errors.Wrap(err, "open db")
	}

	s := &SQLiteStore{
		defaults: defaults{rec: def.Fill(model.DefaultRecord)},
		db:       db,
		entropy:  ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		logger:   loggerOrDefault(logger).With(observability.LogFieldBackend, BackendSQLite),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}

	return s, nil
}

func (s *SQLiteStore) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS affinity (
		key          TEXT PRIMARY KEY,
		favour       INTEGER NOT NULL,
		attitude     TEXT NOT NULL,
		relationship TEXT NOT NULL,
		seq          INTEGER NOT NULL,
		revision     TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_affinity_seq ON affinity(seq);

	CREATE TABLE IF NOT EXISTS affinity_history (
		id           TEXT PRIMARY KEY,
		key          TEXT NOT NULL,
		favour       INTEGER NOT NULL,
		attitude     TEXT NOT NULL,
		relationship TEXT NOT NULL,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_key ON affinity_history(key, id DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the stored record for key, or the default. Read errors are
// logged and answered with the default.
func (s *SQLiteStore) Get(ctx context.Context, key model.Key) model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.get(ctx, s.db, key)
	if err != nil {
		s.logger.Warn("read record, using default", observability.LogFieldIdentity, string(key), "error", err)
		return s.Default()
	}
	return rec
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// get returns the default for unknown keys and an error for any other
// failure, so writers never merge onto a record they could not read.
func (s *SQLiteStore) get(ctx context.Context, q queryer, key model.Key) (model.Record, error) {
	def := s.Default()
	var rec model.Record
	err := q.QueryRowContext(ctx,
		`SELECT favour, attitude, relationship FROM affinity WHERE key = ?`, string(key)).
		Scan(&rec.Favour, &rec.Attitude, &rec.Relationship)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return def, errors.Wrap(err, "read record")
	}
	return rec.Fill(def), nil
}

// Put merges p into the record for key. New keys are appended to the
// insertion order; existing keys keep their position.
func (s *SQLiteStore) Put(ctx context.Context, key model.Key, p PutParams) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Record{}, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	prev, err := s.get(ctx, tx, key)
	if err != nil {
		return model.Record{}, err
	}
	rec := merge(prev, p)
	rev := s.newID()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO affinity (key, favour, attitude, relationship, seq, revision, updated_at)
		 VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM affinity), ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		   favour = excluded.favour,
		   attitude = excluded.attitude,
		   relationship = excluded.relationship,
		   revision = excluded.revision,
		   updated_at = excluded.updated_at`,
		string(key), rec.Favour, rec.Attitude, rec.Relationship, rev, now)
	if err != nil {
		return rec, errors.Wrap(err, "upsert record")
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO affinity_history (id, key, favour, attitude, relationship, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rev, string(key), rec.Favour, rec.Attitude, rec.Relationship, now)
	if err != nil {
		return rec, errors.Wrap(err, "insert history")
	}

	if err := tx.Commit(); err != nil {
		return rec, errors.Wrap(err, "commit")
	}
	return rec, nil
}

// Delete removes the record for key. History is kept.
func (s *SQLiteStore) Delete(ctx context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM affinity WHERE key = ?`, string(key))
	if err != nil {
		return false, errors.Wrap(err, "delete record")
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// DeleteAll removes every record.
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM affinity`)
	if err != nil {
		return 0, errors.Wrap(err, "delete records")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteMatching removes the records selected by pred in one transaction.
func (s *SQLiteStore) DeleteMatching(ctx context.Context, pred Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.all(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	removed := 0
	for _, e := range entries {
		if !pred(e.Key, e.Record) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM affinity WHERE key = ?`, string(e.Key)); err != nil {
			return 0, errors.Wrapf(err, "delete %q", e.Key)
		}
		removed++
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit")
	}
	return removed, nil
}

// All returns every record ordered by first insertion.
func (s *SQLiteStore) All(ctx context.Context) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.all(ctx)
}

func (s *SQLiteStore) all(ctx context.Context) ([]model.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, favour, attitude, relationship FROM affinity ORDER BY seq`)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	defer rows.Close()

	def := s.Default()
	var entries []model.Entry
	for rows.Next() {
		var key string
		var rec model.Record
		if err := rows.Scan(&key, &rec.Favour, &rec.Attitude, &rec.Relationship); err != nil {
			return nil, errors.Wrap(err, "scan record")
		}
		entries = append(entries, model.Entry{Key: model.Key(key), Record: rec.Fill(def)})
	}
	return entries, rows.Err()
}

// History returns past writes for key, newest first. limit <= 0 means 20.
func (s *SQLiteStore) History(ctx context.Context, key model.Key, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, key, favour, attitude, relationship, created_at
		 FROM affinity_history WHERE key = ?
		 ORDER BY id DESC LIMIT ?`, string(key), limit)
	if err != nil {
		return nil, errors.Wrap(err, "query history")
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var k, createdAt string
		if err := rows.Scan(&r.ID, &k, &r.Record.Favour, &r.Record.Attitude, &r.Record.Relationship, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		r.Key = model.Key(k)
		r.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

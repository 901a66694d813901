package store

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/observability"
)

// JSONStore keeps the whole mapping in memory and rewrites a single JSON
// object file after every mutation. Key order in the file is insertion order.
type JSONStore struct {
	defaults

	mu      sync.Mutex
	path    string
	records *orderedmap.OrderedMap[string, model.Record]
	logger  *slog.Logger
}

// fileRecord is the on-disk shape. Favour is kept raw so hand-edited files
// with quoted or fractional numbers still load.
type fileRecord struct {
	Favour       json.RawMessage `json:"favour"`
	Attitude     string          `json:"attitude"`
	Relationship string          `json:"relationship"`
}

// NewJSONStore loads path, or starts empty when it is missing or unreadable.
func NewJSONStore(path string, def model.Record, logger *slog.Logger) (*JSONStore, error) {
	if path == "" {
		return nil, errors.New("json store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}

	s := &JSONStore{
		defaults: defaults{rec: def.Fill(model.DefaultRecord)},
		path:     path,
		records:  orderedmap.New[string, model.Record](),
		logger:   loggerOrDefault(logger).With(observability.LogFieldBackend, BackendJSON),
	}
	s.load()
	return s, nil
}

func (s *JSONStore) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read state file, starting empty", observability.LogFieldPath, s.path, "error", err)
		}
		return
	}

	raw := orderedmap.New[string, fileRecord]()
	if err := json.Unmarshal(data, raw); err != nil {
		s.logger.Warn("parse state file, starting empty", observability.LogFieldPath, s.path, "error", err)
		return
	}

	def := s.Default()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		rec := model.Record{
			Favour:       def.Favour,
			Attitude:     pair.Value.Attitude,
			Relationship: pair.Value.Relationship,
		}
		if f, ok := CoerceFavour(rawFavour(pair.Value.Favour)); ok {
			rec.Favour = f
		}
		s.records.Set(pair.Key, rec)
	}
	s.logger.Debug("state file loaded", observability.LogFieldPath, s.path, observability.LogFieldCount, s.records.Len())
}

func rawFavour(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	return v
}

// Get returns the stored record for key, or the default.
func (s *JSONStore) Get(_ context.Context, key model.Key) model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(key)
}

func (s *JSONStore) get(key model.Key) model.Record {
	def := s.Default()
	rec, ok := s.records.Get(string(key))
	if !ok {
		return def
	}
	return rec.Fill(def)
}

// Put merges p into the record for key and rewrites the file.
func (s *JSONStore) Put(_ context.Context, key model.Key, p PutParams) (model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := merge(s.get(key), p)
	s.records.Set(string(key), rec)
	if err := s.save(); err != nil {
		return rec, err
	}
	return rec, nil
}

// Delete removes the record for key.
func (s *JSONStore) Delete(_ context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records.Delete(string(key)); !ok {
		return false, nil
	}
	return true, s.save()
}

// DeleteAll removes every record.
func (s *JSONStore) DeleteAll(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.records.Len()
	s.records = orderedmap.New[string, model.Record]()
	return n, s.save()
}

// DeleteMatching removes the records selected by pred.
func (s *JSONStore) DeleteMatching(_ context.Context, pred Predicate) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.Default()
	var doomed []string
	for pair := s.records.Oldest(); pair != nil; pair = pair.Next() {
		if pred(model.Key(pair.Key), pair.Value.Fill(def)) {
			doomed = append(doomed, pair.Key)
		}
	}
	for _, k := range doomed {
		s.records.Delete(k)
	}
	if len(doomed) == 0 {
		return 0, nil
	}
	return len(doomed), s.save()
}

// All returns every record in insertion order.
func (s *JSONStore) All(_ context.Context) ([]model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def := s.Default()
	entries := make([]model.Entry, 0, s.records.Len())
	for pair := s.records.Oldest(); pair != nil; pair = pair.Next() {
		entries = append(entries, model.Entry{Key: model.Key(pair.Key), Record: pair.Value.Fill(def)})
	}
	return entries, nil
}

// Close writes the mapping one last time.
func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save()
}

// save writes to a temp file in the same directory and renames it over the
// state file, so a crash mid-write never leaves a truncated file.
func (s *JSONStore) save() error {
	data, err := encodeState(s.records)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".favourpro-*.json")
	if err != nil {
		return errors.Wrap(err, "create temp state file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write state file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "sync state file")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close state file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "replace state file")
	}
	return nil
}

// encodeState renders records as a 2-space indented JSON object in
// insertion order. HTML characters are written as-is so the file stays
// readable by hand.
func encodeState(records *orderedmap.OrderedMap[string, model.Record]) ([]byte, error) {
	if records.Len() == 0 {
		return []byte("{}\n"), nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("  ", "  ")

	buf.WriteString("{\n")
	for pair := records.Oldest(); pair != nil; pair = pair.Next() {
		buf.WriteString("  ")
		if err := enc.Encode(pair.Key); err != nil {
			return nil, errors.Wrap(err, "encode key")
		}
		buf.Truncate(buf.Len() - 1)
		buf.WriteString(": ")
		if err := enc.Encode(pair.Value); err != nil {
			return nil, errors.Wrapf(err, "encode record %q", pair.Key)
		}
		buf.Truncate(buf.Len() - 1)
		if pair.Next() != nil {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	return buf.Bytes(), nil
}

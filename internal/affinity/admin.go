package affinity

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/observability"
	"github.com/rcliao/favourpro/internal/store"
)

var (
	// ErrPermissionDenied is matched by the error returned to non-admin callers.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidFavour is returned when a manual favour is not an integer.
	ErrInvalidFavour = errors.New("favour must be an integer")
	// ErrEmptyValue is returned when a manual attitude or relationship is blank.
	ErrEmptyValue = errors.New("value must not be empty")
	// ErrInvalidCount is returned for non-positive rank counts.
	ErrInvalidCount = errors.New("count must be a positive integer")
)

// DeniedError carries the configured denial message for the host to show.
type DeniedError struct {
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrPermissionDenied) true.
func (e *DeniedError) Is(target error) bool { return target == ErrPermissionDenied }

// Caller is whoever issues an administrative command. The host decides
// whether they are an administrator.
type Caller struct {
	ID    string
	Admin bool
}

func (e *Engine) requireAdmin(c Caller) error {
	if c.Admin {
		return nil
	}
	return &DeniedError{Message: e.Config().DeniedMessage()}
}

// Query returns the record for id. Non-admin callers may only query
// themselves.
func (e *Engine) Query(ctx context.Context, c Caller, id model.Identity) (model.Record, error) {
	if !c.Admin && c.ID != id.UserID {
		return model.Record{}, e.requireAdmin(c)
	}
	return e.State(ctx, id)
}

// SetFavour overwrites the favour of id. raw must be an integer; it is not
// clamped to the configured range.
func (e *Engine) SetFavour(ctx context.Context, c Caller, id model.Identity, raw string) (model.Record, error) {
	if err := e.requireAdmin(c); err != nil {
		return model.Record{}, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return model.Record{}, errors.Wrapf(ErrInvalidFavour, "%q", raw)
	}
	return e.set(ctx, c, id, store.PutParams{Favour: n})
}

// SetAttitude overwrites the attitude of id.
func (e *Engine) SetAttitude(ctx context.Context, c Caller, id model.Identity, attitude string) (model.Record, error) {
	if err := e.requireAdmin(c); err != nil {
		return model.Record{}, err
	}
	attitude = strings.TrimSpace(attitude)
	if attitude == "" {
		return model.Record{}, errors.Wrap(ErrEmptyValue, "attitude")
	}
	return e.set(ctx, c, id, store.PutParams{Attitude: attitude})
}

// SetRelationship overwrites the relationship of id.
func (e *Engine) SetRelationship(ctx context.Context, c Caller, id model.Identity, relationship string) (model.Record, error) {
	if err := e.requireAdmin(c); err != nil {
		return model.Record{}, err
	}
	relationship = strings.TrimSpace(relationship)
	if relationship == "" {
		return model.Record{}, errors.Wrap(ErrEmptyValue, "relationship")
	}
	return e.set(ctx, c, id, store.PutParams{Relationship: relationship})
}

func (e *Engine) set(ctx context.Context, c Caller, id model.Identity, p store.PutParams) (model.Record, error) {
	key, err := e.Key(id)
	if err != nil {
		return model.Record{}, err
	}
	rec, err := e.store.Put(ctx, key, p)
	if err != nil {
		return rec, errors.Wrap(err, "persist manual update")
	}
	e.logger.Info("affinity set manually",
		observability.LogFieldCaller, c.ID,
		observability.LogFieldIdentity, string(key))
	return rec, nil
}

// Reset returns id to the default record by deleting its entry.
func (e *Engine) Reset(ctx context.Context, c Caller, id model.Identity) (bool, error) {
	if err := e.requireAdmin(c); err != nil {
		return false, err
	}
	key, err := e.Key(id)
	if err != nil {
		return false, err
	}
	ok, err := e.store.Delete(ctx, key)
	if err != nil {
		return ok, errors.Wrap(err, "reset record")
	}
	e.logger.Info("affinity reset", observability.LogFieldCaller, c.ID, observability.LogFieldIdentity, string(key))
	return ok, nil
}

// ResetNegative resets every record whose favour is below zero.
func (e *Engine) ResetNegative(ctx context.Context, c Caller) (int, error) {
	if err := e.requireAdmin(c); err != nil {
		return 0, err
	}
	n, err := e.store.DeleteMatching(ctx, func(_ model.Key, r model.Record) bool { return r.Favour < 0 })
	if err != nil {
		return n, errors.Wrap(err, "reset negative records")
	}
	e.logger.Info("negative records reset", observability.LogFieldCaller, c.ID, observability.LogFieldCount, n)
	return n, nil
}

// ResetAll removes every record.
func (e *Engine) ResetAll(ctx context.Context, c Caller) (int, error) {
	if err := e.requireAdmin(c); err != nil {
		return 0, err
	}
	n, err := e.store.DeleteAll(ctx)
	if err != nil {
		return n, errors.Wrap(err, "reset all records")
	}
	e.logger.Warn("all records reset", observability.LogFieldCaller, c.ID, observability.LogFieldCount, n)
	return n, nil
}

// Ranked is one row of a favour ranking.
type Ranked struct {
	Position  int          `json:"position" yaml:"position"`
	Key       model.Key    `json:"key" yaml:"key"`
	UserID    string       `json:"user_id" yaml:"user_id"`
	SessionID string       `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Record    model.Record `json:"record" yaml:"record"`
}

// Rank lists the n highest records (or lowest when ascending). Ties keep
// insertion order.
func (e *Engine) Rank(ctx context.Context, c Caller, n int, ascending bool) ([]Ranked, error) {
	if err := e.requireAdmin(c); err != nil {
		return nil, err
	}
	if n <= 0 {
		return nil, errors.Wrapf(ErrInvalidCount, "%d", n)
	}

	entries, err := e.store.All(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list records")
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Record.Favour < entries[j].Record.Favour
		}
		return entries[i].Record.Favour > entries[j].Record.Favour
	})
	if len(entries) > n {
		entries = entries[:n]
	}

	out := make([]Ranked, len(entries))
	for i, en := range entries {
		session, user := en.Key.Split()
		out[i] = Ranked{Position: i + 1, Key: en.Key, UserID: user, SessionID: session, Record: en.Record}
	}
	return out, nil
}

// Export returns every record in insertion order.
func (e *Engine) Export(ctx context.Context, c Caller) ([]model.Entry, error) {
	if err := e.requireAdmin(c); err != nil {
		return nil, err
	}
	return e.store.All(ctx)
}

// Import writes entries, overwriting existing keys.
func (e *Engine) Import(ctx context.Context, c Caller, entries []model.Entry) (int, error) {
	if err := e.requireAdmin(c); err != nil {
		return 0, err
	}
	n, err := store.Import(ctx, e.store, entries)
	e.logger.Info("records imported", observability.LogFieldCaller, c.ID, observability.LogFieldCount, n)
	return n, err
}

// Stats summarises the store.
func (e *Engine) Stats(ctx context.Context, c Caller) (*store.Stats, error) {
	if err := e.requireAdmin(c); err != nil {
		return nil, err
	}
	return store.Summarize(ctx, e.store, e.Config().Store.Backend)
}

// History returns past revisions of id when the backend keeps them.
func (e *Engine) History(ctx context.Context, c Caller, id model.Identity, limit int) ([]store.Revision, error) {
	if !c.Admin && c.ID != id.UserID {
		return nil, e.requireAdmin(c)
	}
	h, ok := e.store.(store.Historian)
	if !ok {
		return nil, errors.Errorf("backend %q keeps no history", e.Config().Store.Backend)
	}
	key, err := e.Key(id)
	if err != nil {
		return nil, err
	}
	return h.History(ctx, key, limit)
}

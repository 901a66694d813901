// Package affinity wires the marker parser to a state store. It is the
// entry point a host calls before generation (InjectContext), after
// generation (Reconcile) and for administrative commands.
package affinity

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"

	"github.com/rcliao/favourpro/internal/config"
	"github.com/rcliao/favourpro/internal/marker"
	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/observability"
	"github.com/rcliao/favourpro/internal/store"
)

// Engine reconciles assistant replies against stored affinity records.
// Turns are expected to be processed one at a time; the store serialises
// concurrent writers.
type Engine struct {
	store  store.Store
	cfg    atomic.Pointer[config.Config]
	prompt atomic.Pointer[promptTemplates]
	logger *slog.Logger
}

// New creates an Engine over s using cfg.
func New(s store.Store, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{store: s, logger: logger}
	if err := e.SetConfig(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// SetConfig swaps the configuration used by later calls. The store's
// default record follows the new config; persisted records are untouched.
func (e *Engine) SetConfig(cfg *config.Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	tmpl, err := compilePrompt(cfg.Instruction)
	if err != nil {
		return err
	}
	e.cfg.Store(cfg)
	e.prompt.Store(tmpl)
	e.store.SetDefault(cfg.DefaultRecord())
	return nil
}

// Config returns the configuration currently in effect.
func (e *Engine) Config() *config.Config {
	return e.cfg.Load()
}

// Key derives the store key for id under the current session mode.
func (e *Engine) Key(id model.Identity) (model.Key, error) {
	return id.Key(e.Config().SessionBased)
}

// State returns the current record for id.
func (e *Engine) State(ctx context.Context, id model.Identity) (model.Record, error) {
	key, err := e.Key(id)
	if err != nil {
		return model.Record{}, err
	}
	return e.store.Get(ctx, key), nil
}

// TurnResult describes what one reconciliation did.
type TurnResult struct {
	TurnID string `json:"turn_id" yaml:"turn_id"`
	// Text is the reply with every marker block removed.
	Text string `json:"text" yaml:"text"`
	// Updated is true when at least one field was parsed and persisted.
	Updated  bool          `json:"updated" yaml:"updated"`
	Previous model.Record  `json:"previous" yaml:"previous"`
	Record   model.Record  `json:"record" yaml:"record"`
	Fields   marker.Fields `json:"fields" yaml:"fields"`
	Blocks   int           `json:"blocks" yaml:"blocks"`
}

// Reconcile strips marker blocks from text and applies the fields of the
// first one to the record for id. The returned result is non-nil even when
// an error is returned, so the host can always show the stripped text.
func (e *Engine) Reconcile(ctx context.Context, id model.Identity, text string) (*TurnResult, error) {
	ex := marker.Extract(text)
	res := &TurnResult{
		TurnID: ulid.Make().String(),
		Text:   ex.Text,
		Fields: ex.Fields,
		Blocks: len(ex.Blocks),
	}
	log := e.logger.With(observability.LogFieldTurnID, res.TurnID)

	key, err := e.Key(id)
	if err != nil {
		return res, err
	}
	log = log.With(observability.LogFieldIdentity, string(key))

	res.Previous = e.store.Get(ctx, key)
	res.Record = res.Previous

	if !ex.Found() {
		log.Debug("no marker in reply")
		return res, nil
	}
	if ex.Fields.Empty() {
		log.Info("marker stripped without usable fields",
			"favour_malformed", ex.Fields.FavourMalformed, "blocks", res.Blocks)
		return res, nil
	}

	merged := ex.Fields.Apply(res.Previous)
	stored, err := e.store.Put(ctx, key, store.PutParams{
		Favour:       merged.Favour,
		Attitude:     merged.Attitude,
		Relationship: merged.Relationship,
	})
	if err != nil {
		log.Error("persist affinity update", "error", err)
		return res, errors.Wrap(err, "persist affinity update")
	}

	res.Record = stored
	res.Updated = true
	log.Info("affinity updated",
		observability.LogFieldFields, ex.Fields.Names(),
		"favour", stored.Favour,
		"favour_malformed", ex.Fields.FavourMalformed)
	return res, nil
}

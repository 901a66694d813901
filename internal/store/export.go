package store

import (
	"context"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/rcliao/favourpro/internal/model"
)

// ErrBadImport is returned by DecodeEntries for input it cannot read.
var ErrBadImport = errors.New("unrecognised import format")

// DecodeEntries reads either an export (a JSON array of {"key", "record"})
// or a JSON state file (an object mapping keys to records). Object keys keep
// their document order. Favour values go through CoerceFavour, so quoted
// numbers are accepted.
func DecodeEntries(data []byte) ([]model.Entry, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.Wrap(ErrBadImport, "invalid json")
	}

	doc := gjson.ParseBytes(data)
	var entries []model.Entry
	switch {
	case doc.IsArray():
		doc.ForEach(func(_, item gjson.Result) bool {
			entries = append(entries, decodeEntry(item.Get("key").String(), item.Get("record")))
			return true
		})
	case doc.IsObject():
		doc.ForEach(func(key, rec gjson.Result) bool {
			entries = append(entries, decodeEntry(key.String(), rec))
			return true
		})
	default:
		return nil, errors.Wrapf(ErrBadImport, "top-level %s", doc.Type)
	}
	return entries, nil
}

func decodeEntry(key string, rec gjson.Result) model.Entry {
	e := model.Entry{Key: model.Key(key)}
	e.Record.Attitude = rec.Get("attitude").String()
	e.Record.Relationship = rec.Get("relationship").String()
	if f, ok := CoerceFavour(rec.Get("favour").Value()); ok {
		e.Record.Favour = f
	}
	return e
}

// Import writes entries into s in order. Existing keys are overwritten.
func Import(ctx context.Context, s Store, entries []model.Entry) (int, error) {
	imported := 0
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		_, err := s.Put(ctx, e.Key, PutParams{
			Favour:       e.Record.Favour,
			Attitude:     e.Record.Attitude,
			Relationship: e.Record.Relationship,
		})
		if err != nil {
			return imported, errors.Wrapf(err, "import %q", e.Key)
		}
		imported++
	}
	return imported, nil
}

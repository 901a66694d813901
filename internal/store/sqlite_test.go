package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/favourpro/internal/observability"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), testDefault, observability.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	for _, f := range []int{1, 2, 3} {
		_, err := s.Put(ctx, "42", PutParams{Favour: f})
		require.NoError(t, err)
	}

	revs, err := s.History(ctx, "42", 0)
	require.NoError(t, err)
	require.Len(t, revs, 3)
	assert.Equal(t, 3, revs[0].Record.Favour, "newest first")
	assert.Equal(t, 1, revs[2].Record.Favour)
	assert.NotEqual(t, revs[0].ID, revs[1].ID)

	// Deleting the record keeps its history.
	_, err = s.Delete(ctx, "42")
	require.NoError(t, err)
	revs, err = s.History(ctx, "42", 2)
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}

func TestSQLiteDBPathCreation(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "sub", "dir", "test.db")
	s, err := NewSQLiteStore(dbPath, testDefault, observability.Discard())
	require.NoError(t, err)
	s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestSQLiteImplementsHistorian(t *testing.T) {
	var st Store = newTestSQLiteStore(t)
	_, ok := st.(Historian)
	assert.True(t, ok)
}

func TestSQLitePutRefusesUnreadableRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLiteStore(t)

	_, err := s.db.Exec(`INSERT INTO affinity (key, favour, attitude, relationship, seq, revision, updated_at)
		VALUES ('42', 'lots', 'fond', 'friend', 1, 'r0', '')`)
	require.NoError(t, err)

	_, err = s.Put(ctx, "42", PutParams{Attitude: "cold"})
	require.Error(t, err)

	var attitude, relationship string
	require.NoError(t, s.db.QueryRow(`SELECT attitude, relationship FROM affinity WHERE key = '42'`).
		Scan(&attitude, &relationship))
	assert.Equal(t, "fond", attitude)
	assert.Equal(t, "friend", relationship)

	assert.Equal(t, testDefault, s.Get(ctx, "42"), "reads fall back to the default")
}

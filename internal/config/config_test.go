package config

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/store"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("FAVOURPRO_DATA_DIR", dir)
	t.Setenv("FAVOURPRO_CONFIG", "")
	return dir
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.False(t, cfg.SessionBased)
	assert.Equal(t, model.DefaultRecord, cfg.DefaultRecord())
	assert.Equal(t, -100, cfg.FavourMin)
	assert.Equal(t, 100, cfg.FavourMax)
	assert.Equal(t, store.BackendJSON, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "user_data.json"), cfg.Store.Path)
	assert.Equal(t, DefaultDeniedMessage, cfg.DeniedMessage())
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := isolate(t)
	file := filepath.Join(dir, "favourpro.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
session_based: true
default:
  favour: 10
  attitude: polite
favour_min: -50
favour_max: 50
store:
  backend: sqlite
admin_denied_message: "nope"
`), 0o644))
	t.Setenv("FAVOURPRO_DEFAULT_RELATIONSHIP", "visitor")
	t.Setenv("FAVOURPRO_LOG_LEVEL", "debug")

	cfg, err := Load(viper.New(), file)
	require.NoError(t, err)

	assert.True(t, cfg.SessionBased)
	assert.Equal(t, model.Record{Favour: 10, Attitude: "polite", Relationship: "visitor"}, cfg.DefaultRecord())
	assert.Equal(t, -50, cfg.FavourMin)
	assert.Equal(t, store.BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, filepath.Join(dir, "favourpro.db"), cfg.Store.Path)
	assert.Equal(t, "nope", cfg.DeniedMessage())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadExplicitMissingFile(t *testing.T) {
	dir := isolate(t)
	_, err := Load(viper.New(), filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Default:   DefaultConfig{Attitude: "a", Relationship: "r"},
			FavourMin: -100,
			FavourMax: 100,
			Store:     StoreConfig{Backend: store.BackendJSON},
		}
	}

	require.NoError(t, base().Validate())

	c := base()
	c.FavourMin = 100
	assert.Error(t, c.Validate())

	c = base()
	c.Default.Attitude = " "
	assert.Error(t, c.Validate())

	c = base()
	c.Store.Backend = "mongo"
	assert.ErrorIs(t, c.Validate(), store.ErrUnknownBackend)

	c = base()
	c.Log.Level = "chatty"
	assert.Error(t, c.Validate())
}

func TestOpenStoreAndLogger(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	var buf bytes.Buffer
	logger, err := cfg.Logger(&buf)
	require.NoError(t, err)

	s, err := cfg.OpenStore(context.Background(), logger)
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, cfg.DefaultRecord(), s.Default())
	_, err = s.Put(context.Background(), "42", store.PutParams{Favour: 3})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "user_data.json"))
	assert.NoError(t, err)
}

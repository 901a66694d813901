// Package config loads favourpro configuration from defaults, an optional
// YAML file, FAVOURPRO_* environment variables and bound command flags.
package config

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/rcliao/favourpro/internal/model"
	"github.com/rcliao/favourpro/internal/observability"
	"github.com/rcliao/favourpro/internal/store"
)

// EnvPrefix prefixes every environment variable, e.g. FAVOURPRO_STORE_BACKEND.
const EnvPrefix = "FAVOURPRO"

// DefaultDeniedMessage is shown to non-admin callers of admin operations.
const DefaultDeniedMessage = "Permission denied: this command is for administrators only."

// Config holds the application configuration.
type Config struct {
	// SessionBased keys records by (session, user) instead of user alone.
	SessionBased bool `mapstructure:"session_based"`

	Default DefaultConfig `mapstructure:"default"`

	// FavourMin and FavourMax are interpolated into the instruction text.
	// They are not enforced on writes.
	FavourMin int `mapstructure:"favour_min"`
	FavourMax int `mapstructure:"favour_max"`

	// Instruction replaces the built-in instruction template when set.
	Instruction string `mapstructure:"instruction"`

	AdminDeniedMessage string `mapstructure:"admin_denied_message"`

	DataDir string      `mapstructure:"data_dir"`
	Store   StoreConfig `mapstructure:"store"`
	Log     LogConfig   `mapstructure:"log"`
}

// DefaultConfig is the record handed out for identities never set.
type DefaultConfig struct {
	Favour       int    `mapstructure:"favour"`
	Attitude     string `mapstructure:"attitude"`
	Relationship string `mapstructure:"relationship"`
}

// StoreConfig selects and configures the state store backend.
type StoreConfig struct {
	Backend     string `mapstructure:"backend"`
	Path        string `mapstructure:"path"`
	RedisAddr   string `mapstructure:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default so that environment
// variables are honoured for all of them.
func SetDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("session_based", false)
	v.SetDefault("default.favour", model.DefaultRecord.Favour)
	v.SetDefault("default.attitude", model.DefaultRecord.Attitude)
	v.SetDefault("default.relationship", model.DefaultRecord.Relationship)
	v.SetDefault("favour_min", -100)
	v.SetDefault("favour_max", 100)
	v.SetDefault("instruction", "")
	v.SetDefault("admin_denied_message", DefaultDeniedMessage)
	v.SetDefault("data_dir", filepath.Join(home, ".favourpro"))
	v.SetDefault("store.backend", store.BackendJSON)
	v.SetDefault("store.path", "")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.redis_prefix", "favourpro:")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration into a Config. file may be empty, in which case
// $FAVOURPRO_CONFIG and then <data_dir>/config.yaml are tried; a missing
// default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := file != ""
	if !explicit {
		file = os.Getenv(EnvPrefix + "_CONFIG")
		explicit = file != ""
	}
	if !explicit {
		file = filepath.Join(v.GetString("data_dir"), "config.yaml")
	}

	if _, err := os.Stat(file); explicit || err == nil {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", file)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.applyDerived()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDerived() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Path != "" {
		return
	}
	switch c.Store.Backend {
	case store.BackendSQLite:
		c.Store.Path = filepath.Join(c.DataDir, "favourpro.db")
	default:
		c.Store.Path = filepath.Join(c.DataDir, "user_data.json")
	}
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.FavourMin >= c.FavourMax {
		return errors.Errorf("favour_min (%d) must be below favour_max (%d)", c.FavourMin, c.FavourMax)
	}
	if strings.TrimSpace(c.Default.Attitude) == "" {
		return errors.New("default.attitude must not be empty")
	}
	if strings.TrimSpace(c.Default.Relationship) == "" {
		return errors.New("default.relationship must not be empty")
	}
	switch c.Store.Backend {
	case store.BackendJSON, store.BackendSQLite, store.BackendRedis:
	default:
		return errors.Wrapf(store.ErrUnknownBackend, "%q", c.Store.Backend)
	}
	if _, err := observability.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// DefaultRecord returns the configured default record.
func (c *Config) DefaultRecord() model.Record {
	return model.Record{
		Favour:       c.Default.Favour,
		Attitude:     c.Default.Attitude,
		Relationship: c.Default.Relationship,
	}
}

// DeniedMessage returns the admin-denied message, never empty.
func (c *Config) DeniedMessage() string {
	if strings.TrimSpace(c.AdminDeniedMessage) == "" {
		return DefaultDeniedMessage
	}
	return c.AdminDeniedMessage
}

// Logger builds the process logger writing to w.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := observability.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	return observability.NewLogger(w, level, c.Log.Format)
}

// OpenStore opens the configured backend.
func (c *Config) OpenStore(ctx context.Context, logger *slog.Logger) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Backend:     c.Store.Backend,
		Path:        c.Store.Path,
		RedisAddr:   c.Store.RedisAddr,
		RedisPrefix: c.Store.RedisPrefix,
		Default:     c.DefaultRecord(),
		Logger:      logger,
	})
}

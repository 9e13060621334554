// Package config loads process-level scenemesh settings.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then SCENEMESH_* environment variables. Later layers only override
// what they set.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/scenemesh/logging"
	"github.com/hupe1980/scenemesh/stage"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCENEMESH_"

// Store backends understood by Validate.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Config is the root configuration.
type Config struct {
	Store StoreConfig `yaml:"store" envPrefix:"STORE_"`
	Log   LogConfig   `yaml:"log" envPrefix:"LOG_"`
	Stage StageConfig `yaml:"stage" envPrefix:"STAGE_"`
}

// StoreConfig selects and configures the session backend.
type StoreConfig struct {
	Backend string        `yaml:"backend" env:"BACKEND"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`

	RedisURL  string        `yaml:"redis_url" env:"REDIS_URL"`
	KeyPrefix string        `yaml:"key_prefix" env:"KEY_PREFIX"`
	TTL       time.Duration `yaml:"ttl" env:"TTL"`

	SQLitePath string `yaml:"sqlite_path" env:"SQLITE_PATH"`

	MongoURI        string `yaml:"mongo_uri" env:"MONGO_URI"`
	MongoDatabase   string `yaml:"mongo_database" env:"MONGO_DATABASE"`
	MongoCollection string `yaml:"mongo_collection" env:"MONGO_COLLECTION"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level     string `yaml:"level" env:"LEVEL"`
	Format    string `yaml:"format" env:"FORMAT"`
	AddSource bool   `yaml:"add_source" env:"ADD_SOURCE"`
}

// StageConfig mirrors stage.Config.
type StageConfig struct {
	ResetDataOnTransition bool `yaml:"reset_data_on_transition" env:"RESET_DATA_ON_TRANSITION"`
	CheckTargetFirst      bool `yaml:"check_target_first" env:"CHECK_TARGET_FIRST"`
	SerializeUsers        bool `yaml:"serialize_users" env:"SERIALIZE_USERS"`
}

// Default returns the built-in defaults: in-memory store, info level JSON
// logs and the default stage behaviour.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend:         BackendMemory,
			Timeout:         5 * time.Second,
			MongoCollection: "scene_sessions",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load resolves the configuration. path may be empty, in which case only
// defaults and the environment are used.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend specific requirements.
func (c Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Backend) {
	case BackendMemory:
	case BackendRedis:
		if c.Store.RedisURL == "" {
			errs = append(errs, errors.New("store.redis_url is required for the redis backend"))
		}
		if c.Store.TTL < 0 {
			errs = append(errs, errors.New("store.ttl must not be negative"))
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, errors.New("store.sqlite_path is required for the sqlite backend"))
		}
	case BackendMongo:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("store.mongo_uri is required for the mongo backend"))
		}
		if c.Store.MongoDatabase == "" {
			errs = append(errs, errors.New("store.mongo_database is required for the mongo backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// ToStage maps the settings onto stage.Config.
func (s StageConfig) ToStage() stage.Config {
	return stage.Config{
		ResetDataOnTransition: s.ResetDataOnTransition,
		CheckTargetFirst:      s.CheckTargetFirst,
		SerializeUsers:        s.SerializeUsers,
	}
}

// Logger builds a logger writing to w. An unparsable level falls back to
// info; Validate reports it.
func (l LogConfig) Logger(w io.Writer, component string) logging.Logger {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		level = logging.LogLevelInfo
	}
	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    strings.ToLower(l.Format),
		Output:    w,
		AddSource: l.AddSource,
		Component: component,
	})
}

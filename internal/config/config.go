// Package config loads the filestore configuration.
//
// Values are read, in increasing order of precedence, from the defaults, the
// config/config.<env>.json (or .yaml/.yml) file and FILESTORE_* environment
// variables. A .env file, if present, is loaded into the environment first
// without overriding variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"

	"github.com/dadi/api-filestore/adapter/connector"
	"github.com/dadi/api-filestore/adapter/database"
	"github.com/dadi/api-filestore/adapter/decoder"
	"github.com/dadi/api-filestore/adapter/persistence"
	"github.com/dadi/api-filestore/adapter/serializer"
)

// EnvVar names the environment used when Load is given none.
const EnvVar = "FILESTORE_ENV"

// DefaultEnv is the environment used when none is given or set.
const DefaultEnv = "development"

// Config holds the filestore configuration.
type Config struct {
	DatabasePath      string        `filestore:"databasePath"`
	DefaultDatabase   string        `filestore:"defaultDatabase"`
	AutosaveEnabled   bool          `filestore:"autosave"`
	AutosaveInterval  time.Duration `filestore:"autosaveInterval"`
	SerializationMode string        `filestore:"serializationMode"`
	FileMode          os.FileMode   `filestore:"fileMode"`
	DirMode           os.FileMode   `filestore:"dirMode"`
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() Config {
	return Config{
		DatabasePath:      "workspace/db",
		DefaultDatabase:   "default",
		AutosaveEnabled:   true,
		AutosaveInterval:  database.DefaultAutosaveInterval,
		SerializationMode: string(serializer.ModeNormal),
		FileMode:          persistence.DefaultFileMode,
		DirMode:           persistence.DefaultDirMode,
	}
}

type loader struct {
	dir    string
	logger *slog.Logger
}

// Load returns the configuration of the given environment. An empty env is
// read from FILESTORE_ENV, defaulting to "development".
func Load(env string, options ...Option) (Config, error) {
	l := loader{dir: "."}
	for _, option := range options {
		option(&l)
	}
	if l.logger == nil {
		l.logger = slog.Default()
	}

	if err := l.loadDotEnv(); err != nil {
		return Config{}, err
	}

	if env == "" {
		env = os.Getenv(EnvVar)
	}
	if env == "" {
		env = DefaultEnv
	}

	cfg := NewDefaultConfig()
	l.logger.Info("loading configuration", "env", env)
	if err := l.applyFile(&cfg, env); err != nil {
		return Config{}, err
	}
	l.applyEnv(&cfg)

	if _, err := serializer.ParseMode(cfg.SerializationMode); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (l *loader) loadDotEnv() error {
	name := filepath.Join(l.dir, ".env")
	if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(name); err != nil {
		return fmt.Errorf("loading %s: %w", name, err)
	}
	return nil
}

func (l *loader) applyFile(cfg *Config, env string) error {
	base := filepath.Join(l.dir, "config", "config."+env)
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name := base + ext
		b, err := os.ReadFile(name)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}

		values := make(map[string]any)
		if ext == ".json" {
			err = jsoniter.ConfigCompatibleWithStandardLibrary.Unmarshal(b, &values)
		} else {
			err = yaml.Unmarshal(b, &values)
		}
		if err != nil {
			return fmt.Errorf("parsing %s: %w", name, err)
		}
		if err := decoder.NewDecoder().Decode(values, cfg); err != nil {
			return fmt.Errorf("reading %s: %w", name, err)
		}
		l.logger.Info("configuration file loaded", "file", name)
		return nil
	}
	return nil
}

func (l *loader) applyEnv(cfg *Config) {
	if v := os.Getenv("FILESTORE_DATABASE_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("FILESTORE_DEFAULT_DATABASE"); v != "" {
		cfg.DefaultDatabase = v
	}
	if v := os.Getenv("FILESTORE_SERIALIZATION_MODE"); v != "" {
		cfg.SerializationMode = v
	}
	if v := os.Getenv("FILESTORE_AUTOSAVE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.AutosaveEnabled = b
		} else {
			l.logger.Warn("invalid FILESTORE_AUTOSAVE env var, ignored", "value", v)
		}
	}
	if v := os.Getenv("FILESTORE_AUTOSAVE_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.AutosaveInterval = d
		} else {
			l.logger.Warn("invalid FILESTORE_AUTOSAVE_INTERVAL env var, ignored", "value", v)
		}
	}
}

// ConnectorOptions returns the connector options matching the configuration.
func (c Config) ConnectorOptions() []connector.Option {
	mode, _ := serializer.ParseMode(c.SerializationMode)
	return []connector.Option{
		connector.WithPath(c.DatabasePath),
		connector.WithDefaultDatabase(c.DefaultDatabase),
		connector.WithDatabaseOptions(
			database.WithAutosave(c.AutosaveEnabled),
			database.WithAutosaveInterval(c.AutosaveInterval),
			database.WithSerializationMode(mode),
			database.WithFileMode(c.FileMode),
			database.WithDirMode(c.DirMode),
		),
	}
}

// WithDir sets the directory holding .env and the config directory.
func WithDir(dir string) Option {
	return func(l *loader) {
		l.dir = dir
	}
}

// WithLogger sets the logger. It defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

// Option configures Load.
type Option func(*loader)

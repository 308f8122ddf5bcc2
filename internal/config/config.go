// Package config loads application configuration from defaults, an optional
// YAML file, a .env file and the process environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override, e.g. USERS_SERVER_PORT.
const EnvPrefix = "USERS_"

// LegacyDatabaseURLEnv is read when USERS_DATABASE_URL is not set.
const LegacyDatabaseURLEnv = "MONGO_URI"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	CORS     CORSConfig     `koanf:"cors"`
	Import   ImportConfig   `koanf:"import"`
}

// ServerConfig configures the HTTP servers.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig configures the document store.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	Name            string        `koanf:"name"`
	Collection      string        `koanf:"collection"`
	MaxPoolSize     uint64        `koanf:"max_pool_size"`
	MinPoolSize     uint64        `koanf:"min_pool_size"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// CORSConfig configures allowed origins.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// ImportConfig configures the import job.
type ImportConfig struct {
	// RateLimit caps writes per second; 0 disables throttling.
	RateLimit float64 `koanf:"rate_limit"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              "8080",
			MetricsPort:       "9090",
			ReadTimeout:       15 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
			ShutdownTimeout:   10 * time.Second,
		},
		Database: DatabaseConfig{
			Collection:      "users",
			MaxPoolSize:     100,
			ConnectTimeout:  30 * time.Second,
			ConnectAttempts: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
	}
}

// Load builds the configuration. Later sources override earlier ones:
// defaults, YAML file at path (skipped when empty or missing), environment.
// A .env file in the working directory is loaded into the environment first
// without overriding variables that are already set.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if !k.Exists("database.url") {
		cfg.Database.URL = os.Getenv(LegacyDatabaseURLEnv)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required settings.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database url is required (set %sDATABASE_URL or %s)", EnvPrefix, LegacyDatabaseURLEnv)
	}
	if c.Database.Collection == "" {
		return errors.New("database collection is required")
	}
	if c.Import.RateLimit < 0 {
		return errors.New("import rate limit must not be negative")
	}
	return nil
}

// envValue maps USERS_SECTION_SOME_KEY to section.some_key. List settings
// are comma separated.
func envValue(name, value string) (string, interface{}) {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	if section, rest, found := strings.Cut(key, "_"); found {
		key = section + "." + rest
	}

	if key == "cors.allowed_origins" {
		origins := make([]string, 0)
		for _, o := range strings.Split(value, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		return key, origins
	}
	return key, value
}

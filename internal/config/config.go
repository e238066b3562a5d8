// Package config loads add-on settings from an optional YAML file and the
// environment. Environment names match the ones the add-on has always
// used (PORT, DATABASE_TYPE, SQLITE_PATH, REDIS_URL, ...).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// ConfigName is the config file base name looked up without --config.
const ConfigName = "aftercredits"

// Config holds every runtime setting.
type Config struct {
	Port     int
	AddonURL string

	Cache    CacheConfig
	Sources  SourcesConfig
	Metadata MetadataConfig
	Log      LogConfig

	TMDBAPIKey string
}

// CacheConfig selects and locates the result cache backend.
type CacheConfig struct {
	Backend    string
	SQLitePath string
	FilePath   string
	RedisURL   string
	TTL        time.Duration
}

// SourcesConfig controls the fan-out.
type SourcesConfig struct {
	Order   []provider.SourceName
	Timeout time.Duration
	Retries int
}

// MetadataConfig locates the title lookups.
type MetadataConfig struct {
	CinemetaURL string
	OMDbAPIKey  string
}

// LogConfig configures the logger.
type LogConfig struct {
	Level  string
	Format string
}

// Error reports an invalid setting. It is fatal at startup.
type Error struct {
	Field string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func fieldErr(field, format string, args ...any) *Error {
	return &Error{Field: field, Err: fmt.Errorf(format, args...)}
}

// keys maps viper keys to their environment variables.
var keys = map[string]string{
	"server.port":           "PORT",
	"server.addon_url":      "ADDON_URL",
	"cache.backend":         "DATABASE_TYPE",
	"cache.sqlite_path":     "SQLITE_PATH",
	"cache.file_path":       "CACHE_FILE",
	"cache.redis_url":       "REDIS_URL",
	"cache.ttl":             "CACHE_TTL",
	"sources.order":         "SOURCE_ORDER",
	"sources.timeout":       "SOURCE_TIMEOUT",
	"sources.retries":       "SOURCE_RETRIES",
	"tmdb.api_key":          "TMDB_APIKEY",
	"metadata.cinemeta_url": "CINEMETA_URL",
	"metadata.omdb_api_key": "OMDB_APIKEY",
	"log.level":             "LOG_LEVEL",
	"log.format":            "LOG_FORMAT",
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Port: 3000,
		Cache: CacheConfig{
			Backend:    BackendSQLite,
			SQLitePath: "./cache.sqlite",
			FilePath:   "./cache.gob",
			TTL:        24 * time.Hour,
		},
		Sources: SourcesConfig{
			Order:   append([]provider.SourceName(nil), provider.DefaultOrder...),
			Timeout: 5 * time.Second,
			Retries: 3,
		},
		Metadata: MetadataConfig{
			CinemetaURL: "https://cinemeta-live.strem.io",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// NewViper prepares a viper instance with defaults and environment
// bindings. When cfgFile is empty, aftercredits.yaml is looked up in the
// working directory and ~/.config/aftercredits.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("server.port", def.Port)
	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.sqlite_path", def.Cache.SQLitePath)
	v.SetDefault("cache.file_path", def.Cache.FilePath)
	v.SetDefault("cache.ttl", def.Cache.TTL.String())
	v.SetDefault("sources.order", joinOrder(def.Sources.Order))
	v.SetDefault("sources.timeout", def.Sources.Timeout.String())
	v.SetDefault("sources.retries", def.Sources.Retries)
	v.SetDefault("metadata.cinemeta_url", def.Metadata.CinemetaURL)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	for key, env := range keys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", ConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// Load reads settings from v. The result is not validated.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:     v.GetInt("server.port"),
		AddonURL: strings.TrimSpace(v.GetString("server.addon_url")),
		Cache: CacheConfig{
			Backend:    strings.ToLower(strings.TrimSpace(v.GetString("cache.backend"))),
			SQLitePath: strings.TrimSpace(v.GetString("cache.sqlite_path")),
			FilePath:   strings.TrimSpace(v.GetString("cache.file_path")),
			RedisURL:   strings.TrimSpace(v.GetString("cache.redis_url")),
		},
		Sources: SourcesConfig{
			Order:   orderFrom(v.Get("sources.order")),
			Retries: v.GetInt("sources.retries"),
		},
		Metadata: MetadataConfig{
			CinemetaURL: strings.TrimRight(strings.TrimSpace(v.GetString("metadata.cinemeta_url")), "/"),
			OMDbAPIKey:  strings.TrimSpace(v.GetString("metadata.omdb_api_key")),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		TMDBAPIKey: strings.TrimSpace(v.GetString("tmdb.api_key")),
	}

	var err error
	if cfg.Cache.TTL, err = parseDuration(v.GetString("cache.ttl")); err != nil {
		return nil, &Error{Field: "cache.ttl", Err: err}
	}
	if cfg.Sources.Timeout, err = parseDuration(v.GetString("sources.timeout")); err != nil {
		return nil, &Error{Field: "sources.timeout", Err: err}
	}
	return cfg, nil
}

// Validate checks the settings the process cannot start without.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fieldErr("server.port", "must be between 1 and 65535, got %d", c.Port)
	}

	switch c.Cache.Backend {
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fieldErr("cache.sqlite_path", "required for the sqlite backend")
		}
	case BackendFile:
		if c.Cache.FilePath == "" {
			return fieldErr("cache.file_path", "required for the file backend")
		}
	case BackendRedis:
		if c.Cache.RedisURL == "" {
			return fieldErr("cache.redis_url", "required for the redis backend")
		}
	case BackendMemory:
	default:
		return fieldErr("cache.backend", "unknown backend %q (want sqlite, file, redis or memory)", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fieldErr("cache.ttl", "must be positive")
	}

	if len(c.Sources.Order) == 0 {
		return fieldErr("sources.order", "at least one source is required")
	}
	seen := make(map[provider.SourceName]bool)
	for _, name := range c.Sources.Order {
		if !provider.IsKnown(name) {
			return fieldErr("sources.order", "unknown source %q", name)
		}
		if seen[name] {
			return fieldErr("sources.order", "source %q listed twice", name)
		}
		seen[name] = true
	}
	if c.Sources.Timeout <= 0 {
		return fieldErr("sources.timeout", "must be positive")
	}
	if c.Sources.Retries < 0 {
		return fieldErr("sources.retries", "must not be negative")
	}
	return nil
}

// ListenAddr returns the server listen address.
func (c *Config) ListenAddr() string {
	return ":" + strconv.Itoa(c.Port)
}

// parseDuration accepts Go durations ("24h") or plain seconds ("86400").
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func orderFrom(raw any) []provider.SourceName {
	switch v := raw.(type) {
	case string:
		return provider.ParseOrder(v)
	case []string:
		return provider.ParseOrder(strings.Join(v, ","))
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, fmt.Sprint(item))
		}
		return provider.ParseOrder(strings.Join(parts, ","))
	default:
		return nil
	}
}

func joinOrder(order []provider.SourceName) string {
	parts := make([]string, len(order))
	for i, n := range order {
		parts[i] = string(n)
	}
	return strings.Join(parts, ",")
}

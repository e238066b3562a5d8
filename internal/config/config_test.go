package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// isolate keeps the developer's own config and environment out of a test.
func isolate(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	for _, env := range keys {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func load(t *testing.T, cfgFile string) *Config {
	t.Helper()
	v, err := NewViper(cfgFile)
	require.NoError(t, err)
	cfg, err := Load(v)
	require.NoError(t, err)
	return cfg
}

func TestDefault(t *testing.T) {
	want := &Config{
		Port: 3000,
		Cache: CacheConfig{
			Backend:    "sqlite",
			SQLitePath: "./cache.sqlite",
			FilePath:   "./cache.gob",
			TTL:        24 * time.Hour,
		},
		Sources: SourcesConfig{
			Order: []provider.SourceName{
				provider.SourceAfterCredits,
				provider.SourceWikipedia,
				provider.SourceMediaStinger,
				provider.SourceTMDB,
			},
			Timeout: 5 * time.Second,
			Retries: 3,
		},
		Metadata: MetadataConfig{CinemetaURL: "https://cinemeta-live.strem.io"},
		Log:      LogConfig{Level: "info", Format: "text"},
	}

	if diff := cmp.Diff(want, Default()); diff != "" {
		t.Errorf("Default() mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg := load(t, "")
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("Load() without overrides mismatch (-want +got):\n%s", diff)
	}
	assert.NoError(t, cfg.Validate())
}

func TestLoadEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("PORT", "8080")
	t.Setenv("DATABASE_TYPE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("CACHE_TTL", "3600")
	t.Setenv("SOURCE_ORDER", "tmdb, Wikipedia")
	t.Setenv("SOURCE_TIMEOUT", "2s")
	t.Setenv("SOURCE_RETRIES", "0")
	t.Setenv("TMDB_APIKEY", " key ")
	t.Setenv("OMDB_APIKEY", "omdb")
	t.Setenv("CINEMETA_URL", "http://meta.local/")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("ADDON_URL", "https://example.com/manifest.json")

	cfg := load(t, "")

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, ":8080", cfg.ListenAddr())
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []provider.SourceName{provider.SourceTMDB, provider.SourceWikipedia}, cfg.Sources.Order)
	assert.Equal(t, 2*time.Second, cfg.Sources.Timeout)
	assert.Equal(t, 0, cfg.Sources.Retries)
	assert.Equal(t, "key", cfg.TMDBAPIKey)
	assert.Equal(t, "omdb", cfg.Metadata.OMDbAPIKey)
	assert.Equal(t, "http://meta.local", cfg.Metadata.CinemetaURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "https://example.com/manifest.json", cfg.AddonURL)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	body := `server:
  port: 7000
cache:
  backend: file
  file_path: /tmp/ac.gob
  ttl: 12h
sources:
  order:
    - wikipedia
    - aftercredits
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := load(t, path)
	assert.Equal(t, 7000, cfg.Port)
	assert.Equal(t, BackendFile, cfg.Cache.Backend)
	assert.Equal(t, "/tmp/ac.gob", cfg.Cache.FilePath)
	assert.Equal(t, 12*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []provider.SourceName{provider.SourceWikipedia, provider.SourceAfterCredits}, cfg.Sources.Order)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	isolate(t)
	require.NoError(t, os.WriteFile("aftercredits.yaml", []byte("server:\n  port: 7000\n"), 0o644))
	t.Setenv("PORT", "9000")

	cfg := load(t, "")
	assert.Equal(t, 9000, cfg.Port)
}

func TestNewViperMissingExplicitFile(t *testing.T) {
	isolate(t)
	_, err := NewViper(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadBadDuration(t *testing.T) {
	isolate(t)
	t.Setenv("CACHE_TTL", "soon")

	v, err := NewViper("")
	require.NoError(t, err)
	_, err = Load(v)

	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "cache.ttl", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"defaults", func(*Config) {}, ""},
		{"memory backend", func(c *Config) { c.Cache.Backend = BackendMemory }, ""},
		{"bad port", func(c *Config) { c.Port = 0 }, "server.port"},
		{"port too large", func(c *Config) { c.Port = 70000 }, "server.port"},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "mongo" }, "cache.backend"},
		{"redis without url", func(c *Config) { c.Cache.Backend = BackendRedis }, "cache.redis_url"},
		{"sqlite without path", func(c *Config) { c.Cache.SQLitePath = "" }, "cache.sqlite_path"},
		{"file without path", func(c *Config) {
			c.Cache.Backend = BackendFile
			c.Cache.FilePath = ""
		}, "cache.file_path"},
		{"zero ttl", func(c *Config) { c.Cache.TTL = 0 }, "cache.ttl"},
		{"empty order", func(c *Config) { c.Sources.Order = nil }, "sources.order"},
		{"unknown source", func(c *Config) {
			c.Sources.Order = []provider.SourceName{provider.SourceTMDB, "imdb"}
		}, "sources.order"},
		{"duplicate source", func(c *Config) {
			c.Sources.Order = []provider.SourceName{provider.SourceTMDB, provider.SourceTMDB}
		}, "sources.order"},
		{"zero timeout", func(c *Config) { c.Sources.Timeout = 0 }, "sources.timeout"},
		{"negative retries", func(c *Config) { c.Sources.Retries = -1 }, "sources.retries"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"86400", 24 * time.Hour, true},
		{"90m", 90 * time.Minute, true},
		{" 5s ", 5 * time.Second, true},
		{"", 0, false},
		{"later", 0, false},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if tt.ok {
			require.NoError(t, err, tt.in)
			assert.Equal(t, tt.want, got, tt.in)
		} else {
			assert.Error(t, err, tt.in)
		}
	}
}

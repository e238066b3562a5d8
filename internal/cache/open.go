package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/config"
	"github.com/Digital-Shane/aftercredits/internal/logging"
)

// dialTimeout bounds the initial redis ping.
const dialTimeout = 5 * time.Second

// Open builds the Store named by cfg.Backend. Unknown backends and missing
// connection settings are reported as *config.Error.
func Open(cfg config.CacheConfig, logger *log.Logger) (Store, error) {
	logger = logging.Component(logger, "cache")

	switch cfg.Backend {
	case config.BackendSQLite:
		if cfg.SQLitePath == "" {
			return nil, &config.Error{Field: "cache.sqlite_path", Err: fmt.Errorf("required for the sqlite backend")}
		}
		s, err := OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("cache opened", "backend", cfg.Backend, "path", cfg.SQLitePath)
		return s, nil

	case config.BackendFile:
		if cfg.FilePath == "" {
			return nil, &config.Error{Field: "cache.file_path", Err: fmt.Errorf("required for the file backend")}
		}
		f, err := OpenFile(cfg.FilePath)
		if err != nil {
			return nil, err
		}
		logger.Info("cache opened", "backend", cfg.Backend, "path", cfg.FilePath)
		return f, nil

	case config.BackendRedis:
		if cfg.RedisURL == "" {
			return nil, &config.Error{Field: "cache.redis_url", Err: fmt.Errorf("required for the redis backend")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		defer cancel()
		r, err := OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		logger.Info("cache opened", "backend", cfg.Backend)
		return r, nil

	case config.BackendMemory:
		logger.Info("cache opened", "backend", cfg.Backend)
		return NewMemory(), nil
	}

	return nil, &config.Error{
		Field: "cache.backend",
		Err:   fmt.Errorf("%w %q", ErrUnknownBackend, cfg.Backend),
	}
}

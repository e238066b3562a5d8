// Package cache provides the key-value result cache shared by the
// resolution pipeline and the TMDB id translation. Entries live in named
// namespaces with a TTL; an expired entry reads as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/logging"
)

// Namespaces used by the add-on.
const (
	NamespaceResults = "results"
	NamespaceTMDB    = "tmdb"
)

// ErrUnknownBackend is returned by Open for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("cache store closed")

// Store is a namespaced byte store with per-entry expiry. Implementations
// are safe for concurrent use.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, bool, error)
	Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Cache is a typed JSON view of one namespace with a fixed TTL.
type Cache[T any] struct {
	store     Store
	namespace string
	ttl       time.Duration
	logger    *log.Logger
}

// New returns a typed view over namespace in s.
func New[T any](s Store, namespace string, ttl time.Duration) *Cache[T] {
	return &Cache[T]{store: s, namespace: namespace, ttl: ttl, logger: logging.Nop()}
}

// WithLogger sets the logger used to report backend and decode errors.
func (c *Cache[T]) WithLogger(logger *log.Logger) *Cache[T] {
	c.logger = logging.Component(logger, "cache")
	return c
}

// Get returns the value for key. Backend and decode errors are logged and
// reported as a miss.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	raw, ok, err := c.store.Get(ctx, c.namespace, key)
	if err != nil {
		c.logger.Warn("cache read failed", "namespace", c.namespace, "key", key, "err", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn("cache entry undecodable", "namespace", c.namespace, "key", key, "err", err)
		return zero, false
	}
	return v, true
}

// Set stores v under key with the namespace TTL.
func (c *Cache[T]) Set(ctx context.Context, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.namespace, key, raw, c.ttl)
}

// TTL returns the namespace TTL.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

func compositeKey(namespace, key string) string {
	return namespace + ":" + key
}

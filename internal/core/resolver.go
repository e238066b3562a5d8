// Package core runs the stinger resolution pipeline: cache, metadata
// lookup, then each configured source in priority order.
package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/metadata"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// DefaultSourceTimeout bounds one source call.
const DefaultSourceTimeout = 5 * time.Second

var (
	// ErrNotFound means no source produced an answer. It is not cached.
	ErrNotFound = errors.New("no source produced an answer")
	// ErrInvalidID is returned for an empty identifier.
	ErrInvalidID = errors.New("invalid movie id")
)

// ResultCache stores answered results by IMDb id.
// *cache.Cache[provider.ScrapeResult] satisfies it.
type ResultCache interface {
	Get(ctx context.Context, key string) (provider.ScrapeResult, bool)
	Set(ctx context.Context, key string, v provider.ScrapeResult) error
}

// ResolverConfig wires a Resolver.
type ResolverConfig struct {
	Sources       []provider.Source
	Results       ResultCache // nil disables caching
	Lookup        metadata.Lookup
	SourceTimeout time.Duration
	Logger        *log.Logger
}

// Attempt records one source call.
type Attempt struct {
	Source   provider.SourceName
	Kind     provider.OutcomeKind
	Err      error
	Duration time.Duration
}

// Resolver answers stinger lookups. It is safe for concurrent use; each
// call runs its sources strictly in order.
type Resolver struct {
	sources []provider.Source
	results ResultCache
	lookup  metadata.Lookup
	timeout time.Duration
	logger  *log.Logger
}

// NewResolver validates cfg and returns a Resolver.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Lookup == nil {
		return nil, errors.New("resolver: metadata lookup is required")
	}
	if len(cfg.Sources) == 0 {
		return nil, errors.New("resolver: at least one source is required")
	}
	for i, s := range cfg.Sources {
		if s == nil {
			return nil, fmt.Errorf("resolver: source %d is nil", i)
		}
	}
	if cfg.SourceTimeout <= 0 {
		cfg.SourceTimeout = DefaultSourceTimeout
	}

	return &Resolver{
		sources: append([]provider.Source(nil), cfg.Sources...),
		results: cfg.Results,
		lookup:  cfg.Lookup,
		timeout: cfg.SourceTimeout,
		logger:  logging.Component(cfg.Logger, "resolver"),
	}, nil
}

// Sources returns the configured source order.
func (r *Resolver) Sources() []provider.SourceName {
	names := make([]provider.SourceName, len(r.sources))
	for i, s := range r.sources {
		names[i] = s.Name()
	}
	return names
}

// Resolve returns the first answer for imdbID, or ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, imdbID string) (*provider.ScrapeResult, error) {
	res, _, err := r.ResolveTrace(ctx, imdbID)
	return res, err
}

// ResolveTrace is Resolve plus the per-source attempts. A cache hit has no
// attempts.
func (r *Resolver) ResolveTrace(ctx context.Context, imdbID string) (*provider.ScrapeResult, []Attempt, error) {
	id := NormalizeID(imdbID)
	if id == "" {
		return nil, nil, ErrInvalidID
	}

	if r.results != nil {
		if cached, ok := r.results.Get(ctx, id); ok {
			r.logger.Debug("cache hit", "id", id)
			return &cached, nil, nil
		}
	}

	meta, err := r.lookup.Lookup(ctx, id)
	if err != nil {
		r.logger.Warn("metadata lookup failed", "id", id, "err", err)
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
	}
	query := meta.SearchQuery()
	if query.IMDbID == "" {
		query.IMDbID = id
	}

	attempts := make([]Attempt, 0, len(r.sources))
	for _, src := range r.sources {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}

		out, elapsed := r.scrape(ctx, src, query)
		attempts = append(attempts, Attempt{Source: src.Name(), Kind: out.Kind, Err: out.Err, Duration: elapsed})

		switch {
		case out.IsAnswered():
			res := *out.Result
			if res.Stingers == nil {
				res.Stingers = []provider.Stinger{}
			}
			r.store(ctx, id, res)
			r.logger.Info("answered", "id", id, "source", src.Name(), "stingers", len(res.Stingers))
			return &res, attempts, nil
		case out.Kind == provider.KindFailed:
			r.logger.Warn("source failed", "source", src.Name(), "query", query.Query, "err", out.Err)
		default:
			r.logger.Debug("no answer", "source", src.Name(), "query", query.Query)
		}
	}

	r.logger.Info("not found", "id", id, "query", query.Query)
	return nil, attempts, ErrNotFound
}

// scrape calls src under the per-source timeout and recovers a panic as a
// failure.
func (r *Resolver) scrape(ctx context.Context, src provider.Source, q provider.SearchQuery) (out provider.Outcome, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		elapsed = time.Since(start)
		if p := recover(); p != nil {
			out = provider.Failed(fmt.Errorf("%s: panic: %v", src.Name(), p))
		}
	}()
	return src.Scrape(ctx, q), 0
}

func (r *Resolver) store(ctx context.Context, id string, res provider.ScrapeResult) {
	if r.results == nil {
		return
	}
	if err := r.results.Set(ctx, id, res); err != nil {
		r.logger.Warn("cache write failed", "id", id, "err", err)
	}
}

// NormalizeID trims whitespace and a trailing ".json" from a route id.
func NormalizeID(id string) string {
	id = strings.TrimSpace(id)
	id = strings.TrimSuffix(id, ".json")
	return strings.TrimSpace(id)
}

package cmd

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/cache"
	"github.com/Digital-Shane/aftercredits/internal/config"
	"github.com/Digital-Shane/aftercredits/internal/core"
	"github.com/Digital-Shane/aftercredits/internal/httpx"
	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/metadata"
	"github.com/Digital-Shane/aftercredits/internal/provider"
	"github.com/Digital-Shane/aftercredits/internal/provider/aftercredits"
	"github.com/Digital-Shane/aftercredits/internal/provider/mediastinger"
	"github.com/Digital-Shane/aftercredits/internal/provider/tmdb"
	"github.com/Digital-Shane/aftercredits/internal/provider/wikipedia"
)

// app is the wired resolution pipeline shared by serve and lookup.
type app struct {
	cfg      *config.Config
	logger   *log.Logger
	store    cache.Store
	registry *provider.Registry
	resolver *core.Resolver
}

// buildApp opens the cache and wires sources, metadata and the resolver.
// A nil store opens the configured backend.
func buildApp(cfg *config.Config, logger *log.Logger, store cache.Store) (*app, error) {
	if store == nil {
		var err error
		if store, err = cache.Open(cfg.Cache, logger); err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
	}

	client := httpx.New(httpx.Options{Timeout: cfg.Sources.Timeout, Retries: cfg.Sources.Retries})
	ids := cache.New[int](store, cache.NamespaceTMDB, cfg.Cache.TTL).WithLogger(logger)

	registry, err := buildRegistry(cfg, client, ids, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}
	sources, err := registry.Order(cfg.Sources.Order)
	if err != nil {
		return nil, errors.Join(&config.Error{Field: "sources.order", Err: err}, store.Close())
	}

	lookup, err := buildLookup(cfg, client, logger)
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	resolver, err := core.NewResolver(core.ResolverConfig{
		Sources:       sources,
		Results:       cache.New[provider.ScrapeResult](store, cache.NamespaceResults, cfg.Cache.TTL).WithLogger(logger),
		Lookup:        lookup,
		SourceTimeout: cfg.Sources.Timeout,
		Logger:        logger,
	})
	if err != nil {
		return nil, errors.Join(err, store.Close())
	}

	return &app{cfg: cfg, logger: logger, store: store, registry: registry, resolver: resolver}, nil
}

// Close releases the cache backend.
func (a *app) Close() error {
	return a.store.Close()
}

// buildRegistry registers every known source, configured or not, so that
// `sources` can report on the ones left out of the order.
func buildRegistry(cfg *config.Config, client *httpx.Client, ids tmdb.IDCache, logger *log.Logger) (*provider.Registry, error) {
	registry := provider.NewRegistry()
	for _, s := range []provider.Source{
		aftercredits.New(aftercredits.Options{Client: client, Logger: logger}),
		wikipedia.New(wikipedia.Options{Client: client, Logger: logger}),
		mediastinger.New(mediastinger.Options{Client: client, Logger: logger}),
		tmdb.New(tmdb.Options{APIKey: cfg.TMDBAPIKey, IDs: ids, Logger: logger}),
	} {
		if err := registry.Register(s); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// buildLookup chains Cinemeta with OMDb when an OMDb key is configured.
func buildLookup(cfg *config.Config, client *httpx.Client, logger *log.Logger) (metadata.Lookup, error) {
	chain := metadata.Chain{metadata.NewCinemeta(cfg.Metadata.CinemetaURL, client)}
	if cfg.Metadata.OMDbAPIKey == "" {
		return chain, nil
	}
	omdb, err := metadata.NewOMDb(cfg.Metadata.OMDbAPIKey, client.HTTPClient())
	if err != nil {
		return nil, err
	}
	logging.Component(logger, "metadata").Debug("omdb fallback enabled")
	return append(chain, omdb), nil
}

// Package server exposes the add-on over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/addon"
	"github.com/Digital-Shane/aftercredits/internal/core"
	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 10 * time.Second

// Resolver answers stinger lookups. *core.Resolver satisfies it.
type Resolver interface {
	Resolve(ctx context.Context, imdbID string) (*provider.ScrapeResult, error)
}

// Options configures a Server.
type Options struct {
	Resolver Resolver
	Sources  []provider.SourceName // shown on the configure page
	AddonURL string                // public manifest URL, optional
	CacheTTL time.Duration         // advertised through Cache-Control
	Logger   *log.Logger
}

// Server routes add-on requests to the resolver.
type Server struct {
	resolver Resolver
	sources  []provider.SourceName
	addonURL string
	ttl      time.Duration
	logger   *log.Logger
	manifest addon.Manifest
}

// New returns a Server. Resolver is required.
func New(opts Options) (*Server, error) {
	if opts.Resolver == nil {
		return nil, errors.New("server: resolver is required")
	}
	return &Server{
		resolver: opts.Resolver,
		sources:  opts.Sources,
		addonURL: opts.AddonURL,
		ttl:      opts.CacheTTL,
		logger:   logging.Component(opts.Logger, "http"),
		manifest: addon.NewManifest(),
	}, nil
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /manifest.json", s.handleManifest)
	mux.HandleFunc("GET /configure", s.handleConfigure)
	mux.HandleFunc("GET /stream/movie/{id}", s.handleStream)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	return chain(mux, s.recoverer, s.accessLog, requestID, cors)
}

// Serve accepts connections on ln until ctx is canceled, then shuts down
// within ShutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "AfterCredits add-on %s. Install from /manifest.json\n", s.manifest.Version)
}

func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manifest)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStream always answers 200; failures give an empty stream list.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := core.NormalizeID(r.PathValue("id"))
	logger := s.logger.With("id", id, "request_id", RequestIDFrom(r.Context()))

	res, err := s.resolver.Resolve(r.Context(), id)
	switch {
	case err == nil:
		if s.ttl > 0 {
			w.Header().Set("Cache-Control", fmt.Sprintf("max-age=%d", int(s.ttl.Seconds())))
		}
		logger.Debug("stream answered", "title", res.Title, "stingers", len(res.Stingers))
	case errors.Is(err, core.ErrNotFound), errors.Is(err, core.ErrInvalidID):
		logger.Debug("stream not found", "err", err)
		res = nil
	default:
		logger.Error("stream lookup failed", "err", err)
		res = nil
	}

	writeJSON(w, http.StatusOK, addon.Streams(res))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

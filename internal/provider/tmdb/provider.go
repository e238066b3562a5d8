package tmdb

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ryanbradynd05/go-tmdb"

	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

const (
	movieURL = "https://www.themoviedb.org/movie/"

	keywordDuringCredits = "duringcreditsstinger"
	keywordAfterCredits  = "aftercreditsstinger"
)

// TMDBClient is the subset of *tmdb.TMDb used here, for testing.
type TMDBClient interface {
	GetFind(id, source string, options map[string]string) (*tmdb.FindResults, error)
	GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error)
}

// IDCache stores IMDb to TMDB id translations. *cache.Cache[int] satisfies it.
type IDCache interface {
	Get(ctx context.Context, key string) (int, bool)
	Set(ctx context.Context, key string, value int) error
}

// Options configures the Provider.
type Options struct {
	APIKey string
	Client TMDBClient // overrides the client built from APIKey
	IDs    IDCache
	Logger *log.Logger
}

// Provider implements provider.Source using TMDB keyword tags.
type Provider struct {
	client      TMDBClient
	ids         IDCache
	apiKey      string
	rateLimiter *rateLimiter
	logger      *log.Logger
}

// New creates a TMDB source. Without an API key the source answers nothing.
func New(opts Options) *Provider {
	p := &Provider{
		apiKey:      strings.TrimSpace(opts.APIKey),
		client:      opts.Client,
		ids:         opts.IDs,
		rateLimiter: newRateLimiter(38, 10*time.Second), // 38 requests per 10 seconds
		logger:      logging.Component(opts.Logger, string(provider.SourceTMDB)),
	}
	if p.client == nil && p.apiKey != "" {
		p.client = tmdb.Init(tmdb.Config{
			APIKey:   p.apiKey,
			Proxies:  nil,
			UseProxy: false,
		})
	}
	return p
}

// Name returns the provider name
func (p *Provider) Name() provider.SourceName {
	return provider.SourceTMDB
}

// Description returns the provider description
func (p *Provider) Description() string {
	return "The Movie Database (TMDB) stinger keywords"
}

// keyNote describes the credential go-tmdb expects. It sends the key as the
// v3 api_key query parameter, so a v4 read access token will not work.
const keyNote = "Needs a v3 API key, not a v4 read access token"

// Capabilities returns what this provider can do
func (p *Provider) Capabilities() provider.Capabilities {
	return provider.Capabilities{
		RequiresAuth: true,
		Configured:   p.configured(),
		Notes:        "keyword tags, absence counts as a confirmed negative. " + keyNote,
	}
}

func (p *Provider) configured() bool {
	return p.apiKey != "" && p.client != nil
}

// mapError maps TMDB errors to provider errors
func (p *Provider) mapError(err error) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "401") || strings.Contains(errStr, "unauthorized") || strings.Contains(errStr, "invalid api key") {
		return &provider.Error{
			Source:  provider.SourceTMDB,
			Code:    provider.CodeAuth,
			Message: "authentication failed",
			Err:     err,
		}
	}
	if strings.Contains(errStr, "429") || strings.Contains(errStr, "rate limit") {
		return &provider.Error{
			Source:     provider.SourceTMDB,
			Code:       provider.CodeRateLimited,
			Message:    "rate limit exceeded",
			Retry:      true,
			RetryAfter: 10,
			Err:        err,
		}
	}
	if strings.Contains(errStr, "503") || strings.Contains(errStr, "unavailable") {
		return &provider.Error{
			Source:     provider.SourceTMDB,
			Code:       provider.CodeUnavailable,
			Message:    "service unavailable",
			Retry:      true,
			RetryAfter: 30,
			Err:        err,
		}
	}

	return provider.TransportError(provider.SourceTMDB, "request failed", err)
}

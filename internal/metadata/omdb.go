package metadata

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Digital-Shane/omdb"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// OMDb looks movies up through the Open Movie Database. It is only useful
// with an API key.
type OMDb struct {
	client *omdb.Client
	apiKey string
}

// NewOMDb returns an OMDb lookup. httpClient may be nil.
func NewOMDb(apiKey string, httpClient *http.Client) (*OMDb, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, &provider.Error{Source: NameOMDb, Code: provider.CodeAuth, Message: "api key is required", Err: provider.ErrNotConfigured}
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OMDb{client: omdb.NewClient(apiKey, httpClient), apiKey: apiKey}, nil
}

// Lookup implements Lookup. The OMDb client takes no context, so
// cancellation is only checked before the call.
func (o *OMDb) Lookup(ctx context.Context, imdbID string) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}

	var result any
	result, err := o.client.SearchByImdbID(omdb.QueryData{ImdbID: imdbID})
	if err != nil {
		return Meta{}, o.mapError(err)
	}

	var movie omdb.MovieResult
	switch r := result.(type) {
	case omdb.MovieResult:
		movie = r
	case *omdb.MovieResult:
		if r == nil {
			return Meta{}, provider.SchemaError(NameOMDb, "empty result for "+imdbID, nil)
		}
		movie = *r
	default:
		return Meta{}, provider.SchemaError(NameOMDb, "unexpected result type", nil)
	}

	if strings.TrimSpace(movie.Title) == "" {
		return Meta{}, provider.SchemaError(NameOMDb, "result without title for "+imdbID, nil)
	}
	id := movie.ImdbID
	if id == "" {
		id = imdbID
	}
	return Meta{
		IMDbID:      id,
		Title:       strings.TrimSpace(movie.Title),
		ReleaseInfo: omdb.FirstYear(movie.Year),
	}, nil
}

func (o *OMDb) mapError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "invalid api key"), strings.Contains(lower, "no api key"):
		return &provider.Error{Source: NameOMDb, Code: provider.CodeAuth, Message: "authentication failed", Err: err}
	case strings.Contains(lower, "limit reached"), strings.Contains(lower, "too many requests"):
		return &provider.Error{Source: NameOMDb, Code: provider.CodeRateLimited, Message: "request limit reached", Retry: true, RetryAfter: 5, Err: err}
	case strings.Contains(lower, "not found"), strings.Contains(lower, "incorrect imdb id"):
		return provider.SchemaError(NameOMDb, "movie not found", err)
	default:
		return provider.TransportError(NameOMDb, "lookup failed", err)
	}
}

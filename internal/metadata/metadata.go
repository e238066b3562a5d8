// Package metadata resolves an IMDb id into the title and release year the
// stinger sources search by.
package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// Lookup names used in errors and logs.
const (
	NameCinemeta provider.SourceName = "cinemeta"
	NameOMDb     provider.SourceName = "omdb"
)

// ErrNoLookups is returned by an empty Chain.
var ErrNoLookups = errors.New("no metadata lookups configured")

// Meta is the canonical title information for one movie.
type Meta struct {
	IMDbID      string `json:"id"`
	Title       string `json:"name"`
	ReleaseInfo string `json:"releaseInfo,omitempty"`
}

// SearchQuery builds the query the sources receive.
func (m Meta) SearchQuery() provider.SearchQuery {
	return provider.NewSearchQuery(m.Title, m.ReleaseInfo, m.IMDbID)
}

// Lookup resolves a canonical identifier.
type Lookup interface {
	Lookup(ctx context.Context, imdbID string) (Meta, error)
}

// Chain tries each lookup in order and returns the first success.
type Chain []Lookup

// Lookup implements Lookup. When every member fails, the errors are joined.
func (c Chain) Lookup(ctx context.Context, imdbID string) (Meta, error) {
	if len(c) == 0 {
		return Meta{}, ErrNoLookups
	}

	var errs []error
	for _, l := range c {
		meta, err := l.Lookup(ctx, imdbID)
		if err == nil {
			return meta, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return Meta{}, fmt.Errorf("metadata lookup %s: %w", imdbID, errors.Join(errs...))
}

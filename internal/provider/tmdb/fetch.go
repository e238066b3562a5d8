package tmdb

import (
	"context"
	"strconv"

	"github.com/ryanbradynd05/go-tmdb"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// Scrape translates the IMDb id and reads the movie's keyword tags. A movie
// without stinger keywords is a confirmed negative.
func (p *Provider) Scrape(ctx context.Context, q provider.SearchQuery) provider.Outcome {
	if !p.configured() {
		return provider.NoAnswer()
	}
	if q.IMDbID == "" {
		return provider.NoAnswer()
	}

	id, ok, err := p.lookupID(ctx, q.IMDbID)
	if err != nil {
		return provider.Failed(err)
	}
	if !ok {
		p.logger.Debug("no movie for imdb id", "imdb_id", q.IMDbID)
		return provider.NoAnswer()
	}

	movie, err := p.fetchMovie(ctx, id)
	if err != nil {
		return provider.Failed(err)
	}
	if movie == nil {
		return provider.Failed(provider.SchemaError(p.Name(), "empty movie response", nil))
	}

	return provider.Answered(&provider.ScrapeResult{
		Title:    movie.Title,
		Link:     movieURL + strconv.Itoa(id),
		Stingers: stingersFromKeywords(movie),
	})
}

// lookupID resolves the TMDB id, consulting the translation cache first.
func (p *Provider) lookupID(ctx context.Context, imdbID string) (int, bool, error) {
	if p.ids != nil {
		if id, ok := p.ids.Get(ctx, imdbID); ok {
			return id, true, nil
		}
	}

	if err := p.rateLimiter.wait(ctx); err != nil {
		return 0, false, p.mapError(err)
	}
	results, err := call(ctx, func() (*tmdb.FindResults, error) {
		return p.client.GetFind(imdbID, "imdb_id", nil)
	})
	if err != nil {
		return 0, false, p.mapError(err)
	}
	if results == nil || len(results.MovieResults) == 0 {
		return 0, false, nil
	}

	id := results.MovieResults[0].ID
	if p.ids != nil {
		if err := p.ids.Set(ctx, imdbID, id); err != nil {
			p.logger.Warn("cache id translation", "imdb_id", imdbID, "err", err)
		}
	}
	return id, true, nil
}

func (p *Provider) fetchMovie(ctx context.Context, id int) (*tmdb.Movie, error) {
	if err := p.rateLimiter.wait(ctx); err != nil {
		return nil, p.mapError(err)
	}
	movie, err := call(ctx, func() (*tmdb.Movie, error) {
		return p.client.GetMovieInfo(id, map[string]string{"append_to_response": "keywords"})
	})
	if err != nil {
		return nil, p.mapError(err)
	}
	return movie, nil
}

func stingersFromKeywords(movie *tmdb.Movie) []provider.Stinger {
	stingers := []provider.Stinger{}
	if movie.Keywords == nil {
		return stingers
	}
	for _, kw := range movie.Keywords.Keywords {
		switch kw.Name {
		case keywordDuringCredits:
			stingers = append(stingers, provider.Stinger{Type: provider.MidCredit})
		case keywordAfterCredits:
			stingers = append(stingers, provider.Stinger{Type: provider.PostCredit})
		}
	}
	return stingers
}

// call runs a blocking library call and abandons it when ctx ends first.
// The library has no context support of its own.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

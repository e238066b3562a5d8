package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	tmdb "github.com/ryanbradynd05/go-tmdb"

	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// mockTMDBClient implements TMDBClient for testing
type mockTMDBClient struct {
	getFindFunc      func(id, source string, options map[string]string) (*tmdb.FindResults, error)
	getMovieInfoFunc func(id int, options map[string]string) (*tmdb.Movie, error)

	mu        sync.Mutex
	findCalls int
}

func (m *mockTMDBClient) GetFind(id, source string, options map[string]string) (*tmdb.FindResults, error) {
	m.mu.Lock()
	m.findCalls++
	m.mu.Unlock()
	if m.getFindFunc != nil {
		return m.getFindFunc(id, source, options)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTMDBClient) GetMovieInfo(id int, options map[string]string) (*tmdb.Movie, error) {
	if m.getMovieInfoFunc != nil {
		return m.getMovieInfoFunc(id, options)
	}
	return nil, errors.New("not implemented")
}

type mapIDs struct {
	mu sync.Mutex
	m  map[string]int
}

func (c *mapIDs) Get(_ context.Context, key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *mapIDs) Set(_ context.Context, key string, v int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = v
	return nil
}

// movieJSON builds a *tmdb.Movie from a TMDB style payload.
func movieJSON(t *testing.T, payload string) *tmdb.Movie {
	t.Helper()
	var m tmdb.Movie
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		t.Fatalf("decode movie fixture: %v", err)
	}
	return &m
}

func findOne(id int) func(string, string, map[string]string) (*tmdb.FindResults, error) {
	return func(string, string, map[string]string) (*tmdb.FindResults, error) {
		return &tmdb.FindResults{MovieResults: []tmdb.MovieShort{{ID: id}}}, nil
	}
}

func TestScrape(t *testing.T) {
	tests := []struct {
		name     string
		movie    string
		wantKind provider.OutcomeKind
		want     *provider.ScrapeResult
	}{
		{
			name: "both stingers",
			movie: `{"id":24428,"title":"The Avengers","keywords":{"id":24428,"keywords":[
				{"id":9715,"name":"superhero"},
				{"id":179430,"name":"aftercreditsstinger"},
				{"id":179431,"name":"duringcreditsstinger"}]}}`,
			wantKind: provider.KindAnswered,
			want: &provider.ScrapeResult{
				Title: "The Avengers",
				Link:  "https://www.themoviedb.org/movie/24428",
				Stingers: []provider.Stinger{
					{Type: provider.PostCredit},
					{Type: provider.MidCredit},
				},
			},
		},
		{
			name:     "no stinger keywords is a confirmed negative",
			movie:    `{"id":24428,"title":"The Avengers","keywords":{"id":24428,"keywords":[{"id":9715,"name":"superhero"}]}}`,
			wantKind: provider.KindAnswered,
			want: &provider.ScrapeResult{
				Title:    "The Avengers",
				Link:     "https://www.themoviedb.org/movie/24428",
				Stingers: []provider.Stinger{},
			},
		},
		{
			name:     "keywords block missing",
			movie:    `{"id":24428,"title":"The Avengers"}`,
			wantKind: provider.KindAnswered,
			want: &provider.ScrapeResult{
				Title:    "The Avengers",
				Link:     "https://www.themoviedb.org/movie/24428",
				Stingers: []provider.Stinger{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			movie := movieJSON(t, tt.movie)
			client := &mockTMDBClient{
				getFindFunc: findOne(24428),
				getMovieInfoFunc: func(id int, options map[string]string) (*tmdb.Movie, error) {
					if id != 24428 {
						t.Errorf("GetMovieInfo id = %d, want 24428", id)
					}
					if options["append_to_response"] != "keywords" {
						t.Errorf("append_to_response = %q, want keywords", options["append_to_response"])
					}
					return movie, nil
				},
			}
			p := New(Options{APIKey: "test-key", Client: client})

			out := p.Scrape(context.Background(), provider.NewSearchQuery("The Avengers", "2012", "tt0848228"))
			if out.Kind != tt.wantKind {
				t.Fatalf("Scrape() kind = %v (err %v), want %v", out.Kind, out.Err, tt.wantKind)
			}
			if diff := cmp.Diff(tt.want, out.Result); diff != "" {
				t.Errorf("Scrape() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestScrapeWithoutKeyIsNoOp(t *testing.T) {
	client := &mockTMDBClient{getFindFunc: findOne(1)}
	p := New(Options{Client: client})

	out := p.Scrape(context.Background(), provider.NewSearchQuery("Alien", "1979", "tt0078748"))
	if out.Kind != provider.KindNoAnswer {
		t.Errorf("Scrape() kind = %v, want no-answer", out.Kind)
	}
	if client.findCalls != 0 {
		t.Errorf("GetFind called %d times, want 0", client.findCalls)
	}
	if p.Capabilities().Configured {
		t.Error("Capabilities().Configured = true without a key")
	}
}

func TestCapabilitiesDescribeKey(t *testing.T) {
	caps := New(Options{APIKey: "k", Client: &mockTMDBClient{}}).Capabilities()
	if !caps.RequiresAuth || !caps.Configured {
		t.Errorf("Capabilities() = %+v, want auth required and configured", caps)
	}
	if !strings.Contains(caps.Notes, "v3 API key") {
		t.Errorf("Notes = %q, want it to name the v3 API key", caps.Notes)
	}
}

func TestScrapeEmptyFindResults(t *testing.T) {
	client := &mockTMDBClient{
		getFindFunc: func(string, string, map[string]string) (*tmdb.FindResults, error) {
			return &tmdb.FindResults{}, nil
		},
	}
	out := New(Options{APIKey: "k", Client: client}).
		Scrape(context.Background(), provider.NewSearchQuery("Nothing", "", "tt9999999"))
	if out.Kind != provider.KindNoAnswer {
		t.Errorf("Scrape() kind = %v, want no-answer", out.Kind)
	}
}

func TestScrapeCachesIDTranslation(t *testing.T) {
	ids := &mapIDs{m: map[string]int{}}
	client := &mockTMDBClient{
		getFindFunc: func(id, source string, _ map[string]string) (*tmdb.FindResults, error) {
			if source != "imdb_id" {
				t.Errorf("external source = %q, want imdb_id", source)
			}
			return &tmdb.FindResults{MovieResults: []tmdb.MovieShort{{ID: 348}}}, nil
		},
		getMovieInfoFunc: func(id int, _ map[string]string) (*tmdb.Movie, error) {
			return &tmdb.Movie{ID: id, Title: "Alien"}, nil
		},
	}
	p := New(Options{APIKey: "k", Client: client, IDs: ids})

	for i := 0; i < 3; i++ {
		if out := p.Scrape(context.Background(), provider.NewSearchQuery("Alien", "1979", "tt0078748")); !out.IsAnswered() {
			t.Fatalf("Scrape() #%d kind = %v, want answered", i+1, out.Kind)
		}
	}
	if client.findCalls != 1 {
		t.Errorf("GetFind called %d times, want 1", client.findCalls)
	}
	if id, _ := ids.Get(context.Background(), "tt0078748"); id != 348 {
		t.Errorf("cached id = %d, want 348", id)
	}
}

func TestMapError(t *testing.T) {
	p := New(Options{})
	tests := []struct {
		err  error
		want string
	}{
		{errors.New("401 Unauthorized"), provider.CodeAuth},
		{errors.New("Invalid API key: You must be granted a valid key."), provider.CodeAuth},
		{errors.New("status 429: rate limit"), provider.CodeRateLimited},
		{errors.New("503 Service Unavailable"), provider.CodeUnavailable},
		{errors.New("dial tcp: connection refused"), provider.CodeTransport},
	}
	for _, tt := range tests {
		got := p.mapError(tt.err)
		if code := provider.CodeOf(got); code != tt.want {
			t.Errorf("mapError(%q) code = %q, want %q", tt.err, code, tt.want)
		}
		if !errors.Is(got, tt.err) {
			t.Errorf("mapError(%q) does not wrap the original error", tt.err)
		}
	}
}

func TestScrapeFailurePropagates(t *testing.T) {
	client := &mockTMDBClient{
		getFindFunc: func(string, string, map[string]string) (*tmdb.FindResults, error) {
			return nil, errors.New("401 Unauthorized")
		},
	}
	out := New(Options{APIKey: "bad", Client: client}).
		Scrape(context.Background(), provider.NewSearchQuery("Alien", "1979", "tt0078748"))
	if out.Kind != provider.KindFailed {
		t.Fatalf("Scrape() kind = %v, want failed", out.Kind)
	}
	if code := provider.CodeOf(out.Err); code != provider.CodeAuth {
		t.Errorf("error code = %q, want %q", code, provider.CodeAuth)
	}
}

package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Digital-Shane/aftercredits/internal/cache"
	"github.com/Digital-Shane/aftercredits/internal/metadata"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

type stubSource struct {
	name  provider.SourceName
	out   provider.Outcome
	wait  time.Duration
	panic bool

	mu      sync.Mutex
	calls   int
	queries []provider.SearchQuery
}

func (s *stubSource) Name() provider.SourceName           { return s.name }
func (s *stubSource) Description() string                 { return "stub" }
func (s *stubSource) Capabilities() provider.Capabilities { return provider.Capabilities{} }

func (s *stubSource) Scrape(ctx context.Context, q provider.SearchQuery) provider.Outcome {
	s.mu.Lock()
	s.calls++
	s.queries = append(s.queries, q)
	s.mu.Unlock()

	if s.panic {
		panic("boom")
	}
	if s.wait > 0 {
		select {
		case <-ctx.Done():
			return provider.Failed(ctx.Err())
		case <-time.After(s.wait):
		}
	}
	return s.out
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubLookup struct {
	meta  metadata.Meta
	err   error
	calls int
}

func (l *stubLookup) Lookup(_ context.Context, id string) (metadata.Meta, error) {
	l.calls++
	if l.err != nil {
		return metadata.Meta{}, l.err
	}
	m := l.meta
	m.IMDbID = id
	return m, nil
}

func answered(title string, stingers ...provider.Stinger) provider.Outcome {
	return provider.Answered(&provider.ScrapeResult{Title: title, Link: "https://example.com/" + title, Stingers: stingers})
}

func newResolver(t *testing.T, lookup metadata.Lookup, results ResultCache, sources ...provider.Source) *Resolver {
	t.Helper()
	r, err := NewResolver(ResolverConfig{
		Sources:       sources,
		Results:       results,
		Lookup:        lookup,
		SourceTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("NewResolver() error = %v", err)
	}
	return r
}

func resultCache() *cache.Cache[provider.ScrapeResult] {
	return cache.New[provider.ScrapeResult](cache.NewMemory(), cache.NamespaceResults, time.Hour)
}

func avengers() *stubLookup {
	return &stubLookup{meta: metadata.Meta{Title: "The Avengers", ReleaseInfo: "2012"}}
}

func TestResolveOrderAndStop(t *testing.T) {
	first := &stubSource{name: provider.SourceAfterCredits, out: provider.NoAnswer()}
	second := &stubSource{name: provider.SourceWikipedia, out: provider.Failed(errors.New("down"))}
	third := &stubSource{name: provider.SourceMediaStinger, out: answered("avengers", provider.Stinger{Type: provider.PostCredit})}
	fourth := &stubSource{name: provider.SourceTMDB, out: answered("never")}

	r := newResolver(t, avengers(), resultCache(), first, second, third, fourth)
	res, attempts, err := r.ResolveTrace(context.Background(), "tt0848228.json")
	if err != nil {
		t.Fatalf("ResolveTrace() error = %v", err)
	}
	if res.Title != "avengers" {
		t.Errorf("Title = %q, want avengers", res.Title)
	}
	if fourth.callCount() != 0 {
		t.Errorf("sources after an answer should not be called")
	}

	var kinds []provider.OutcomeKind
	for _, a := range attempts {
		kinds = append(kinds, a.Kind)
	}
	want := []provider.OutcomeKind{provider.KindNoAnswer, provider.KindFailed, provider.KindAnswered}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("attempt kinds mismatch (-want +got):\n%s", diff)
	}

	wantQuery := provider.SearchQuery{Query: "The Avengers 2012", Title: "The Avengers", Year: "2012", IMDbID: "tt0848228"}
	if diff := cmp.Diff(wantQuery, first.queries[0]); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveCacheHitSkipsEverything(t *testing.T) {
	results := resultCache()
	want := provider.ScrapeResult{Title: "cached", Link: "l", Stingers: []provider.Stinger{{Type: provider.MidCredit}}}
	if err := results.Set(context.Background(), "tt1", want); err != nil {
		t.Fatal(err)
	}

	lookup := avengers()
	src := &stubSource{name: provider.SourceTMDB, out: answered("fresh")}
	r := newResolver(t, lookup, results, src)

	got, attempts, err := r.ResolveTrace(context.Background(), " tt1 ")
	if err != nil {
		t.Fatalf("ResolveTrace() error = %v", err)
	}
	if diff := cmp.Diff(want, *got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	if lookup.calls != 0 || src.callCount() != 0 || len(attempts) != 0 {
		t.Errorf("cache hit made calls: lookup=%d source=%d attempts=%d", lookup.calls, src.callCount(), len(attempts))
	}
}

func TestResolveCachesEmptyAnswer(t *testing.T) {
	results := resultCache()
	src := &stubSource{name: provider.SourceMediaStinger, out: provider.Answered(&provider.ScrapeResult{Title: "none", Link: "l"})}
	r := newResolver(t, avengers(), results, src)

	for i := 0; i < 3; i++ {
		res, err := r.Resolve(context.Background(), "tt2")
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if res.Stingers == nil || len(res.Stingers) != 0 {
			t.Fatalf("Stingers = %#v, want empty non-nil", res.Stingers)
		}
	}
	if src.callCount() != 1 {
		t.Errorf("source calls = %d, want 1 (confirmed-none is cached)", src.callCount())
	}
}

func TestResolveNotFoundIsNotCached(t *testing.T) {
	src := &stubSource{name: provider.SourceWikipedia, out: provider.NoAnswer()}
	r := newResolver(t, avengers(), resultCache(), src)

	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), "tt3"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
		}
	}
	if src.callCount() != 2 {
		t.Errorf("source calls = %d, want 2", src.callCount())
	}
}

func TestResolveLookupFailure(t *testing.T) {
	lookup := &stubLookup{err: provider.TransportError(metadata.NameCinemeta, "fetch meta", errors.New("down"))}
	src := &stubSource{name: provider.SourceTMDB, out: answered("x")}
	r := newResolver(t, lookup, resultCache(), src)

	_, err := r.Resolve(context.Background(), "tt4")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Resolve() error = %v, want ErrNotFound", err)
	}
	if src.callCount() != 0 {
		t.Errorf("sources should not run without metadata")
	}
}

func TestResolveIdempotent(t *testing.T) {
	src := &stubSource{name: provider.SourceAfterCredits, out: answered("a", provider.Stinger{Type: provider.PostCredit, Note: "n"})}
	r := newResolver(t, avengers(), resultCache(), src)

	first, err := r.Resolve(context.Background(), "tt5")
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), "tt5.json")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeat mismatch (-first +second):\n%s", diff)
	}
}

func TestResolveWithoutCache(t *testing.T) {
	src := &stubSource{name: provider.SourceAfterCredits, out: answered("a")}
	r := newResolver(t, avengers(), nil, src)

	for i := 0; i < 2; i++ {
		if _, err := r.Resolve(context.Background(), "tt6"); err != nil {
			t.Fatal(err)
		}
	}
	if src.callCount() != 2 {
		t.Errorf("source calls = %d, want 2", src.callCount())
	}
}

func TestResolveSourceTimeoutAndPanic(t *testing.T) {
	slow := &stubSource{name: provider.SourceWikipedia, out: answered("late"), wait: time.Minute}
	broken := &stubSource{name: provider.SourceMediaStinger, panic: true}
	good := &stubSource{name: provider.SourceTMDB, out: answered("tmdb")}

	r, err := NewResolver(ResolverConfig{
		Sources:       []provider.Source{slow, broken, good},
		Lookup:        avengers(),
		SourceTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatal(err)
	}

	res, attempts, err := r.ResolveTrace(context.Background(), "tt7")
	if err != nil {
		t.Fatalf("ResolveTrace() error = %v", err)
	}
	if res.Title != "tmdb" {
		t.Errorf("Title = %q, want tmdb", res.Title)
	}
	if attempts[0].Kind != provider.KindFailed || !errors.Is(attempts[0].Err, context.DeadlineExceeded) {
		t.Errorf("slow attempt = %+v, want deadline failure", attempts[0])
	}
	if attempts[1].Kind != provider.KindFailed {
		t.Errorf("panicking attempt = %+v, want failure", attempts[1])
	}
}

func TestResolveInvalidID(t *testing.T) {
	r := newResolver(t, avengers(), nil, &stubSource{name: provider.SourceTMDB})
	if _, err := r.Resolve(context.Background(), " .json"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("Resolve() error = %v, want ErrInvalidID", err)
	}
}

func TestNewResolverValidation(t *testing.T) {
	src := &stubSource{name: provider.SourceTMDB}
	tests := []struct {
		name string
		cfg  ResolverConfig
	}{
		{"no lookup", ResolverConfig{Sources: []provider.Source{src}}},
		{"no sources", ResolverConfig{Lookup: avengers()}},
		{"nil source", ResolverConfig{Lookup: avengers(), Sources: []provider.Source{nil}}},
	}
	for _, tt := range tests {
		if _, err := NewResolver(tt.cfg); err == nil {
			t.Errorf("%s: NewResolver() error = nil", tt.name)
		}
	}

	r, err := NewResolver(ResolverConfig{Lookup: avengers(), Sources: []provider.Source{src}})
	if err != nil {
		t.Fatal(err)
	}
	if r.timeout != DefaultSourceTimeout {
		t.Errorf("timeout = %v, want default", r.timeout)
	}
	if diff := cmp.Diff([]provider.SourceName{provider.SourceTMDB}, r.Sources()); diff != "" {
		t.Errorf("Sources() mismatch:\n%s", diff)
	}
}

func TestNormalizeID(t *testing.T) {
	tests := map[string]string{
		"tt0848228":         "tt0848228",
		"tt0848228.json":    "tt0848228",
		"  tt0848228.json ": "tt0848228",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizeID(in); got != want {
			t.Errorf("NormalizeID(%q) = %q, want %q", in, got, want)
		}
	}
}

package provider

import (
	"context"
	"encoding/json"
	"strings"
)

// SourceName identifies a stinger source in configuration and logs.
type SourceName string

const (
	SourceAfterCredits SourceName = "aftercredits"
	SourceWikipedia    SourceName = "wikipedia"
	SourceMediaStinger SourceName = "mediastinger"
	SourceTMDB         SourceName = "tmdb"
)

// StingerType classifies a scene relative to the end credits.
type StingerType string

const (
	MidCredit  StingerType = "mid-credit-scene"
	PostCredit StingerType = "post-credit-scene"
)

// Label renders the type for display, e.g. "mid credit scene".
func (t StingerType) Label() string {
	return strings.ReplaceAll(string(t), "-", " ")
}

// Stinger is one detected scene during or after the credits.
type Stinger struct {
	Type StingerType `json:"type"`
	Note string      `json:"note,omitempty"`
}

// ScrapeResult is a source's answer for one movie. An empty Stingers slice
// means the source checked and found none.
type ScrapeResult struct {
	Title    string    `json:"title"`
	Link     string    `json:"link"`
	Stingers []Stinger `json:"stingers"`
}

// MarshalJSON keeps "stingers" an array even when the slice is nil.
func (r ScrapeResult) MarshalJSON() ([]byte, error) {
	type plain ScrapeResult
	if r.Stingers == nil {
		r.Stingers = []Stinger{}
	}
	return json.Marshal(plain(r))
}

// HasMidCredit reports whether any stinger plays during the credits.
func (r *ScrapeResult) HasMidCredit() bool {
	return r.has(MidCredit)
}

// HasPostCredit reports whether any stinger plays after the credits.
func (r *ScrapeResult) HasPostCredit() bool {
	return r.has(PostCredit)
}

func (r *ScrapeResult) has(t StingerType) bool {
	if r == nil {
		return false
	}
	for _, s := range r.Stingers {
		if s.Type == t {
			return true
		}
	}
	return false
}

// SearchQuery is built once per request from the metadata lookup.
type SearchQuery struct {
	Query  string // title plus year when known
	Title  string
	Year   string
	IMDbID string
}

// NewSearchQuery builds a SearchQuery from a resolved title and release year.
func NewSearchQuery(title, year, imdbID string) SearchQuery {
	title = strings.TrimSpace(title)
	year = strings.TrimSpace(year)
	return SearchQuery{
		Query:  strings.TrimSpace(title + " " + year),
		Title:  title,
		Year:   year,
		IMDbID: strings.TrimSpace(imdbID),
	}
}

// Capabilities describes what a source needs and how it answers.
type Capabilities struct {
	RequiresAuth bool   // needs an API credential
	Configured   bool   // credential present when RequiresAuth
	Notes        string // free-form detail for `aftercredits sources`
}

// Source is implemented by every stinger source.
type Source interface {
	Name() SourceName
	Description() string
	Capabilities() Capabilities

	// Scrape never panics and never returns Failed for an ordinary lack
	// of data; that is NoAnswer.
	Scrape(ctx context.Context, q SearchQuery) Outcome
}

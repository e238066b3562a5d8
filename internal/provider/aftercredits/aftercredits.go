// Package aftercredits scrapes the aftercredits.com fan site. The site marks
// films that have a stinger with a trailing "*" in search result titles and
// describes each scene in a spoiler block on the detail page.
package aftercredits

import (
	"bytes"
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/httpx"
	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

const (
	defaultBaseURL = "https://aftercredits.com"
	marker         = "*"
)

// Options configures the Source.
type Options struct {
	BaseURL string
	Client  *httpx.Client
	Logger  *log.Logger
}

// Source implements provider.Source for aftercredits.com.
type Source struct {
	baseURL string
	client  *httpx.Client
	logger  *log.Logger
}

// New creates a fan site source.
func New(opts Options) *Source {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	client := opts.Client
	if client == nil {
		client = httpx.New(httpx.Options{})
	}
	return &Source{
		baseURL: base,
		client:  client,
		logger:  logging.Component(opts.Logger, string(provider.SourceAfterCredits)),
	}
}

// Name returns the source name
func (s *Source) Name() provider.SourceName { return provider.SourceAfterCredits }

// Description returns the source description
func (s *Source) Description() string {
	return "aftercredits.com fan site, with scene descriptions"
}

// Capabilities returns what this source can do
func (s *Source) Capabilities() provider.Capabilities {
	return provider.Capabilities{Notes: "mid and post credit scenes with notes"}
}

// Scrape searches the site for a marked entry matching the query and reads
// its spoiler blocks. Unmarked entries are never answers.
func (s *Source) Scrape(ctx context.Context, q provider.SearchQuery) provider.Outcome {
	searchURL := s.baseURL + "/?s=" + url.QueryEscape(q.Query)
	html, err := s.client.Get(ctx, searchURL, nil)
	if err != nil {
		return provider.Failed(provider.TransportError(s.Name(), "search "+searchURL, err))
	}

	hit, ok, err := findEntry(html, q.Query)
	if err != nil {
		return provider.Failed(provider.SchemaError(s.Name(), "parse search page", err))
	}
	if !ok {
		s.logger.Debug("no matching entry", "query", q.Query)
		return provider.NoAnswer()
	}

	detailURL := resolveURL(s.baseURL, hit.href)
	detail, err := s.client.Get(ctx, detailURL, nil)
	if err != nil {
		return provider.Failed(provider.TransportError(s.Name(), "detail "+detailURL, err))
	}

	stingers, err := parseSpoilers(detail)
	if err != nil {
		return provider.Failed(provider.SchemaError(s.Name(), "parse detail page", err))
	}
	res := &provider.ScrapeResult{Title: hit.title, Link: detailURL, Stingers: stingers}
	s.logger.Debug("found stingers", "title", res.Title, "count", len(stingers))
	return provider.Answered(res)
}

type entry struct {
	title string
	href  string
}

// findEntry returns the first marked search result whose cleaned title
// contains the query with its year removed. Entries without the marker or
// without a link are skipped.
func findEntry(html []byte, query string) (entry, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return entry{}, false, err
	}

	want := strings.ToLower(provider.StripYear(query))

	var (
		hit   entry
		found bool
	)
	doc.Find("h3.entry-title").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		raw := strings.TrimSpace(sel.Text())
		if !strings.HasSuffix(raw, marker) {
			return true
		}
		title := cleanTitle(raw)
		if !strings.Contains(strings.ToLower(title), want) {
			return true
		}
		href, ok := sel.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return true
		}
		hit = entry{title: title, href: strings.TrimSpace(href)}
		found = true
		return false
	})
	return hit, found, nil
}

// cleanTitle drops the site's trailing marker glyph.
func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if n := len(s); n > 0 && strings.ContainsRune("*|?", rune(s[n-1])) {
		s = s[:n-1]
	}
	return strings.TrimSpace(s)
}

// parseSpoilers turns every spoiler block into a stinger. Blocks headed
// "during the credits" are mid-credit scenes, everything else post-credit.
func parseSpoilers(html []byte) ([]provider.Stinger, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, err
	}

	stingers := []provider.Stinger{}
	doc.Find(".spoiler-wrap").Each(func(_ int, sel *goquery.Selection) {
		st := provider.Stinger{Type: provider.PostCredit}
		when := strings.ToLower(strings.TrimSpace(sel.Find(".spoiler-head").Text()))
		if strings.Contains(when, "during the credits") {
			st.Type = provider.MidCredit
		}
		st.Note = strings.TrimSpace(sel.Find(".spoiler-body").Text())
		stingers = append(stingers, st)
	})
	return stingers, nil
}

func resolveURL(base, href string) string {
	b, err := url.Parse(base + "/")
	if err != nil {
		return href
	}
	u, err := b.Parse(href)
	if err != nil {
		return href
	}
	return u.String()
}

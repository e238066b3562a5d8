// Package wikipedia matches films against the tables of the Wikipedia
// "List of films with post-credits scenes" page. The page is fetched once
// and reused for a day.
package wikipedia

import (
	"bytes"
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/Digital-Shane/aftercredits/internal/httpx"
	"github.com/Digital-Shane/aftercredits/internal/logging"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

const (
	defaultPageURL = "https://en.wikipedia.org/wiki/List_of_films_with_post-credits_scenes"
	defaultLinkURL = "https://en.wikipedia.org"
	pageMaxAge     = 24 * time.Hour
)

// Options configures the Source.
type Options struct {
	PageURL string // list page, defaults to the English Wikipedia article
	LinkURL string // prefix for relative row links
	MaxAge  time.Duration
	Client  *httpx.Client
	Logger  *log.Logger
}

// Source implements provider.Source for the Wikipedia list.
type Source struct {
	pageURL string
	linkURL string
	client  *httpx.Client
	logger  *log.Logger
	page    *pageCache
}

// New creates a wiki table source with an empty page cache.
func New(opts Options) *Source {
	if opts.PageURL == "" {
		opts.PageURL = defaultPageURL
	}
	if opts.LinkURL == "" {
		opts.LinkURL = defaultLinkURL
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = pageMaxAge
	}
	if opts.Client == nil {
		opts.Client = httpx.New(httpx.Options{})
	}
	return &Source{
		pageURL: opts.PageURL,
		linkURL: strings.TrimRight(opts.LinkURL, "/"),
		client:  opts.Client,
		logger:  logging.Component(opts.Logger, string(provider.SourceWikipedia)),
		page:    newPageCache(opts.MaxAge),
	}
}

func (s *Source) Name() provider.SourceName { return provider.SourceWikipedia }

func (s *Source) Description() string {
	return "Wikipedia list of films with post-credits scenes"
}

func (s *Source) Capabilities() provider.Capabilities {
	return provider.Capabilities{Notes: "post credit scenes only, page cached 24h"}
}

// Scrape looks the query up in the cached list page.
func (s *Source) Scrape(ctx context.Context, q provider.SearchQuery) provider.Outcome {
	html, err := s.page.get(ctx, s.fetchPage)
	if html == nil {
		return provider.Failed(provider.TransportError(s.Name(), "fetch list page", err))
	}
	if err != nil {
		s.logger.Warn("refresh failed, using previous copy", "err", err)
	}

	want := normalizeQuery(q.Query)
	if want == "" {
		return provider.NoAnswer()
	}

	res, ok, err := match(html, want)
	if err != nil {
		return provider.Failed(provider.SchemaError(s.Name(), "parse list page", err))
	}
	if !ok {
		s.logger.Debug("no matching row", "query", q.Query, "normalized", want)
		return provider.NoAnswer()
	}
	if res.Link != "" && strings.HasPrefix(res.Link, "/") {
		res.Link = s.linkURL + res.Link
	}
	return provider.Answered(res)
}

func (s *Source) fetchPage(ctx context.Context) ([]byte, error) {
	s.logger.Debug("fetching list page", "url", s.pageURL)
	return s.client.Get(ctx, s.pageURL, nil)
}

// match scans every "Year" table for the first row whose normalized title
// equals or starts with want. Link is returned as found in the cell.
func match(html []byte, want string) (*provider.ScrapeResult, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false, err
	}

	var res *provider.ScrapeResult
	doc.Find("table.wikitable").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if !strings.HasPrefix(strings.TrimSpace(table.Find("tr").Text()), "Year") {
			return true
		}
		table.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
			cells := row.Find("td")
			if cells.Length() < 2 {
				return true
			}
			cell := cells.First()
			title := normalizeTitle(cell.Text())
			if title != want && !strings.HasPrefix(title, want) {
				return true
			}
			href, _ := cell.Find("a[href]").First().Attr("href")
			res = &provider.ScrapeResult{
				Title:    title,
				Link:     href,
				Stingers: []provider.Stinger{{Type: provider.PostCredit}},
			}
			return false
		})
		return res == nil
	})
	return res, res != nil, nil
}

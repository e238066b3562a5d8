// Package mediastinger scrapes the mediastinger.com aggregator, whose search
// listing carries a one-line subtitle such as "Stinger during and after the
// credits" or "No stinger".
package mediastinger

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

const defaultBaseURL = "http://www.mediastinger.com"

// Options configures the Source.
type Options struct {
	BaseURL string
	Client  *httpx.Client
	Logger  *log.Logger
}

// Source implements provider.Source for mediastinger.com.
type Source struct {
	baseURL string
	client  *httpx.Client
	logger  *log.Logger
}

// New creates an aggregator source.
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
		logger:  logging.Component(opts.Logger, string(provider.SourceMediaStinger)),
	}
}

func (s *Source) Name() provider.SourceName { return provider.SourceMediaStinger }

func (s *Source) Description() string {
	return "mediastinger.com aggregator listing"
}

func (s *Source) Capabilities() provider.Capabilities {
	return provider.Capabilities{Notes: "scene timing only, no notes"}
}

// Scrape reads the first entry of the movie search listing.
func (s *Source) Scrape(ctx context.Context, q provider.SearchQuery) provider.Outcome {
	searchURL := s.baseURL + "/?tab=MOVIES&s=" + url.QueryEscape(q.Query)
	html, err := s.client.Get(ctx, searchURL, nil)
	if err != nil {
		return provider.Failed(provider.TransportError(s.Name(), "search "+searchURL, err))
	}

	res, ok, err := parseListing(html, s.baseURL)
	if err != nil {
		return provider.Failed(provider.SchemaError(s.Name(), "parse listing", err))
	}
	if !ok {
		s.logger.Debug("no listing entry", "query", q.Query)
		return provider.NoAnswer()
	}
	return provider.Answered(res)
}

// parseListing reads the first listing entry. Relative links resolve
// against base.
func parseListing(html []byte, base string) (*provider.ScrapeResult, bool, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, false, err
	}

	item := doc.Find("ul.highlights li").First()
	if item.Length() == 0 {
		return nil, false, nil
	}

	href, _ := item.Find("a[href]").First().Attr("href")
	res := &provider.ScrapeResult{
		Title:    strings.TrimSpace(item.Find(".title").First().Text()),
		Link:     resolveURL(base, strings.TrimSpace(href)),
		Stingers: classify(item.Find(".subtitle").First().Text()),
	}
	return res, true, nil
}

// classify maps a listing subtitle onto stingers. A subtitle whose first
// word is "no" is a confirmed negative.
func classify(subtitle string) []provider.Stinger {
	text := strings.ToLower(strings.TrimSpace(subtitle))
	stingers := []provider.Stinger{}

	words := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	if len(words) > 0 && words[0] == "no" {
		return stingers
	}

	if strings.Contains(text, "during") {
		stingers = append(stingers, provider.Stinger{Type: provider.MidCredit})
	}
	if strings.Contains(text, "after") {
		stingers = append(stingers, provider.Stinger{Type: provider.PostCredit})
	}
	return stingers
}

func resolveURL(base, href string) string {
	if href == "" {
		return ""
	}
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

// Package httpx provides the HTTP client shared by the scraping sources and
// the metadata lookups: a per-client timeout, a fixed user agent and bounded
// transport-level retries for replayable requests.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds one request including retries.
	DefaultTimeout = 5 * time.Second
	// DefaultRetries is the number of extra attempts after the first.
	DefaultRetries = 3
	// DefaultUserAgent identifies the add-on to the scraped sites.
	DefaultUserAgent = "Stremio-AfterCredits-Scraper/1.0"

	maxBodyBytes = 8 << 20
)

// ErrBodyTooLarge is returned when a response exceeds the read limit.
var ErrBodyTooLarge = errors.New("response body exceeds limit")

// ErrDecode marks a 2xx response whose JSON body could not be decoded.
var ErrDecode = errors.New("invalid JSON body")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.StatusCode)
}

// Options configures a Client. Zero values select the package defaults.
type Options struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
	Transport http.RoundTripper
}

// Client is a small GET-oriented wrapper around http.Client.
type Client struct {
	http      *http.Client
	userAgent string
}

// New constructs a Client from the provided options.
func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	return &Client{
		http: &http.Client{
			Transport: &Transport{Base: base, RetryMax: opts.Retries},
			Timeout:   opts.Timeout,
		},
		userAgent: opts.UserAgent,
	}
}

// HTTPClient exposes the underlying client for libraries that accept one.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// Get fetches url and returns the response body. Non-2xx responses produce a
// *StatusError.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("read %s: %w", url, ErrBodyTooLarge)
	}
	return body, nil
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, headers map[string]string, v any) error {
	h := map[string]string{"Accept": "application/json"}
	for k, val := range headers {
		h[k] = val
	}
	body, err := c.Get(ctx, url, h)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w: %w", url, ErrDecode, err)
	}
	return nil
}

// Transport retries replayable requests (GET/HEAD without a body) on
// transport errors. Responses, including 5xx, are returned as-is.
type Transport struct {
	Base     http.RoundTripper
	RetryMax int
}

// RetryBaseDelay is the pause between attempts; tests shorten it.
var RetryBaseDelay = 100 * time.Millisecond

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) &&
		(req.Body == nil || req.Body == http.NoBody)
	max := t.RetryMax
	if max < 0 || !canRetry {
		max = 0
	}

	var lastErr error
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, lastErr
			case <-time.After(RetryBaseDelay * time.Duration(attempt)):
			}
		}

		resp, err := base.RoundTrip(req.Clone(req.Context()))
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if req.Context().Err() != nil {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

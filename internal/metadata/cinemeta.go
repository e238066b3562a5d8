package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Digital-Shane/aftercredits/internal/httpx"
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// DefaultCinemetaURL is the public Stremio metadata add-on.
const DefaultCinemetaURL = "https://cinemeta-live.strem.io"

// Cinemeta looks movies up through the Stremio catalog.
type Cinemeta struct {
	baseURL string
	client  *httpx.Client
}

// NewCinemeta returns a Cinemeta lookup. Empty baseURL selects the public
// instance; a nil client gets the httpx defaults.
func NewCinemeta(baseURL string, client *httpx.Client) *Cinemeta {
	if baseURL == "" {
		baseURL = DefaultCinemetaURL
	}
	if client == nil {
		client = httpx.New(httpx.Options{})
	}
	return &Cinemeta{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type cinemetaResponse struct {
	Meta *struct {
		ID          string       `json:"id"`
		Name        string       `json:"name"`
		ReleaseInfo releaseField `json:"releaseInfo"`
	} `json:"meta"`
}

// releaseField accepts "2012", 2012 or null.
type releaseField string

func (r *releaseField) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*r = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = releaseField(strings.TrimSpace(s))
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("releaseInfo: %w", err)
		}
		*r = releaseField(n.String())
	}
	return nil
}

// Lookup implements Lookup.
func (c *Cinemeta) Lookup(ctx context.Context, imdbID string) (Meta, error) {
	endpoint := fmt.Sprintf("%s/meta/movie/%s.json", c.baseURL, url.PathEscape(imdbID))

	var resp cinemetaResponse
	if err := c.client.GetJSON(ctx, endpoint, nil, &resp); err != nil {
		if errors.Is(err, httpx.ErrDecode) {
			return Meta{}, provider.SchemaError(NameCinemeta, "decode meta", err)
		}
		return Meta{}, provider.TransportError(NameCinemeta, "fetch meta", err)
	}

	if resp.Meta == nil || strings.TrimSpace(resp.Meta.Name) == "" {
		return Meta{}, provider.SchemaError(NameCinemeta, "meta without name for "+imdbID, nil)
	}

	id := resp.Meta.ID
	if id == "" {
		id = imdbID
	}
	return Meta{
		IMDbID:      id,
		Title:       strings.TrimSpace(resp.Meta.Name),
		ReleaseInfo: string(resp.Meta.ReleaseInfo),
	}, nil
}

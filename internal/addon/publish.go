package addon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultAPIURL is the Stremio add-on directory API.
const DefaultAPIURL = "https://api.strem.io"

// ErrInvalidAddonURL is returned when the URL does not point at a manifest.
var ErrInvalidAddonURL = errors.New("addon url must be an http(s) URL ending in /manifest.json")

// PublishError reports a rejected publish request.
type PublishError struct {
	StatusCode int
	Body       string
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish rejected with status %d: %s", e.StatusCode, e.Body)
}

type publishRequest struct {
	TransportURL  string `json:"transportUrl"`
	TransportName string `json:"transportName"`
}

// Publish registers addonURL with the directory at apiURL and returns the
// decoded response body.
func Publish(ctx context.Context, client *http.Client, apiURL, addonURL string) (map[string]any, error) {
	addonURL = strings.TrimSpace(addonURL)
	if !strings.HasSuffix(addonURL, "/manifest.json") ||
		!(strings.HasPrefix(addonURL, "https://") || strings.HasPrefix(addonURL, "http://")) {
		return nil, ErrInvalidAddonURL
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(publishRequest{TransportURL: addonURL, TransportName: "http"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(apiURL, "/")+"/api/addonPublish", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("publish: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &PublishError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("publish: decode response: %w", err)
	}
	return out, nil
}

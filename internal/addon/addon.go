// Package addon holds the Stremio add-on protocol types: the manifest, the
// stream list built from a stinger result, and directory publishing.
package addon

import (
	"github.com/Digital-Shane/aftercredits/internal/provider"
)

// ID is the add-on identifier registered with Stremio.
const ID = "com.almosteffective.aftercredits"

// StreamName labels every stream the add-on returns.
const StreamName = "AfterCredits"

// Version is the manifest version. Release builds set it with -ldflags.
var Version = "1.0.0"

// Manifest describes the add-on to Stremio clients.
type Manifest struct {
	ID            string        `json:"id"`
	Version       string        `json:"version"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Resources     []string      `json:"resources"`
	Types         []string      `json:"types"`
	Catalogs      []Catalog     `json:"catalogs"`
	IDPrefixes    []string      `json:"idPrefixes"`
	BehaviorHints BehaviorHints `json:"behaviorHints"`
}

// Catalog is unused by this add-on but must serialize as an array.
type Catalog struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// BehaviorHints tells clients how to present the add-on.
type BehaviorHints struct {
	Configurable          bool `json:"configurable"`
	ConfigurationRequired bool `json:"configurationRequired"`
}

// NewManifest returns the manifest served at /manifest.json.
func NewManifest() Manifest {
	return Manifest{
		ID:          ID,
		Version:     Version,
		Name:        "AfterCredits",
		Description: "Are there mid-credits or after credits scenes? Checks aftercredits.com, Wikipedia, MediaStinger and TMDB.",
		Resources:   []string{"stream"},
		Types:       []string{"movie"},
		Catalogs:    []Catalog{},
		IDPrefixes:  []string{"tt"},
		BehaviorHints: BehaviorHints{
			Configurable: true,
		},
	}
}

// Stream is one entry of a stream response. This add-on only emits
// external links.
type Stream struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	ExternalURL string `json:"externalUrl"`
}

// StreamResponse is the body of /stream/movie/{id}.
type StreamResponse struct {
	Streams []Stream `json:"streams"`
}

// Streams maps a result to one stream per stinger. A nil result or a
// result without stingers gives an empty, non-nil list.
func Streams(res *provider.ScrapeResult) StreamResponse {
	out := StreamResponse{Streams: []Stream{}}
	if res == nil {
		return out
	}
	for _, s := range res.Stingers {
		title := s.Type.Label()
		if s.Note != "" {
			title += "\n" + s.Note
		}
		out.Streams = append(out.Streams, Stream{
			Name:        StreamName,
			Title:       title,
			ExternalURL: res.Link,
		})
	}
	return out
}

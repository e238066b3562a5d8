package provider

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Known lists every source name the add-on can be configured with.
var Known = []SourceName{SourceAfterCredits, SourceWikipedia, SourceMediaStinger, SourceTMDB}

// DefaultOrder is the fan-out priority used when none is configured.
var DefaultOrder = []SourceName{SourceAfterCredits, SourceWikipedia, SourceMediaStinger, SourceTMDB}

// IsKnown reports whether name is one of the closed set of sources.
func IsKnown(name SourceName) bool {
	for _, k := range Known {
		if k == name {
			return true
		}
	}
	return false
}

// ParseOrder splits a comma separated list into source names, lower-cased
// and trimmed. Empty items are dropped.
func ParseOrder(value string) []SourceName {
	var out []SourceName
	for _, part := range strings.Split(value, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		out = append(out, SourceName(part))
	}
	return out
}

// Registry maps source names to their implementations.
type Registry struct {
	mu      sync.RWMutex
	sources map[SourceName]Source
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[SourceName]Source)}
}

// Register adds a source. Only names from Known are accepted.
func (r *Registry) Register(s Source) error {
	if s == nil {
		return fmt.Errorf("register: nil source")
	}
	name := SourceName(strings.ToLower(string(s.Name())))
	if !IsKnown(name) {
		return fmt.Errorf("register: unknown source %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("source %s already registered", name)
	}
	r.sources[name] = s
	return nil
}

// Get returns a source by name.
func (r *Registry) Get(name SourceName) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sources[SourceName(strings.ToLower(string(name)))]
	return s, ok
}

// List returns the registered names, sorted.
func (r *Registry) List() []SourceName {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]SourceName, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Order resolves names into sources in the given order. An empty order,
// an unregistered name or a duplicate is an error.
func (r *Registry) Order(names []SourceName) ([]Source, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("source order is empty")
	}

	seen := make(map[SourceName]bool, len(names))
	out := make([]Source, 0, len(names))
	for _, n := range names {
		n = SourceName(strings.ToLower(strings.TrimSpace(string(n))))
		if seen[n] {
			return nil, fmt.Errorf("source %q listed twice", n)
		}
		seen[n] = true

		s, ok := r.Get(n)
		if !ok {
			return nil, fmt.Errorf("unknown source %q (known: %s)", n, joinNames(Known))
		}
		out = append(out, s)
	}
	return out, nil
}

func joinNames(names []SourceName) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}

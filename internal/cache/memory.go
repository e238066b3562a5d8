package cache

import (
	"context"
	"time"

	csmap "github.com/mhmtszr/concurrent-swiss-map"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// Memory is a process-local Store.
type Memory struct {
	entries *csmap.CsMap[string, memoryEntry]
	now     func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: csmap.Create[string, memoryEntry](),
		now:     time.Now,
	}
}

func (m *Memory) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	k := compositeKey(namespace, key)
	e, ok := m.entries.Load(k)
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		m.entries.Delete(k)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	e := memoryEntry{value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expires = m.now().Add(ttl)
	}
	m.entries.Store(compositeKey(namespace, key), e)
	return nil
}

func (m *Memory) Close() error { return nil }

// Len reports the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	return m.entries.Count()
}

package wikipedia

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// pageCache holds the last fetched copy of the list page. Refreshes are
// collapsed so concurrent scrapes trigger a single fetch.
type pageCache struct {
	mu      sync.RWMutex
	html    []byte
	fetched time.Time

	maxAge time.Duration
	now    func() time.Time
	group  singleflight.Group
}

func newPageCache(maxAge time.Duration) *pageCache {
	return &pageCache{maxAge: maxAge, now: time.Now}
}

func (c *pageCache) snapshot() ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	fresh := c.html != nil && c.now().Sub(c.fetched) < c.maxAge
	return c.html, fresh
}

// get returns the cached page, fetching it when empty or stale. A failed
// refresh falls back to the previous copy and reports the error alongside
// it; html is nil only when no copy exists.
func (c *pageCache) get(ctx context.Context, fetch func(context.Context) ([]byte, error)) ([]byte, error) {
	html, fresh := c.snapshot()
	if fresh {
		return html, nil
	}

	v, err, _ := c.group.Do("page", func() (any, error) {
		if cur, fresh := c.snapshot(); fresh {
			return cur, nil
		}
		body, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.html = body
		c.fetched = c.now()
		c.mu.Unlock()
		return body, nil
	})
	if err != nil {
		return html, err
	}
	return v.([]byte), nil
}

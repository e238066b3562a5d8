package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	gocache "github.com/patrickmn/go-cache"
)

// File is an embedded Store kept in memory and snapshotted to a gob file.
// The snapshot is rewritten after every Set and on Close; a lock file next
// to it serializes writers across processes.
type File struct {
	path   string
	items  *gocache.Cache
	lock   *flock.Flock
	mu     sync.Mutex
	closed bool
}

// OpenFile loads path if it exists and returns a File store.
func OpenFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file cache: empty path")
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("file cache: create dir: %w", err)
		}
	}

	f := &File{
		path:  path,
		items: gocache.New(gocache.NoExpiration, 10*time.Minute),
		lock:  flock.New(path + ".lock"),
	}

	if err := f.lock.Lock(); err != nil {
		return nil, fmt.Errorf("file cache: lock: %w", err)
	}
	defer f.lock.Unlock()

	if _, err := os.Stat(path); err == nil {
		if err := f.items.LoadFile(path); err != nil {
			return nil, fmt.Errorf("file cache: load %s: %w", path, err)
		}
	}
	return f, nil
}

func (f *File) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	v, ok := f.items.Get(compositeKey(namespace, key))
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		return nil, false, fmt.Errorf("file cache: unexpected value type %T", v)
	}
	return b, true, nil
}

func (f *File) Set(_ context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	f.items.Set(compositeKey(namespace, key), append([]byte(nil), value...), ttl)
	return f.save()
}

// save merges entries written by other processes, then rewrites the file.
func (f *File) save() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("file cache: lock: %w", err)
	}
	defer f.lock.Unlock()

	if _, err := os.Stat(f.path); err == nil {
		_ = f.items.LoadFile(f.path)
	}
	f.items.DeleteExpired()

	tmp := f.path + ".tmp"
	if err := f.items.SaveFile(tmp); err != nil {
		return fmt.Errorf("file cache: save: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("file cache: replace snapshot: %w", err)
	}
	return nil
}

// Close writes a final snapshot.
func (f *File) Close() error {
	err := f.save()
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if errors.Is(err, ErrClosed) {
		return nil
	}
	return err
}

package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

var namespacePattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// SQLite is an embedded Store with one table per namespace.
type SQLite struct {
	db  *sql.DB
	now func() time.Time

	mu     sync.Mutex
	tables map[string]bool
}

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite cache: empty path")
	}
	inMemory := isMemoryPath(path)
	if !inMemory {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite cache: create dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if inMemory {
		// Every connection to an in-memory database gets its own empty copy.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	return &SQLite{db: db, now: time.Now, tables: make(map[string]bool)}, nil
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:") || strings.Contains(path, "mode=memory")
}

// ensureTable creates the namespace table on first use.
func (s *SQLite) ensureTable(ctx context.Context, namespace string) error {
	if !namespacePattern.MatchString(namespace) {
		return fmt.Errorf("sqlite cache: invalid namespace %q", namespace)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tables[namespace] {
		return nil
	}

	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        key TEXT PRIMARY KEY,
        value BLOB NOT NULL,
        expires_at INTEGER NOT NULL
    )`, namespace)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create table %s: %w", namespace, err)
	}
	s.tables[namespace] = true
	return nil
}

func (s *SQLite) Get(ctx context.Context, namespace, key string) ([]byte, bool, error) {
	if err := s.ensureTable(ctx, namespace); err != nil {
		return nil, false, err
	}

	var (
		value   []byte
		expires int64
	)
	row := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT value, expires_at FROM %s WHERE key = ?`, namespace), key)
	if err := row.Scan(&value, &expires); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("select %s: %w", namespace, err)
	}

	if expires > 0 && s.now().UnixMilli() >= expires {
		_, _ = s.db.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE key = ? AND expires_at = ?`, namespace), key, expires)
		return nil, false, nil
	}
	return value, true, nil
}

func (s *SQLite) Set(ctx context.Context, namespace, key string, value []byte, ttl time.Duration) error {
	if err := s.ensureTable(ctx, namespace); err != nil {
		return err
	}

	var expires int64
	if ttl > 0 {
		expires = s.now().Add(ttl).UnixMilli()
	}
	_, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (key, value, expires_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`, namespace),
		key, value, expires,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", namespace, err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

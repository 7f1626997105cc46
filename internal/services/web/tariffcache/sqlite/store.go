// Package sqlite is the SQLite primary store for the web tariff cache.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/tariffdesk/tariffdesk/internal/platform/storage/sqlitemigrate"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffcache"
	"github.com/tariffdesk/tariffdesk/internal/services/web/tariffcache/sqlite/migrations"
)

// Store keeps cache entries up to a byte limit.
type Store struct {
	sqlDB    *sql.DB
	maxBytes int
}

var _ tariffcache.Store = (*Store)(nil)

// Open opens the cache database. Values larger than maxBytes are refused
// with tariffcache.ErrTooLarge; zero means unbounded.
func Open(ctx context.Context, path string, maxBytes int) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	sqlDB, err := sqlitemigrate.Open(ctx, filepath.Clean(path), migrations.FS, "")
	if err != nil {
		return nil, fmt.Errorf("open web cache store: %w", err)
	}
	return &Store{sqlDB: sqlDB, maxBytes: maxBytes}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, key string) (tariffcache.Entry, bool, error) {
	var (
		value   []byte
		savedAt int64
	)
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT value, saved_at FROM cache_entries WHERE key = ?`, key,
	).Scan(&value, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return tariffcache.Entry{}, false, nil
	}
	if err != nil {
		return tariffcache.Entry{}, false, fmt.Errorf("get cache entry: %w", err)
	}
	return tariffcache.Entry{Value: value, SavedAt: time.UnixMilli(savedAt).UTC()}, true, nil
}

func (s *Store) Put(ctx context.Context, key string, entry tariffcache.Entry) error {
	if s.maxBytes > 0 && len(key)+len(entry.Value) > s.maxBytes {
		return tariffcache.ErrTooLarge
	}
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO cache_entries (key, value, saved_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, saved_at = excluded.saved_at`,
		key, entry.Value, entry.SavedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put cache entry: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete cache entry: %w", err)
	}
	return nil
}

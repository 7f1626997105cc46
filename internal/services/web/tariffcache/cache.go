// Package tariffcache keeps the last fetched tariff list for the web
// frontend. Entries go to a size-bounded primary store and fall back to an
// in-memory store when the primary cannot hold them intact.
package tariffcache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tariffdesk/tariffdesk/internal/platform/logging"
	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// Key names the tariff list entry.
const Key = "tariffs_cache_v1"

const (
	// DefaultMaxPrimaryBytes matches the size of a browser cookie.
	DefaultMaxPrimaryBytes = 4096
	// DefaultTTL is how long a saved list is served.
	DefaultTTL = 10 * time.Minute
)

// ErrTooLarge is returned by stores that cannot hold a value.
var ErrTooLarge = errors.New("cache value exceeds store limit")

// Entry is a stored value and when it was written.
type Entry struct {
	Value   []byte
	SavedAt time.Time
}

// Store persists cache entries by key.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, key string, entry Entry) error
	Delete(ctx context.Context, key string) error
}

// Config tunes a Cache.
type Config struct {
	MaxPrimaryBytes int           `env:"TARIFFDESK_WEB_CACHE_MAX_PRIMARY_BYTES" envDefault:"4096"`
	TTL             time.Duration `env:"TARIFFDESK_WEB_CACHE_TTL" envDefault:"10m"`
}

// Cache stores the tariff list under Key.
type Cache struct {
	primary  Store
	fallback Store
	maxBytes int
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// New builds a cache. A nil fallback uses a fresh MemoryStore.
func New(primary, fallback Store, cfg Config, logger *zap.Logger) *Cache {
	if fallback == nil {
		fallback = NewMemoryStore()
	}
	if cfg.MaxPrimaryBytes <= 0 {
		cfg.MaxPrimaryBytes = DefaultMaxPrimaryBytes
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &Cache{
		primary:  primary,
		fallback: fallback,
		maxBytes: cfg.MaxPrimaryBytes,
		ttl:      cfg.TTL,
		now:      time.Now,
		logger:   logging.OrNop(logger).Named("tariffcache"),
	}
}

// Load returns the cached tariffs, checking the primary store first.
func (c *Cache) Load(ctx context.Context) ([]apiclient.Tariff, bool) {
	for _, store := range c.stores() {
		if tariffs, ok := c.loadFrom(ctx, store); ok {
			return tariffs, true
		}
	}
	return nil, false
}

func (c *Cache) loadFrom(ctx context.Context, store Store) ([]apiclient.Tariff, bool) {
	entry, ok, err := store.Get(ctx, Key)
	if err != nil {
		c.logger.Warn("read cache entry", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.SavedAt) > c.ttl {
		return nil, false
	}
	var tariffs []apiclient.Tariff
	if err := json.Unmarshal(entry.Value, &tariffs); err != nil {
		c.logger.Warn("drop malformed cache entry", zap.Error(err))
		_ = store.Delete(ctx, Key)
		return nil, false
	}
	return tariffs, true
}

// Save stores tariffs in the primary store when it fits and reads back
// intact, otherwise in the fallback store.
func (c *Cache) Save(ctx context.Context, tariffs []apiclient.Tariff) error {
	if tariffs == nil {
		tariffs = []apiclient.Tariff{}
	}
	data, err := json.Marshal(tariffs)
	if err != nil {
		return err
	}
	entry := Entry{Value: data, SavedAt: c.now()}

	if c.primary != nil && len(data) <= c.maxBytes {
		err := c.savePrimary(ctx, entry)
		if err == nil {
			_ = c.fallback.Delete(ctx, Key)
			return nil
		}
		c.logger.Debug("primary cache rejected entry", zap.Int("bytes", len(data)), zap.Error(err))
	}
	if c.primary != nil {
		_ = c.primary.Delete(ctx, Key)
	}
	return c.fallback.Put(ctx, Key, entry)
}

func (c *Cache) savePrimary(ctx context.Context, entry Entry) error {
	if err := c.primary.Put(ctx, Key, entry); err != nil {
		return err
	}
	stored, ok, err := c.primary.Get(ctx, Key)
	if err != nil {
		return err
	}
	if !ok || !bytes.Equal(stored.Value, entry.Value) {
		return errors.New("primary cache read-back mismatch")
	}
	return nil
}

// Clear drops the entry from both stores.
func (c *Cache) Clear(ctx context.Context) error {
	var errs []error
	for _, store := range c.stores() {
		errs = append(errs, store.Delete(ctx, Key))
	}
	return errors.Join(errs...)
}

func (c *Cache) stores() []Store {
	if c.primary == nil {
		return []Store{c.fallback}
	}
	return []Store{c.primary, c.fallback}
}

// MemoryStore keeps entries in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[key]
	if !ok {
		return Entry{}, false, nil
	}
	entry.Value = bytes.Clone(entry.Value)
	return entry, true, nil
}

func (m *MemoryStore) Put(_ context.Context, key string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.Value = bytes.Clone(entry.Value)
	m.entries[key] = entry
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

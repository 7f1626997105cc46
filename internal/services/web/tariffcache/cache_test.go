package tariffcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tariffdesk/tariffdesk/internal/services/web/apiclient"
)

// truncatingStore keeps at most limit bytes of every value.
type truncatingStore struct {
	*MemoryStore
	limit int
}

func (s truncatingStore) Put(ctx context.Context, key string, entry Entry) error {
	if len(entry.Value) > s.limit {
		entry.Value = entry.Value[:s.limit]
	}
	return s.MemoryStore.Put(ctx, key, entry)
}

type failingStore struct{ *MemoryStore }

func (failingStore) Put(context.Context, string, Entry) error {
	return errors.New("disk full")
}

func newCache(primary Store, maxBytes int) (*Cache, *MemoryStore, *time.Time) {
	fallback := NewMemoryStore()
	c := New(primary, fallback, Config{MaxPrimaryBytes: maxBytes, TTL: time.Minute}, nil)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	return c, fallback, &now
}

func tariffs(n int) []apiclient.Tariff {
	out := make([]apiclient.Tariff, n)
	for i := range out {
		out[i] = apiclient.Tariff{ID: strings.Repeat("x", 10), OriginCountry: "SG", DestCountry: "US", EffectiveDate: "2024-01-01"}
	}
	return out
}

func has(t *testing.T, s Store) bool {
	t.Helper()
	_, ok, err := s.Get(context.Background(), Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return ok
}

func TestSaveUsesPrimaryWhenItFits(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	c, fallback, _ := newCache(primary, DefaultMaxPrimaryBytes)

	want := tariffs(2)
	if err := c.Save(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !has(t, primary) || has(t, fallback) {
		t.Fatalf("expected entry only in primary")
	}
	got, ok := c.Load(ctx)
	if !ok {
		t.Fatal("expected cache hit")
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tariffs mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveFallsBackWhenOversize(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	c, fallback, _ := newCache(primary, 64)

	if err := c.Save(ctx, tariffs(1)); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if !has(t, fallback) {
		t.Fatal("expected oversize entry in fallback")
	}
	if has(t, primary) {
		t.Fatal("expected primary entry to be dropped")
	}
	if _, ok := c.Load(ctx); !ok {
		t.Fatal("expected fallback hit")
	}
}

func TestSaveFallsBackOnTruncatedReadBack(t *testing.T) {
	ctx := context.Background()
	primary := truncatingStore{MemoryStore: NewMemoryStore(), limit: 20}
	c, fallback, _ := newCache(primary, DefaultMaxPrimaryBytes)

	if err := c.Save(ctx, tariffs(3)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if has(t, primary) {
		t.Fatal("expected truncated primary entry to be removed")
	}
	got, ok := c.Load(ctx)
	if !ok || len(got) != 3 {
		t.Fatalf("load = %d, %v", len(got), ok)
	}
	if !has(t, fallback) {
		t.Fatal("expected fallback entry")
	}
}

func TestSaveFallsBackOnWriteError(t *testing.T) {
	ctx := context.Background()
	c, fallback, _ := newCache(failingStore{NewMemoryStore()}, DefaultMaxPrimaryBytes)
	if err := c.Save(ctx, tariffs(1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !has(t, fallback) {
		t.Fatal("expected fallback entry")
	}
}

func TestLoadExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	c, _, now := newCache(NewMemoryStore(), DefaultMaxPrimaryBytes)
	if err := c.Save(ctx, tariffs(1)); err != nil {
		t.Fatalf("save: %v", err)
	}
	*now = now.Add(59 * time.Second)
	if _, ok := c.Load(ctx); !ok {
		t.Fatal("expected hit before ttl")
	}
	*now = now.Add(2 * time.Second)
	if _, ok := c.Load(ctx); ok {
		t.Fatal("expected miss after ttl")
	}
}

func TestLoadDropsMalformedEntry(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	c, _, now := newCache(primary, DefaultMaxPrimaryBytes)
	if err := primary.Put(ctx, Key, Entry{Value: []byte("{not json"), SavedAt: *now}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if _, ok := c.Load(ctx); ok {
		t.Fatal("expected miss for malformed entry")
	}
	if has(t, primary) {
		t.Fatal("expected malformed entry to be removed")
	}
}

func TestClearRemovesBothStores(t *testing.T) {
	ctx := context.Background()
	primary := NewMemoryStore()
	c, fallback, now := newCache(primary, DefaultMaxPrimaryBytes)
	_ = primary.Put(ctx, Key, Entry{Value: []byte("[]"), SavedAt: *now})
	_ = fallback.Put(ctx, Key, Entry{Value: []byte("[]"), SavedAt: *now})

	if err := c.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if has(t, primary) || has(t, fallback) {
		t.Fatal("expected both stores empty")
	}
	if _, ok := c.Load(ctx); ok {
		t.Fatal("expected miss after clear")
	}
}

func TestNilPrimaryUsesFallbackOnly(t *testing.T) {
	ctx := context.Background()
	c := New(nil, nil, Config{}, nil)
	if err := c.Save(ctx, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok := c.Load(ctx)
	if !ok || len(got) != 0 {
		t.Fatalf("load = %v, %v", got, ok)
	}
}

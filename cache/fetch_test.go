package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-call-cache/pkg/testsupport"
)

var testEpoch = time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, cfg Config) (*Store, *testsupport.Clock) {
	t.Helper()

	clock := testsupport.NewClock(testEpoch)
	cfg.Clock = clock.Now
	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore() failed: %v", err)
	}
	t.Cleanup(store.Close)
	return store, clock
}

func TestFetch_MissThenHit(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	ctx := context.Background()
	producer := testsupport.NewProducer("alice")
	key := NewKey("users", 42)

	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, store, key, producer.Fetch)
		if err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
		if got != "alice" {
			t.Errorf("call %d: expected alice, got %q", i, got)
		}
	}

	if producer.Calls() != 1 {
		t.Errorf("expected producer to run once, ran %d times", producer.Calls())
	}

	entry, ok := store.Get(key)
	if !ok {
		t.Fatal("expected entry after fetch")
	}
	if entry.HitCount != 3 {
		t.Errorf("expected hit count 3 (one write, two hits), got %d", entry.HitCount)
	}
}

func TestFetch_Expiration(t *testing.T) {
	store, clock := newTestStore(t, Config{})
	ctx := context.Background()
	producer := testsupport.NewProducer(1)
	key := NewKey("ttl")

	if _, err := Fetch(ctx, store, key, producer.Fetch, WithExpiresAfter(10*time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.Advance(10 * time.Second)
	if _, err := Fetch(ctx, store, key, producer.Fetch, WithExpiresAfter(10*time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if producer.Calls() != 1 {
		t.Fatalf("expected entry to be valid at its TTL, producer ran %d times", producer.Calls())
	}

	clock.Advance(time.Second)
	if _, ok := store.Get(key); !ok {
		t.Fatal("expected stale entry to remain in the raw store")
	}

	producer.Set(2)
	got, err := Fetch(ctx, store, key, producer.Fetch, WithExpiresAfter(10*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 2 || producer.Calls() != 2 {
		t.Errorf("expected expired entry to be refetched, got %d after %d calls", got, producer.Calls())
	}
}

func TestFetch_InvalidatedEntryIsMiss(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	ctx := context.Background()
	key := NewKey("x")

	store.Set(key, "v1")
	producer := testsupport.NewProducer("v2")

	got, _ := Fetch(ctx, store, key, producer.Fetch)
	if got != "v1" || producer.Calls() != 0 {
		t.Fatalf("expected v1 from the cache, got %q after %d calls", got, producer.Calls())
	}

	store.Invalidate(key)

	entry, ok := store.Get(key)
	if !ok || entry.Value != "v1" || !entry.Invalid {
		t.Fatalf("expected raw invalid entry with v1, got %+v (ok=%v)", entry, ok)
	}

	got, _ = Fetch(ctx, store, key, producer.Fetch)
	if got != "v2" || producer.Calls() != 1 {
		t.Errorf("expected invalidated entry to be a miss, got %q after %d calls", got, producer.Calls())
	}
}

func TestFetch_ProducerErrorIsNotCached(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	boom := errors.New("upstream unavailable")
	producer := testsupport.NewFailingProducer[string](boom)

	got, err := Fetch(context.Background(), store, NewKey("fail"), producer.Fetch)
	if !errors.Is(err, boom) {
		t.Fatalf("expected producer error to propagate, got %v", err)
	}
	if got != "" {
		t.Errorf("expected zero value on error, got %q", got)
	}
	if store.Len() != 0 {
		t.Errorf("expected nothing stored after failure, got %d entries", store.Len())
	}

	if _, err := Fetch(context.Background(), store, NewKey("fail"), producer.Fetch); !errors.Is(err, boom) {
		t.Errorf("expected retry to call the producer again, got %v", err)
	}
	if producer.Calls() != 2 {
		t.Errorf("expected 2 producer calls, got %d", producer.Calls())
	}
}

func TestFetch_SkipBypassesReadOnly(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	ctx := context.Background()
	key := NewKey("skip")
	producer := testsupport.NewProducer("fresh")

	store.Set(key, "cached")

	got, _ := Fetch(ctx, store, key, producer.Fetch, WithSkip(true))
	if got != "fresh" || producer.Calls() != 1 {
		t.Fatalf("expected skip to call the producer, got %q", got)
	}

	entry, _ := store.Get(key)
	if entry.Value != "fresh" || entry.HitCount != 2 {
		t.Errorf("expected skipped call to write through, got %+v", entry)
	}

	got, _ = Fetch(ctx, store, key, producer.Fetch)
	if got != "fresh" || producer.Calls() != 1 {
		t.Errorf("expected next call to hit, got %q after %d calls", got, producer.Calls())
	}
}

func TestFetch_SkipAllCache(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	ctx := context.Background()
	key := NewKey("global")
	producer := testsupport.NewProducer(7)

	store.SetSkipAllCache(true)
	for i := 0; i < 2; i++ {
		if _, err := Fetch(ctx, store, key, producer.Fetch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if producer.Calls() != 2 {
		t.Errorf("expected every call to miss, got %d producer calls", producer.Calls())
	}
	if entry, ok := store.Get(key); !ok || entry.HitCount != 2 {
		t.Errorf("expected writes to continue while skipping, got %+v (ok=%v)", entry, ok)
	}

	store.SetSkipAllCache(false)
	if _, err := Fetch(ctx, store, key, producer.Fetch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if producer.Calls() != 2 {
		t.Errorf("expected a hit once skipping is off, got %d producer calls", producer.Calls())
	}
}

func TestFetch_MaxCacheSizeEvictsSiblings(t *testing.T) {
	store, clock := newTestStore(t, Config{})
	ctx := context.Background()

	for page := 0; page < 4; page++ {
		clock.Advance(time.Second)
		producer := testsupport.NewProducer(page)
		if _, err := Fetch(ctx, store, NewKey("pages", page), producer.Fetch, WithMaxCacheSize(3)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if store.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", store.Len())
	}
	if _, ok := store.Get(NewKey("pages", 0)); ok {
		t.Error("expected the oldest page to be evicted")
	}
}

func TestFetch_ValueTypeMismatchIsMiss(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	key := NewKey("typed")
	store.Set(key, "a string")

	producer := testsupport.NewProducer(99)
	got, err := Fetch(context.Background(), store, key, producer.Fetch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 99 || producer.Calls() != 1 {
		t.Errorf("expected mismatched value to be refetched, got %d", got)
	}
}

func TestFetch_NilInterfaceValue(t *testing.T) {
	type Finder interface{ Find() string }

	store, _ := newTestStore(t, Config{})
	calls := 0
	fn := func(ctx context.Context) (Finder, error) {
		calls++
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		got, err := Fetch[Finder](context.Background(), store, NewKey("nil"), fn)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != nil {
			t.Errorf("expected nil result, got %v", got)
		}
	}
	if calls != 1 {
		t.Errorf("expected nil result to be cached, producer ran %d times", calls)
	}
}

func TestFetch_ClosedStoreIsInert(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	store.Close()

	producer := testsupport.NewProducer("v")
	for i := 0; i < 2; i++ {
		got, err := Fetch(context.Background(), store, NewKey("closed"), producer.Fetch)
		if err != nil || got != "v" {
			t.Fatalf("expected producer result, got %q (err=%v)", got, err)
		}
	}
	if producer.Calls() != 2 {
		t.Errorf("expected every call to reach the producer, got %d", producer.Calls())
	}
	if store.Len() != 0 {
		t.Errorf("expected closed store to stay empty, got %d entries", store.Len())
	}
}

func TestFetch_ConcurrentMissesCallProducerEachTime(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	producer := testsupport.NewProducer("v")
	producer.Gate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Fetch(context.Background(), store, NewKey("race"), producer.Fetch)
		}()
	}

	deadline := time.Now().Add(2 * time.Second)
	for producer.Calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("expected both misses to reach the producer, got %d", producer.Calls())
		}
		time.Sleep(time.Millisecond)
	}
	close(producer.Gate)
	wg.Wait()
}

func TestFetch_DedupeInFlight(t *testing.T) {
	store, _ := newTestStore(t, Config{DedupeInFlight: true})
	producer := testsupport.NewProducer("shared")
	producer.Gate = make(chan struct{})

	const callers = 8
	results := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = Fetch(context.Background(), store, NewKey("dedupe"), producer.Fetch)
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(producer.Gate)
	wg.Wait()

	if producer.Calls() != 1 {
		t.Errorf("expected one producer call, got %d", producer.Calls())
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("caller %d: expected shared, got %q", i, r)
		}
	}
}

// plainBackend implements only the required Backend methods.
type plainBackend struct {
	entries map[string]Entry
	writes  int
}

func (b *plainBackend) Lookup(path Path) (Entry, bool) {
	e, ok := b.entries[path.String()]
	return e, ok
}

func (b *plainBackend) Write(_ context.Context, path Path, value any, _ WriteOptions) {
	b.writes++
	b.entries[path.String()] = Entry{Value: value, CreatedAt: testEpoch, HitCount: 1}
}

func (b *plainBackend) RecordHit(_ context.Context, path Path) {
	e := b.entries[path.String()]
	e.HitCount++
	b.entries[path.String()] = e
}

func (b *plainBackend) SkipAll() bool  { return false }
func (b *plainBackend) Now() time.Time { return testEpoch }

func TestFetch_MinimalBackend(t *testing.T) {
	backend := &plainBackend{entries: map[string]Entry{}}
	producer := testsupport.NewProducer(3)

	for i := 0; i < 2; i++ {
		if _, err := Fetch(context.Background(), backend, NewKey("plain"), producer.Fetch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if producer.Calls() != 1 || backend.writes != 1 {
		t.Errorf("expected one call and one write, got %d calls and %d writes", producer.Calls(), backend.writes)
	}
}

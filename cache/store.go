package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/goliatone/go-call-cache/internal/cacheinfra"
)

// Store is the in-place cache binding. The trie is mutated directly under a
// mutex, so a Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	tree    *cacheinfra.Mutable
	skipAll bool
	closed  bool

	now     func() time.Time
	logger  *slog.Logger
	metrics *Instruments
	flight  *Flight
	sweeper *cacheinfra.Sweeper
}

var (
	_ Backend    = (*Store)(nil)
	_ Observable = (*Store)(nil)
	_ Coalescer  = (*Store)(nil)
)

// NewStore validates cfg and returns a Store. When cfg.SweepInterval is
// positive a background sweep is scheduled until Close.
func NewStore(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics, err := NewInstruments(cfg.MeterProvider)
	if err != nil {
		return nil, err
	}

	cfg = cfg.Resolve()
	s := &Store{
		tree:    cacheinfra.NewMutable(),
		now:     cfg.Clock,
		logger:  cfg.Logger,
		metrics: metrics,
	}
	if cfg.DedupeInFlight {
		s.flight = NewFlight()
	}
	s.sweeper = cacheinfra.StartSweeper(cfg.SweepInterval, func() { s.Sweep() })

	return s, nil
}

// NewDefaultStore creates a Store using DefaultConfig.
func NewDefaultStore() (*Store, error) {
	return NewStore(DefaultConfig())
}

// Get returns the raw entry for key. Validity is not checked.
func (s *Store) Get(key Key) (Entry, bool) {
	return s.Lookup(Canonicalize(key))
}

// Set writes value at key, evicting siblings when WithMaxCacheSize is given.
func (s *Store) Set(key Key, value any, opts ...Option) {
	o := collectOptions(opts)
	s.Write(context.Background(), Canonicalize(key), value, o.write)
}

// Invalidate flags the entry at key and all entries below it as invalid.
func (s *Store) Invalidate(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	cacheinfra.Invalidate(s.tree, Canonicalize(key))
}

// Delete removes the entry at key, or the subtree below key when no entry
// is stored there.
func (s *Store) Delete(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	cacheinfra.Delete(s.tree, Canonicalize(key))
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cacheinfra.Clear(s.tree)
}

// SetSkipAllCache makes every read miss while writes keep happening.
func (s *Store) SetSkipAllCache(skip bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipAll = skip
}

// Sweep removes expired and invalid entries immediately and returns how
// many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	removed := cacheinfra.Sweep(s.tree, s.now())
	s.mu.Unlock()

	if removed > 0 {
		s.metrics.Swept(context.Background(), removed)
		s.logger.Debug("cache sweep", "removed", removed)
	}
	return removed
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree.Root().Len()
}

// Close stops the sweeper and clears the store. A closed store is inert:
// reads miss and writes are dropped.
func (s *Store) Close() {
	s.sweeper.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	cacheinfra.Clear(s.tree)
}

func (s *Store) Lookup(path Path) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Entry{}, false
	}
	return cacheinfra.Lookup(s.tree, path)
}

func (s *Store) Write(ctx context.Context, path Path, value any, opts WriteOptions) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	evicted := cacheinfra.Set(s.tree, path, cacheinfra.Write{
		Value:        value,
		CreatedAt:    s.now(),
		ExpiresAfter: opts.ExpiresAfter,
		MaxCacheSize: opts.MaxCacheSize,
	})
	s.mu.Unlock()

	s.metrics.Write(ctx)
	if evicted > 0 {
		s.metrics.Evicted(ctx, evicted)
		s.logger.Debug("cache eviction", "key", path.Fingerprint(), "evicted", evicted)
	}
}

func (s *Store) RecordHit(_ context.Context, path Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	cacheinfra.RecordHit(s.tree, path)
}

func (s *Store) SkipAll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipAll
}

func (s *Store) Now() time.Time { return s.now() }

func (s *Store) Logger() *slog.Logger { return s.logger }

func (s *Store) Instruments() *Instruments { return s.metrics }

func (s *Store) Flight() *Flight { return s.flight }

package statecache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/goliatone/go-call-cache/cache"
	"github.com/goliatone/go-call-cache/internal/cacheinfra"
)

// Store binds the cache to a Host. Every mutation is dispatched as an Event
// and every read goes through a memoized Selector, so the cache tree is part
// of the host's observable state.
type Store struct {
	host     Host
	selector *Selector
	skipAll  atomic.Bool
	closed   atomic.Bool

	now     func() time.Time
	logger  *slog.Logger
	metrics *cache.Instruments
	flight  *cache.Flight
	sweeper *cacheinfra.Sweeper
}

var (
	_ cache.Backend    = (*Store)(nil)
	_ cache.Observable = (*Store)(nil)
	_ cache.Coalescer  = (*Store)(nil)
)

// New binds a Store to host. A nil host gets a fresh MemoryHost.
func New(host Host, cfg cache.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	metrics, err := cache.NewInstruments(cfg.MeterProvider)
	if err != nil {
		return nil, err
	}

	if host == nil {
		host = NewMemoryHost()
	}

	cfg = cfg.Resolve()
	s := &Store{
		host:     host,
		selector: NewSelector(),
		now:      cfg.Clock,
		logger:   cfg.Logger,
		metrics:  metrics,
	}
	if cfg.DedupeInFlight {
		s.flight = cache.NewFlight()
	}
	s.sweeper = cacheinfra.StartSweeper(cfg.SweepInterval, func() { s.Sweep() })

	return s, nil
}

// Host returns the bound state container.
func (s *Store) Host() Host { return s.host }

// Select returns the current entry at key through the memoized selector.
func (s *Store) Select(key cache.Key) (cache.Entry, bool) {
	return s.Lookup(cache.Canonicalize(key))
}

// Get returns the raw entry for key. Validity is not checked.
func (s *Store) Get(key cache.Key) (cache.Entry, bool) {
	return s.Select(key)
}

// Set dispatches a write for key.
func (s *Store) Set(key cache.Key, value any, opts ...cache.Option) {
	s.Write(context.Background(), cache.Canonicalize(key), value, cache.ResolveWriteOptions(opts...))
}

// Invalidate dispatches an invalidation for key and its subtree.
func (s *Store) Invalidate(key cache.Key) {
	s.dispatch(context.Background(), NewInvalidate(cache.Canonicalize(key)))
}

// Delete dispatches a deletion for key.
func (s *Store) Delete(key cache.Key) {
	s.dispatch(context.Background(), NewDelete(cache.Canonicalize(key)))
}

// Clear dispatches a ClearEvent.
func (s *Store) Clear() {
	s.host.Dispatch(context.Background(), NewClear())
}

// SetSkipAllCache makes every read miss while writes keep happening.
func (s *Store) SetSkipAllCache(skip bool) {
	s.skipAll.Store(skip)
}

// Sweep dispatches a SweepEvent and returns how many entries it removed.
func (s *Store) Sweep() int {
	if s.closed.Load() {
		return 0
	}
	next := s.host.Dispatch(context.Background(), NewSweep(s.now()))
	removed := int(next.Delta().Swept)

	if removed > 0 {
		s.metrics.Swept(context.Background(), removed)
		s.logger.Debug("cache sweep", "removed", removed)
	}
	return removed
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.host.State().Len()
}

// Close stops the sweeper and clears the cache. Later mutations are dropped.
func (s *Store) Close() {
	s.sweeper.Stop()
	if s.closed.Swap(true) {
		return
	}
	s.host.Dispatch(context.Background(), NewClear())
	s.selector.Reset()
}

func (s *Store) Lookup(path cache.Path) (cache.Entry, bool) {
	if s.closed.Load() {
		return cache.Entry{}, false
	}
	return s.selector.Entry(s.host.State(), path)
}

func (s *Store) Write(ctx context.Context, path cache.Path, value any, opts cache.WriteOptions) {
	if s.closed.Load() {
		return
	}
	next := s.host.Dispatch(ctx, NewWrite(path, value, s.now(), opts))
	evicted := int(next.Delta().Evictions)

	s.metrics.Write(ctx)
	if evicted > 0 {
		s.metrics.Evicted(ctx, evicted)
		s.logger.Debug("cache eviction", "key", path.Fingerprint(), "evicted", evicted)
	}
}

func (s *Store) RecordHit(ctx context.Context, path cache.Path) {
	s.dispatch(ctx, NewRecordHit(path))
}

func (s *Store) SkipAll() bool { return s.skipAll.Load() }

func (s *Store) Now() time.Time { return s.now() }

func (s *Store) Logger() *slog.Logger { return s.logger }

func (s *Store) Instruments() *cache.Instruments { return s.metrics }

func (s *Store) Flight() *cache.Flight { return s.flight }

func (s *Store) dispatch(ctx context.Context, ev Event) {
	if s.closed.Load() {
		return
	}
	s.host.Dispatch(ctx, ev)
}

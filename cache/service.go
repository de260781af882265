package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/goliatone/go-call-cache/internal/cacheinfra"
)

// Entry is a stored value plus its bookkeeping.
type Entry = cacheinfra.Entry

// WriteOptions configure a single write.
type WriteOptions struct {
	// ExpiresAfter is the TTL of the written entry. Zero means no expiry.
	ExpiresAfter time.Duration
	// MaxCacheSize bounds the sibling entries next to the written one.
	// Zero disables eviction.
	MaxCacheSize int
}

// Backend is the store contract the memoization helpers depend on. Both the
// mutable Store and the event-sourced statecache.Store implement it.
type Backend interface {
	// Lookup returns the raw entry at path without checking validity.
	Lookup(path Path) (Entry, bool)
	// Write stores value at path and applies sibling eviction.
	Write(ctx context.Context, path Path, value any, opts WriteOptions)
	// RecordHit increments the hit count at path.
	RecordHit(ctx context.Context, path Path)
	// SkipAll reports whether reads bypass the cache store-wide.
	SkipAll() bool
	// Now returns the store clock.
	Now() time.Time
}

// Observable is implemented by backends that expose logging and metrics.
type Observable interface {
	Logger() *slog.Logger
	Instruments() *Instruments
}

// Coalescer is implemented by backends that de-duplicate concurrent misses.
// A nil *Flight disables de-duplication.
type Coalescer interface {
	Flight() *Flight
}

// FetchFn produces the value for a cache miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// Emission is a single value or failure pushed by a stream producer.
type Emission[T any] struct {
	Value T
	Err   error
}

// StreamFn starts a producer that pushes emissions until it closes the channel.
type StreamFn[T any] func(ctx context.Context) <-chan Emission[T]

// Option adjusts a single memoized call or direct write.
type Option func(*callOptions)

type callOptions struct {
	write WriteOptions
	skip  bool
}

// WithExpiresAfter sets the TTL of the entry written on a miss.
func WithExpiresAfter(d time.Duration) Option {
	return func(o *callOptions) { o.write.ExpiresAfter = d }
}

// WithMaxCacheSize bounds the number of siblings kept next to the entry.
func WithMaxCacheSize(n int) Option {
	return func(o *callOptions) { o.write.MaxCacheSize = n }
}

// WithSkip bypasses the cache read for this call only. The result is still written.
func WithSkip(skip bool) Option {
	return func(o *callOptions) { o.skip = skip }
}

func collectOptions(opts []Option) callOptions {
	var o callOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// ResolveWriteOptions applies opts and returns the resulting write options.
// Skip has no effect on a write.
func ResolveWriteOptions(opts ...Option) WriteOptions {
	return collectOptions(opts).write
}

package cache

import (
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/goliatone/go-call-cache"

// Instruments records cache activity. A nil *Instruments records nothing.
type Instruments struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	writes    metric.Int64Counter
	evictions metric.Int64Counter
	swept     metric.Int64Counter
}

// NewInstruments creates the cache counters on the given provider.
func NewInstruments(mp metric.MeterProvider) (*Instruments, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	hits, err := meter.Int64Counter(
		"cache.hits",
		metric.WithDescription("Memoized calls served from the cache"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	misses, err := meter.Int64Counter(
		"cache.misses",
		metric.WithDescription("Memoized calls that invoked the producer"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	writes, err := meter.Int64Counter(
		"cache.writes",
		metric.WithDescription("Entries written to the cache"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter(
		"cache.evictions",
		metric.WithDescription("Sibling entries evicted to respect capacity"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	swept, err := meter.Int64Counter(
		"cache.swept",
		metric.WithDescription("Expired or invalid entries removed by the sweeper"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	return &Instruments{
		hits:      hits,
		misses:    misses,
		writes:    writes,
		evictions: evictions,
		swept:     swept,
	}, nil
}

// Hit counts a call served from the cache.
func (i *Instruments) Hit(ctx context.Context) {
	if i != nil {
		i.hits.Add(ctx, 1)
	}
}

// Miss counts a call that reached the producer.
func (i *Instruments) Miss(ctx context.Context) {
	if i != nil {
		i.misses.Add(ctx, 1)
	}
}

// Write counts an entry written to the cache.
func (i *Instruments) Write(ctx context.Context) {
	if i != nil {
		i.writes.Add(ctx, 1)
	}
}

// Evicted adds n evicted siblings.
func (i *Instruments) Evicted(ctx context.Context, n int) {
	if i != nil && n > 0 {
		i.evictions.Add(ctx, int64(n))
	}
}

// Swept adds n entries removed by a sweep.
func (i *Instruments) Swept(ctx context.Context, n int) {
	if i != nil && n > 0 {
		i.swept.Add(ctx, int64(n))
	}
}

package cache

import (
	"context"
	"io"
	"log/slog"
	"reflect"
)

// Fetch returns the cached value for key when a valid entry exists.
// Otherwise it calls fn and, on success, writes the result before returning
// it. Errors from fn are returned unchanged and nothing is stored.
func Fetch[T any](ctx context.Context, b Backend, key Key, fn FetchFn[T], opts ...Option) (T, error) {
	o := collectOptions(opts)
	path := Canonicalize(key)
	logger, metrics := observe(b)

	if v, ok := cached[T](b, path, o.skip); ok {
		b.RecordHit(ctx, path)
		metrics.Hit(ctx)
		logger.Debug("cache hit", "key", path.Fingerprint())
		return v, nil
	}

	metrics.Miss(ctx)
	logger.Debug("cache miss", "key", path.Fingerprint())

	produce := func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			logger.Debug("cache producer failed", "key", path.Fingerprint(), "error", err)
			return nil, err
		}
		b.Write(ctx, path, v, o.write)
		return v, nil
	}

	var flight *Flight
	if c, ok := b.(Coalescer); ok {
		flight = c.Flight()
	}

	// The flight key carries the result type so callers that share a path
	// with a different T never receive each other's values.
	res, err := flight.Do(path.String()+"|"+reflect.TypeFor[T]().String(), produce)
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := res.(T)
	return v, nil
}

// Stream memoizes a push producer. On a hit the returned channel yields the
// stored value once and closes. On a miss every emitted value is written and
// forwarded; the first failure is forwarded and ends the stream without a
// write. The channel closes when the producer closes or ctx is done.
func Stream[T any](ctx context.Context, b Backend, key Key, fn StreamFn[T], opts ...Option) <-chan Emission[T] {
	o := collectOptions(opts)
	path := Canonicalize(key)
	logger, metrics := observe(b)

	if v, ok := cached[T](b, path, o.skip); ok {
		b.RecordHit(ctx, path)
		metrics.Hit(ctx)
		logger.Debug("cache hit", "key", path.Fingerprint())

		out := make(chan Emission[T], 1)
		out <- Emission[T]{Value: v}
		close(out)
		return out
	}

	metrics.Miss(ctx)
	logger.Debug("cache miss", "key", path.Fingerprint())

	out := make(chan Emission[T])
	go func() {
		defer close(out)

		src := fn(ctx)
		if src == nil {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case em, ok := <-src:
				if !ok {
					return
				}
				if em.Err == nil {
					b.Write(ctx, path, em.Value, o.write)
				} else {
					logger.Debug("cache producer failed", "key", path.Fingerprint(), "error", em.Err)
				}
				select {
				case out <- em:
				case <-ctx.Done():
					return
				}
				if em.Err != nil {
					return
				}
			}
		}
	}()
	return out
}

// cached returns the stored value when it may be served for this read.
func cached[T any](b Backend, path Path, skip bool) (T, bool) {
	var zero T
	if skip || b.SkipAll() {
		return zero, false
	}

	entry, ok := b.Lookup(path)
	if !ok || !entry.Valid(b.Now()) {
		return zero, false
	}
	if entry.Value == nil {
		return zero, true
	}
	v, ok := entry.Value.(T)
	return v, ok
}

func observe(b Backend) (*slog.Logger, *Instruments) {
	if o, ok := b.(Observable); ok && o.Logger() != nil {
		return o.Logger(), o.Instruments()
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil)), nil
}

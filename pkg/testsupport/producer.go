package testsupport

import (
	"context"
	"sync"
)

// Producer is a fake expensive call that counts its invocations.
type Producer[T any] struct {
	mu    sync.Mutex
	calls int
	value T
	err   error
	// Gate, when set, blocks every call until it is closed.
	Gate chan struct{}
}

// NewProducer returns a producer that yields value.
func NewProducer[T any](value T) *Producer[T] {
	return &Producer[T]{value: value}
}

// NewFailingProducer returns a producer that fails with err.
func NewFailingProducer[T any](err error) *Producer[T] {
	return &Producer[T]{err: err}
}

// Fetch matches cache.FetchFn.
func (p *Producer[T]) Fetch(ctx context.Context) (T, error) {
	p.mu.Lock()
	p.calls++
	value, err, gate := p.value, p.err, p.Gate
	p.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
	return value, err
}

// Set changes the value returned by later calls.
func (p *Producer[T]) Set(value T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.value = value
}

// Calls returns how many times Fetch was invoked.
func (p *Producer[T]) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

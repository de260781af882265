package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func emit[T any](values ...Emission[T]) (StreamFn[T], *int) {
	calls := 0
	fn := func(ctx context.Context) <-chan Emission[T] {
		calls++
		ch := make(chan Emission[T], len(values))
		for _, v := range values {
			ch <- v
		}
		close(ch)
		return ch
	}
	return fn, &calls
}

func drain[T any](t *testing.T, ch <-chan Emission[T]) []Emission[T] {
	t.Helper()

	var out []Emission[T]
	timeout := time.After(2 * time.Second)
	for {
		select {
		case em, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, em)
		case <-timeout:
			t.Fatal("timed out waiting for the stream to close")
			return nil
		}
	}
}

func TestStream_MissWritesEachValue(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	key := NewKey("feed")
	fn, calls := emit(Emission[string]{Value: "first"}, Emission[string]{Value: "second"})

	got := drain(t, Stream(context.Background(), store, key, fn))
	if len(got) != 2 || got[0].Value != "first" || got[1].Value != "second" {
		t.Fatalf("expected both emissions forwarded, got %+v", got)
	}

	entry, ok := store.Get(key)
	if !ok || entry.Value != "second" {
		t.Fatalf("expected latest emission stored, got %+v (ok=%v)", entry, ok)
	}
	if entry.HitCount != 2 {
		t.Errorf("expected one write per emission, got hit count %d", entry.HitCount)
	}

	got = drain(t, Stream(context.Background(), store, key, fn))
	if len(got) != 1 || got[0].Value != "second" {
		t.Errorf("expected a single cached emission, got %+v", got)
	}
	if *calls != 1 {
		t.Errorf("expected producer to be subscribed once, got %d", *calls)
	}
}

func TestStream_ErrorIsForwardedAndNotCached(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	boom := errors.New("stream broke")
	fn, _ := emit(Emission[int]{Err: boom}, Emission[int]{Value: 1})

	got := drain(t, Stream(context.Background(), store, NewKey("broken"), fn))
	if len(got) != 1 || !errors.Is(got[0].Err, boom) {
		t.Fatalf("expected only the failure to be forwarded, got %+v", got)
	}
	if store.Len() != 0 {
		t.Errorf("expected nothing stored, got %d entries", store.Len())
	}
}

func TestStream_ContextCancelClosesOutput(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	never := func(ctx context.Context) <-chan Emission[int] {
		return make(chan Emission[int])
	}

	ctx, cancel := context.WithCancel(context.Background())
	out := Stream(ctx, store, NewKey("idle"), never)
	cancel()

	if got := drain(t, out); len(got) != 0 {
		t.Errorf("expected no emissions, got %+v", got)
	}
}

func TestStream_NilSourceCloses(t *testing.T) {
	store, _ := newTestStore(t, Config{})
	fn := func(ctx context.Context) <-chan Emission[int] { return nil }

	if got := drain(t, Stream(context.Background(), store, NewKey("nil"), fn)); len(got) != 0 {
		t.Errorf("expected no emissions, got %+v", got)
	}
}

func TestStream_HonorsExpiry(t *testing.T) {
	store, clock := newTestStore(t, Config{})
	key := NewKey("expiring")
	fn, calls := emit(Emission[int]{Value: 5})

	drain(t, Stream(context.Background(), store, key, fn, WithExpiresAfter(time.Second)))
	clock.Advance(2 * time.Second)
	drain(t, Stream(context.Background(), store, key, fn, WithExpiresAfter(time.Second)))

	if *calls != 2 {
		t.Errorf("expected expired entry to resubscribe, got %d subscriptions", *calls)
	}
}

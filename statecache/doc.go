// Package statecache binds the cache to a central state container.
//
// # Overview
//
// Where cache.Store mutates its trie in place, this binding keeps the trie
// inside an immutable State and expresses every mutation as an Event:
//
//   - WriteEvent: cache-write(path, value, timestamp, expiresAfter, maxCacheSize)
//   - InvalidateEvent, DeleteEvent, RecordHitEvent
//   - ClearEvent and SweepEvent for teardown and the expiry sweep
//
// Reduce is a pure function from (State, Event) to State. The tree is shared
// copy-on-write between states, so a State handed to a listener or a view
// stays consistent forever.
//
// # Host integration
//
// A Host owns the current State and applies Reduce on Dispatch. MemoryHost is
// a ready implementation with Subscribe for observers; hosts with their own
// store only need to call Reduce from their reducer.
//
//	host := statecache.NewMemoryHost()
//	store, err := statecache.New(host, cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	user, err := cache.Fetch(ctx, store, cache.NewKey("users", id), loadUser)
//
// Reads go through a Selector memoized on the state version, so repeated
// "does this key exist and is it valid" checks against an unchanged state
// do not walk the tree again.
//
// Store implements cache.Backend; both bindings produce identical cache
// semantics for identical operation sequences.
package statecache

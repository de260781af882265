// Package cache memoizes expensive calls under composite, hierarchical keys.
//
// # Overview
//
// A Key is an ordered list of segments. Raw string segments are used verbatim;
// structured segments (maps, structs, slices, numbers) are canonicalized to
// JSON with object keys sorted at every level, so two structurally equal values
// always address the same entry:
//
//	key := cache.NewKey("users", map[string]any{"page": 2, "active": true})
//
// Each canonical segment is one hop in a trie. A shorter key is a prefix that
// denotes every entry below it, which is what makes invalidation cheap:
//
//	store.Invalidate(cache.NewKey("users")) // every users/... entry is now stale
//
// # Memoizing calls
//
// Fetch wraps a one-shot producer with read-through, write-through caching:
//
//	user, err := cache.Fetch(ctx, store, cache.NewKey("users", id),
//		func(ctx context.Context) (User, error) {
//			return repo.GetByID(ctx, id)
//		},
//		cache.WithExpiresAfter(5*time.Minute),
//		cache.WithMaxCacheSize(100),
//	)
//
// A valid entry (not invalidated, not past its TTL) is returned without calling
// the producer and its hit count is incremented. On a miss the producer runs and its
// result is written. Producer errors are returned unchanged and never cached.
//
// Stream does the same for producers that push values over a channel.
//
// # Eviction
//
// WithMaxCacheSize bounds the number of entries kept next to the written one
// (its siblings under the same parent), not the whole store. When the bound is
// exceeded the most recently written sibling is kept and the rest are ranked:
// invalid entries go first, then entries with fewer hits, then older entries.
//
// # Expiry sweep
//
// Entries past their TTL are served as misses but stay in memory until the
// sweeper removes them. Config.SweepInterval controls the sweep; zero disables
// it. Close stops the sweeper and clears the store.
//
// # Concurrency
//
// Store is safe for concurrent use, but no lock is held while a producer runs,
// so concurrent misses for the same key each call the producer. Set
// Config.DedupeInFlight to coalesce them.
//
// # See Also
//
// For the event-sourced binding that expresses every mutation as a dispatched
// event, see the statecache package.
package cache

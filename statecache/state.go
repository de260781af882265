package statecache

import (
	"github.com/goliatone/go-call-cache/cache"
	"github.com/goliatone/go-call-cache/internal/cacheinfra"
)

// State is an immutable snapshot of the cache tree. The zero value is an
// empty cache.
type State struct {
	root    *cacheinfra.Node
	version uint64
	stats   Stats
	delta   Stats
}

// Stats are cumulative counters carried in State.
type Stats struct {
	Writes    uint64
	Evictions uint64
	Swept     uint64
}

// Lookup returns the raw entry at path.
func (s State) Lookup(path cache.Path) (cache.Entry, bool) {
	node := s.root
	for _, seg := range path {
		next, ok := node.Child(seg)
		if !ok {
			return cache.Entry{}, false
		}
		node = next
	}
	return node.Entry()
}

// Version increases every time the tree changes.
func (s State) Version() uint64 { return s.version }

func (s State) Stats() Stats { return s.stats }

// Delta holds what the event that produced this state added to Stats.
func (s State) Delta() Stats { return s.delta }

// Len returns the number of stored entries.
func (s State) Len() int { return s.root.Len() }

// Reduce applies ev to s and returns the next state. s is never modified.
func Reduce(s State, ev Event) State {
	tree := cacheinfra.NewPersistent(s.root)
	stats := s.stats

	switch e := ev.(type) {
	case WriteEvent:
		evicted := cacheinfra.Set(tree, e.Path, cacheinfra.Write{
			Value:        e.Value,
			CreatedAt:    e.Timestamp,
			ExpiresAfter: e.ExpiresAfter,
			MaxCacheSize: e.MaxCacheSize,
		})
		stats.Writes++
		stats.Evictions += uint64(evicted)
	case InvalidateEvent:
		cacheinfra.Invalidate(tree, e.Path)
	case DeleteEvent:
		cacheinfra.Delete(tree, e.Path)
	case RecordHitEvent:
		cacheinfra.RecordHit(tree, e.Path)
	case ClearEvent:
		cacheinfra.Clear(tree)
	case SweepEvent:
		stats.Swept += uint64(cacheinfra.Sweep(tree, e.Now))
	default:
		s.delta = Stats{}
		return s
	}

	if tree.Version() == 0 {
		s.delta = Stats{}
		return s
	}
	return State{
		root:    tree.Root(),
		version: s.version + tree.Version(),
		stats:   stats,
		delta: Stats{
			Writes:    stats.Writes - s.stats.Writes,
			Evictions: stats.Evictions - s.stats.Evictions,
			Swept:     stats.Swept - s.stats.Swept,
		},
	}
}

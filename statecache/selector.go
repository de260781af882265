package statecache

import (
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/goliatone/go-call-cache/cache"
)

// Selector is a memoized read over State. Results are kept only for the
// latest state version seen, and only for paths that hold an entry, so the
// memo never outgrows the state it reads. A Selector must only be used with
// states coming from a single Host.
type Selector struct {
	current atomic.Pointer[generation]
}

type generation struct {
	version uint64
	memo    *xsync.MapOf[string, cache.Entry]
}

// NewSelector returns an empty Selector.
func NewSelector() *Selector {
	return &Selector{}
}

// Entry returns the entry at path in state.
func (s *Selector) Entry(state State, path cache.Path) (cache.Entry, bool) {
	gen := s.generation(state.Version())
	key := path.String()
	if gen != nil {
		if entry, ok := gen.memo.Load(key); ok {
			return entry, true
		}
	}

	entry, ok := state.Lookup(path)
	if ok && gen != nil {
		gen.memo.Store(key, entry)
	}
	return entry, ok
}

// generation returns the memo for version, replacing an older one. It
// returns nil for a version older than the current one.
func (s *Selector) generation(version uint64) *generation {
	for {
		cur := s.current.Load()
		if cur != nil && cur.version == version {
			return cur
		}
		if cur != nil && cur.version > version {
			return nil
		}
		next := &generation{version: version, memo: xsync.NewMapOf[string, cache.Entry]()}
		if s.current.CompareAndSwap(cur, next) {
			return next
		}
	}
}

// Valid reports whether path holds an entry that may be served at now.
func (s *Selector) Valid(state State, path cache.Path, now time.Time) bool {
	entry, ok := s.Entry(state, path)
	return ok && entry.Valid(now)
}

// Size returns the number of memoized paths.
func (s *Selector) Size() int {
	if cur := s.current.Load(); cur != nil {
		return cur.memo.Size()
	}
	return 0
}

// Reset drops every memoized result.
func (s *Selector) Reset() {
	s.current.Store(nil)
}

package cacheinfra

import (
	"context"
	"sync"
	"time"
)

// Sweep removes every entry in the tree that is invalid or expired at now.
// Child nodes of a swept entry are kept. It returns the number of entries
// removed.
func Sweep(t Tree, now time.Time) int {
	var stale []Path
	collectStale(t.Root(), nil, now, &stale)
	if len(stale) == 0 {
		return 0
	}

	txn := t.Begin()
	removed := 0
	for _, path := range stale {
		nodes := walk(txn, path)
		if nodes == nil {
			continue
		}
		n := nodes[len(nodes)-1]
		if n.entry == nil {
			continue
		}
		n.entry = nil
		removed++
		prune(nodes, path)
	}
	txn.Commit()
	return removed
}

func collectStale(n *Node, path Path, now time.Time, out *[]Path) {
	if n.entry != nil && !n.entry.Valid(now) {
		*out = append(*out, path.clone())
	}
	for _, seg := range n.Segments() {
		collectStale(n.children[seg], append(path, seg), now, out)
	}
}

// Sweeper runs a pass function on a fixed interval until stopped.
type Sweeper struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// StartSweeper schedules pass every interval. A non-positive interval
// disables sweeping and returns nil; a nil *Sweeper is safe to Stop.
func StartSweeper(interval time.Duration, pass func()) *Sweeper {
	if interval <= 0 || pass == nil {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Sweeper{cancel: cancel}

	s.wg.Add(1)
	go s.loop(ctx, interval, pass)

	return s
}

func (s *Sweeper) loop(ctx context.Context, interval time.Duration, pass func()) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pass()
		}
	}
}

// Stop cancels the timer and waits for a running pass to finish.
func (s *Sweeper) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.cancel()
		s.wg.Wait()
	})
}

package cacheinfra

import "sort"

type sibling struct {
	seg   string
	entry *Entry
}

// evictSiblings trims the entry-holding children of parent down to max.
// The most recently written sibling is exempt; the rest are ranked invalid
// first, then by lower hit count, then by older write time. written is the
// segment just stored and wins a tie on write time.
func evictSiblings(parent *Node, max int, written string) int {
	siblings := make([]sibling, 0, len(parent.children))
	for _, seg := range parent.Segments() {
		if e := parent.children[seg].entry; e != nil {
			siblings = append(siblings, sibling{seg: seg, entry: e})
		}
	}
	if len(siblings) <= max {
		return 0
	}

	newest := 0
	for i, s := range siblings {
		if s.seg == written {
			newest = i
			break
		}
	}
	for i, s := range siblings {
		if s.entry.CreatedAt.After(siblings[newest].entry.CreatedAt) {
			newest = i
		}
	}
	candidates := make([]sibling, 0, len(siblings)-1)
	candidates = append(candidates, siblings[:newest]...)
	candidates = append(candidates, siblings[newest+1:]...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return moreEvictable(candidates[i], candidates[j])
	})

	excess := len(siblings) - max
	for _, victim := range candidates[:excess] {
		delete(parent.children, victim.seg)
	}
	return excess
}

func moreEvictable(a, b sibling) bool {
	if a.entry.Invalid != b.entry.Invalid {
		return a.entry.Invalid
	}
	if a.entry.HitCount != b.entry.HitCount {
		return a.entry.HitCount < b.entry.HitCount
	}
	if !a.entry.CreatedAt.Equal(b.entry.CreatedAt) {
		return a.entry.CreatedAt.Before(b.entry.CreatedAt)
	}
	return a.seg < b.seg
}

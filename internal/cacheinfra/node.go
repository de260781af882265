package cacheinfra

import (
	"sort"
	"time"
)

// Entry is the unit of cached data stored at a node.
type Entry struct {
	Value any
	// CreatedAt is the time of the last write.
	CreatedAt time.Time
	// ExpiresAfter is the entry TTL. Zero or negative means the entry never expires.
	ExpiresAfter time.Duration
	// Invalid is set by invalidation and cleared by the next write.
	Invalid bool
	// HitCount starts at 1 and grows with every write and recorded hit.
	HitCount int
}

// Expired reports whether the TTL has elapsed at now.
func (e Entry) Expired(now time.Time) bool {
	if e.ExpiresAfter <= 0 {
		return false
	}
	return now.After(e.CreatedAt.Add(e.ExpiresAfter))
}

// Valid reports whether the entry may be served to a reader at now.
func (e Entry) Valid(now time.Time) bool {
	return !e.Invalid && !e.Expired(now)
}

// Node is an element of the cache trie. A node holds at most one entry and
// any number of children keyed by path segment. Nodes are mutated only
// through a Txn; readers treat them as read-only.
type Node struct {
	entry    *Entry
	children map[string]*Node
}

// NewNode returns an empty node.
func NewNode() *Node {
	return &Node{}
}

// Entry returns a copy of the entry stored at this node.
func (n *Node) Entry() (Entry, bool) {
	if n == nil || n.entry == nil {
		return Entry{}, false
	}
	return *n.entry, true
}

// Child returns the child at seg.
func (n *Node) Child(seg string) (*Node, bool) {
	if n == nil {
		return nil, false
	}
	c, ok := n.children[seg]
	return c, ok
}

// Segments returns the child segment names in sorted order.
func (n *Node) Segments() []string {
	if n == nil || len(n.children) == 0 {
		return nil
	}
	segs := make([]string, 0, len(n.children))
	for seg := range n.children {
		segs = append(segs, seg)
	}
	sort.Strings(segs)
	return segs
}

// Len counts the entries in the subtree rooted at n, including n itself.
func (n *Node) Len() int {
	if n == nil {
		return 0
	}
	total := 0
	if n.entry != nil {
		total++
	}
	for _, c := range n.children {
		total += c.Len()
	}
	return total
}

func (n *Node) empty() bool {
	return n.entry == nil && len(n.children) == 0
}

func (n *Node) setChild(seg string, c *Node) {
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[seg] = c
}

// clone makes a shallow copy: the entry is copied, children are shared.
func (n *Node) clone() *Node {
	c := &Node{}
	if n.entry != nil {
		e := *n.entry
		c.entry = &e
	}
	if len(n.children) > 0 {
		c.children = make(map[string]*Node, len(n.children))
		for seg, child := range n.children {
			c.children[seg] = child
		}
	}
	return c
}

// find walks path from n without modifying anything.
func find(n *Node, path Path) *Node {
	for _, seg := range path {
		next, ok := n.Child(seg)
		if !ok {
			return nil
		}
		n = next
	}
	return n
}

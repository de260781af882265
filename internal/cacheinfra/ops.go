package cacheinfra

import "time"

// Write carries the data for a single Set.
type Write struct {
	Value        any
	CreatedAt    time.Time
	ExpiresAfter time.Duration
	// MaxCacheSize bounds the number of sibling entries under the parent of
	// the written node. Zero disables eviction.
	MaxCacheSize int
}

// Lookup returns the entry stored at path. Validity is not checked.
func Lookup(t Tree, path Path) (Entry, bool) {
	return find(t.Root(), path).Entry()
}

// Set writes w at path, creating intermediate nodes as needed. An existing
// entry keeps its hit count, incremented by one; a new entry starts at 1.
// It returns the number of siblings evicted to respect w.MaxCacheSize.
func Set(t Tree, path Path, w Write) int {
	txn := t.Begin()
	var parent *Node
	n := txn.Root()
	for _, seg := range path {
		parent = n
		n = txn.Child(n, seg, true)
	}

	if n.entry != nil {
		n.entry.Value = w.Value
		n.entry.CreatedAt = w.CreatedAt
		n.entry.ExpiresAfter = w.ExpiresAfter
		n.entry.Invalid = false
		n.entry.HitCount++
	} else {
		n.entry = &Entry{
			Value:        w.Value,
			CreatedAt:    w.CreatedAt,
			ExpiresAfter: w.ExpiresAfter,
			HitCount:     1,
		}
	}

	evicted := 0
	if parent != nil && w.MaxCacheSize > 0 {
		evicted = evictSiblings(parent, w.MaxCacheSize, path[len(path)-1])
	}
	txn.Commit()
	return evicted
}

// Invalidate flags the entry at path and every entry below it as invalid.
// Values, hit counts and tree structure are preserved.
func Invalidate(t Tree, path Path) {
	if find(t.Root(), path) == nil {
		return
	}
	txn := t.Begin()
	nodes := walk(txn, path)
	markInvalid(txn, nodes[len(nodes)-1])
	txn.Commit()
}

func markInvalid(txn Txn, n *Node) {
	if n.entry != nil {
		n.entry.Invalid = true
	}
	for _, seg := range n.Segments() {
		markInvalid(txn, txn.Child(n, seg, false))
	}
}

// Delete removes the entry at path. When the node holds no entry its
// children are pruned instead. Nodes left empty are detached from the tree.
func Delete(t Tree, path Path) {
	if find(t.Root(), path) == nil {
		return
	}
	txn := t.Begin()
	nodes := walk(txn, path)
	n := nodes[len(nodes)-1]
	if n.entry != nil {
		n.entry = nil
	} else {
		n.children = nil
	}
	prune(nodes, path)
	txn.Commit()
}

// RecordHit increments the hit count of the entry at path.
func RecordHit(t Tree, path Path) {
	if _, ok := Lookup(t, path); !ok {
		return
	}
	txn := t.Begin()
	nodes := walk(txn, path)
	nodes[len(nodes)-1].entry.HitCount++
	txn.Commit()
}

// Clear drops every entry and node.
func Clear(t Tree) {
	txn := t.Begin()
	root := txn.Root()
	root.entry = nil
	root.children = nil
	txn.Commit()
}

// walk returns the writable nodes from the root to the end of path, or nil
// when a hop is missing.
func walk(txn Txn, path Path) []*Node {
	nodes := make([]*Node, 0, len(path)+1)
	n := txn.Root()
	nodes = append(nodes, n)
	for _, seg := range path {
		n = txn.Child(n, seg, false)
		if n == nil {
			return nil
		}
		nodes = append(nodes, n)
	}
	return nodes
}

// prune detaches empty nodes at the end of the walked chain, bottom up.
func prune(nodes []*Node, path Path) {
	for i := len(nodes) - 1; i > 0; i-- {
		if !nodes[i].empty() {
			return
		}
		delete(nodes[i-1].children, path[i-1])
	}
}

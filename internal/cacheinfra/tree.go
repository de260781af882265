package cacheinfra

// Tree is a mutable key/value trie. The cache algorithms are written once
// against this interface; backings only decide how a mutation is applied.
type Tree interface {
	// Root returns the current committed root. Callers must not modify it.
	Root() *Node
	// Begin opens a mutation.
	Begin() Txn
}

// Txn is a single mutation against a Tree. Nodes returned by a Txn are
// writable until Commit is called.
type Txn interface {
	// Root returns the writable root.
	Root() *Node
	// Child returns the writable child of parent at seg. parent must have been
	// obtained from this Txn. When create is true a missing child is added,
	// otherwise nil is returned for a missing child.
	Child(parent *Node, seg string, create bool) *Node
	// Commit publishes the mutation.
	Commit()
}

// Mutable is a Tree that is modified in place.
type Mutable struct {
	root *Node
}

// NewMutable returns an empty in-place tree.
func NewMutable() *Mutable {
	return &Mutable{root: NewNode()}
}

func (m *Mutable) Root() *Node { return m.root }

func (m *Mutable) Begin() Txn { return mutableTxn{root: m.root} }

type mutableTxn struct {
	root *Node
}

func (t mutableTxn) Root() *Node { return t.root }

func (t mutableTxn) Child(parent *Node, seg string, create bool) *Node {
	if c, ok := parent.children[seg]; ok {
		return c
	}
	if !create {
		return nil
	}
	c := NewNode()
	parent.setChild(seg, c)
	return c
}

func (t mutableTxn) Commit() {}

// Persistent is a copy-on-write Tree. A committed root is never modified
// again, so any root handed out by Root stays a consistent snapshot.
type Persistent struct {
	root    *Node
	version uint64
}

// NewPersistent returns a copy-on-write tree starting at root. A nil root
// starts an empty tree. root itself is never modified.
func NewPersistent(root *Node) *Persistent {
	if root == nil {
		root = NewNode()
	}
	return &Persistent{root: root}
}

func (p *Persistent) Root() *Node { return p.root }

// Version counts the commits applied to this tree.
func (p *Persistent) Version() uint64 { return p.version }

func (p *Persistent) Begin() Txn {
	root := p.root.clone()
	return &persistentTxn{
		tree:  p,
		root:  root,
		owned: map[*Node]struct{}{root: {}},
	}
}

type persistentTxn struct {
	tree  *Persistent
	root  *Node
	owned map[*Node]struct{}
}

func (t *persistentTxn) Root() *Node { return t.root }

func (t *persistentTxn) Child(parent *Node, seg string, create bool) *Node {
	c, ok := parent.children[seg]
	if !ok {
		if !create {
			return nil
		}
		c = NewNode()
		parent.setChild(seg, c)
		t.owned[c] = struct{}{}
		return c
	}
	if _, mine := t.owned[c]; mine {
		return c
	}
	copied := c.clone()
	parent.children[seg] = copied
	t.owned[copied] = struct{}{}
	return copied
}

func (t *persistentTxn) Commit() {
	t.tree.root = t.root
	t.tree.version++
}

/*
Package trie implements the character trie that holds every entity name.

Nodes live in an arena and are addressed by NodeID; parent links are plain
indices, so pruning walks upward without any pointer cycles. Each terminal
node keeps the set of entity handles whose name ends there as a roaring
bitmap, plus the subset of those owners that demand exact-case matching.

The trie is not safe for concurrent use. Callers must not scan while a
mutation is in flight on the same instance.
*/
package trie

import (
	"github.com/RoaringBitmap/roaring/v2"
)

// NodeID addresses a node in the arena.
type NodeID int32

// Root is the ID of the root node, which represents the empty prefix.
const Root NodeID = 0

// None marks a missing node.
const None NodeID = -1

type node struct {
	value    string
	parent   NodeID
	char     rune
	children map[rune]NodeID
	owners   *roaring.Bitmap // nil for non-terminal nodes
	strict   *roaring.Bitmap // owners that registered a case-exact name here
	live     bool
}

// Trie is a multi-name prefix tree keyed by runes.
type Trie struct {
	nodes  []node
	free   []NodeID
	leaves map[uint32][]NodeID
	names  int
}

// New creates an empty trie holding only the root.
func New() *Trie {
	return &Trie{
		nodes:  []node{{parent: None, live: true}},
		leaves: make(map[uint32][]NodeID),
	}
}

// Insert registers name for entity and returns its terminal node.
// Nodes are created on demand. Once a case-exact insertion reaches a node,
// RequiresCaseMatch stays true until that owner is removed.
func (t *Trie) Insert(entity uint32, name string, caseExact bool) NodeID {
	if name == "" {
		return None
	}
	cur := Root
	for _, r := range name {
		next, ok := t.nodes[cur].children[r]
		if !ok {
			next = t.alloc(cur, r)
		}
		cur = next
	}

	n := &t.nodes[cur]
	if n.owners == nil {
		n.owners = roaring.New()
	}
	if !n.owners.Contains(entity) {
		t.names++
	}
	n.owners.Add(entity)
	if caseExact {
		if n.strict == nil {
			n.strict = roaring.New()
		}
		n.strict.Add(entity)
	}
	t.recordLeaf(entity, cur)
	return cur
}

// Remove retracts every name of entity and prunes nodes that end up with
// neither owners nor children. It reports whether anything was removed.
func (t *Trie) Remove(entity uint32) bool {
	leaves, ok := t.leaves[entity]
	if !ok {
		return false
	}
	delete(t.leaves, entity)

	for _, id := range leaves {
		n := &t.nodes[id]
		if !n.live || n.owners == nil || !n.owners.Contains(entity) {
			continue
		}
		n.owners.Remove(entity)
		t.names--
		if n.strict != nil {
			n.strict.Remove(entity)
			if n.strict.IsEmpty() {
				n.strict = nil
			}
		}
		if n.owners.IsEmpty() {
			n.owners = nil
			t.prune(id)
		}
	}
	return true
}

// has reports whether entity has names in the trie.
func (t *Trie) has(entity uint32) bool {
	_, ok := t.leaves[entity]
	return ok
}

// Child returns the child of id reached by r.
func (t *Trie) Child(id NodeID, r rune) (NodeID, bool) {
	if !t.valid(id) {
		return None, false
	}
	c, ok := t.nodes[id].children[r]
	return c, ok
}

// Find walks name from the root and returns the terminal node, if any.
func (t *Trie) Find(name string) (NodeID, bool) {
	cur := Root
	for _, r := range name {
		next, ok := t.nodes[cur].children[r]
		if !ok {
			return None, false
		}
		cur = next
	}
	return cur, true
}

// Lookup returns the owners registered exactly under name, or nil.
func (t *Trie) Lookup(name string) *roaring.Bitmap {
	id, ok := t.Find(name)
	if !ok || t.nodes[id].owners == nil {
		return nil
	}
	return t.nodes[id].owners.Clone()
}

// Owners returns the owner set of id without copying. Callers must not mutate it.
// Non-terminal nodes return nil.
func (t *Trie) Owners(id NodeID) *roaring.Bitmap {
	if !t.valid(id) {
		return nil
	}
	return t.nodes[id].owners
}

// isTerminal reports whether some entity name ends at id.
func (t *Trie) isTerminal(id NodeID) bool {
	return t.valid(id) && t.nodes[id].owners != nil
}

// RequiresCaseMatch reports whether at least one owner of id registered a
// case-exact name there.
func (t *Trie) RequiresCaseMatch(id NodeID) bool {
	return t.valid(id) && t.nodes[id].strict != nil
}

// Value returns the prefix represented by id.
func (t *Trie) Value(id NodeID) string {
	if !t.valid(id) {
		return ""
	}
	return t.nodes[id].value
}

// parentOf returns the parent of id, or None for the root.
func (t *Trie) parentOf(id NodeID) NodeID {
	if !t.valid(id) {
		return None
	}
	return t.nodes[id].parent
}

// Len returns the number of live nodes, root included.
func (t *Trie) Len() int {
	return len(t.nodes) - len(t.free)
}

// Names returns the number of (entity, terminal node) registrations.
func (t *Trie) Names() int {
	return t.names
}

// Entities returns the number of entities that own at least one name.
func (t *Trie) Entities() int {
	return len(t.leaves)
}

func (t *Trie) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(t.nodes) && t.nodes[id].live
}

func (t *Trie) alloc(parent NodeID, r rune) NodeID {
	n := node{
		value:  t.nodes[parent].value + string(r),
		parent: parent,
		char:   r,
		live:   true,
	}

	var id NodeID
	if k := len(t.free); k > 0 {
		id = t.free[k-1]
		t.free = t.free[:k-1]
		t.nodes[id] = n
	} else {
		id = NodeID(len(t.nodes))
		t.nodes = append(t.nodes, n)
	}

	p := &t.nodes[parent]
	if p.children == nil {
		p.children = make(map[rune]NodeID, 1)
	}
	p.children[r] = id
	return id
}

// prune releases id and its ancestors while they are ownerless leaves.
// The root is never released.
func (t *Trie) prune(id NodeID) {
	for id != Root {
		n := &t.nodes[id]
		if n.owners != nil || len(n.children) > 0 {
			return
		}
		parent := n.parent
		delete(t.nodes[parent].children, n.char)
		t.nodes[id] = node{parent: None}
		t.free = append(t.free, id)
		id = parent
	}
}

func (t *Trie) recordLeaf(entity uint32, id NodeID) {
	for _, existing := range t.leaves[entity] {
		if existing == id {
			return
		}
	}
	t.leaves[entity] = append(t.leaves[entity], id)
}

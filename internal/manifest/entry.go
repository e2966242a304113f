package manifest

import (
	"fmt"
	"sort"

	"github.com/keshon/bvctree/internal/hash"
)

// Entry is one node of an in-memory manifest. It is exactly one of *Leaf,
// *Conflict or *Tree; no other type implements it.
type Entry interface {
	isEntry()
}

// Leaf references a blob that is already in the store. It is never a tree.
type Leaf struct {
	ID   hash.ID
	Type Type
}

// NewLeaf builds a leaf for an existing file, executable or symlink blob.
func NewLeaf(id hash.ID, typ Type) (*Leaf, error) {
	if typ == TypeTree || !typ.Valid() {
		return nil, fmt.Errorf("leaf cannot have type %s", typ)
	}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &Leaf{ID: id, Type: typ}, nil
}

// Conflict holds two or more alternatives that disagree at one path. A tree
// containing a Conflict cannot be saved until the conflict is replaced.
type Conflict struct {
	Entries []Entry
}

// NewConflict requires at least two alternatives.
func NewConflict(entries ...Entry) (*Conflict, error) {
	if len(entries) < 2 {
		return nil, fmt.Errorf("conflict needs at least two entries, got %d", len(entries))
	}
	return &Conflict{Entries: entries}, nil
}

// Tree is an in-memory directory.
//
// An unmodified tree is an exact copy of the persisted tree P1 and never has
// P2 set. A modified tree is written out on save, with P1 and P2 recorded as
// lineage only. The single exception is the root of a manifest built from no
// parents: empty, unmodified and parentless until something is inserted.
type Tree struct {
	children map[Element]Entry
	P1       hash.ID
	P2       hash.ID
	Modified bool
	unloaded bool
}

// NewTree returns an empty, unmodified tree with no parents.
func NewTree() *Tree {
	return &Tree{children: make(map[Element]Entry)}
}

// NewTreeRef returns an unmodified tree standing for the persisted tree id
// without loading its children. Saving it reuses id as is. Nothing may be
// inserted or removed below it: InsertPath and RemovePath fail with
// ErrUnloadedTree. Use ConvertExistingTree when the children will be edited.
func NewTreeRef(id hash.ID) *Tree {
	return &Tree{children: make(map[Element]Entry), P1: id, unloaded: true}
}

func (*Leaf) isEntry()     {}
func (*Conflict) isEntry() {}
func (*Tree) isEntry()     {}

// IsDir reports whether e is a Tree.
func IsDir(e Entry) bool {
	_, ok := e.(*Tree)
	return ok
}

func (t *Tree) Len() int { return len(t.children) }

func (t *Tree) Get(name Element) (Entry, bool) {
	e, ok := t.children[name]
	return e, ok
}

// Names returns child names in byte-wise ascending order.
func (t *Tree) Names() []Element {
	names := make([]Element, 0, len(t.children))
	for n := range t.children {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

package manifest

import "fmt"

// Insert adds or replaces name in this tree and marks it modified. Ancestors
// are not touched; use InsertPath to edit below the top level. The package
// level Insert also refuses nil children and unloaded trees.
func (t *Tree) Insert(name Element, child Entry) {
	if t.children == nil {
		t.children = make(map[Element]Entry)
	}
	t.children[name] = child
	t.Modified = true
}

// Remove deletes name and marks the tree modified if it was present.
func (t *Tree) Remove(name Element) bool {
	if _, ok := t.children[name]; !ok {
		return false
	}
	delete(t.children, name)
	t.Modified = true
	return true
}

// Insert adds child under name in entry, which must be a loaded Tree.
func Insert(entry Entry, name Element, child Entry) error {
	if child == nil {
		return ErrNilEntry
	}
	t, err := editable(entry)
	if err != nil {
		return err
	}
	t.Insert(name, child)
	return nil
}

// editable returns e as a tree whose children may be changed.
func editable(e Entry) (*Tree, error) {
	t, ok := e.(*Tree)
	if !ok || t == nil {
		return nil, ErrNotATree
	}
	if t.unloaded {
		return nil, fmt.Errorf("%w: %s was inserted by reference", ErrUnloadedTree, t.P1)
	}
	return t, nil
}

// InsertPath places child at path below root, marking every tree on the way
// modified. Missing intermediate directories are created. Nothing changes
// when an error is returned.
func InsertPath(root Entry, path Path, child Entry) error {
	if path.IsRoot() {
		return ErrEmptyPath
	}
	if child == nil {
		return ErrNilEntry
	}
	t, err := editable(root)
	if err != nil {
		return err
	}
	dir := path.Dir()
	trail := make([]*Tree, 0, len(path))
	i := 0
	for ; i < len(dir); i++ {
		trail = append(trail, t)
		next, ok := t.children[dir[i]]
		if !ok {
			break
		}
		if t, err = editable(next); err != nil {
			return fmt.Errorf("%s: %w", dir[:i+1], err)
		}
	}
	for _, anc := range trail {
		anc.Modified = true
	}
	for ; i < len(dir); i++ {
		sub := NewTree()
		sub.Modified = true
		t.Insert(dir[i], sub)
		t = sub
	}
	t.Insert(path.Base(), child)
	return nil
}

// RemovePath deletes the entry at path. Trees on the way are marked modified
// only when something was removed.
func RemovePath(root Entry, path Path) (bool, error) {
	if path.IsRoot() {
		return false, ErrEmptyPath
	}
	t, err := editable(root)
	if err != nil {
		return false, err
	}
	dir := path.Dir()
	trail := make([]*Tree, 0, len(path))
	for i, name := range dir {
		trail = append(trail, t)
		next, ok := t.children[name]
		if !ok {
			return false, nil
		}
		if t, err = editable(next); err != nil {
			return false, fmt.Errorf("%s: %w", dir[:i+1], err)
		}
	}
	if !t.Remove(path.Base()) {
		return false, nil
	}
	for _, anc := range trail {
		anc.Modified = true
	}
	return true, nil
}

// Lookup walks path from root. The root path returns root itself.
func Lookup(root Entry, path Path) (Entry, bool) {
	cur := root
	for _, name := range path {
		t, ok := cur.(*Tree)
		if !ok {
			return nil, false
		}
		if cur, ok = t.children[name]; !ok {
			return nil, false
		}
	}
	return cur, true
}

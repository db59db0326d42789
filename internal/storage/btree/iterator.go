package btree

import "latchdb/internal/util"

// Iterator is a cursor over the leaf chain: (leaf page_id, index within
// leaf). It pins exactly the current leaf while evaluating Key/Value/Next,
// per spec.md §4.4, rather than holding a pin for its whole lifetime.
type Iterator struct {
	tree   *Tree
	leafID util.PageID
	index  int
}

// End reports whether the cursor has run off the last leaf.
func (it *Iterator) End() bool { return it.leafID == util.InvalidPageID }

// Key returns the key at the cursor, valid only when !End().
func (it *Iterator) Key() (Key, error) {
	f, err := it.tree.pool.FetchPage(it.leafID)
	if err != nil {
		return Key{}, err
	}
	f.RLatch()
	leaf := leafNode{header{f.Data()}}
	k := leaf.KeyAt(it.index)
	f.RUnlatch()
	it.tree.pool.UnpinPage(it.leafID, false)
	return k, nil
}

// Value returns the RID at the cursor, valid only when !End().
func (it *Iterator) Value() (util.RID, error) {
	f, err := it.tree.pool.FetchPage(it.leafID)
	if err != nil {
		return util.RID{}, err
	}
	f.RLatch()
	leaf := leafNode{header{f.Data()}}
	v := leaf.ValueAt(it.index)
	f.RUnlatch()
	it.tree.pool.UnpinPage(it.leafID, false)
	return v, nil
}

// Next advances the cursor, crossing into the next leaf via its
// next_leaf_page_id when the current one is exhausted.
func (it *Iterator) Next() error {
	f, err := it.tree.pool.FetchPage(it.leafID)
	if err != nil {
		return err
	}
	f.RLatch()
	leaf := leafNode{header{f.Data()}}
	size := leaf.size()
	next := leaf.NextPageID()
	f.RUnlatch()
	it.tree.pool.UnpinPage(it.leafID, false)

	it.index++
	if it.index < size {
		return nil
	}
	it.leafID = next
	it.index = 0
	return nil
}

// Begin returns a cursor at the smallest key in the tree.
func (t *Tree) Begin() (*Iterator, error) {
	t.rootLatch.RLock()
	defer t.rootLatch.RUnlock()

	if t.rootPageID == util.InvalidPageID {
		return &Iterator{tree: t, leafID: util.InvalidPageID}, nil
	}

	curID := t.rootPageID
	for {
		f, err := t.pool.FetchPage(curID)
		if err != nil {
			return nil, err
		}
		f.RLatch()
		h := header{f.Data()}
		if h.isLeaf() {
			f.RUnlatch()
			t.pool.UnpinPage(curID, false)
			return &Iterator{tree: t, leafID: curID, index: 0}, nil
		}
		in := internalNode{h}
		next := in.ValueAt(0)
		f.RUnlatch()
		t.pool.UnpinPage(curID, false)
		curID = next
	}
}

// BeginAt returns a cursor at the first key >= key.
func (t *Tree) BeginAt(key Key) (*Iterator, error) {
	c, err := t.descend(key, false, nil)
	if err != nil {
		return nil, err
	}
	defer c.release()

	leafFrame := c.last()
	if leafFrame == nil {
		return &Iterator{tree: t, leafID: util.InvalidPageID}, nil
	}
	leaf := leafNode{header{leafFrame.Data()}}
	idx := leaf.KeyIndex(key, t.cmp)
	if idx >= leaf.size() {
		return &Iterator{tree: t, leafID: leaf.NextPageID(), index: 0}, nil
	}
	return &Iterator{tree: t, leafID: leafFrame.PageID(), index: idx}, nil
}

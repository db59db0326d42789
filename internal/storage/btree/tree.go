package btree

import (
	"sync"

	"latchdb/internal/storage/buffer"
	"latchdb/internal/util"
)

// Tree is an ordered key->RID index with latch-crabbing concurrency control
// (spec.md §4.4). The public contract is GetValue/Insert/Remove plus
// ordered iteration via Begin/End.
type Tree struct {
	name string
	pool *buffer.Pool
	cmp  Comparator
	reg  *registry

	leafMaxSize     int
	internalMaxSize int

	// rootLatch guards rootPageID itself, distinct from any page's own
	// latch, because root identity can change underneath a concurrent
	// reader (spec.md §4.4).
	rootLatch  sync.RWMutex
	rootPageID util.PageID
}

// Open loads (or creates, if absent) the named index's root mapping from
// the shared header page and returns a Tree bound to pool.
func Open(name string, pool *buffer.Pool, cmp Comparator, leafMaxSize, internalMaxSize int) (*Tree, error) {
	reg := newRegistry(pool)
	root, err := reg.getRoot(name)
	if err != nil {
		return nil, err
	}
	return &Tree{
		name:            name,
		pool:            pool,
		cmp:             cmp,
		reg:             reg,
		leafMaxSize:     leafMaxSize,
		internalMaxSize: internalMaxSize,
		rootPageID:      root,
	}, nil
}

// IsEmpty reports whether the tree currently has no root (spec.md §8
// property 5: removing every key must leave root id == invalid).
func (t *Tree) IsEmpty() bool {
	t.rootLatch.RLock()
	defer t.rootLatch.RUnlock()
	return t.rootPageID == util.InvalidPageID
}

// GetValue looks up key, returning its RID and true on a hit.
func (t *Tree) GetValue(key Key) (util.RID, bool, error) {
	c, err := t.descend(key, false, nil)
	if err != nil {
		return util.RID{}, false, err
	}
	defer c.release()

	leafFrame := c.last()
	if leafFrame == nil {
		return util.RID{}, false, nil
	}
	leaf := leafNode{header{leafFrame.Data()}}
	idx := leaf.KeyIndex(key, t.cmp)
	if idx < leaf.size() && t.cmp(leaf.KeyAt(idx), key) == 0 {
		return leaf.ValueAt(idx), true, nil
	}
	return util.RID{}, false, nil
}

// Insert adds (key, rid). Returns false without modifying the tree if key
// is already present — this index only supports unique keys.
func (t *Tree) Insert(key Key, rid util.RID) (bool, error) {
	if t.IsEmpty() {
		return t.startNewTree(key, rid)
	}

	c, err := t.descend(key, true, insertSafe)
	if err != nil {
		return false, err
	}

	leafFrame := c.last()
	if leafFrame == nil {
		// Root vanished between the emptiness check and the descend
		// (another writer emptied it); fall back to starting fresh.
		c.release()
		return t.startNewTree(key, rid)
	}

	leaf := leafNode{header{leafFrame.Data()}}
	idx := leaf.KeyIndex(key, t.cmp)
	if idx < leaf.size() && t.cmp(leaf.KeyAt(idx), key) == 0 {
		c.release()
		return false, nil
	}

	newSize := leaf.Insert(key, rid, t.cmp)
	if newSize < leaf.maxSize() {
		c.release()
		return true, nil
	}

	if err := t.splitLeafAndInsertParent(c, leafFrame, leaf); err != nil {
		c.release()
		return false, err
	}
	c.release()
	return true, nil
}

// startNewTree allocates the very first leaf page and makes it the root.
// Called with no crab held, so it takes the root latch itself.
func (t *Tree) startNewTree(key Key, rid util.RID) (bool, error) {
	t.rootLatch.Lock()
	if t.rootPageID != util.InvalidPageID {
		// Lost the race; retry as a normal insert under the real crab.
		t.rootLatch.Unlock()
		return t.Insert(key, rid)
	}

	f, err := t.pool.NewPage()
	if err != nil {
		t.rootLatch.Unlock()
		return false, err
	}
	leaf := InitLeaf(f.Data(), f.PageID(), util.InvalidPageID, t.leafMaxSize)
	leaf.Insert(key, rid, t.cmp)
	t.rootPageID = f.PageID()
	if err := t.reg.setRoot(t.name, t.rootPageID); err != nil {
		t.pool.UnpinPage(f.PageID(), true)
		t.rootLatch.Unlock()
		return false, err
	}
	t.pool.UnpinPage(f.PageID(), true)
	t.rootLatch.Unlock()
	return true, nil
}

// splitLeafAndInsertParent splits a full leaf and threads the separator key
// into the parent, per spec.md §4.4's Insert/Split description.
func (t *Tree) splitLeafAndInsertParent(c *crab, leafFrame *buffer.Frame, leaf leafNode) error {
	siblingFrame, err := t.pool.NewPage()
	if err != nil {
		return err
	}
	sibling := InitLeaf(siblingFrame.Data(), siblingFrame.PageID(), leaf.parentPageID(), t.leafMaxSize)

	total := leaf.size() // already includes the just-inserted entry
	left := total / 2
	for i := left; i < total; i++ {
		sibling.Insert(leaf.KeyAt(i), leaf.ValueAt(i), t.cmp)
	}
	leaf.setSize(left)

	sibling.setNextPageID(leaf.NextPageID())
	leaf.setNextPageID(sibling.pageID())

	err = t.insertIntoParent(c, leafFrame, sibling.KeyAt(0), siblingFrame.PageID())
	t.pool.UnpinPage(siblingFrame.PageID(), true)
	return err
}

// splitInternalAndInsertParent splits a full internal node, promoting the
// moved-up separator to the grandparent.
func (t *Tree) splitInternalAndInsertParent(c *crab, nodeFrame *buffer.Frame, node internalNode) error {
	siblingFrame, err := t.pool.NewPage()
	if err != nil {
		return err
	}
	sibling := InitInternal(siblingFrame.Data(), siblingFrame.PageID(), node.parentPageID(), t.internalMaxSize)

	total := node.size()
	left := total / 2
	middleKey := node.KeyAt(left)

	for i := left; i < total; i++ {
		childID := node.ValueAt(i)
		var key Key
		if i > left {
			key = node.KeyAt(i)
		}
		sibling.SetKeyAt(i-left, key)
		sibling.SetValueAt(i-left, childID)
		if err := t.reparent(childID, siblingFrame.PageID()); err != nil {
			t.pool.UnpinPage(siblingFrame.PageID(), true)
			return err
		}
	}
	sibling.setSize(total - left)
	node.setSize(left)

	err = t.insertIntoParent(c, nodeFrame, middleKey, siblingFrame.PageID())
	t.pool.UnpinPage(siblingFrame.PageID(), true)
	return err
}

// reparent updates childID's parent_page_id field and persists the change,
// per spec.md §4.4 "moved children must have their parent_page_id updated
// (persisted by re-fetching and dirtying each child via the buffer pool)".
func (t *Tree) reparent(childID, newParent util.PageID) error {
	f, err := t.pool.FetchPage(childID)
	if err != nil {
		return err
	}
	header{f.Data()}.setParentPageID(newParent)
	return t.pool.UnpinPage(childID, true)
}

// findParentFrame returns the crab-held frame immediately preceding
// oldChildFrame in the page set, or nil if oldChildFrame has no retained
// ancestor (meaning it must be the actual tree root).
func (t *Tree) findParentFrame(c *crab, oldChildFrame *buffer.Frame) *buffer.Frame {
	for i, f := range c.frames {
		if f == oldChildFrame {
			if i == 0 {
				return nil
			}
			return c.frames[i-1]
		}
	}
	return nil
}

// insertIntoParent implements spec.md §4.4's InsertIntoParent: create a new
// root if the split rose through the root, otherwise insert the separator
// after the old child's pointer in the parent, possibly cascading a further
// split upward.
func (t *Tree) insertIntoParent(c *crab, oldChildFrame *buffer.Frame, newKey Key, newChildID util.PageID) error {
	oldChildHdr := header{oldChildFrame.Data()}
	parentFrame := t.findParentFrame(c, oldChildFrame)

	if parentFrame == nil {
		// oldChildFrame was the root: build a fresh root with two children.
		newRootFrame, err := t.pool.NewPage()
		if err != nil {
			return err
		}
		newRoot := InitInternal(newRootFrame.Data(), newRootFrame.PageID(), util.InvalidPageID, t.internalMaxSize)
		newRoot.PopulateNewRoot(oldChildFrame.PageID(), newKey, newChildID)
		oldChildHdr.setParentPageID(newRootFrame.PageID())
		if err := t.reparent(newChildID, newRootFrame.PageID()); err != nil {
			t.pool.UnpinPage(newRootFrame.PageID(), true)
			return err
		}
		t.rootPageID = newRootFrame.PageID()
		if err := t.reg.setRoot(t.name, t.rootPageID); err != nil {
			t.pool.UnpinPage(newRootFrame.PageID(), true)
			return err
		}
		return t.pool.UnpinPage(newRootFrame.PageID(), true)
	}

	parent := internalNode{header{parentFrame.Data()}}
	newSize := parent.InsertNodeAfter(oldChildFrame.PageID(), newKey, newChildID)
	if newSize <= parent.maxSize() {
		return nil
	}
	return t.splitInternalAndInsertParent(c, parentFrame, parent)
}

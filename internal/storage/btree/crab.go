package btree

import (
	"latchdb/internal/storage/buffer"
	"latchdb/internal/util"
)

// safetyFunc reports whether a node, as currently sized, would remain safe
// (per spec.md §4.4) if the crabbing write operation in progress touched it.
// Evaluated against the node BEFORE the operation is applied, the way the
// original's IsSafe helpers do.
type safetyFunc func(h header) bool

func insertSafe(h header) bool {
	if h.isLeaf() {
		return h.size()+1 < h.maxSize()
	}
	return h.size() < h.maxSize()
}

func removeSafe(h header) bool {
	return h.size()-1 >= h.minSize()
}

// crab is the per-operation held-pages journal spec.md §4.4 describes: the
// page set (latched pages from the highest unsafe ancestor down to the
// current node) and the deleted set (pages scheduled for physical removal
// once the crab unwinds).
type crab struct {
	tree        *Tree
	write       bool
	rootLatched bool
	frames      []*buffer.Frame
	deleted     []util.PageID
}

// markDeleted schedules pid for DeletePage when the crab releases.
func (c *crab) markDeleted(pid util.PageID) {
	c.deleted = append(c.deleted, pid)
}

// latch/unlatch + pin/unpin a frame according to the crab's mode.
func (c *crab) latch(f *buffer.Frame) {
	if c.write {
		f.WLatch()
	} else {
		f.RLatch()
	}
}

func (c *crab) unlatch(f *buffer.Frame) {
	if c.write {
		f.WUnlatch()
	} else {
		f.RUnlatch()
	}
}

// dropAncestors releases every frame except the most recently appended one
// (and the root latch, if still held), the "child is safe, release all
// ancestor latches" step of the crabbing protocol.
func (c *crab) dropAncestors() {
	if len(c.frames) > 1 {
		for _, f := range c.frames[:len(c.frames)-1] {
			c.unlatch(f)
			c.tree.pool.UnpinPage(f.PageID(), false)
		}
		c.frames = c.frames[len(c.frames)-1:]
	}
	c.releaseRoot()
}

func (c *crab) releaseRoot() {
	if !c.rootLatched {
		return
	}
	if c.write {
		c.tree.rootLatch.Unlock()
	} else {
		c.tree.rootLatch.RUnlock()
	}
	c.rootLatched = false
}

// release implements clearLockedPages: unlatch/unpin every remaining frame
// in order (write crabs dirty every frame they still hold, including a safe
// ancestor the operation may have left unmodified, e.g. above a node whose
// underflow was fixed by redistribution), delete pages marked for deletion,
// then release the root latch.
func (c *crab) release() {
	for _, f := range c.frames {
		c.unlatch(f)
		pid := f.PageID()
		c.tree.pool.UnpinPage(pid, c.write)
	}
	c.frames = nil
	for _, pid := range c.deleted {
		c.tree.pool.DeletePage(pid)
	}
	c.deleted = nil
	c.releaseRoot()
}

// last returns the most recently appended frame (the current node on the
// crabbing path).
func (c *crab) last() *buffer.Frame {
	if len(c.frames) == 0 {
		return nil
	}
	return c.frames[len(c.frames)-1]
}

// descend walks from the root to the leaf containing key, applying the
// latch-crabbing protocol in read or write mode as write selects. safe is
// nil for reads (readers are
// always safe and drop their parent immediately after locking the child).
func (t *Tree) descend(key Key, write bool, safe safetyFunc) (*crab, error) {
	c := &crab{tree: t, write: write}
	if write {
		t.rootLatch.Lock()
	} else {
		t.rootLatch.RLock()
	}
	c.rootLatched = true

	if t.rootPageID == util.InvalidPageID {
		return c, nil
	}

	root, err := t.pool.FetchPage(t.rootPageID)
	if err != nil {
		c.release()
		return nil, err
	}
	c.latch(root)
	c.frames = append(c.frames, root)
	if !write || safe(header{root.Data()}) {
		c.dropAncestors()
	}

	cur := root
	for {
		h := header{cur.Data()}
		if h.isLeaf() {
			break
		}
		in := internalNode{h}
		childID := in.Lookup(key, t.cmp)
		child, err := t.pool.FetchPage(childID)
		if err != nil {
			c.release()
			return nil, err
		}
		c.latch(child)
		c.frames = append(c.frames, child)
		if !write || safe(header{child.Data()}) {
			c.dropAncestors()
		}
		cur = child
	}
	return c, nil
}

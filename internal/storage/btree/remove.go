package btree

import (
	"latchdb/internal/storage/buffer"
	"latchdb/internal/util"
)

// Remove deletes key if present. A no-op if key is absent.
func (t *Tree) Remove(key Key) error {
	if t.IsEmpty() {
		return nil
	}

	c, err := t.descend(key, true, removeSafe)
	if err != nil {
		return err
	}

	leafFrame := c.last()
	if leafFrame == nil {
		c.release()
		return nil
	}
	leaf := leafNode{header{leafFrame.Data()}}
	idx := leaf.KeyIndex(key, t.cmp)
	if idx >= leaf.size() || t.cmp(leaf.KeyAt(idx), key) != 0 {
		c.release()
		return nil
	}
	leaf.RemoveAt(idx)

	if err := t.coalesceOrRedistribute(c, leafFrame); err != nil {
		c.release()
		return err
	}
	c.release()
	return nil
}

// coalesceOrRedistribute implements spec.md §4.4's underflow handling: the
// root is handled separately via adjustRoot; any other node that dropped
// below min_size borrows from or merges with a sibling.
func (t *Tree) coalesceOrRedistribute(c *crab, nodeFrame *buffer.Frame) error {
	h := header{nodeFrame.Data()}
	if nodeFrame.PageID() == t.rootPageID {
		return t.adjustRoot(c, nodeFrame)
	}
	if h.size() >= h.minSize() {
		return nil
	}

	parentFrame := t.findParentFrame(c, nodeFrame)
	if parentFrame == nil {
		// Underflowing non-root node with no retained parent cannot
		// happen under the crabbing protocol: removeSafe guarantees any
		// node left in the page set kept its ancestor retained.
		return util.ErrKeyNotFound
	}
	parent := internalNode{header{parentFrame.Data()}}
	valueIndex := parent.ValueIndex(nodeFrame.PageID())

	var siblingID util.PageID
	siblingIsLeft := valueIndex > 0
	if siblingIsLeft {
		siblingID = parent.ValueAt(valueIndex - 1)
	} else {
		siblingID = parent.ValueAt(valueIndex + 1)
	}

	siblingFrame, err := t.pool.FetchPage(siblingID)
	if err != nil {
		return err
	}
	siblingFrame.WLatch()

	var mergeErr error
	if h.isLeaf() {
		node := leafNode{h}
		sibling := leafNode{header{siblingFrame.Data()}}
		if sibling.size()+node.size() < node.maxSize() {
			mergeErr = t.coalesceLeaves(c, parent, parentFrame, node, nodeFrame, sibling, siblingFrame, siblingIsLeft, valueIndex)
		} else {
			t.redistributeLeaves(parent, node, nodeFrame, sibling, siblingFrame, siblingIsLeft, valueIndex)
		}
	} else {
		node := internalNode{h}
		sibling := internalNode{header{siblingFrame.Data()}}
		if sibling.size()+node.size() <= node.maxSize() {
			mergeErr = t.coalesceInternals(c, parent, parentFrame, node, nodeFrame, sibling, siblingFrame, siblingIsLeft, valueIndex)
		} else {
			mergeErr = t.redistributeInternals(parent, node, nodeFrame, sibling, siblingFrame, siblingIsLeft, valueIndex)
		}
	}

	siblingFrame.WUnlatch()
	if err := t.pool.UnpinPage(siblingID, true); err != nil && mergeErr == nil {
		mergeErr = err
	}
	return mergeErr
}

// coalesceLeaves merges the right-hand member of the (node, sibling) pair
// into the left-hand member, splices the leaf chain, marks the right-hand
// page for deletion, and recurses a parent separator removal which may
// itself underflow.
func (t *Tree) coalesceLeaves(c *crab, parent internalNode, parentFrame *buffer.Frame, node leafNode, nodeFrame *buffer.Frame, sibling leafNode, siblingFrame *buffer.Frame, siblingIsLeft bool, valueIndex int) error {
	left, right := sibling, node
	_, rightFrame := siblingFrame, nodeFrame
	removeIndex := valueIndex
	if !siblingIsLeft {
		left, right = node, sibling
		_, rightFrame = nodeFrame, siblingFrame
		removeIndex = valueIndex + 1
	}

	for i := 0; i < right.size(); i++ {
		left.Insert(right.KeyAt(i), right.ValueAt(i), t.cmp)
	}
	left.setNextPageID(right.NextPageID())
	right.setSize(0)

	c.markDeleted(rightFrame.PageID())
	parent.RemoveAt(removeIndex)
	return t.coalesceOrRedistribute(c, parentFrame)
}

// coalesceInternals merges the right-hand member of the (node, sibling)
// pair into the left-hand member, folding in the parent's
// separator key as the new slot-0 key of the merged-in half, and reparents
// every moved child.
func (t *Tree) coalesceInternals(c *crab, parent internalNode, parentFrame *buffer.Frame, node internalNode, nodeFrame *buffer.Frame, sibling internalNode, siblingFrame *buffer.Frame, siblingIsLeft bool, valueIndex int) error {
	left, right := sibling, node
	leftFrame, rightFrame := siblingFrame, nodeFrame
	removeIndex := valueIndex
	middleKey := parent.KeyAt(valueIndex)
	if !siblingIsLeft {
		left, right = node, sibling
		leftFrame, rightFrame = nodeFrame, siblingFrame
		removeIndex = valueIndex + 1
		middleKey = parent.KeyAt(valueIndex + 1)
	}

	startIndex := left.size()
	right.SetKeyAt(0, middleKey)
	for i := 0; i < right.size(); i++ {
		left.SetKeyAt(startIndex+i, right.KeyAt(i))
		left.SetValueAt(startIndex+i, right.ValueAt(i))
		if err := t.reparent(right.ValueAt(i), leftFrame.PageID()); err != nil {
			return err
		}
	}
	left.setSize(startIndex + right.size())
	right.setSize(0)

	c.markDeleted(rightFrame.PageID())
	parent.RemoveAt(removeIndex)
	return t.coalesceOrRedistribute(c, parentFrame)
}

// redistributeLeaves borrows a single entry from the richer sibling,
// updating the parent's separator key to the new first key of the
// receiving node.
func (t *Tree) redistributeLeaves(parent internalNode, node leafNode, nodeFrame *buffer.Frame, sibling leafNode, siblingFrame *buffer.Frame, siblingIsLeft bool, valueIndex int) {
	if siblingIsLeft {
		last := sibling.size() - 1
		node.Insert(sibling.KeyAt(last), sibling.ValueAt(last), t.cmp)
		sibling.RemoveAt(last)
		parent.SetKeyAt(valueIndex, node.KeyAt(0))
		return
	}
	node.Insert(sibling.KeyAt(0), sibling.ValueAt(0), t.cmp)
	sibling.RemoveAt(0)
	parent.SetKeyAt(valueIndex+1, sibling.KeyAt(0))
}

// redistributeInternals borrows one child pointer from the richer sibling,
// reparenting the moved child and fixing up the parent's separator key.
func (t *Tree) redistributeInternals(parent internalNode, node internalNode, nodeFrame *buffer.Frame, sibling internalNode, siblingFrame *buffer.Frame, siblingIsLeft bool, valueIndex int) error {
	if siblingIsLeft {
		last := sibling.size() - 1
		movedChild := sibling.ValueAt(last)
		separator := parent.KeyAt(valueIndex)

		for i := node.size(); i > 0; i-- {
			node.SetKeyAt(i, node.KeyAt(i-1))
			node.SetValueAt(i, node.ValueAt(i-1))
		}
		node.SetKeyAt(1, separator)
		node.SetValueAt(0, movedChild)
		node.setSize(node.size() + 1)

		sibling.setSize(last)
		parent.SetKeyAt(valueIndex, sibling.KeyAt(last))
		return t.reparent(movedChild, nodeFrame.PageID())
	}

	movedChild := sibling.ValueAt(0)
	separator := parent.KeyAt(valueIndex + 1)

	node.SetKeyAt(node.size(), separator)
	node.SetValueAt(node.size(), movedChild)
	node.setSize(node.size() + 1)

	for i := 0; i < sibling.size()-1; i++ {
		sibling.SetKeyAt(i, sibling.KeyAt(i+1))
		sibling.SetValueAt(i, sibling.ValueAt(i+1))
	}
	sibling.setSize(sibling.size() - 1)
	parent.SetKeyAt(valueIndex+1, sibling.KeyAt(0))
	return t.reparent(movedChild, nodeFrame.PageID())
}

// adjustRoot implements spec.md §4.4's root-underflow handling.
func (t *Tree) adjustRoot(c *crab, rootFrame *buffer.Frame) error {
	h := header{rootFrame.Data()}
	if h.isLeaf() {
		if h.size() == 0 {
			c.markDeleted(rootFrame.PageID())
			t.rootPageID = util.InvalidPageID
			return t.reg.setRoot(t.name, util.InvalidPageID)
		}
		return nil
	}
	if h.size() == 1 {
		in := internalNode{h}
		onlyChild := in.RemoveAndReturnOnlyChild()
		c.markDeleted(rootFrame.PageID())
		t.rootPageID = onlyChild
		if err := t.reparent(onlyChild, util.InvalidPageID); err != nil {
			return err
		}
		return t.reg.setRoot(t.name, onlyChild)
	}
	return nil
}

package btree

import (
	"encoding/binary"

	"latchdb/internal/util"
)

// pageKind is the header's type discriminant (spec.md §9: "tagged
// representation... avoid class hierarchies").
type pageKind uint8

const (
	kindInvalid pageKind = iota
	kindInternal
	kindLeaf
)

// Header layout per spec.md §6: type(1B) lsn(4B) size(4B) max_size(4B)
// parent_page_id(4B) page_id(4B); leaves additionally carry next_page_id(4B).
const (
	offKind       = 0
	offLSN        = 1
	offSize       = 5
	offMaxSize    = 9
	offParentPage = 13
	offPageID     = 17
	internalHdrSz = 21
	offNextPage   = 21 // leaf only
	leafHdrSz     = 25
)

const (
	internalSlotSz = KeySize + 4 // key + child page id
	leafSlotSz     = KeySize + 8 // key + RID (page id + slot id)
)

// header is a thin accessor over a node page's fixed header fields. Both
// leafNode and internalNode embed it.
type header struct {
	buf []byte
}

func (h header) kind() pageKind  { return pageKind(h.buf[offKind]) }
func (h header) setKind(k pageKind) { h.buf[offKind] = byte(k) }

func (h header) lsn() util.LSN { return util.LSN(binary.BigEndian.Uint32(h.buf[offLSN:])) }
func (h header) setLSN(l util.LSN) {
	binary.BigEndian.PutUint32(h.buf[offLSN:], uint32(l))
}

func (h header) size() int { return int(int32(binary.BigEndian.Uint32(h.buf[offSize:]))) }
func (h header) setSize(n int) {
	binary.BigEndian.PutUint32(h.buf[offSize:], uint32(int32(n)))
}

func (h header) maxSize() int { return int(int32(binary.BigEndian.Uint32(h.buf[offMaxSize:]))) }
func (h header) setMaxSize(n int) {
	binary.BigEndian.PutUint32(h.buf[offMaxSize:], uint32(int32(n)))
}

func (h header) parentPageID() util.PageID {
	return util.PageID(int32(binary.BigEndian.Uint32(h.buf[offParentPage:])))
}
func (h header) setParentPageID(pid util.PageID) {
	binary.BigEndian.PutUint32(h.buf[offParentPage:], uint32(pid))
}

func (h header) pageID() util.PageID {
	return util.PageID(int32(binary.BigEndian.Uint32(h.buf[offPageID:])))
}
func (h header) setPageID(pid util.PageID) {
	binary.BigEndian.PutUint32(h.buf[offPageID:], uint32(pid))
}

// isLeaf reports whether the node is a leaf page.
func (h header) isLeaf() bool { return h.kind() == kindLeaf }

// minSize mirrors spec.md §3: max_size/2, clamped to >=2 for internal pages.
func (h header) minSize() int {
	m := h.maxSize() / 2
	if h.kind() == kindInternal && m < 2 {
		m = 2
	}
	return m
}

// internalNode is an internal page: an ordered array of (key, child_page_id)
// pairs. Slot 0's key is a dummy separator, matching the original's
// "first key should always be invalid" convention.
type internalNode struct {
	header
}

func newInternalNode(buf []byte) internalNode { return internalNode{header{buf}} }

// InitInternal formats buf as a fresh internal node.
func InitInternal(buf []byte, pageID, parentID util.PageID, maxSize int) internalNode {
	n := newInternalNode(buf)
	n.setKind(kindInternal)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setParentPageID(parentID)
	n.setPageID(pageID)
	return n
}

func (n internalNode) slotOffset(i int) int { return internalHdrSz + i*internalSlotSz }

func (n internalNode) KeyAt(i int) Key {
	var k Key
	copy(k[:], n.buf[n.slotOffset(i):n.slotOffset(i)+KeySize])
	return k
}

func (n internalNode) SetKeyAt(i int, k Key) {
	copy(n.buf[n.slotOffset(i):n.slotOffset(i)+KeySize], k[:])
}

func (n internalNode) ValueAt(i int) util.PageID {
	off := n.slotOffset(i) + KeySize
	return util.PageID(int32(binary.BigEndian.Uint32(n.buf[off:])))
}

func (n internalNode) SetValueAt(i int, v util.PageID) {
	off := n.slotOffset(i) + KeySize
	binary.BigEndian.PutUint32(n.buf[off:], uint32(v))
}

// ValueIndex returns the slot index whose value equals v.
func (n internalNode) ValueIndex(v util.PageID) int {
	for i := 0; i < n.size(); i++ {
		if n.ValueAt(i) == v {
			return i
		}
	}
	return -1
}

// Lookup finds the largest i such that KeyAt(i) <= key (i>=1 participate;
// slot 0 is the dummy) and returns ValueAt(i), per spec.md §4.4.
func (n internalNode) Lookup(key Key, cmp Comparator) util.PageID {
	lo, hi := 0, n.size()-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if cmp(n.KeyAt(mid), key) > 0 {
			hi = mid - 1
		} else {
			lo = mid
		}
	}
	return n.ValueAt(lo)
}

// PopulateNewRoot sets up a brand new root with exactly two children, used
// when a split propagates all the way past the old root.
func (n internalNode) PopulateNewRoot(oldValue util.PageID, newKey Key, newValue util.PageID) {
	n.SetValueAt(0, oldValue)
	n.SetKeyAt(1, newKey)
	n.SetValueAt(1, newValue)
	n.setSize(2)
}

// InsertNodeAfter inserts (newKey, newValue) immediately after the slot
// currently holding oldValue, shifting the tail right.
func (n internalNode) InsertNodeAfter(oldValue util.PageID, newKey Key, newValue util.PageID) int {
	insertAt := n.ValueIndex(oldValue) + 1
	sz := n.size() + 1
	n.setSize(sz)
	for i := sz - 1; i > insertAt; i-- {
		n.SetKeyAt(i, n.KeyAt(i-1))
		n.SetValueAt(i, n.ValueAt(i-1))
	}
	n.SetKeyAt(insertAt, newKey)
	n.SetValueAt(insertAt, newValue)
	return sz
}

// RemoveAt deletes slot index, shifting the tail left.
func (n internalNode) RemoveAt(index int) {
	sz := n.size()
	for i := index; i < sz-1; i++ {
		n.SetKeyAt(i, n.KeyAt(i+1))
		n.SetValueAt(i, n.ValueAt(i+1))
	}
	n.setSize(sz - 1)
}

// RemoveAndReturnOnlyChild is used only by AdjustRoot when a size-1 internal
// root's sole child is promoted.
func (n internalNode) RemoveAndReturnOnlyChild() util.PageID {
	v := n.ValueAt(0)
	n.setSize(0)
	return v
}

// leafNode is a leaf page: an ordered array of (key, RID) pairs plus a
// next-leaf pointer threading all leaves into a single key-ordered list.
type leafNode struct {
	header
}

func newLeafNode(buf []byte) leafNode { return leafNode{header{buf}} }

// InitLeaf formats buf as a fresh leaf node.
func InitLeaf(buf []byte, pageID, parentID util.PageID, maxSize int) leafNode {
	n := newLeafNode(buf)
	n.setKind(kindLeaf)
	n.setSize(0)
	n.setMaxSize(maxSize)
	n.setParentPageID(parentID)
	n.setPageID(pageID)
	n.setNextPageID(util.InvalidPageID)
	return n
}

func (n leafNode) NextPageID() util.PageID {
	return util.PageID(int32(binary.BigEndian.Uint32(n.buf[offNextPage:])))
}

func (n leafNode) setNextPageID(pid util.PageID) {
	binary.BigEndian.PutUint32(n.buf[offNextPage:], uint32(pid))
}

func (n leafNode) slotOffset(i int) int { return leafHdrSz + i*leafSlotSz }

func (n leafNode) KeyAt(i int) Key {
	var k Key
	copy(k[:], n.buf[n.slotOffset(i):n.slotOffset(i)+KeySize])
	return k
}

func (n leafNode) setKeyAt(i int, k Key) {
	copy(n.buf[n.slotOffset(i):n.slotOffset(i)+KeySize], k[:])
}

func (n leafNode) ValueAt(i int) util.RID {
	off := n.slotOffset(i) + KeySize
	return util.RID{
		PageID: util.PageID(int32(binary.BigEndian.Uint32(n.buf[off:]))),
		SlotID: binary.BigEndian.Uint32(n.buf[off+4:]),
	}
}

func (n leafNode) setValueAt(i int, v util.RID) {
	off := n.slotOffset(i) + KeySize
	binary.BigEndian.PutUint32(n.buf[off:], uint32(v.PageID))
	binary.BigEndian.PutUint32(n.buf[off+4:], v.SlotID)
}

// KeyIndex returns the first slot index whose key is >= key (binary
// search), used both for lookup-miss detection and insert positioning.
func (n leafNode) KeyIndex(key Key, cmp Comparator) int {
	lo, hi := 0, n.size()
	for lo < hi {
		mid := (lo + hi) / 2
		if cmp(n.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Insert places (key, rid) in sorted position, shifting the tail right.
// Caller has already verified key is not a duplicate.
func (n leafNode) Insert(key Key, rid util.RID, cmp Comparator) int {
	at := n.KeyIndex(key, cmp)
	sz := n.size() + 1
	n.setSize(sz)
	for i := sz - 1; i > at; i-- {
		n.setKeyAt(i, n.KeyAt(i-1))
		n.setValueAt(i, n.ValueAt(i-1))
	}
	n.setKeyAt(at, key)
	n.setValueAt(at, rid)
	return sz
}

// RemoveAt deletes slot index, shifting the tail left.
func (n leafNode) RemoveAt(index int) {
	sz := n.size()
	for i := index; i < sz-1; i++ {
		n.setKeyAt(i, n.KeyAt(i+1))
		n.setValueAt(i, n.ValueAt(i+1))
	}
	n.setSize(sz - 1)
}

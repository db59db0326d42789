package txn

import (
	"encoding/binary"
	"sync"

	"latchdb/internal/storage/buffer"
	"latchdb/internal/util"
)

// Heap page layout, modeled on the original's TablePage: a header followed
// by a slot array growing forward from the header, with tuple bytes packed
// from the end of the page growing backward. A slot's size field of
// tombstoneSize marks a deleted tuple; its bytes stay in place (no
// compaction) so the slot id keeps identifying the same RID forever, per
// spec.md's "Non-goals... secondary-index maintenance across aborts" scope.
const (
	heapHdrSize  = 12 // next_page_id(4) + num_tuples(4) + free_space_offset(4)
	heapSlotSize = 8  // tuple_offset(4) + tuple_size(4)

	tombstoneSize = ^uint32(0)
)

type heapPage struct {
	buf []byte
}

func (p heapPage) nextPageID() util.PageID {
	return util.PageID(int32(binary.BigEndian.Uint32(p.buf[0:4])))
}
func (p heapPage) setNextPageID(pid util.PageID) {
	binary.BigEndian.PutUint32(p.buf[0:4], uint32(pid))
}

func (p heapPage) numTuples() int { return int(binary.BigEndian.Uint32(p.buf[4:8])) }
func (p heapPage) setNumTuples(n int) {
	binary.BigEndian.PutUint32(p.buf[4:8], uint32(n))
}

func (p heapPage) freeSpaceOffset() int { return int(binary.BigEndian.Uint32(p.buf[8:12])) }
func (p heapPage) setFreeSpaceOffset(off int) {
	binary.BigEndian.PutUint32(p.buf[8:12], uint32(off))
}

func (p heapPage) init() {
	p.setNextPageID(util.InvalidPageID)
	p.setNumTuples(0)
	p.setFreeSpaceOffset(util.PageSize)
}

func (p heapPage) slotOffset(slot int) int { return heapHdrSize + slot*heapSlotSize }

func (p heapPage) slotTupleOffset(slot int) int {
	return int(binary.BigEndian.Uint32(p.buf[p.slotOffset(slot):]))
}
func (p heapPage) slotTupleSize(slot int) uint32 {
	return binary.BigEndian.Uint32(p.buf[p.slotOffset(slot)+4:])
}
func (p heapPage) setSlot(slot, tupleOffset int, size uint32) {
	off := p.slotOffset(slot)
	binary.BigEndian.PutUint32(p.buf[off:], uint32(tupleOffset))
	binary.BigEndian.PutUint32(p.buf[off+4:], size)
}

// freeSpace reports bytes available between the slot array and the packed
// tuple region.
func (p heapPage) freeSpace() int {
	return p.freeSpaceOffset() - heapHdrSize - p.numTuples()*heapSlotSize
}

// insertTuple appends data as a new slot if there is room, returning the
// new slot id.
func (p heapPage) insertTuple(data []byte) (int, bool) {
	need := len(data) + heapSlotSize
	if p.freeSpace() < need {
		return 0, false
	}
	newOffset := p.freeSpaceOffset() - len(data)
	copy(p.buf[newOffset:newOffset+len(data)], data)
	slot := p.numTuples()
	p.setSlot(slot, newOffset, uint32(len(data)))
	p.setFreeSpaceOffset(newOffset)
	p.setNumTuples(slot + 1)
	return slot, true
}

// updateTupleInPlace overwrites a slot's bytes at its current offset when
// the new encoding is no larger than the slot's recorded size. A tombstoned
// slot records tombstoneSize, so it always accepts the data and is revived
// at its old offset; Manager.undoWrite uses this to restore a deleted row.
func (p heapPage) updateTupleInPlace(slot int, data []byte) bool {
	if uint32(len(data)) > p.slotTupleSize(slot) {
		return false
	}
	off := p.slotTupleOffset(slot)
	copy(p.buf[off:off+len(data)], data)
	p.setSlot(slot, off, uint32(len(data)))
	return true
}

func (p heapPage) tupleBytes(slot int) []byte {
	size := p.slotTupleSize(slot)
	if size == tombstoneSize {
		return nil
	}
	off := p.slotTupleOffset(slot)
	return p.buf[off : off+int(size)]
}

func (p heapPage) isDeleted(slot int) bool { return p.slotTupleSize(slot) == tombstoneSize }

func (p heapPage) markDeleted(slot int) {
	off := p.slotTupleOffset(slot)
	p.setSlot(slot, off, tombstoneSize)
}

// TableHeap stores a table's rows as a chain of heap pages threaded by
// next_page_id, each holding protobuf-wire-framed tuples in slots addressed
// by RID. A single mutex serializes structural operations (page chaining);
// concurrent readers/writers of the same RID are instead coordinated by the
// lock manager one layer up, per spec.md §4.6/§4.7.
type TableHeap struct {
	mu          sync.Mutex
	pool        *buffer.Pool
	firstPageID util.PageID
	lastPageID  util.PageID
}

// NewTableHeap allocates the heap's first page.
func NewTableHeap(pool *buffer.Pool) (*TableHeap, error) {
	f, err := pool.NewPage()
	if err != nil {
		return nil, err
	}
	heapPage{f.Data()}.init()
	pid := f.PageID()
	if err := pool.UnpinPage(pid, true); err != nil {
		return nil, err
	}
	return &TableHeap{pool: pool, firstPageID: pid, lastPageID: pid}, nil
}

// OpenTableHeap binds a TableHeap to an already-allocated first page,
// walking its next-pointer chain to find the current last page.
func OpenTableHeap(pool *buffer.Pool, firstPageID util.PageID) (*TableHeap, error) {
	h := &TableHeap{pool: pool, firstPageID: firstPageID, lastPageID: firstPageID}
	pid := firstPageID
	for {
		f, err := pool.FetchPage(pid)
		if err != nil {
			return nil, err
		}
		next := heapPage{f.Data()}.nextPageID()
		pool.UnpinPage(pid, false)
		if next == util.InvalidPageID {
			break
		}
		pid = next
	}
	h.lastPageID = pid
	return h, nil
}

// FirstPageID exposes the heap's starting page for scans.
func (h *TableHeap) FirstPageID() util.PageID { return h.firstPageID }

// InsertTuple appends a row, allocating a fresh page if the current last
// page has no room.
func (h *TableHeap) InsertTuple(t Tuple) (util.RID, error) {
	data := EncodeTuple(t)
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := h.pool.FetchPage(h.lastPageID)
	if err != nil {
		return util.RID{}, err
	}
	page := heapPage{f.Data()}
	if slot, ok := page.insertTuple(data); ok {
		h.pool.UnpinPage(h.lastPageID, true)
		return util.RID{PageID: h.lastPageID, SlotID: uint32(slot)}, nil
	}
	h.pool.UnpinPage(h.lastPageID, false)

	newFrame, err := h.pool.NewPage()
	if err != nil {
		return util.RID{}, err
	}
	heapPage{newFrame.Data()}.init()
	newPid := newFrame.PageID()

	f, err = h.pool.FetchPage(h.lastPageID)
	if err != nil {
		h.pool.UnpinPage(newPid, true)
		return util.RID{}, err
	}
	heapPage{f.Data()}.setNextPageID(newPid)
	h.pool.UnpinPage(h.lastPageID, true)

	newPage := heapPage{newFrame.Data()}
	slot, ok := newPage.insertTuple(data)
	h.pool.UnpinPage(newPid, true)
	if !ok {
		return util.RID{}, util.ErrOutOfMemory
	}
	h.lastPageID = newPid
	return util.RID{PageID: newPid, SlotID: uint32(slot)}, nil
}

// GetTuple reads the tuple at rid. Returns util.ErrNotFound if the slot was
// deleted.
func (h *TableHeap) GetTuple(rid util.RID) (Tuple, error) {
	f, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return Tuple{}, err
	}
	defer h.pool.UnpinPage(rid.PageID, false)

	page := heapPage{f.Data()}
	if page.isDeleted(int(rid.SlotID)) {
		return Tuple{}, util.ErrNotFound
	}
	return DecodeTuple(page.tupleBytes(int(rid.SlotID)))
}

// UpdateTuple overwrites rid's row in place when the new encoding fits the
// slot's existing allocation; otherwise it tombstones rid and appends the
// new row elsewhere, returning the row's (possibly new) RID.
func (h *TableHeap) UpdateTuple(rid util.RID, t Tuple) (util.RID, error) {
	data := EncodeTuple(t)

	f, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return util.RID{}, err
	}
	page := heapPage{f.Data()}
	if page.updateTupleInPlace(int(rid.SlotID), data) {
		h.pool.UnpinPage(rid.PageID, true)
		return rid, nil
	}
	page.markDeleted(int(rid.SlotID))
	h.pool.UnpinPage(rid.PageID, true)

	return h.InsertTuple(t)
}

// DeleteTuple tombstones rid's slot.
func (h *TableHeap) DeleteTuple(rid util.RID) error {
	f, err := h.pool.FetchPage(rid.PageID)
	if err != nil {
		return err
	}
	defer h.pool.UnpinPage(rid.PageID, true)
	heapPage{f.Data()}.markDeleted(int(rid.SlotID))
	return nil
}

// HeapIterator walks every live tuple in a TableHeap in RID order, for
// SeqScanExecutor.
type HeapIterator struct {
	heap   *TableHeap
	pageID util.PageID
	slot   int
}

// Iterator returns a fresh cursor positioned before the first tuple.
func (h *TableHeap) Iterator() *HeapIterator {
	return &HeapIterator{heap: h, pageID: h.firstPageID, slot: -1}
}

// Next advances to the next live tuple, skipping tombstones, and reports
// whether one was found.
func (it *HeapIterator) Next() (util.RID, Tuple, bool, error) {
	for it.pageID != util.InvalidPageID {
		f, err := it.heap.pool.FetchPage(it.pageID)
		if err != nil {
			return util.RID{}, Tuple{}, false, err
		}
		page := heapPage{f.Data()}
		it.slot++
		for it.slot < page.numTuples() {
			if !page.isDeleted(it.slot) {
				tup, err := DecodeTuple(page.tupleBytes(it.slot))
				rid := util.RID{PageID: it.pageID, SlotID: uint32(it.slot)}
				it.heap.pool.UnpinPage(it.pageID, false)
				return rid, tup, err == nil, err
			}
			it.slot++
		}
		next := page.nextPageID()
		it.heap.pool.UnpinPage(it.pageID, false)
		it.pageID = next
		it.slot = -1
	}
	return util.RID{}, Tuple{}, false, nil
}

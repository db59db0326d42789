package buffer

import (
	"sync"
	"sync/atomic"

	"latchdb/internal/storage/page"
	"latchdb/internal/util"
)

// Frame is a slot 0..N-1 in the pool. It permanently owns a Page buffer;
// the page id living in the frame changes across the frame's lifetime as
// pages are fetched, evicted and rebound. Pin count, dirty flag and the
// content latch live here rather than on Page itself (spec.md §4.1).
type Frame struct {
	page *page.Page

	pinCount int32
	dirty    int32 // 0/1, accessed atomically alongside pinCount for Replacer visibility

	// latch guards the frame's page content. It is independent of the
	// buffer pool's own mutex: an operator can hold a page latch across a
	// blocking operation without blocking the pool's metadata operations.
	latch sync.RWMutex
}

func newFrame() *Frame {
	return &Frame{page: page.New(util.InvalidPageID)}
}

// PageID reports the id currently bound to the frame.
func (f *Frame) PageID() util.PageID { return f.page.ID() }

// Data exposes the frame's backing bytes for in-place reads/writes.
func (f *Frame) Data() []byte { return f.page.Data() }

// PinCount reports the current pin count.
func (f *Frame) PinCount() int32 { return atomic.LoadInt32(&f.pinCount) }

// IsDirty reports whether the frame has unflushed writes.
func (f *Frame) IsDirty() bool { return atomic.LoadInt32(&f.dirty) == 1 }

// SetDirty ORs the dirty bit, matching spec.md's Unpin semantics ("OR dirty
// bit into page").
func (f *Frame) SetDirty(dirty bool) {
	if dirty {
		atomic.StoreInt32(&f.dirty, 1)
	}
}

func (f *Frame) clearDirty() { atomic.StoreInt32(&f.dirty, 0) }

func (f *Frame) pin() int32  { return atomic.AddInt32(&f.pinCount, 1) }
func (f *Frame) unpin() int32 {
	return atomic.AddInt32(&f.pinCount, -1)
}

// reset rebinds the frame to id, zeroing memory and pin/dirty state. Caller
// must already hold the pool's mutex and know the frame has no pins.
func (f *Frame) reset(id util.PageID) {
	f.page.ResetMemory()
	f.page.SetID(id)
	atomic.StoreInt32(&f.pinCount, 0)
	atomic.StoreInt32(&f.dirty, 0)
}

// RLatch/RUnlatch/WLatch/WUnlatch implement the page latch used by the
// B+Tree's crabbing protocol (spec.md §4.4) and by executors holding a page
// across a read. Independent of the Pool mutex per the resource table in
// spec.md §5.
func (f *Frame) RLatch()   { f.latch.RLock() }
func (f *Frame) RUnlatch() { f.latch.RUnlock() }
func (f *Frame) WLatch()   { f.latch.Lock() }
func (f *Frame) WUnlatch() { f.latch.Unlock() }

// Package buffer implements the bounded in-memory buffer pool (C2, C3):
// pages are mapped into a fixed array of frames, evicted via an LRU
// replacer, and exposed to callers as pinned *Frame handles that must be
// unpinned when done.
package buffer

import (
	"sync"

	"latchdb/internal/storage/disk"
	"latchdb/internal/util"
)

// Pool maps page ids to frames and evicts via a Replacer when the pool is
// full. All operations are serialized by a single pool-wide mutex, exactly
// as spec.md §4.3 mandates — page content latches (Frame.latch) are a
// separate, finer-grained mechanism layered on top.
type Pool struct {
	mu sync.Mutex

	frames    []*Frame
	pageTable map[util.PageID]int // page id -> frame index
	freeList  []int
	replacer  Replacer
	disk      *disk.Manager
}

// NewPool allocates poolSize frames backed by disk.
func NewPool(poolSize int, d *disk.Manager) *Pool {
	if poolSize <= 0 {
		panic(util.ErrInvalidPoolSize)
	}
	p := &Pool{
		frames:    make([]*Frame, poolSize),
		pageTable: make(map[util.PageID]int, poolSize),
		freeList:  make([]int, poolSize),
		replacer:  NewLRUReplacer(poolSize),
		disk:      d,
	}
	for i := 0; i < poolSize; i++ {
		p.frames[i] = newFrame()
		p.freeList[i] = i
	}
	return p
}

// victim picks a frame to bind a page into: free list first, then the
// replacer. If the chosen frame is dirty, it is flushed before reuse and
// its old mapping erased from the page table. Caller holds p.mu.
func (p *Pool) victim() (int, error) {
	if n := len(p.freeList); n > 0 {
		idx := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		return idx, nil
	}

	idx, ok := p.replacer.Victim()
	if !ok {
		return 0, util.ErrNoFreeFrame
	}
	f := p.frames[idx]
	if f.IsDirty() {
		if err := p.disk.WritePage(f.PageID(), f.page); err != nil {
			return 0, err
		}
		f.clearDirty()
	}
	delete(p.pageTable, f.PageID())
	return idx, nil
}

// FetchPage pins and returns the frame holding pid, reading it from disk if
// it is not already resident. Returns util.ErrNoFreeFrame if the pool is
// exhausted (all frames pinned, free list empty) — a recoverable error the
// caller (typically a B+Tree split) must propagate, never panic on.
func (p *Pool) FetchPage(pid util.PageID) (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if idx, ok := p.pageTable[pid]; ok {
		f := p.frames[idx]
		f.pin()
		p.replacer.Pin(idx)
		return f, nil
	}

	idx, err := p.victim()
	if err != nil {
		return nil, err
	}

	f := p.frames[idx]
	f.reset(pid)
	if err := p.disk.ReadPage(pid, f.page); err != nil {
		// Leave the frame free rather than binding it to a page we
		// failed to read.
		p.freeList = append(p.freeList, idx)
		return nil, err
	}
	f.pin()
	p.pageTable[pid] = idx
	p.replacer.Pin(idx)
	return f, nil
}

// NewPage allocates a fresh page id from disk, binds it to a frame with
// pin count 1, and returns the frame. Returns util.ErrNoFreeFrame on
// exhaustion.
func (p *Pool) NewPage() (*Frame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, err := p.victim()
	if err != nil {
		return nil, err
	}

	pid := p.disk.AllocatePage()
	f := p.frames[idx]
	f.reset(pid)
	f.pin()
	p.pageTable[pid] = idx
	p.replacer.Pin(idx)
	return f, nil
}

// UnpinPage decrements pid's pin count, ORing in the dirty flag first. When
// the pin count reaches zero the frame becomes eligible for eviction again.
func (p *Pool) UnpinPage(pid util.PageID, isDirty bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pid]
	if !ok {
		return util.ErrPageNotFound
	}
	f := p.frames[idx]
	f.SetDirty(isDirty)
	if f.PinCount() == 0 {
		return util.ErrPageNotPinned
	}
	if f.unpin() == 0 {
		p.replacer.Unpin(idx)
	}
	return nil
}

// DeletePage deallocates pid on disk and returns its frame to the free
// list. If pid is not resident it only deallocates pid on disk and
// succeeds. Fails, without deallocating, if pid is resident but still
// pinned: someone is using the page.
func (p *Pool) DeletePage(pid util.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pid]
	if !ok {
		p.disk.DeallocatePage(pid)
		return nil
	}
	f := p.frames[idx]
	if f.PinCount() != 0 {
		return util.ErrPagePinned
	}
	p.disk.DeallocatePage(pid)
	p.replacer.Pin(idx) // ensure it is not sitting in the replacer list
	delete(p.pageTable, pid)
	f.reset(util.InvalidPageID)
	p.freeList = append(p.freeList, idx)
	return nil
}

// FlushPage writes pid's current bytes to disk and clears its dirty flag.
func (p *Pool) FlushPage(pid util.PageID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	idx, ok := p.pageTable[pid]
	if !ok {
		return util.ErrPageNotFound
	}
	f := p.frames[idx]
	if err := p.disk.WritePage(pid, f.page); err != nil {
		return err
	}
	f.clearDirty()
	return nil
}

// FlushAllPages writes every resident page's bytes to disk.
func (p *Pool) FlushAllPages() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for pid, idx := range p.pageTable {
		f := p.frames[idx]
		if err := p.disk.WritePage(pid, f.page); err != nil {
			return err
		}
		f.clearDirty()
	}
	return nil
}

// Size returns the number of frames in the pool, for tests.
func (p *Pool) Size() int { return len(p.frames) }

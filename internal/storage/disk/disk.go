// Package disk is the disk-manager collaborator spec.md §6 treats as
// external: raw page read/write and page id allocation, nothing more. No
// log manager, no recovery, no checksums.
//
// The teacher's internal/storage/file used a Windows-only syscall mmap path
// (internal/storage/file/db_windows.go) that never compiles off Windows and
// left ReadPage/WritePage calling a Serialize that returned nil. This
// package replaces that with a portable os.File + ReadAt/WriteAt pager,
// grounded in ShubhamNegi4-DaemonDB's bplustree/disk_pager.go and
// yamoyamoto-GarakutaDB's storage/disk_manager.go, which both use plain
// file I/O at a page_id*PageSize offset.
package disk

import (
	"fmt"
	"os"
	"sync"

	"latchdb/internal/storage/page"
	"latchdb/internal/util"
)

// Manager is a single-file, page-addressed disk manager.
type Manager struct {
	mu        sync.Mutex
	file      *os.File
	nextPage  util.PageID
	freeList  []util.PageID
	closed    bool
}

// Open creates or opens path as the backing file for a Manager. Page id 0
// is reserved as the B+Tree header page (spec.md §6) and is pre-allocated.
func Open(path string) (*Manager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("open disk file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat disk file: %w", err)
	}

	m := &Manager{file: f}
	numPages := info.Size() / util.PageSize
	if numPages == 0 {
		// Reserve page 0 for the B+Tree header page.
		if err := m.writeAt(0, make([]byte, util.PageSize)); err != nil {
			f.Close()
			return nil, err
		}
		m.nextPage = 1
	} else {
		m.nextPage = util.PageID(numPages)
	}
	return m, nil
}

// ReadPage reads PageSize bytes at pid into p's data buffer.
func (m *Manager) ReadPage(pid util.PageID, p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return util.ErrDiskClosed
	}
	if pid < 0 {
		return util.ErrInvalidPageID
	}
	offset := int64(pid) * util.PageSize
	n, err := m.file.ReadAt(p.Data(), offset)
	if err != nil && n == 0 {
		return fmt.Errorf("read page %d: %w", pid, err)
	}
	p.SetID(pid)
	return nil
}

// WritePage flushes p's current bytes to pid's slot on disk.
func (m *Manager) WritePage(pid util.PageID, p *page.Page) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return util.ErrDiskClosed
	}
	return m.writeAt(pid, p.Data())
}

func (m *Manager) writeAt(pid util.PageID, data []byte) error {
	offset := int64(pid) * util.PageSize
	if _, err := m.file.WriteAt(data, offset); err != nil {
		return fmt.Errorf("write page %d: %w", pid, err)
	}
	return nil
}

// AllocatePage reserves a fresh page id, reusing a deallocated one if any
// are free.
func (m *Manager) AllocatePage() util.PageID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if n := len(m.freeList); n > 0 {
		pid := m.freeList[n-1]
		m.freeList = m.freeList[:n-1]
		return pid
	}
	pid := m.nextPage
	m.nextPage++
	return pid
}

// DeallocatePage marks pid as reusable. This is a pedagogical no-op on the
// underlying file (the bytes are left in place, matching spec.md's
// "Non-goals: ... secondary-index maintenance across aborts" posture of not
// implementing real space reclamation) but makes the id available again.
func (m *Manager) DeallocatePage(pid util.PageID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.freeList = append(m.freeList, pid)
}

// Sync flushes the OS file buffers.
func (m *Manager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	return m.file.Sync()
}

// Close syncs and closes the backing file. Idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if err := m.file.Sync(); err != nil {
		m.file.Close()
		return err
	}
	return m.file.Close()
}

// Package page defines the raw fixed-size page buffer (C1). A Page is dumb
// storage: the page id it carries plus PageSize bytes. Pin counts, dirty
// flags, and the page latch belong one layer up in a buffer frame — a Page
// on its own does not know whether it is resident, pinned, or latched.
package page

import "latchdb/internal/util"

// Page is a 4KiB byte buffer identified by a stable page id.
type Page struct {
	id   util.PageID
	data [util.PageSize]byte
}

// New returns a zeroed page bound to id.
func New(id util.PageID) *Page {
	return &Page{id: id}
}

// ID returns the page's identity. util.InvalidPageID means unbound.
func (p *Page) ID() util.PageID { return p.id }

// SetID rebinds the page to a new identity, used when a frame is recycled
// for a different page id.
func (p *Page) SetID(id util.PageID) { p.id = id }

// Data exposes the full backing buffer for in-place reads/writes by higher
// layers (the B+Tree node codecs, tuple encoders, disk I/O).
func (p *Page) Data() []byte { return p.data[:] }

// ResetMemory zero-fills the buffer, used before a frame is rebound to a
// fresh or newly-allocated page.
func (p *Page) ResetMemory() {
	for i := range p.data {
		p.data[i] = 0
	}
}

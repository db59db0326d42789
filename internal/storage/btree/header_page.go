package btree

import (
	"encoding/binary"

	"latchdb/internal/storage/buffer"
	"latchdb/internal/util"
)

// HeaderPageID is the well-known page holding the (index_name -> root_id)
// registry, per spec.md §6 ("A distinguished header page at page id 0
// stores the sequence of (index_name_string, root_page_id) records").
const HeaderPageID util.PageID = 0

// registry mirrors the header page's records in memory, refreshed from and
// flushed to page 0 through the pool like any other page.
type registry struct {
	pool *buffer.Pool
}

func newRegistry(pool *buffer.Pool) *registry {
	return &registry{pool: pool}
}

// load reads the current (name -> root) mapping from the header page.
func (r *registry) load() (map[string]util.PageID, error) {
	f, err := r.pool.FetchPage(HeaderPageID)
	if err != nil {
		return nil, err
	}
	defer r.pool.UnpinPage(HeaderPageID, false)

	buf := f.Data()
	out := make(map[string]util.PageID)
	count := binary.BigEndian.Uint32(buf[0:4])
	off := 4
	for i := uint32(0); i < count; i++ {
		nameLen := int(binary.BigEndian.Uint16(buf[off : off+2]))
		off += 2
		name := string(buf[off : off+nameLen])
		off += nameLen
		root := util.PageID(int32(binary.BigEndian.Uint32(buf[off : off+4])))
		off += 4
		out[name] = root
	}
	return out, nil
}

// save overwrites the header page with the full registry contents.
func (r *registry) save(entries map[string]util.PageID) error {
	f, err := r.pool.FetchPage(HeaderPageID)
	if err != nil {
		return err
	}
	defer r.pool.UnpinPage(HeaderPageID, true)

	buf := f.Data()
	for i := range buf {
		buf[i] = 0
	}
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(entries)))
	off := 4
	for name, root := range entries {
		binary.BigEndian.PutUint16(buf[off:off+2], uint16(len(name)))
		off += 2
		copy(buf[off:off+len(name)], name)
		off += len(name)
		binary.BigEndian.PutUint32(buf[off:off+4], uint32(root))
		off += 4
	}
	return nil
}

// setRoot persists indexName's current root, read-modify-write style.
func (r *registry) setRoot(indexName string, root util.PageID) error {
	entries, err := r.load()
	if err != nil {
		return err
	}
	entries[indexName] = root
	return r.save(entries)
}

// getRoot looks up indexName's persisted root, returning InvalidPageID if
// the index has no entry yet (fresh tree).
func (r *registry) getRoot(indexName string) (util.PageID, error) {
	entries, err := r.load()
	if err != nil {
		return util.InvalidPageID, err
	}
	root, ok := entries[indexName]
	if !ok {
		return util.InvalidPageID, nil
	}
	return root, nil
}

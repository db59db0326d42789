// Package latchdb wires the storage and transaction core together into a
// single process-lifetime Database value, in explicit dependency order
// (disk -> pool -> lock manager -> catalog -> transaction manager), per
// spec.md §9's "construct them in explicit dependency order inside a
// Database value" design note.
package latchdb

import (
	"latchdb/internal/storage/buffer"
	"latchdb/internal/storage/disk"
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// Database owns every process-lifetime collaborator. Executors receive a
// *exec.Context built from these fields rather than reaching for
// module-level singletons.
type Database struct {
	Disk    *disk.Manager
	Pool    *buffer.Pool
	LockMgr *txn.LockManager
	Catalog *txn.Catalog
	Manager *txn.Manager
}

// Open constructs a Database backed by opts.DataFile, ready for use.
func Open(opts util.Options) (*Database, error) {
	d, err := disk.Open(opts.DataFile)
	if err != nil {
		return nil, err
	}
	pool := buffer.NewPool(opts.PoolSize, d)
	lm := txn.NewLockManager(opts.CycleDetectionInterval)
	cat := txn.NewCatalog(pool)
	mgr := txn.NewManager(lm, cat)
	return &Database{Disk: d, Pool: pool, LockMgr: lm, Catalog: cat, Manager: mgr}, nil
}

// Close stops the deadlock detector and closes the backing file.
func (db *Database) Close() error {
	db.LockMgr.Stop()
	return db.Disk.Close()
}

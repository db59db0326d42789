// Package exec implements the Volcano-model pull-based executor operators
// (C7) over the storage and transaction core: every operator exposes
// Init/Next and is driven by a single caller goroutine per query, acquiring
// locks and journaling writes through the shared txn.Manager/Catalog as it
// pulls tuples.
package exec

import (
	"encoding/binary"

	"latchdb/internal/storage/btree"
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// Executor is the Volcano pull interface every operator implements. Init is
// idempotent per scan; Next reports false at EOF.
type Executor interface {
	Init() error
	Next(tuple *txn.Tuple, rid *util.RID) (bool, error)
}

// Context bundles the collaborators every operator needs: the running
// transaction (for lock acquisition and write journaling), the lock
// manager, and the catalog for resolving table/index handles by name.
type Context struct {
	Txn     *txn.Transaction
	LockMgr *txn.LockManager
	Catalog *txn.Catalog
}

// acquireRead acquires S on rid before a read, per spec.md §4.7, skipping
// the call if the transaction already holds S or X on rid.
func (c *Context) acquireRead(rid util.RID) error {
	if c.Txn.HoldsShared(rid) || c.Txn.HoldsExclusive(rid) {
		return nil
	}
	return c.LockMgr.LockShared(c.Txn, rid)
}

// releaseIfReadCommitted drops a just-acquired S lock immediately after the
// predicate is evaluated, under READ_COMMITTED only (spec.md §4.7).
func (c *Context) releaseIfReadCommitted(rid util.RID) error {
	if c.Txn.Isolation() != util.ReadCommitted {
		return nil
	}
	if !c.Txn.HoldsShared(rid) {
		return nil
	}
	return c.LockMgr.Unlock(c.Txn, rid)
}

// acquireWrite acquires X on rid, upgrading from S if already held, per
// spec.md §4.7.
func (c *Context) acquireWrite(rid util.RID) error {
	if c.Txn.HoldsExclusive(rid) {
		return nil
	}
	if c.Txn.HoldsShared(rid) {
		return c.LockMgr.LockUpgrade(c.Txn, rid)
	}
	return c.LockMgr.LockExclusive(c.Txn, rid)
}

// columnKey interprets an indexed column as an 8-byte big-endian int64 and
// packs it as a btree.Key. This core has no schema layer, so a fixed-width
// integer column convention stands in for arbitrary index expressions.
func columnKey(col []byte) btree.Key {
	n := len(col)
	if n > 8 {
		n = 8
	}
	var buf [8]byte
	copy(buf[8-n:], col)
	return btree.Int64Key(int64(binary.BigEndian.Uint64(buf[:])))
}

package txn

import (
	"sync"

	"latchdb/internal/storage/btree"
	"latchdb/internal/util"
)

// Manager owns the transaction id sequence and implements Begin/Commit/
// Abort (spec.md §4.6). It holds a Catalog so Abort can re-resolve table
// and index handles by name while replaying the write journal in reverse.
type Manager struct {
	mu  sync.Mutex
	lm  *LockManager
	cat *Catalog

	nextID util.TransactionID
}

// NewManager returns a Manager coordinating locks through lm and
// resolving table/index handles through cat.
func NewManager(lm *LockManager, cat *Catalog) *Manager {
	return &Manager{lm: lm, cat: cat, nextID: 1}
}

// Begin starts a new transaction at isolation level level.
func (m *Manager) Begin(level util.IsolationLevel) *Transaction {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.mu.Unlock()
	return newTransaction(id, level)
}

// Commit releases every lock txn holds and marks it COMMITTED. Per
// spec.md §4.6, no undo is applied.
func (m *Manager) Commit(txn *Transaction) error {
	m.releaseAllLocks(txn)
	txn.setState(Committed)
	return nil
}

// Abort walks txn's write journal in reverse, undoing each mutation
// against the table heaps and indexes (inserts -> delete, deletes ->
// reinsert, updates -> revert tuple + swap index entries), re-resolving
// handles through the catalog, then releases locks and marks ABORTED.
func (m *Manager) Abort(txn *Transaction) error {
	writes := txn.WriteSet()
	indexWrites := txn.IndexWriteSet()

	for i := len(indexWrites) - 1; i >= 0; i-- {
		if err := m.undoIndexWrite(indexWrites[i]); err != nil {
			return err
		}
	}
	for i := len(writes) - 1; i >= 0; i-- {
		if err := m.undoWrite(writes[i]); err != nil {
			return err
		}
	}

	m.releaseAllLocks(txn)
	txn.setState(Aborted)
	return nil
}

func (m *Manager) undoWrite(rec WriteRecord) error {
	info, err := m.cat.GetTable(rec.Table)
	if err != nil {
		return err
	}
	switch rec.Kind {
	case WriteInsert:
		return info.Heap.DeleteTuple(rec.RID)
	case WriteDelete:
		tup, err := DecodeTuple(rec.OldTuple)
		if err != nil {
			return err
		}
		_, err = info.Heap.UpdateTuple(rec.RID, tup)
		return err
	case WriteUpdate:
		tup, err := DecodeTuple(rec.OldTuple)
		if err != nil {
			return err
		}
		_, err = info.Heap.UpdateTuple(rec.RID, tup)
		return err
	}
	return nil
}

func (m *Manager) undoIndexWrite(rec IndexWriteRecord) error {
	info, err := m.cat.GetIndex(rec.IndexName)
	if err != nil {
		return err
	}
	var key btree.Key
	switch rec.Kind {
	case WriteInsert:
		copy(key[:], rec.NewKey)
		return info.Tree.Remove(key)
	case WriteDelete:
		copy(key[:], rec.OldKey)
		_, err := info.Tree.Insert(key, rec.RID)
		if err != nil {
			return err
		}
		return nil
	case WriteUpdate:
		var newKey btree.Key
		copy(newKey[:], rec.NewKey)
		if err := info.Tree.Remove(newKey); err != nil {
			return err
		}
		copy(key[:], rec.OldKey)
		_, err := info.Tree.Insert(key, rec.RID)
		return err
	}
	return nil
}

func (m *Manager) releaseAllLocks(txn *Transaction) {
	for _, rid := range txn.HeldSharedLocks() {
		m.lm.Unlock(txn, rid)
	}
	for _, rid := range txn.HeldExclusiveLocks() {
		m.lm.Unlock(txn, rid)
	}
}

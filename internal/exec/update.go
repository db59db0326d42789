package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// UpdateExecutor pulls (tuple, rid) pairs from child, applies updateFn to
// each, and writes the result back in place. It acquires X on the RID
// (upgrading from S if already held), journals the pre-image, and
// maintains every index by deleting the old key and inserting the new one
// — never two deletes, per spec.md §9's documented bug fix. An index entry
// is re-pointed even when its key is unchanged if the heap update moved the
// row to a new RID (TableHeap.UpdateTuple tombstones and reinserts when the
// new encoding no longer fits the old slot). Resolves the table before its
// indexes (same §9 fix as InsertExecutor).
type UpdateExecutor struct {
	ctx       *Context
	tableName string
	child     Executor
	updateFn  func(txn.Tuple) txn.Tuple

	info    *txn.TableInfo
	indexes []*txn.IndexInfo
}

// NewUpdateExecutor applies updateFn to every row child produces from
// tableName.
func NewUpdateExecutor(ctx *Context, tableName string, child Executor, updateFn func(txn.Tuple) txn.Tuple) *UpdateExecutor {
	return &UpdateExecutor{ctx: ctx, tableName: tableName, child: child, updateFn: updateFn}
}

func (e *UpdateExecutor) Init() error {
	info, err := e.ctx.Catalog.GetTable(e.tableName)
	if err != nil {
		return err
	}
	e.info = info
	e.indexes = e.ctx.Catalog.GetTableIndexes(e.tableName)
	return e.child.Init()
}

func (e *UpdateExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	var oldTuple txn.Tuple
	var r util.RID
	ok, err := e.child.Next(&oldTuple, &r)
	if err != nil || !ok {
		return false, err
	}

	if err := e.ctx.acquireWrite(r); err != nil {
		return false, err
	}

	newTuple := e.updateFn(oldTuple)
	newRID, err := e.info.Heap.UpdateTuple(r, newTuple)
	if err != nil {
		return false, err
	}
	e.ctx.Txn.AppendWrite(txn.WriteRecord{
		Kind:     txn.WriteUpdate,
		Table:    e.tableName,
		RID:      newRID,
		OldTuple: txn.EncodeTuple(oldTuple),
		NewTuple: txn.EncodeTuple(newTuple),
	})

	for _, idx := range e.indexes {
		oldKey := columnKey(oldTuple.Values[idx.KeyColumn])
		newKey := columnKey(newTuple.Values[idx.KeyColumn])
		if oldKey == newKey && newRID == r {
			continue
		}
		if err := idx.Tree.Remove(oldKey); err != nil {
			return false, err
		}
		if _, err := idx.Tree.Insert(newKey, newRID); err != nil {
			return false, err
		}
		e.ctx.Txn.AppendIndexWrite(txn.IndexWriteRecord{
			Kind:      txn.WriteUpdate,
			IndexName: idx.Name,
			OldKey:    oldKey[:],
			NewKey:    newKey[:],
			RID:       newRID,
		})
	}

	*tuple = newTuple
	*rid = newRID
	return true, nil
}

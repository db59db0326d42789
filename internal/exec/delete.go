package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// DeleteExecutor pulls (tuple, rid) pairs from child, tombstones each row,
// and removes its entry from every index on the table — one Remove per
// index, never a double-delete, per spec.md §9's documented bug fix.
type DeleteExecutor struct {
	ctx       *Context
	tableName string
	child     Executor

	info    *txn.TableInfo
	indexes []*txn.IndexInfo
}

// NewDeleteExecutor deletes every row child produces from tableName.
func NewDeleteExecutor(ctx *Context, tableName string, child Executor) *DeleteExecutor {
	return &DeleteExecutor{ctx: ctx, tableName: tableName, child: child}
}

func (e *DeleteExecutor) Init() error {
	info, err := e.ctx.Catalog.GetTable(e.tableName)
	if err != nil {
		return err
	}
	e.info = info
	e.indexes = e.ctx.Catalog.GetTableIndexes(e.tableName)
	return e.child.Init()
}

func (e *DeleteExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	var oldTuple txn.Tuple
	var r util.RID
	ok, err := e.child.Next(&oldTuple, &r)
	if err != nil || !ok {
		return false, err
	}

	if err := e.ctx.acquireWrite(r); err != nil {
		return false, err
	}

	if err := e.info.Heap.DeleteTuple(r); err != nil {
		return false, err
	}
	e.ctx.Txn.AppendWrite(txn.WriteRecord{
		Kind:     txn.WriteDelete,
		Table:    e.tableName,
		RID:      r,
		OldTuple: txn.EncodeTuple(oldTuple),
	})

	for _, idx := range e.indexes {
		oldKey := columnKey(oldTuple.Values[idx.KeyColumn])
		if err := idx.Tree.Remove(oldKey); err != nil {
			return false, err
		}
		e.ctx.Txn.AppendIndexWrite(txn.IndexWriteRecord{
			Kind:      txn.WriteDelete,
			IndexName: idx.Name,
			OldKey:    oldKey[:],
			RID:       r,
		})
	}

	*tuple = oldTuple
	*rid = r
	return true, nil
}

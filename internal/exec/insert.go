package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// InsertExecutor pulls tuples from child and appends each to tableName's
// heap, acquiring X on the new RID, journaling the write, and maintaining
// every index registered on the table (spec.md §4.7). Resolves the table
// before its indexes, per spec.md §9's documented init-order bug fix.
type InsertExecutor struct {
	ctx       *Context
	tableName string
	child     Executor

	info    *txn.TableInfo
	indexes []*txn.IndexInfo

	inserted int
}

// NewInsertExecutor inserts every tuple child produces into tableName.
func NewInsertExecutor(ctx *Context, tableName string, child Executor) *InsertExecutor {
	return &InsertExecutor{ctx: ctx, tableName: tableName, child: child}
}

func (e *InsertExecutor) Init() error {
	info, err := e.ctx.Catalog.GetTable(e.tableName)
	if err != nil {
		return err
	}
	e.info = info
	e.indexes = e.ctx.Catalog.GetTableIndexes(e.tableName)
	e.inserted = 0
	return e.child.Init()
}

// Next inserts the next child tuple and returns it along with its new RID;
// EOF once the child is exhausted.
func (e *InsertExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	var childTuple txn.Tuple
	var discard util.RID
	ok, err := e.child.Next(&childTuple, &discard)
	if err != nil || !ok {
		return false, err
	}

	r, err := e.info.Heap.InsertTuple(childTuple)
	if err != nil {
		return false, err
	}
	if err := e.ctx.acquireWrite(r); err != nil {
		return false, err
	}
	e.ctx.Txn.AppendWrite(txn.WriteRecord{
		Kind:     txn.WriteInsert,
		Table:    e.tableName,
		RID:      r,
		NewTuple: txn.EncodeTuple(childTuple),
	})

	for _, idx := range e.indexes {
		key := columnKey(childTuple.Values[idx.KeyColumn])
		if _, err := idx.Tree.Insert(key, r); err != nil {
			return false, err
		}
		e.ctx.Txn.AppendIndexWrite(txn.IndexWriteRecord{
			Kind:      txn.WriteInsert,
			IndexName: idx.Name,
			NewKey:    key[:],
			RID:       r,
		})
	}

	e.inserted++
	*tuple = childTuple
	*rid = r
	return true, nil
}

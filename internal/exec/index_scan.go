package exec

import (
	"latchdb/internal/storage/btree"
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// IndexScanExecutor walks an index in key order, fetching each matching
// tuple from its table heap and acquiring S per visited RID, mirroring
// SeqScanExecutor's lock policy but ordered by index key instead of RID.
type IndexScanExecutor struct {
	ctx       *Context
	indexName string
	startKey  *btree.Key // nil means "from the beginning"

	tableInfo *txn.TableInfo
	it        *btree.Iterator
}

// NewIndexScanExecutor scans indexName from its smallest key (or from
// startKey, inclusive, if non-nil) and reads the matching rows from table.
func NewIndexScanExecutor(ctx *Context, indexName string, startKey *btree.Key) *IndexScanExecutor {
	return &IndexScanExecutor{ctx: ctx, indexName: indexName, startKey: startKey}
}

func (e *IndexScanExecutor) Init() error {
	idx, err := e.ctx.Catalog.GetIndex(e.indexName)
	if err != nil {
		return err
	}
	table, err := e.ctx.Catalog.GetTable(idx.TableName)
	if err != nil {
		return err
	}
	e.tableInfo = table

	var it *btree.Iterator
	if e.startKey != nil {
		it, err = idx.Tree.BeginAt(*e.startKey)
	} else {
		it, err = idx.Tree.Begin()
	}
	if err != nil {
		return err
	}
	e.it = it
	return nil
}

func (e *IndexScanExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	if e.it.End() {
		return false, nil
	}
	r, err := e.it.Value()
	if err != nil {
		return false, err
	}
	if err := e.ctx.acquireRead(r); err != nil {
		return false, err
	}
	tup, err := e.tableInfo.Heap.GetTuple(r)
	if err != nil {
		return false, err
	}
	if err := e.ctx.releaseIfReadCommitted(r); err != nil {
		return false, err
	}
	if err := e.it.Next(); err != nil {
		return false, err
	}
	*tuple = tup
	*rid = r
	return true, nil
}

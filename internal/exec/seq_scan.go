package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// SeqScanExecutor walks every live tuple of a table heap in RID order,
// acquiring S locks per visited RID under the policy in spec.md §4.7.
type SeqScanExecutor struct {
	ctx       *Context
	tableName string

	info *txn.TableInfo
	it   *txn.HeapIterator
}

// NewSeqScanExecutor scans tableName under ctx's transaction.
func NewSeqScanExecutor(ctx *Context, tableName string) *SeqScanExecutor {
	return &SeqScanExecutor{ctx: ctx, tableName: tableName}
}

func (e *SeqScanExecutor) Init() error {
	info, err := e.ctx.Catalog.GetTable(e.tableName)
	if err != nil {
		return err
	}
	e.info = info
	e.it = info.Heap.Iterator()
	return nil
}

func (e *SeqScanExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	r, tup, ok, err := e.it.Next()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := e.ctx.acquireRead(r); err != nil {
		return false, err
	}
	if err := e.ctx.releaseIfReadCommitted(r); err != nil {
		return false, err
	}
	*tuple = tup
	*rid = r
	return true, nil
}

package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// LimitExecutor drops the first offset rows from child, then emits at most
// limit subsequent rows (spec.md §4.7). Unlike the original, it does not
// politely drain the remainder of child once limit is reached — unneeded
// under a pull model where the caller simply stops calling Next.
type LimitExecutor struct {
	child  Executor
	offset int
	limit  int

	skipped int
	emitted int
}

// NewLimitExecutor wraps child, skipping offset rows and capping output at
// limit.
func NewLimitExecutor(child Executor, offset, limit int) *LimitExecutor {
	return &LimitExecutor{child: child, offset: offset, limit: limit}
}

func (e *LimitExecutor) Init() error {
	e.skipped = 0
	e.emitted = 0
	return e.child.Init()
}

func (e *LimitExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	if e.emitted >= e.limit {
		return false, nil
	}
	for e.skipped < e.offset {
		var discard txn.Tuple
		var discardRID util.RID
		ok, err := e.child.Next(&discard, &discardRID)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
		e.skipped++
	}
	ok, err := e.child.Next(tuple, rid)
	if err != nil || !ok {
		return false, err
	}
	e.emitted++
	return true, nil
}

package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// NestedLoopJoinExecutor pulls one outer tuple from left, then re-scans
// right for each outer tuple, emitting the concatenation of left and right
// columns wherever predicate holds (spec.md §4.7). Init is idempotent per
// scan, so right is simply re-initialized for every outer tuple.
type NestedLoopJoinExecutor struct {
	left, right Executor
	predicate   func(left, right txn.Tuple) bool

	leftTuple txn.Tuple
	leftValid bool
}

// NewNestedLoopJoinExecutor joins left and right, keeping pairs where
// predicate returns true.
func NewNestedLoopJoinExecutor(left, right Executor, predicate func(left, right txn.Tuple) bool) *NestedLoopJoinExecutor {
	return &NestedLoopJoinExecutor{left: left, right: right, predicate: predicate}
}

func (e *NestedLoopJoinExecutor) Init() error {
	if err := e.left.Init(); err != nil {
		return err
	}
	return e.advanceLeft()
}

func (e *NestedLoopJoinExecutor) advanceLeft() error {
	var discard util.RID
	ok, err := e.left.Next(&e.leftTuple, &discard)
	if err != nil {
		return err
	}
	e.leftValid = ok
	if !ok {
		return nil
	}
	return e.right.Init()
}

func (e *NestedLoopJoinExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	for e.leftValid {
		var rightTuple txn.Tuple
		var rightRID util.RID
		ok, err := e.right.Next(&rightTuple, &rightRID)
		if err != nil {
			return false, err
		}
		if !ok {
			if err := e.advanceLeft(); err != nil {
				return false, err
			}
			continue
		}
		if !e.predicate(e.leftTuple, rightTuple) {
			continue
		}
		*tuple = txn.Tuple{Values: append(append([][]byte{}, e.leftTuple.Values...), rightTuple.Values...)}
		*rid = rightRID
		return true, nil
	}
	return false, nil
}

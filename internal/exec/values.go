package exec

import (
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// ValuesExecutor emits a fixed, literal list of tuples. It is the Volcano
// leaf that feeds InsertExecutor for "insert literal rows" queries, in
// place of a VALUES clause this core has no parser to produce.
type ValuesExecutor struct {
	rows []txn.Tuple
	pos  int
}

// NewValuesExecutor returns an executor that emits rows in order.
func NewValuesExecutor(rows []txn.Tuple) *ValuesExecutor {
	return &ValuesExecutor{rows: rows}
}

func (e *ValuesExecutor) Init() error {
	e.pos = 0
	return nil
}

func (e *ValuesExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	if e.pos >= len(e.rows) {
		return false, nil
	}
	*tuple = e.rows[e.pos]
	*rid = util.RID{}
	e.pos++
	return true, nil
}

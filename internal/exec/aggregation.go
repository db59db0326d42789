package exec

import (
	"encoding/binary"

	"latchdb/internal/txn"
	"latchdb/internal/util"
)

// AggKind selects the combining function an AggregateExpr applies.
type AggKind int

const (
	AggCount AggKind = iota
	AggSum
	AggMin
	AggMax
)

// AggregateExpr names one aggregate column: which input column to read and
// how to combine it across a group.
type AggregateExpr struct {
	Kind   AggKind
	Column int
}

type aggState struct {
	groupKey []byte
	groupBy  txn.Tuple
	counts   []int64
	values   []int64
	seen     []bool
}

// AggregationExecutor drains child on Init, building a hash table keyed by
// the group-by tuple and combining aggregate state per row; Next walks the
// table, evaluates having, and projects (group-by columns ++ aggregate
// results), per spec.md §4.7.
type AggregationExecutor struct {
	child      Executor
	groupByCol []int
	aggs       []AggregateExpr
	having     func(groupBy txn.Tuple, aggs []int64) bool

	groups []*aggState
	pos    int
}

// NewAggregationExecutor groups child's rows by groupByCol, computes aggs
// per group, and keeps only groups for which having returns true.
func NewAggregationExecutor(child Executor, groupByCol []int, aggs []AggregateExpr, having func(txn.Tuple, []int64) bool) *AggregationExecutor {
	return &AggregationExecutor{child: child, groupByCol: groupByCol, aggs: aggs, having: having}
}

func (e *AggregationExecutor) Init() error {
	if err := e.child.Init(); err != nil {
		return err
	}
	byKey := make(map[string]*aggState)
	e.groups = nil

	for {
		var tuple txn.Tuple
		var rid util.RID
		ok, err := e.child.Next(&tuple, &rid)
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		groupBy := txn.Tuple{}
		for _, c := range e.groupByCol {
			groupBy.Values = append(groupBy.Values, tuple.Values[c])
		}
		key := string(txn.EncodeTuple(groupBy))

		st, ok := byKey[key]
		if !ok {
			st = &aggState{
				groupKey: []byte(key),
				groupBy:  groupBy,
				counts:   make([]int64, len(e.aggs)),
				values:   make([]int64, len(e.aggs)),
				seen:     make([]bool, len(e.aggs)),
			}
			byKey[key] = st
			e.groups = append(e.groups, st)
		}
		for i, agg := range e.aggs {
			v := columnInt64(tuple.Values[agg.Column])
			st.counts[i]++
			switch agg.Kind {
			case AggCount:
				// counts[i] already incremented; nothing else to combine.
			case AggSum:
				st.values[i] += v
			case AggMin:
				if !st.seen[i] || v < st.values[i] {
					st.values[i] = v
				}
			case AggMax:
				if !st.seen[i] || v > st.values[i] {
					st.values[i] = v
				}
			}
			st.seen[i] = true
		}
	}
	e.pos = 0
	return nil
}

func (e *AggregationExecutor) Next(tuple *txn.Tuple, rid *util.RID) (bool, error) {
	for e.pos < len(e.groups) {
		st := e.groups[e.pos]
		e.pos++

		results := make([]int64, len(e.aggs))
		for i, agg := range e.aggs {
			if agg.Kind == AggCount {
				results[i] = st.counts[i]
			} else {
				results[i] = st.values[i]
			}
		}
		if e.having != nil && !e.having(st.groupBy, results) {
			continue
		}

		out := txn.Tuple{Values: append([][]byte{}, st.groupBy.Values...)}
		for _, r := range results {
			out.Values = append(out.Values, int64Bytes(r))
		}
		*tuple = out
		*rid = util.RID{}
		return true, nil
	}
	return false, nil
}

func columnInt64(col []byte) int64 {
	n := len(col)
	if n > 8 {
		n = 8
	}
	var buf [8]byte
	copy(buf[8-n:], col)
	return int64(binary.BigEndian.Uint64(buf[:]))
}

func int64Bytes(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v))
	return buf
}

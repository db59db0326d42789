package exec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"latchdb/internal/storage/btree"
	"latchdb/internal/storage/buffer"
	"latchdb/internal/storage/disk"
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

type testDB struct {
	pool *buffer.Pool
	lm   *txn.LockManager
	cat  *txn.Catalog
	mgr  *txn.Manager
}

func newTestDB(t *testing.T) *testDB {
	path, cleanup := util.CreateTempFile(t)
	t.Cleanup(cleanup)
	d, err := disk.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })

	pool := buffer.NewPool(32, d)
	lm := txn.NewLockManager(50 * time.Millisecond)
	t.Cleanup(lm.Stop)
	cat := txn.NewCatalog(pool)
	mgr := txn.NewManager(lm, cat)
	return &testDB{pool: pool, lm: lm, cat: cat, mgr: mgr}
}

func row(id int64) txn.Tuple {
	return txn.Tuple{Values: [][]byte{int64Bytes(id)}}
}

func TestInsertThenSeqScanSeesRows(t *testing.T) {
	db := newTestDB(t)
	_, err := db.cat.CreateTable("widgets")
	require.NoError(t, err)
	_, err = db.cat.CreateIndex("widgets_pk", "widgets", 0, btree.DefaultComparator, 4, 4)
	require.NoError(t, err)

	t1 := db.mgr.Begin(util.RepeatableRead)
	ctx := &Context{Txn: t1, LockMgr: db.lm, Catalog: db.cat}

	values := NewValuesExecutor([]txn.Tuple{row(1), row(2), row(3)})
	ins := NewInsertExecutor(ctx, "widgets", values)
	require.NoError(t, ins.Init())
	count := 0
	for {
		var tup txn.Tuple
		var rid util.RID
		ok, err := ins.Next(&tup, &rid)
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 3, count)
	require.NoError(t, db.mgr.Commit(t1))

	t2 := db.mgr.Begin(util.RepeatableRead)
	ctx2 := &Context{Txn: t2, LockMgr: db.lm, Catalog: db.cat}
	scan := NewSeqScanExecutor(ctx2, "widgets")
	require.NoError(t, scan.Init())
	seen := 0
	for {
		var tup txn.Tuple
		var rid util.RID
		ok, err := scan.Next(&tup, &rid)
		require.NoError(t, err)
		if !ok {
			break
		}
		seen++
	}
	require.Equal(t, 3, seen)
	require.NoError(t, db.mgr.Commit(t2))
}

func TestAbortUndoesInsert(t *testing.T) {
	db := newTestDB(t)
	_, err := db.cat.CreateTable("widgets")
	require.NoError(t, err)

	t1 := db.mgr.Begin(util.RepeatableRead)
	ctx := &Context{Txn: t1, LockMgr: db.lm, Catalog: db.cat}
	ins := NewInsertExecutor(ctx, "widgets", NewValuesExecutor([]txn.Tuple{row(42)}))
	require.NoError(t, ins.Init())
	var tup txn.Tuple
	var rid util.RID
	ok, err := ins.Next(&tup, &rid)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, db.mgr.Abort(t1))

	t2 := db.mgr.Begin(util.RepeatableRead)
	ctx2 := &Context{Txn: t2, LockMgr: db.lm, Catalog: db.cat}
	scan := NewSeqScanExecutor(ctx2, "widgets")
	require.NoError(t, scan.Init())
	var t2Tup txn.Tuple
	var t2RID util.RID
	ok, err = scan.Next(&t2Tup, &t2RID)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, db.mgr.Commit(t2))
}

func TestLimitExecutorCapsOutput(t *testing.T) {
	values := NewValuesExecutor([]txn.Tuple{row(1), row(2), row(3), row(4), row(5)})
	lim := NewLimitExecutor(values, 1, 2)
	require.NoError(t, lim.Init())

	var got []int64
	for {
		var tup txn.Tuple
		var rid util.RID
		ok, err := lim.Next(&tup, &rid)
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, columnInt64(tup.Values[0]))
	}
	require.Equal(t, []int64{2, 3}, got)
}

func TestAggregationCountAndSum(t *testing.T) {
	rows := []txn.Tuple{
		{Values: [][]byte{int64Bytes(1), int64Bytes(10)}},
		{Values: [][]byte{int64Bytes(1), int64Bytes(20)}},
		{Values: [][]byte{int64Bytes(2), int64Bytes(5)}},
	}
	agg := NewAggregationExecutor(
		NewValuesExecutor(rows),
		[]int{0},
		[]AggregateExpr{{Kind: AggCount, Column: 1}, {Kind: AggSum, Column: 1}},
		nil,
	)
	require.NoError(t, agg.Init())

	results := map[int64][2]int64{}
	for {
		var tup txn.Tuple
		var rid util.RID
		ok, err := agg.Next(&tup, &rid)
		require.NoError(t, err)
		if !ok {
			break
		}
		group := columnInt64(tup.Values[0])
		results[group] = [2]int64{columnInt64(tup.Values[1]), columnInt64(tup.Values[2])}
	}
	require.Equal(t, [2]int64{2, 30}, results[1])
	require.Equal(t, [2]int64{1, 5}, results[2])
}

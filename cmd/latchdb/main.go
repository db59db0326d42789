package main

import (
	"fmt"
	"os"

	"latchdb/internal/exec"
	"latchdb/internal/latchdb"
	"latchdb/internal/storage/btree"
	"latchdb/internal/storage/buffer"
	"latchdb/internal/txn"
	"latchdb/internal/util"
)

func main() {
	runLRUScenario()
	runTreeScenario()

	opts := util.DefaultOptions()
	f, err := os.CreateTemp("", "latchdb-*.dat")
	must(err)
	opts.DataFile = f.Name()
	f.Close()
	defer os.Remove(opts.DataFile)

	db, err := latchdb.Open(opts)
	must(err)
	defer db.Close()

	runIsolationScenario(db)
	runExecutorScenario(db)
}

func must(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "latchdb smoke test failed:", err)
		os.Exit(1)
	}
}

// runLRUScenario reproduces spec scenario S1.
func runLRUScenario() {
	r := buffer.NewLRUReplacer(3)
	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)
	v, _ := r.Victim()
	fmt.Printf("S1: first victim = %d (want 1)\n", v)
	r.Unpin(1)
	var got []int
	for i := 0; i < 3; i++ {
		v, ok := r.Victim()
		if !ok {
			break
		}
		got = append(got, v)
	}
	fmt.Printf("S1: remaining victims = %v (want [2 3 1])\n", got)
}

// runTreeScenario reproduces spec scenario S3 against an isolated pool.
func runTreeScenario() {
	path, err := os.CreateTemp("", "latchdb-tree-*.dat")
	must(err)
	defer os.Remove(path.Name())
	path.Close()

	opts := util.DefaultOptions()
	opts.DataFile = path.Name()
	db, err := latchdb.Open(opts)
	must(err)
	defer db.Close()

	tree, err := btree.Open("s3", db.Pool, btree.DefaultComparator, 3, 3)
	must(err)
	for _, k := range []int64{5, 9, 1, 7, 3, 2, 6, 8} {
		_, err := tree.Insert(btree.Int64Key(k), util.RID{PageID: util.PageID(k)})
		must(err)
	}
	fmt.Printf("S3: in-order = %v\n", collectKeys(tree))

	must(tree.Remove(btree.Int64Key(3)))
	must(tree.Remove(btree.Int64Key(6)))
	fmt.Printf("S3: after removing 3,6 = %v\n", collectKeys(tree))

	for _, k := range []int64{1, 2, 5, 7, 8, 9} {
		must(tree.Remove(btree.Int64Key(k)))
	}
	fmt.Printf("S3: empty after removing all = %v\n", tree.IsEmpty())
}

func collectKeys(tree *btree.Tree) []int64 {
	it, err := tree.Begin()
	must(err)
	var out []int64
	for !it.End() {
		k, err := it.Key()
		must(err)
		out = append(out, k.Int64())
		must(it.Next())
	}
	return out
}

// runIsolationScenario reproduces spec scenario S6.
func runIsolationScenario(db *latchdb.Database) {
	t := db.Manager.Begin(util.ReadUncommitted)
	err := db.LockMgr.LockShared(t, util.RID{PageID: 1, SlotID: 0})
	fmt.Printf("S6: READ_UNCOMMITTED LockShared error = %v (want %v)\n", err, util.ErrLockOnReadUncommitted)
	fmt.Printf("S6: txn state after = %v (want ABORTED)\n", t.State())
}

// runExecutorScenario exercises insert + seq scan end to end through the
// Volcano operators.
func runExecutorScenario(db *latchdb.Database) {
	_, err := db.Catalog.CreateTable("widgets")
	must(err)
	_, err = db.Catalog.CreateIndex("widgets_pk", "widgets", 0, btree.DefaultComparator, 4, 4)
	must(err)

	t := db.Manager.Begin(util.RepeatableRead)
	ctx := &exec.Context{Txn: t, LockMgr: db.LockMgr, Catalog: db.Catalog}

	rows := []txn.Tuple{row(1), row(2), row(3)}
	ins := exec.NewInsertExecutor(ctx, "widgets", exec.NewValuesExecutor(rows))
	must(ins.Init())
	inserted := 0
	for {
		var tup txn.Tuple
		var rid util.RID
		ok, err := ins.Next(&tup, &rid)
		must(err)
		if !ok {
			break
		}
		inserted++
	}
	must(db.Manager.Commit(t))
	fmt.Printf("exec: inserted %d rows\n", inserted)

	t2 := db.Manager.Begin(util.RepeatableRead)
	ctx2 := &exec.Context{Txn: t2, LockMgr: db.LockMgr, Catalog: db.Catalog}
	scan := exec.NewSeqScanExecutor(ctx2, "widgets")
	must(scan.Init())
	seen := 0
	for {
		var tup txn.Tuple
		var rid util.RID
		ok, err := scan.Next(&tup, &rid)
		must(err)
		if !ok {
			break
		}
		seen++
	}
	must(db.Manager.Commit(t2))
	fmt.Printf("exec: seq scan saw %d rows\n", seen)
}

func row(id int64) txn.Tuple {
	buf := make([]byte, 8)
	v := uint64(id)
	for i := 7; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
	return txn.Tuple{Values: [][]byte{buf}}
}

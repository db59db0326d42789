package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latchdb/internal/storage/buffer"
	"latchdb/internal/storage/disk"
	"latchdb/internal/util"
)

func newTestTree(t *testing.T, leafMax, internalMax int) *Tree {
	path, cleanup := util.CreateTempFile(t)
	t.Cleanup(cleanup)
	d, err := disk.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	pool := buffer.NewPool(64, d)
	tree, err := Open("test_index", pool, DefaultComparator, leafMax, internalMax)
	require.NoError(t, err)
	return tree
}

func ridFor(k int64) util.RID { return util.RID{PageID: util.PageID(k), SlotID: 0} }

// TestTree_ScenarioS3 reproduces spec scenario S3: leaf_max=3, internal_max=3.
func TestTree_ScenarioS3(t *testing.T) {
	tree := newTestTree(t, 3, 3)

	keys := []int64{5, 9, 1, 7, 3, 2, 6, 8}
	for _, k := range keys {
		ok, err := tree.Insert(Int64Key(k), ridFor(k))
		require.NoError(t, err)
		assert.True(t, ok)
	}

	assertInOrder(t, tree, []int64{1, 2, 3, 5, 6, 7, 8, 9})

	require.NoError(t, tree.Remove(Int64Key(3)))
	require.NoError(t, tree.Remove(Int64Key(6)))
	assertInOrder(t, tree, []int64{1, 2, 5, 7, 8, 9})

	for _, k := range []int64{1, 2, 5, 7, 8, 9} {
		require.NoError(t, tree.Remove(Int64Key(k)))
	}
	assert.True(t, tree.IsEmpty())
}

func assertInOrder(t *testing.T, tree *Tree, want []int64) {
	t.Helper()
	it, err := tree.Begin()
	require.NoError(t, err)
	var got []int64
	for !it.End() {
		k, err := it.Key()
		require.NoError(t, err)
		got = append(got, k.Int64())
		require.NoError(t, it.Next())
	}
	assert.Equal(t, want, got)
}

func TestTree_DuplicateInsertRejected(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	ok, err := tree.Insert(Int64Key(1), ridFor(1))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = tree.Insert(Int64Key(1), ridFor(99))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTree_GetValueRoundTrip(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	for _, k := range []int64{10, 20, 30, 40, 50} {
		ok, err := tree.Insert(Int64Key(k), ridFor(k))
		require.NoError(t, err)
		require.True(t, ok)
	}
	for _, k := range []int64{10, 20, 30, 40, 50} {
		rid, found, err := tree.GetValue(Int64Key(k))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, ridFor(k), rid)
	}
	_, found, err := tree.GetValue(Int64Key(999))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTree_RemoveAbsentKeyIsNoop(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	_, err := tree.Insert(Int64Key(1), ridFor(1))
	require.NoError(t, err)
	require.NoError(t, tree.Remove(Int64Key(999)))
	rid, found, err := tree.GetValue(Int64Key(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ridFor(1), rid)
}

func TestTree_LargeSequentialInsertRemoveStaysOrdered(t *testing.T) {
	tree := newTestTree(t, 4, 4)
	const n = 200
	for i := int64(0); i < n; i++ {
		ok, err := tree.Insert(Int64Key(i), ridFor(i))
		require.NoError(t, err)
		require.True(t, ok)
	}
	var want []int64
	for i := int64(0); i < n; i++ {
		want = append(want, i)
	}
	assertInOrder(t, tree, want)

	for i := int64(0); i < n; i += 2 {
		require.NoError(t, tree.Remove(Int64Key(i)))
	}
	want = nil
	for i := int64(1); i < n; i += 2 {
		want = append(want, i)
	}
	assertInOrder(t, tree, want)
}

package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"latchdb/internal/storage/disk"
	"latchdb/internal/util"
)

func newTestPool(t *testing.T, size int) *Pool {
	path, cleanup := util.CreateTempFile(t)
	t.Cleanup(cleanup)
	d, err := disk.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return NewPool(size, d)
}

func TestPool_NewPageBindsFrame(t *testing.T) {
	p := newTestPool(t, 4)
	f, err := p.NewPage()
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.PinCount())
	assert.NotEqual(t, util.InvalidPageID, f.PageID())
}

// TestPool_ScenarioS2 reproduces spec scenario S2: pool_size=1, a dirty page
// is forced out to make room for a second, then re-fetched and must show
// the written-back bytes.
func TestPool_ScenarioS2(t *testing.T) {
	p := newTestPool(t, 1)

	f1, err := p.NewPage()
	require.NoError(t, err)
	pid1 := f1.PageID()
	copy(f1.Data(), []byte("hello-dirty-page"))
	require.NoError(t, p.UnpinPage(pid1, true))

	// Forces eviction of pid1's frame (pool size 1, no free frames left).
	f2, err := p.NewPage()
	require.NoError(t, err)
	pid2 := f2.PageID()
	require.NoError(t, p.UnpinPage(pid2, false))

	f1Again, err := p.FetchPage(pid1)
	require.NoError(t, err)
	assert.Equal(t, "hello-dirty-page", string(f1Again.Data()[:len("hello-dirty-page")]))
	require.NoError(t, p.UnpinPage(pid1, false))
}

func TestPool_FetchPinsResidentPage(t *testing.T) {
	p := newTestPool(t, 4)
	f, err := p.NewPage()
	require.NoError(t, err)
	pid := f.PageID()
	require.NoError(t, p.UnpinPage(pid, false))

	f2, err := p.FetchPage(pid)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f2.PinCount())
	require.NoError(t, p.UnpinPage(pid, false))
}

func TestPool_ExhaustionReturnsError(t *testing.T) {
	p := newTestPool(t, 2)
	_, err := p.NewPage()
	require.NoError(t, err)
	_, err = p.NewPage()
	require.NoError(t, err)

	_, err = p.NewPage()
	assert.ErrorIs(t, err, util.ErrNoFreeFrame)
}

func TestPool_DeletePageFailsWhilePinned(t *testing.T) {
	p := newTestPool(t, 2)
	f, err := p.NewPage()
	require.NoError(t, err)
	pid := f.PageID()

	err = p.DeletePage(pid)
	assert.ErrorIs(t, err, util.ErrPagePinned)

	require.NoError(t, p.UnpinPage(pid, false))
	require.NoError(t, p.DeletePage(pid))
}

func TestPool_UnpinUnknownPageFails(t *testing.T) {
	p := newTestPool(t, 2)
	err := p.UnpinPage(util.PageID(999), false)
	assert.ErrorIs(t, err, util.ErrPageNotFound)
}

func TestPool_FlushAllClearsDirtyBits(t *testing.T) {
	p := newTestPool(t, 2)
	f, err := p.NewPage()
	require.NoError(t, err)
	pid := f.PageID()
	require.NoError(t, p.UnpinPage(pid, true))

	require.NoError(t, p.FlushAllPages())

	f2, err := p.FetchPage(pid)
	require.NoError(t, err)
	assert.False(t, f2.IsDirty())
	require.NoError(t, p.UnpinPage(pid, false))
}

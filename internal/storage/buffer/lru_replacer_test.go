package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLRUReplacer_ScenarioS1 reproduces spec scenario S1: pool_size=3.
func TestLRUReplacer_ScenarioS1(t *testing.T) {
	r := NewLRUReplacer(3)

	r.Unpin(1)
	r.Unpin(2)
	r.Unpin(3)

	v, ok := r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	r.Unpin(1)

	v, ok = r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUReplacer_VictimEmpty(t *testing.T) {
	r := NewLRUReplacer(2)
	_, ok := r.Victim()
	assert.False(t, ok)
}

func TestLRUReplacer_PinRemovesEligibility(t *testing.T) {
	r := NewLRUReplacer(3)
	r.Unpin(0)
	r.Unpin(1)
	assert.Equal(t, 2, r.Size())

	r.Pin(0)
	assert.Equal(t, 1, r.Size())

	v, ok := r.Victim()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUReplacer_UnpinIdempotent(t *testing.T) {
	r := NewLRUReplacer(3)
	r.Unpin(0)
	r.Unpin(0)
	assert.Equal(t, 1, r.Size())
}

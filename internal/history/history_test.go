package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lookbusy1344/legv8-sim/internal/cpu"
	"github.com/lookbusy1344/legv8-sim/internal/memory"
)

func snapAt(pc uint64) Snapshot {
	rf := cpu.NewRegisterFile()
	mem := memory.New()
	return Snapshot{PC: pc, Registers: rf.Snapshot(), Memory: mem.Snapshot()}
}

func TestCanRewindEmpty(t *testing.T) {
	h := New(DefaultCap)
	assert.False(t, h.CanRewind())
	_, ok := h.Rewind()
	assert.False(t, ok)
}

func TestPushAndRewindOrder(t *testing.T) {
	h := New(DefaultCap)
	h.Push(snapAt(0))
	h.Push(snapAt(4))
	h.Push(snapAt(8))

	require.True(t, h.CanRewind())
	snap, ok := h.Rewind()
	require.True(t, ok)
	assert.Equal(t, uint64(8), snap.PC)

	snap, ok = h.Rewind()
	require.True(t, ok)
	assert.Equal(t, uint64(4), snap.PC)
}

func TestClearFutureOnPushAfterRewind(t *testing.T) {
	h := New(DefaultCap)
	h.Push(snapAt(0))
	h.Push(snapAt(4))
	h.Push(snapAt(8))

	h.Rewind() // position now points before the snapshot taken at PC 8
	h.Push(snapAt(99))

	assert.Equal(t, 3, h.Len())
	snap, ok := h.Rewind()
	require.True(t, ok)
	assert.Equal(t, uint64(99), snap.PC)
}

func TestPushEvictsOldestPastCap(t *testing.T) {
	h := New(2)
	h.Push(snapAt(0))
	h.Push(snapAt(4))
	h.Push(snapAt(8))

	assert.Equal(t, 2, h.Len())
	snap, ok := h.Rewind()
	require.True(t, ok)
	assert.Equal(t, uint64(8), snap.PC)
	snap, ok = h.Rewind()
	require.True(t, ok)
	assert.Equal(t, uint64(4), snap.PC)
	_, ok = h.Rewind()
	assert.False(t, ok)
}

func TestTrimToShrinksCapacityImmediately(t *testing.T) {
	h := New(DefaultCap)
	for pc := uint64(0); pc < 5*4; pc += 4 {
		h.Push(snapAt(pc))
	}
	h.TrimTo(2)
	assert.Equal(t, 2, h.Len())
}

func TestResetClearsHistory(t *testing.T) {
	h := New(DefaultCap)
	h.Push(snapAt(0))
	h.Reset()
	assert.False(t, h.CanRewind())
	assert.Equal(t, 0, h.Len())
}

package fifo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawbytedev/savestate"
)

func TestWriteReadWraparound(t *testing.T) {
	f := New[uint16](3)
	assert.True(t, f.IsEmpty())
	assert.Equal(t, 3, f.Cap())

	require.True(t, f.Write(1))
	require.True(t, f.Write(2))
	require.True(t, f.Write(3))
	assert.True(t, f.IsFull())
	assert.False(t, f.Write(4), "write to a full queue")

	v, ok := f.Peek()
	require.True(t, ok)
	assert.Equal(t, uint16(1), v)

	v, ok = f.Read()
	require.True(t, ok)
	assert.Equal(t, uint16(1), v)

	// wrap the write position
	require.True(t, f.Write(4))
	for _, want := range []uint16{2, 3, 4} {
		v, ok = f.Read()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
	assert.True(t, f.IsEmpty())
	_, ok = f.Read()
	assert.False(t, ok, "read from an empty queue")
	_, ok = f.Peek()
	assert.False(t, ok)
}

func TestClear(t *testing.T) {
	f := New[uint16](2)
	f.Write(1)
	f.Write(2)
	f.Clear()
	assert.True(t, f.IsEmpty())
	require.True(t, f.Write(9))
	v, ok := f.Read()
	require.True(t, ok)
	assert.Equal(t, uint16(9), v)
}

func TestSavestateRoundtrip(t *testing.T) {
	f := New[uint32](4)
	f.Write(10)
	f.Write(20)
	f.Write(30)
	f.Read() // read_pos 1, len 2

	w := savestate.NewPersistentWriter()
	require.NoError(t, f.Store(w))

	got := New[uint32](4)
	r, err := savestate.NewPersistentReader(w.Bytes())
	require.NoError(t, err)
	require.NoError(t, got.LoadInPlace(r))

	assert.Equal(t, 2, got.Len())
	v, ok := got.Read()
	require.True(t, ok)
	assert.Equal(t, uint32(20), v)
	v, ok = got.Read()
	require.True(t, ok)
	assert.Equal(t, uint32(30), v)
	assert.True(t, got.IsEmpty())
}

func TestCapacityMismatch(t *testing.T) {
	f := New[uint32](4)
	w := savestate.NewPersistentWriter()
	require.NoError(t, f.Store(w))

	other := New[uint32](8)
	r, err := savestate.NewPersistentReader(w.Bytes())
	require.NoError(t, err)
	require.ErrorIs(t, other.LoadInPlace(r), ErrCapacityMismatch)
}

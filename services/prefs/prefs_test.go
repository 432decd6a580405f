package prefs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// memFlash emulates an erasable block device; erased bytes read as 0xFF.
type memFlash struct {
	data   []byte
	block  int64
	erases   int
	eraseErr error
}

func newMemFlash(size int, block int64) *memFlash {
	f := &memFlash{data: make([]byte, size), block: block}
	for i := range f.data {
		f.data[i] = 0xFF
	}
	return f
}

func (f *memFlash) ReadAt(p []byte, off int64) (int, error)  { return copy(p, f.data[off:]), nil }
func (f *memFlash) WriteAt(p []byte, off int64) (int, error) { return copy(f.data[off:], p), nil }
func (f *memFlash) EraseBlockSize() int64                    { return f.block }
func (f *memFlash) EraseBlocks(start, n int64) error {
	if f.eraseErr != nil {
		return f.eraseErr
	}
	f.erases++
	for i := start * f.block; i < (start+n)*f.block; i++ {
		f.data[i] = 0xFF
	}
	return nil
}

func TestMemStore(t *testing.T) {
	s := NewMemStore()
	_, ok, err := s.LoadInt("led_brightness")
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, s.SaveInt("led_brightness", 3))
	v, ok, _ := s.LoadInt("led_brightness")
	require.True(t, ok)
	require.Equal(t, 3, v)
}

func TestBlockStoreRoundTrip(t *testing.T) {
	f := newMemFlash(8192, 4096)
	s := NewBlockStore(f)
	_, ok, err := s.LoadInt("led_brightness")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.SaveInt("led_brightness", 2))
	require.NoError(t, s.SaveInt("led_brightness", 2))
	require.Equal(t, 1, f.erases)
	require.NoError(t, s.SaveInt("offset", -12))

	fresh := NewBlockStore(f)
	v, ok, err := fresh.LoadInt("led_brightness")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, v)
	v, _, _ = fresh.LoadInt("offset")
	require.Equal(t, -12, v)
}

func TestBlockStoreFailedSaveKeepsOldValue(t *testing.T) {
	f := newMemFlash(8192, 4096)
	s := NewBlockStore(f)
	require.NoError(t, s.SaveInt("led_brightness", 2))

	f.eraseErr = errors.New("flash busy")
	require.Error(t, s.SaveInt("led_brightness", 3))
	require.Error(t, s.SaveInt("offset", 5))

	v, ok, err := s.LoadInt("led_brightness")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, v)
	_, ok, _ = s.LoadInt("offset")
	require.False(t, ok)

	// Too big for a 16-byte block.
	small := NewBlockStore(newMemFlash(64, 16))
	require.EqualError(t, small.SaveInt("a_rather_long_key", 1), "prefs block full")
	_, ok, _ = small.LoadInt("a_rather_long_key")
	require.False(t, ok)
}

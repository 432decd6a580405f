package button

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aircube-go/services/prefs"
	"aircube-go/services/state"
)

type fakePin struct {
	mu    sync.Mutex
	level bool
}

func (p *fakePin) Set(b bool) { p.mu.Lock(); p.level = b; p.mu.Unlock() }
func (p *fakePin) Get() bool  { p.mu.Lock(); defer p.mu.Unlock(); return p.level }

// fakeClock is advanced by hand.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(t *testing.T) (*Service, *fakePin, *fakeClock, *state.IndicatorState, *prefs.MemStore) {
	t.Helper()
	pin := &fakePin{level: true}
	clk := &fakeClock{t: time.Unix(1000, 0)}
	in := state.NewIndicatorState(nil, 0)
	store := prefs.NewMemStore()
	s := New(pin, store, in, Config{}, nil, nil)
	s.now = clk.now
	return s, pin, clk, in, store
}

func TestFourPressesCycleBack(t *testing.T) {
	s, _, clk, in, store := newTestService(t)
	require.Equal(t, DefaultIndex, s.Load())
	start, _ := in.Intensity()
	require.Equal(t, 0.6, start)

	want := []float64{1.0, 0.0, 0.3, 0.6}
	for i, w := range want {
		clk.advance(51 * time.Millisecond)
		require.True(t, s.handle(0), "press %d", i)
		v, err := in.Intensity()
		require.NoError(t, err)
		require.Equal(t, w, v)
	}
	saved, ok, _ := store.LoadInt(PrefKey)
	require.True(t, ok)
	require.Equal(t, DefaultIndex, saved)
}

func TestDebounceSinceLastAccepted(t *testing.T) {
	s, _, clk, _, _ := newTestService(t)
	s.Load()
	require.True(t, s.handle(0))

	clk.advance(30 * time.Millisecond)
	require.False(t, s.handle(0))
	clk.advance(15 * time.Millisecond) // 45 ms since accept
	require.False(t, s.handle(0))
	clk.advance(10 * time.Millisecond)
	require.True(t, s.handle(0))
	require.Equal(t, 0, s.Index())
}

func TestLevelRecheck(t *testing.T) {
	s, pin, clk, _, _ := newTestService(t)
	s.Load()
	pin.Set(false)
	clk.advance(time.Second)
	require.False(t, s.handle(0))
	require.Equal(t, DefaultIndex, s.Index())

	s.cfg.Invert = true
	require.True(t, s.handle(0))
}

func TestLoadFallsBack(t *testing.T) {
	s, _, _, in, store := newTestService(t)
	require.NoError(t, store.SaveInt(PrefKey, 9))
	require.Equal(t, DefaultIndex, s.Load())

	require.NoError(t, store.SaveInt(PrefKey, 1))
	require.Equal(t, 1, s.Load())
	v, _ := in.Intensity()
	require.Equal(t, 0.3, v)
}

func TestNotifyNeverBlocks(t *testing.T) {
	s, _, _, _, _ := newTestService(t)
	for i := 0; i < DefaultQueue+5; i++ {
		s.Notify(11)
	}
	require.Equal(t, uint32(5), s.Drops())
}

func TestRunConsumesQueue(t *testing.T) {
	s, _, _, in, _ := newTestService(t)
	s.now = time.Now
	s.Load()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	s.Notify(11)
	require.Eventually(t, func() bool {
		v, err := in.Intensity()
		return err == nil && v == 1.0
	}, time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

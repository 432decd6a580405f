package mathx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMapU16Descending(t *testing.T) {
	require.Equal(t, uint16(21845), MapU16(10, 10, 200, 21845, 0))
	require.Equal(t, uint16(0), MapU16(200, 10, 200, 21845, 0))
	require.Equal(t, uint16(21845), MapU16(-5, 10, 200, 21845, 0))
	require.Equal(t, uint16(0), MapU16(500, 10, 200, 21845, 0))

	prev := MapU16(10, 10, 200, 21845, 0)
	for v := 11; v <= 200; v++ {
		got := MapU16(v, 10, 200, 21845, 0)
		if got > prev {
			t.Fatalf("not monotonic at %d: %d > %d", v, got, prev)
		}
		prev = got
	}
	require.Equal(t, uint16(500), MapU16(50, 0, 100, 0, 1000))
}

func TestApproachConverges(t *testing.T) {
	cur := 0.0
	for i := 0; i < 50; i++ {
		cur = Approach(cur, 1000, 0.02)
	}
	want := 1000 - 1000*math.Pow(0.98, 50)
	require.InDelta(t, want, cur, 1e-9)
	require.LessOrEqual(t, cur, 1000.0)
}

func TestClampAndScale(t *testing.T) {
	require.Equal(t, 1.0, Clamp(1.5, 0.0, 1.0))
	require.Equal(t, uint32(100), Clamp(uint32(50), 100, 10000))
	require.Equal(t, uint8(128), ScaleU8(255, 0.5))
	require.Equal(t, uint8(0), ScaleU8(255, -1))
}

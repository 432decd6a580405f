package conv

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendInts(t *testing.T) {
	require.Equal(t, "0", string(AppendUint(nil, 0)))
	require.Equal(t, "18446744073709551615", string(AppendUint(nil, math.MaxUint64)))
	require.Equal(t, "x-42", string(AppendInt([]byte("x"), -42)))
	require.Equal(t, "-1", string(AppendInt(nil, -1)))
}

func TestAppendFixed(t *testing.T) {
	cases := map[float64]string{
		0:        "0.00",
		1:        "1.00",
		0.6:      "0.60",
		23.456:   "23.46",
		-3.14159: "-3.14",
		-0.001:   "0.00",
		77.011:   "77.01",
		10000:    "10000.00",
	}
	for in, want := range cases {
		require.Equal(t, want, string(AppendFixed(nil, in, 2)), "in=%v", in)
	}
	require.Equal(t, "0.00", string(AppendFixed(nil, math.NaN(), 2)))
	require.Equal(t, "3", string(AppendFixed(nil, 2.6, 0)))
}

func TestParseFloatPrefix(t *testing.T) {
	cases := []struct {
		in string
		v  float64
		n  int
	}{
		{"0.5}", 0.5, 3},
		{" 1.5 }", 1.5, 4},
		{"-2", -2, 2},
		{"50000}", 50000, 5},
		{"1e3,", 1000, 3},
		{"1e}", 1, 1},
		{".25", 0.25, 3},
		{"abc", 0, 0},
		{"-", 0, 0},
	}
	for _, c := range cases {
		v, n := ParseFloatPrefix([]byte(c.in))
		require.Equal(t, c.v, v, c.in)
		require.Equal(t, c.n, n, c.in)
	}
}

func TestAppendHex(t *testing.T) {
	require.Equal(t, "0x43", string(AppendHex(nil, 0x43, 2)))
	require.Equal(t, "0x0160", string(AppendHex(nil, 0x160, 4)))
}

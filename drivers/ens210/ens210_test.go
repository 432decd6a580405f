package ens210

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aircube-go/errcode"
)

// fakeBus answers reads from a register map and records writes in order.
type fakeBus struct {
	regs   map[byte][]byte
	writes [][]byte
	err    error
}

func (b *fakeBus) Write(addr uint16, w []byte) error {
	if b.err != nil {
		return b.err
	}
	b.writes = append(b.writes, append([]byte(nil), w...))
	return nil
}

func (b *fakeBus) Read(addr uint16, reg, out []byte) error {
	if b.err != nil {
		return b.err
	}
	copy(out, b.regs[reg[0]])
	return nil
}

func le24(v uint16, valid bool) []byte {
	b := []byte{byte(v), byte(v >> 8), 0}
	if valid {
		b[2] = 0x01
	}
	return b
}

func TestConfigureOrder(t *testing.T) {
	fb := &fakeBus{regs: map[byte][]byte{regSysStat: {0x01}}}
	d := New(fb, nil)
	start := time.Now()
	require.NoError(t, d.Configure(context.Background(), Config{Settle: 5 * time.Millisecond}))
	require.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
	require.Equal(t, [][]byte{{0x10, 0x00}, {0x21, 0x03}, {0x22, 0x03}}, fb.writes)
}

func TestConfigureCancelled(t *testing.T) {
	fb := &fakeBus{regs: map[byte][]byte{}}
	d := New(fb, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, d.Configure(ctx), context.Canceled)
}

func TestReadConverts(t *testing.T) {
	fb := &fakeBus{regs: map[byte][]byte{
		regTVal: le24(19082, true), // 298.156 K
		regHVal: le24(25600, true), // 50 %RH
	}}
	d := New(fb, nil)
	require.NoError(t, d.Read())

	s := d.Sample()
	require.InDelta(t, 25.0, s.Celsius, 0.01)
	require.InDelta(t, 77.0, s.Fahrenheit, 0.02)
	require.InDelta(t, 50.0, s.Humidity, 1e-9)
	require.Equal(t, [2]byte{0x8A, 0x4A}, s.RawTemp)
	require.Equal(t, [2]byte{0x00, 0x64}, s.RawHumidity)
	require.True(t, s.TempValid && s.HumidityValid)
}

func TestInvalidTemperatureKeepsPrevious(t *testing.T) {
	fb := &fakeBus{regs: map[byte][]byte{
		regTVal: le24(19082, true),
		regHVal: le24(25600, true),
	}}
	d := New(fb, nil)
	require.NoError(t, d.Read())
	prev := d.Sample().Celsius

	fb.regs[regTVal] = le24(0, false)
	fb.regs[regHVal] = le24(30720, true) // 60 %RH
	for i := 0; i < 2; i++ {
		err := d.Read()
		require.Equal(t, errcode.InvalidReading, errcode.Of(err))
		require.Equal(t, prev, d.Sample().Celsius)
	}
	require.InDelta(t, 60.0, d.Sample().Humidity, 1e-9)
}

func TestTransportFaultLeavesSample(t *testing.T) {
	fb := &fakeBus{regs: map[byte][]byte{regTVal: le24(19082, true), regHVal: le24(25600, true)}}
	d := New(fb, nil)
	require.NoError(t, d.Read())
	before := d.Sample()

	fb.err = errcode.Wrap(errcode.TransportError, "i2c.read", errors.New("nack"))
	err := d.Read()
	require.Equal(t, errcode.TransportError, errcode.Of(err))
	require.Equal(t, before, d.Sample())
}

func TestDecode(t *testing.T) {
	raw, ok := Decode([3]byte{0x34, 0x12, 0x01})
	require.True(t, ok)
	require.Equal(t, uint16(0x1234), raw)
	_, ok = Decode([3]byte{0xFF, 0xFF, 0xFE})
	require.False(t, ok)
}

func TestPartIDAndClose(t *testing.T) {
	fb := &fakeBus{regs: map[byte][]byte{regPartID: {0x10, 0x02}}}
	d := New(fb, nil)
	id, err := d.PartID()
	require.NoError(t, err)
	require.Equal(t, uint16(PartID), id)
	require.NoError(t, d.Close())
	require.Equal(t, []byte{0x10, 0x01}, fb.writes[len(fb.writes)-1])
}

// Package ens210 drives the ScioSense ENS210 relative humidity and
// temperature sensor in continuous dual-channel mode.
//
//	d := ens210.New(bus, logger)
//	err := d.Configure(ctx)  // blocks for the settle time
//	err = d.Read()           // refreshes the last-known-good Sample
//
// Each data register is 3 bytes little endian: bits 0..15 carry the value,
// bit 16 the validity flag and the remaining bits a CRC that is not checked.
// A channel that reads back invalid keeps its previous value.
package ens210

import (
	"context"
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"aircube-go/errcode"
)

// I2C address.
const Address = 0x43

// Registers.
const (
	regPartID    = 0x00
	regSysCtrl   = 0x10
	regSysStat   = 0x11
	regSensRun   = 0x21
	regSensStart = 0x22
	regTVal      = 0x30
	regHVal      = 0x33
)

const (
	sysCtrlLowPower = 0x01
	sensBoth        = 0x03 // temperature | humidity
	validBit        = 1 << 16

	// DefaultSettle is the time after start before the first sample is meaningful.
	DefaultSettle = 250 * time.Millisecond

	// PartID is the value of the part id register.
	PartID = 0x0210
)

// Bus is the address-scoped transport the driver needs.
type Bus interface {
	Write(addr uint16, w []byte) error
	Read(addr uint16, reg, out []byte) error
}

type Config struct {
	// Address defaults to 0x43 if zero.
	Address uint16
	// Settle defaults to DefaultSettle.
	Settle time.Duration
}

// Sample is the last-known-good decoded state.
type Sample struct {
	Kelvin     float64
	Celsius    float64
	Fahrenheit float64
	Humidity   float64 // %RH

	// Raw little-endian values, kept for compensation writeback.
	RawTemp     [2]byte
	RawHumidity [2]byte

	TempValid     bool // at least one valid temperature decoded
	HumidityValid bool // at least one valid humidity decoded
}

type Device struct {
	bus    Bus
	addr   uint16
	cfg    Config
	logger log.Logger

	buf    [3]byte
	sample Sample
}

// New creates the device object. It does not touch the bus.
func New(bus Bus, logger log.Logger) *Device {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Device{
		bus:    bus,
		addr:   Address,
		logger: log.With(logger, "dev", "ens210"),
		cfg:    Config{Address: Address, Settle: DefaultSettle},
	}
}

// Configure puts the sensor into continuous temperature and humidity
// measurement and waits for the settle time. The order of writes matters.
func (d *Device) Configure(ctx context.Context, cfgs ...Config) error {
	if len(cfgs) > 0 {
		c := cfgs[0]
		if c.Address == 0 {
			c.Address = Address
		}
		if c.Settle <= 0 {
			c.Settle = DefaultSettle
		}
		d.cfg = c
		d.addr = c.Address
	}

	steps := []struct {
		name string
		w    []byte
	}{
		{"disable low power", []byte{regSysCtrl, 0x00}},
		{"continuous mode", []byte{regSensRun, sensBoth}},
		{"start", []byte{regSensStart, sensBoth}},
	}
	for _, s := range steps {
		if err := d.bus.Write(d.addr, s.w); err != nil {
			return errors.WithMessage(err, "ens210: "+s.name)
		}
	}

	t := time.NewTimer(d.cfg.Settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	}

	st, err := d.Status()
	if err != nil {
		return err
	}
	level.Info(d.logger).Log("msg", "configured", "sys_stat", st)
	return nil
}

// Status returns the SYS_STAT register (bit 0 set when the sensor is active).
func (d *Device) Status() (uint8, error) {
	var b [1]byte
	if err := d.bus.Read(d.addr, []byte{regSysStat}, b[:]); err != nil {
		return 0, errors.WithMessage(err, "ens210: status")
	}
	return b[0], nil
}

// PartID reads the 16-bit part identifier.
func (d *Device) PartID() (uint16, error) {
	var b [2]byte
	if err := d.bus.Read(d.addr, []byte{regPartID}, b[:]); err != nil {
		return 0, errors.WithMessage(err, "ens210: part id")
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// Read fetches both channels. Invalid channels are logged and reported as
// errcode.InvalidReading; the other channel still updates. A transport fault
// aborts the read and leaves the sample untouched.
func (d *Device) Read() error {
	traw, tok, err := d.readChannel(regTVal)
	if err != nil {
		return errors.WithMessage(err, "ens210: temperature")
	}
	hraw, hok, err := d.readChannel(regHVal)
	if err != nil {
		return errors.WithMessage(err, "ens210: humidity")
	}

	var bad []string
	if tok {
		k := KelvinFromRaw(traw)
		d.sample.Kelvin = k
		d.sample.Celsius = k - 273.15
		d.sample.Fahrenheit = d.sample.Celsius*1.8 + 32
		binary.LittleEndian.PutUint16(d.sample.RawTemp[:], traw)
		d.sample.TempValid = true
	} else {
		bad = append(bad, "temperature")
		level.Warn(d.logger).Log("msg", "invalid temperature reading")
	}
	if hok {
		d.sample.Humidity = HumidityFromRaw(hraw)
		binary.LittleEndian.PutUint16(d.sample.RawHumidity[:], hraw)
		d.sample.HumidityValid = true
	} else {
		bad = append(bad, "humidity")
		level.Warn(d.logger).Log("msg", "invalid humidity reading")
	}
	if len(bad) > 0 {
		return errcode.New(errcode.InvalidReading, "ens210.read", strings.Join(bad, ","))
	}
	return nil
}

// Sample returns the last-known-good values.
func (d *Device) Sample() Sample { return d.sample }

// Close puts the sensor back into low-power mode.
func (d *Device) Close() error {
	if err := d.bus.Write(d.addr, []byte{regSysCtrl, sysCtrlLowPower}); err != nil {
		return errors.WithMessage(err, "ens210: low power")
	}
	return nil
}

func (d *Device) readChannel(reg byte) (uint16, bool, error) {
	if err := d.bus.Read(d.addr, []byte{reg}, d.buf[:]); err != nil {
		return 0, false, err
	}
	raw, ok := Decode(d.buf)
	return raw, ok, nil
}

// Decode splits a 3-byte little-endian data register into value and validity.
func Decode(b [3]byte) (raw uint16, valid bool) {
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
	return uint16(v & 0xFFFF), v&validBit != 0
}

// KelvinFromRaw converts a temperature value in 1/64 K.
func KelvinFromRaw(raw uint16) float64 { return float64(raw) / 64 }

// HumidityFromRaw converts a humidity value in 1/512 %RH.
func HumidityFromRaw(raw uint16) float64 { return float64(raw) / 512 }

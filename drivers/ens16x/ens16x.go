// Package ens16x drives the ScioSense ENS160/ENS161 digital metal-oxide
// air-quality sensor.
//
// Operating mode changes always pass through Idle: SetMode writes Idle, then
// the target, then reads OPMODE back. Compensation from a temperature and
// humidity sensor is written as one 5-byte burst before each data read.
package ens16x

import (
	"context"
	"encoding/binary"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"aircube-go/errcode"
	"aircube-go/x/conv"
)

// Unknown marks a data field that has not been decoded yet.
const Unknown = -1

// Bus is the address-scoped transport the driver needs.
type Bus interface {
	Write(addr uint16, w []byte) error
	Read(addr uint16, reg, out []byte) error
}

type Config struct {
	// Address defaults to 0x52 if zero.
	Address uint16
	// Mode is the operating mode entered by Configure. The zero value
	// selects Standard.
	Mode Mode
	// ModeSettle is waited after the target mode write. Default 10 ms.
	ModeSettle time.Duration
}

// Reading holds the last decoded values. Fields are Unknown until read.
type Reading struct {
	TVOC   int // ppb
	ECO2   int // ppm
	AQI    int // AQI-S
	AQIUBA int // 1..5
}

type Device struct {
	bus    Bus
	addr   uint16
	cfg    Config
	logger log.Logger

	buf     [2]byte
	flags   Flags
	reading Reading
}

// New creates the device object. It does not touch the bus.
func New(bus Bus, logger log.Logger) *Device {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Device{
		bus:     bus,
		addr:    Address,
		cfg:     Config{Address: Address, Mode: ModeStandard, ModeSettle: 10 * time.Millisecond},
		logger:  log.With(logger, "dev", "ens16x"),
		reading: Reading{TVOC: Unknown, ECO2: Unknown, AQI: Unknown, AQIUBA: Unknown},
		flags:   Flags(uint8(StatusNoValidOutput) << shiftValid),
	}
}

// Configure identifies the part, refreshes status and enters the configured
// mode. No mode write is issued if the device already reports that mode.
// A ModeChangeFailed result is returned but leaves the device usable.
func (d *Device) Configure(ctx context.Context, cfgs ...Config) error {
	if len(cfgs) > 0 {
		c := cfgs[0]
		if c.Address == 0 {
			c.Address = Address
		}
		if c.Mode == ModeDeepSleep {
			c.Mode = ModeStandard
		}
		if c.ModeSettle <= 0 {
			c.ModeSettle = 10 * time.Millisecond
		}
		d.cfg = c
		d.addr = c.Address
	}

	id, err := d.PartID()
	if err != nil {
		return err
	}
	st, err := d.ReadStatus()
	if err != nil {
		return err
	}
	level.Info(d.logger).Log("msg", "identified", "part_id", string(conv.AppendHex(nil, uint32(id), 4)), "status", st)

	cur, err := d.Mode()
	if err != nil {
		return err
	}
	if cur == d.cfg.Mode {
		level.Info(d.logger).Log("msg", "mode already set", "mode", cur)
		return nil
	}
	return d.SetMode(ctx, d.cfg.Mode)
}

// PartID reads the 16-bit part identifier (0x0160 or 0x0161).
func (d *Device) PartID() (uint16, error) {
	if err := d.bus.Read(d.addr, []byte{regPartID}, d.buf[:]); err != nil {
		return 0, errors.WithMessage(err, "ens16x: part id")
	}
	return binary.LittleEndian.Uint16(d.buf[:]), nil
}

// Mode reads OPMODE.
func (d *Device) Mode() (Mode, error) {
	var b [1]byte
	if err := d.bus.Read(d.addr, []byte{regOpMode}, b[:]); err != nil {
		return 0, errors.WithMessage(err, "ens16x: opmode")
	}
	return Mode(b[0]), nil
}

// SetMode moves the device to m through Idle and confirms by readback.
// A mismatch returns errcode.ModeChangeFailed; the device keeps whatever
// mode it reports.
func (d *Device) SetMode(ctx context.Context, m Mode) error {
	if err := d.bus.Write(d.addr, []byte{regOpMode, byte(ModeIdle)}); err != nil {
		return errors.WithMessage(err, "ens16x: idle")
	}
	if m != ModeIdle {
		if err := d.bus.Write(d.addr, []byte{regOpMode, byte(m)}); err != nil {
			return errors.WithMessage(err, "ens16x: "+m.String())
		}
	}
	if d.cfg.ModeSettle > 0 {
		t := time.NewTimer(d.cfg.ModeSettle)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
	got, err := d.Mode()
	if err != nil {
		return err
	}
	if got != m {
		level.Error(d.logger).Log("msg", "mode change failed", "want", m, "got", got)
		return errcode.New(errcode.ModeChangeFailed, "ens16x.mode", "want "+m.String()+" got "+got.String())
	}
	level.Info(d.logger).Log("msg", "mode changed", "mode", m)
	return nil
}

// ReadStatus refreshes the cached DEVICE_STATUS.
func (d *Device) ReadStatus() (Status, error) {
	var b [1]byte
	if err := d.bus.Read(d.addr, []byte{regDeviceStatus}, b[:]); err != nil {
		return d.flags.Validity(), errors.WithMessage(err, "ens16x: status")
	}
	d.flags = Flags(b[0])
	if d.flags.ModeError() {
		level.Warn(d.logger).Log("msg", "device reports mode error", "flags", uint8(d.flags))
	}
	return d.flags.Validity(), nil
}

// Status returns the validity from the last ReadStatus.
func (d *Device) Status() Status { return d.flags.Validity() }

// Flags returns the raw status from the last ReadStatus.
func (d *Device) Flags() Flags { return d.flags }

// WriteCompensation writes raw little-endian temperature (1/64 K) and
// humidity (1/512 %RH) in a single transaction.
func (d *Device) WriteCompensation(t, h [2]byte) error {
	w := [5]byte{regTempIn, t[0], t[1], h[0], h[1]}
	if err := d.bus.Write(d.addr, w[:]); err != nil {
		return errors.WithMessage(err, "ens16x: compensation")
	}
	return nil
}

// ReadCompensation reads back the compensation values the sensor is using,
// in Kelvin and %RH.
func (d *Device) ReadCompensation() (kelvin, rh float64, err error) {
	if err = d.bus.Read(d.addr, []byte{regDataT}, d.buf[:]); err != nil {
		return 0, 0, errors.WithMessage(err, "ens16x: data_t")
	}
	kelvin = float64(binary.LittleEndian.Uint16(d.buf[:])) / 64
	if err = d.bus.Read(d.addr, []byte{regDataRH}, d.buf[:]); err != nil {
		return 0, 0, errors.WithMessage(err, "ens16x: data_rh")
	}
	rh = float64(binary.LittleEndian.Uint16(d.buf[:])) / 512
	return kelvin, rh, nil
}

func (d *Device) readWord(reg byte, name string) (int, error) {
	if err := d.bus.Read(d.addr, []byte{reg}, d.buf[:]); err != nil {
		return 0, errors.WithMessage(err, "ens16x: "+name)
	}
	return int(binary.LittleEndian.Uint16(d.buf[:])), nil
}

// ReadTVOC reads total VOC in ppb.
func (d *Device) ReadTVOC() (int, error) {
	v, err := d.readWord(regDataTVOC, "tvoc")
	if err != nil {
		return d.reading.TVOC, err
	}
	d.reading.TVOC = v
	return v, nil
}

// ReadECO2 reads equivalent CO2 in ppm.
func (d *Device) ReadECO2() (int, error) {
	v, err := d.readWord(regDataECO2, "eco2")
	if err != nil {
		return d.reading.ECO2, err
	}
	d.reading.ECO2 = v
	return v, nil
}

// ReadAQI reads the AQI-S index.
func (d *Device) ReadAQI() (int, error) {
	v, err := d.readWord(regDataAQIS, "aqi")
	if err != nil {
		return d.reading.AQI, err
	}
	d.reading.AQI = v
	return v, nil
}

// ReadAQIUBA reads the UBA air-quality index (1..5).
func (d *Device) ReadAQIUBA() (int, error) {
	var b [1]byte
	if err := d.bus.Read(d.addr, []byte{regDataAQI}, b[:]); err != nil {
		return d.reading.AQIUBA, errors.WithMessage(err, "ens16x: aqi_uba")
	}
	d.reading.AQIUBA = int(b[0] & 0x07)
	return d.reading.AQIUBA, nil
}

// Reading returns the last decoded values.
func (d *Device) Reading() Reading { return d.reading }

// Close sends the device to deep sleep through Idle. No readback: a sleeping
// part may not answer.
func (d *Device) Close() error {
	if err := d.bus.Write(d.addr, []byte{regOpMode, byte(ModeIdle)}); err != nil {
		return errors.WithMessage(err, "ens16x: idle")
	}
	return errors.WithMessage(d.bus.Write(d.addr, []byte{regOpMode, byte(ModeDeepSleep)}), "ens16x: deep_sleep")
}

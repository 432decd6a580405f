// Package sensor runs the acquisition cycle: climate first, then the
// compensated air-quality read, then one retained reading on the bus.
package sensor

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/bus"
	"aircube-go/drivers/ens16x"
	"aircube-go/drivers/ens210"
	"aircube-go/errcode"
	"aircube-go/services/metrics"
	"aircube-go/types"
	"aircube-go/x/timex"
)

// Climate is the temperature/humidity sensor.
type Climate interface {
	Read() error
	Sample() ens210.Sample
	Status() (uint8, error)
}

// AirQuality is the gas sensor.
type AirQuality interface {
	WriteCompensation(t, h [2]byte) error
	ReadStatus() (ens16x.Status, error)
	ReadTVOC() (int, error)
	ReadECO2() (int, error)
	ReadAQI() (int, error)
	ReadAQIUBA() (int, error)
}

// Period is the shared sample period.
type Period interface {
	Duration() (time.Duration, error)
}

const (
	devClimate = "ens210"
	devAir     = "ens16x"
)

type Task struct {
	climate Climate
	air     AirQuality
	period  Period
	conn    *bus.Connection
	logger  log.Logger
	rec     metrics.Recorder

	last    types.EnvReading
	every   time.Duration
	offline map[string]bool
}

// New builds the task. A nil sensor is treated as offline from the start.
func New(climate Climate, air AirQuality, p Period, conn *bus.Connection, logger log.Logger, rec metrics.Recorder) *Task {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	t := &Task{
		climate: climate,
		air:     air,
		period:  p,
		conn:    conn,
		logger:  log.With(logger, "svc", "sensor"),
		rec:     metrics.OrNop(rec),
		every:   time.Second,
		offline: map[string]bool{},
		last: types.EnvReading{AirQuality: types.AirQuality{
			Status: ens16x.StatusNoValidOutput,
			TVOC:   ens16x.Unknown, ECO2: ens16x.Unknown, AQI: ens16x.Unknown, AQIUBA: ens16x.Unknown,
		}},
	}
	if climate == nil {
		t.offline[devClimate] = true
	}
	if air == nil {
		t.offline[devAir] = true
	}
	return t
}

// Run cycles until ctx is cancelled.
func (t *Task) Run(ctx context.Context) error {
	level.Info(t.logger).Log("msg", "started", "ens210", !t.offline[devClimate], "ens16x", !t.offline[devAir])
	for {
		t.Cycle()
		if !timex.Sleep(ctx.Done(), t.nextPeriod()) {
			return ctx.Err()
		}
	}
}

// Cycle performs one acquisition and publishes the result.
func (t *Task) Cycle() types.EnvReading {
	r := t.last

	if !t.offline[devClimate] {
		err := t.climate.Read()
		t.fault(devClimate, err)
		s := t.climate.Sample()
		r.Climate.Celsius, r.Climate.Fahrenheit, r.Climate.Humidity = s.Celsius, s.Fahrenheit, s.Humidity
		if errcode.Of(err) != errcode.DeviceCacheFull {
			if st, err := t.climate.Status(); err == nil {
				r.Climate.Status = st
			} else {
				t.fault(devClimate, err)
			}
		}
	}

	if !t.offline[devAir] {
		t.readAir(&r.AirQuality)
	}

	r.TS = timex.UptimeMs()
	t.last = r
	if t.conn != nil {
		t.conn.Publish(t.conn.NewMessage(types.TopicReading, r, true))
	}
	t.rec.ObserveReading(r)
	level.Debug(t.logger).Log("msg", "reading",
		"temp_c", r.Climate.Celsius, "rh", r.Climate.Humidity,
		"status", r.AirQuality.Status, "tvoc", r.AirQuality.TVOC, "eco2", r.AirQuality.ECO2, "aqi", r.AirQuality.AQI)
	return r
}

// readAir runs the compensated ENS16x sequence. It stops at the first
// failure that takes the device offline.
func (t *Task) readAir(a *types.AirQuality) {
	if !t.offline[devClimate] {
		s := t.climate.Sample()
		if s.TempValid && s.HumidityValid {
			if t.fault(devAir, t.air.WriteCompensation(s.RawTemp, s.RawHumidity)) {
				return
			}
		}
	}
	st, err := t.air.ReadStatus()
	if t.fault(devAir, err) {
		return
	}
	a.Status = st

	for _, f := range []struct {
		read func() (int, error)
		dst  *int
	}{
		{t.air.ReadTVOC, &a.TVOC},
		{t.air.ReadECO2, &a.ECO2},
		{t.air.ReadAQI, &a.AQI},
		{t.air.ReadAQIUBA, &a.AQIUBA},
	} {
		v, err := f.read()
		if t.fault(devAir, err) {
			return
		}
		if err == nil {
			*f.dst = v
		}
	}
}

// fault records err and reports whether the device just went offline.
func (t *Task) fault(dev string, err error) bool {
	if err == nil {
		return false
	}
	code := errcode.Of(err)
	t.rec.SensorError(dev, string(code))
	switch code {
	case errcode.DeviceCacheFull:
		t.offline[dev] = true
		level.Error(t.logger).Log("msg", "device disabled", "dev", dev, "err", err)
		return true
	case errcode.InvalidReading:
		level.Warn(t.logger).Log("msg", "reading rejected", "dev", dev, "err", err)
	default:
		level.Error(t.logger).Log("msg", "sensor fault", "dev", dev, "err", err)
	}
	return false
}

// nextPeriod re-reads the shared period, keeping the previous one when the
// lock is contended.
func (t *Task) nextPeriod() time.Duration {
	if t.period == nil {
		return t.every
	}
	d, err := t.period.Duration()
	if err != nil {
		level.Warn(t.logger).Log("msg", "period locked, keeping previous", "period", t.every, "err", err)
		t.rec.LockTimeout("sensor")
		return t.every
	}
	t.every = d
	return d
}

// Offline reports whether dev has been disabled.
func (t *Task) Offline(dev string) bool { return t.offline[dev] }

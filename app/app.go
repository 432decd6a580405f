// Package app assembles the appliance from its platform parts: an I2C
// opener, an LED strip, a button pin, a preferences store and a link
// dialler. Host and board entry points differ only in what they pass in.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/bus"
	"aircube-go/drivers/ens16x"
	"aircube-go/drivers/ens210"
	"aircube-go/errcode"
	"aircube-go/services/button"
	"aircube-go/services/config"
	"aircube-go/services/hal"
	"aircube-go/services/heartbeat"
	"aircube-go/services/indicator"
	"aircube-go/services/metrics"
	"aircube-go/services/prefs"
	"aircube-go/services/protocol"
	"aircube-go/services/sensor"
	"aircube-go/services/serial"
	"aircube-go/services/state"
	"aircube-go/x/timex"
)

// Deps are the platform parts. Nil fields disable the matching feature.
type Deps struct {
	Config  config.Config
	Logger  log.Logger
	Metrics metrics.Recorder

	I2C   hal.Opener
	Strip indicator.Strip
	Pin   button.Pin
	Prefs prefs.Store
	Dial  serial.Dial
}

type App struct {
	cfg    config.Config
	logger log.Logger
	rec    metrics.Recorder

	Bus       *bus.Bus
	Indicator *state.IndicatorState
	Period    *state.SamplePeriod
	Transport *hal.Transport
	Button    *button.Service

	climate *ens210.Device
	air     *ens16x.Device
	runners []runner
}

type runner struct {
	name string
	run  func(context.Context) error
}

func New(d Deps) *App {
	logger := d.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	a := &App{
		cfg:    d.Config,
		logger: logger,
		rec:    metrics.OrNop(d.Metrics),
		Bus:    bus.NewBus(8),
	}
	g := state.NewGuard(state.DefaultLockTimeout)
	a.Indicator = state.NewIndicatorState(g, button.Levels[button.DefaultIndex])
	a.Period = state.NewSamplePeriod(g, d.Config.Sensor.PeriodMs)
	a.Transport = hal.NewTransport(logger)
	if d.I2C != nil {
		if err := a.Transport.Init(d.I2C); err != nil {
			level.Error(logger).Log("msg", "i2c init failed", "err", err)
		}
	}

	// The saved brightness applies with or without a button.
	a.Button = button.New(d.Pin, d.Prefs, a.Indicator, button.Config{
		Debounce: d.Config.Button.Debounce,
		Invert:   d.Config.Button.Invert,
	}, logger, a.rec)
	a.Button.Load()
	if d.Pin != nil {
		a.add("button", a.Button.Run)
	}

	ind := d.Config.Indicator
	ctl := indicator.NewController(a.Indicator, Mapper(ind), indicator.Options{Tick: timex.PeriodFromHz(50)}, logger, a.rec)
	if d.Strip != nil {
		ren := indicator.NewRenderer(a.Indicator, d.Strip, ind.LEDs, ind.Lit, logger, a.rec)
		task := indicator.NewTask(ctl, ren, a.Bus.NewConnection("indicator"), logger)
		task.Sweep = ind.Sweep
		a.add("indicator", task.Run)
	}

	a.add("sensor", a.runSensor)

	if d.Config.Heartbeat > 0 {
		hb := heartbeat.New(d.Config.Heartbeat, logger, a.stats)
		conn := a.Bus.NewConnection("heartbeat")
		a.add("heartbeat", func(ctx context.Context) error { return hb.Run(ctx, conn) })
	}

	if d.Dial != nil {
		h := protocol.NewHandler(a.Indicator, a.Period, logger, a.rec)
		link := serial.New(d.Dial, h, a.Bus.NewConnection("serial"), serial.Options{Telemetry: d.Config.Serial.Telemetry}, logger)
		a.add("serial", link.Run)
	}
	return a
}

func (a *App) add(name string, run func(context.Context) error) {
	a.runners = append(a.runners, runner{name: name, run: run})
}

func (a *App) stats() []any {
	kv := []any{"i2c_devices", len(a.Transport.Addresses())}
	if a.Button != nil {
		kv = append(kv, "button_index", a.Button.Index(), "button_drops", a.Button.Drops())
	}
	return kv
}

// Mapper builds the configured AQI to hue mapping.
func Mapper(c config.IndicatorConfig) indicator.Mapper {
	if c.Mapping != config.MappingBand {
		return indicator.HueMapper{Low: c.HueLow, High: c.HueHigh}
	}
	m := indicator.NewBandMapper()
	m.Band = c.Band
	if len(c.Bands) > 0 && len(c.Bands) != len(m.Thresholds) {
		m.Hues = make([]uint16, len(c.Bands)+1)
		for i := range m.Hues {
			m.Hues[i] = uint16(int(indicator.HueGreen) - i*int(indicator.HueGreen)/len(c.Bands))
		}
	}
	if len(c.Bands) > 0 {
		m.Thresholds = c.Bands
	}
	return m
}

// runSensor brings up both sensors and then runs the acquisition loop.
// A sensor that cannot be configured is still polled; one whose address
// never got a transport handle is left out.
func (a *App) runSensor(ctx context.Context) error {
	var climate sensor.Climate
	var air sensor.AirQuality
	if a.Transport.Initialized() {
		a.climate = ens210.New(a.Transport, a.logger)
		err := a.climate.Configure(ctx, ens210.Config{Address: a.cfg.Sensor.ENS210})
		if a.usable("ens210", err) {
			climate = a.climate
		}
		a.air = ens16x.New(a.Transport, a.logger)
		err = a.air.Configure(ctx, ens16x.Config{Address: a.cfg.Sensor.ENS16x})
		if a.usable("ens16x", err) {
			air = a.air
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	task := sensor.New(climate, air, a.Period, a.Bus.NewConnection("sensor"), a.logger, a.rec)
	return task.Run(ctx)
}

func (a *App) usable(dev string, err error) bool {
	if err == nil {
		return true
	}
	a.rec.SensorError(dev, string(errcode.Of(err)))
	switch errcode.Of(err) {
	case errcode.DeviceCacheFull, errcode.NotInitialized:
		level.Error(a.logger).Log("msg", "sensor unavailable", "dev", dev, "err", err)
		return false
	}
	level.Warn(a.logger).Log("msg", "sensor setup incomplete, continuing", "dev", dev, "err", err)
	return true
}

// Run starts every task and blocks until ctx is cancelled and all of them
// have returned.
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, r := range a.runners {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			if err := r.run(ctx); err != nil && ctx.Err() == nil {
				level.Error(a.logger).Log("msg", "task exited", "task", r.name, "err", err)
			}
		}(r)
	}
	level.Info(a.logger).Log("msg", "running", "tasks", len(a.runners))
	<-ctx.Done()
	wg.Wait()
	a.shutdown()
	return ctx.Err()
}

// shutdown parks the sensors in their low-power modes.
func (a *App) shutdown() {
	if a.climate != nil {
		if err := a.climate.Close(); err != nil {
			level.Warn(a.logger).Log("msg", "ens210 close failed", "err", err)
		}
	}
	if a.air != nil {
		if err := a.air.Close(); err != nil {
			level.Warn(a.logger).Log("msg", "ens16x close failed", "err", err)
		}
	}
	a.Transport.Close()
	level.Info(a.logger).Log("msg", "stopped", "uptime", time.Duration(timex.UptimeMs())*time.Millisecond)
}

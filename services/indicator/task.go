// Package indicator runs the AQI to colour control loop and the fixed-rate
// render task that drives the LEDs.
package indicator

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/bus"
	"aircube-go/services/state"
	"aircube-go/types"
	"aircube-go/x/ramp"
)

// Task ticks the controller and renderer at a fixed cadence and feeds the
// controller with readings from the bus.
type Task struct {
	ctl    *Controller
	ren    *Renderer
	conn   *bus.Connection
	logger log.Logger

	// Sweep, when positive, plays a green to red to green sweep of this
	// length before normal operation.
	Sweep time.Duration
}

func NewTask(ctl *Controller, ren *Renderer, conn *bus.Connection, logger log.Logger) *Task {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Task{ctl: ctl, ren: ren, conn: conn, logger: log.With(logger, "svc", "indicator")}
}

// Run blocks until ctx is cancelled.
func (t *Task) Run(ctx context.Context) error {
	sub := t.conn.Subscribe(types.TopicReading)
	defer t.conn.Unsubscribe(sub)

	tick := t.ctl.opts.Tick
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	level.Info(t.logger).Log("msg", "started", "mapper", t.ctl.mapper.Name(), "tick", tick)
	if t.Sweep > 0 && !t.sweep(ctx, ticker.C, tick) {
		return ctx.Err()
	}

	readings := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-readings:
			if !ok {
				readings = nil
				continue
			}
			if r, ok := m.Payload.(types.EnvReading); ok {
				t.ctl.Observe(r)
			}
		case <-ticker.C:
			_ = t.ctl.Step()
			if err := t.ren.Frame(); err != nil {
				level.Warn(t.logger).Log("msg", "strip write failed", "err", err)
			}
		}
	}
}

func (t *Task) sweep(ctx context.Context, ticks <-chan time.Time, tick time.Duration) bool {
	legMs := uint32(t.Sweep.Milliseconds() / 2)
	tickMs := max(uint32(tick.Milliseconds()), 1)
	steps := uint16(max(legMs/tickMs, 1))

	wait := func(d time.Duration) bool {
		for waited := time.Duration(0); waited < d; waited += tick {
			select {
			case <-ctx.Done():
				return false
			case <-ticks:
			}
			_ = t.ren.Frame()
		}
		return true
	}
	set := func(h uint16) {
		_ = t.ctl.st.Update(func(in *state.Indicator) {
			in.Hue = float64(h)
			in.TargetHue = h
			in.Pulse = 1
		})
	}
	return ramp.Sequence(HueGreen, 0xFFFF, []ramp.Leg{
		{To: HueRed, DurationMs: legMs, Steps: steps},
		{To: HueGreen, DurationMs: legMs, Steps: steps},
	}, wait, set)
}

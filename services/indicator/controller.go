package indicator

import (
	"math"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/drivers/ens16x"
	"aircube-go/services/metrics"
	"aircube-go/services/state"
	"aircube-go/types"
	"aircube-go/x/mathx"
)

// Options tune the control loop. Zero fields take defaults.
type Options struct {
	Rate        float64       // fraction of the remaining hue gap per tick, default 0.02
	Tick        time.Duration // default 20 ms
	PulsePeriod time.Duration // warm-up pulse, default 1 s
}

func (o Options) withDefaults() Options {
	if o.Rate <= 0 {
		o.Rate = 0.02
	}
	if o.Tick <= 0 {
		o.Tick = 20 * time.Millisecond
	}
	if o.PulsePeriod <= 0 {
		o.PulsePeriod = time.Second
	}
	return o
}

// Controller moves the indicator hue toward the hue chosen by its Mapper.
// While the air-quality sensor is warming up the target is blue and the
// brightness pulses.
type Controller struct {
	st     *state.IndicatorState
	mapper Mapper
	opts   Options
	logger log.Logger
	rec    metrics.Recorder

	warm   bool
	target uint16
	pulseT time.Duration
}

func NewController(st *state.IndicatorState, m Mapper, opts Options, logger log.Logger, rec metrics.Recorder) *Controller {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if m == nil {
		m = DefaultHueMapper()
	}
	return &Controller{
		st:     st,
		mapper: m,
		opts:   opts.withDefaults(),
		logger: logger,
		rec:    metrics.OrNop(rec),
		target: HueGreen,
	}
}

// Observe takes a new reading. Unknown AQI values keep the previous target.
func (c *Controller) Observe(r types.EnvReading) {
	c.warm = r.AirQuality.Status == ens16x.StatusWarmingUp
	if c.warm || r.AirQuality.AQI == ens16x.Unknown {
		return
	}
	t := c.mapper.Target(r.AirQuality.AQI)
	if t != c.target {
		level.Debug(c.logger).Log("msg", "target changed", "mapper", c.mapper.Name(), "aqi", r.AirQuality.AQI, "hue", t)
	}
	c.target = t
}

// Target returns the hue the controller is steering to.
func (c *Controller) Target() uint16 {
	if c.warm {
		return HueBlue
	}
	return c.target
}

// Step advances one tick. The pulse clock runs every tick whether or not
// a new reading arrived.
func (c *Controller) Step() error {
	c.pulseT = (c.pulseT + c.opts.Tick) % c.opts.PulsePeriod
	target := c.Target()
	pulse := 1.0
	if c.warm {
		pulse = Pulse(c.pulseT, c.opts.PulsePeriod)
	}
	err := c.st.Update(func(in *state.Indicator) {
		in.TargetHue = target
		in.Hue = mathx.Approach(in.Hue, float64(target), c.opts.Rate)
		in.Pulse = pulse
	})
	if err != nil {
		level.Warn(c.logger).Log("msg", "indicator locked, skipping control step", "err", err)
		c.rec.LockTimeout("control")
	}
	return err
}

// Pulse is a raised sine over period: 0.5 at t=0, 1 at a quarter period.
func Pulse(t, period time.Duration) float64 {
	if period <= 0 {
		return 1
	}
	phase := float64(t%period) / float64(period)
	return (math.Sin(2*math.Pi*phase) + 1) / 2
}

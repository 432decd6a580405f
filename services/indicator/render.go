package indicator

import (
	"image/color"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/services/metrics"
	"aircube-go/services/state"
)

// Strip is the physical LED output. ws2812.Device satisfies it.
type Strip interface {
	WriteColors(buf []color.RGBA) error
}

// Renderer draws one frame per call from a single state snapshot.
type Renderer struct {
	st     *state.IndicatorState
	strip  Strip
	buf    []color.RGBA
	lit    int
	logger log.Logger
	rec    metrics.Recorder

	last state.Indicator
}

// NewRenderer drives leds pixels, the first lit of which show the indicator
// colour; the rest stay off.
func NewRenderer(st *state.IndicatorState, strip Strip, leds, lit int, logger log.Logger, rec metrics.Recorder) *Renderer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if leds <= 0 {
		leds = 3
	}
	if lit <= 0 || lit > leds {
		lit = leds
	}
	r := &Renderer{
		st:     st,
		strip:  strip,
		buf:    make([]color.RGBA, leds),
		lit:    lit,
		logger: logger,
		rec:    metrics.OrNop(rec),
	}
	if snap, err := st.Snapshot(); err == nil {
		r.last = snap
	}
	return r
}

// Frame writes the strip even when nothing changed. On a lock timeout the
// previous snapshot is drawn again.
func (r *Renderer) Frame() error {
	snap, err := r.st.Snapshot()
	if err != nil {
		level.Warn(r.logger).Log("msg", "indicator locked, skipping update", "err", err)
		r.rec.LockTimeout("render")
		snap = r.last
	}
	r.last = snap

	c := Scale(HSV(HueIndex(snap.Hue), 0xFF, 0xFF), snap.Intensity*snap.Pulse)
	for i := range r.buf {
		if i < r.lit {
			r.buf[i] = c
		} else {
			r.buf[i] = color.RGBA{}
		}
	}
	r.rec.Indicator(snap.Hue, snap.Intensity, snap.Pulse)
	return r.strip.WriteColors(r.buf)
}

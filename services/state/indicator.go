package state

import "aircube-go/x/mathx"

// HueGreen is the hue at start-up.
const HueGreen = 21845

// Indicator is what the render task draws.
type Indicator struct {
	Hue       float64 // current position in [0, 65536)
	TargetHue uint16
	Intensity float64 // user brightness in [0,1]
	Pulse     float64 // animation brightness in [0,1]
}

// IndicatorState guards an Indicator.
type IndicatorState struct {
	g *Guard
	v Indicator
}

// NewIndicatorState starts green, fully pulsed, at the given intensity.
func NewIndicatorState(g *Guard, intensity float64) *IndicatorState {
	if g == nil {
		g = NewGuard(0)
	}
	return &IndicatorState{
		g: g,
		v: Indicator{Hue: HueGreen, TargetHue: HueGreen, Intensity: mathx.Clamp(intensity, 0, 1), Pulse: 1},
	}
}

// Snapshot copies the whole indicator under one lock.
func (s *IndicatorState) Snapshot() (out Indicator, err error) {
	err = s.g.Do("indicator.snapshot", func() { out = s.v })
	return out, err
}

// Update applies fn under the lock. Intensity and Pulse are clamped afterwards.
func (s *IndicatorState) Update(fn func(*Indicator)) error {
	return s.g.Do("indicator.update", func() {
		fn(&s.v)
		s.v.Intensity = mathx.Clamp(s.v.Intensity, 0, 1)
		s.v.Pulse = mathx.Clamp(s.v.Pulse, 0, 1)
	})
}

// SetIntensity clamps v to [0,1], stores it and returns the stored value.
func (s *IndicatorState) SetIntensity(v float64) (float64, error) {
	v = mathx.Clamp(v, 0, 1)
	return v, s.g.Do("indicator.set_intensity", func() { s.v.Intensity = v })
}

func (s *IndicatorState) Intensity() (v float64, err error) {
	err = s.g.Do("indicator.intensity", func() { v = s.v.Intensity })
	return v, err
}

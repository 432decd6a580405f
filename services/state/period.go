package state

import (
	"time"

	"aircube-go/x/mathx"
)

// Sample period bounds in milliseconds.
const (
	MinPeriodMs     = 100
	MaxPeriodMs     = 10000
	DefaultPeriodMs = 1000
)

// SamplePeriod guards the sensor task's sleep between cycles.
type SamplePeriod struct {
	g  *Guard
	ms uint32
}

func NewSamplePeriod(g *Guard, ms uint32) *SamplePeriod {
	if g == nil {
		g = NewGuard(0)
	}
	if ms == 0 {
		ms = DefaultPeriodMs
	}
	return &SamplePeriod{g: g, ms: ClampPeriod(ms)}
}

// ClampPeriod limits ms to [MinPeriodMs, MaxPeriodMs].
func ClampPeriod(ms uint32) uint32 { return mathx.Clamp[uint32](ms, MinPeriodMs, MaxPeriodMs) }

// Set clamps and stores ms, returning the stored value.
func (p *SamplePeriod) Set(ms uint32) (uint32, error) {
	ms = ClampPeriod(ms)
	return ms, p.g.Do("period.set", func() { p.ms = ms })
}

func (p *SamplePeriod) Millis() (ms uint32, err error) {
	err = p.g.Do("period.get", func() { ms = p.ms })
	return ms, err
}

func (p *SamplePeriod) Duration() (time.Duration, error) {
	ms, err := p.Millis()
	return time.Duration(ms) * time.Millisecond, err
}

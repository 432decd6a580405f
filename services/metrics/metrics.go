// Package metrics records appliance counters and gauges. Services depend on
// Recorder; hosts with an HTTP listener use the Prometheus implementation and
// the MCU build uses Nop.
package metrics

import "aircube-go/types"

type Recorder interface {
	ObserveReading(r types.EnvReading)
	SensorError(device, code string)
	LockTimeout(task string)
	Indicator(hue, intensity, pulse float64)
	Command(cmd, status string)
	ButtonPress(index int)
	ButtonDropped()
}

// Nop discards everything.
type Nop struct{}

func (Nop) ObserveReading(types.EnvReading)     {}
func (Nop) SensorError(string, string)          {}
func (Nop) LockTimeout(string)                  {}
func (Nop) Indicator(float64, float64, float64) {}
func (Nop) Command(string, string)              {}
func (Nop) ButtonPress(int)                     {}
func (Nop) ButtonDropped()                      {}

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop{}
	}
	return r
}

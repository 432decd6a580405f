package ramp

import (
	"time"

	"aircube-go/x/mathx"
)

// Step receives each new level in [0..top].
type Step func(level uint16)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear runs a caller-driven integer ramp from cur to to in steps increments.
// steps==0 or durationMs==0 snaps to 'to'. It returns false if tick cancelled it.
func Linear(cur, to, top uint16, durationMs uint32, steps uint16, tick Tick, set Step) bool {
	if steps == 0 || durationMs == 0 {
		set(mathx.Min(to, top))
		return true
	}
	d := int32(to) - int32(cur)
	st := int32(steps)
	acc := int32(0)
	cur32 := int32(cur)
	stepDur := time.Duration(mathx.Max(durationMs/uint32(steps), 1)) * time.Millisecond

	for i := uint16(1); i < steps; i++ {
		if !tick(stepDur) {
			return false
		}
		acc += d
		inc := acc / st
		if inc != 0 {
			acc -= inc * st
			cur32 = mathx.Clamp(cur32+inc, 0, int32(top))
			set(uint16(cur32))
		}
	}
	if !tick(stepDur) {
		return false
	}
	set(mathx.Min(to, top))
	return true
}

// Leg is one segment of a Sequence.
type Leg struct {
	To         uint16
	DurationMs uint32
	Steps      uint16
}

// Sequence runs legs back to back starting at from.
func Sequence(from, top uint16, legs []Leg, tick Tick, set Step) bool {
	cur := from
	set(mathx.Min(cur, top))
	for _, l := range legs {
		if !Linear(cur, l.To, top, l.DurationMs, l.Steps, tick, set) {
			return false
		}
		cur = l.To
	}
	return true
}

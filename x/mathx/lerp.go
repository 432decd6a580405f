package mathx

// Approach moves cur toward target by rate of the remaining gap.
// rate is clamped to [0,1]; it never overshoots a fixed target.
func Approach(cur, target, rate float64) float64 {
	return cur + (target-cur)*Clamp(rate, 0, 1)
}

// ScaleU8 scales an 8-bit channel by f in [0,1] with rounding.
func ScaleU8(v uint8, f float64) uint8 {
	f = Clamp(f, 0, 1)
	return uint8(float64(v)*f + 0.5)
}

package indicator

import (
	"image/color"
	"math"

	"aircube-go/x/mathx"
)

// HSV converts a 16-bit hue plus 8-bit saturation and value to RGB.
// 0 is red, 21845 green, 43690 blue.
func HSV(hue uint16, sat, val uint8) color.RGBA {
	h := (uint32(hue)*1530 + 32768) / 65536
	var r, g, b uint32
	switch {
	case h < 510:
		if h < 255 {
			r, g = 255, h
		} else {
			r, g = 510-h, 255
		}
	case h < 1020:
		if h < 765 {
			g, b = 255, h-510
		} else {
			g, b = 1020-h, 255
		}
	case h < 1530:
		if h < 1275 {
			r, b = h-1020, 255
		} else {
			r, b = 255, 1530-h
		}
	default:
		r = 255
	}
	v1 := 1 + uint32(val)
	s1 := 1 + uint32(sat)
	s2 := 255 - uint32(sat)
	ch := func(c uint32) uint8 { return uint8((((c*s1)>>8 + s2) * v1) >> 8) }
	return color.RGBA{R: ch(r), G: ch(g), B: ch(b), A: 0xFF}
}

// Scale multiplies each channel by f in [0,1].
func Scale(c color.RGBA, f float64) color.RGBA {
	return color.RGBA{R: mathx.ScaleU8(c.R, f), G: mathx.ScaleU8(c.G, f), B: mathx.ScaleU8(c.B, f), A: c.A}
}

// HueIndex wraps a continuous hue position onto the 16-bit wheel.
func HueIndex(pos float64) uint16 {
	p := math.Mod(math.Round(pos), 65536)
	if p < 0 {
		p += 65536
	}
	return uint16(p)
}

package indicator

import "aircube-go/x/mathx"

// Hue constants on the 16-bit colour wheel.
const (
	HueRed    uint16 = 0
	HueYellow uint16 = 10923
	HueGreen  uint16 = 21845
	HueBlue   uint16 = 43690
)

// Mapper turns an air-quality value into a target hue.
type Mapper interface {
	Target(aqi int) uint16
	Name() string
}

// HueMapper interpolates from green at Low to red at High on the AQI-S scale.
type HueMapper struct {
	Low, High int
}

// DefaultHueMapper is the canonical mapping for the ENS16x AQI-S output.
func DefaultHueMapper() HueMapper { return HueMapper{Low: 10, High: 200} }

func (m HueMapper) Name() string { return "hue" }

func (m HueMapper) Target(aqi int) uint16 {
	return mathx.MapU16(aqi, m.Low, m.High, HueGreen, HueRed)
}

// BandMapper picks one of len(Thresholds)+1 discrete hues with hysteresis.
// A reading inside ±Band of a threshold keeps the previous level until it
// clears the band on the far side.
type BandMapper struct {
	Thresholds []int
	Band       int
	Hues       []uint16

	level  int
	primed bool
}

// NewBandMapper returns the 0..100 scale variant: green below 20,
// yellow below 60, red above, with a band of 5.
func NewBandMapper() *BandMapper {
	return &BandMapper{
		Thresholds: []int{20, 60},
		Band:       5,
		Hues:       []uint16{HueGreen, HueYellow, HueRed},
	}
}

func (m *BandMapper) Name() string { return "band" }

func (m *BandMapper) count(v, offset int) int {
	n := 0
	for _, t := range m.Thresholds {
		if v >= t+offset {
			n++
		}
	}
	return n
}

// Level updates and returns the hysteresis level for v.
func (m *BandMapper) Level(v int) int {
	if !m.primed {
		m.level = m.count(v, 0)
		m.primed = true
		return m.level
	}
	up := m.count(v, m.Band)
	down := m.count(v, -m.Band)
	switch {
	case up > m.level:
		m.level = up
	case down < m.level:
		m.level = down
	}
	return m.level
}

func (m *BandMapper) Target(aqi int) uint16 {
	l := m.Level(aqi)
	if l >= len(m.Hues) {
		l = len(m.Hues) - 1
	}
	return m.Hues[l]
}

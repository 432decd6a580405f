package types

import "aircube-go/drivers/ens16x"

// Climate is the temperature/humidity part of a reading.
type Climate struct {
	Status     uint8 // ENS210 SYS_STAT
	Celsius    float64
	Fahrenheit float64
	Humidity   float64 // %RH
}

// AirQuality is the air-quality part of a reading. Unknown fields are -1.
type AirQuality struct {
	Status ens16x.Status
	TVOC   int // ppb
	ECO2   int // ppm
	AQI    int // AQI-S
	AQIUBA int
}

// EnvReading is published (retained) once per sensor cycle.
type EnvReading struct {
	Climate    Climate
	AirQuality AirQuality
	TS         uint32 // ms since start
}

//go:build !rp2040

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"aircube-go/drivers/ens16x"
	"aircube-go/types"
)

func TestPromRecordsReading(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm(reg)

	p.ObserveReading(types.EnvReading{
		Climate:    types.Climate{Celsius: 21.5, Fahrenheit: 70.7, Humidity: 40},
		AirQuality: types.AirQuality{Status: ens16x.StatusWarmingUp, TVOC: 120, ECO2: ens16x.Unknown, AQI: 30, AQIUBA: 2},
	})
	require.Equal(t, 21.5, testutil.ToFloat64(p.temperature.WithLabelValues("celsius")))
	require.Equal(t, 40.0, testutil.ToFloat64(p.humidity))
	require.Equal(t, 120.0, testutil.ToFloat64(p.air.WithLabelValues("tvoc")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.airStatus.WithLabelValues("Warming Up")))
	require.Equal(t, 0.0, testutil.ToFloat64(p.airStatus.WithLabelValues("OK")))

	// Unknown values are not exported.
	n, err := testutil.GatherAndCount(reg, "aircube_air_quality")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestPromCounters(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())
	p.Command("set_intensity", "ok")
	p.Command("set_intensity", "ok")
	p.ButtonPress(3)
	p.SensorError("ens210", "invalid_reading")

	require.Equal(t, 2.0, testutil.ToFloat64(p.commands.WithLabelValues("set_intensity", "ok")))
	require.Equal(t, 3.0, testutil.ToFloat64(p.brightness))
	require.Equal(t, 1.0, testutil.ToFloat64(p.sensorErrs.WithLabelValues("ens210", "invalid_reading")))
	require.Equal(t, Nop{}, OrNop(nil))
}

//go:build !rp2040

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"aircube-go/drivers/ens16x"
	"aircube-go/types"
)

const metricsNamespace = "aircube"

// Prom is a Recorder backed by Prometheus collectors.
type Prom struct {
	temperature *prometheus.GaugeVec
	humidity    prometheus.Gauge
	air         *prometheus.GaugeVec
	airStatus   *prometheus.GaugeVec
	sensorErrs  *prometheus.CounterVec
	lockTimeout *prometheus.CounterVec
	indicator   *prometheus.GaugeVec
	commands    *prometheus.CounterVec
	presses     prometheus.Counter
	brightness  prometheus.Gauge
	drops       prometheus.Counter
}

var _ Recorder = (*Prom)(nil)

// NewProm registers the collectors with reg.
func NewProm(reg prometheus.Registerer) *Prom {
	f := promauto.With(reg)
	return &Prom{
		temperature: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "temperature",
			Help:      "Air temperature from the ENS210.",
		}, []string{"unit"}),
		humidity: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "humidity_percent",
			Help:      "Relative humidity from the ENS210.",
		}),
		air: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "air_quality",
			Help:      "ENS16x outputs (tvoc ppb, eco2 ppm, aqi, aqi_uba).",
		}, []string{"kind"}),
		airStatus: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "air_quality_status",
			Help:      "1 for the current ENS16x validity status.",
		}, []string{"status"}),
		sensorErrs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sensor_errors_total",
			Help:      "Sensor cycle errors by device and code.",
		}, []string{"device", "code"}),
		lockTimeout: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lock_timeouts_total",
			Help:      "Shared state accesses skipped after a lock timeout.",
		}, []string{"task"}),
		indicator: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "indicator",
			Help:      "Indicator hue position, intensity and pulse.",
		}, []string{"field"}),
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "commands_total",
			Help:      "Line protocol commands by name and result.",
		}, []string{"cmd", "status"}),
		presses: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "button_presses_total",
			Help:      "Accepted button presses.",
		}),
		brightness: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "brightness_index",
			Help:      "Current brightness table index.",
		}),
		drops: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "button_events_dropped_total",
			Help:      "Button edges dropped because the queue was full.",
		}),
	}
}

func (p *Prom) ObserveReading(r types.EnvReading) {
	p.temperature.WithLabelValues("celsius").Set(r.Climate.Celsius)
	p.temperature.WithLabelValues("fahrenheit").Set(r.Climate.Fahrenheit)
	p.humidity.Set(r.Climate.Humidity)

	aq := r.AirQuality
	for kind, v := range map[string]int{"tvoc": aq.TVOC, "eco2": aq.ECO2, "aqi": aq.AQI, "aqi_uba": aq.AQIUBA} {
		if v != ens16x.Unknown {
			p.air.WithLabelValues(kind).Set(float64(v))
		}
	}
	for _, s := range []ens16x.Status{ens16x.StatusOK, ens16x.StatusWarmingUp, ens16x.StatusReserved, ens16x.StatusNoValidOutput} {
		v := 0.0
		if s == aq.Status {
			v = 1
		}
		p.airStatus.WithLabelValues(s.String()).Set(v)
	}
}

func (p *Prom) SensorError(device, code string) { p.sensorErrs.WithLabelValues(device, code).Inc() }
func (p *Prom) LockTimeout(task string)         { p.lockTimeout.WithLabelValues(task).Inc() }

func (p *Prom) Indicator(hue, intensity, pulse float64) {
	p.indicator.WithLabelValues("hue").Set(hue)
	p.indicator.WithLabelValues("intensity").Set(intensity)
	p.indicator.WithLabelValues("pulse").Set(pulse)
}

func (p *Prom) Command(cmd, status string) { p.commands.WithLabelValues(cmd, status).Inc() }

func (p *Prom) ButtonPress(index int) {
	p.presses.Inc()
	p.brightness.Set(float64(index))
}

func (p *Prom) ButtonDropped() { p.drops.Inc() }

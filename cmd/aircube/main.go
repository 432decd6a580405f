//go:build linux && !rp2040

// Command aircube runs the air-quality indicator on a Linux single-board
// computer: sensors on a periph.io I2C bus, the button on a GPIO through
// go-rpio, commands and telemetry on stdio or a tty.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aircube-go/app"
	"aircube-go/services/button"
	"aircube-go/services/config"
	"aircube-go/services/hal"
	"aircube-go/services/metrics"
	"aircube-go/services/prefs"
)

func main() {
	var cfg config.Config
	cfg.RegisterFlagsAndApplyDefaults("", flag.CommandLine)
	configFile := flag.String("config.file", "", "YAML configuration file.")
	flag.Parse()

	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			os.Stderr.WriteString("aircube: " + err.Error() + "\n")
			os.Exit(2)
		}
	}

	logger := newLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		level.Error(logger).Log("msg", "invalid configuration", "err", err)
		os.Exit(2)
	}

	deps := app.Deps{
		Config: cfg,
		Logger: logger,
		Prefs:  prefs.NewFileStore(cfg.Prefs.Path, prefs.DefaultNamespace),
		Strip:  &logStrip{logger: log.With(logger, "svc", "strip")},
		Dial:   dialer(cfg.Serial.Device, os.Stdin, os.Stdout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Listen != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		deps.Metrics = metrics.NewProm(reg)
		go serveMetrics(ctx, cfg.Metrics.Listen, reg, logger)
	}

	// Without the bus nothing useful can run.
	i2cBus, err := hal.OpenPeriph(cfg.I2C.Bus)
	if err != nil {
		level.Error(logger).Log("msg", "i2c bus unavailable", "bus", cfg.I2C.Bus, "err", err)
		os.Exit(1)
	}
	defer i2cBus.Close()
	deps.I2C = hal.PeriphBus{Bus: i2cBus}

	pin, err := button.OpenRPIO(cfg.Button.Pin, cfg.Button.Invert)
	if err != nil {
		level.Warn(logger).Log("msg", "gpio unavailable, button disabled", "err", err)
	} else {
		defer pin.Close()
		deps.Pin = pin
	}

	a := app.New(deps)
	if deps.Pin != nil {
		go pin.Watch(ctx, uint8(cfg.Button.Pin), 0, a.Button.Notify)
	}
	_ = a.Run(ctx)
}

func newLogger(lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(os.Stderr))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	level.Info(logger).Log("msg", "metrics listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		level.Error(logger).Log("msg", "metrics server failed", "err", err)
	}
}

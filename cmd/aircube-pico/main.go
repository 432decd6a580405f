//go:build rp2040

// Command aircube-pico is the board build: ENS210 and ENS16x on I2C0, a
// WS2812 strip, the brightness button on an edge interrupt, preferences in
// flash and the command link on UART0. Logs go to USB CDC.
package main

import (
	"context"
	"machine"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	uartx "github.com/jangala-dev/tinygo-uartx"
	"tinygo.org/x/drivers/ws2812"

	"aircube-go/app"
	"aircube-go/services/config"
	"aircube-go/services/hal"
	"aircube-go/services/prefs"
)

func main() {
	// Allow USB CDC to enumerate before logging.
	time.Sleep(2 * time.Second)

	cfg, err := config.LoadEmbedded("pico")
	logger := log.NewLogfmtLogger(log.NewSyncWriter(machine.Serial))
	logger = level.NewFilter(logger, level.Allow(level.ParseDefault(cfg.LogLevel, level.InfoValue())))
	if err != nil {
		level.Error(logger).Log("msg", "embedded config rejected, using defaults", "err", err)
		cfg = config.Default()
	}

	err = machine.I2C0.Configure(machine.I2CConfig{
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
		Frequency: 400 * machine.KHz,
	})
	if err != nil {
		// Nothing starts without the bus.
		level.Error(logger).Log("msg", "i2c0 configure failed", "err", err)
		select {}
	}
	owner := hal.NewOwner(machine.I2C0, cfg.I2C.TxTimeout)

	ledPin := machine.Pin(cfg.Indicator.Pin)
	ledPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	strip := ws2812.New(ledPin)

	btn := machine.Pin(cfg.Button.Pin)
	mode, edge := machine.PinInputPulldown, machine.PinRising
	if cfg.Button.Invert {
		mode, edge = machine.PinInputPullup, machine.PinFalling
	}
	btn.Configure(machine.PinConfig{Mode: mode})

	deps := app.Deps{
		Config: cfg,
		Logger: logger,
		I2C:    hal.DriverBus{I2C: owner},
		Strip:  &strip,
		Pin:    btn,
		Prefs:  prefs.NewBlockStore(machine.Flash),
	}
	err = uartx.UART0.Configure(uartx.UARTConfig{
		BaudRate: 115200,
		TX:       machine.UART0_TX_PIN,
		RX:       machine.UART0_RX_PIN,
	})
	if err != nil {
		level.Error(logger).Log("msg", "uart0 configure failed, command link disabled", "err", err)
	} else {
		deps.Dial = dialUART(uartx.UART0)
	}

	a := app.New(deps)

	if err := btn.SetInterrupt(edge, func(p machine.Pin) { a.Button.Notify(uint8(p)) }); err != nil {
		level.Error(logger).Log("msg", "button interrupt unavailable", "err", err)
	}

	_ = a.Run(context.Background())
}

// Package config holds the appliance settings. Defaults come from flags
// registered with RegisterFlagsAndApplyDefaults; a YAML file (host) or an
// embedded per-board document (MCU) overrides them.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

type Config struct {
	LogLevel  string        `yaml:"log_level"`
	Heartbeat time.Duration `yaml:"heartbeat"` // 0 disables

	I2C       I2CConfig       `yaml:"i2c"`
	Button    ButtonConfig    `yaml:"button"`
	Indicator IndicatorConfig `yaml:"indicator"`
	Sensor    SensorConfig    `yaml:"sensor"`
	Prefs     PrefsConfig     `yaml:"prefs"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Serial    SerialConfig    `yaml:"serial"`
}

type I2CConfig struct {
	Bus       string        `yaml:"bus"` // periph bus name; "" picks the first
	TxTimeout time.Duration `yaml:"tx_timeout"`
}

type ButtonConfig struct {
	Pin      int           `yaml:"pin"`
	Invert   bool          `yaml:"invert"`
	Debounce time.Duration `yaml:"debounce"`
}

type IndicatorConfig struct {
	Pin     int           `yaml:"pin"` // strip data pin, board builds only
	LEDs    int           `yaml:"leds"`
	Lit     int           `yaml:"lit"`
	Mapping string        `yaml:"mapping"` // hue | band
	HueLow  int           `yaml:"hue_low"`
	HueHigh int           `yaml:"hue_high"`
	Bands   []int         `yaml:"bands"`
	Band    int           `yaml:"band"`
	Sweep   time.Duration `yaml:"sweep"`
}

type SensorConfig struct {
	PeriodMs uint32 `yaml:"period_ms"`
	ENS210   uint16 `yaml:"ens210_address"`
	ENS16x   uint16 `yaml:"ens16x_address"`
}

type PrefsConfig struct {
	Path string `yaml:"path"`
}

type MetricsConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

type SerialConfig struct {
	Device    string `yaml:"device"` // empty means stdio
	Telemetry bool   `yaml:"telemetry"`
}

const (
	MappingHue  = "hue"
	MappingBand = "band"
)

func prefixConfig(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

func (c *Config) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.LogLevel, prefixConfig(prefix, "log.level"), "info", "Log level: debug, info, warn or error.")
	f.DurationVar(&c.Heartbeat, prefixConfig(prefix, "log.heartbeat"), time.Minute, "Health log interval; 0 disables it.")
	c.I2C.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "i2c"), f)
	c.Button.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "button"), f)
	c.Indicator.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "indicator"), f)
	c.Sensor.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "sensor"), f)
	c.Prefs.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "prefs"), f)
	c.Metrics.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "metrics"), f)
	c.Serial.RegisterFlagsAndApplyDefaults(prefixConfig(prefix, "serial"), f)
}

func (c *I2CConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.Bus, prefixConfig(prefix, "bus"), "", "I2C bus name.")
	f.DurationVar(&c.TxTimeout, prefixConfig(prefix, "tx-timeout"), time.Second, "Per-transaction timeout.")
}

func (c *ButtonConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.Pin, prefixConfig(prefix, "pin"), 17, "Brightness button GPIO.")
	f.BoolVar(&c.Invert, prefixConfig(prefix, "invert"), false, "Button reads low when pressed.")
	f.DurationVar(&c.Debounce, prefixConfig(prefix, "debounce"), 50*time.Millisecond, "Minimum interval between accepted presses.")
}

func (c *IndicatorConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.IntVar(&c.Pin, prefixConfig(prefix, "pin"), 16, "Strip data GPIO.")
	f.IntVar(&c.LEDs, prefixConfig(prefix, "leds"), 3, "LEDs on the strip.")
	f.IntVar(&c.Lit, prefixConfig(prefix, "lit"), 3, "LEDs driven; the rest stay off.")
	f.StringVar(&c.Mapping, prefixConfig(prefix, "mapping"), MappingHue, "AQI to hue mapping: hue or band.")
	f.IntVar(&c.HueLow, prefixConfig(prefix, "hue-low"), 10, "AQI at or below which the hue is green.")
	f.IntVar(&c.HueHigh, prefixConfig(prefix, "hue-high"), 200, "AQI at or above which the hue is red.")
	f.IntVar(&c.Band, prefixConfig(prefix, "band"), 5, "Hysteresis half-width for the band mapping.")
	f.DurationVar(&c.Sweep, prefixConfig(prefix, "sweep"), 0, "Startup colour sweep length; 0 disables it.")
	c.Bands = []int{20, 60}
}

func (c *SensorConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	c.PeriodMs, c.ENS210, c.ENS16x = 1000, 0x43, 0x52
	f.Func(prefixConfig(prefix, "period-ms"), "Sample period in milliseconds (100..10000, default 1000).", func(s string) error {
		v, err := strconv.ParseUint(s, 0, 32)
		c.PeriodMs = uint32(v)
		return err
	})
	f.Func(prefixConfig(prefix, "ens210-address"), "ENS210 address (default 0x43).", addrFlag(&c.ENS210))
	f.Func(prefixConfig(prefix, "ens16x-address"), "ENS16x address (default 0x52).", addrFlag(&c.ENS16x))
}

func addrFlag(p *uint16) func(string) error {
	return func(s string) error {
		v, err := strconv.ParseUint(s, 0, 7)
		if err != nil {
			return err
		}
		*p = uint16(v)
		return nil
	}
}

func (c *PrefsConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.Path, prefixConfig(prefix, "path"), "aircube-prefs.yaml", "Preferences file.")
}

func (c *MetricsConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.Listen, prefixConfig(prefix, "listen"), "", "Prometheus listen address, e.g. :9100.")
}

func (c *SerialConfig) RegisterFlagsAndApplyDefaults(prefix string, f *flag.FlagSet) {
	f.StringVar(&c.Device, prefixConfig(prefix, "device"), "", "Serial device; empty uses stdin/stdout.")
	f.BoolVar(&c.Telemetry, prefixConfig(prefix, "telemetry"), true, "Write a telemetry line per reading.")
}

// Validate checks values that flags and YAML cannot constrain.
func (c *Config) Validate() error {
	switch c.Indicator.Mapping {
	case MappingHue:
		if c.Indicator.HueHigh <= c.Indicator.HueLow {
			return errors.Errorf("indicator: hue_high %d must exceed hue_low %d", c.Indicator.HueHigh, c.Indicator.HueLow)
		}
	case MappingBand:
		if len(c.Indicator.Bands) == 0 {
			return errors.New("indicator: band mapping needs at least one threshold")
		}
		for i := 1; i < len(c.Indicator.Bands); i++ {
			if c.Indicator.Bands[i] <= c.Indicator.Bands[i-1] {
				return errors.New("indicator: bands must be ascending")
			}
		}
	default:
		return errors.Errorf("indicator: unknown mapping %q", c.Indicator.Mapping)
	}
	if c.Indicator.LEDs <= 0 || c.Indicator.Lit < 0 || c.Indicator.Lit > c.Indicator.LEDs {
		return errors.Errorf("indicator: lit %d of %d leds", c.Indicator.Lit, c.Indicator.LEDs)
	}
	if c.Sensor.ENS210 > 0x7f || c.Sensor.ENS16x > 0x7f {
		return errors.New("sensor: i2c addresses are 7-bit")
	}
	return nil
}

// LoadFile overlays the YAML file on c. Unknown keys are errors.
func (c *Config) LoadFile(file string) error {
	filename, _ := filepath.Abs(file)
	b, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "failed to read config file")
	}
	return errors.Wrap(c.Load(b), "failed to load yaml file")
}

// Load overlays a YAML document on c.
func (c *Config) Load(b []byte) error {
	return yaml.UnmarshalStrict(b, c)
}

// Default returns a Config holding the flag defaults.
func Default() Config {
	var c Config
	c.RegisterFlagsAndApplyDefaults("", flag.NewFlagSet("defaults", flag.ContinueOnError))
	return c
}

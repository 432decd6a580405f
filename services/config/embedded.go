package config

import "github.com/pkg/errors"

// Boards without a filesystem take their settings from a document compiled
// into the image, keyed by board name.

const cfgPico = `
log_level: info
button:
  pin: 15
indicator:
  leds: 8
  lit: 3
  mapping: hue
sensor:
  period_ms: 1000
serial:
  telemetry: true
`

var embeddedConfigs = map[string]string{
	"pico": cfgPico,
}

// EmbeddedLookup resolves a board's document. Tests may replace it.
var EmbeddedLookup = func(board string) (string, bool) {
	s, ok := embeddedConfigs[board]
	return s, ok
}

// LoadEmbedded returns the defaults overlaid with the board's document.
func LoadEmbedded(board string) (Config, error) {
	c := Default()
	doc, ok := EmbeddedLookup(board)
	if !ok {
		return c, errors.Errorf("no embedded config for board %q", board)
	}
	if err := c.Load([]byte(doc)); err != nil {
		return c, errors.Wrapf(err, "embedded config for %q", board)
	}
	return c, c.Validate()
}

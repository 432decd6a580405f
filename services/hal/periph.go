//go:build !rp2040

package hal

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// PeriphBus adapts a periph.io i2c.Bus to an Opener.
type PeriphBus struct {
	Bus i2c.Bus
}

func (b PeriphBus) Open(addr uint16) (Handle, error) {
	if b.Bus == nil {
		return nil, errors.New("periph: nil bus")
	}
	return &i2c.Dev{Bus: b.Bus, Addr: addr}, nil
}

// OpenPeriph initialises the host drivers and opens the named bus.
// An empty name selects the first bus available.
func OpenPeriph(name string) (i2c.BusCloser, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}
	b, err := i2creg.Open(name)
	if err != nil {
		return nil, errors.Wrapf(err, "open i2c bus %q", name)
	}
	return b, nil
}

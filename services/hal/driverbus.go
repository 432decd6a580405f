package hal

import "tinygo.org/x/drivers"

// DriverBus adapts a tinygo drivers.I2C to an Opener. Opening an address
// issues no bus traffic.
type DriverBus struct {
	I2C drivers.I2C
}

func (b DriverBus) Open(addr uint16) (Handle, error) {
	return driverHandle{bus: b.I2C, addr: addr}, nil
}

type driverHandle struct {
	bus  drivers.I2C
	addr uint16
}

func (h driverHandle) Tx(w, r []byte) error { return h.bus.Tx(h.addr, w, r) }

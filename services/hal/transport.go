// Package hal owns the I2C bus and the per-address device handles used by
// the sensor drivers.
package hal

import (
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/errcode"
	"aircube-go/x/conv"
)

// CacheSlots is the fixed number of device handles the transport will hold.
const CacheSlots = 4

// Handle is an address-bound device on the bus.
// Tx writes w then, if r is non-empty, reads len(r) bytes with a repeated start.
type Handle interface {
	Tx(w, r []byte) error
}

// Opener registers a device address on a bus and returns its handle.
type Opener interface {
	Open(addr uint16) (Handle, error)
}

type slot struct {
	used bool
	addr uint16
	h    Handle
}

// Transport resolves addresses to cached handles and performs address-scoped
// reads and writes. Handles are never evicted; a new address with no free
// slot fails with errcode.DeviceCacheFull.
//
// Transport only guards its cache. Callers sharing one device from several
// goroutines must arrange their own exclusion (see Owner).
type Transport struct {
	logger log.Logger

	mu      sync.Mutex
	bus     Opener
	slots   [CacheSlots]slot
	refused map[uint16]struct{}
}

func NewTransport(logger log.Logger) *Transport {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Transport{
		logger:  log.With(logger, "svc", "i2c"),
		refused: map[uint16]struct{}{},
	}
}

// Init binds the bus. It must be called once before Write or Read.
func (t *Transport) Init(bus Opener) error {
	if bus == nil {
		return errcode.New(errcode.NotInitialized, "i2c.init", "nil bus")
	}
	t.mu.Lock()
	t.bus = bus
	t.mu.Unlock()
	level.Info(t.logger).Log("msg", "bus ready", "slots", CacheSlots)
	return nil
}

// Initialized reports whether Init has been called.
func (t *Transport) Initialized() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.bus != nil
}

func (t *Transport) handle(op string, addr uint16) (Handle, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bus == nil {
		return nil, errcode.New(errcode.NotInitialized, op, "bus not initialised")
	}
	free := -1
	for i := range t.slots {
		s := &t.slots[i]
		if s.used && s.addr == addr {
			return s.h, nil
		}
		if !s.used && free < 0 {
			free = i
		}
	}
	if free < 0 {
		if _, seen := t.refused[addr]; !seen {
			t.refused[addr] = struct{}{}
			level.Error(t.logger).Log("msg", "device cache full", "addr", hexAddr(addr))
		}
		return nil, errcode.New(errcode.DeviceCacheFull, op, hexAddr(addr))
	}
	h, err := t.bus.Open(addr)
	if err != nil {
		return nil, errcode.Wrap(errcode.TransportError, op, err)
	}
	t.slots[free] = slot{used: true, addr: addr, h: h}
	level.Debug(t.logger).Log("msg", "device added", "addr", hexAddr(addr), "slot", free)
	return h, nil
}

// Write sends w to the device at addr.
func (t *Transport) Write(addr uint16, w []byte) error {
	h, err := t.handle("i2c.write", addr)
	if err != nil {
		return err
	}
	if err := h.Tx(w, nil); err != nil {
		level.Debug(t.logger).Log("msg", "write failed", "addr", hexAddr(addr), "err", err)
		return errcode.Wrap(errcode.TransportError, "i2c.write", err)
	}
	return nil
}

// Read writes reg then reads len(out) bytes from the device at addr.
func (t *Transport) Read(addr uint16, reg, out []byte) error {
	h, err := t.handle("i2c.read", addr)
	if err != nil {
		return err
	}
	if err := h.Tx(reg, out); err != nil {
		level.Debug(t.logger).Log("msg", "read failed", "addr", hexAddr(addr), "err", err)
		return errcode.Wrap(errcode.TransportError, "i2c.read", err)
	}
	return nil
}

// Addresses lists the cached device addresses in slot order.
func (t *Transport) Addresses() []uint16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []uint16
	for _, s := range t.slots {
		if s.used {
			out = append(out, s.addr)
		}
	}
	return out
}

// Close forgets the bus and every cached handle.
func (t *Transport) Close() {
	t.mu.Lock()
	t.bus = nil
	t.slots = [CacheSlots]slot{}
	t.refused = map[uint16]struct{}{}
	t.mu.Unlock()
}

func hexAddr(a uint16) string { return string(conv.AppendHex(nil, uint32(a), 2)) }

//go:build linux && !rp2040

package button

import (
	"context"
	"time"

	"github.com/stianeikeland/go-rpio"
)

// RPIOPin is a Raspberry Pi GPIO input read through go-rpio.
type RPIOPin struct {
	pin    rpio.Pin
	invert bool
}

// OpenRPIO maps GPIO memory and configures n as an input, pulled away from
// its pressed level.
func OpenRPIO(n int, invert bool) (*RPIOPin, error) {
	if err := rpio.Open(); err != nil {
		return nil, err
	}
	p := rpio.Pin(n)
	p.Input()
	if invert {
		p.PullUp()
	} else {
		p.PullDown()
	}
	return &RPIOPin{pin: p, invert: invert}, nil
}

func (p *RPIOPin) Get() bool { return p.pin.Read() == rpio.High }

// Watch samples the pin every interval and calls notify on each transition
// to the pressed level, until ctx is cancelled. It plays the part of the
// edge interrupt on boards that have one.
func (p *RPIOPin) Watch(ctx context.Context, id uint8, every time.Duration, notify func(uint8)) {
	if every <= 0 {
		every = 5 * time.Millisecond
	}
	t := time.NewTicker(every)
	defer t.Stop()
	was := p.Get() != p.invert
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pressed := p.Get() != p.invert
			if pressed && !was {
				notify(id)
			}
			was = pressed
		}
	}
}

// Close unmaps GPIO memory.
func (p *RPIOPin) Close() error { return rpio.Close() }

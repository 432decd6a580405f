//go:build linux && !rp2040

package main

import (
	"image/color"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/x/conv"
)

// logStrip stands in for LEDs on hosts without a strip. It logs the first
// pixel whenever it changes.
type logStrip struct {
	logger log.Logger
	last   color.RGBA
	seen   bool
}

func (s *logStrip) WriteColors(buf []color.RGBA) error {
	if len(buf) == 0 {
		return nil
	}
	if s.seen && buf[0] == s.last {
		return nil
	}
	s.last, s.seen = buf[0], true
	c := uint32(buf[0].R)<<16 | uint32(buf[0].G)<<8 | uint32(buf[0].B)
	level.Debug(s.logger).Log("msg", "colour", "rgb", string(conv.AppendHex(nil, c, 6)))
	return nil
}

//go:build linux && !rp2040

package main

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"syscall"

	"aircube-go/services/serial"
)

// dialer opens the tty at path, or wraps in/out when path is empty.
// The tty's line settings are left as the system configured them.
// Once stdin reaches EOF the stdio link is not redialled.
func dialer(path string, in io.Reader, out io.Writer) serial.Dial {
	if path == "" {
		s := &stdio{in: in, out: out}
		return func(context.Context) (io.ReadWriteCloser, error) {
			if s.eof.Load() {
				return nil, serial.ErrClosed
			}
			return s, nil
		}
	}
	return func(context.Context) (io.ReadWriteCloser, error) {
		return os.OpenFile(path, os.O_RDWR|syscall.O_NOCTTY, 0)
	}
}

type stdio struct {
	in  io.Reader
	out io.Writer
	eof atomic.Bool
}

func (s *stdio) Read(p []byte) (int, error) {
	n, err := s.in.Read(p)
	if err == io.EOF {
		s.eof.Store(true)
	}
	return n, err
}

func (s *stdio) Write(p []byte) (int, error) { return s.out.Write(p) }
func (s *stdio) Close() error                { return nil }

//go:build rp2040

package main

import (
	"context"
	"io"

	uartx "github.com/jangala-dev/tinygo-uartx"
)

// uartLink reads with the dial context so a cancelled link stops blocking.
type uartLink struct {
	ctx context.Context
	u   *uartx.UART
}

func (l uartLink) Read(p []byte) (int, error)  { return l.u.RecvSomeContext(l.ctx, p) }
func (l uartLink) Write(p []byte) (int, error) { return l.u.Write(p) }
func (l uartLink) Close() error                { return nil }

func dialUART(u *uartx.UART) func(context.Context) (io.ReadWriteCloser, error) {
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		return uartLink{ctx: ctx, u: u}, nil
	}
}

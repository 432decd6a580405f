// Package state holds the values shared between the sensor, render, command
// and button tasks. Every access takes a bounded-wait lock; on timeout the
// access is skipped and errcode.LockTimeout is returned so the caller can
// keep using its previous value.
package state

import (
	"time"

	"aircube-go/errcode"
)

// DefaultLockTimeout bounds every wait on a Guard.
const DefaultLockTimeout = 100 * time.Millisecond

// Guard is a mutex with a bounded Acquire.
type Guard struct {
	ch      chan struct{}
	timeout time.Duration
}

func NewGuard(timeout time.Duration) *Guard {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &Guard{ch: make(chan struct{}, 1), timeout: timeout}
}

// Acquire waits up to the guard's timeout.
func (g *Guard) Acquire() bool {
	select {
	case g.ch <- struct{}{}:
		return true
	default:
	}
	t := time.NewTimer(g.timeout)
	defer t.Stop()
	select {
	case g.ch <- struct{}{}:
		return true
	case <-t.C:
		return false
	}
}

func (g *Guard) Release() { <-g.ch }

// Do runs fn under the guard or returns errcode.LockTimeout.
func (g *Guard) Do(op string, fn func()) error {
	if !g.Acquire() {
		return errcode.New(errcode.LockTimeout, op, "")
	}
	defer g.Release()
	fn()
	return nil
}

package errcode

import "github.com/pkg/errors"

// Code is a stable error identifier shared by drivers, tasks and the line protocol.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	TransportError   Code = "transport_error"
	DeviceCacheFull  Code = "device_cache_full"
	NotInitialized   Code = "not_initialized"
	InvalidReading   Code = "invalid_reading"
	ModeChangeFailed Code = "mode_change_failed"
	ProtocolError    Code = "protocol_error"
	LockTimeout      Code = "lock_timeout"
	Timeout          Code = "timeout"

	Error Code = "error" // generic fallback
)

// E keeps a Code together with context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Wrap attaches a code and operation name to err. A nil err stays nil.
func Wrap(c Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &E{C: c, Op: op, Err: err}
}

// New returns an *E without a cause.
func New(c Code, op, msg string) error {
	return &E{C: c, Op: op, Msg: msg}
}

// Of extracts a Code from an error, looking through wrapping. Defaults to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	for e := err; e != nil; {
		switch x := e.(type) {
		case Code:
			return x
		case coder:
			return x.Code()
		}
		next := errors.Unwrap(e)
		if next == nil {
			// pkg/errors wrappers expose Cause rather than Unwrap in older releases.
			if c := errors.Cause(e); c != e {
				next = c
			}
		}
		e = next
	}
	return Error
}

// Is reports whether err carries code c.
func Is(err error, c Code) bool { return Of(err) == c }

package protocol

import "bytes"

// DefaultCapacity is the size of the receive buffer.
const DefaultCapacity = 256

// Framer accumulates input and splits it into messages. A message ends at
// the first newline; without one, at the last '}' seen. Bytes after the
// boundary stay buffered. If the buffer fills without any boundary it is
// discarded.
type Framer struct {
	buf       []byte
	capacity  int
	overflows int
}

func NewFramer(capacity int) *Framer {
	if capacity < 16 {
		capacity = DefaultCapacity
	}
	return &Framer{buf: make([]byte, 0, capacity), capacity: capacity}
}

// Feed appends p and calls emit for every complete message, in order.
// It returns the number of overflow resets caused by p.
func (f *Framer) Feed(p []byte, emit func(msg []byte)) int {
	resets := 0
	for len(p) > 0 {
		// One byte of the capacity is kept free, as a C string buffer would.
		n := min(f.capacity-1-len(f.buf), len(p))
		f.buf = append(f.buf, p[:n]...)
		p = p[n:]

		for {
			msg, ok := f.next()
			if !ok {
				break
			}
			emit(msg)
		}
		if len(f.buf) >= f.capacity-1 {
			f.buf = f.buf[:0]
			f.overflows++
			resets++
		}
	}
	return resets
}

// next extracts one message and shifts the remainder to the front.
func (f *Framer) next() ([]byte, bool) {
	var end, skip int
	if i := bytes.IndexByte(f.buf, '\n'); i >= 0 {
		end, skip = i, 1
	} else if i := bytes.LastIndexByte(f.buf, '}'); i >= 0 {
		end, skip = i+1, 0
	} else {
		return nil, false
	}
	msg := bytes.TrimRight(f.buf[:end], "\r")
	out := make([]byte, len(msg))
	copy(out, msg)
	rest := copy(f.buf, f.buf[end+skip:])
	f.buf = f.buf[:rest]
	return out, true
}

// Buffered returns the number of bytes waiting for a boundary.
func (f *Framer) Buffered() int { return len(f.buf) }

// Overflows returns the total number of overflow resets.
func (f *Framer) Overflows() int { return f.overflows }

// Package ring is a single-producer single-consumer byte ring. Indices are
// monotonic and only the low bits address the buffer, so the size must be a
// power of two. Readable and Writable fire on the empty to non-empty and
// full to non-full edges; both are coalesced to one pending token.
package ring

import "sync/atomic"

type Ring struct {
	buf  []byte
	mask uint32
	rd   atomic.Uint32 // consumer
	wr   atomic.Uint32 // producer

	readable chan struct{}
	writable chan struct{}
}

// New panics unless size is a power of two of at least 2.
func New(size int) *Ring {
	if size < 2 || size&(size-1) != 0 {
		panic("ring: size must be a power of two >= 2")
	}
	return &Ring{
		buf:      make([]byte, size),
		mask:     uint32(size - 1),
		readable: make(chan struct{}, 1),
		writable: make(chan struct{}, 1),
	}
}

func (r *Ring) Cap() int { return len(r.buf) }

// Space is the number of bytes the producer may write.
func (r *Ring) Space() int { return len(r.buf) - r.Available() }

// Available is the number of bytes the consumer may read.
func (r *Ring) Available() int { return int(r.wr.Load() - r.rd.Load()) }

// Write copies as much of src as fits and returns the count. Producer only.
func (r *Ring) Write(src []byte) int {
	rd, wr := r.rd.Load(), r.wr.Load()
	used := wr - rd
	n := min(len(src), len(r.buf)-int(used))
	if n <= 0 {
		return 0
	}
	i := int(wr & r.mask)
	c := copy(r.buf[i:], src[:n])
	copy(r.buf, src[c:n])
	r.wr.Store(wr + uint32(n))
	if used == 0 {
		notify(r.readable)
	}
	return n
}

// Read copies up to len(dst) bytes out and returns the count. Consumer only.
func (r *Ring) Read(dst []byte) int {
	rd, wr := r.rd.Load(), r.wr.Load()
	used := wr - rd
	n := min(len(dst), int(used))
	if n <= 0 {
		return 0
	}
	i := int(rd & r.mask)
	c := copy(dst[:n], r.buf[i:])
	copy(dst[c:n], r.buf)
	r.rd.Store(rd + uint32(n))
	if int(used) == len(r.buf) {
		notify(r.writable)
	}
	return n
}

// WriteAll writes all of src, waiting for space, unless done closes first.
// It returns the number of bytes written.
func (r *Ring) WriteAll(src []byte, done <-chan struct{}) int {
	total := 0
	for len(src) > 0 {
		n := r.Write(src)
		total += n
		src = src[n:]
		if len(src) == 0 {
			break
		}
		if n == 0 {
			select {
			case <-r.writable:
			case <-done:
				return total
			}
		}
	}
	return total
}

func (r *Ring) Readable() <-chan struct{} { return r.readable }
func (r *Ring) Writable() <-chan struct{} { return r.writable }

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

package hal

import (
	"sync"
	"time"

	"tinygo.org/x/drivers"

	"aircube-go/errcode"
)

// DefaultTxTimeout bounds a single queued transaction.
const DefaultTxTimeout = time.Second

// txReq carries its own copy of w. The worker reads into its scratch
// buffer and copies into r only while the caller still waits, so an
// abandoned request never touches caller memory.
type txReq struct {
	addr      uint16
	w, r      []byte
	wbuf      [8]byte
	mu        sync.Mutex
	abandoned bool
	done      chan error // buffered(1)
}

// abandon marks req as given up by its caller. It reports a result the worker
// already delivered, if any.
func (req *txReq) abandon() (bool, error) {
	req.mu.Lock()
	req.abandoned = true
	req.mu.Unlock()
	select {
	case err := <-req.done:
		return true, err
	default:
		return false, nil
	}
}

// Owner serialises every transaction on one physical bus through a single
// worker goroutine. It implements drivers.I2C so it can sit under DriverBus.
type Owner struct {
	hw      drivers.I2C
	timeout time.Duration
	reqs    chan *txReq
	quit    chan struct{}
	scratch []byte // worker-owned
}

var _ drivers.I2C = (*Owner)(nil)

// NewOwner starts the worker. timeout <= 0 means unbounded waits.
func NewOwner(hw drivers.I2C, timeout time.Duration) *Owner {
	o := &Owner{
		hw:      hw,
		timeout: timeout,
		reqs:    make(chan *txReq, 16),
		quit:    make(chan struct{}),
	}
	go o.loop()
	return o
}

func (o *Owner) loop() {
	for {
		select {
		case req := <-o.reqs:
			o.serve(req)
		case <-o.quit:
			return
		}
	}
}

func (o *Owner) serve(req *txReq) {
	req.mu.Lock()
	skip := req.abandoned
	req.mu.Unlock()
	if skip {
		return
	}

	var r []byte
	if n := len(req.r); n > 0 {
		if cap(o.scratch) < n {
			o.scratch = make([]byte, n)
		}
		r = o.scratch[:n]
	}
	err := o.hw.Tx(req.addr, req.w, r)

	req.mu.Lock()
	defer req.mu.Unlock()
	if req.abandoned {
		return
	}
	copy(req.r, r)
	req.done <- err
}

// Stop ends the worker. Pending callers time out.
func (o *Owner) Stop() { close(o.quit) }

func (o *Owner) Tx(addr uint16, w, r []byte) error {
	req := &txReq{addr: addr, r: r, done: make(chan error, 1)}
	req.w = append(req.wbuf[:0], w...)

	if o.timeout <= 0 {
		select {
		case o.reqs <- req:
		case <-o.quit:
			return errcode.NotInitialized
		}
		return <-req.done
	}

	t := time.NewTimer(o.timeout)
	defer t.Stop()
	select {
	case o.reqs <- req:
	case <-t.C:
		return errcode.Timeout
	case <-o.quit:
		return errcode.NotInitialized
	}
	resetTimer(t, o.timeout)
	select {
	case err := <-req.done:
		return err
	case <-t.C:
		if ok, err := req.abandon(); ok {
			return err
		}
		return errcode.Timeout
	}
}

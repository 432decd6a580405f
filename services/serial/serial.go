// Package serial runs the command and telemetry link. A platform dialler
// supplies the byte stream (UART on the board, stdio or a pty on the host);
// the service supervises it, retrying with backoff when it fails.
package serial

import (
	"context"
	"io"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"

	"aircube-go/bus"
	"aircube-go/services/protocol"
	"aircube-go/types"
	"aircube-go/x/ring"
	"aircube-go/x/timex"
)

// Dial opens the link. It is called again after every failure.
type Dial func(ctx context.Context) (io.ReadWriteCloser, error)

// ErrClosed is returned by a Dial whose link cannot come back, such as stdin
// after EOF. Run stops supervising instead of retrying.
var ErrClosed = errors.New("link closed for good")

const (
	DefaultPoll       = 10 * time.Millisecond
	DefaultMinBackoff = 250 * time.Millisecond
	DefaultMaxBackoff = 5 * time.Second
	readChunk         = 64
	rxRing            = 512
)

type Options struct {
	Poll       time.Duration // framer drain cadence
	MinBackoff time.Duration
	MaxBackoff time.Duration
	Capacity   int // framer capacity
	Telemetry  bool
}

type Service struct {
	dial   Dial
	h      *protocol.Handler
	conn   *bus.Connection
	logger log.Logger
	opts   Options
}

func New(dial Dial, h *protocol.Handler, conn *bus.Connection, opts Options, logger log.Logger) *Service {
	if opts.Poll <= 0 {
		opts.Poll = DefaultPoll
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = DefaultMinBackoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	if opts.Capacity <= 0 {
		opts.Capacity = protocol.DefaultCapacity
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Service{dial: dial, h: h, conn: conn, opts: opts, logger: log.With(logger, "svc", "serial")}
}

// Run supervises the link until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.publishState(types.LinkIdle, "dialling", nil)
	backoff := backoffSeq(s.opts.MinBackoff, s.opts.MaxBackoff)
	for {
		if ctx.Err() != nil {
			s.publishState(types.LinkDown, "stopped", nil)
			return ctx.Err()
		}

		rwc, err := s.dial(ctx)
		if errors.Is(err, ErrClosed) {
			s.publishState(types.LinkDown, "closed", nil)
			level.Info(s.logger).Log("msg", "link closed, not redialling")
			return nil
		}
		if err != nil {
			delay := backoff()
			s.publishState(types.LinkDegraded, "dial_failed_retrying", err)
			level.Warn(s.logger).Log("msg", "dial failed", "err", err, "retry", delay)
			timex.Sleep(ctx.Done(), delay)
			continue
		}

		s.publishState(types.LinkUp, "link_established", nil)
		level.Info(s.logger).Log("msg", "link up")
		backoff = backoffSeq(s.opts.MinBackoff, s.opts.MaxBackoff)
		err = s.handleLink(ctx, rwc)
		_ = rwc.Close()
		if err == nil {
			continue // ctx cancelled
		}
		delay := backoff()
		s.publishState(types.LinkDegraded, "link_lost_retrying", err)
		level.Warn(s.logger).Log("msg", "link lost", "err", err, "retry", delay)
		timex.Sleep(ctx.Done(), delay)
	}
}

// handleLink owns one link. A reader goroutine fills the receive ring; the
// poll tick drains it through the framer. Every write happens on this
// goroutine so responses and telemetry lines never interleave.
func (s *Service) handleLink(ctx context.Context, rwc io.ReadWriteCloser) error {
	done := make(chan struct{})
	defer close(done)

	rx := ring.New(rxRing)
	errCh := make(chan error, 1)
	go func() {
		buf := make([]byte, readChunk)
		for {
			n, err := rwc.Read(buf)
			if n > 0 && rx.WriteAll(buf[:n], done) < n {
				return
			}
			if err != nil {
				errCh <- err
				return
			}
		}
	}()

	var readings <-chan *bus.Message
	if s.opts.Telemetry && s.conn != nil {
		sub := s.conn.Subscribe(types.TopicReading)
		defer s.conn.Unsubscribe(sub)
		readings = sub.Channel()
	}

	fr := protocol.NewFramer(s.opts.Capacity)
	poll := time.NewTicker(s.opts.Poll)
	defer poll.Stop()

	scratch := make([]byte, readChunk)
	out := make([]byte, 0, 256)
	var werr error
	emit := func(line []byte) {
		if werr != nil {
			return
		}
		out = s.h.Handle(out[:0], line)
		if len(out) > 0 {
			_, werr = rwc.Write(out)
		}
	}

	drain := func() error {
		for {
			n := rx.Read(scratch)
			if n == 0 {
				break
			}
			if fr.Feed(scratch[:n], emit) > 0 {
				level.Warn(s.logger).Log("msg", "receive buffer overflow, input discarded", "total", fr.Overflows())
			}
		}
		if werr != nil {
			return errors.Wrap(werr, "write response")
		}
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			// The reader queued everything it got before reporting the error.
			if derr := drain(); derr != nil {
				return derr
			}
			if err == io.EOF {
				return errors.New("link closed by peer")
			}
			return errors.Wrap(err, "read")
		case m, ok := <-readings:
			if !ok {
				readings = nil
				continue
			}
			r, ok := m.Payload.(types.EnvReading)
			if !ok {
				continue
			}
			out = protocol.AppendTelemetry(out[:0], r)
			if _, err := rwc.Write(out); err != nil {
				return errors.Wrap(err, "write telemetry")
			}
		case <-poll.C:
			if err := drain(); err != nil {
				return err
			}
		}
	}
}

func (s *Service) publishState(link types.Link, status string, err error) {
	if s.conn == nil {
		return
	}
	st := types.LinkState{Link: link, Status: status, TS: timex.UptimeMs()}
	if err != nil {
		st.Error = err.Error()
	}
	s.conn.Publish(s.conn.NewMessage(types.TopicLinkState, st, true))
}

func backoffSeq(min, max time.Duration) func() time.Duration {
	if min <= 0 {
		min = 100 * time.Millisecond
	}
	if max < min {
		max = min
	}
	cur := min
	return func() time.Duration {
		d := cur
		cur *= 2
		if cur > max {
			cur = max
		}
		return d
	}
}

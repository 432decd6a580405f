// Package button turns brightness-button edges into intensity changes.
//
// The interrupt side only calls Notify, a non-blocking send of the pin id
// into a bounded queue. All policy runs in the consumer: a quiet interval
// since the last accepted press, a re-read of the pin level, then the next
// entry of the brightness table is applied and persisted.
package button

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/services/metrics"
	"aircube-go/services/prefs"
)

// Levels is the brightness table cycled by the button.
var Levels = [...]float64{0.0, 0.3, 0.6, 1.0}

const (
	DefaultIndex    = 2
	PrefKey         = "led_brightness"
	DefaultDebounce = 50 * time.Millisecond
	DefaultQueue    = 10
)

// Pin reads the raw button level.
type Pin interface {
	Get() bool
}

// Intensity receives the new brightness.
type Intensity interface {
	SetIntensity(v float64) (float64, error)
}

type Config struct {
	Debounce time.Duration // default 50 ms
	Queue    int           // default 10
	Invert   bool          // pressed reads low
}

type Service struct {
	isrQ  chan uint8
	drops uint32

	pin    Pin
	store  prefs.Store
	in     Intensity
	cfg    Config
	logger log.Logger
	rec    metrics.Recorder
	now    func() time.Time

	index        atomic.Int32
	lastAccepted time.Time
	reported     uint32
}

func New(pin Pin, store prefs.Store, in Intensity, cfg Config, logger log.Logger, rec metrics.Recorder) *Service {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Queue <= 0 {
		cfg.Queue = DefaultQueue
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if store == nil {
		store = prefs.NewMemStore()
	}
	s := &Service{
		isrQ:   make(chan uint8, cfg.Queue),
		pin:    pin,
		store:  store,
		in:     in,
		cfg:    cfg,
		logger: log.With(logger, "svc", "button"),
		rec:    metrics.OrNop(rec),
		now:    time.Now,
	}
	s.index.Store(DefaultIndex)
	return s
}

// Notify is safe to call from an interrupt handler. It never blocks.
func (s *Service) Notify(id uint8) {
	select {
	case s.isrQ <- id:
	default:
		atomic.AddUint32(&s.drops, 1)
	}
}

// Drops returns the number of edges lost to a full queue.
func (s *Service) Drops() uint32 { return atomic.LoadUint32(&s.drops) }

// Index returns the current brightness table index.
func (s *Service) Index() int { return int(s.index.Load()) }

// Load reads the persisted index, falling back to DefaultIndex when it is
// missing or out of range, and applies its intensity.
func (s *Service) Load() int {
	idx := DefaultIndex
	v, ok, err := s.store.LoadInt(PrefKey)
	switch {
	case err != nil:
		level.Warn(s.logger).Log("msg", "brightness load failed, using default", "err", err)
	case !ok:
		level.Info(s.logger).Log("msg", "no saved brightness, using default", "index", idx)
	case v < 0 || v >= len(Levels):
		level.Warn(s.logger).Log("msg", "saved brightness out of range, using default", "saved", v)
	default:
		idx = v
	}
	s.index.Store(int32(idx))
	s.apply(idx)
	return idx
}

// Run consumes edge notifications until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	level.Info(s.logger).Log("msg", "started", "debounce", s.cfg.Debounce, "queue", s.cfg.Queue)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case id := <-s.isrQ:
			s.reportDrops()
			s.handle(id)
		}
	}
}

// handle applies the press policy and reports whether the press was accepted.
func (s *Service) handle(id uint8) bool {
	now := s.now()
	if !s.lastAccepted.IsZero() && now.Sub(s.lastAccepted) <= s.cfg.Debounce {
		return false
	}
	if s.pin.Get() == s.cfg.Invert {
		return false // released again by the time we looked
	}
	s.lastAccepted = now

	idx := (s.Index() + 1) % len(Levels)
	s.index.Store(int32(idx))
	s.apply(idx)
	if err := s.store.SaveInt(PrefKey, idx); err != nil {
		level.Error(s.logger).Log("msg", "brightness save failed", "err", err)
	}
	s.rec.ButtonPress(idx)
	level.Info(s.logger).Log("msg", "brightness changed", "pin", id, "index", idx, "intensity", Levels[idx])
	return true
}

func (s *Service) apply(idx int) {
	if _, err := s.in.SetIntensity(Levels[idx]); err != nil {
		level.Warn(s.logger).Log("msg", "intensity not applied", "err", err)
		s.rec.LockTimeout("button")
	}
}

func (s *Service) reportDrops() {
	d := s.Drops()
	for ; s.reported < d; s.reported++ {
		s.rec.ButtonDropped()
	}
}

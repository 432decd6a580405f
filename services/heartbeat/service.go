// Package heartbeat logs a periodic health line: uptime, link state and the
// age of the last reading, plus whatever extra values the caller supplies.
package heartbeat

import (
	"context"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/bus"
	"aircube-go/types"
	"aircube-go/x/timex"
)

// Stats returns extra key/value pairs for each heartbeat line.
type Stats func() []any

type Service struct {
	interval time.Duration
	logger   log.Logger
	stats    Stats

	link    types.Link
	reading types.EnvReading
	seen    bool
}

func New(interval time.Duration, logger log.Logger, stats Stats) *Service {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Service{interval: interval, logger: log.With(logger, "svc", "heartbeat"), stats: stats, link: types.LinkIdle}
}

// Run logs until ctx is cancelled.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) error {
	linkSub := conn.Subscribe(types.TopicLinkState)
	defer conn.Unsubscribe(linkSub)
	readSub := conn.Subscribe(types.TopicReading)
	defer conn.Unsubscribe(readSub)

	tick := time.NewTicker(s.interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m := <-linkSub.Channel():
			if st, ok := m.Payload.(types.LinkState); ok {
				s.link = st.Link
			}
		case m := <-readSub.Channel():
			if r, ok := m.Payload.(types.EnvReading); ok {
				s.reading, s.seen = r, true
			}
		case <-tick.C:
			s.beat()
		}
	}
}

func (s *Service) beat() {
	now := timex.UptimeMs()
	kv := []any{"msg", "heartbeat", "uptime_ms", now, "link", s.link}
	if s.seen {
		kv = append(kv, "reading_age_ms", now-s.reading.TS, "aqi", s.reading.AirQuality.AQI, "status", s.reading.AirQuality.Status)
	} else {
		kv = append(kv, "reading_age_ms", -1)
	}
	if s.stats != nil {
		kv = append(kv, s.stats()...)
	}
	level.Info(s.logger).Log(kv...)
}

package protocol

import (
	"bytes"
	"math"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"aircube-go/errcode"
	"aircube-go/services/metrics"
	"aircube-go/services/state"
)

// Intensity is the indicator brightness setting.
type Intensity interface {
	Intensity() (float64, error)
	SetIntensity(v float64) (float64, error)
}

// Period is the sensor sample period setting.
type Period interface {
	Millis() (uint32, error)
	Set(ms uint32) (uint32, error)
}

// Handler executes commands against the shared settings.
type Handler struct {
	intensity Intensity
	period    Period
	logger    log.Logger
	rec       metrics.Recorder

	// last values served, used when a lock times out
	lastIntensity float64
	lastPeriod    uint32
}

func NewHandler(in Intensity, p Period, logger log.Logger, rec metrics.Recorder) *Handler {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	h := &Handler{intensity: in, period: p, logger: logger, rec: metrics.OrNop(rec), lastPeriod: state.DefaultPeriodMs}
	if v, err := in.Intensity(); err == nil {
		h.lastIntensity = v
	}
	if v, err := p.Millis(); err == nil {
		h.lastPeriod = v
	}
	return h
}

// Handle runs one framed message and appends the response line to dst.
// Blank messages produce no response.
func (h *Handler) Handle(dst, line []byte) []byte {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return dst
	}
	c, err := Parse(line)
	if err != nil {
		level.Warn(h.logger).Log("msg", "rejected command", "line", string(line), "err", err)
		h.rec.Command("", "error")
		return AppendError(dst, errMsg(err))
	}

	switch c.Name {
	case CmdGetConfig:
		if v, err := h.intensity.Intensity(); err == nil {
			h.lastIntensity = v
		} else {
			h.lockTimeout(err)
		}
		if v, err := h.period.Millis(); err == nil {
			h.lastPeriod = v
		} else {
			h.lockTimeout(err)
		}
		h.rec.Command(c.Name, "ok")
		return AppendConfig(dst, h.lastIntensity, h.lastPeriod)

	case CmdSetIntensity:
		if !c.HasValue {
			return h.fail(dst, c.Name, MsgMissingValue)
		}
		v, err := h.intensity.SetIntensity(c.Value)
		if err != nil {
			h.lockTimeout(err)
			return h.fail(dst, c.Name, MsgBusy)
		}
		h.lastIntensity = v
		level.Info(h.logger).Log("msg", "intensity set", "value", v)
		h.rec.Command(c.Name, "ok")
		return AppendOK(dst, c.Name, v)

	case CmdSetReadoutPeriod:
		if !c.HasValue {
			return h.fail(dst, c.Name, MsgMissingValue)
		}
		ms, err := h.period.Set(periodFromValue(c.Value))
		if err != nil {
			h.lockTimeout(err)
			return h.fail(dst, c.Name, MsgBusy)
		}
		h.lastPeriod = ms
		level.Info(h.logger).Log("msg", "readout period set", "ms", ms)
		h.rec.Command(c.Name, "ok")
		return AppendOK(dst, c.Name, float64(ms))
	}
	return h.fail(dst, c.Name, MsgUnknownCommand)
}

func (h *Handler) fail(dst []byte, cmd, msg string) []byte {
	level.Warn(h.logger).Log("msg", "command failed", "cmd", cmd, "reason", msg)
	h.rec.Command(cmd, "error")
	return AppendError(dst, msg)
}

func (h *Handler) lockTimeout(err error) {
	level.Warn(h.logger).Log("msg", "settings locked, using last value", "err", err)
	h.rec.LockTimeout("command")
}

// periodFromValue truncates toward zero and clamps to the valid range.
func periodFromValue(v float64) uint32 {
	switch {
	case math.IsNaN(v) || v <= state.MinPeriodMs:
		return state.MinPeriodMs
	case v >= state.MaxPeriodMs:
		return state.MaxPeriodMs
	}
	return state.ClampPeriod(uint32(v))
}

func errMsg(err error) string {
	if e, ok := err.(*errcode.E); ok && e.Msg != "" {
		return e.Msg
	}
	return MsgInvalidCommand
}

package serial

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"aircube-go/bus"
	"aircube-go/drivers/ens16x"
	"aircube-go/services/protocol"
	"aircube-go/services/state"
	"aircube-go/types"
)

type rig struct {
	b      *bus.Bus
	conn   *bus.Connection
	svc    *Service
	remote chan net.Conn
	in     *state.IndicatorState
	cancel context.CancelFunc
	done   chan error
}

func newRig(t *testing.T, failFirst int) *rig {
	t.Helper()
	r := &rig{b: bus.NewBus(16), remote: make(chan net.Conn, 4), done: make(chan error, 1)}
	r.conn = r.b.NewConnection("serial_test")
	r.in = state.NewIndicatorState(nil, 0.6)
	h := protocol.NewHandler(r.in, state.NewSamplePeriod(nil, 0), nil, nil)

	var calls int32
	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		if int(atomic.AddInt32(&calls, 1)) <= failFirst {
			return nil, errors.New("no device")
		}
		lc, rc := net.Pipe()
		r.remote <- rc
		return lc, nil
	}
	r.svc = New(dial, h, r.conn, Options{
		Poll:       time.Millisecond,
		MinBackoff: time.Millisecond,
		MaxBackoff: 4 * time.Millisecond,
		Telemetry:  true,
	}, nil)
	return r
}

func (r *rig) start() {
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go func() { r.done <- r.svc.Run(ctx) }()
}

func (r *rig) stop(t *testing.T) {
	t.Helper()
	r.cancel()
	select {
	case err := <-r.done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("serial service did not stop")
	}
}

func nextRemote(t *testing.T, r *rig) net.Conn {
	t.Helper()
	select {
	case c := <-r.remote:
		return c
	case <-time.After(time.Second):
		t.Fatal("no link dialled")
		return nil
	}
}

func readLine(t *testing.T, rd *bufio.Reader, c net.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(time.Second)))
	s, err := rd.ReadString('\n')
	require.NoError(t, err)
	return s
}

func nextState(t *testing.T, sub *bus.Subscription) types.LinkState {
	t.Helper()
	select {
	case m := <-sub.Channel():
		st, ok := m.Payload.(types.LinkState)
		require.True(t, ok, "payload %T", m.Payload)
		return st
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for link state")
		return types.LinkState{}
	}
}

func TestCommandRoundTrip(t *testing.T) {
	r := newRig(t, 0)
	r.start()
	defer r.stop(t)

	c := nextRemote(t, r)
	defer c.Close()
	rd := bufio.NewReader(c)

	_, err := c.Write([]byte("{\"cmd\":\"set_intensity\",\"value\":0.5}\r\n"))
	require.NoError(t, err)
	require.Equal(t, "{\"status\":\"ok\",\"cmd\":\"set_intensity\",\"value\":0.50}\n", readLine(t, rd, c))

	v, err := r.in.Intensity()
	require.NoError(t, err)
	require.Equal(t, 0.5, v)

	// Split across writes and two messages in one chunk.
	_, err = c.Write([]byte(`{"cmd":"get_con`))
	require.NoError(t, err)
	_, err = c.Write([]byte("fig\"}\n{\"cmd\":\"reboot\"}\n"))
	require.NoError(t, err)
	require.Equal(t, "{\"config\":{\"intensity\":0.50,\"readout_period\":1000}}\n", readLine(t, rd, c))
	require.Equal(t, "{\"status\":\"error\",\"msg\":\"unknown command\"}\n", readLine(t, rd, c))
}

func TestTelemetryLine(t *testing.T) {
	r := newRig(t, 0)
	r.start()
	defer r.stop(t)

	c := nextRemote(t, r)
	defer c.Close()
	rd := bufio.NewReader(c)

	// Retained, so it reaches the link whether or not it has subscribed yet.
	reading := types.EnvReading{
		Climate:    types.Climate{Celsius: 21.5, Fahrenheit: 70.7, Humidity: 40},
		AirQuality: types.AirQuality{Status: ens16x.StatusOK, TVOC: 120, ECO2: 600, AQI: 42},
		TS:         1234,
	}
	r.conn.Publish(r.conn.NewMessage(types.TopicReading, reading, true))

	line := readLine(t, rd, c)
	require.True(t, strings.HasPrefix(line, `{"ens210":{"status":0,"temperature_c":21.50`), line)
	require.Contains(t, line, `"ens16x":{"status":"OK","etvoc":120,"eco2":600,"aqi":42}`)
	require.True(t, strings.HasSuffix(line, "\"timestamp\":1234}\n"), line)
}

func TestDialRetriesThenUp(t *testing.T) {
	r := newRig(t, 2)
	sub := r.conn.Subscribe(types.TopicLinkState)
	r.start()
	defer r.stop(t)

	require.Equal(t, types.LinkIdle, nextState(t, sub).Link)
	st := nextState(t, sub)
	require.Equal(t, types.LinkDegraded, st.Link)
	require.Equal(t, "dial_failed_retrying", st.Status)
	require.Equal(t, "no device", st.Error)
	require.Equal(t, types.LinkDegraded, nextState(t, sub).Link)
	require.Equal(t, types.LinkUp, nextState(t, sub).Link)

	c := nextRemote(t, r)
	require.NoError(t, c.Close())

	st = nextState(t, sub)
	require.Equal(t, types.LinkDegraded, st.Link)
	require.Equal(t, "link_lost_retrying", st.Status)

	// Redialled.
	require.Equal(t, types.LinkUp, nextState(t, sub).Link)
	nextRemote(t, r).Close()
}

func TestBackoffSeq(t *testing.T) {
	next := backoffSeq(250*time.Millisecond, time.Second)
	var got []time.Duration
	for i := 0; i < 5; i++ {
		got = append(got, next())
	}
	require.Equal(t, []time.Duration{
		250 * time.Millisecond, 500 * time.Millisecond, time.Second, time.Second, time.Second,
	}, got)
}

// scriptedLink returns its input once, then EOF, and records what was written.
type scriptedLink struct {
	in  *strings.Reader
	out strings.Builder
}

func (l *scriptedLink) Read(p []byte) (int, error)  { return l.in.Read(p) }
func (l *scriptedLink) Write(p []byte) (int, error) { return l.out.Write(p) }
func (l *scriptedLink) Close() error                { return nil }

func TestCommandBeforeEOFIsAnswered(t *testing.T) {
	in := state.NewIndicatorState(nil, 0.6)
	h := protocol.NewHandler(in, state.NewSamplePeriod(nil, 0), nil, nil)
	// A long poll leaves the final drain to the EOF path.
	svc := New(nil, h, nil, Options{Poll: time.Hour}, nil)

	link := &scriptedLink{in: strings.NewReader("{\"cmd\":\"get_config\"}\n")}
	err := svc.handleLink(context.Background(), link)
	require.EqualError(t, err, "link closed by peer")
	require.Equal(t, "{\"config\":{\"intensity\":0.60,\"readout_period\":1000}}\n", link.out.String())
}

package stream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

type stubConn struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newStubConn() *stubConn {
	return &stubConn{
		msgs:   make(chan []byte, 16),
		closed: make(chan struct{}),
	}
}

func (c *stubConn) ReadMessage() (int, []byte, error) {
	select {
	case m := <-c.msgs:
		return websocket.TextMessage, m, nil
	case <-c.closed:
		return 0, nil, errors.New("connection closed")
	}
}

func (c *stubConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// stubDialer hands out conns in order, failing where the slice holds nil.
type stubDialer struct {
	mu    sync.Mutex
	conns []*stubConn
	dials int32
}

func (d *stubDialer) Dial(ctx context.Context, url string) (Conn, error) {
	atomic.AddInt32(&d.dials, 1)
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil, errors.New("no backend")
	}
	next := d.conns[0]
	d.conns = d.conns[1:]
	if next == nil {
		return nil, errors.New("refused")
	}
	return next, nil
}

func (d *stubDialer) dialCount() int32 { return atomic.LoadInt32(&d.dials) }

func newTestSupervisor(d Dialer, handler Handler, states chan State) *Supervisor {
	if handler == nil {
		handler = func([]byte) error { return nil }
	}
	return NewSupervisor(Options{
		Name:           "test",
		URL:            "ws://backend/ws",
		Dialer:         d,
		ReconnectDelay: 10 * time.Millisecond,
		Handler:        handler,
		OnState: func(s State) {
			select {
			case states <- s:
			default:
			}
		},
		Logger: logger.New("error"),
	})
}

func waitState(t *testing.T, states chan State, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case s := <-states:
			if s == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %q", want)
		}
	}
}

func TestSupervisor_ReconnectsAfterClose(t *testing.T) {
	conn1 := newStubConn()
	conn2 := newStubConn()
	dialer := &stubDialer{conns: []*stubConn{conn1, conn2}}
	states := make(chan State, 32)

	s := newTestSupervisor(dialer, nil, states)
	s.Start(context.Background())
	defer s.Close()

	waitState(t, states, StateOpen)

	// server drops the connection
	_ = conn1.Close()
	waitState(t, states, StateClosed)
	waitState(t, states, StateConnecting)
	waitState(t, states, StateOpen)

	// exactly one reconnect: the initial dial plus one retry
	assert.Equal(t, int32(2), dialer.dialCount())
}

func TestSupervisor_RetriesFailedDials(t *testing.T) {
	conn := newStubConn()
	dialer := &stubDialer{conns: []*stubConn{nil, nil, conn}}
	states := make(chan State, 32)

	s := newTestSupervisor(dialer, nil, states)
	s.Start(context.Background())
	defer s.Close()

	waitState(t, states, StateOpen)
	assert.Equal(t, int32(3), dialer.dialCount())
}

func TestSupervisor_MalformedPayloadKeepsConnection(t *testing.T) {
	conn := newStubConn()
	dialer := &stubDialer{conns: []*stubConn{conn}}
	states := make(chan State, 32)

	applied := make(chan []byte, 4)
	handler := func(p []byte) error {
		if string(p) == "garbage" {
			return errors.New("unparseable")
		}
		applied <- p
		return nil
	}

	s := newTestSupervisor(dialer, handler, states)
	s.Start(context.Background())
	defer s.Close()

	waitState(t, states, StateOpen)

	conn.msgs <- []byte("garbage")
	conn.msgs <- []byte(`{"ok":true}`)

	select {
	case p := <-applied:
		assert.JSONEq(t, `{"ok":true}`, string(p))
	case <-time.After(2 * time.Second):
		t.Fatal("payload after malformed one was not applied")
	}

	assert.Equal(t, StateOpen, s.State())
	assert.Equal(t, int32(1), dialer.dialCount())
}

func TestSupervisor_CloseStopsReconnects(t *testing.T) {
	conn := newStubConn()
	dialer := &stubDialer{conns: []*stubConn{conn}}
	states := make(chan State, 32)

	s := newTestSupervisor(dialer, nil, states)
	s.Start(context.Background())
	waitState(t, states, StateOpen)

	dialsBefore := dialer.dialCount()
	s.Close()

	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}

	// no reconnect after teardown, even past the reconnect delay
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, dialsBefore, dialer.dialCount())
	assert.Equal(t, StateClosed, s.State())
}

func TestSupervisor_CloseIsIdempotent(t *testing.T) {
	conn := newStubConn()
	dialer := &stubDialer{conns: []*stubConn{conn}}
	states := make(chan State, 32)

	s := newTestSupervisor(dialer, nil, states)
	s.Start(context.Background())
	waitState(t, states, StateOpen)

	require.NotPanics(t, func() {
		s.Close()
		s.Close()
	})
}

func TestChannelURL_MirrorsScheme(t *testing.T) {
	u, err := ChannelURL("http://backend:8000", "/api/v1/alerts/ws/alerts")
	require.NoError(t, err)
	assert.Equal(t, "ws://backend:8000/api/v1/alerts/ws/alerts", u)

	u, err = ChannelURL("https://backend.example.com/", "/api/v1/water-quality/ws/live")
	require.NoError(t, err)
	assert.Equal(t, "wss://backend.example.com/api/v1/water-quality/ws/live", u)
}

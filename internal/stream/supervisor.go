// Package stream supervises the push channels: it owns the lifecycle of
// each duplex socket, dispatches received payloads, and schedules
// reconnects with a fixed delay for the lifetime of the session.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/aquawatch/aquawatch-core/internal/metrics"
	"github.com/aquawatch/aquawatch-core/pkg/logger"
)

// State is the supervisor's connection state.
type State string

const (
	StateConnecting State = "connecting"
	StateOpen       State = "open"
	StateClosed     State = "closed"
)

// Conn is the minimal socket surface the supervisor reads from.
// *websocket.Conn satisfies it.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	Close() error
}

// Dialer opens a connection to a channel URL. Injectable so tests can
// drive the state machine without real sockets or timers.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// Handler consumes one raw payload from the channel. A returned error
// marks the payload malformed: it is logged and dropped without
// touching the connection state.
type Handler func(payload []byte) error

// Supervisor drives one push channel through
// Connecting -> Open -> Closed -> (reconnect) -> Connecting.
// Reconnection is infinite until Close is called.
type Supervisor struct {
	name    string
	url     string
	dialer  Dialer
	delay   time.Duration
	handler Handler
	onState func(State)
	logger  logger.Logger

	mu     sync.Mutex
	state  State
	conn   Conn
	cancel context.CancelFunc
	closed bool
	done   chan struct{}
}

type Options struct {
	// Name identifies the channel in logs and metrics.
	Name string
	// URL is the ws/wss endpoint.
	URL string
	// Dialer defaults to the gorilla-backed WebsocketDialer.
	Dialer Dialer
	// ReconnectDelay is the fixed wait between a close and the next
	// connect attempt.
	ReconnectDelay time.Duration
	// Handler receives every payload read while Open.
	Handler Handler
	// OnState, when set, observes every state transition.
	OnState func(State)
	Logger  logger.Logger
}

func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		name:    opts.Name,
		url:     opts.URL,
		dialer:  opts.Dialer,
		delay:   opts.ReconnectDelay,
		handler: opts.Handler,
		onState: opts.OnState,
		logger:  opts.Logger,
		state:   StateClosed,
		done:    make(chan struct{}),
	}
	if s.dialer == nil {
		s.dialer = WebsocketDialer{}
	}
	return s
}

// Start launches the connect/read/reconnect loop. It returns
// immediately; the loop runs until ctx is cancelled or Close is called.
func (s *Supervisor) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	go s.run(ctx)
}

// State reports the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close tears the channel down: the open socket is closed and no
// further reconnect is scheduled. Safe to call more than once.
func (s *Supervisor) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cancel := s.cancel
	conn := s.conn
	s.conn = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close()
	}
}

// Done is closed once the supervision loop has fully stopped.
func (s *Supervisor) Done() <-chan struct{} {
	return s.done
}

func (s *Supervisor) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(StateClosed)

	for {
		s.setState(StateConnecting)

		conn, err := s.dialer.Dial(ctx, s.url)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn("stream connect failed", "channel", s.name, "url", s.url, "error", err)
			s.setState(StateClosed)
			if !s.waitReconnect(ctx) {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conn = conn
		s.mu.Unlock()

		s.setState(StateOpen)
		s.logger.Info("stream connected", "channel", s.name, "url", s.url)

		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		_ = conn.Close()
		s.setState(StateClosed)

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("stream closed, reconnect scheduled",
			"channel", s.name, "delay", s.delay)
		if !s.waitReconnect(ctx) {
			return
		}
	}
}

// readLoop pumps messages until the connection errors or closes.
// Messages preserve wire order within the channel.
func (s *Supervisor) readLoop(ctx context.Context, conn Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("stream read error", "channel", s.name, "error", err)
			}
			return
		}
		if err := s.handler(payload); err != nil {
			// malformed payload: drop, log, keep the connection
			metrics.StreamMessagesTotal.WithLabelValues(s.name, "dropped").Inc()
			s.logger.Warn("dropped malformed stream payload",
				"channel", s.name, "error", err)
			continue
		}
		metrics.StreamMessagesTotal.WithLabelValues(s.name, "applied").Inc()
	}
}

// waitReconnect blocks for the fixed reconnect delay. The single run
// goroutine owns this wait, so repeated closes can never stack more
// than one pending reconnect. Returns false when the session ended.
func (s *Supervisor) waitReconnect(ctx context.Context) bool {
	metrics.StreamReconnectsTotal.WithLabelValues(s.name).Inc()
	t := time.NewTimer(s.delay)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	if s.state == state {
		s.mu.Unlock()
		return
	}
	s.state = state
	s.mu.Unlock()

	metrics.RecordStreamState(s.name, string(state))
	if s.onState != nil {
		s.onState(state)
	}
}

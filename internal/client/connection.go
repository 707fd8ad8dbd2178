package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/internal/chat"
)

const stateBufferSize = 16

// Connection is one logical link to a feed. It owns at most one transport
// at a time and replaces it on disconnect when cfg.Reconnect is set.
type Connection struct {
	cfg    Config
	dialer Dialer
	logger *zap.Logger

	// Output channels, closed when the lifecycle ends.
	envelopes chan Envelope
	states    chan StateEvent

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	state    State
	conn     chat.Conn
	closing  bool
	attempts int
	err      error
}

// Open starts connecting to cfg.Address in the background and returns
// immediately. Failures are reported on States, never by Open itself.
// Cancelling ctx has the same effect as Close.
func Open(ctx context.Context, cfg Config, dialer Dialer, logger *zap.Logger) *Connection {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.applyDefaults()
	if cfg.Handshake == nil {
		cfg.Handshake = Greeting(defaultGreeting)
	}

	c := &Connection{
		cfg:       cfg,
		dialer:    dialer,
		logger:    logger.With(zap.String("addr", cfg.Address)),
		envelopes: make(chan Envelope),
		states:    make(chan StateEvent, stateBufferSize),
		done:      make(chan struct{}),
		state:     StateConnecting,
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	go c.run()
	return c
}

// Envelopes returns the inbound frames in arrival order. The channel is
// closed once the Connection reaches StateClosed.
func (c *Connection) Envelopes() <-chan Envelope {
	return c.envelopes
}

// States returns state transitions. Events are dropped when the reader
// falls behind; State always reports the current value.
func (c *Connection) States() <-chan StateEvent {
	return c.states
}

// State returns the current state.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Done is closed once the Connection reaches StateClosed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the Connection, or nil if it was closed
// by Close or ctx. Only meaningful after Done is closed.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the Connection down: it cancels a pending reconnection,
// closes the current transport and waits for the lifecycle to end. No
// envelope is delivered after Close returns. Calling Close again is a no-op.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		c.closing = true
		conn := c.conn
		c.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
	})
	<-c.done
	return nil
}

func (c *Connection) run() {
	var final error
	defer close(c.done)
	defer func() { c.finish(final) }()

	bo := newBackoff(c.cfg.BaseDelay, c.cfg.MaxDelay)
	failures := 0

	for {
		opened, err := c.session()
		if c.ctx.Err() != nil || errors.Is(err, ErrClosed) {
			return
		}
		if !c.cfg.Reconnect {
			final = err
			return
		}

		if opened {
			failures = 0
			bo.Reset()
		} else {
			failures++
		}
		if c.cfg.MaxAttempts > 0 && failures >= c.cfg.MaxAttempts {
			c.logger.Error("giving up reconnecting", zap.Int("failures", failures), zap.Error(err))
			final = fmt.Errorf("gave up after %d attempts: %w", failures, err)
			return
		}

		wait := bo.Next()
		c.setState(StateReconnecting, err)
		c.logger.Warn("connection lost, reconnecting",
			zap.Duration("retry_in", wait),
			zap.Int("failures", failures),
			zap.Error(err),
		)

		timer := c.cfg.Clock.NewTimer(wait)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.Chan():
		}
		c.setState(StateConnecting, nil)
	}
}

// session dials, greets and reads until the transport fails. opened reports
// whether the handshake completed.
func (c *Connection) session() (opened bool, err error) {
	c.mu.Lock()
	c.attempts++
	attempt := c.attempts
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(c.ctx, c.cfg.DialTimeout)
	conn, err := c.dialer.Dial(dialCtx, c.cfg.Address)
	cancel()
	if err != nil {
		return false, &ConnectError{Address: c.cfg.Address, Attempt: attempt, Err: err}
	}

	// A dial that completes after Close began must not reach StateOpen.
	c.mu.Lock()
	if c.closing || c.ctx.Err() != nil {
		c.mu.Unlock()
		conn.Close()
		return false, ErrClosed
	}
	c.conn = conn
	c.mu.Unlock()
	defer c.dropConn(conn)

	sessionID := uuid.NewString()
	logger := c.logger.With(zap.String("session", sessionID))

	if err := c.cfg.Handshake(c.ctx, conn); err != nil {
		return false, &DisconnectError{SessionID: sessionID, Err: fmt.Errorf("handshake: %w", err)}
	}
	c.setState(StateOpen, nil)
	logger.Info("connected", zap.String("remote", conn.RemoteAddr()), zap.Int("attempt", attempt))

	for {
		typ, data, err := conn.Read(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return true, nil
			}
			logger.Info("disconnected", zap.Error(err))
			return true, &DisconnectError{SessionID: sessionID, Err: err}
		}

		env := Envelope{
			Type:       typ,
			Data:       data,
			ReceivedAt: c.cfg.Clock.Now(),
			SessionID:  sessionID,
		}
		if c.ctx.Err() != nil {
			return true, nil
		}
		select {
		case c.envelopes <- env:
		case <-c.ctx.Done():
			return true, nil
		}
	}
}

func (c *Connection) dropConn(conn chat.Conn) {
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
	conn.Close()
}

// setState records a transition. Once Close has begun only StateClosed is
// accepted.
func (c *Connection) setState(s State, cause error) {
	c.mu.Lock()
	if c.state == s || c.state == StateClosed || (c.closing && s != StateClosed) {
		c.mu.Unlock()
		return
	}
	old := c.state
	c.state = s
	c.mu.Unlock()

	c.emit(StateEvent{Old: old, New: s, Err: cause})
}

func (c *Connection) emit(ev StateEvent) {
	select {
	case c.states <- ev:
	default:
		c.logger.Debug("state event dropped", zap.Stringer("state", ev.New))
	}
}

func (c *Connection) finish(err error) {
	c.mu.Lock()
	old := c.state
	c.state = StateClosed
	c.err = err
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("connection closed", zap.Error(err))
	} else {
		c.logger.Info("connection closed")
	}
	c.emit(StateEvent{Old: old, New: StateClosed, Err: err})
	close(c.states)
	close(c.envelopes)
}

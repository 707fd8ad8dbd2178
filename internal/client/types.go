package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// ErrClosed is returned for work attempted on a closed Connection.
var ErrClosed = errors.New("connection closed")

// ConnectError reports a failed dial.
type ConnectError struct {
	Address string
	Attempt int
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s (attempt %d): %v", e.Address, e.Attempt, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// DisconnectError reports a transport that failed after it was dialed.
type DisconnectError struct {
	SessionID string
	Err       error
}

func (e *DisconnectError) Error() string {
	return fmt.Sprintf("session %s disconnected: %v", e.SessionID, e.Err)
}

func (e *DisconnectError) Unwrap() error { return e.Err }

// Envelope is one raw inbound frame.
type Envelope struct {
	Type       chat.FrameType
	Data       []byte
	ReceivedAt time.Time // Local time the frame was read
	SessionID  string    // Identifies the open that delivered the frame
}

// Dialer opens a transport to a feed address.
type Dialer interface {
	Dial(ctx context.Context, address string) (chat.Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, address string) (chat.Conn, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, address string) (chat.Conn, error) {
	return f(ctx, address)
}

// State is the lifecycle state of a Connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateReconnecting
	StateClosed
)

// String returns the string representation of a State.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// StateEvent describes one state transition.
type StateEvent struct {
	Old State
	New State
	Err error // What caused the transition, if anything went wrong
}

// Default values for Config fields left zero.
const (
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMaxDelay    = 30 * time.Second
	DefaultDialTimeout = 10 * time.Second
)

// Config configures a Connection.
type Config struct {
	Address     string        // Feed address, e.g. ws://localhost:51000
	Reconnect   bool          // Resilient mode
	BaseDelay   time.Duration // First reconnection delay
	MaxDelay    time.Duration // Cap for the doubled delay
	MaxAttempts int           // Consecutive failed attempts before giving up; 0 means never
	DialTimeout time.Duration // Per-dial timeout
	Handshake   Handshake     // Nil sends the default greeting

	// Clock drives reconnection delays and receive times. Nil uses the
	// wall clock.
	Clock clockwork.Clock
}

// DefaultConfig returns a resilient configuration for address.
func DefaultConfig(address string) Config {
	return Config{
		Address:     address,
		Reconnect:   true,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		DialTimeout: DefaultDialTimeout,
	}
}

func (c *Config) applyDefaults() {
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay < c.BaseDelay {
		c.MaxDelay = max(c.BaseDelay, DefaultMaxDelay)
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
}

// Package transport selects the dialer behind a display connection.
package transport

import (
	"fmt"
	"net/url"
	"time"

	"github.com/omochice/toy-chat-display/internal/client"
	"github.com/omochice/toy-chat-display/internal/transport/gobwas"
	"github.com/omochice/toy-chat-display/internal/transport/gorilla"
	"github.com/omochice/toy-chat-display/internal/transport/tcp"
	"github.com/omochice/toy-chat-display/internal/transport/ws"
)

// Supported transport names.
const (
	WebSocket = "websocket"
	Gorilla   = "gorilla"
	Gobwas    = "gobwas"
	TCP       = "tcp"
)

// Names lists every supported transport, default first.
var Names = []string{WebSocket, Gorilla, Gobwas, TCP}

// Options tunes the selected dialer.
type Options struct {
	DialTimeout time.Duration
	ReadLimit   int64 // WebSocket only
}

// NewDialer returns the dialer registered under name.
func NewDialer(name string, opts Options) (client.Dialer, error) {
	switch name {
	case WebSocket, "":
		return ws.Dialer{ReadLimit: opts.ReadLimit}, nil
	case Gorilla:
		return gorilla.Dialer{HandshakeTimeout: opts.DialTimeout}, nil
	case Gobwas:
		return gobwas.Dialer{Timeout: opts.DialTimeout}, nil
	case TCP:
		return tcp.Dialer{Timeout: opts.DialTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", name)
	}
}

// ValidateAddress checks that address can be dialed by the named transport.
func ValidateAddress(name, address string) error {
	if address == "" {
		return fmt.Errorf("address is required")
	}
	if name == TCP {
		_, err := tcp.HostPort(address)
		return err
	}

	u, err := url.Parse(address)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", address, err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid address %q: scheme must be ws or wss", address)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid address %q: missing host", address)
	}
	return nil
}

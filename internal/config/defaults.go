package config

import (
	"time"

	"github.com/omochice/toy-chat-display/internal/buffer"
	"github.com/omochice/toy-chat-display/internal/logging"
	"github.com/omochice/toy-chat-display/internal/transport"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// Default values for optional configuration fields.
const (
	DefaultAddress            = "ws://localhost:51000"
	DefaultTransport          = transport.WebSocket
	DefaultCapacity           = buffer.DefaultCapacity
	DefaultEviction           = "front"
	DefaultGreeting           = protocol.DefaultGreeting
	DefaultDialTimeout        = 10 * time.Second
	DefaultRender             = RenderTUI
	DefaultReconnectBaseDelay = 500 * time.Millisecond
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultLogLevel           = "info"
	DefaultLogFormat          = logging.FormatConsole
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.Transport == "" {
		c.Transport = DefaultTransport
	}
	if c.Capacity == 0 {
		c.Capacity = DefaultCapacity
	}
	if c.Eviction == "" {
		c.Eviction = DefaultEviction
	}
	if c.Greeting == "" {
		c.Greeting = DefaultGreeting
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.Render == "" {
		c.Render = DefaultRender
	}

	// Reconnect defaults
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

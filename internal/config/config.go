package config

import "time"

// Render modes.
const (
	RenderTUI   = "tui"
	RenderPlain = "plain"
)

// Config is the root configuration of a display client.
type Config struct {
	Address     string          `yaml:"address"`   // Feed address, ws://, wss:// or tcp://
	Transport   string          `yaml:"transport"` // websocket, gorilla, gobwas or tcp
	Capacity    int             `yaml:"capacity"`
	Eviction    string          `yaml:"eviction"` // front or oldest
	Greeting    string          `yaml:"greeting"`
	DialTimeout time.Duration   `yaml:"dial_timeout"`
	Render      string          `yaml:"render"` // tui or plain
	Reconnect   ReconnectConfig `yaml:"reconnect"`
	Log         LogConfig       `yaml:"log"`
}

// ReconnectConfig holds the resilient mode settings.
type ReconnectConfig struct {
	Enabled     *bool         `yaml:"enabled"` // Nil means enabled
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	MaxAttempts int           `yaml:"max_attempts"` // 0 retries forever
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"` // Defaults to stderr; set it when rendering a TUI
}

// ReconnectEnabled reports whether resilient mode is on.
func (c *Config) ReconnectEnabled() bool {
	return c.Reconnect.Enabled == nil || *c.Reconnect.Enabled
}

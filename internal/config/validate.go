package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/omochice/toy-chat-display/internal/buffer"
	"github.com/omochice/toy-chat-display/internal/logging"
	"github.com/omochice/toy-chat-display/internal/transport"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if !slices.Contains(transport.Names, c.Transport) {
		return fmt.Errorf("transport must be one of %v, got %q", transport.Names, c.Transport)
	}
	if err := transport.ValidateAddress(c.Transport, c.Address); err != nil {
		return fmt.Errorf("address: %w", err)
	}

	if c.Capacity < 1 {
		return errors.New("capacity must be >= 1")
	}
	if _, err := buffer.ParseEvictionPolicy(c.Eviction); err != nil {
		return fmt.Errorf("eviction: %w", err)
	}
	if c.DialTimeout < 0 {
		return errors.New("dial_timeout must be >= 0")
	}
	if c.Render != RenderTUI && c.Render != RenderPlain {
		return fmt.Errorf("render must be %q or %q, got %q", RenderTUI, RenderPlain, c.Render)
	}

	if err := c.Reconnect.validate("reconnect"); err != nil {
		return err
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != logging.FormatConsole && c.Log.Format != logging.FormatJSON {
		return fmt.Errorf("log.format must be %q or %q, got %q", logging.FormatConsole, logging.FormatJSON, c.Log.Format)
	}
	return nil
}

func (r *ReconnectConfig) validate(prefix string) error {
	if r.BaseDelay <= 0 {
		return fmt.Errorf("%s.base_delay must be > 0", prefix)
	}
	if r.MaxDelay < r.BaseDelay {
		return fmt.Errorf("%s.max_delay (%v) cannot be less than base_delay (%v)", prefix, r.MaxDelay, r.BaseDelay)
	}
	if r.MaxAttempts < 0 {
		return fmt.Errorf("%s.max_attempts must be >= 0", prefix)
	}
	return nil
}

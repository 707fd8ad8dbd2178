package config

import (
	"time"

	"github.com/spf13/pflag"
)

// Overrides holds command-line values that take precedence over the file.
// Only flags the user actually set are applied.
type Overrides struct {
	flagSet *pflag.FlagSet

	address     string
	transport   string
	capacity    int
	eviction    string
	greeting    string
	render      string
	reconnect   bool
	maxAttempts int
	dialTimeout time.Duration
	logLevel    string
	logFormat   string
	logFile     string
}

// AddFlags registers the override flags on flagSet.
func (o *Overrides) AddFlags(flagSet *pflag.FlagSet) {
	o.flagSet = flagSet
	flagSet.StringVarP(&o.address, "address", "a", DefaultAddress, "feed address (ws://, wss:// or tcp://)")
	flagSet.StringVarP(&o.transport, "transport", "t", DefaultTransport, "transport: websocket, gorilla, gobwas or tcp")
	flagSet.IntVarP(&o.capacity, "capacity", "n", DefaultCapacity, "number of entries kept on screen")
	flagSet.StringVar(&o.eviction, "eviction", DefaultEviction, "entry removed when full: front or oldest")
	flagSet.StringVar(&o.greeting, "greeting", DefaultGreeting, "greeting sent on every connect")
	flagSet.StringVar(&o.render, "render", DefaultRender, "output: tui or plain")
	flagSet.BoolVar(&o.reconnect, "reconnect", true, "reconnect after the feed drops")
	flagSet.IntVar(&o.maxAttempts, "max-attempts", 0, "consecutive failed connects before giving up (0 retries forever)")
	flagSet.DurationVar(&o.dialTimeout, "dial-timeout", DefaultDialTimeout, "timeout for a single connect")
	flagSet.StringVar(&o.logLevel, "log-level", DefaultLogLevel, "log level: debug, info, warn or error")
	flagSet.StringVar(&o.logFormat, "log-format", DefaultLogFormat, "log format: console or json")
	flagSet.StringVar(&o.logFile, "log-file", "", "write logs to this file instead of stderr")
}

// Apply copies every flag the user set onto cfg.
func (o *Overrides) Apply(cfg *Config) {
	if o.flagSet == nil {
		return
	}
	changed := o.flagSet.Changed

	if changed("address") {
		cfg.Address = o.address
	}
	if changed("transport") {
		cfg.Transport = o.transport
	}
	if changed("capacity") {
		cfg.Capacity = o.capacity
	}
	if changed("eviction") {
		cfg.Eviction = o.eviction
	}
	if changed("greeting") {
		cfg.Greeting = o.greeting
	}
	if changed("render") {
		cfg.Render = o.render
	}
	if changed("reconnect") {
		enabled := o.reconnect
		cfg.Reconnect.Enabled = &enabled
	}
	if changed("max-attempts") {
		cfg.Reconnect.MaxAttempts = o.maxAttempts
	}
	if changed("dial-timeout") {
		cfg.DialTimeout = o.dialTimeout
	}
	if changed("log-level") {
		cfg.Log.Level = o.logLevel
	}
	if changed("log-format") {
		cfg.Log.Format = o.logFormat
	}
	if changed("log-file") {
		cfg.Log.File = o.logFile
	}
}

// Command display connects to a chat feed and shows the most recent
// messages, ordered by timestamp.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/internal/buffer"
	"github.com/omochice/toy-chat-display/internal/client"
	"github.com/omochice/toy-chat-display/internal/config"
	"github.com/omochice/toy-chat-display/internal/display"
	"github.com/omochice/toy-chat-display/internal/logging"
	"github.com/omochice/toy-chat-display/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var configPath string
	var overrides config.Overrides

	flagSet := pflag.NewFlagSet("display", pflag.ContinueOnError)
	flagSet.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	overrides.AddFlags(flagSet)
	flagSet.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: display [flags] [address]\n\n")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	args := flagSet.Args()
	if len(args) > 1 {
		return fmt.Errorf("unexpected argument: %s", args[1])
	}

	cfg, err := config.LoadWithDefaults(configPath)
	if err != nil {
		return err
	}
	overrides.Apply(cfg)
	if len(args) == 1 {
		cfg.Address = args[0]
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	policy, err := buffer.ParseEvictionPolicy(cfg.Eviction)
	if err != nil {
		return err
	}
	buf := buffer.New(cfg.Capacity, policy)

	dialer, err := transport.NewDialer(cfg.Transport, transport.Options{DialTimeout: cfg.DialTimeout})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn := client.Open(ctx, client.Config{
		Address:     cfg.Address,
		Reconnect:   cfg.ReconnectEnabled(),
		BaseDelay:   cfg.Reconnect.BaseDelay,
		MaxDelay:    cfg.Reconnect.MaxDelay,
		MaxAttempts: cfg.Reconnect.MaxAttempts,
		DialTimeout: cfg.DialTimeout,
		Handshake:   client.Greeting(cfg.Greeting),
	}, dialer, logger)
	defer conn.Close()

	logger.Info("display starting",
		zap.String("addr", cfg.Address),
		zap.String("transport", cfg.Transport),
		zap.Int("capacity", buf.Cap()),
		zap.Stringer("eviction", buf.Policy()),
	)

	if cfg.Render == config.RenderPlain {
		return runPlain(ctx, conn, buf, logger)
	}
	return runTUI(ctx, cfg, conn, buf, logger)
}

// newLogger keeps the terminal clean for the TUI unless a log file is set.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Render == config.RenderTUI && cfg.Log.File == "" {
		return zap.NewNop(), nil
	}
	return logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
}

func runPlain(ctx context.Context, conn *client.Connection, buf *buffer.Buffer, logger *zap.Logger) error {
	session := display.NewSession(buf, os.Stdout, logger)
	err := session.Run(ctx, conn.Envelopes())
	conn.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return conn.Err()
}

func runTUI(ctx context.Context, cfg *config.Config, conn *client.Connection, buf *buffer.Buffer, logger *zap.Logger) error {
	snapshots, unsubscribe := buf.Subscribe()
	defer unsubscribe()

	session := display.NewSession(buf, nil, logger)
	go session.Run(ctx, conn.Envelopes())

	model := display.NewModel(cfg.Address, buf.Cap(), snapshots, conn.States())
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

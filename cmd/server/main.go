// Command server runs a demo chat feed for the display client.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/logging"
	"github.com/omochice/toy-chat-display/internal/server"
	"github.com/omochice/toy-chat-display/internal/transport/tcp"
	"github.com/omochice/toy-chat-display/internal/transport/ws"
)

type listener interface {
	Start() error
	Stop()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		addr      string
		wsAddr    string
		tcpAddr   string
		replay    int
		perSecond float64
		jitter    time.Duration
		stdin     bool
		logOpts   logging.Options
	)

	flagSet := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flagSet.StringVar(&addr, "addr", ":51000", "address accepting both WebSocket and TCP displays")
	flagSet.StringVar(&wsAddr, "ws-addr", "", "extra WebSocket-only listener (disabled when empty)")
	flagSet.StringVar(&tcpAddr, "tcp-addr", "", "extra TCP-only listener (disabled when empty)")
	flagSet.IntVar(&replay, "replay", chat.DefaultReplaySize, "entries replayed to a display after its greeting")
	flagSet.Float64Var(&perSecond, "rate", 1, "synthetic entries per second (0 disables the generator)")
	flagSet.DurationVar(&jitter, "jitter", 2*time.Second, "maximum backwards skew of synthetic timestamps")
	flagSet.BoolVar(&stdin, "stdin", true, "broadcast lines typed on stdin")
	flagSet.StringVar(&logOpts.Level, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.StringVar(&logOpts.Format, "log-format", logging.FormatConsole, "log format: console or json")
	flagSet.StringVar(&logOpts.File, "log-file", "", "write logs to this file instead of stderr")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	logger, err := logging.New(logOpts)
	if err != nil {
		return err
	}
	defer logger.Sync()

	hub := chat.NewHub(replay, logger)

	listeners := []listener{server.New(addr, hub, logger)}
	if wsAddr != "" {
		listeners = append(listeners, ws.New(wsAddr, hub, logger))
	}
	if tcpAddr != "" {
		listeners = append(listeners, tcp.New(tcpAddr, hub, logger))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(listeners))
	for _, l := range listeners {
		go func() {
			if err := l.Start(); err != nil {
				errCh <- err
			}
		}()
	}
	defer func() {
		for _, l := range listeners {
			l.Stop()
		}
		logger.Info("feed server stopped")
	}()

	if perSecond > 0 {
		gen := server.NewGenerator(perSecond, jitter)
		go gen.Run(ctx, hub, logger)
	}
	if stdin {
		go func() {
			if err := server.Relay(ctx, os.Stdin, hub, os.Stdout, logger); err != nil {
				logger.Warn("stdin relay stopped", zap.Error(err))
			}
		}()
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	}
}

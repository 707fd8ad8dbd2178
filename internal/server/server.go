// Package server implements the demo feed: a single listener that accepts
// display clients over WebSocket or line-delimited TCP and fans entries out
// to them through a chat.Hub.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/transport/gobwas"
	"github.com/omochice/toy-chat-display/internal/transport/tcp"
)

// DefaultSniffTimeout bounds how long a new connection may stay silent
// before its protocol is known.
const DefaultSniffTimeout = 10 * time.Second

const outgoingBufferSize = 64

// Server accepts both WebSocket and TCP displays on one port.
type Server struct {
	address      string
	listener     net.Listener
	hub          *chat.Hub
	logger       *zap.Logger
	sniffTimeout time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	ready        chan struct{}
}

// New creates a Server that uses the provided Hub.
func New(address string, hub *chat.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address:      address,
		hub:          hub,
		logger:       logger,
		sniffTimeout: DefaultSniffTimeout,
		ctx:          ctx,
		cancel:       cancel,
		ready:        make(chan struct{}),
	}
}

// Start starts accepting connections. It blocks until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = listener
	close(s.ready)

	s.logger.Info("feed server started", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("failed to accept connection", zap.Error(err))
			continue
		}

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Stop closes the listener and every client, then waits for them.
func (s *Server) Stop() {
	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}
	s.wg.Wait()
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

// ClientCount returns the number of registered displays.
func (s *Server) ClientCount() int {
	return s.hub.ClientCount()
}

func (s *Server) serveConn(raw net.Conn) {
	defer s.wg.Done()

	logger := s.logger.With(zap.String("remote", raw.RemoteAddr().String()))

	raw.SetReadDeadline(time.Now().Add(s.sniffTimeout))
	proto, conn, err := detectProtocol(raw)
	if err != nil {
		logger.Debug("failed to detect protocol", zap.Error(err))
		raw.Close()
		return
	}

	var c chat.Conn
	switch proto {
	case protocolHTTP:
		wsConn, err := gobwas.Upgrade(conn)
		if err != nil {
			logger.Warn("failed to upgrade connection", zap.Error(err))
			raw.Close()
			return
		}
		c = wsConn
		logger.Debug("websocket display connected")
	default:
		c = tcp.NewConn(conn)
		logger.Debug("tcp display connected")
	}
	raw.SetReadDeadline(time.Time{})

	client := &chat.Client{
		Conn:     c,
		Outgoing: make(chan []byte, outgoingBufferSize),
	}

	s.wg.Add(1)
	go s.writeLoop(client)

	defer close(client.Outgoing)
	defer c.Close()
	s.hub.HandleClient(s.ctx, client)
}

func (s *Server) writeLoop(client *chat.Client) {
	defer s.wg.Done()
	for data := range client.Outgoing {
		if err := client.Conn.Write(s.ctx, chat.FrameText, data); err != nil {
			s.logger.Debug("failed to write to display", zap.Error(err))
			client.Conn.Close()
			for range client.Outgoing {
			}
			return
		}
	}
}

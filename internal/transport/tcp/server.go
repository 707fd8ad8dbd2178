package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// Server handles TCP connections and delegates to Hub.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	ready    chan struct{}
}

// New creates a TCP server that uses the provided Hub.
func New(address string, hub *chat.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		address: address,
		hub:     hub,
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		ready:   make(chan struct{}),
	}
}

// Start starts accepting TCP connections. It blocks until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start TCP server: %w", err)
	}
	s.listener = listener
	close(s.ready)

	s.logger.Info("TCP server started", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("failed to accept TCP connection", zap.Error(err))
			continue
		}

		client := &chat.Client{
			Conn:     NewConn(conn),
			Outgoing: make(chan []byte, 64),
		}

		s.wg.Add(2)
		go s.handleClient(client)
		go s.writeLoop(client)
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Stop stops the TCP server.
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

func (s *Server) handleClient(client *chat.Client) {
	defer s.wg.Done()
	defer close(client.Outgoing)
	defer client.Conn.Close()
	s.hub.HandleClient(s.ctx, client)
}

func (s *Server) writeLoop(client *chat.Client) {
	defer s.wg.Done()
	for data := range client.Outgoing {
		if err := client.Conn.Write(s.ctx, chat.FrameText, data); err != nil {
			s.logger.Debug("failed to write to TCP client", zap.Error(err))
			client.Conn.Close()
			for range client.Outgoing {
			}
			return
		}
	}
}

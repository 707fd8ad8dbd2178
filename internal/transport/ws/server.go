package ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// Server handles WebSocket connections and delegates to Hub.
type Server struct {
	address  string
	listener net.Listener
	hub      *chat.Hub
	server   *http.Server
	logger   *zap.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	ready    chan struct{}
}

// New creates a WebSocket server that uses the provided Hub.
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

// Start starts accepting WebSocket connections. It blocks until Stop.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("failed to start WebSocket server: %w", err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWebSocket)
	s.server = &http.Server{Handler: mux}
	close(s.ready)

	s.logger.Info("WebSocket server started", zap.String("addr", listener.Addr().String()))

	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("WebSocket server: %w", err)
	}
	return nil
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Stop stops the WebSocket server and disconnects every client.
func (s *Server) Stop() {
	s.cancel()
	if s.server != nil {
		s.server.Shutdown(context.Background())
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

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Displays are usually served from another origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		s.logger.Warn("failed to accept WebSocket connection", zap.Error(err))
		return
	}

	client := &chat.Client{
		Conn:     NewConnWithAddr(wsConn, r.RemoteAddr),
		Outgoing: make(chan []byte, 64),
	}

	s.wg.Add(2)
	go s.handleClient(client)
	go s.writeLoop(client)
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
			s.logger.Debug("failed to write to WebSocket client", zap.Error(err))
			client.Conn.Close()
			for range client.Outgoing {
			}
			return
		}
	}
}

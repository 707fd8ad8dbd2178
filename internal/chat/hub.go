package chat

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// DefaultReplaySize is how many recent entries a new client receives.
const DefaultReplaySize = 16

// Client represents a connected display with transport-agnostic connection.
type Client struct {
	Conn     Conn
	Greeting string
	Outgoing chan []byte
}

// Hub manages all connected displays and broadcasts entries to them.
// WebSocket and TCP servers share a single Hub instance.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	// recent holds encoded entries, oldest first.
	recent     [][]byte
	replaySize int

	logger *zap.Logger
}

// NewHub creates a new Hub that replays up to replaySize recent entries.
func NewHub(replaySize int, logger *zap.Logger) *Hub {
	if replaySize < 0 {
		replaySize = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[*Client]bool),
		replaySize: replaySize,
		logger:     logger,
	}
}

// Register adds a client to the hub and queues the replay for it.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	for _, data := range h.recent {
		select {
		case client.Outgoing <- data:
		default:
			h.logger.Warn("replay dropped, client queue full", zap.String("remote", client.Conn.RemoteAddr()))
			return
		}
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast encodes the entry, remembers it for replay and queues it for
// every registered client. Clients whose queue is full miss the entry.
func (h *Hub) Broadcast(e protocol.Entry) error {
	data, err := e.Encode()
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.replaySize > 0 {
		if len(h.recent) == h.replaySize {
			h.recent = h.recent[1:]
		}
		h.recent = append(h.recent, data)
	}

	for client := range h.clients {
		select {
		case client.Outgoing <- data:
		default:
			h.logger.Warn("client queue full, dropping entry", zap.String("remote", client.Conn.RemoteAddr()))
		}
	}
	return nil
}

// HandleClient reads the client's greeting, registers it, then discards
// further input until the connection fails or ctx is done.
func (h *Hub) HandleClient(ctx context.Context, client *Client) {
	remote := client.Conn.RemoteAddr()

	_, data, err := client.Conn.Read(ctx)
	if err != nil {
		h.logger.Debug("client left before greeting", zap.String("remote", remote), zap.Error(err))
		return
	}
	greeting, err := protocol.DecodeGreeting(data)
	if err != nil {
		// The greeting is a placeholder; accept the client anyway.
		h.logger.Warn("unexpected greeting", zap.String("remote", remote), zap.Error(err))
	}
	client.Greeting = greeting

	h.Register(client)
	defer h.Unregister(client)
	h.logger.Info("display connected", zap.String("remote", remote), zap.String("greeting", greeting))

	for {
		if _, _, err := client.Conn.Read(ctx); err != nil {
			h.logger.Info("display disconnected", zap.String("remote", remote))
			return
		}
	}
}

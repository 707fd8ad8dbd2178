package ws

import (
	"context"
	"fmt"

	"nhooyr.io/websocket"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// Dialer opens WebSocket connections to a feed.
type Dialer struct {
	// ReadLimit caps the size of one inbound frame. Zero keeps the library default.
	ReadLimit int64
}

// Dial connects to a ws:// or wss:// address.
func (d Dialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	conn, resp, err := websocket.Dial(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	if d.ReadLimit > 0 {
		conn.SetReadLimit(d.ReadLimit)
	}

	remote := address
	if resp != nil && resp.Request != nil {
		remote = resp.Request.URL.Host
	}
	return NewConnWithAddr(conn, remote), nil
}

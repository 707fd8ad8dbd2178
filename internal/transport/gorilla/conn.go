// Package gorilla provides a WebSocket dialer built on gorilla/websocket.
package gorilla

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/omochice/toy-chat-display/internal/chat"
)

const defaultWriteTimeout = 5 * time.Second

// Dialer opens WebSocket connections with gorilla/websocket.
type Dialer struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Dial connects to a ws:// or wss:// address.
func (d Dialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: d.HandshakeTimeout,
		Proxy:            http.ProxyFromEnvironment,
	}
	conn, _, err := dialer.DialContext(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}

	writeTimeout := d.WriteTimeout
	if writeTimeout <= 0 {
		writeTimeout = defaultWriteTimeout
	}
	return &Conn{conn: conn, writeTimeout: writeTimeout}, nil
}

// Conn adapts a gorilla websocket.Conn to chat.Conn.
type Conn struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
}

// Read implements chat.Conn.
// Cancelling ctx closes the underlying connection.
func (c *Conn) Read(ctx context.Context) (chat.FrameType, []byte, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	typ, data, err := c.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}
	if typ == websocket.BinaryMessage {
		return chat.FrameBinary, data, nil
	}
	return chat.FrameText, data, nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, typ chat.FrameType, data []byte) error {
	msgType := websocket.TextMessage
	if typ == chat.FrameBinary {
		msgType = websocket.BinaryMessage
	}

	deadline := time.Now().Add(c.writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(msgType, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	c.writeMu.Lock()
	c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	c.writeMu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

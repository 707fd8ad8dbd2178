// Package ws provides the WebSocket transport built on nhooyr.io/websocket.
// It is the default transport of the display client and the one the feed
// server accepts.
package ws

import (
	"context"
	"errors"
	"io"

	"nhooyr.io/websocket"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// Conn adapts nhooyr.io/websocket to chat.Conn interface.
type Conn struct {
	conn       *websocket.Conn
	remoteAddr string
}

// NewConn wraps a websocket.Conn with empty remote address.
func NewConn(conn *websocket.Conn) *Conn {
	return &Conn{conn: conn}
}

// NewConnWithAddr wraps a websocket.Conn with the specified remote address.
func NewConnWithAddr(conn *websocket.Conn, addr string) *Conn {
	return &Conn{conn: conn, remoteAddr: addr}
}

// Read implements chat.Conn.
// A normal closure by the peer is reported as io.EOF.
func (c *Conn) Read(ctx context.Context) (chat.FrameType, []byte, error) {
	typ, data, err := c.conn.Read(ctx)
	if err != nil {
		if isNormalClose(err) {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}
	if typ == websocket.MessageBinary {
		return chat.FrameBinary, data, nil
	}
	return chat.FrameText, data, nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, typ chat.FrameType, data []byte) error {
	msgType := websocket.MessageText
	if typ == chat.FrameBinary {
		msgType = websocket.MessageBinary
	}
	return c.conn.Write(ctx, msgType, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "")
	if isNormalClose(err) {
		return nil
	}
	return err
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.remoteAddr
}

func isNormalClose(err error) bool {
	if err == nil {
		return false
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	}
	return errors.Is(err, io.EOF)
}

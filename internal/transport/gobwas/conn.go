// Package gobwas provides WebSocket connections built on the low level
// gobwas/ws frame API, for both the dialing and the accepting side.
package gobwas

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// Dialer opens WebSocket connections with gobwas/ws.
type Dialer struct {
	Timeout time.Duration
}

// Dial connects to a ws:// or wss:// address.
func (d Dialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	conn, br, _, err := ws.Dialer{Timeout: d.Timeout}.Dial(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return newConn(conn, br, ws.StateClientSide), nil
}

// Upgrade performs the server side handshake on conn, which may already
// have been read from through a buffered wrapper.
func Upgrade(conn net.Conn) (*Conn, error) {
	if _, err := ws.Upgrade(conn); err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}
	return newConn(conn, nil, ws.StateServerSide), nil
}

// Conn adapts a gobwas connection to chat.Conn.
// Control frames are answered while reading.
type Conn struct {
	conn   net.Conn
	reader io.Reader
	state  ws.State
	mu     sync.Mutex
}

func newConn(conn net.Conn, br *bufio.Reader, state ws.State) *Conn {
	c := &Conn{conn: conn, reader: conn, state: state}
	if br != nil {
		// The handshake may have buffered the first frames.
		c.reader = io.MultiReader(br, conn)
	}
	return c
}

// Read implements chat.Conn.
// Cancelling ctx closes the underlying connection.
func (c *Conn) Read(ctx context.Context) (chat.FrameType, []byte, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.Close() })
	defer stop()

	data, op, err := wsutil.ReadData(readWriter{Reader: c.reader, Writer: lockedWriter{c}}, c.state)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		var closed wsutil.ClosedError
		if errors.As(err, &closed) && (closed.Code == ws.StatusNormalClosure || closed.Code == ws.StatusGoingAway) {
			return 0, nil, io.EOF
		}
		return 0, nil, err
	}
	if op == ws.OpBinary {
		return chat.FrameBinary, data, nil
	}
	return chat.FrameText, data, nil
}

// Write implements chat.Conn.
func (c *Conn) Write(ctx context.Context, typ chat.FrameType, data []byte) error {
	op := ws.OpText
	if typ == chat.FrameBinary {
		op = ws.OpBinary
	}
	if d, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(d)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return wsutil.WriteMessage(c.conn, c.state, op, data)
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	c.mu.Lock()
	_ = wsutil.WriteMessage(c.conn, c.state, ws.OpClose, ws.NewCloseFrameBody(ws.StatusNormalClosure, ""))
	c.mu.Unlock()
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

type readWriter struct {
	io.Reader
	io.Writer
}

// lockedWriter serializes control frame replies with Write.
type lockedWriter struct {
	c *Conn
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.conn.Write(p)
}

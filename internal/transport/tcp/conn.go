// Package tcp provides the newline-delimited JSON transport: one frame per
// line over a plain TCP stream.
package tcp

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/omochice/toy-chat-display/internal/chat"
)

// MaxLineSize caps the length of one frame.
const MaxLineSize = 1 << 20

// Conn adapts net.Conn to chat.Conn interface.
type Conn struct {
	conn    net.Conn
	scanner *bufio.Scanner
	writeMu sync.Mutex
}

// NewConn wraps a net.Conn.
func NewConn(conn net.Conn) *Conn {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), MaxLineSize)
	return &Conn{conn: conn, scanner: scanner}
}

// Read implements chat.Conn.
// Reads the next non-empty line. Every frame is a text frame.
func (c *Conn) Read(ctx context.Context) (chat.FrameType, []byte, error) {
	stop := context.AfterFunc(ctx, func() { c.conn.SetReadDeadline(time.Unix(1, 0)) })
	defer stop()

	for c.scanner.Scan() {
		line := bytes.TrimSpace(c.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		return chat.FrameText, bytes.Clone(line), nil
	}
	if ctx.Err() != nil {
		return 0, nil, ctx.Err()
	}
	if err := c.scanner.Err(); err != nil {
		return 0, nil, err
	}
	return 0, nil, io.EOF
}

// Write implements chat.Conn.
// Binary frames cannot be carried and are rejected.
func (c *Conn) Write(ctx context.Context, typ chat.FrameType, data []byte) error {
	if typ != chat.FrameText {
		return fmt.Errorf("tcp transport carries text frames only")
	}
	if bytes.IndexByte(data, '\n') >= 0 {
		return fmt.Errorf("frame contains a newline")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if d, ok := ctx.Deadline(); ok {
		c.conn.SetWriteDeadline(d)
		defer c.conn.SetWriteDeadline(time.Time{})
	}
	_, err := c.conn.Write(append(bytes.Clone(data), '\n'))
	return err
}

// Close implements chat.Conn.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// RemoteAddr implements chat.Conn.
func (c *Conn) RemoteAddr() string {
	return c.conn.RemoteAddr().String()
}

// Dialer opens TCP connections to a tcp://host:port address.
type Dialer struct {
	Timeout time.Duration
}

// Dial connects to address. A bare host:port is accepted too.
func (d Dialer) Dial(ctx context.Context, address string) (chat.Conn, error) {
	hostport, err := HostPort(address)
	if err != nil {
		return nil, err
	}
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", hostport)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	return NewConn(conn), nil
}

// HostPort extracts host:port from a tcp:// address.
func HostPort(address string) (string, error) {
	if !strings.Contains(address, "://") {
		return address, nil
	}
	u, err := url.Parse(address)
	if err != nil {
		return "", fmt.Errorf("invalid address %q: %w", address, err)
	}
	if u.Scheme != "tcp" {
		return "", fmt.Errorf("invalid address %q: scheme must be tcp", address)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid address %q: missing host", address)
	}
	return u.Host, nil
}

package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omochice/toy-chat-display/internal/chat"
)

type idleConn struct {
	closed    chan struct{}
	closeOnce sync.Once
	writes    int
}

func (c *idleConn) Read(ctx context.Context) (chat.FrameType, []byte, error) {
	select {
	case <-ctx.Done():
		return 0, nil, ctx.Err()
	case <-c.closed:
		return 0, nil, ErrClosed
	}
}

func (c *idleConn) Write(ctx context.Context, typ chat.FrameType, data []byte) error {
	c.writes++
	return nil
}

func (c *idleConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *idleConn) RemoteAddr() string { return "idle" }

// A dial landing after Close marked the connection as closing, but before
// the context was cancelled, ends the lifecycle cleanly.
func TestConnection_DialLandingWhileClosing(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	late := &idleConn{closed: make(chan struct{})}

	dialer := DialerFunc(func(ctx context.Context, address string) (chat.Conn, error) {
		close(started)
		<-release
		return late, nil
	})
	c := Open(context.Background(), Config{Address: "ws://feed.test"}, dialer, nil)
	<-started

	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	close(release)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("connection did not close")
	}

	assert.NoError(t, c.Err())
	assert.Equal(t, StateClosed, c.State())
	assert.Zero(t, late.writes)
	select {
	case <-late.closed:
	default:
		t.Error("late transport left open")
	}
	require.NoError(t, c.Close())
}

package display

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/omochice/toy-chat-display/internal/buffer"
	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/client"
	"github.com/omochice/toy-chat-display/internal/server"
	"github.com/omochice/toy-chat-display/internal/transport/ws"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

func TestSession_ReconnectToReplayingFeed(t *testing.T) {
	const wait = 2 * time.Second

	hub := chat.NewHub(chat.DefaultReplaySize, nil)
	srv := server.New("127.0.0.1:0", hub, nil)
	go srv.Start()
	select {
	case <-srv.Ready():
	case <-time.After(wait):
		t.Fatal("server did not start")
	}
	defer srv.Stop()

	for ts := int64(1); ts <= 3; ts++ {
		require.NoError(t, hub.Broadcast(protocol.Entry{Display: "feed", Data: "m", Timestamp: ts}))
	}

	conns := make(chan chat.Conn, 4)
	dialer := client.DialerFunc(func(ctx context.Context, address string) (chat.Conn, error) {
		conn, err := ws.Dialer{}.Dial(ctx, address)
		if err == nil {
			conns <- conn
		}
		return conn, err
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn := client.Open(ctx, client.Config{
		Address:   "ws://" + srv.Addr(),
		Reconnect: true,
		BaseDelay: 10 * time.Millisecond,
		MaxDelay:  50 * time.Millisecond,
	}, dialer, nil)
	defer conn.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	buf := buffer.New(64, buffer.EvictFront)
	s := NewSession(buf, nil, zap.New(core))
	go s.Run(ctx, conn.Envelopes())

	require.Eventually(t, func() bool { return buf.Len() == 3 }, wait, 5*time.Millisecond)

	first := <-conns
	first.Close()

	select {
	case <-conns:
	case <-time.After(wait):
		t.Fatal("no reconnection")
	}
	require.Eventually(t, func() bool {
		return logs.FilterMessage("dropping replayed entry").Len() == 3
	}, wait, 5*time.Millisecond)

	require.NoError(t, hub.Broadcast(protocol.Entry{Display: "feed", Data: "m", Timestamp: 4}))
	require.Eventually(t, func() bool { return buf.Len() == 4 }, wait, 5*time.Millisecond)

	assert.Equal(t, []int64{4, 3, 2, 1}, timestamps(buf.Snapshot()))
}

package ws_test

import (
	"context"
	"testing"
	"time"

	"nhooyr.io/websocket"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/transport/ws"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

func startServer(t *testing.T, hub *chat.Hub) *ws.Server {
	t.Helper()
	srv := ws.New("127.0.0.1:0", hub, nil)
	go srv.Start()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
	t.Cleanup(srv.Stop)
	return srv
}

func TestServer_GreetingThenBroadcast(t *testing.T) {
	hub := chat.NewHub(chat.DefaultReplaySize, nil)
	srv := startServer(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws://"+srv.Addr(), nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	greeting, _ := protocol.EncodeGreeting(protocol.DefaultGreeting)
	if err := conn.Write(ctx, websocket.MessageText, greeting); err != nil {
		t.Fatalf("failed to send greeting: %v", err)
	}

	for hub.ClientCount() != 1 {
		select {
		case <-ctx.Done():
			t.Fatal("display was not registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := hub.Broadcast(protocol.Entry{Display: "alice", Data: "hi", Timestamp: 1}); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read broadcast: %v", err)
	}
	if typ != websocket.MessageText {
		t.Errorf("frame type = %v, want text", typ)
	}
	var e protocol.Entry
	if err := e.Decode(data); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if e.Display != "alice" {
		t.Errorf("Display = %q, want %q", e.Display, "alice")
	}
}

func TestServer_Addr(t *testing.T) {
	srv := startServer(t, chat.NewHub(0, nil))

	if srv.Addr() == "" {
		t.Error("Addr() returned empty string")
	}
}

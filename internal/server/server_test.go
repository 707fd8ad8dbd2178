package server

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/transport/gorilla"
	"github.com/omochice/toy-chat-display/internal/transport/tcp"
	"github.com/omochice/toy-chat-display/internal/transport/ws"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

func TestDetectProtocol(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  protocolType
	}{
		{"websocket upgrade", "GET / HTTP/1.1\r\nHost: x\r\n\r\n", protocolHTTP},
		{"tcp greeting", "\"42\"\n", protocolTCP},
		{"empty greeting", "\"\"\n", protocolTCP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := net.Pipe()
			defer server.Close()
			defer client.Close()

			go client.Write([]byte(tt.input))

			got, conn, err := detectProtocol(server)
			if err != nil {
				t.Fatalf("detectProtocol() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("detectProtocol() = %v, want %v", got, tt.want)
			}

			buf := make([]byte, len(tt.input))
			if _, err := io.ReadFull(conn, buf); err != nil {
				t.Fatalf("read after detection: %v", err)
			}
			if string(buf) != tt.input {
				t.Errorf("read after detection = %q, want the peeked bytes replayed", buf)
			}
		})
	}
}

func startServer(t *testing.T, hub *chat.Hub) *Server {
	t.Helper()
	srv := New("127.0.0.1:0", hub, nil)
	go srv.Start()
	select {
	case <-srv.Ready():
	case <-time.After(time.Second):
		t.Fatal("server did not start")
	}
	t.Cleanup(srv.Stop)
	return srv
}

func greet(t *testing.T, ctx context.Context, conn chat.Conn) {
	t.Helper()
	data, err := protocol.EncodeGreeting(protocol.DefaultGreeting)
	if err != nil {
		t.Fatalf("EncodeGreeting() error = %v", err)
	}
	if err := conn.Write(ctx, chat.FrameText, data); err != nil {
		t.Fatalf("failed to send greeting: %v", err)
	}
}

func readEntry(t *testing.T, ctx context.Context, conn chat.Conn) protocol.Entry {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("failed to read entry: %v", err)
	}
	var e protocol.Entry
	if err := e.Decode(data); err != nil {
		t.Fatalf("failed to decode entry: %v", err)
	}
	return e
}

func waitForClients(t *testing.T, ctx context.Context, srv *Server, n int) {
	t.Helper()
	for srv.ClientCount() != n {
		select {
		case <-ctx.Done():
			t.Fatalf("ClientCount() = %d, want %d", srv.ClientCount(), n)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestServer_WebSocketAndTCPOnOnePort(t *testing.T) {
	hub := chat.NewHub(chat.DefaultReplaySize, nil)
	srv := startServer(t, hub)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	wsConn, err := ws.Dialer{}.Dial(ctx, "ws://"+srv.Addr())
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	defer wsConn.Close()

	tcpConn, err := tcp.Dialer{}.Dial(ctx, "tcp://"+srv.Addr())
	if err != nil {
		t.Fatalf("tcp dial failed: %v", err)
	}
	defer tcpConn.Close()

	greet(t, ctx, wsConn)
	greet(t, ctx, tcpConn)
	waitForClients(t, ctx, srv, 2)

	want := protocol.Entry{Display: "alice", Data: "hello both", Timestamp: 42}
	if err := hub.Broadcast(want); err != nil {
		t.Fatalf("Broadcast() error = %v", err)
	}

	for name, conn := range map[string]chat.Conn{"websocket": wsConn, "tcp": tcpConn} {
		got := readEntry(t, ctx, conn)
		if got.Display != want.Display || got.Data != want.Data || got.Timestamp != want.Timestamp {
			t.Errorf("%s client received %+v, want %+v", name, got, want)
		}
	}
}

func TestServer_ReplaysRecentEntries(t *testing.T) {
	hub := chat.NewHub(chat.DefaultReplaySize, nil)
	srv := startServer(t, hub)

	for i := int64(1); i <= 3; i++ {
		if err := hub.Broadcast(protocol.Entry{Display: "bob", Data: "earlier", Timestamp: i}); err != nil {
			t.Fatalf("Broadcast() error = %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := gorilla.Dialer{}.Dial(ctx, "ws://"+srv.Addr()+"/feed")
	if err != nil {
		t.Fatalf("gorilla dial failed: %v", err)
	}
	defer conn.Close()
	greet(t, ctx, conn)

	for want := int64(1); want <= 3; want++ {
		if got := readEntry(t, ctx, conn); got.Timestamp != want {
			t.Errorf("replayed timestamp = %d, want %d", got.Timestamp, want)
		}
	}
}

func TestServer_StopDisconnectsClients(t *testing.T) {
	hub := chat.NewHub(chat.DefaultReplaySize, nil)
	srv := New("127.0.0.1:0", hub, nil)
	go srv.Start()
	<-srv.Ready()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	conn, err := tcp.Dialer{}.Dial(ctx, srv.Addr())
	if err != nil {
		t.Fatalf("tcp dial failed: %v", err)
	}
	defer conn.Close()
	greet(t, ctx, conn)
	waitForClients(t, ctx, srv, 1)

	stopped := make(chan struct{})
	go func() {
		srv.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		t.Fatal("Stop did not return")
	}

	if _, _, err := conn.Read(ctx); err == nil {
		t.Error("Read() after Stop: expected error")
	}
	if n := hub.ClientCount(); n != 0 {
		t.Errorf("ClientCount() after Stop = %d, want 0", n)
	}
}

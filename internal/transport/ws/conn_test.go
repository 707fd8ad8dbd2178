package ws_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"nhooyr.io/websocket"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/transport/ws"
)

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConn_Read(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("failed to accept websocket: %v", err)
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		c.Write(context.Background(), websocket.MessageText, []byte(`{"display":"a"}`))
		c.Write(context.Background(), websocket.MessageBinary, []byte{0x0a, 0x01, 'a'})
		c.Read(context.Background())
	}))
	defer server.Close()

	wsConn, _, err := websocket.Dial(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer wsConn.Close(websocket.StatusNormalClosure, "")

	conn := ws.NewConn(wsConn)

	typ, data, err := conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != chat.FrameText || string(data) != `{"display":"a"}` {
		t.Errorf("Read() = %v %q, want text frame", typ, data)
	}

	typ, data, err = conn.Read(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if typ != chat.FrameBinary || len(data) != 3 {
		t.Errorf("Read() = %v %v, want binary frame", typ, data)
	}
}

func TestConn_Read_PeerClosed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		c.Close(websocket.StatusNormalClosure, "bye")
	}))
	defer server.Close()

	wsConn, _, err := websocket.Dial(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	conn := ws.NewConn(wsConn)
	defer conn.Close()

	_, _, err = conn.Read(context.Background())
	if !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want io.EOF", err)
	}
}

func TestConn_Write(t *testing.T) {
	received := make(chan []byte, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("failed to accept websocket: %v", err)
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")

		typ, data, err := c.Read(context.Background())
		if err != nil || typ != websocket.MessageText {
			return
		}
		received <- data
	}))
	defer server.Close()

	wsConn, _, err := websocket.Dial(context.Background(), wsURL(server), nil)
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}
	defer wsConn.Close(websocket.StatusNormalClosure, "")

	conn := ws.NewConn(wsConn)

	if err := conn.Write(context.Background(), chat.FrameText, []byte(`"42"`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	data := <-received
	if string(data) != `"42"` {
		t.Errorf("server received %q, want %q", string(data), `"42"`)
	}
}

func TestDialer_Dial(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		c.Read(context.Background())
	}))
	defer server.Close()

	conn, err := ws.Dialer{ReadLimit: 1 << 16}.Dial(context.Background(), wsURL(server))
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if conn.RemoteAddr() == "" {
		t.Error("RemoteAddr() returned empty string")
	}
}

func TestDialer_Dial_Refused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	addr := wsURL(server)
	server.Close()

	if _, err := (ws.Dialer{}).Dial(context.Background(), addr); err == nil {
		t.Error("expected error dialing a closed server")
	}
}

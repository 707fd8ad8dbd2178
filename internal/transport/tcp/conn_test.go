package tcp_test

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/transport/tcp"
)

func TestConn_ReadLines(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := tcp.NewConn(client)
	defer conn.Close()

	go func() {
		server.Write([]byte("{\"a\":1}\n\n  \r\n{\"b\":2}\r\n"))
		server.Close()
	}()

	for _, want := range []string{`{"a":1}`, `{"b":2}`} {
		typ, data, err := conn.Read(context.Background())
		if err != nil {
			t.Fatalf("Read() error = %v", err)
		}
		if typ != chat.FrameText || string(data) != want {
			t.Errorf("Read() = %v %q, want %q", typ, data, want)
		}
	}

	if _, _, err := conn.Read(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("Read() error = %v, want io.EOF", err)
	}
}

func TestConn_Write(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := tcp.NewConn(client)
	defer conn.Close()

	received := make(chan string, 1)
	go func() {
		buf := make([]byte, 64)
		n, _ := server.Read(buf)
		received <- string(buf[:n])
	}()

	if err := conn.Write(context.Background(), chat.FrameText, []byte(`"42"`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := <-received; got != "\"42\"\n" {
		t.Errorf("peer received %q", got)
	}

	if err := conn.Write(context.Background(), chat.FrameBinary, []byte{1}); err == nil {
		t.Error("expected error writing a binary frame")
	}
	if err := conn.Write(context.Background(), chat.FrameText, []byte("a\nb")); err == nil {
		t.Error("expected error writing a frame with a newline")
	}
}

func TestConn_Read_ContextCancel(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := tcp.NewConn(client)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, _, err := conn.Read(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Read() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestHostPort(t *testing.T) {
	tests := []struct {
		address string
		want    string
		wantErr bool
	}{
		{"tcp://localhost:51001", "localhost:51001", false},
		{"localhost:51001", "localhost:51001", false},
		{"ws://localhost:51001", "", true},
		{"tcp://", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			got, err := tcp.HostPort(tt.address)
			if (err != nil) != tt.wantErr {
				t.Fatalf("HostPort() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("HostPort() = %q, want %q", got, tt.want)
			}
		})
	}
}

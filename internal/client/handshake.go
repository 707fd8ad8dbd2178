package client

import (
	"context"

	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// Handshake runs on every freshly dialed transport before the Connection
// reports StateOpen. It performs exactly one exchange. An error is treated
// as a disconnect.
type Handshake func(ctx context.Context, conn chat.Conn) error

// Greeting returns a Handshake that sends payload as a JSON string and
// expects no reply. The server is assumed to accept it unconditionally.
func Greeting(payload string) Handshake {
	return func(ctx context.Context, conn chat.Conn) error {
		data, err := protocol.EncodeGreeting(payload)
		if err != nil {
			return err
		}
		return conn.Write(ctx, chat.FrameText, data)
	}
}

const defaultGreeting = protocol.DefaultGreeting

// Package chat holds the transport-agnostic pieces shared by the display
// client and the feed server: the frame connection abstraction and the hub
// that fans entries out to connected displays.
package chat

import "context"

// FrameType distinguishes text frames (JSON) from binary frames.
type FrameType int

const (
	FrameText FrameType = iota
	FrameBinary
)

// String returns the string representation of FrameType
func (ft FrameType) String() string {
	switch ft {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	default:
		return "unknown"
	}
}

// Conn abstracts a bidirectional frame connection for WebSocket and TCP.
// This interface isolates transport details from chat logic.
type Conn interface {
	// Read reads a single frame.
	// Returns io.EOF when the connection is closed by the peer.
	Read(ctx context.Context) (FrameType, []byte, error)

	// Write sends a single frame.
	Write(ctx context.Context, typ FrameType, data []byte) error

	// Close closes the connection.
	Close() error

	// RemoteAddr returns the remote address for logging.
	RemoteAddr() string
}

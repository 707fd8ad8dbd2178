// Package display turns inbound envelopes into buffered entries and renders
// them.
package display

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/omochice/toy-chat-display/internal/buffer"
	"github.com/omochice/toy-chat-display/internal/chat"
	"github.com/omochice/toy-chat-display/internal/client"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// replayWindow is how many accepted entries are remembered to recognise a
// feed replaying them after a reconnect.
const replayWindow = 256

type entryKey struct {
	timestamp int64
	display   string
	userID    string
	data      string
}

func keyOf(e protocol.Entry) entryKey {
	return entryKey{timestamp: e.Timestamp, display: e.Display, userID: e.UserID, data: e.Data}
}

// Session feeds decoded envelopes into a buffer. It must be the only
// goroutine calling Insert on that buffer.
//
// A feed may replay recent entries to every new transport session. An
// entry already accepted from an earlier session is dropped, so the
// buffer holds each message once across reconnects.
type Session struct {
	buf     *buffer.Buffer
	console io.Writer
	logger  *zap.Logger

	// seen maps recently accepted entries to the session that delivered
	// them; order holds the same keys oldest first.
	seen  map[entryKey]string
	order []entryKey

	accepted int
	rejected int
	replayed int
}

// NewSession returns a Session inserting into buf. Each accepted entry is
// written to console as one line. With a nil console the line is logged
// at info level instead.
func NewSession(buf *buffer.Buffer, console io.Writer, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		buf:     buf,
		console: console,
		logger:  logger,
		seen:    make(map[entryKey]string),
	}
}

// Run consumes envelopes until the channel is closed or ctx is done.
func (s *Session) Run(ctx context.Context, envelopes <-chan client.Envelope) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-envelopes:
			if !ok {
				s.logger.Debug("envelope stream closed",
					zap.Int("accepted", s.accepted),
					zap.Int("rejected", s.rejected),
					zap.Int("replayed", s.replayed),
				)
				return nil
			}
			if err := s.Handle(env); err != nil {
				var decodeErr *protocol.DecodeError
				if !errors.As(err, &decodeErr) {
					return err
				}
			}
		}
	}
}

// Handle decodes one envelope and inserts the entry. A malformed frame is
// logged and dropped with the buffer left untouched; the DecodeError is
// returned so callers can count it.
func (s *Session) Handle(env client.Envelope) error {
	var e protocol.Entry
	var err error
	switch env.Type {
	case chat.FrameBinary:
		err = e.DecodeBinary(env.Data)
	default:
		err = e.Decode(env.Data)
	}
	if err != nil {
		s.rejected++
		s.logger.Warn("dropping malformed frame",
			zap.String("session", env.SessionID),
			zap.Stringer("frame_type", env.Type),
			zap.Int("size", len(env.Data)),
			zap.Error(err),
		)
		return err
	}

	key := keyOf(e)
	if from, ok := s.seen[key]; ok && from != env.SessionID {
		s.replayed++
		s.logger.Debug("dropping replayed entry",
			zap.String("session", env.SessionID),
			zap.String("display", e.Display),
			zap.Int64("timestamp", e.Timestamp),
		)
		return nil
	}
	s.remember(key, env.SessionID)

	s.accepted++
	if evicted, ok := s.buf.Insert(e); ok {
		s.logger.Debug("evicted entry",
			zap.String("display", evicted.Display),
			zap.Int64("timestamp", evicted.Timestamp),
		)
	}

	line := ConsoleLine(e)
	if s.console == nil {
		s.logger.Info("entry", zap.String("session", env.SessionID), zap.String("line", line))
		return nil
	}
	if _, err := fmt.Fprintln(s.console, line); err != nil {
		return fmt.Errorf("write console line: %w", err)
	}
	return nil
}

func (s *Session) remember(key entryKey, sessionID string) {
	if _, ok := s.seen[key]; ok {
		return
	}
	if len(s.order) == replayWindow {
		delete(s.seen, s.order[0])
		s.order = s.order[1:]
	}
	s.seen[key] = sessionID
	s.order = append(s.order, key)
}

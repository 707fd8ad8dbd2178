package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// DefaultDisplayName labels console lines that carry no "name:" prefix.
const DefaultDisplayName = "server"

// Publisher accepts entries for every connected display.
type Publisher interface {
	Broadcast(e protocol.Entry) error
}

// ParseLine turns a console line into an entry. "alice: hi" is sent as
// alice; "/me waves" becomes an action. Blank lines are rejected.
func ParseLine(line string, now time.Time) (protocol.Entry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return protocol.Entry{}, false
	}

	e := protocol.Entry{Display: DefaultDisplayName, Timestamp: now.UnixMilli()}
	if name, body, ok := strings.Cut(line, ": "); ok && name != "" && !strings.ContainsAny(name, " @") {
		e.Display = name
		line = body
	}
	if action, ok := strings.CutPrefix(line, "/me "); ok {
		e.IsAction = true
		line = action
	}
	e.Data = line
	e.UserID = strings.ToLower(e.Display)
	return e, true
}

// Relay broadcasts every line read from r until EOF or ctx is done. Each
// line is echoed to console in its display form, except @mentions.
func Relay(ctx context.Context, r io.Reader, pub Publisher, console io.Writer, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		e, ok := ParseLine(scanner.Text(), time.Now())
		if !ok {
			continue
		}
		if err := pub.Broadcast(e); err != nil {
			logger.Warn("failed to broadcast entry", zap.Error(err))
			continue
		}
		if console != nil && !strings.HasPrefix(e.Data, "@") {
			fmt.Fprintf(console, "<%s> %s\n", e.Display, e.Data)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read console: %w", err)
	}
	return nil
}

var (
	generatorNames = []string{"alice", "bob", "carol", "dave", "erin", "frank_the_verbose", "グレース"}
	generatorLines = []string{
		"hello everyone",
		"is the stream lagging for anyone else?",
		"gg",
		"that was a really long setup but the payoff was absolutely worth the wait, well played",
		"@bob did you see that",
		"lol",
		"waves",
	}
	generatorColors = []string{"#e06c75", "#98c379", "#61afef", "", "#c678dd"}
)

// Generator produces synthetic chat traffic at a fixed rate. Timestamps are
// skewed back by up to Jitter so displays see out-of-order arrivals.
type Generator struct {
	Limiter *rate.Limiter
	Jitter  time.Duration
	Rand    *rand.Rand
	Now     func() time.Time
}

// NewGenerator returns a Generator emitting perSecond entries per second.
func NewGenerator(perSecond float64, jitter time.Duration) *Generator {
	return &Generator{
		Limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
		Jitter:  jitter,
		Rand:    rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		Now:     time.Now,
	}
}

// Next returns one synthetic entry.
func (g *Generator) Next() protocol.Entry {
	name := generatorNames[g.Rand.IntN(len(generatorNames))]
	line := generatorLines[g.Rand.IntN(len(generatorLines))]

	ts := g.Now().UnixMilli()
	if g.Jitter > 0 {
		ts -= g.Rand.Int64N(g.Jitter.Milliseconds() + 1)
	}
	return protocol.Entry{
		Display:   name,
		Data:      line,
		Timestamp: ts,
		UserID:    name,
		Color:     generatorColors[g.Rand.IntN(len(generatorColors))],
		IsAction:  line == "waves",
	}
}

// Run publishes entries until ctx is done.
func (g *Generator) Run(ctx context.Context, pub Publisher, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	for {
		if err := g.Limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("generator: %w", err)
		}
		e := g.Next()
		if err := pub.Broadcast(e); err != nil {
			logger.Warn("failed to broadcast entry", zap.Error(err))
			continue
		}
		logger.Debug("generated entry", zap.String("display", e.Display), zap.Int64("timestamp", e.Timestamp))
	}
}

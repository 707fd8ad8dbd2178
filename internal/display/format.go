package display

import (
	"hash/fnv"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/omochice/toy-chat-display/pkg/protocol"
)

// Layout of a rendered entry.
const (
	NameWidth = 10 // Sender names wider than this are cut
	LineWidth = 60 // Message bodies wrap at this many cells
	ellipsis  = "…"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// Fallback sender colours, picked by hashing the sender.
var palette = []lipgloss.Color{"#e06c75", "#98c379", "#e5c07b", "#61afef", "#c678dd", "#56b6c2", "#d19a66"}

// ConsoleLine returns the one-line console form of e.
func ConsoleLine(e protocol.Entry) string {
	if e.IsAction {
		return "* " + e.Display + " " + e.Data
	}
	return e.String()
}

// TruncateName cuts name to NameWidth cells and marks the cut with an ellipsis.
func TruncateName(name string) string {
	if runewidth.StringWidth(name) <= NameWidth {
		return name
	}
	return runewidth.Truncate(name, NameWidth, "") + ellipsis
}

// WrapBody splits body into lines of at most width cells, breaking on
// word boundaries and hard-breaking words that do not fit.
func WrapBody(body string, width int) []string {
	if width < 1 {
		width = LineWidth
	}
	wrapped := wrap.String(wordwrap.String(body, width), width)

	lines := strings.Split(wrapped, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " ")
	}
	return lines
}

// Formatter renders entries as name-column blocks.
type Formatter struct {
	Color     bool // Colour sender names
	LineWidth int  // Zero means LineWidth
}

// Format renders e as a right-aligned sender name followed by the wrapped
// body. Continuation lines are indented under the body.
func (f Formatter) Format(e protocol.Entry) string {
	name := runewidth.FillLeft(TruncateName(e.Display), NameWidth+1)
	if f.Color {
		name = lipgloss.NewStyle().Foreground(SenderColor(e)).Render(name)
	}

	body := e.Data
	if e.IsAction {
		body = "* " + body
	}
	lines := WrapBody(body, f.LineWidth)

	indent := strings.Repeat(" ", NameWidth+3)
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteString(": ")
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
			sb.WriteString(indent)
		}
		if f.Color && e.IsAction {
			line = lipgloss.NewStyle().Italic(true).Render(line)
		}
		sb.WriteString(line)
	}
	return sb.String()
}

// SenderColor returns the entry's own colour when it is a valid #rrggbb
// value, otherwise a stable colour derived from the sender.
func SenderColor(e protocol.Entry) lipgloss.Color {
	if hexColor.MatchString(e.Color) {
		return lipgloss.Color(e.Color)
	}
	key := e.UserID
	if key == "" {
		key = e.Display
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return palette[h.Sum32()%uint32(len(palette))]
}

package display

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/omochice/toy-chat-display/internal/client"
	"github.com/omochice/toy-chat-display/pkg/protocol"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f848e"))
	stateStyles = map[client.State]lipgloss.Style{
		client.StateConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("#e5c07b")),
		client.StateOpen:         lipgloss.NewStyle().Foreground(lipgloss.Color("#98c379")),
		client.StateReconnecting: lipgloss.NewStyle().Foreground(lipgloss.Color("#d19a66")),
		client.StateClosed:       lipgloss.NewStyle().Foreground(lipgloss.Color("#e06c75")),
	}
)

type snapshotMsg []protocol.Entry

type stateMsg client.StateEvent

type statesClosedMsg struct{}

// Model is the bubbletea model of the live display. It only reads buffer
// snapshots and connection states; it never touches the buffer itself.
type Model struct {
	address   string
	capacity  int
	snapshots <-chan []protocol.Entry
	states    <-chan client.StateEvent
	formatter Formatter

	entries []protocol.Entry
	state   client.State
	lastErr error
	width   int
	height  int
}

// NewModel returns a Model rendering snapshots from a buffer of the given
// capacity and the state of the connection to address.
func NewModel(address string, capacity int, snapshots <-chan []protocol.Entry, states <-chan client.StateEvent) Model {
	return Model{
		address:   address,
		capacity:  capacity,
		snapshots: snapshots,
		states:    states,
		formatter: Formatter{Color: true},
		state:     client.StateConnecting,
	}
}

// Init starts listening for snapshots and state changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForSnapshot(m.snapshots), waitForState(m.states))
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case snapshotMsg:
		m.entries = msg
		return m, waitForSnapshot(m.snapshots)

	case stateMsg:
		m.state = msg.New
		if msg.Err != nil {
			m.lastErr = msg.Err
		} else if msg.New == client.StateOpen {
			m.lastErr = nil
		}
		return m, waitForState(m.states)

	case statesClosedMsg:
		m.state = client.StateClosed
	}
	return m, nil
}

// View renders the status line and the entries, most recent first.
func (m Model) View() string {
	var sb strings.Builder

	status := stateStyles[m.state].Render(m.state.String())
	sb.WriteString(headerStyle.Render(m.address))
	sb.WriteString(" ")
	sb.WriteString(status)
	sb.WriteString(mutedStyle.Render(fmt.Sprintf(" %d/%d", len(m.entries), m.capacity)))
	if m.lastErr != nil {
		sb.WriteString(mutedStyle.Render(" " + m.lastErr.Error()))
	}
	sb.WriteString("\n\n")

	if len(m.entries) == 0 {
		sb.WriteString(mutedStyle.Render("waiting for messages..."))
		sb.WriteString("\n")
		return sb.String()
	}

	budget := m.height - 3
	for _, e := range m.entries {
		block := m.formatter.Format(e)
		if m.height > 0 {
			n := strings.Count(block, "\n") + 1
			if n > budget {
				break
			}
			budget -= n
		}
		sb.WriteString(block)
		sb.WriteString("\n")
	}
	sb.WriteString(mutedStyle.Render("q to quit"))
	return sb.String()
}

func waitForSnapshot(ch <-chan []protocol.Entry) tea.Cmd {
	return func() tea.Msg {
		entries, ok := <-ch
		if !ok {
			return nil
		}
		return snapshotMsg(entries)
	}
}

func waitForState(ch <-chan client.StateEvent) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return statesClosedMsg{}
		}
		return stateMsg(ev)
	}
}

package core

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/engine"
	"github.com/perchlabs/perch/internal/pubsub"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/styles"
)

type StatusCmp interface {
	tea.Model
}

// SetHelpTextMsg changes the help hint shown on the left of the bar.
type SetHelpTextMsg struct {
	Text string
}

type statusCmp struct {
	statusMessages []statusMessage
	width          int
	messageTTL     time.Duration
	engineState    engine.State
	helpText       string
}

type statusMessage struct {
	Level     status.Level
	Message   string
	Timestamp time.Time
	ExpiresAt time.Time
}

// clearMessageCmd is a command that clears status messages after a timeout
func (m statusCmp) clearMessageCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return statusCleanupMsg{time: t}
	})
}

// statusCleanupMsg is a message that triggers cleanup of expired status messages
type statusCleanupMsg struct {
	time time.Time
}

func (m statusCmp) Init() tea.Cmd {
	return m.clearMessageCmd()
}

func (m statusCmp) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case SetHelpTextMsg:
		m.helpText = msg.Text
		return m, nil
	case pubsub.Event[engine.State]:
		m.engineState = msg.Payload
		return m, nil
	case pubsub.Event[status.StatusMessage]:
		statusMsg := statusMessage{
			Level:     msg.Payload.Level,
			Message:   msg.Payload.Message,
			Timestamp: msg.Payload.Timestamp,
			ExpiresAt: msg.Payload.Timestamp.Add(m.messageTTL),
		}
		m.statusMessages = append(m.statusMessages, statusMsg)
		return m, nil
	case statusCleanupMsg:
		// Remove expired messages
		var activeMessages []statusMessage
		for _, sm := range m.statusMessages {
			if sm.ExpiresAt.After(msg.time) {
				activeMessages = append(activeMessages, sm)
			}
		}
		m.statusMessages = activeMessages
		return m, m.clearMessageCmd()
	}
	return m, nil
}

func (m statusCmp) helpWidget() string {
	helpText := m.helpText
	if helpText == "" {
		helpText = "ctrl+? help"
	}
	return lipgloss.NewStyle().
		Padding(0, 1).
		Background(styles.Subtle).
		Foreground(styles.Background).
		Bold(true).
		Render(helpText)
}

func (m statusCmp) engineWidget() string {
	st := m.engineState
	switch st.Status {
	case engine.StatusInitializing:
		return lipgloss.NewStyle().
			Padding(0, 1).
			Background(styles.BackgroundElement).
			Foreground(styles.Warning).
			Render(fmt.Sprintf("%s starting", styles.LoadingIcon))
	case engine.StatusReady:
		name := string(st.Model)
		if model, ok := engine.SupportedModels[st.Model]; ok {
			name = model.Name
		}
		return lipgloss.NewStyle().
			Padding(0, 1).
			Background(styles.Primary).
			Foreground(styles.Background).
			Render(name)
	case engine.StatusError:
		return lipgloss.NewStyle().
			Padding(0, 1).
			Background(styles.BackgroundElement).
			Foreground(styles.Error).
			Render(fmt.Sprintf("%s engine", styles.ErrorIcon))
	default:
		return ""
	}
}

func (m statusCmp) View() string {
	bar := m.helpWidget()
	engineWidget := m.engineWidget()

	statusWidth := max(0, m.width-lipgloss.Width(bar)-lipgloss.Width(engineWidget))

	// Display the first status message if available
	if len(m.statusMessages) > 0 {
		sm := m.statusMessages[0]
		infoStyle := lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(styles.Background).
			Width(statusWidth)

		switch sm.Level {
		case status.LevelInfo:
			infoStyle = infoStyle.Background(styles.Info)
		case status.LevelWarn:
			infoStyle = infoStyle.Background(styles.Warning)
		case status.LevelError:
			infoStyle = infoStyle.Background(styles.Error)
		case status.LevelDebug:
			infoStyle = infoStyle.Background(styles.Subtle)
		}

		// Truncate message if it's longer than available width
		msg := sm.Message
		availWidth := statusWidth - 10
		if len(msg) > availWidth && availWidth > 0 {
			msg = msg[:availWidth] + "..."
		}

		bar += infoStyle.Render(msg)
	} else {
		bar += lipgloss.NewStyle().
			Padding(0, 1).
			Background(styles.BackgroundElement).
			Width(statusWidth).
			Render("")
	}

	bar += engineWidget
	return bar
}

func NewStatusCmp() StatusCmp {
	return statusCmp{
		statusMessages: []statusMessage{},
		messageTTL:     4 * time.Second,
	}
}

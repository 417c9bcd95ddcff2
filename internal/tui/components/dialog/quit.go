package dialog

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
)

const quitQuestion = "Are you sure you want to quit?"

// CloseQuitMsg dismisses the quit dialog without quitting.
type CloseQuitMsg struct{}

// QuitDialog asks for confirmation before the window exits.
type QuitDialog interface {
	tea.Model
}

type quitDialog struct {
	selectedNo bool
}

type quitKeyMap struct {
	LeftRight  key.Binding
	EnterSpace key.Binding
	Yes        key.Binding
	No         key.Binding
}

var quitKeys = quitKeyMap{
	LeftRight: key.NewBinding(
		key.WithKeys("left", "right", "h", "l", "tab"),
		key.WithHelp("←/→", "switch options"),
	),
	EnterSpace: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter/space", "confirm"),
	),
	Yes: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y/Y", "yes"),
	),
	No: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n/N", "no"),
	),
}

func (q quitDialog) Init() tea.Cmd {
	return nil
}

func (q quitDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKeys.LeftRight):
			q.selectedNo = !q.selectedNo
			return q, nil
		case key.Matches(msg, quitKeys.EnterSpace):
			if !q.selectedNo {
				return q, tea.Quit
			}
			return q, util.CmdHandler(CloseQuitMsg{})
		case key.Matches(msg, quitKeys.Yes):
			return q, tea.Quit
		case key.Matches(msg, quitKeys.No):
			return q, util.CmdHandler(CloseQuitMsg{})
		}
	}
	return q, nil
}

func (q quitDialog) View() string {
	yesStyle := lipgloss.NewStyle().Padding(0, 1)
	noStyle := lipgloss.NewStyle().Padding(0, 1)

	if q.selectedNo {
		noStyle = noStyle.Background(styles.Primary).Foreground(styles.Background)
		yesStyle = yesStyle.Foreground(styles.Primary)
	} else {
		yesStyle = yesStyle.Background(styles.Primary).Foreground(styles.Background)
		noStyle = noStyle.Foreground(styles.Primary)
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Left,
		yesStyle.Render("Yes"), "  ", noStyle.Render("No"))

	remaining := lipgloss.Width(quitQuestion) - lipgloss.Width(buttons)
	if remaining > 0 {
		buttons = strings.Repeat(" ", remaining) + buttons
	}

	return styles.DialogBox().Render(
		lipgloss.JoinVertical(lipgloss.Center, quitQuestion, "", buttons),
	)
}

// NewQuitDialog creates a new quit confirmation dialog
func NewQuitDialog() QuitDialog {
	return quitDialog{
		selectedNo: true,
	}
}

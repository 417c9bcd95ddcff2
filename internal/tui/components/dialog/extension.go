package dialog

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
)

// ExtensionRespondMsg carries the user's decision on a staged extension
// install.
type ExtensionRespondMsg struct {
	Confirm bool
}

// ExtensionDialog shows the confirmation prompt for an extension-install
// deep link. It only ever renders the human-readable summary, never the
// raw link.
type ExtensionDialog interface {
	tea.Model
	SetSummary(summary string)
}

type extensionDialog struct {
	summary    string
	selectedNo bool
}

type extensionKeyMap struct {
	LeftRight  key.Binding
	EnterSpace key.Binding
	Install    key.Binding
	Cancel     key.Binding
}

var extensionKeys = extensionKeyMap{
	LeftRight: key.NewBinding(
		key.WithKeys("left", "right", "h", "l", "tab"),
		key.WithHelp("←/→", "switch options"),
	),
	EnterSpace: key.NewBinding(
		key.WithKeys("enter", " "),
		key.WithHelp("enter/space", "confirm"),
	),
	Install: key.NewBinding(
		key.WithKeys("y", "Y"),
		key.WithHelp("y/Y", "install"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "N", "esc"),
		key.WithHelp("n/N/esc", "cancel"),
	),
}

func (d *extensionDialog) Init() tea.Cmd {
	return nil
}

func (d *extensionDialog) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, extensionKeys.LeftRight):
			d.selectedNo = !d.selectedNo
			return d, nil
		case key.Matches(msg, extensionKeys.EnterSpace):
			return d, util.CmdHandler(ExtensionRespondMsg{Confirm: !d.selectedNo})
		case key.Matches(msg, extensionKeys.Install):
			return d, util.CmdHandler(ExtensionRespondMsg{Confirm: true})
		case key.Matches(msg, extensionKeys.Cancel):
			return d, util.CmdHandler(ExtensionRespondMsg{Confirm: false})
		}
	}
	return d, nil
}

func (d *extensionDialog) View() string {
	title := styles.Title().Render("Install extension?")
	summary := lipgloss.NewStyle().Width(48).Render(d.summary)
	hint := styles.Muted().Render("Only install extensions you trust.")

	yesStyle := lipgloss.NewStyle().Padding(0, 1)
	noStyle := lipgloss.NewStyle().Padding(0, 1)
	if d.selectedNo {
		noStyle = noStyle.Background(styles.Primary).Foreground(styles.Background)
		yesStyle = yesStyle.Foreground(styles.Primary)
	} else {
		yesStyle = yesStyle.Background(styles.Primary).Foreground(styles.Background)
		noStyle = noStyle.Foreground(styles.Primary)
	}
	buttons := lipgloss.JoinHorizontal(lipgloss.Left,
		yesStyle.Render("Install"), "  ", noStyle.Render("Cancel"))

	remaining := lipgloss.Width(summary) - lipgloss.Width(buttons)
	if remaining > 0 {
		buttons = strings.Repeat(" ", remaining) + buttons
	}

	return styles.DialogBox().Render(
		lipgloss.JoinVertical(lipgloss.Left, title, "", summary, "", hint, "", buttons),
	)
}

func (d *extensionDialog) SetSummary(summary string) {
	d.summary = summary
	d.selectedNo = true
}

// NewExtensionDialog creates the install confirmation dialog.
func NewExtensionDialog() ExtensionDialog {
	return &extensionDialog{
		selectedNo: true,
	}
}

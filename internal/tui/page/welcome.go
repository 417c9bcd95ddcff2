package page

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
	"github.com/perchlabs/perch/internal/tui/view"
)

type welcomeKeyMap struct {
	Configure key.Binding
	Settings  key.Binding
}

var welcomeKeys = welcomeKeyMap{
	Configure: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "configure a provider"),
	),
	Settings: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "settings"),
	),
}

type welcomePage struct {
	width, height int
}

// NewWelcomePage is the onboarding screen shown when no usable
// provider/model configuration exists.
func NewWelcomePage() tea.Model {
	return &welcomePage{}
}

func (p *welcomePage) Init() tea.Cmd {
	return nil
}

func (p *welcomePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		return p, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, welcomeKeys.Configure):
			return p, util.CmdHandler(view.SetViewMsg{View: view.ConfigureProviders})
		case key.Matches(msg, welcomeKeys.Settings):
			return p, util.CmdHandler(view.SetViewMsg{View: view.Settings})
		}
	}
	return p, nil
}

func (p *welcomePage) View() string {
	logo := styles.Title().Render(fmt.Sprintf("%s perch", styles.PerchIcon))
	body := lipgloss.JoinVertical(lipgloss.Center,
		logo,
		"",
		"Welcome. No provider is configured yet.",
		"",
		styles.Muted().Render("enter: configure a provider   s: settings"),
	)
	return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, body)
}

func (p *welcomePage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	return nil
}

func (p *welcomePage) BindingKeys() []key.Binding {
	return []key.Binding{welcomeKeys.Configure, welcomeKeys.Settings}
}

package page

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
	"github.com/perchlabs/perch/internal/tui/view"
)

type settingsKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Open      key.Binding
	Models    key.Binding
	Providers key.Binding
	Back      key.Binding
}

var settingsKeys = settingsKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "previous"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "next"),
	),
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open extension"),
	),
	Models: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "models"),
	),
	Providers: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "providers"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
}

type settingsPage struct {
	width, height int
	nextGen       bool

	extensions []config.Extension
	selected   int
}

// NewSettingsPage is the legacy settings screen; NewSettingsV2Page is the
// next-generation layout over the same data.
func NewSettingsPage() tea.Model {
	return &settingsPage{}
}

func NewSettingsV2Page() tea.Model {
	return &settingsPage{nextGen: true}
}

func (p *settingsPage) Init() tea.Cmd {
	p.extensions = config.GetExtensions()
	return nil
}

func (p *settingsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case state.ViewActivatedMsg:
		p.extensions = config.GetExtensions()
		p.selected = util.Clamp(p.selected, 0, max(0, len(p.extensions)-1))
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, settingsKeys.Up):
			p.selected = util.Clamp(p.selected-1, 0, max(0, len(p.extensions)-1))
			return p, nil
		case key.Matches(msg, settingsKeys.Down):
			p.selected = util.Clamp(p.selected+1, 0, max(0, len(p.extensions)-1))
			return p, nil
		case key.Matches(msg, settingsKeys.Open):
			if len(p.extensions) > 0 {
				return p, util.CmdHandler(view.SetViewMsg{
					View:    view.ConfigPage,
					Options: view.ConfigPageOptions{ExtensionID: p.extensions[p.selected].ID},
				})
			}
			return p, nil
		case key.Matches(msg, settingsKeys.Models):
			return p, util.CmdHandler(view.SetViewMsg{View: view.MoreModels})
		case key.Matches(msg, settingsKeys.Providers):
			return p, util.CmdHandler(view.SetViewMsg{View: view.ConfigureProviders})
		case key.Matches(msg, settingsKeys.Back):
			return p, util.CmdHandler(view.SetViewMsg{View: view.Chat})
		}
	}
	return p, nil
}

func (p *settingsPage) View() string {
	cfg := config.Get()

	title := "Settings"
	if p.nextGen {
		title = "Settings (v2)"
	}

	rows := []string{
		styles.Title().Render(title),
		"",
		fmt.Sprintf("Provider  %s", valueOrUnset(cfg.Provider)),
		fmt.Sprintf("Model     %s", valueOrUnset(cfg.Model)),
		"",
		styles.Title().Render("Extensions"),
	}

	if len(p.extensions) == 0 {
		rows = append(rows, styles.Muted().Render("No extensions installed."))
	}
	for i, ext := range p.extensions {
		marker := "  "
		if i == p.selected {
			marker = "> "
		}
		enabled := styles.Muted().Render("disabled")
		if ext.Enabled {
			enabled = lipgloss.NewStyle().Foreground(styles.Success).Render("enabled")
		}
		rows = append(rows, fmt.Sprintf("%s%s  %s", marker, ext.Name, enabled))
	}

	rows = append(rows, "", styles.Muted().Render("m: models   p: providers   enter: open extension"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func valueOrUnset(v string) string {
	if v == "" {
		return styles.Muted().Render("not set")
	}
	return v
}

func (p *settingsPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	return nil
}

func (p *settingsPage) BindingKeys() []key.Binding {
	return []key.Binding{
		settingsKeys.Up, settingsKeys.Down, settingsKeys.Open,
		settingsKeys.Models, settingsKeys.Providers, settingsKeys.Back,
	}
}

type configKeyMap struct {
	Toggle key.Binding
	Back   key.Binding
}

var configKeys = configKeyMap{
	Toggle: key.NewBinding(
		key.WithKeys("t", "enter"),
		key.WithHelp("t", "toggle enabled"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
}

type configPage struct {
	width, height int
	extension     config.Extension
	found         bool
}

// NewConfigPage shows and edits a single extension's configuration.
func NewConfigPage() tea.Model {
	return &configPage{}
}

func (p *configPage) Init() tea.Cmd {
	return nil
}

func (p *configPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case state.ViewActivatedMsg:
		opts, ok := msg.Options.(view.ConfigPageOptions)
		if !ok {
			return p, nil
		}
		p.found = false
		for _, ext := range config.GetExtensions() {
			if ext.ID == opts.ExtensionID {
				p.extension = ext
				p.found = true
				break
			}
		}
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, configKeys.Toggle):
			if p.found {
				p.extension.Enabled = !p.extension.Enabled
				if err := config.AddExtension(p.extension); err != nil {
					status.Error(err.Error())
				}
			}
			return p, nil
		case key.Matches(msg, configKeys.Back):
			return p, util.CmdHandler(view.SetViewMsg{View: view.Settings})
		}
	}
	return p, nil
}

func (p *configPage) View() string {
	if !p.found {
		return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center,
			styles.Muted().Render("Extension not found."))
	}

	enabled := "disabled"
	if p.extension.Enabled {
		enabled = "enabled"
	}

	rows := []string{
		styles.Title().Render(p.extension.Name),
		"",
		fmt.Sprintf("Command  %s", p.extension.Cmd),
		fmt.Sprintf("State    %s", enabled),
		"",
		styles.Muted().Render("t: toggle enabled   esc: back"),
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (p *configPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	return nil
}

func (p *configPage) BindingKeys() []key.Binding {
	return []key.Binding{configKeys.Toggle, configKeys.Back}
}

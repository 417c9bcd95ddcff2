package page

import (
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/engine"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
	"github.com/perchlabs/perch/internal/tui/view"
)

type pickerKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Back   key.Binding
}

var pickerKeys = pickerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "ctrl+p"),
		key.WithHelp("↑", "previous"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "ctrl+n"),
		key.WithHelp("↓", "next"),
	),
	Select: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "select"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
}

type moreModelsPage struct {
	width, height int

	provider engine.Provider
	models   []engine.Model
	selected int
}

// NewMoreModelsPage lists the catalog models for one provider.
func NewMoreModelsPage() tea.Model {
	return &moreModelsPage{}
}

func (p *moreModelsPage) Init() tea.Cmd {
	return nil
}

func (p *moreModelsPage) reload() {
	provider := p.provider
	if provider == "" {
		provider = engine.Provider(config.Get().Provider)
	}
	if provider == "" {
		provider = engine.ProviderAnthropic
	}
	p.provider = provider

	p.models = engine.ModelsForProvider(provider)
	sort.Slice(p.models, func(i, j int) bool {
		return p.models[i].Name < p.models[j].Name
	})
	p.selected = util.Clamp(p.selected, 0, max(0, len(p.models)-1))
}

func (p *moreModelsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case state.ViewActivatedMsg:
		if opts, ok := msg.Options.(view.MoreModelsOptions); ok && opts.Provider != "" {
			p.provider = engine.Provider(opts.Provider)
		}
		p.reload()
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, pickerKeys.Up):
			p.selected = util.Clamp(p.selected-1, 0, max(0, len(p.models)-1))
			return p, nil
		case key.Matches(msg, pickerKeys.Down):
			p.selected = util.Clamp(p.selected+1, 0, max(0, len(p.models)-1))
			return p, nil
		case key.Matches(msg, pickerKeys.Select):
			if len(p.models) == 0 {
				return p, nil
			}
			model := p.models[p.selected]
			if err := config.SetModel(string(model.Provider), string(model.ID)); err != nil {
				status.Error(err.Error())
				return p, nil
			}
			status.Info(fmt.Sprintf("Model changed to %s", model.Name))
			return p, util.CmdHandler(view.SetViewMsg{View: view.Settings})
		case key.Matches(msg, pickerKeys.Back):
			return p, util.CmdHandler(view.SetViewMsg{View: view.Settings})
		}
	}
	return p, nil
}

func (p *moreModelsPage) View() string {
	rows := []string{
		styles.Title().Render(fmt.Sprintf("Models · %s", p.provider)),
		"",
	}
	if len(p.models) == 0 {
		rows = append(rows, styles.Muted().Render("No models available for this provider."))
	}
	for i, model := range p.models {
		marker := "  "
		if i == p.selected {
			marker = "> "
		}
		detail := styles.Muted().Render(fmt.Sprintf("%dK context", model.ContextWindow/1000))
		rows = append(rows, fmt.Sprintf("%s%s  %s", marker, model.Name, detail))
	}
	rows = append(rows, "", styles.Muted().Render("enter: select   esc: back"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (p *moreModelsPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	return nil
}

func (p *moreModelsPage) BindingKeys() []key.Binding {
	return []key.Binding{pickerKeys.Up, pickerKeys.Down, pickerKeys.Select, pickerKeys.Back}
}

type configureProvidersPage struct {
	width, height int

	providers []engine.Provider
	selected  int
}

// NewConfigureProvidersPage lists the supported providers ordered by
// popularity.
func NewConfigureProvidersPage() tea.Model {
	providers := make([]engine.Provider, 0, len(engine.ProviderPopularity))
	for provider := range engine.ProviderPopularity {
		providers = append(providers, provider)
	}
	sort.Slice(providers, func(i, j int) bool {
		return engine.ProviderPopularity[providers[i]] < engine.ProviderPopularity[providers[j]]
	})
	return &configureProvidersPage{providers: providers}
}

func (p *configureProvidersPage) Init() tea.Cmd {
	return nil
}

func (p *configureProvidersPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, pickerKeys.Up):
			p.selected = util.Clamp(p.selected-1, 0, max(0, len(p.providers)-1))
			return p, nil
		case key.Matches(msg, pickerKeys.Down):
			p.selected = util.Clamp(p.selected+1, 0, max(0, len(p.providers)-1))
			return p, nil
		case key.Matches(msg, pickerKeys.Select):
			if len(p.providers) == 0 {
				return p, nil
			}
			provider := p.providers[p.selected]
			return p, util.CmdHandler(view.SetViewMsg{
				View:    view.MoreModels,
				Options: view.MoreModelsOptions{Provider: string(provider)},
			})
		case key.Matches(msg, pickerKeys.Back):
			return p, util.CmdHandler(view.SetViewMsg{View: view.Welcome})
		}
	}
	return p, nil
}

func (p *configureProvidersPage) View() string {
	rows := []string{
		styles.Title().Render("Choose a provider"),
		"",
	}
	for i, provider := range p.providers {
		marker := "  "
		if i == p.selected {
			marker = "> "
		}
		rows = append(rows, marker+string(provider))
	}
	rows = append(rows, "", styles.Muted().Render("enter: pick models   esc: back"))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (p *configureProvidersPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	return nil
}

func (p *configureProvidersPage) BindingKeys() []key.Binding {
	return []key.Binding{pickerKeys.Up, pickerKeys.Down, pickerKeys.Select, pickerKeys.Back}
}

package page

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
	"github.com/perchlabs/perch/internal/tui/view"
)

type sharedKeyMap struct {
	Back key.Binding
}

var sharedKeys = sharedKeyMap{
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back to sessions"),
	),
}

type sharedSessionPage struct {
	width, height int

	opts     view.SharedSessionOptions
	spinner  spinner.Model
	body     viewport.Model
	rendered bool
}

// NewSharedSessionPage shows a read-only shared transcript.
func NewSharedSessionPage() tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return &sharedSessionPage{
		spinner: s,
		body:    viewport.New(0, 0),
	}
}

func (p *sharedSessionPage) Init() tea.Cmd {
	return p.spinner.Tick
}

func (p *sharedSessionPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case state.ViewActivatedMsg:
		if opts, ok := msg.Options.(view.SharedSessionOptions); ok {
			p.opts = opts
			p.rendered = false
			if !opts.Loading && opts.Error == "" {
				p.render()
			}
			if opts.Loading {
				return p, p.spinner.Tick
			}
		}
		return p, nil

	case spinner.TickMsg:
		if p.opts.Loading {
			var cmd tea.Cmd
			p.spinner, cmd = p.spinner.Update(msg)
			return p, cmd
		}
		return p, nil

	case tea.KeyMsg:
		if key.Matches(msg, sharedKeys.Back) {
			return p, util.CmdHandler(view.SetViewMsg{View: view.Sessions})
		}
	}

	var cmd tea.Cmd
	p.body, cmd = p.body.Update(msg)
	return p, cmd
}

func (p *sharedSessionPage) render() {
	if p.rendered {
		return
	}
	width := max(20, p.width-4)
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		p.body.SetContent(p.opts.Markdown)
		p.rendered = true
		return
	}
	out, err := renderer.Render(p.opts.Markdown)
	if err != nil {
		out = p.opts.Markdown
	}
	p.body.SetContent(out)
	p.rendered = true
}

func (p *sharedSessionPage) View() string {
	if p.opts.Loading {
		return lipgloss.Place(p.width, p.height,
			lipgloss.Center, lipgloss.Center,
			fmt.Sprintf("%s loading shared session", p.spinner.View()),
		)
	}

	if p.opts.Error != "" {
		body := lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.NewStyle().Foreground(styles.Error).Render(styles.ErrorIcon+" "+p.opts.Error),
			"",
			styles.Muted().Render("esc: back to sessions"),
		)
		return lipgloss.Place(p.width, p.height, lipgloss.Center, lipgloss.Center, body)
	}

	title := p.opts.Title
	if title == "" {
		title = "Shared session"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Title().Render(title),
		p.body.View(),
	)
}

func (p *sharedSessionPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	p.body.Width = width
	p.body.Height = max(0, height-1)
	p.rendered = false
	if !p.opts.Loading && p.opts.Error == "" && p.opts.Markdown != "" {
		p.render()
	}
	return nil
}

func (p *sharedSessionPage) BindingKeys() []key.Binding {
	return []key.Binding{sharedKeys.Back}
}

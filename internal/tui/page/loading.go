package page

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/tui/styles"
)

type loadingPage struct {
	width, height int
	spinner       spinner.Model
}

// NewLoadingPage is the screen shown while startup decides where to land.
func NewLoadingPage() tea.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)
	return &loadingPage{spinner: s}
}

func (p *loadingPage) Init() tea.Cmd {
	return p.spinner.Tick
}

func (p *loadingPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width, p.height = msg.Width, msg.Height
		return p, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		return p, cmd
	}
	return p, nil
}

func (p *loadingPage) View() string {
	return lipgloss.Place(p.width, p.height,
		lipgloss.Center, lipgloss.Center,
		p.spinner.View()+" starting up",
	)
}

func (p *loadingPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	return nil
}

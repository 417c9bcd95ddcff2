package page

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/perchlabs/perch/internal/app"
	"github.com/perchlabs/perch/internal/session"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
	"github.com/perchlabs/perch/internal/tui/view"
)

type sessionsKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Copy   key.Binding
	Delete key.Binding
}

var sessionsKeys = sessionsKeyMap{
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
		key.WithHelp("enter", "resume session"),
	),
	Copy: key.NewBinding(
		key.WithKeys("ctrl+y"),
		key.WithHelp("ctrl+y", "copy share link"),
	),
	Delete: key.NewBinding(
		key.WithKeys("ctrl+d"),
		key.WithHelp("ctrl+d", "delete session"),
	),
}

type sessionsLoadedMsg struct {
	sessions []session.Session
	err      error
}

type sessionsPage struct {
	width, height int
	app           *app.App

	filter   textinput.Model
	all      []session.Session
	filtered []session.Session
	selected int
}

// NewSessionsPage lists stored sessions with fuzzy filtering.
func NewSessionsPage(a *app.App) tea.Model {
	filter := textinput.New()
	filter.Placeholder = "Filter sessions..."
	filter.Focus()

	return &sessionsPage{
		app:    a,
		filter: filter,
	}
}

func (p *sessionsPage) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, p.load())
}

func (p *sessionsPage) load() tea.Cmd {
	return func() tea.Msg {
		sessions, err := p.app.Sessions.List(context.Background())
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

func (p *sessionsPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case state.ViewActivatedMsg:
		if opts, ok := msg.Options.(view.SessionsOptions); ok {
			p.filter.SetValue(opts.Filter)
		}
		return p, p.load()

	case sessionsLoadedMsg:
		if msg.err != nil {
			status.Error(msg.err.Error())
			return p, nil
		}
		p.all = msg.sessions
		p.applyFilter()
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, sessionsKeys.Up):
			p.selected = util.Clamp(p.selected-1, 0, max(0, len(p.filtered)-1))
			return p, nil
		case key.Matches(msg, sessionsKeys.Down):
			p.selected = util.Clamp(p.selected+1, 0, max(0, len(p.filtered)-1))
			return p, nil
		case key.Matches(msg, sessionsKeys.Open):
			if sess, ok := p.current(); ok {
				return p, util.CmdHandler(view.SetViewMsg{
					View:    view.Chat,
					Options: view.ChatOptions{SessionID: sess.ID},
				})
			}
			return p, nil
		case key.Matches(msg, sessionsKeys.Copy):
			if sess, ok := p.current(); ok {
				if sess.ShareToken == "" {
					status.Warn("Session has no share link")
					return p, nil
				}
				url := session.ShareURL(p.app.Host.Config().BaseURL, sess.ShareToken)
				if err := clipboard.WriteAll(url); err != nil {
					status.Error(err.Error())
					return p, nil
				}
				status.Info("Share link copied")
			}
			return p, nil
		case key.Matches(msg, sessionsKeys.Delete):
			if sess, ok := p.current(); ok {
				if err := p.app.Sessions.Delete(context.Background(), sess.ID); err != nil {
					status.Error(err.Error())
					return p, nil
				}
				return p, p.load()
			}
			return p, nil
		}

		var cmd tea.Cmd
		p.filter, cmd = p.filter.Update(msg)
		p.applyFilter()
		return p, cmd
	}
	return p, nil
}

func (p *sessionsPage) current() (session.Session, bool) {
	if len(p.filtered) == 0 || p.selected >= len(p.filtered) {
		return session.Session{}, false
	}
	return p.filtered[p.selected], true
}

func (p *sessionsPage) applyFilter() {
	query := p.filter.Value()
	if query == "" {
		p.filtered = p.all
	} else {
		p.filtered = nil
		for _, sess := range p.all {
			if fuzzy.MatchFold(query, sess.Title) {
				p.filtered = append(p.filtered, sess)
			}
		}
	}
	p.selected = util.Clamp(p.selected, 0, max(0, len(p.filtered)-1))
}

func (p *sessionsPage) View() string {
	rows := []string{
		styles.Title().Render("Sessions"),
		p.filter.View(),
		"",
	}

	if len(p.filtered) == 0 {
		rows = append(rows, styles.Muted().Render("No sessions found."))
	}

	visible := max(1, p.height-5)
	for i, sess := range p.filtered {
		if i >= visible {
			break
		}
		line := fmt.Sprintf("%s  %s", sess.Title, styles.Muted().Render(fmt.Sprintf("%d messages", sess.MessageCount)))
		if i == p.selected {
			line = lipgloss.NewStyle().
				Background(styles.Primary).
				Foreground(styles.Background).
				Render("> " + sess.Title)
		}
		rows = append(rows, line)
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (p *sessionsPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	p.filter.Width = max(10, width-4)
	return nil
}

func (p *sessionsPage) BindingKeys() []key.Binding {
	return []key.Binding{
		sessionsKeys.Up, sessionsKeys.Down,
		sessionsKeys.Open, sessionsKeys.Copy, sessionsKeys.Delete,
	}
}

package page

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/app"
	"github.com/perchlabs/perch/internal/session"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/util"
	"github.com/perchlabs/perch/internal/tui/view"
)

type chatKeyMap struct {
	Send     key.Binding
	Sessions key.Binding
}

var chatKeys = chatKeyMap{
	Send: key.NewBinding(
		key.WithKeys("ctrl+s"),
		key.WithHelp("ctrl+s", "send"),
	),
	Sessions: key.NewBinding(
		key.WithKeys("ctrl+e"),
		key.WithHelp("ctrl+e", "sessions"),
	),
}

// SendMsg submits the editor contents as a new message.
type SendMsg struct {
	Text string
}

type sessionLoadedMsg struct {
	session session.Session
	err     error
}

type chatPage struct {
	width, height int
	app           *app.App

	editor   textarea.Model
	messages viewport.Model
	spinner  spinner.Model

	session session.Session
	// loading is true while a session resume or send is in flight. It is
	// cleared whenever the user navigates away from the chat view.
	loading bool
	history []string
}

// NewChatPage builds the main conversation screen.
func NewChatPage(a *app.App) tea.Model {
	editor := textarea.New()
	editor.Placeholder = "Type a message..."
	editor.CharLimit = 0
	editor.SetHeight(3)
	editor.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(styles.Primary)

	return &chatPage{
		app:      a,
		editor:   editor,
		messages: viewport.New(0, 0),
		spinner:  s,
	}
}

func (p *chatPage) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, p.spinner.Tick)
}

func (p *chatPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return p, p.SetSize(msg.Width, msg.Height)

	case state.ViewActivatedMsg:
		if opts, ok := msg.Options.(view.ChatOptions); ok && opts.SessionID != "" {
			p.loading = true
			return p, tea.Batch(p.spinner.Tick, p.resumeSession(opts.SessionID))
		}
		return p, nil

	case state.SessionClearedMsg:
		p.session = session.Session{}
		p.history = nil
		p.loading = false
		p.refresh()
		return p, nil

	case sessionLoadedMsg:
		p.loading = false
		if msg.err != nil {
			status.Error(msg.err.Error())
			return p, nil
		}
		p.session = msg.session
		p.history = nil
		p.refresh()
		return p, nil

	case SendMsg:
		if msg.Text == "" {
			return p, nil
		}
		p.history = append(p.history, "you: "+msg.Text)
		p.refresh()
		return p, p.persistMessage()

	case spinner.TickMsg:
		if p.loading {
			var cmd tea.Cmd
			p.spinner, cmd = p.spinner.Update(msg)
			return p, cmd
		}
		return p, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, chatKeys.Send):
			text := p.editor.Value()
			p.editor.Reset()
			return p, util.CmdHandler(SendMsg{Text: text})
		case key.Matches(msg, chatKeys.Sessions):
			return p, util.CmdHandler(view.SetViewMsg{View: view.Sessions})
		}
	}

	var cmd tea.Cmd
	p.editor, cmd = p.editor.Update(msg)
	cmds = append(cmds, cmd)
	p.messages, cmd = p.messages.Update(msg)
	cmds = append(cmds, cmd)
	return p, tea.Batch(cmds...)
}

// ClearLoading resets the in-flight flag. The shell calls this when the
// view leaves chat so stale spinners never leak into other views.
func (p *chatPage) ClearLoading() {
	p.loading = false
}

func (p *chatPage) resumeSession(id string) tea.Cmd {
	return func() tea.Msg {
		sess, err := p.app.Sessions.Get(context.Background(), id)
		return sessionLoadedMsg{session: sess, err: err}
	}
}

func (p *chatPage) persistMessage() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if p.session.ID == "" {
			sess, err := session.Create(ctx, "New chat")
			if err != nil {
				status.Error(err.Error())
				return nil
			}
			return sessionLoadedMsg{session: sess}
		}
		p.session.MessageCount++
		if _, err := session.Update(ctx, p.session); err != nil {
			status.Error(err.Error())
		}
		return nil
	}
}

func (p *chatPage) refresh() {
	content := ""
	for i, line := range p.history {
		if i > 0 {
			content += "\n"
		}
		content += line
	}
	p.messages.SetContent(content)
	p.messages.GotoBottom()
}

func (p *chatPage) View() string {
	header := styles.Title().Render(p.title())
	if p.loading {
		header = fmt.Sprintf("%s %s", p.spinner.View(), header)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		p.messages.View(),
		p.editor.View(),
	)
}

func (p *chatPage) title() string {
	if p.session.ID == "" {
		return "New chat"
	}
	return p.session.Title
}

func (p *chatPage) SetSize(width, height int) tea.Cmd {
	p.width, p.height = width, height
	p.editor.SetWidth(width)
	p.messages.Width = width
	p.messages.Height = max(0, height-p.editor.Height()-1)
	return nil
}

func (p *chatPage) BindingKeys() []key.Binding {
	return []key.Binding{chatKeys.Send, chatKeys.Sessions}
}

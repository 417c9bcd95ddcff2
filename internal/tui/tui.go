package tui

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/perchlabs/perch/internal/app"
	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/engine"
	"github.com/perchlabs/perch/internal/extension"
	"github.com/perchlabs/perch/internal/host"
	"github.com/perchlabs/perch/internal/pubsub"
	"github.com/perchlabs/perch/internal/session"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/components/core"
	"github.com/perchlabs/perch/internal/tui/components/dialog"
	"github.com/perchlabs/perch/internal/tui/components/toast"
	"github.com/perchlabs/perch/internal/tui/layout"
	"github.com/perchlabs/perch/internal/tui/page"
	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/styles"
	"github.com/perchlabs/perch/internal/tui/view"
)

type keyMap struct {
	Quit      key.Binding
	Settings  key.Binding
	NewWindow key.Binding
	Help      key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "quit"),
	),
	Settings: key.NewBinding(
		key.WithKeys("ctrl+g"),
		key.WithHelp("ctrl+g", "settings"),
	),
	NewWindow: key.NewBinding(
		key.WithKeys("ctrl+o"),
		key.WithHelp("ctrl+o", "new window"),
	),
	Help: key.NewBinding(
		key.WithKeys("ctrl+_"),
		key.WithHelp("ctrl+?", "toggle help"),
	),
}

// loadingClearer lets the shell reset a page's in-flight flag when the
// view moves away from it.
type loadingClearer interface {
	ClearLoading()
}

type appModel struct {
	width, height int

	// state is the single live view state; setView is its only mutator.
	state       view.State
	previous    view.View
	pages       map[view.View]tea.Model
	loadedPages map[view.View]bool

	status core.StatusCmp
	toasts *toast.ToastManager
	app    *app.App

	// fatal, once set, short-circuits all rendering.
	fatal string

	showQuit bool
	quit     dialog.QuitDialog

	showExtension   bool
	extensionDialog dialog.ExtensionDialog
}

func (a appModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, a.pages[a.state.View].Init())
	a.loadedPages[a.state.View] = true
	cmds = append(cmds, a.status.Init())
	cmds = append(cmds, a.quit.Init())
	cmds = append(cmds, a.extensionDialog.Init())
	cmds = append(cmds, a.toasts.Init())

	// Tell the host the window mounted. This must happen exactly once;
	// a failure here is fatal for the window session.
	cmds = append(cmds, func() tea.Msg {
		if err := a.app.Host.ReactReady(); err != nil {
			return view.FatalErrorMsg{Message: fmt.Sprintf("host handshake failed: %v", err)}
		}
		return nil
	})

	return tea.Batch(cmds...)
}

func (a appModel) updateAllPages(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	for id := range a.pages {
		a.pages[id], cmd = a.pages[id].Update(msg)
		cmds = append(cmds, cmd)
	}
	return a, tea.Batch(cmds...)
}

func (a appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case cursor.BlinkMsg:
		return a.updateAllPages(msg)
	case spinner.TickMsg:
		return a.updateAllPages(msg)

	case tea.WindowSizeMsg:
		msg.Height -= 1 // Make space for the status bar
		a.width, a.height = msg.Width, msg.Height

		s, _ := a.status.Update(msg)
		a.status = s.(core.StatusCmp)
		a.toasts, cmd = a.toasts.Update(msg)
		cmds = append(cmds, cmd)
		a.pages[a.state.View], cmd = a.pages[a.state.View].Update(msg)
		cmds = append(cmds, cmd)
		return a, tea.Batch(cmds...)

	case view.SetViewMsg:
		return a, a.setView(msg.View, msg.Options)

	case view.FatalErrorMsg:
		a.fatal = msg.Message
		return a, nil

	case pubsub.Event[host.Event]:
		return a.handleHostEvent(msg)

	case pubsub.Event[extension.PendingRequest]:
		a.showExtension = true
		a.extensionDialog.SetSummary(msg.Payload.Summary)
		return a, nil

	case pubsub.Event[extension.Resolution]:
		// Dismiss as soon as the gate resolves, before any install work.
		a.showExtension = false
		return a, nil

	case dialog.ExtensionRespondMsg:
		a.showExtension = false
		if msg.Confirm {
			return a, func() tea.Msg {
				if err := a.app.Gate.Confirm(context.Background(), a.app.SetView); err != nil {
					status.Error(err.Error())
				}
				return nil
			}
		}
		a.app.Gate.Cancel()
		return a, nil

	case dialog.CloseQuitMsg:
		a.showQuit = false
		return a, nil

	case pubsub.Event[status.StatusMessage]:
		s, _ := a.status.Update(msg)
		a.status = s.(core.StatusCmp)
		if msg.Payload.Level == status.LevelError {
			cmds = append(cmds, toast.NewErrorToast(msg.Payload.Message))
		}
		return a, tea.Batch(cmds...)

	case pubsub.Event[engine.State]:
		s, _ := a.status.Update(msg)
		a.status = s.(core.StatusCmp)
		return a, nil

	case pubsub.Event[session.Session]:
		return a.updateAllPages(msg)

	case pubsub.Event[config.ChangeEvent]:
		// Settings-family pages re-read config when reactivated; refresh
		// whichever page is live.
		a.pages[a.state.View], cmd = a.pages[a.state.View].Update(state.ViewActivatedMsg{Options: a.state.Options})
		return a, tea.Batch(cmd, toast.NewInfoToast("Settings file changed on disk"))

	case toast.ShowToastMsg, toast.DismissToastMsg:
		a.toasts, cmd = a.toasts.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		if a.fatal != "" {
			if key.Matches(msg, keys.Quit) {
				return a, tea.Quit
			}
			return a, nil
		}

		switch {
		case key.Matches(msg, keys.Quit):
			a.showQuit = !a.showQuit
			return a, nil
		case key.Matches(msg, keys.NewWindow):
			return a, func() tea.Msg {
				if err := a.app.Host.CreateChatWindow("", ""); err != nil {
					status.Error(err.Error())
				}
				return nil
			}
		case key.Matches(msg, keys.Settings):
			if !a.showQuit && !a.showExtension {
				return a, a.setView(view.Settings, nil)
			}
			return a, nil
		}
	}

	if a.showQuit {
		q, quitCmd := a.quit.Update(msg)
		a.quit = q.(dialog.QuitDialog)
		cmds = append(cmds, quitCmd)
		// Only block key messages send all other messages down
		if _, ok := msg.(tea.KeyMsg); ok {
			return a, tea.Batch(cmds...)
		}
	}

	if a.showExtension {
		d, extCmd := a.extensionDialog.Update(msg)
		a.extensionDialog = d.(dialog.ExtensionDialog)
		cmds = append(cmds, extCmd)
		// Only block key messages send all other messages down
		if _, ok := msg.(tea.KeyMsg); ok {
			return a, tea.Batch(cmds...)
		}
	}

	s, cmd := a.status.Update(msg)
	cmds = append(cmds, cmd)
	a.status = s.(core.StatusCmp)

	a.pages[a.state.View], cmd = a.pages[a.state.View].Update(msg)
	cmds = append(cmds, cmd)
	return a, tea.Batch(cmds...)
}

// handleHostEvent translates one host signal into a view transition or a
// gate update. Each branch is defensive: a bad payload is logged and
// dropped, never fatal.
func (a appModel) handleHostEvent(msg pubsub.Event[host.Event]) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case host.EventFatalError:
		a.fatal = msg.Payload.Message
		return a, nil

	case host.EventOpenSharedSession:
		raw := msg.Payload.Link
		return a, func() tea.Msg {
			// The opener handles its own errors; an escape from it
			// degrades to the sessions list instead of a stuck spinner.
			app.Protect("open-shared-session", func() {
				a.app.SetView(view.Sessions, nil)
			}, func() {
				link, err := deeplink.Parse(raw)
				if err != nil {
					app.Handle("open-shared-session", func() error { return err })
					return
				}
				session.OpenSharedFromDeepLink(context.Background(), link, a.app.SetView, a.app.Host.Config().BaseURL)
			})
			return nil
		}

	case host.EventAddExtension:
		var cmd tea.Cmd
		app.Handle("add-extension", func() error {
			link, err := deeplink.Parse(msg.Payload.Link)
			if err != nil {
				return err
			}
			summary := fmt.Sprintf("%s wants to run: %s", link.Name(), link.Command())
			err = a.app.Gate.Request(link, summary)
			if errors.Is(err, extension.ErrPending) {
				// Reject the second request loudly rather than silently
				// replacing the first.
				cmd = toast.NewWarningToast(err.Error())
				return nil
			}
			return err
		})
		return a, cmd

	case host.EventSetView:
		v, err := view.Parse(msg.Payload.ViewName)
		if err != nil {
			app.Handle("set-view", func() error { return err })
			return a, nil
		}
		return a, a.setView(v, decodeOptions(v, msg.Payload.Options))
	}
	return a, nil
}

// decodeOptions turns the host's flat string map into the target view's
// typed options. Unknown keys are dropped.
func decodeOptions(v view.View, m map[string]string) view.Options {
	if m == nil {
		return view.Default(v)
	}
	switch v {
	case view.Chat:
		return view.ChatOptions{SessionID: m["sessionId"]}
	case view.MoreModels:
		return view.MoreModelsOptions{Provider: m["provider"]}
	case view.ConfigPage:
		return view.ConfigPageOptions{ExtensionID: m["extensionId"]}
	case view.Sessions:
		return view.SessionsOptions{Filter: m["filter"]}
	case view.SharedSession:
		return view.SharedSessionOptions{Token: m["token"], Loading: true}
	default:
		return view.Default(v)
	}
}

// setView is the only mutator of the view state. It replaces the options
// wholesale, never merging with the previous transition's.
func (a *appModel) setView(v view.View, opts view.Options) tea.Cmd {
	if opts == nil || opts.For() != v {
		opts = view.Default(v)
	}

	var cmds []tea.Cmd

	// Leaving chat always resets its in-flight flag so a stale spinner
	// cannot leak into the next view.
	if a.state.View == view.Chat && v != view.Chat {
		if clearer, ok := a.pages[view.Chat].(loadingClearer); ok {
			clearer.ClearLoading()
		}
	}

	if _, ok := a.loadedPages[v]; !ok {
		cmds = append(cmds, a.pages[v].Init())
		a.loadedPages[v] = true
	}

	a.previous = a.state.View
	a.state = view.State{View: v, Options: opts}

	if sizable, ok := a.pages[v].(layout.Sizeable); ok {
		cmds = append(cmds, sizable.SetSize(a.width, a.height))
	}

	var cmd tea.Cmd
	a.pages[v], cmd = a.pages[v].Update(state.ViewActivatedMsg{Options: opts})
	cmds = append(cmds, cmd)

	return tea.Batch(cmds...)
}

func (a appModel) View() string {
	if a.fatal != "" {
		body := lipgloss.JoinVertical(lipgloss.Center,
			lipgloss.NewStyle().Foreground(styles.Error).Bold(true).Render(styles.ErrorIcon+" Something went wrong"),
			"",
			lipgloss.NewStyle().Width(min(a.width-4, 72)).Render(a.fatal),
			"",
			styles.Muted().Render("ctrl+c: quit"),
		)
		return lipgloss.Place(a.width, a.height+1, lipgloss.Center, lipgloss.Center, body)
	}

	components := []string{
		a.pages[a.state.View].View(),
		a.status.View(),
	}
	appView := lipgloss.JoinVertical(lipgloss.Top, components...)

	if a.showExtension {
		overlay := a.extensionDialog.View()
		row := lipgloss.Height(appView)/2 - lipgloss.Height(overlay)/2
		col := lipgloss.Width(appView)/2 - lipgloss.Width(overlay)/2
		appView = layout.PlaceOverlay(col, row, overlay, appView, true)
	}

	if a.showQuit {
		overlay := a.quit.View()
		row := lipgloss.Height(appView)/2 - lipgloss.Height(overlay)/2
		col := lipgloss.Width(appView)/2 - lipgloss.Width(overlay)/2
		appView = layout.PlaceOverlay(col, row, overlay, appView, true)
	}

	return a.toasts.RenderOverlay(appView)
}

func New(app *app.App) tea.Model {
	model := &appModel{
		state:           view.State{View: view.Loading, Options: view.LoadingOptions{}},
		loadedPages:     make(map[view.View]bool),
		status:          core.NewStatusCmp(),
		toasts:          toast.NewToastManager(),
		quit:            dialog.NewQuitDialog(),
		extensionDialog: dialog.NewExtensionDialog(),
		app:             app,
		pages: map[view.View]tea.Model{
			view.Loading:            page.NewLoadingPage(),
			view.Welcome:            page.NewWelcomePage(),
			view.Chat:               page.NewChatPage(app),
			view.Settings:           page.NewSettingsPage(),
			view.MoreModels:         page.NewMoreModelsPage(),
			view.ConfigureProviders: page.NewConfigureProvidersPage(),
			view.ConfigPage:         page.NewConfigPage(),
			view.SettingsV2:         page.NewSettingsV2Page(),
			view.Sessions:           page.NewSessionsPage(app),
			view.SharedSession:      page.NewSharedSessionPage(),
		},
	}
	return model
}

package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/app"
	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/extension"
	"github.com/perchlabs/perch/internal/host"
	"github.com/perchlabs/perch/internal/pubsub"
	"github.com/perchlabs/perch/internal/tui/components/dialog"
	"github.com/perchlabs/perch/internal/tui/state"
	"github.com/perchlabs/perch/internal/tui/view"
)

// fakePage records the calls the shell makes on a page during a
// transition.
type fakePage struct {
	initCalls   int
	cleared     int
	activations []view.Options
	width       int
	height      int
}

func (f *fakePage) Init() tea.Cmd {
	f.initCalls++
	return nil
}

func (f *fakePage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if activated, ok := msg.(state.ViewActivatedMsg); ok {
		f.activations = append(f.activations, activated.Options)
	}
	return f, nil
}

func (f *fakePage) View() string { return "" }

func (f *fakePage) SetSize(width, height int) tea.Cmd {
	f.width, f.height = width, height
	return nil
}

func (f *fakePage) ClearLoading() {
	f.cleared++
}

func newTestModel(t *testing.T, installer extension.Installer) appModel {
	t.Helper()
	if installer == nil {
		installer = func(context.Context, *deeplink.Link, view.SetFunc) error { return nil }
	}
	a := &app.App{Gate: extension.NewGate(installer)}
	return *New(a).(*appModel)
}

func TestSetViewReplacesOptionsWholesale(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	m.setView(view.Chat, view.ChatOptions{SessionID: "sess-1"})
	assert.Equal(t, view.Chat, m.state.View)
	assert.Equal(t, view.ChatOptions{SessionID: "sess-1"}, m.state.Options)

	// A second transition to the same view with no options must not keep
	// the previous session id around.
	m.setView(view.Chat, nil)
	assert.Equal(t, view.ChatOptions{}, m.state.Options)
}

func TestSetViewRejectsMismatchedOptions(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	m.setView(view.Settings, view.ChatOptions{SessionID: "sess-1"})

	assert.Equal(t, view.Settings, m.state.View)
	assert.Equal(t, view.SettingsOptions{}, m.state.Options)
}

func TestSetViewTracksPrevious(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	m.setView(view.Welcome, nil)
	m.setView(view.Sessions, nil)

	assert.Equal(t, view.Welcome, m.previous)
	assert.Equal(t, view.Sessions, m.state.View)
}

func TestSetViewInitsPagesLazilyOnce(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)
	fake := &fakePage{}
	m.pages[view.Sessions] = fake

	m.setView(view.Sessions, nil)
	m.setView(view.Welcome, nil)
	m.setView(view.Sessions, nil)

	assert.Equal(t, 1, fake.initCalls)
}

func TestSetViewResizesTargetPage(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)
	m.width, m.height = 120, 40
	fake := &fakePage{}
	m.pages[view.Sessions] = fake

	m.setView(view.Sessions, nil)

	assert.Equal(t, 120, fake.width)
	assert.Equal(t, 40, fake.height)
}

func TestLeavingChatClearsItsLoadingState(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)
	fake := &fakePage{}
	m.pages[view.Chat] = fake

	m.setView(view.Chat, view.ChatOptions{SessionID: "sess-1"})
	require.Zero(t, fake.cleared)

	// Re-entering chat is not leaving it.
	m.setView(view.Chat, nil)
	assert.Zero(t, fake.cleared)

	m.setView(view.Sessions, nil)
	assert.Equal(t, 1, fake.cleared)
}

func TestFatalErrorShortCircuitsRendering(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)
	m.width, m.height = 80, 24

	updated, _ := m.Update(view.FatalErrorMsg{Message: "configuration file is corrupted"})
	m = updated.(appModel)

	assert.Contains(t, m.View(), "configuration file is corrupted")
	assert.Contains(t, m.View(), "Something went wrong")
}

func TestFatalStateOnlyAllowsQuit(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)
	m.fatal = "broken"

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	m = updated.(appModel)
	assert.Nil(t, cmd)
	assert.Equal(t, view.Loading, m.state.View)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestSetViewMsgDrivesTransition(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(view.SetViewMsg{View: view.Welcome})
	m = updated.(appModel)

	assert.Equal(t, view.Welcome, m.state.View)
	assert.Equal(t, view.WelcomeOptions{}, m.state.Options)
}

func TestHostSetViewEvent(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(pubsub.Event[host.Event]{
		Type: host.EventSetView,
		Payload: host.Event{
			ViewName: "sessions",
			Options:  map[string]string{"filter": "roadmap"},
		},
	})
	m = updated.(appModel)

	assert.Equal(t, view.Sessions, m.state.View)
	assert.Equal(t, view.SessionsOptions{Filter: "roadmap"}, m.state.Options)
}

func TestHostSetViewEventUnknownViewIsDropped(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(pubsub.Event[host.Event]{
		Type:    host.EventSetView,
		Payload: host.Event{ViewName: "nonsense"},
	})
	m = updated.(appModel)

	assert.Equal(t, view.Loading, m.state.View)
}

func TestHostFatalErrorEvent(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(pubsub.Event[host.Event]{
		Type:    host.EventFatalError,
		Payload: host.Event{Message: "engine exploded"},
	})
	m = updated.(appModel)

	assert.Equal(t, "engine exploded", m.fatal)
}

func TestHostAddExtensionEventStagesGateRequest(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(pubsub.Event[host.Event]{
		Type:    host.EventAddExtension,
		Payload: host.Event{Link: "perch://add-extension?cmd=weather-bot&name=Weather"},
	})
	m = updated.(appModel)

	pending, ok := m.app.Gate.Pending()
	require.True(t, ok)
	assert.Equal(t, "Weather wants to run: weather-bot", pending.Summary)
}

func TestHostAddExtensionEventBadLinkIsDropped(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(pubsub.Event[host.Event]{
		Type:    host.EventAddExtension,
		Payload: host.Event{Link: "https://example.com/not-a-deep-link"},
	})
	m = updated.(appModel)

	_, ok := m.app.Gate.Pending()
	assert.False(t, ok)
}

func TestExtensionDialogFollowsGateEvents(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	updated, _ := m.Update(pubsub.Event[extension.PendingRequest]{
		Type:    extension.EventInstallRequested,
		Payload: extension.PendingRequest{Summary: "Weather wants to run: weather-bot"},
	})
	m = updated.(appModel)
	assert.True(t, m.showExtension)

	updated, _ = m.Update(pubsub.Event[extension.Resolution]{
		Type:    extension.EventInstallResolved,
		Payload: extension.Resolution{Confirmed: false},
	})
	m = updated.(appModel)
	assert.False(t, m.showExtension)
}

func TestExtensionRespondCancelClearsPending(t *testing.T) {
	t.Parallel()
	m := newTestModel(t, nil)

	link, err := deeplink.Parse("perch://add-extension?cmd=weather-bot")
	require.NoError(t, err)
	require.NoError(t, m.app.Gate.Request(link, "summary"))
	m.showExtension = true

	updated, _ := m.Update(dialog.ExtensionRespondMsg{Confirm: false})
	m = updated.(appModel)

	assert.False(t, m.showExtension)
	_, ok := m.app.Gate.Pending()
	assert.False(t, ok)
}

func TestDecodeOptions(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		view view.View
		in   map[string]string
		want view.Options
	}{
		{"nil map uses defaults", view.Chat, nil, view.ChatOptions{}},
		{"chat session id", view.Chat, map[string]string{"sessionId": "s1"}, view.ChatOptions{SessionID: "s1"}},
		{"models provider", view.MoreModels, map[string]string{"provider": "openai"}, view.MoreModelsOptions{Provider: "openai"}},
		{"config extension id", view.ConfigPage, map[string]string{"extensionId": "weather"}, view.ConfigPageOptions{ExtensionID: "weather"}},
		{"sessions filter", view.Sessions, map[string]string{"filter": "q"}, view.SessionsOptions{Filter: "q"}},
		{"shared session starts loading", view.SharedSession, map[string]string{"token": "tok"}, view.SharedSessionOptions{Token: "tok", Loading: true}},
		{"unknown keys dropped", view.Welcome, map[string]string{"sessionId": "s1"}, view.WelcomeOptions{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, decodeOptions(tc.view, tc.in))
		})
	}
}

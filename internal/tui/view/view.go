// Package view defines the view-state vocabulary shared by the shell, the
// pages, and the services that drive navigation. It deliberately has no
// dependencies on the rest of the application so anything may import it.
package view

import "fmt"

// View identifies one of the window's top-level screens.
type View string

const (
	Loading            View = "loading"
	Welcome            View = "welcome"
	Chat               View = "chat"
	Settings           View = "settings"
	MoreModels         View = "moreModels"
	ConfigureProviders View = "configureProviders"
	ConfigPage         View = "configPage"
	SettingsV2         View = "settingsV2"
	Sessions           View = "sessions"
	SharedSession      View = "sharedSession"
)

var all = []View{
	Loading,
	Welcome,
	Chat,
	Settings,
	MoreModels,
	ConfigureProviders,
	ConfigPage,
	SettingsV2,
	Sessions,
	SharedSession,
}

// Parse maps a view name arriving over the host boundary to a View.
func Parse(name string) (View, error) {
	for _, v := range all {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("unknown view %q", name)
}

// Options carries the per-view parameters of a transition. Each view has
// its own variant so pages never have to pull loosely typed values out of a
// shared bag.
type Options interface {
	For() View
}

type WelcomeOptions struct{}

func (WelcomeOptions) For() View { return Welcome }

type ChatOptions struct {
	// SessionID resumes an existing session when set.
	SessionID string
}

func (ChatOptions) For() View { return Chat }

type SettingsOptions struct{}

func (SettingsOptions) For() View { return Settings }

type MoreModelsOptions struct {
	Provider string
}

func (MoreModelsOptions) For() View { return MoreModels }

type ConfigureProvidersOptions struct{}

func (ConfigureProvidersOptions) For() View { return ConfigureProviders }

type ConfigPageOptions struct {
	ExtensionID string
}

func (ConfigPageOptions) For() View { return ConfigPage }

type SettingsV2Options struct{}

func (SettingsV2Options) For() View { return SettingsV2 }

type SessionsOptions struct {
	// Filter pre-populates the fuzzy filter input.
	Filter string
}

func (SessionsOptions) For() View { return Sessions }

// SharedSessionOptions drives the read-only shared transcript screen
// through its loading, loaded and error phases.
type SharedSessionOptions struct {
	Token    string
	BaseURL  string
	Title    string
	Markdown string
	Error    string
	Loading  bool
}

func (SharedSessionOptions) For() View { return SharedSession }

type LoadingOptions struct{}

func (LoadingOptions) For() View { return Loading }

// Default returns the zero options variant for v.
func Default(v View) Options {
	switch v {
	case Welcome:
		return WelcomeOptions{}
	case Chat:
		return ChatOptions{}
	case Settings:
		return SettingsOptions{}
	case MoreModels:
		return MoreModelsOptions{}
	case ConfigureProviders:
		return ConfigureProvidersOptions{}
	case ConfigPage:
		return ConfigPageOptions{}
	case SettingsV2:
		return SettingsV2Options{}
	case Sessions:
		return SessionsOptions{}
	case SharedSession:
		return SharedSessionOptions{}
	default:
		return LoadingOptions{}
	}
}

// State is the single live view-state value: which screen is shown and
// with what parameters.
type State struct {
	View    View
	Options Options
}

// SetViewMsg requests a transition. Options may be nil, in which case the
// target view's zero options are used. The transition always replaces the
// previous options wholesale.
type SetViewMsg struct {
	View    View
	Options Options
}

// FatalErrorMsg marks the window session as unrecoverable. Once delivered
// the error screen is the only thing rendered.
type FatalErrorMsg struct {
	Message string
}

// SetFunc is how services outside the UI request a transition.
type SetFunc func(v View, opts Options)

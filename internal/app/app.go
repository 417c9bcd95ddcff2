// Package app wires the window's services together and owns the startup
// orchestration.
package app

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/engine"
	"github.com/perchlabs/perch/internal/extension"
	"github.com/perchlabs/perch/internal/host"
	"github.com/perchlabs/perch/internal/logging"
	"github.com/perchlabs/perch/internal/session"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/view"
)

type App struct {
	Logs     logging.Service
	Sessions session.Service
	Engine   engine.Service
	Status   status.Service
	Gate     *extension.Gate
	Host     host.Bridge

	Generation config.Generation

	// setView is installed once the UI program exists; transitions
	// requested before then are dropped.
	setView atomic.Value
}

func New(ctx context.Context, bridge host.Bridge) (*App, error) {
	err := logging.InitService()
	if err != nil {
		slog.Error("Failed to initialize logging service", "error", err)
		return nil, err
	}
	err = session.InitService(config.DataDirectory())
	if err != nil {
		slog.Error("Failed to initialize session service", "error", err)
		return nil, err
	}
	err = engine.InitService()
	if err != nil {
		slog.Error("Failed to initialize engine service", "error", err)
		return nil, err
	}
	status.InitManager(status.NewService())

	generation := config.Get().Generation

	app := &App{
		Logs:       logging.GetService(),
		Sessions:   session.GetService(),
		Engine:     engine.GetService(),
		Status:     status.GetService(),
		Host:       bridge,
		Generation: generation,
	}
	app.Gate = extension.NewGate(app.installer())

	return app, nil
}

// installer picks the extension-install variant for the active
// configuration generation.
func (a *App) installer() extension.Installer {
	if a.Generation == config.GenerationV2 {
		return func(ctx context.Context, link *deeplink.Link, setView view.SetFunc) error {
			return extension.AddFromDeepLinkV2(ctx, link, config.AddExtension, setView)
		}
	}
	return extension.AddFromDeepLink
}

// SetViewSink installs the function that delivers view transitions to the
// UI loop.
func (a *App) SetViewSink(fn view.SetFunc) {
	a.setView.Store(fn)
}

// SetView requests a view transition. Safe to call from any goroutine.
func (a *App) SetView(v view.View, opts view.Options) {
	fn, ok := a.setView.Load().(view.SetFunc)
	if !ok || fn == nil {
		slog.Debug("view transition dropped, no sink installed", "view", v)
		return
	}
	if opts == nil {
		opts = view.Default(v)
	}
	fn(v, opts)
}

package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/engine"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/view"
)

// Orchestrator runs the window's startup flow exactly once: detect stored
// configuration, decide between resuming to chat and showing onboarding,
// and bring the engine up. Which strategy runs is fixed at construction by
// the active configuration generation.
type Orchestrator struct {
	generation config.Generation
	attempted  atomic.Bool
	wg         sync.WaitGroup

	initConfig      func() error
	read            func(key string, required bool) (string, error)
	defaultProvider func() string
	defaultModel    func(provider string) string
	persistModel    func(provider, model string) error
	initEngine      func(ctx context.Context, provider, model string) error
	configure       func(opts status.Options)
	setView         view.SetFunc
	setFatal        func(msg string)
}

// NewOrchestrator builds the production orchestrator. setView and setFatal
// deliver the outcome to the UI loop.
func (a *App) NewOrchestrator(setView view.SetFunc, setFatal func(msg string)) *Orchestrator {
	return &Orchestrator{
		generation: a.Generation,
		initConfig: config.Init,
		read:       config.Read,
		defaultProvider: func() string {
			return config.Get().DefaultProvider
		},
		defaultModel: func(provider string) string {
			if stored := config.Get().DefaultModel; stored != "" {
				return stored
			}
			if m, ok := engine.DefaultModel(engine.Provider(provider)); ok {
				return string(m.ID)
			}
			return ""
		},
		persistModel: config.SetModel,
		initEngine:   engine.Initialize,
		configure:    status.Configure,
		setView:      setView,
		setFatal:     setFatal,
	}
}

// Run executes the startup flow. Re-invocation is a no-op: the flow's side
// effects happen at most once per window lifetime.
func (o *Orchestrator) Run(ctx context.Context) {
	if !o.attempted.CompareAndSwap(false, true) {
		return
	}

	switch o.generation {
	case config.GenerationV1:
		o.runLegacy(ctx)
	default:
		o.runNextGen(ctx)
	}
}

// Wait blocks until any background startup work has finished.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// runNextGen is strictly sequential. Notifications stay silent for its
// whole duration so expected transient errors never surface as toasts.
func (o *Orchestrator) runNextGen(ctx context.Context) {
	o.configure(status.Options{Silent: true})
	defer o.configure(status.Options{Silent: false})

	if err := o.initConfig(); err != nil {
		o.setFatal(fmt.Sprintf("failed to initialize configuration: %v", err))
		// Still land somewhere usable rather than a blank screen.
		o.setView(view.Welcome, view.WelcomeOptions{})
		return
	}

	provider, err := o.read("provider", false)
	if err != nil {
		o.fail(err)
		return
	}
	model, err := o.read("model", false)
	if err != nil {
		o.fail(err)
		return
	}

	if provider == "" {
		provider = o.defaultProvider()
	}
	if model == "" && provider != "" {
		model = o.defaultModel(provider)
	}

	if provider == "" || model == "" {
		o.setView(view.Welcome, view.WelcomeOptions{})
		return
	}

	// Show the target screen while the engine comes up in the background.
	o.setView(view.Chat, view.ChatOptions{})

	if err := o.initEngine(ctx, provider, model); err != nil {
		o.fail(err)
	}
}

func (o *Orchestrator) fail(err error) {
	switch Classify(err) {
	case CategoryFatal:
		o.setFatal(err.Error())
	default:
		slog.Warn("startup redirecting to onboarding", "error", err)
		o.setView(view.Welcome, view.WelcomeOptions{})
	}
}

// runLegacy starts two independent procedures with no ordering guarantee
// between them. Detection picks the first view; Setup initializes the
// engine and may elevate to a fatal error, but never changes the view
// Detection chose. The view state is last-write-wins if both land.
func (o *Orchestrator) runLegacy(ctx context.Context) {
	o.wg.Add(2)

	go func() {
		defer o.wg.Done()
		provider, err := o.read("provider", false)
		if err != nil {
			o.setFatal(err.Error())
			return
		}
		if provider != "" {
			o.setView(view.Chat, view.ChatOptions{})
		} else {
			o.setView(view.Welcome, view.WelcomeOptions{})
		}
	}()

	go func() {
		defer o.wg.Done()
		provider, err := o.read("provider", false)
		if err != nil {
			o.setFatal(err.Error())
			return
		}
		if provider == "" {
			return
		}

		model, err := o.read("model", false)
		if err != nil {
			o.setFatal(err.Error())
			return
		}
		if model == "" {
			model = o.defaultModel(provider)
			if model == "" {
				return
			}
			if err := o.persistModel(provider, model); err != nil {
				o.setFatal(err.Error())
				return
			}
		}

		if err := o.initEngine(ctx, provider, model); err != nil {
			o.setFatal(err.Error())
		}
	}()
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/perchlabs/perch/internal/app"
	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/engine"
	"github.com/perchlabs/perch/internal/host"
	"github.com/perchlabs/perch/internal/logging"
	"github.com/perchlabs/perch/internal/pubsub"
	"github.com/perchlabs/perch/internal/tui"
	"github.com/perchlabs/perch/internal/tui/view"
)

// Version is stamped by the build.
var Version = "dev"

// WindowIDHandler adds the window id to every log record so logs from
// sibling windows can be told apart.
type WindowIDHandler struct {
	slog.Handler
	windowID string
}

func (h *WindowIDHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.windowID != "" {
		r.AddAttrs(slog.String("window_id", h.windowID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *WindowIDHandler) WithWindowID(id string) *WindowIDHandler {
	h.windowID = id
	return h
}

// syncWriter is a thread-safe writer that prevents interleaved output
type syncWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (sw *syncWriter) Write(p []byte) (n int, err error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.w.Write(p)
}

var rootCmd = &cobra.Command{
	Use:   "perch",
	Short: "A desktop chat assistant in your terminal",
	Long: `Perch is a chat assistant window. Each window runs its own view
stack and talks to a configured model provider. Deep links (perch://...)
open shared sessions and stage extension installs for confirmation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flag("help").Changed {
			cmd.Help()
			return nil
		}
		if cmd.Flag("version").Changed {
			fmt.Println(Version)
			return nil
		}

		// Setup logging
		lvl := new(slog.LevelVar)
		textHandler := slog.NewTextHandler(logging.NewSlogWriter(), &slog.HandlerOptions{Level: lvl})
		windowAwareHandler := &WindowIDHandler{Handler: textHandler}
		slog.SetDefault(slog.New(windowAwareHandler))

		debug, _ := cmd.Flags().GetBool("debug")
		if debug {
			lvl.Set(slog.LevelDebug)
		}
		verbose, _ := cmd.Flags().GetBool("verbose")
		if verbose {
			charmLogger := charmlog.NewWithOptions(&syncWriter{w: os.Stderr}, charmlog.Options{
				Level:           charmlog.DebugLevel,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "perch",
			})
			charmlog.SetDefault(charmLogger)
			slog.SetDefault(slog.New(charmLogger))
		}

		// Load the config
		cwd, _ := cmd.Flags().GetString("cwd")
		if cwd != "" {
			err := os.Chdir(cwd)
			if err != nil {
				return fmt.Errorf("failed to change directory: %v", err)
			}
		}
		if cwd == "" {
			c, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get current working directory: %v", err)
			}
			cwd = c
		}
		_, err := config.Load(cwd, debug)
		if err != nil {
			return err
		}

		windowID, _ := cmd.Flags().GetString("window-id")
		if windowID == "" {
			windowID = uuid.New().String()
		}
		windowAwareHandler.WithWindowID(windowID)

		bridge := host.NewBridge(host.Info{
			BaseURL:    config.Get().Host.BaseURL,
			WindowID:   windowID,
			WorkingDir: cwd,
		})
		bridge.LogInfo(fmt.Sprintf("window %s starting in %s", windowID, cwd))

		// Create main context for the application
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		app, err := app.New(ctx, bridge)
		if err != nil {
			slog.Error("Failed to create app", "error", err)
			return err
		}

		program := tea.NewProgram(
			tui.New(app),
			tea.WithAltScreen(),
		)

		// Services request view transitions through the app; the sink turns
		// them into messages on the UI loop.
		app.SetViewSink(func(v view.View, opts view.Options) {
			program.Send(view.SetViewMsg{View: v, Options: opts})
		})

		// Setup the subscriptions, this will send services events to the TUI
		ch, cancelSubs := setupSubscriptions(app, bridge, ctx)

		if err := config.Watch(ctx); err != nil {
			slog.Warn("Failed to watch config file", "error", err)
		}

		// Startup runs off the UI loop; its outcome arrives as messages.
		orchestrator := app.NewOrchestrator(
			app.SetView,
			func(msg string) {
				program.Send(view.FatalErrorMsg{Message: msg})
			},
		)
		go func() {
			defer logging.RecoverPanic("startup", nil)
			orchestrator.Run(ctx)
		}()

		// A deep link passed on the command line is treated exactly like one
		// arriving from the host at runtime.
		if link, _ := cmd.Flags().GetString("deep-link"); link != "" {
			dispatchDeepLink(bridge, link)
		}

		// Create a context for the TUI message handler
		tuiCtx, tuiCancel := context.WithCancel(ctx)
		var tuiWg sync.WaitGroup
		tuiWg.Add(1)

		// Set up message handling for the TUI
		go func() {
			defer tuiWg.Done()
			defer logging.RecoverPanic("TUI-message-handler", func() {
				attemptTUIRecovery(program)
			})

			for {
				select {
				case <-tuiCtx.Done():
					slog.Info("TUI message handler shutting down")
					return
				case msg, ok := <-ch:
					if !ok {
						slog.Info("TUI message channel closed")
						return
					}
					program.Send(msg)
				}
			}
		}()

		// Cleanup function for when the program exits
		cleanup := func() {
			// Cancel subscriptions first
			cancelSubs()

			// Then cancel TUI message handler
			tuiCancel()

			// Wait for TUI message handler to finish
			tuiWg.Wait()

			slog.Info("All goroutines cleaned up")
		}

		// Run the TUI
		result, err := program.Run()
		cleanup()

		if err != nil {
			slog.Error("TUI error", "error", err)
			return fmt.Errorf("TUI error: %v", err)
		}

		slog.Info("TUI exited", "result", result)
		return nil
	},
}

// attemptTUIRecovery tries to recover the TUI after a panic
func attemptTUIRecovery(program *tea.Program) {
	slog.Info("Attempting to recover TUI after panic")

	// We could try to restart the TUI or gracefully exit
	// For now, we'll just quit the program to avoid further issues
	program.Quit()
}

// dispatchDeepLink routes a raw deep link to the matching host event. Bad
// links are logged and dropped; the window still starts.
func dispatchDeepLink(bridge host.Bridge, raw string) {
	link, err := deeplink.Parse(raw)
	if err != nil {
		slog.Warn("ignoring invalid deep link", "error", err)
		return
	}

	switch link.Kind {
	case "add-extension":
		host.Dispatch(bridge, host.EventAddExtension, host.Event{Link: raw})
	case "shared-session":
		host.Dispatch(bridge, host.EventOpenSharedSession, host.Event{Link: raw})
	default:
		slog.Warn("ignoring deep link with unknown kind", "kind", link.Kind)
	}
}

func setupSubscriber[T any](
	ctx context.Context,
	wg *sync.WaitGroup,
	name string,
	subscriber func(context.Context) <-chan pubsub.Event[T],
	outputCh chan<- tea.Msg,
) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer logging.RecoverPanic(fmt.Sprintf("subscription-%s", name), nil)

		subCh := subscriber(ctx)
		if subCh == nil {
			slog.Warn("subscription channel is nil", "name", name)
			return
		}

		for {
			select {
			case event, ok := <-subCh:
				if !ok {
					slog.Info("subscription channel closed", "name", name)
					return
				}

				var msg tea.Msg = event

				select {
				case outputCh <- msg:
				case <-time.After(2 * time.Second):
					slog.Warn("message dropped due to slow consumer", "name", name)
				case <-ctx.Done():
					slog.Info("subscription cancelled", "name", name)
					return
				}
			case <-ctx.Done():
				slog.Info("subscription cancelled", "name", name)
				return
			}
		}
	}()
}

func setupSubscriptions(app *app.App, bridge host.Bridge, parentCtx context.Context) (chan tea.Msg, func()) {
	ch := make(chan tea.Msg, 100)

	wg := sync.WaitGroup{}
	ctx, cancel := context.WithCancel(parentCtx) // Inherit from parent context

	setupSubscriber(ctx, &wg, "host", bridge.Subscribe, ch)
	setupSubscriber(ctx, &wg, "logging", app.Logs.Subscribe, ch)
	setupSubscriber(ctx, &wg, "sessions", app.Sessions.Subscribe, ch)
	setupSubscriber(ctx, &wg, "engine", engine.Subscribe, ch)
	setupSubscriber(ctx, &wg, "status", app.Status.Subscribe, ch)
	setupSubscriber(ctx, &wg, "gate-requests", app.Gate.Subscribe, ch)
	setupSubscriber(ctx, &wg, "gate-resolutions", app.Gate.SubscribeResolutions, ch)
	setupSubscriber(ctx, &wg, "config", config.SubscribeChanges, ch)

	cleanupFunc := func() {
		slog.Info("Cancelling all subscriptions")
		cancel() // Signal all goroutines to stop

		waitCh := make(chan struct{})
		go func() {
			defer logging.RecoverPanic("subscription-cleanup", nil)
			wg.Wait()
			close(waitCh)
		}()

		select {
		case <-waitCh:
			slog.Info("All subscription goroutines completed successfully")
			close(ch) // Only close after all writers are confirmed done
		case <-time.After(5 * time.Second):
			slog.Warn("Timed out waiting for some subscription goroutines to complete")
			close(ch)
		}
	}
	return ch, cleanupFunc
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("help", "h", false, "Help")
	rootCmd.Flags().BoolP("version", "v", false, "Version")
	rootCmd.Flags().BoolP("debug", "d", false, "Debug")
	rootCmd.Flags().StringP("cwd", "c", "", "Current working directory")
	rootCmd.Flags().String("window-id", "", "Identifier assigned to this window by the host")
	rootCmd.Flags().String("deep-link", "", "Deep link (perch://...) to handle on startup")
	rootCmd.Flags().BoolP("verbose", "", false, "Display logs to stderr")
}

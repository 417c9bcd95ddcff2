// Package host is the process boundary between the window and the host
// shell: it delivers host events (deep links, fatal errors, view-change
// requests) and exposes the few calls the window makes back into the host.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/perchlabs/perch/internal/pubsub"
)

const (
	EventOpenSharedSession pubsub.EventType = "open-shared-session"
	EventFatalError        pubsub.EventType = "fatal-error"
	EventSetView           pubsub.EventType = "set-view"
	EventAddExtension      pubsub.EventType = "add-extension"
)

// Event is one host-originated signal. Which fields are set depends on the
// event type: deep-link events carry Link, fatal errors carry Message,
// view-change requests carry ViewName and Options.
type Event struct {
	Link     string
	Message  string
	ViewName string
	Options  map[string]string
}

// Info describes the host environment this window runs in.
type Info struct {
	BaseURL    string
	WindowID   string
	WorkingDir string
}

// Bridge is the window's handle on the host process.
type Bridge interface {
	pubsub.Subscriber[Event]

	Config() Info
	LogInfo(msg string)
	CreateChatWindow(id, workingDir string) error
	// ReactReady tells the host the window finished mounting. It must be
	// called exactly once per window; later calls are no-ops.
	ReactReady() error
}

type localBridge struct {
	broker *pubsub.Broker[Event]
	info   Info
	ready  atomic.Bool
}

// NewBridge builds the bridge for this window.
func NewBridge(info Info) Bridge {
	return &localBridge{
		broker: pubsub.NewBroker[Event](),
		info:   info,
	}
}

func (b *localBridge) Config() Info {
	return b.info
}

func (b *localBridge) LogInfo(msg string) {
	slog.Info(msg, "source", "host")
}

// Dispatch injects a host event into the window. The host side of the IPC
// channel calls this; tests do too.
func Dispatch(bridge Bridge, eventType pubsub.EventType, event Event) {
	lb, ok := bridge.(*localBridge)
	if !ok {
		return
	}
	lb.broker.Publish(eventType, event)
}

func (b *localBridge) Subscribe(ctx context.Context) <-chan pubsub.Event[Event] {
	return b.broker.Subscribe(ctx)
}

// CreateChatWindow spawns a sibling window process. An empty id gets a
// fresh one; an empty workingDir inherits this window's.
func (b *localBridge) CreateChatWindow(id, workingDir string) error {
	if id == "" {
		id = uuid.New().String()
	}
	if workingDir == "" {
		workingDir = b.info.WorkingDir
	}

	executable, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}

	cmd := exec.Command(executable, "--window-id", id, "--cwd", workingDir)
	cmd.Dir = workingDir
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to spawn chat window: %w", err)
	}

	slog.Info("spawned chat window", "id", id, "pid", cmd.Process.Pid)
	// The child owns its own lifetime.
	return cmd.Process.Release()
}

func (b *localBridge) ReactReady() error {
	if !b.ready.CompareAndSwap(false, true) {
		return nil
	}
	slog.Debug("window ready", "window_id", b.info.WindowID)
	return nil
}

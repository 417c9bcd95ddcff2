package extension

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/perchlabs/perch/internal/deeplink"
	"github.com/perchlabs/perch/internal/pubsub"
	"github.com/perchlabs/perch/internal/tui/view"
)

// ErrPending reports that a sensitive action is already awaiting the
// user's decision. The second request is rejected, never silently merged
// over the first.
var ErrPending = errors.New("an extension install is already pending confirmation")

const (
	EventInstallRequested pubsub.EventType = "extension_install_requested"
	EventInstallResolved  pubsub.EventType = "extension_install_resolved"
)

// PendingRequest is the single staged sensitive action: the raw link and
// the human-readable summary shown in the confirmation prompt. Rendering
// code only ever sees the summary.
type PendingRequest struct {
	Link    *deeplink.Link
	Summary string
}

// Resolution reports how a pending request ended.
type Resolution struct {
	Request   PendingRequest
	Confirmed bool
}

// Installer performs the actual install once the user confirms. The app
// picks the variant matching the active configuration generation.
type Installer func(ctx context.Context, link *deeplink.Link, setView view.SetFunc) error

// Gate holds at most one pending install request and exposes
// confirm/cancel. It is the only path between an untrusted add-extension
// deep link and the installer.
type Gate struct {
	requestBroker    *pubsub.Broker[PendingRequest]
	resolutionBroker *pubsub.Broker[Resolution]
	installer        Installer

	mu      sync.Mutex
	pending *PendingRequest
}

func NewGate(installer Installer) *Gate {
	return &Gate{
		requestBroker:    pubsub.NewBroker[PendingRequest](),
		resolutionBroker: pubsub.NewBroker[Resolution](),
		installer:        installer,
	}
}

// Request stages link for confirmation. It fails with ErrPending while
// another request is awaiting resolution.
func (g *Gate) Request(link *deeplink.Link, summary string) error {
	g.mu.Lock()
	if g.pending != nil {
		g.mu.Unlock()
		return ErrPending
	}
	req := PendingRequest{Link: link, Summary: summary}
	g.pending = &req
	g.mu.Unlock()

	g.requestBroker.Publish(EventInstallRequested, req)
	return nil
}

// Pending returns the staged request, if any.
func (g *Gate) Pending() (PendingRequest, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return PendingRequest{}, false
	}
	return *g.pending, true
}

// Confirm resolves the pending request. The dismissal event is published
// before the installer runs so the prompt never appears to hang on slow
// install work; the pending slot is cleared whether the installer succeeds
// or fails. Callers run Confirm off the UI loop.
func (g *Gate) Confirm(ctx context.Context, setView view.SetFunc) error {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return fmt.Errorf("no pending extension install to confirm")
	}
	req := *g.pending
	g.mu.Unlock()

	g.resolutionBroker.Publish(EventInstallResolved, Resolution{Request: req, Confirmed: true})

	defer g.clear()
	return g.installer(ctx, req.Link, setView)
}

// Cancel drops the pending request without installing anything.
func (g *Gate) Cancel() {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return
	}
	req := *g.pending
	g.pending = nil
	g.mu.Unlock()

	g.resolutionBroker.Publish(EventInstallResolved, Resolution{Request: req, Confirmed: false})
}

func (g *Gate) clear() {
	g.mu.Lock()
	g.pending = nil
	g.mu.Unlock()
}

// Subscribe delivers staged install requests until ctx is cancelled.
func (g *Gate) Subscribe(ctx context.Context) <-chan pubsub.Event[PendingRequest] {
	return g.requestBroker.Subscribe(ctx)
}

// SubscribeResolutions delivers confirm/cancel outcomes until ctx is
// cancelled.
func (g *Gate) SubscribeResolutions(ctx context.Context) <-chan pubsub.Event[Resolution] {
	return g.resolutionBroker.Subscribe(ctx)
}

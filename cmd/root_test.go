package cmd

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/host"
	"github.com/perchlabs/perch/internal/pubsub"
)

func TestDispatchDeepLinkRoutesByKind(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want pubsub.EventType
	}{
		{"add extension", "perch://add-extension?cmd=weather-bot", host.EventAddExtension},
		{"shared session", "perch://shared-session?token=tok123", host.EventOpenSharedSession},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			bridge := host.NewBridge(host.Info{})
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			events := bridge.Subscribe(ctx)

			dispatchDeepLink(bridge, tc.raw)

			select {
			case event := <-events:
				assert.Equal(t, tc.want, event.Type)
				assert.Equal(t, tc.raw, event.Payload.Link)
			case <-time.After(time.Second):
				t.Fatal("expected a host event")
			}
		})
	}
}

func TestDispatchDeepLinkDropsBadLinks(t *testing.T) {
	t.Parallel()
	bridge := host.NewBridge(host.Info{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := bridge.Subscribe(ctx)

	dispatchDeepLink(bridge, "https://example.com/nope")
	dispatchDeepLink(bridge, "perch://unknown-kind?x=1")
	dispatchDeepLink(bridge, "not a link at all")

	select {
	case event := <-events:
		t.Fatalf("unexpected host event: %v", event)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestWindowIDHandlerStampsRecords(t *testing.T) {
	t.Parallel()

	var captured slog.Record
	inner := recordingHandler{record: &captured}
	handler := (&WindowIDHandler{Handler: inner}).WithWindowID("win-42")

	logger := slog.New(handler)
	logger.Info("hello")

	found := false
	captured.Attrs(func(a slog.Attr) bool {
		if a.Key == "window_id" {
			found = true
			assert.Equal(t, "win-42", a.Value.String())
		}
		return true
	})
	require.True(t, found, "expected window_id attribute")
}

type recordingHandler struct {
	record *slog.Record
}

func (h recordingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h recordingHandler) Handle(_ context.Context, r slog.Record) error {
	*h.record = r
	return nil
}

func (h recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h recordingHandler) WithGroup(string) slog.Handler { return h }

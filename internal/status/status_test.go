package status

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/pubsub"
)

func collect(t *testing.T, ch <-chan pubsub.Event[StatusMessage], want int) []StatusMessage {
	t.Helper()
	var got []StatusMessage
	timeout := time.After(time.Second)
	for len(got) < want {
		select {
		case ev := <-ch:
			got = append(got, ev.Payload)
		case <-timeout:
			t.Fatalf("timed out waiting for %d status messages, got %d", want, len(got))
		}
	}
	return got
}

func TestServicePublishesLeveledMessages(t *testing.T) {
	t.Parallel()

	svc := NewService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := svc.Subscribe(ctx)

	svc.Info("ready")
	svc.Error("engine offline")

	got := collect(t, ch, 2)
	assert.Equal(t, LevelInfo, got[0].Level)
	assert.Equal(t, "ready", got[0].Message)
	assert.Equal(t, LevelError, got[1].Level)
	assert.False(t, got[1].Timestamp.IsZero())
}

func TestConfigureSilentDropsMessages(t *testing.T) {
	t.Parallel()

	svc := NewService()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := svc.Subscribe(ctx)

	svc.Configure(Options{Silent: true})
	svc.Error("should not surface")
	svc.Warn("neither should this")

	svc.Configure(Options{Silent: false})
	svc.Info("back online")

	got := collect(t, ch, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "back online", got[0].Message)

	select {
	case ev := <-ch:
		t.Fatalf("unexpected extra message: %+v", ev.Payload)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGlobalManagerLazyInit(t *testing.T) {
	globalManager = nil

	Info("hello")
	require.NotNil(t, globalManager)
	assert.NotNil(t, GetService())
}

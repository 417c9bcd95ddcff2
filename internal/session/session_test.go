package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/pubsub"
)

func newTestService(t *testing.T) *service {
	t.Helper()
	return &service{
		dir:    t.TempDir(),
		broker: pubsub.NewBroker[Session](),
	}
}

func TestCreateGetRoundTrip(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, "First chat")
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestGetMissing(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.Get(context.Background(), "nope")
	assert.Error(t, err)
}

func TestListOrdersByMostRecent(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "older")
	require.NoError(t, err)
	second, err := svc.Create(ctx, "newer")
	require.NoError(t, err)

	// Touching the first session bumps it to the front.
	first.UpdatedAt = second.UpdatedAt + 10
	_, err = svc.Update(ctx, first)
	require.NoError(t, err)

	sessions, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "older", sessions[0].Title)
}

func TestUpdateRequiresID(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	_, err := svc.Update(context.Background(), Session{Title: "no id"})
	assert.Error(t, err)
}

func TestDeletePublishesAndRemoves(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := svc.Subscribe(ctx)

	created, err := svc.Create(ctx, "doomed")
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.Get(ctx, created.ID)
	assert.Error(t, err)

	ev := <-events
	assert.Equal(t, EventSessionCreated, ev.Type)
	ev = <-events
	assert.Equal(t, EventSessionDeleted, ev.Type)
}

func TestListSkipsForeignFiles(t *testing.T) {
	t.Parallel()

	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, "real")
	require.NoError(t, err)

	writeJunk(t, filepath.Join(svc.dir, "notes.txt"), "not a session")
	writeJunk(t, filepath.Join(svc.dir, "broken.json"), "{nope")

	sessions, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/config"
)

func readWith(values map[string]string, err error) readFunc {
	return func(key string, required bool) (string, error) {
		if err != nil {
			return "", err
		}
		return values[key], nil
	}
}

func TestInitializeSucceedsWithCredentials(t *testing.T) {
	t.Parallel()

	svc := newService(readWith(map[string]string{
		"providers.anthropic.apiKey": "sk-test",
	}, nil))

	err := svc.Initialize(context.Background(), "anthropic", string(Claude37Sonnet))
	require.NoError(t, err)
	assert.Equal(t, StatusReady, svc.State().Status)
	assert.Equal(t, ProviderAnthropic, svc.State().Provider)
}

func TestInitializeUnknownModel(t *testing.T) {
	t.Parallel()

	svc := newService(readWith(nil, nil))

	err := svc.Initialize(context.Background(), "anthropic", "no-such-model")
	require.Error(t, err)
	assert.Equal(t, StatusError, svc.State().Status)
}

func TestInitializeProviderModelMismatch(t *testing.T) {
	t.Parallel()

	svc := newService(readWith(nil, nil))

	err := svc.Initialize(context.Background(), "openai", string(Claude37Sonnet))
	require.Error(t, err)
	assert.Equal(t, StatusError, svc.State().Status)
}

func TestInitializeMissingCredentials(t *testing.T) {
	t.Parallel()

	svc := newService(readWith(nil, nil))

	err := svc.Initialize(context.Background(), "anthropic", string(Claude37Sonnet))
	require.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrMalformed)
}

func TestInitializePropagatesMalformedConfig(t *testing.T) {
	t.Parallel()

	svc := newService(readWith(nil, fmt.Errorf("%w: bad key", config.ErrMalformed)))

	err := svc.Initialize(context.Background(), "anthropic", string(Claude37Sonnet))
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMalformed)
}

func TestInitializePublishesLifecycle(t *testing.T) {
	t.Parallel()

	svc := newService(readWith(map[string]string{
		"providers.openai.apiKey": "sk-test",
	}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := svc.Subscribe(ctx)

	require.NoError(t, svc.Initialize(context.Background(), "openai", string(GPT41)))

	first := <-ch
	assert.Equal(t, StatusInitializing, first.Payload.Status)
	second := <-ch
	assert.Equal(t, StatusReady, second.Payload.Status)
}

func TestDefaultModel(t *testing.T) {
	t.Parallel()

	m, ok := DefaultModel(ProviderAnthropic)
	require.True(t, ok)
	assert.Equal(t, Claude37Sonnet, m.ID)

	_, ok = DefaultModel(Provider("nope"))
	assert.False(t, ok)
}

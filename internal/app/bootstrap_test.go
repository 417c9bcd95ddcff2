package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/status"
	"github.com/perchlabs/perch/internal/tui/view"
)

// recorder captures every transition and fatal report an orchestrator
// produces, safely across goroutines.
type recorder struct {
	mu     sync.Mutex
	views  []view.View
	fatals []string
}

func (r *recorder) setView(v view.View, opts view.Options) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) setFatal(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fatals = append(r.fatals, msg)
}

func (r *recorder) lastView() (view.View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.views) == 0 {
		return "", false
	}
	return r.views[len(r.views)-1], true
}

func (r *recorder) fatalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fatals)
}

// testOrchestrator builds an orchestrator with benign defaults the test
// then overrides.
func testOrchestrator(gen config.Generation, rec *recorder) *Orchestrator {
	return &Orchestrator{
		generation:      gen,
		initConfig:      func() error { return nil },
		read:            func(key string, required bool) (string, error) { return "", nil },
		defaultProvider: func() string { return "" },
		defaultModel:    func(provider string) string { return "" },
		persistModel:    func(provider, model string) error { return nil },
		initEngine:      func(ctx context.Context, provider, model string) error { return nil },
		configure:       func(opts status.Options) {},
		setView:         rec.setView,
		setFatal:        rec.setFatal,
	}
}

func storedConfig(values map[string]string) func(string, bool) (string, error) {
	return func(key string, required bool) (string, error) {
		return values[key], nil
	}
}

func TestRunIsOneShot(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)

	runs := 0
	o.initConfig = func() error {
		runs++
		return nil
	}

	o.Run(context.Background())
	o.Run(context.Background())
	o.Wait()

	assert.Equal(t, 1, runs)
}

func TestNextGenOptimisticChatTransition(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)
	o.read = storedConfig(map[string]string{"provider": "anthropic", "model": "claude-3.7-sonnet"})

	o.initEngine = func(ctx context.Context, provider, model string) error {
		// The chat view must already be live when engine init starts.
		last, ok := rec.lastView()
		require.True(t, ok)
		assert.Equal(t, view.Chat, last)
		return nil
	}

	o.Run(context.Background())

	last, ok := rec.lastView()
	require.True(t, ok)
	assert.Equal(t, view.Chat, last)
	assert.Zero(t, rec.fatalCount())
}

func TestNextGenMalformedEngineErrorIsFatal(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)
	o.read = storedConfig(map[string]string{"provider": "anthropic", "model": "claude-3.7-sonnet"})
	o.initEngine = func(ctx context.Context, provider, model string) error {
		return fmt.Errorf("%w: providers block unreadable", config.ErrMalformed)
	}

	o.Run(context.Background())

	assert.Equal(t, 1, rec.fatalCount())
	last, _ := rec.lastView()
	assert.Equal(t, view.Chat, last, "fatal path must not bounce to onboarding")
}

func TestNextGenOtherEngineErrorGoesToWelcome(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)
	o.read = storedConfig(map[string]string{"provider": "anthropic", "model": "claude-3.7-sonnet"})
	o.initEngine = func(ctx context.Context, provider, model string) error {
		return errors.New("no credentials configured")
	}

	o.Run(context.Background())

	assert.Zero(t, rec.fatalCount())
	last, ok := rec.lastView()
	require.True(t, ok)
	assert.Equal(t, view.Welcome, last)
}

func TestNextGenMissingIdentifiersGoesToWelcome(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)

	engineCalled := false
	o.initEngine = func(ctx context.Context, provider, model string) error {
		engineCalled = true
		return nil
	}

	o.Run(context.Background())

	assert.False(t, engineCalled)
	last, ok := rec.lastView()
	require.True(t, ok)
	assert.Equal(t, view.Welcome, last)
}

func TestNextGenFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)
	o.read = storedConfig(map[string]string{"provider": "anthropic"})
	o.defaultModel = func(provider string) string { return "claude-3.7-sonnet" }

	var gotProvider, gotModel string
	o.initEngine = func(ctx context.Context, provider, model string) error {
		gotProvider, gotModel = provider, model
		return nil
	}

	o.Run(context.Background())

	assert.Equal(t, "anthropic", gotProvider)
	assert.Equal(t, "claude-3.7-sonnet", gotModel)
}

func TestNextGenConfigInitFailureIsFatalButNotBlank(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV2, rec)
	o.initConfig = func() error { return errors.New("disk exploded") }

	o.Run(context.Background())

	assert.Equal(t, 1, rec.fatalCount())
	last, ok := rec.lastView()
	require.True(t, ok)
	assert.Equal(t, view.Welcome, last)
}

func TestNextGenReenablesNotificationsExactlyOnce(t *testing.T) {
	t.Parallel()

	for name, engineErr := range map[string]error{
		"success": nil,
		"failure": errors.New("boom"),
	} {
		t.Run(name, func(t *testing.T) {
			rec := &recorder{}
			o := testOrchestrator(config.GenerationV2, rec)
			o.read = storedConfig(map[string]string{"provider": "anthropic", "model": "claude-3.7-sonnet"})
			o.initEngine = func(ctx context.Context, provider, model string) error { return engineErr }

			var silences, reenables int
			o.configure = func(opts status.Options) {
				if opts.Silent {
					silences++
				} else {
					reenables++
				}
			}

			o.Run(context.Background())

			assert.Equal(t, 1, silences)
			assert.Equal(t, 1, reenables)
		})
	}
}

func TestLegacyDetectionPicksView(t *testing.T) {
	t.Parallel()

	t.Run("provider present resumes to chat", func(t *testing.T) {
		rec := &recorder{}
		o := testOrchestrator(config.GenerationV1, rec)
		o.read = storedConfig(map[string]string{"provider": "anthropic", "model": "claude-3.7-sonnet"})

		o.Run(context.Background())
		o.Wait()

		last, ok := rec.lastView()
		require.True(t, ok)
		assert.Equal(t, view.Chat, last)
		assert.Zero(t, rec.fatalCount())
	})

	t.Run("no provider shows welcome", func(t *testing.T) {
		rec := &recorder{}
		o := testOrchestrator(config.GenerationV1, rec)

		o.Run(context.Background())
		o.Wait()

		last, ok := rec.lastView()
		require.True(t, ok)
		assert.Equal(t, view.Welcome, last)
	})
}

func TestLegacySetupPersistsDefaultModel(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV1, rec)
	o.read = storedConfig(map[string]string{"provider": "anthropic"})
	o.defaultModel = func(provider string) string { return "claude-3.7-sonnet" }

	var persistedProvider, persistedModel string
	o.persistModel = func(provider, model string) error {
		persistedProvider, persistedModel = provider, model
		return nil
	}

	o.Run(context.Background())
	o.Wait()

	assert.Equal(t, "anthropic", persistedProvider)
	assert.Equal(t, "claude-3.7-sonnet", persistedModel)
	assert.Zero(t, rec.fatalCount())
}

func TestLegacySetupFailureElevatesToFatalWithoutChangingView(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV1, rec)
	o.read = storedConfig(map[string]string{"provider": "anthropic", "model": "claude-3.7-sonnet"})
	o.initEngine = func(ctx context.Context, provider, model string) error {
		return errors.New("engine refused to start")
	}

	o.Run(context.Background())
	o.Wait()

	assert.Equal(t, 1, rec.fatalCount())
	// Setup never transitions views; only Detection's choice is recorded.
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []view.View{view.Chat}, rec.views)
}

// The two legacy procedures run with no ordering guarantee. When they
// disagree, the final view is whichever transition lands last; this test
// documents that as accepted behavior rather than asserting determinism.
func TestLegacyRaceIsLastWriteWins(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	o := testOrchestrator(config.GenerationV1, rec)

	var mu sync.Mutex
	calls := 0
	o.read = func(key string, required bool) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if key == "provider" {
			calls++
			// One procedure observes no provider, the other a full config.
			if calls == 1 {
				return "", nil
			}
			return "anthropic", nil
		}
		return "claude-3.7-sonnet", nil
	}

	o.Run(context.Background())
	o.Wait()

	last, ok := rec.lastView()
	require.True(t, ok)
	assert.Contains(t, []view.View{view.Chat, view.Welcome}, last)
	assert.Zero(t, rec.fatalCount())
}

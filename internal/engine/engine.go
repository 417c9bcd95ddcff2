// Package engine initializes the backend chat engine for a provider/model
// pair and reports its lifecycle over pubsub.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/perchlabs/perch/internal/config"
	"github.com/perchlabs/perch/internal/pubsub"
)

const EventStateChanged pubsub.EventType = "engine_state_changed"

// Status is the engine lifecycle phase.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
)

// State is published on every lifecycle change.
type State struct {
	Status   Status
	Provider Provider
	Model    ModelID
	Error    string
}

// readFunc matches config.Read; injected so tests can run without a
// loaded configuration.
type readFunc func(key string, required bool) (string, error)

// Service initializes and tracks the chat engine.
type Service interface {
	pubsub.Subscriber[State]
	Initialize(ctx context.Context, provider, model string) error
	State() State
}

type service struct {
	broker *pubsub.Broker[State]
	read   readFunc

	mu    sync.RWMutex
	state State
}

var globalEngineService *service

func InitService() error {
	if globalEngineService != nil {
		return fmt.Errorf("engine service already initialized")
	}
	globalEngineService = newService(config.Read)
	return nil
}

func GetService() Service {
	if globalEngineService == nil {
		panic("engine service not initialized. Call engine.InitService() first.")
	}
	return globalEngineService
}

func newService(read readFunc) *service {
	return &service{
		broker: pubsub.NewBroker[State](),
		read:   read,
		state:  State{Status: StatusIdle},
	}
}

// Initialize brings the engine up for the given provider/model pair. A
// provider or model not present in the catalog is an ordinary error; a
// credential key that cannot be read because the stored configuration is
// unusable propagates config.ErrMalformed to the caller.
func (s *service) Initialize(ctx context.Context, provider, model string) error {
	p := Provider(provider)
	m, ok := SupportedModels[ModelID(model)]
	if !ok {
		return s.fail(p, ModelID(model), fmt.Errorf("unknown model %q", model))
	}
	if m.Provider != p {
		return s.fail(p, m.ID, fmt.Errorf("model %q does not belong to provider %q", model, provider))
	}

	s.setState(State{Status: StatusInitializing, Provider: p, Model: m.ID})

	apiKey, err := s.read(fmt.Sprintf("providers.%s.apiKey", provider), false)
	if err != nil {
		return s.fail(p, m.ID, err)
	}
	if p != ProviderMock && apiKey == "" {
		return s.fail(p, m.ID, fmt.Errorf("provider %q has no credentials configured", provider))
	}

	select {
	case <-ctx.Done():
		return s.fail(p, m.ID, ctx.Err())
	default:
	}

	slog.Info("engine initialized", "provider", provider, "model", model)
	s.setState(State{Status: StatusReady, Provider: p, Model: m.ID})
	return nil
}

func (s *service) fail(provider Provider, model ModelID, err error) error {
	s.setState(State{Status: StatusError, Provider: provider, Model: model, Error: err.Error()})
	return err
}

func (s *service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.broker.Publish(EventStateChanged, state)
}

func (s *service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[State] {
	return s.broker.Subscribe(ctx)
}

// Initialize initializes the global engine service.
func Initialize(ctx context.Context, provider, model string) error {
	return GetService().Initialize(ctx, provider, model)
}

// Subscribe delivers engine state changes until ctx is cancelled.
func Subscribe(ctx context.Context) <-chan pubsub.Event[State] {
	return GetService().Subscribe(ctx)
}

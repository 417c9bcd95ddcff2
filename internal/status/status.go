package status

import (
	"sync/atomic"
	"time"

	"github.com/perchlabs/perch/internal/pubsub"
)

// Level represents the severity level of a status message
type Level string

const (
	// LevelInfo represents an informational status message
	LevelInfo Level = "info"
	// LevelWarn represents a warning status message
	LevelWarn Level = "warn"
	// LevelError represents an error status message
	LevelError Level = "error"
	// LevelDebug represents a debug status message
	LevelDebug Level = "debug"
)

// StatusMessage represents a status update to be displayed in the UI
type StatusMessage struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Options controls how the status service behaves.
type Options struct {
	// Silent suppresses all status messages while set. Startup flows use
	// this so transient errors during initialization never surface as
	// notifications.
	Silent bool
}

// Service defines the interface for the status service
type Service interface {
	pubsub.Subscriber[StatusMessage]
	Info(message string)
	Warn(message string)
	Error(message string)
	Debug(message string)
	Configure(opts Options)
}

type service struct {
	*pubsub.Broker[StatusMessage]

	silent atomic.Bool
}

// Configure applies opts to the service. Messages published while silent
// are dropped, not queued.
func (s *service) Configure(opts Options) {
	s.silent.Store(opts.Silent)
}

// Info publishes an info level status message
func (s *service) Info(message string) {
	s.publish(LevelInfo, message)
}

// Warn publishes a warning level status message
func (s *service) Warn(message string) {
	s.publish(LevelWarn, message)
}

// Error publishes an error level status message
func (s *service) Error(message string) {
	s.publish(LevelError, message)
}

// Debug publishes a debug level status message
func (s *service) Debug(message string) {
	s.publish(LevelDebug, message)
}

// publish creates and publishes a status message with the given level and message
func (s *service) publish(level Level, message string) {
	if s.silent.Load() {
		return
	}
	statusMsg := StatusMessage{
		Level:     level,
		Message:   message,
		Timestamp: time.Now(),
	}
	s.Publish(pubsub.EventTypeCreated, statusMsg)
}

// NewService creates a new status service
func NewService() Service {
	broker := pubsub.NewBroker[StatusMessage]()
	return &service{
		Broker: broker,
	}
}

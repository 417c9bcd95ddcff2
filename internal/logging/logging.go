// Package logging bridges slog records into an observable in-process log
// service and provides panic recovery helpers.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perchlabs/perch/internal/pubsub"
)

// Log represents a single log record.
type Log struct {
	ID         string
	Timestamp  time.Time
	Level      string
	Message    string
	Attributes map[string]string
}

const EventLogCreated pubsub.EventType = "log_created"

// retained is how many records the in-memory buffer keeps for the UI.
const retained = 1000

// Service defines the interface for log operations.
type Service interface {
	pubsub.Subscriber[Log]
	Create(ctx context.Context, log Log) error
	ListAll(ctx context.Context, limit int) ([]Log, error)
}

type service struct {
	broker *pubsub.Broker[Log]

	mu      sync.RWMutex
	entries []Log
}

var globalLoggingService *service

func InitService() error {
	if globalLoggingService != nil {
		return fmt.Errorf("logging service already initialized")
	}
	globalLoggingService = &service{
		broker: pubsub.NewBroker[Log](),
	}
	return nil
}

func GetService() Service {
	if globalLoggingService == nil {
		panic("logging service not initialized. Call logging.InitService() first.")
	}
	return globalLoggingService
}

func (s *service) Create(ctx context.Context, log Log) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}
	if log.Level == "" {
		log.Level = "info"
	}

	s.mu.Lock()
	s.entries = append(s.entries, log)
	if len(s.entries) > retained {
		s.entries = s.entries[len(s.entries)-retained:]
	}
	s.mu.Unlock()

	s.broker.Publish(EventLogCreated, log)
	return nil
}

func (s *service) ListAll(ctx context.Context, limit int) ([]Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.entries) {
		limit = len(s.entries)
	}
	out := make([]Log, limit)
	copy(out, s.entries[len(s.entries)-limit:])
	return out, nil
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return s.broker.Subscribe(ctx)
}

func Create(ctx context.Context, log Log) error {
	return GetService().Create(ctx, log)
}

func ListAll(ctx context.Context, limit int) ([]Log, error) {
	return GetService().ListAll(ctx, limit)
}

func Subscribe(ctx context.Context) <-chan pubsub.Event[Log] {
	return GetService().Subscribe(ctx)
}

// RecoverPanic is a common function to handle panics gracefully.
// It logs the error, creates a panic log file with stack trace,
// and executes an optional cleanup function.
func RecoverPanic(name string, cleanup func()) {
	if r := recover(); r != nil {
		errorMsg := fmt.Sprintf("Panic in %s: %v", name, r)
		slog.Error(errorMsg)

		timestamp := time.Now().Format("20060102-150405")
		filename := fmt.Sprintf("perch-panic-%s-%s.log", name, timestamp)

		file, err := os.Create(filename)
		if err != nil {
			slog.Error(fmt.Sprintf("Failed to create panic log file '%s': %v", filename, err))
		} else {
			defer file.Close()
			fmt.Fprintf(file, "Panic in %s: %v\n\n", name, r)
			fmt.Fprintf(file, "Time: %s\n\n", time.Now().Format(time.RFC3339))
			fmt.Fprintf(file, "Stack Trace:\n%s\n", string(debug.Stack()))
			slog.Info(fmt.Sprintf("Panic details written to %s", filename))
		}

		if cleanup != nil {
			cleanup()
		}
	}
}

// Package session stores chat sessions on disk and fetches shared
// transcripts from the share service.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/perchlabs/perch/internal/pubsub"
)

// Session is one chat conversation.
type Session struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Provider     string `json:"provider,omitempty"`
	Model        string `json:"model,omitempty"`
	MessageCount int64  `json:"messageCount"`
	ShareToken   string `json:"shareToken,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

const (
	EventSessionCreated pubsub.EventType = "session_created"
	EventSessionUpdated pubsub.EventType = "session_updated"
	EventSessionDeleted pubsub.EventType = "session_deleted"
)

type Service interface {
	pubsub.Subscriber[Session]

	Create(ctx context.Context, title string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	List(ctx context.Context) ([]Session, error)
	Update(ctx context.Context, session Session) (Session, error)
	Delete(ctx context.Context, id string) error
}

type service struct {
	dir    string
	broker *pubsub.Broker[Session]
	mu     sync.RWMutex
}

var globalSessionService *service

// InitService initializes the global session service backed by JSON files
// under dir, one file per session.
func InitService(dir string) error {
	if globalSessionService != nil {
		return fmt.Errorf("session service already initialized")
	}
	sessionsDir := filepath.Join(dir, "sessions")
	if err := os.MkdirAll(sessionsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}
	globalSessionService = &service{
		dir:    sessionsDir,
		broker: pubsub.NewBroker[Session](),
	}
	return nil
}

func GetService() Service {
	if globalSessionService == nil {
		panic("session service not initialized. Call session.InitService() first.")
	}
	return globalSessionService
}

func (s *service) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *service) write(sess Session) error {
	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := os.WriteFile(s.path(sess.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (s *service) Create(ctx context.Context, title string) (Session, error) {
	now := time.Now().Unix()
	sess := Session{
		ID:        uuid.New().String(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	err := s.write(sess)
	s.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	s.broker.Publish(EventSessionCreated, sess)
	return sess, nil
}

func (s *service) Get(ctx context.Context, id string) (Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return Session{}, fmt.Errorf("failed to read session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("failed to parse session %s: %w", id, err)
	}
	return sess, nil
}

func (s *service) List(ctx context.Context) ([]Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	// Each session is its own file; read them concurrently. Files that
	// disappear mid-read or fail to parse are skipped, not fatal.
	var sessionsMu sync.Mutex
	var sessions []Session
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		name := entry.Name()
		g.Go(func() error {
			data, err := os.ReadFile(filepath.Join(s.dir, name))
			if err != nil {
				return nil
			}
			var sess Session
			if err := json.Unmarshal(data, &sess); err != nil {
				return nil
			}
			sessionsMu.Lock()
			sessions = append(sessions, sess)
			sessionsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Most recently touched first.
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt > sessions[j].UpdatedAt
	})
	return sessions, nil
}

func (s *service) Update(ctx context.Context, sess Session) (Session, error) {
	if sess.ID == "" {
		return Session{}, fmt.Errorf("cannot update session without an id")
	}
	sess.UpdatedAt = time.Now().Unix()

	s.mu.Lock()
	err := s.write(sess)
	s.mu.Unlock()
	if err != nil {
		return Session{}, err
	}

	s.broker.Publish(EventSessionUpdated, sess)
	return sess, nil
}

func (s *service) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	err = os.Remove(s.path(id))
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}

	s.broker.Publish(EventSessionDeleted, sess)
	return nil
}

func (s *service) Subscribe(ctx context.Context) <-chan pubsub.Event[Session] {
	return s.broker.Subscribe(ctx)
}

func Create(ctx context.Context, title string) (Session, error) {
	return GetService().Create(ctx, title)
}

func Get(ctx context.Context, id string) (Session, error) {
	return GetService().Get(ctx, id)
}

func List(ctx context.Context) ([]Session, error) {
	return GetService().List(ctx)
}

func Update(ctx context.Context, sess Session) (Session, error) {
	return GetService().Update(ctx, sess)
}

func Delete(ctx context.Context, id string) error {
	return GetService().Delete(ctx, id)
}

func Subscribe(ctx context.Context) <-chan pubsub.Event[Session] {
	return GetService().Subscribe(ctx)
}

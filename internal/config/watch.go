package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/perchlabs/perch/internal/pubsub"
)

const EventConfigChanged pubsub.EventType = "config_changed"

// ChangeEvent reports that the config file on disk was modified outside of
// this process (or by another window).
type ChangeEvent struct {
	Path string
}

var watchBroker = pubsub.NewBroker[ChangeEvent]()

// SubscribeChanges delivers config-file change events until ctx is cancelled.
func SubscribeChanges(ctx context.Context) <-chan pubsub.Event[ChangeEvent] {
	return watchBroker.Subscribe(ctx)
}

// Watch starts watching the config file for writes and publishes a
// ChangeEvent for each one. It returns immediately; the watcher stops when
// ctx is cancelled. A missing config file is not an error: there is simply
// nothing to watch yet.
func Watch(ctx context.Context) error {
	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		slog.Debug("no config file in use, skipping watcher")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory rather than the file so editors that replace the
	// file on save (rename + create) keep being observed.
	if err := watcher.Add(filepath.Dir(configFile)); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Name != configFile {
					continue
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					slog.Debug("config file changed", "path", event.Name)
					watchBroker.Publish(EventConfigChanged, ChangeEvent{Path: event.Name})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)
			}
		}
	}()

	return nil
}

package app

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/perchlabs/perch/internal/config"
)

// Category is the recovery path an error takes. Only CategoryFatal is
// allowed to reach the window's top-level error screen; everything else is
// handled where it occurs.
type Category int

const (
	CategoryNone Category = iota
	// CategoryFatal ends the window session: corrupted configuration,
	// malformed-configuration failures during engine init, host readiness
	// failures.
	CategoryFatal
	// CategoryOnboarding redirects to the welcome screen: missing or
	// fixable provider/model setup.
	CategoryOnboarding
	// CategoryLogged is recorded and otherwise ignored: untrusted input
	// that failed to parse, handler-level hiccups.
	CategoryLogged
)

// Classify routes an initialization error. Malformed configuration is the
// only unrecoverable condition; anything else is assumed to be a setup
// issue onboarding can fix.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, config.ErrMalformed):
		return CategoryFatal
	default:
		return CategoryOnboarding
	}
}

// Handle runs a handler body and logs any failure without letting it
// escape. Handlers for untrusted external input go through this so a bad
// deep link can never take the window down.
func Handle(name string, fn func() error) {
	if err := fn(); err != nil {
		slog.Error("handler failed", "handler", name, "error", err)
	}
}

// Protect runs fn and converts a panic into a call to onEscape. It guards
// collaborators that claim to handle their own errors, so an escape
// degrades to a safe view instead of crashing the window.
func Protect(name string, onEscape func(), fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected escape", "handler", name, "panic", fmt.Sprint(r))
			if onEscape != nil {
				onEscape()
			}
		}
	}()
	fn()
}

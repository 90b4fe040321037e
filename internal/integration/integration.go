// Package integration runs build-lifecycle participants. An Integration has a
// stable name and handlers keyed by lifecycle event; the Runner invokes them in
// registration order and stops at the first failure.
package integration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/sitekit/internal/config"
	"git.home.luguber.info/inful/sitekit/internal/logfields"
)

// Event names a point in the build lifecycle.
type Event string

// EventConfigSetup fires once per build before any phase that consumes
// generated assets.
const EventConfigSetup Event = "config:setup"

// HookContext is what a handler receives. Logger offers at least Info-level
// output; Config is the process configuration.
type HookContext struct {
	Logger *slog.Logger
	Config *config.Config
}

// Handler is invoked for one lifecycle event. A returned error aborts the build.
type Handler func(ctx context.Context, hc HookContext) error

// Integration is a named build-lifecycle participant.
type Integration struct {
	Name  string
	Hooks map[Event]Handler
}

// Runner dispatches lifecycle events to registered integrations.
type Runner struct {
	logger       *slog.Logger
	integrations []Integration
}

// NewRunner creates a runner. A nil logger falls back to slog.Default().
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Register adds an integration. Names must be non-empty and unique.
func (r *Runner) Register(in Integration) error {
	if in.Name == "" {
		return errors.New("integration name is required")
	}
	for _, existing := range r.integrations {
		if existing.Name == in.Name {
			return fmt.Errorf("integration %q already registered", in.Name)
		}
	}
	r.integrations = append(r.integrations, in)
	return nil
}

// Names returns the registered integration names in registration order.
func (r *Runner) Names() []string {
	out := make([]string, 0, len(r.integrations))
	for _, in := range r.integrations {
		out = append(out, in.Name)
	}
	return out
}

// Dispatch runs every handler registered for event, synchronously and in
// order. The first error is returned wrapped with the integration name and
// remaining handlers are not invoked.
func (r *Runner) Dispatch(ctx context.Context, event Event, cfg *config.Config) error {
	for _, in := range r.integrations {
		h, ok := in.Hooks[event]
		if !ok || h == nil {
			continue
		}
		logger := r.logger.With(logfields.Hook(in.Name), logfields.Event(string(event)))
		start := time.Now()
		if err := h(ctx, HookContext{Logger: logger, Config: cfg}); err != nil {
			logger.Error("Integration hook failed", logfields.Error(err))
			return fmt.Errorf("integration %q on %s: %w", in.Name, event, err)
		}
		logger.Debug("Integration hook completed", logfields.DurationMS(float64(time.Since(start).Milliseconds())))
	}
	return nil
}

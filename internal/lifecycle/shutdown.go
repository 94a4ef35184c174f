// Package lifecycle coordinates ordered teardown of the client's
// components when the process receives a stop signal.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Shutdown runs registered hooks in reverse registration order, so
// components stop before the stores and connections they depend on.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named shutdown hook. Hooks registered later run
// earlier.
func (s *Shutdown) Register(name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Fn: fn})
}

// Execute runs the hooks sequentially in reverse registration order. A
// failed hook is reported but does not stop the remaining ones; the
// combined failures come back as a single error.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	var failures []string
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]

		s.log.Info("running shutdown hook", slog.String("hook", hook.Name))
		if err := hook.Fn(ctx); err != nil {
			s.log.Error("shutdown hook failed", slog.String("hook", hook.Name), slog.Any("error", err))
			failures = append(failures, fmt.Sprintf("%s: %v", hook.Name, err))
			continue
		}

		s.log.Info("shutdown hook completed", slog.String("hook", hook.Name))
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	if len(failures) > 0 {
		return errors.New(strings.Join(failures, "; "))
	}

	return nil
}

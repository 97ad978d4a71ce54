// Package watch polls execution history on a fixed interval and emits
// logs not yet seen. It backs the `area logs --follow` command.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/areactl/internal/resources"
	"github.com/user/areactl/pkg/api"
)

// Handler receives each newly observed execution log, oldest first.
type Handler func(api.ExecutionLog)

// Watcher polls one area's history, or the full collection when areaID is
// empty. Poll failures are logged and polling continues; a hung backend
// simply stalls the current tick.
type Watcher struct {
	store    *resources.AreaStore
	areaID   string
	interval time.Duration
	handler  Handler
	seen     map[string]bool
}

// New creates a Watcher. interval must be positive.
func New(store *resources.AreaStore, areaID string, interval time.Duration, handler Handler) *Watcher {
	return &Watcher{
		store:    store,
		areaID:   areaID,
		interval: interval,
		handler:  handler,
		seen:     make(map[string]bool),
	}
}

// Prime marks logs as already seen so Run only emits what appears after
// them. Callers typically print the current history themselves, then
// prime the watcher with it.
func (w *Watcher) Prime(logs []api.ExecutionLog) {
	for _, l := range logs {
		w.seen[l.ID] = true
	}
}

// Run polls until ctx is cancelled. Returns ctx.Err on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.poll(ctx)
		}
	}
}

func (w *Watcher) poll(ctx context.Context) {
	logs, err := w.store.Logs(ctx, w.areaID)
	if err != nil {
		slog.Warn("log poll failed", "error", err)
		return
	}
	for _, l := range logs {
		if w.seen[l.ID] {
			continue
		}
		w.seen[l.ID] = true
		w.handler(l)
	}
}

package store

import (
	"context"
	"sync"

	"github.com/mxprobe/mxprobe/internal/core"
)

// RunSink persists checkpoints of one run. Each checkpoint carries every
// result so far in completion order, so only the tail not yet saved is
// written.
type RunSink struct {
	Store *Store
	RunID string

	mu    sync.Mutex
	saved int
}

// Persist saves results that earlier checkpoints have not covered.
func (r *RunSink) Persist(ctx context.Context, results []*core.CheckResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := r.saved
	if start > len(results) {
		start = 0
	}
	if err := r.Store.SaveResults(ctx, r.RunID, results[start:]); err != nil {
		return err
	}
	r.saved = len(results)
	return nil
}

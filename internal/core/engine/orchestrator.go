package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mxprobe/mxprobe/internal/core"
	"github.com/mxprobe/mxprobe/internal/metrics"
	"github.com/mxprobe/mxprobe/internal/observability"
)

// Batch defaults.
const (
	DefaultConcurrency     = 5
	DefaultCheckpointEvery = 100
)

// Validator verifies a single address. It always returns a result.
type Validator interface {
	Validate(ctx context.Context, address string) *core.CheckResult
}

// Checkpointer persists the results accumulated so far.
type Checkpointer interface {
	Persist(ctx context.Context, results []*core.CheckResult) error
}

// CheckpointFunc adapts a function to Checkpointer.
type CheckpointFunc func(ctx context.Context, results []*core.CheckResult) error

// Persist calls f.
func (f CheckpointFunc) Persist(ctx context.Context, results []*core.CheckResult) error {
	return f(ctx, results)
}

// BatchOptions controls one Run.
type BatchOptions struct {
	Concurrency     int
	CheckpointEvery int

	// OnResult receives every result in completion order. Calls are never
	// concurrent.
	OnResult func(*core.CheckResult)

	// Checkpoint is optional.
	Checkpoint Checkpointer
}

// Orchestrator runs a validator over a batch of addresses.
type Orchestrator struct {
	Validator Validator
	Clock     func() time.Time
}

type batchJob struct {
	index   int
	address string
}

// Run validates every address with a bounded worker pool. Results are handed
// to OnResult as they complete and checkpointed every CheckpointEvery
// results plus once at the end. There is no batch-level cancellation: every
// address produces a result before Run returns.
//
// Intermediate checkpoint failures are logged and the batch continues. A
// failed final checkpoint is returned together with the complete summary.
func (o *Orchestrator) Run(ctx context.Context, addresses []string, opts BatchOptions) (*core.BatchSummary, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o == nil || o.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}

	runID := observability.RunID(ctx)
	if runID == "" {
		runID = observability.NewRunID()
		ctx = observability.WithRunID(ctx, runID)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if concurrency > len(addresses) {
		concurrency = len(addresses)
	}
	every := opts.CheckpointEvery
	if every <= 0 {
		every = DefaultCheckpointEvery
	}

	summary := &core.BatchSummary{
		RunID:     runID,
		Total:     len(addresses),
		StartedAt: o.now(),
	}

	jobs := make(chan batchJob)
	completed := make(chan *core.CheckResult)

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for job := range jobs {
			completed <- o.validate(ctx, job)
		}
	}
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}

	go func() {
		for i, address := range addresses {
			jobs <- batchJob{index: i, address: address}
		}
		close(jobs)
		wg.Wait()
		close(completed)
	}()

	accumulated := make([]*core.CheckResult, 0, len(addresses))
	for result := range completed {
		accumulated = append(accumulated, result)
		if result.OverallValid {
			summary.Valid++
		} else {
			summary.Invalid++
		}
		metrics.RecordValidation(result.Outcome(), string(result.FailureKind), time.Duration(result.ElapsedMillis)*time.Millisecond)

		if opts.OnResult != nil {
			opts.OnResult(result)
		}

		if len(accumulated)%every == 0 {
			if err := o.checkpoint(ctx, opts.Checkpoint, accumulated, summary); err != nil {
				logCheckpointFailure(runID, len(accumulated), err)
			}
		}
	}

	finalErr := o.checkpoint(ctx, opts.Checkpoint, accumulated, summary)

	summary.FinishedAt = o.now()
	summary.ElapsedSeconds = summary.FinishedAt.Sub(summary.StartedAt).Seconds()
	if finalErr != nil {
		return summary, fmt.Errorf("final checkpoint failed: %w", finalErr)
	}
	return summary, nil
}

// validate runs one job and converts panics and nil results into internal
// failures.
func (o *Orchestrator) validate(ctx context.Context, job batchJob) (result *core.CheckResult) {
	started := o.now()
	defer func() {
		if recovered := recover(); recovered != nil {
			metrics.RecordPanic()
			result = o.internalResult(job, started, fmt.Sprintf("%v", recovered))
		}
	}()

	validated := o.Validator.Validate(ctx, job.address)
	if validated == nil {
		return o.internalResult(job, started, "validator returned no result")
	}

	out := *validated
	out.Index = job.index
	return &out
}

func (o *Orchestrator) internalResult(job batchJob, started time.Time, detail string) *core.CheckResult {
	now := o.now()
	elapsed := now.Sub(started).Milliseconds()
	if elapsed < 0 {
		elapsed = 0
	}
	return &core.CheckResult{
		Index:         job.index,
		Address:       job.address,
		FailureKind:   core.FailureInternal,
		FailureReason: core.ReasonInternal + detail,
		ElapsedMillis: elapsed,
		CheckedAt:     now,
	}
}

func (o *Orchestrator) checkpoint(ctx context.Context, sink Checkpointer, results []*core.CheckResult, summary *core.BatchSummary) error {
	if sink == nil {
		return nil
	}
	summary.Checkpoints++

	snapshot := make([]*core.CheckResult, len(results))
	copy(snapshot, results)

	err := sink.Persist(ctx, snapshot)
	metrics.RecordCheckpoint(err == nil)
	return err
}

func logCheckpointFailure(runID string, completed int, err error) {
	if observability.CLILogger == nil {
		return
	}
	observability.CLILogger.Warn("Checkpoint failed, continuing batch",
		zap.String("run_id", runID),
		zap.Int("completed", completed),
		zap.Error(err))
}

func (o *Orchestrator) now() time.Time {
	if o != nil && o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"supplyguard/internal/bootstrap/logging"
	"supplyguard/internal/domain/risk"
	"supplyguard/internal/errs"
)

const defaultWorkers = 4

// Envelope is a classified event together with where it came from.
type Envelope struct {
	Source string
	Event  risk.ClassifiedEvent
}

type RunStats struct {
	Processed int64 `json:"processed"`
	Failed    int64 `json:"failed"`
}

// Runner drains envelopes with a fixed pool of workers. One event failing is
// logged and counted; it never stops the pool.
type Runner struct {
	pipeline *Pipeline
	workers  int
	onResult func(Envelope, Outcome, error)
}

func NewRunner(pipeline *Pipeline, workers int) *Runner {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Runner{pipeline: pipeline, workers: workers}
}

// OnResult registers a callback invoked after every processed envelope.
func (r *Runner) OnResult(fn func(Envelope, Outcome, error)) {
	r.onResult = fn
}

// Run returns when in is closed and drained, or when ctx ends.
func (r *Runner) Run(ctx context.Context, in <-chan Envelope) (RunStats, error) {
	if ctx == nil {
		return RunStats{}, errors.New("context is required")
	}
	if r.pipeline == nil {
		return RunStats{}, errors.New("pipeline is required")
	}

	logCtx := logging.WithComponent(ctx, "usecase.pipeline.runner")
	var processed, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return nil
				case envelope, ok := <-in:
					if !ok {
						return nil
					}
					if envelope.Event.SourceReference == "" {
						envelope.Event.SourceReference = envelope.Source
					}

					outcome, err := r.pipeline.Process(gctx, envelope.Event)
					processed.Add(1)
					if err != nil {
						failed.Add(1)
						logging.Warn(logCtx, "event failed", slog.String("source", envelope.Source), slog.Any("err", errs.Loggable(err)))
					}
					if r.onResult != nil {
						r.onResult(envelope, outcome, err)
					}
				}
			}
		})
	}

	_ = g.Wait()
	stats := RunStats{Processed: processed.Load(), Failed: failed.Load()}
	logging.Info(logCtx, "runner stopped", slog.Int64("processed", stats.Processed), slog.Int64("failed", stats.Failed))
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return stats, errs.Wrap(err, "run pipeline")
	}
	return stats, nil
}

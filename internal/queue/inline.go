package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/BilalEnesS/doc-panel/internal/pipeline"
	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// RunFunc processes one document.
type RunFunc func(ctx context.Context, documentID int64) error

// InlineDispatcher runs the pipeline on a goroutine inside the calling
// process and tracks in-flight runs for shutdown.
type InlineDispatcher struct {
	run RunFunc

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewInlineDispatcher returns a dispatcher that calls run per document.
func NewInlineDispatcher(run RunFunc) *InlineDispatcher {
	return &InlineDispatcher{run: run}
}

// Dispatch starts the run and returns immediately. The run gets a context
// detached from ctx that keeps only the request id.
func (d *InlineDispatcher) Dispatch(ctx context.Context, documentID int64) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.wg.Add(1)
	d.mu.Unlock()

	runCtx := pipeline.BackgroundWithRequestID(ctx)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				metrics.IncQueueJob("panicked")
				telemetry.Error("worker.document.panic", map[string]any{
					"request_id":  pipeline.RequestIDFromContext(runCtx),
					"document_id": documentID,
					"error":       fmt.Sprint(rec),
				})
			}
		}()
		if err := d.run(runCtx, documentID); err != nil {
			metrics.IncQueueJob("failed")
			telemetry.Error("worker.document.failed", map[string]any{
				"request_id":  pipeline.RequestIDFromContext(runCtx),
				"document_id": documentID,
				"error":       err.Error(),
			})
			return
		}
		metrics.IncQueueJob("completed")
	}()
	return nil
}

// Wait stops accepting new work and blocks until in-flight runs finish or
// ctx is done.
func (d *InlineDispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

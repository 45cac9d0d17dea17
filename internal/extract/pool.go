package extract

import (
	"context"
	"fmt"
	"runtime"
)

// Pool runs extraction jobs on a bounded set of goroutines so CPU-heavy OCR
// never executes on a caller's goroutine.
type Pool struct {
	inner TextExtractor
	sem   chan struct{}
}

// NewPool wraps inner with at most workers concurrent jobs.
func NewPool(inner TextExtractor, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{inner: inner, sem: make(chan struct{}, workers)}
}

type poolResult struct {
	text string
	err  error
}

// Extract waits for a free slot, then runs the job on its own goroutine.
func (p *Pool) Extract(ctx context.Context, data []byte, kind Kind, language string) (string, error) {
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	done := make(chan poolResult, 1)
	go func() {
		defer func() { <-p.sem }()
		defer func() {
			if rec := recover(); rec != nil {
				done <- poolResult{err: newExtractionError(kind, fmt.Errorf("panic: %v", rec))}
			}
		}()
		text, err := p.inner.Extract(ctx, data, kind, language)
		done <- poolResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		return res.text, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var _ TextExtractor = (*Pool)(nil)

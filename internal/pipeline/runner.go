package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/BilalEnesS/doc-panel/internal/documents"
	"github.com/BilalEnesS/doc-panel/internal/extract"
	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/storage/object"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// Embedder is the embedding capability the pipeline depends on.
type Embedder interface {
	Available() bool
	Embed(ctx context.Context, text string) []float32
}

// Runner drives one document through extraction and embedding to a
// terminal status.
type Runner struct {
	Docs      documents.Repo
	Store     object.ObjectStore
	Extractor extract.TextExtractor
	Embedder  Embedder
	Language  string

	locks *keyedMutex
}

// NewRunner constructs a Runner.
func NewRunner(docs documents.Repo, store object.ObjectStore, extractor extract.TextExtractor, embedder Embedder, language string) *Runner {
	return &Runner{
		Docs:      docs,
		Store:     store,
		Extractor: extractor,
		Embedder:  embedder,
		Language:  language,
		locks:     newKeyedMutex(),
	}
}

// Run processes documentID. Runs for the same ID are serialized. It returns
// an error only when the terminal status could not be persisted, so a queue
// consumer can retry.
func (r *Runner) Run(ctx context.Context, documentID int64) (err error) {
	if r.locks == nil {
		r.locks = newKeyedMutex()
	}
	unlock := r.locks.Lock(documentID)
	defer unlock()

	ctx = BackgroundWithRequestID(ctx)
	startedAt := time.Now().UTC()

	var doc documents.Document
	defer func() {
		rec := recover()
		if rec == nil {
			return
		}
		if doc.ID == 0 {
			err = fmt.Errorf("panic loading document %d: %v", documentID, rec)
			telemetry.Error("document.load_panic", map[string]any{
				"request_id":  RequestIDFromContext(ctx),
				"document_id": documentID,
				"error":       err.Error(),
			})
			return
		}
		err = r.fail(ctx, doc, fmt.Errorf("panic: %v", rec), startedAt)
	}()

	doc, err = r.Docs.GetByID(ctx, documentID)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			telemetry.Warn("document.missing", map[string]any{
				"request_id":  RequestIDFromContext(ctx),
				"document_id": documentID,
			})
			return nil
		}
		return fmt.Errorf("load document %d: %w", documentID, err)
	}

	if err := r.Docs.UpdateStatus(ctx, doc.ID, documents.StatusProcessing); err != nil {
		return r.fail(ctx, doc, fmt.Errorf("set processing failed: %w", err), startedAt)
	}
	r.logStatus(ctx, doc, documents.StatusProcessing, string(doc.Status)+"->processing", nil)

	data, err := r.load(ctx, doc.FilePath)
	if err != nil {
		return r.fail(ctx, doc, err, startedAt)
	}

	text, err := r.Extractor.Extract(ctx, data, kindFor(doc.FileType), r.Language)
	if err != nil {
		return r.fail(ctx, doc, err, startedAt)
	}
	if extract.IsNoText(text) {
		telemetry.Info("document.no_text", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"file_type":   doc.FileType,
			"result":      text,
		})
	}

	var vec []float32
	if r.Embedder != nil && r.Embedder.Available() {
		vec = r.Embedder.Embed(ctx, doc.Title+"\n\n"+text)
	}

	if err := r.Docs.Complete(ctx, doc.ID, text, vec); err != nil {
		return r.fail(ctx, doc, fmt.Errorf("set completed failed: %w", err), startedAt)
	}

	elapsed := time.Since(startedAt)
	metrics.IncPipelineCompleted()
	metrics.ObservePipelineDuration(elapsed)
	r.logStatus(ctx, doc, documents.StatusCompleted, "processing->completed", map[string]any{
		"duration_ms":   float64(elapsed.Microseconds()) / 1000.0,
		"text_length":   len(text),
		"has_embedding": len(vec) > 0,
	})
	return nil
}

func (r *Runner) load(ctx context.Context, path string) ([]byte, error) {
	body, err := r.Store.Open(ctx, path)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) || errors.Is(err, object.ErrInvalidKey) {
			return nil, errFileMissing{path: path}
		}
		return nil, fmt.Errorf("storage open %s: %w", path, err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("storage read %s: %w", path, err)
	}
	return data, nil
}

// fail persists the failed status on a fresh context so a cancelled run
// still reaches a terminal state.
func (r *Runner) fail(ctx context.Context, doc documents.Document, cause error, startedAt time.Time) error {
	code, retryable := classifyFailure(cause)
	msg := sanitizeError(cause)
	elapsed := time.Since(startedAt)

	failCtx := WithRequestID(context.Background(), RequestIDFromContext(ctx))
	if updateErr := r.Docs.Fail(failCtx, doc.ID, msg); updateErr != nil {
		telemetry.Error("document.fail_update_failed", map[string]any{
			"request_id":  RequestIDFromContext(ctx),
			"document_id": doc.ID,
			"error":       updateErr.Error(),
			"cause":       msg,
		})
		return fmt.Errorf("persist failure for document %d: %w", doc.ID, updateErr)
	}

	metrics.IncPipelineFailed()
	metrics.ObservePipelineDuration(elapsed)
	r.logStatus(ctx, doc, documents.StatusFailed, "processing->failed", map[string]any{
		"duration_ms":   float64(elapsed.Microseconds()) / 1000.0,
		"error_code":    code,
		"retryable":     retryable,
		"error_message": msg,
	})
	return nil
}

func (r *Runner) logStatus(ctx context.Context, doc documents.Document, status documents.Status, transition string, extra map[string]any) {
	fields := map[string]any{
		"request_id":        RequestIDFromContext(ctx),
		"user_id":           doc.UserID,
		"document_id":       doc.ID,
		"status":            status,
		"status_transition": transition,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if status == documents.StatusFailed {
		telemetry.Warn("document.status", fields)
		return
	}
	telemetry.Info("document.status", fields)
}

func kindFor(t documents.FileType) extract.Kind {
	switch t {
	case documents.FileTypePDF:
		return extract.KindPDF
	case documents.FileTypeImage:
		return extract.KindImage
	case documents.FileTypeDOCX:
		return extract.KindDOCX
	}
	return extract.Kind(t)
}

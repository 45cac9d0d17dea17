package search

import (
	"context"
	"strings"
	"time"

	"github.com/BilalEnesS/doc-panel/internal/documents"
	"github.com/BilalEnesS/doc-panel/internal/pipeline"
	"github.com/BilalEnesS/doc-panel/internal/shared/metrics"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

const (
	DefaultLimit     = 10
	DefaultThreshold = 0.7
)

// NeighborStore is the part of the document store search needs.
type NeighborStore interface {
	NearestNeighbors(ctx context.Context, ownerID int64, vector []float32, limit int, minSimilarity float64) ([]documents.SearchResult, error)
	VectorSearchAvailable(ctx context.Context) bool
}

// Engine answers natural-language queries with the caller's most similar
// documents.
type Engine struct {
	Docs     NeighborStore
	Embedder pipeline.Embedder
	History  HistoryRepo
}

func NewEngine(docs NeighborStore, embedder pipeline.Embedder, history HistoryRepo) *Engine {
	return &Engine{Docs: docs, Embedder: embedder, History: history}
}

// Search embeds query and returns at most limit documents with similarity
// of at least threshold. A non-positive limit or a negative threshold
// selects the default; a threshold of 0 is honored. Without an embedding
// backend the result is empty, not an error.
func (e *Engine) Search(ctx context.Context, ownerID int64, query string, limit int, threshold float64) ([]documents.SearchResult, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if threshold < 0 {
		threshold = DefaultThreshold
	}
	query = strings.TrimSpace(query)
	empty := []documents.SearchResult{}
	if query == "" {
		return empty, nil
	}
	if e.Embedder == nil || !e.Embedder.Available() {
		metrics.IncSearch("empty")
		telemetry.Info("search.executed", e.fields(ctx, ownerID, query, "embedding_unavailable", 0, 0))
		return empty, nil
	}

	startedAt := time.Now()
	vec := e.Embedder.Embed(ctx, query)
	if vec == nil {
		metrics.IncSearch("empty")
		telemetry.Info("search.executed", e.fields(ctx, ownerID, query, "no_embedding", 0, time.Since(startedAt)))
		return empty, nil
	}

	results, err := e.Docs.NearestNeighbors(ctx, ownerID, vec, limit, threshold)
	if err != nil {
		metrics.IncSearch("failed")
		return nil, err
	}
	if results == nil {
		results = empty
	}

	outcome := "ranked"
	if len(results) > 0 && !results[0].Ranked {
		outcome = "fallback"
	}
	if len(results) == 0 {
		outcome = "empty"
	}
	metrics.IncSearch(outcome)
	telemetry.Info("search.executed", e.fields(ctx, ownerID, query, outcome, len(results), time.Since(startedAt)))

	e.record(ctx, ownerID, query, len(results))
	return results, nil
}

// VectorSearchAvailable reports whether results will be truly ranked.
func (e *Engine) VectorSearchAvailable(ctx context.Context) bool {
	if e.Embedder == nil || !e.Embedder.Available() || e.Docs == nil {
		return false
	}
	return e.Docs.VectorSearchAvailable(ctx)
}

// RecentHistory lists the caller's past searches, newest first.
func (e *Engine) RecentHistory(ctx context.Context, ownerID int64, limit int) ([]HistoryEntry, error) {
	if e.History == nil {
		return []HistoryEntry{}, nil
	}
	return e.History.List(ctx, ownerID, limit)
}

func (e *Engine) record(ctx context.Context, ownerID int64, query string, count int) {
	if e.History == nil {
		return
	}
	err := e.History.Record(ctx, HistoryEntry{UserID: ownerID, Query: query, ResultsCount: count})
	if err != nil {
		telemetry.Warn("search.history_failed", map[string]any{
			"request_id": pipeline.RequestIDFromContext(ctx),
			"user_id":    ownerID,
			"error":      err.Error(),
		})
	}
}

func (e *Engine) fields(ctx context.Context, ownerID int64, query, outcome string, count int, elapsed time.Duration) map[string]any {
	return map[string]any{
		"request_id":    pipeline.RequestIDFromContext(ctx),
		"user_id":       ownerID,
		"query_chars":   len(query),
		"outcome":       outcome,
		"results_count": count,
		"duration_ms":   float64(elapsed.Microseconds()) / 1000.0,
	}
}

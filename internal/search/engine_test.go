package search

import (
	"context"
	"errors"
	"testing"

	"github.com/BilalEnesS/doc-panel/internal/documents"
)

type fakeEmbedder struct {
	available bool
	vec       []float32
	calls     int
}

func (f *fakeEmbedder) Available() bool { return f.available }

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 {
	f.calls++
	return f.vec
}

type countingStore struct {
	documents.Repo
	calls int
}

func (s *countingStore) NearestNeighbors(ctx context.Context, ownerID int64, vector []float32, limit int, minSimilarity float64) ([]documents.SearchResult, error) {
	s.calls++
	return s.Repo.NearestNeighbors(ctx, ownerID, vector, limit, minSimilarity)
}

type failingHistory struct{}

func (failingHistory) Record(context.Context, HistoryEntry) error { return errors.New("db down") }
func (failingHistory) List(context.Context, int64, int) ([]HistoryEntry, error) {
	return nil, errors.New("db down")
}

func seedCompleted(t *testing.T, repo *documents.MemoryRepo, owner int64, title string, vec []float32) {
	t.Helper()
	doc, err := repo.Create(context.Background(), documents.Document{UserID: owner, Title: title, Status: documents.StatusProcessing})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.Complete(context.Background(), doc.ID, "text of "+title, vec); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}

func TestSearchUnavailableBackendReturnsEmptyWithoutStoreCall(t *testing.T) {
	store := &countingStore{Repo: documents.NewMemoryRepo()}
	history := NewMemoryHistory()
	for _, emb := range []*fakeEmbedder{{available: false, vec: []float32{1}}, {available: true}} {
		engine := NewEngine(store, emb, history)
		results, err := engine.Search(context.Background(), 1, "invoice", 10, 0.7)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if results == nil || len(results) != 0 {
			t.Fatalf("expected empty non-nil results, got %#v", results)
		}
	}
	if store.calls != 0 {
		t.Fatalf("store should not be queried, got %d calls", store.calls)
	}
	if items, _ := history.List(context.Background(), 1, 0); len(items) != 0 {
		t.Fatalf("searches that never ran should not be recorded")
	}
}

func TestSearchRanksAndRecordsHistory(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedCompleted(t, repo, 1, "invoice", []float32{1, 0})
	seedCompleted(t, repo, 1, "contract", []float32{0, 1})
	seedCompleted(t, repo, 2, "foreign invoice", []float32{1, 0})
	history := NewMemoryHistory()
	engine := NewEngine(repo, &fakeEmbedder{available: true, vec: []float32{1, 0}}, history)

	results, err := engine.Search(context.Background(), 1, "  invoice ", 0, -1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Document.Title != "invoice" || !results[0].Ranked {
		t.Fatalf("unexpected results %+v", results)
	}

	items, _ := history.List(context.Background(), 1, 0)
	if len(items) != 1 || items[0].Query != "invoice" || items[0].ResultsCount != 1 {
		t.Fatalf("unexpected history %+v", items)
	}
	if !engine.VectorSearchAvailable(context.Background()) {
		t.Fatalf("memory store should report vector search")
	}
}

func TestSearchThresholdExcludesWeakMatches(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedCompleted(t, repo, 1, "weak", []float32{0.6, 0.8})
	engine := NewEngine(repo, &fakeEmbedder{available: true, vec: []float32{1, 0}}, nil)

	results, err := engine.Search(context.Background(), 1, "q", 10, 0.9)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected no results, got %+v", results)
	}
}

type recordingStore struct {
	limit         int
	minSimilarity float64
}

func (s *recordingStore) NearestNeighbors(ctx context.Context, ownerID int64, vector []float32, limit int, minSimilarity float64) ([]documents.SearchResult, error) {
	s.limit, s.minSimilarity = limit, minSimilarity
	return nil, nil
}

func (s *recordingStore) VectorSearchAvailable(context.Context) bool { return true }

func TestSearchThresholdDefaults(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		threshold float64
		wantLimit int
		wantMin   float64
	}{
		{name: "zero threshold is honored", limit: 5, threshold: 0, wantLimit: 5, wantMin: 0},
		{name: "negative threshold uses default", limit: 5, threshold: -1, wantLimit: 5, wantMin: DefaultThreshold},
		{name: "explicit threshold", limit: 3, threshold: 0.25, wantLimit: 3, wantMin: 0.25},
		{name: "non-positive limit uses default", limit: 0, threshold: 0.5, wantLimit: DefaultLimit, wantMin: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &recordingStore{}
			engine := NewEngine(store, &fakeEmbedder{available: true, vec: []float32{1, 0}}, nil)
			if _, err := engine.Search(context.Background(), 1, "invoice", tt.limit, tt.threshold); err != nil {
				t.Fatalf("Search: %v", err)
			}
			if store.limit != tt.wantLimit || store.minSimilarity != tt.wantMin {
				t.Fatalf("store got limit=%d min=%v, want %d %v", store.limit, store.minSimilarity, tt.wantLimit, tt.wantMin)
			}
		})
	}
}

func TestSearchZeroThresholdIncludesOrthogonalMatches(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedCompleted(t, repo, 1, "invoice", []float32{1, 0})
	seedCompleted(t, repo, 1, "contract", []float32{0, 1})
	engine := NewEngine(repo, &fakeEmbedder{available: true, vec: []float32{1, 0}}, nil)

	results, err := engine.Search(context.Background(), 1, "invoice", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("threshold 0 should keep every ranked match, got %+v", results)
	}
}

func TestSearchHistoryFailureIsNotSurfaced(t *testing.T) {
	repo := documents.NewMemoryRepo()
	seedCompleted(t, repo, 1, "a", []float32{1, 0})
	engine := NewEngine(repo, &fakeEmbedder{available: true, vec: []float32{1, 0}}, failingHistory{})

	results, err := engine.Search(context.Background(), 1, "a", 10, 0.7)
	if err != nil || len(results) != 1 {
		t.Fatalf("history failure should not affect results: %v %+v", err, results)
	}
}

func TestSearchBlankQueryIsEmpty(t *testing.T) {
	emb := &fakeEmbedder{available: true, vec: []float32{1}}
	engine := NewEngine(documents.NewMemoryRepo(), emb, nil)
	results, err := engine.Search(context.Background(), 1, "   ", 10, 0.7)
	if err != nil || len(results) != 0 || emb.calls != 0 {
		t.Fatalf("blank query should short-circuit: %v %v %d", err, results, emb.calls)
	}
}

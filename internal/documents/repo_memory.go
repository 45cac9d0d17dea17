package documents

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo. Similarity search is a
// brute-force cosine scan and is always available.
type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]Document
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[int64]Document),
	}
}

// Create stores doc under a fresh ID.
func (r *MemoryRepo) Create(ctx context.Context, doc Document) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = r.nextID
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = doc.CreatedAt
	if doc.Status == "" {
		doc.Status = StatusUploading
	}
	doc.HasEmbedding = len(doc.Embedding) > 0
	r.data[doc.ID] = doc
	return cloneDocument(doc), nil
}

// GetByID returns a document by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.data[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return cloneDocument(doc), nil
}

// UpdateStatus sets the status and clears the error message.
func (r *MemoryRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	return r.update(ctx, id, func(doc *Document) {
		doc.Status = status
		doc.ErrorMessage = ""
	})
}

// Complete stores text and embedding and marks the document completed.
func (r *MemoryRepo) Complete(ctx context.Context, id int64, text string, embedding []float32) error {
	return r.update(ctx, id, func(doc *Document) {
		t := text
		doc.ExtractedText = &t
		doc.Embedding = append([]float32(nil), embedding...)
		doc.HasEmbedding = len(embedding) > 0
		doc.ErrorMessage = ""
		doc.Status = StatusCompleted
	})
}

// Fail marks the document failed with message.
func (r *MemoryRepo) Fail(ctx context.Context, id int64, message string) error {
	return r.update(ctx, id, func(doc *Document) {
		m := message
		doc.ExtractedText = &m
		doc.ErrorMessage = message
		doc.Status = StatusFailed
		doc.Embedding = nil
		doc.HasEmbedding = false
	})
}

// Delete removes the document.
func (r *MemoryRepo) Delete(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return ErrNotFound
	}
	delete(r.data, id)
	return nil
}

// List returns the owner's documents matching opts.
func (r *MemoryRepo) List(ctx context.Context, ownerID int64, opts ListOptions) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts = opts.Normalize()
	docs := r.matching(ownerID, opts.Filters)

	less := memoryLess(opts.SortBy)
	sort.SliceStable(docs, func(i, j int) bool {
		if opts.SortOrder == "asc" {
			return less(docs[i], docs[j])
		}
		return less(docs[j], docs[i])
	})

	if opts.Offset >= len(docs) {
		return []Document{}, nil
	}
	end := len(docs)
	if opts.Offset+opts.Limit < end {
		end = opts.Offset + opts.Limit
	}
	return docs[opts.Offset:end], nil
}

// Count returns how many of the owner's documents match filters.
func (r *MemoryRepo) Count(ctx context.Context, ownerID int64, filters Filters) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return len(r.matching(ownerID, filters)), nil
}

// NearestNeighbors ranks completed documents by cosine similarity.
func (r *MemoryRepo) NearestNeighbors(ctx context.Context, ownerID int64, vector []float32, limit int, minSimilarity float64) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) == 0 || limit <= 0 {
		return []SearchResult{}, nil
	}
	r.mu.RLock()
	out := make([]SearchResult, 0)
	for _, doc := range r.data {
		if doc.UserID != ownerID || doc.Status != StatusCompleted || len(doc.Embedding) != len(vector) {
			continue
		}
		sim, ok := cosine(vector, doc.Embedding)
		if !ok || sim < minSimilarity {
			continue
		}
		out = append(out, SearchResult{Document: cloneDocument(doc), Similarity: sim, Ranked: true})
	}
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity == out[j].Similarity {
			return out[i].Document.ID < out[j].Document.ID
		}
		return out[i].Similarity > out[j].Similarity
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// VectorSearchAvailable is always true for the in-memory repo.
func (r *MemoryRepo) VectorSearchAvailable(context.Context) bool { return true }

func (r *MemoryRepo) update(ctx context.Context, id int64, fn func(*Document)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	fn(&doc)
	doc.UpdatedAt = time.Now().UTC()
	r.data[id] = doc
	return nil
}

func (r *MemoryRepo) matching(ownerID int64, filters Filters) []Document {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Document, 0)
	for _, doc := range r.data {
		if doc.UserID == ownerID && filters.match(doc) {
			out = append(out, cloneDocument(doc))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// memoryLess orders by column with id as the tie-break in the same
// direction, matching ORDER BY col dir, id dir.
func memoryLess(column string) func(a, b Document) bool {
	switch column {
	case "title":
		return func(a, b Document) bool {
			if a.Title == b.Title {
				return a.ID < b.ID
			}
			return a.Title < b.Title
		}
	case "file_type":
		return func(a, b Document) bool {
			if a.FileType == b.FileType {
				return a.ID < b.ID
			}
			return a.FileType < b.FileType
		}
	case "status":
		return func(a, b Document) bool {
			if a.Status == b.Status {
				return a.ID < b.ID
			}
			return a.Status < b.Status
		}
	default:
		return func(a, b Document) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}
}

func cosine(a, b []float32) (float64, bool) {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, false
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), true
}

func cloneDocument(doc Document) Document {
	if doc.ExtractedText != nil {
		t := *doc.ExtractedText
		doc.ExtractedText = &t
	}
	if doc.Embedding != nil {
		doc.Embedding = append([]float32(nil), doc.Embedding...)
	}
	return doc
}

var _ Repo = (*MemoryRepo)(nil)

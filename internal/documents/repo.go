package documents

import "context"

// Repo defines persistence operations for documents.
type Repo interface {
	// Create inserts doc and returns it with ID and timestamps assigned.
	Create(ctx context.Context, doc Document) (Document, error)
	GetByID(ctx context.Context, id int64) (Document, error)
	// UpdateStatus sets status and clears any previous error message.
	UpdateStatus(ctx context.Context, id int64, status Status) error
	// Complete stores the text and optional embedding and marks completed
	// in a single write.
	Complete(ctx context.Context, id int64, text string, embedding []float32) error
	// Fail marks the document failed. The message is mirrored into
	// extracted_text.
	Fail(ctx context.Context, id int64, message string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, ownerID int64, opts ListOptions) ([]Document, error)
	Count(ctx context.Context, ownerID int64, filters Filters) (int, error)
	// NearestNeighbors ranks the owner's completed, embedded documents by
	// cosine similarity. Without vector support it returns the most recent
	// completed documents at UnrankedSimilarity instead of failing.
	NearestNeighbors(ctx context.Context, ownerID int64, vector []float32, limit int, minSimilarity float64) ([]SearchResult, error)
	VectorSearchAvailable(ctx context.Context) bool
}

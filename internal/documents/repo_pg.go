package documents

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

const documentColumns = `id, user_id, title, filename, file_path, file_type, file_size, category, summary, extracted_text, error_message, status, created_at, updated_at`

const vectorProbeQuery = `
SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = 'vector')
   AND EXISTS (
       SELECT 1 FROM information_schema.columns
       WHERE table_name = 'documents' AND column_name = 'embedding'
   )`

// PGRepo implements Repo using Postgres. The pgvector capability is probed
// on first use and cached; a failed vector query also disables it.
type PGRepo struct {
	DB *sql.DB

	mu     sync.Mutex
	probed bool
	vector bool
}

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) (Document, error) {
	const query = `
INSERT INTO documents (
    user_id,
    title,
    filename,
    file_path,
    file_type,
    file_size,
    category,
    status
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, created_at, updated_at`

	if doc.Status == "" {
		doc.Status = StatusUploading
	}
	err := r.DB.QueryRowContext(
		ctx,
		query,
		doc.UserID,
		doc.Title,
		doc.Filename,
		doc.FilePath,
		string(doc.FileType),
		doc.FileSize,
		nullString(doc.Category),
		string(doc.Status),
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return Document{}, err
	}
	return doc, nil
}

// GetByID fetches a document by ID.
func (r *PGRepo) GetByID(ctx context.Context, id int64) (Document, error) {
	query := `SELECT ` + r.selectColumns(ctx) + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

// UpdateStatus sets status and clears error_message.
func (r *PGRepo) UpdateStatus(ctx context.Context, id int64, status Status) error {
	const query = `
UPDATE documents
SET status = $1, error_message = NULL, updated_at = NOW()
WHERE id = $2`
	return r.exec(ctx, query, string(status), id)
}

// Complete stores the extraction result and marks the document completed.
// The embedding column is only written when the vector capability exists.
// A failed capability probe is returned so the embedding is not dropped.
func (r *PGRepo) Complete(ctx context.Context, id int64, text string, embedding []float32) error {
	enabled, err := r.probeVector(ctx)
	if err != nil {
		return fmt.Errorf("probe vector support: %w", err)
	}
	if !enabled {
		const query = `
UPDATE documents
SET extracted_text = $1, error_message = NULL, status = 'completed', updated_at = NOW()
WHERE id = $2`
		return r.exec(ctx, query, text, id)
	}

	const query = `
UPDATE documents
SET extracted_text = $1, embedding = $2, error_message = NULL, status = 'completed', updated_at = NOW()
WHERE id = $3`
	var vec any
	if len(embedding) > 0 {
		vec = pgvector.NewVector(embedding)
	}
	return r.exec(ctx, query, text, vec, id)
}

// Fail marks the document failed and mirrors the message into extracted_text.
// Any embedding left by an earlier run is cleared.
func (r *PGRepo) Fail(ctx context.Context, id int64, message string) error {
	const plain = `
UPDATE documents
SET status = 'failed', error_message = $1, extracted_text = $1, updated_at = NOW()
WHERE id = $2`
	const clearing = `
UPDATE documents
SET status = 'failed', error_message = $1, extracted_text = $1, embedding = NULL, updated_at = NOW()
WHERE id = $2`
	if enabled, err := r.probeVector(ctx); err == nil && !enabled {
		return r.exec(ctx, plain, message, id)
	}
	// Vector present or probe failed: clear, falling back when the column is missing.
	err := r.exec(ctx, clearing, message, id)
	if err != nil && isVectorUnsupported(err) {
		r.disableVector(err)
		return r.exec(ctx, plain, message, id)
	}
	return err
}

// Delete removes the document row.
func (r *PGRepo) Delete(ctx context.Context, id int64) error {
	return r.exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
}

// List returns the owner's documents matching opts.
func (r *PGRepo) List(ctx context.Context, ownerID int64, opts ListOptions) ([]Document, error) {
	opts = opts.Normalize()
	where, args := buildWhere(ownerID, opts.Filters)
	args = append(args, opts.Limit, opts.Offset)
	query := fmt.Sprintf(
		`SELECT %s FROM documents WHERE %s ORDER BY %s %s, id %s LIMIT $%d OFFSET $%d`,
		r.selectColumns(ctx), where, opts.SortBy, opts.SortOrder, opts.SortOrder, len(args)-1, len(args),
	)

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// Count applies the same predicates as List.
func (r *PGRepo) Count(ctx context.Context, ownerID int64, filters Filters) (int, error) {
	where, args := buildWhere(ownerID, filters)
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents WHERE `+where, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// NearestNeighbors ranks by 1 - cosine distance using pgvector.
func (r *PGRepo) NearestNeighbors(ctx context.Context, ownerID int64, vector []float32, limit int, minSimilarity float64) ([]SearchResult, error) {
	if len(vector) == 0 || limit <= 0 {
		return []SearchResult{}, nil
	}
	if !r.vectorEnabled(ctx) {
		return r.recentCompleted(ctx, ownerID, limit)
	}

	query := `SELECT ` + documentColumns + `, TRUE, 1 - (embedding <=> $2) AS similarity
FROM documents
WHERE user_id = $1
  AND status = 'completed'
  AND embedding IS NOT NULL
  AND vector_dims(embedding) = $3
  AND 1 - (embedding <=> $2) >= $4
ORDER BY embedding <=> $2
LIMIT $5`

	rows, err := r.DB.QueryContext(ctx, query, ownerID, pgvector.NewVector(vector), len(vector), minSimilarity, limit)
	if err != nil {
		if isVectorUnsupported(err) {
			r.disableVector(err)
			return r.recentCompleted(ctx, ownerID, limit)
		}
		return nil, err
	}
	defer rows.Close()

	out := make([]SearchResult, 0)
	for rows.Next() {
		var sim float64
		doc, err := scanDocument(rows, &sim)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Document: doc, Similarity: sim, Ranked: true})
	}
	return out, rows.Err()
}

// VectorSearchAvailable reports whether pgvector ranking can be used.
func (r *PGRepo) VectorSearchAvailable(ctx context.Context) bool {
	return r.vectorEnabled(ctx)
}

func (r *PGRepo) recentCompleted(ctx context.Context, ownerID int64, limit int) ([]SearchResult, error) {
	query := `SELECT ` + r.selectColumns(ctx) + `
FROM documents
WHERE user_id = $1 AND status = 'completed'
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]SearchResult, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, SearchResult{Document: doc, Similarity: UnrankedSimilarity})
	}
	return out, rows.Err()
}

// vectorEnabled is the read-path view of probeVector: errors count as disabled.
func (r *PGRepo) vectorEnabled(ctx context.Context) bool {
	ok, _ := r.probeVector(ctx)
	return ok
}

// probeVector reports whether pgvector and the embedding column exist.
// Only successful probes are cached.
func (r *PGRepo) probeVector(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.probed {
		return r.vector, nil
	}
	var ok bool
	if err := r.DB.QueryRowContext(ctx, vectorProbeQuery).Scan(&ok); err != nil {
		telemetry.Warn("documents.vector.probe_failed", map[string]any{"error": err.Error()})
		return false, err
	}
	r.probed = true
	r.vector = ok
	if !ok {
		telemetry.Warn("documents.vector.unavailable", map[string]any{"reason": "pgvector extension or embedding column missing"})
	}
	return ok, nil
}

func (r *PGRepo) disableVector(cause error) {
	r.mu.Lock()
	r.probed = true
	r.vector = false
	r.mu.Unlock()
	telemetry.Warn("documents.vector.unavailable", map[string]any{"reason": cause.Error()})
}

func (r *PGRepo) selectColumns(ctx context.Context) string {
	if r.vectorEnabled(ctx) {
		return documentColumns + `, (embedding IS NOT NULL)`
	}
	return documentColumns + `, FALSE`
}

func (r *PGRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// buildWhere is shared by List and Count. $1 is always the owner.
func buildWhere(ownerID int64, f Filters) (string, []any) {
	clauses := []string{"user_id = $1"}
	args := []any{ownerID}
	add := func(format string, v any) {
		args = append(args, v)
		clauses = append(clauses, fmt.Sprintf(format, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.FileType != "" {
		add("file_type = $%d", string(f.FileType))
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		add("category = $%d", c)
	}
	if q := strings.TrimSpace(f.Search); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		clauses = append(clauses, fmt.Sprintf("(title ILIKE $%d OR filename ILIKE $%d OR extracted_text ILIKE $%d)", n, n, n))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

// isVectorUnsupported matches undefined function, type and column errors.
func isVectorUnsupported(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "42883", "42704", "42703":
		return true
	}
	return false
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner, extra ...any) (Document, error) {
	var doc Document
	var fileType, status string
	var category, summary, extracted, errMsg sql.NullString
	dest := []any{
		&doc.ID,
		&doc.UserID,
		&doc.Title,
		&doc.Filename,
		&doc.FilePath,
		&fileType,
		&doc.FileSize,
		&category,
		&summary,
		&extracted,
		&errMsg,
		&status,
		&doc.CreatedAt,
		&doc.UpdatedAt,
		&doc.HasEmbedding,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return Document{}, err
	}
	doc.FileType = FileType(fileType)
	doc.Status = Status(status)
	if category.Valid {
		doc.Category = category.String
	}
	if summary.Valid {
		doc.Summary = summary.String
	}
	if extracted.Valid {
		text := extracted.String
		doc.ExtractedText = &text
	}
	if errMsg.Valid {
		doc.ErrorMessage = errMsg.String
	}
	return doc, nil
}

func nullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)

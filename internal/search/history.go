package search

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"
)

// DefaultHistoryLimit and MaxHistoryLimit bound history listings.
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// HistoryEntry is one executed search.
type HistoryEntry struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Query        string    `json:"query"`
	ResultsCount int       `json:"results_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryRepo stores executed searches.
type HistoryRepo interface {
	Record(ctx context.Context, entry HistoryEntry) error
	List(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error)
}

// MemoryHistory keeps history in process memory.
type MemoryHistory struct {
	mu      sync.RWMutex
	nextID  int64
	entries []HistoryEntry
}

func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{}
}

func (m *MemoryHistory) Record(ctx context.Context, entry HistoryEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	entry.ID = m.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	m.entries = append(m.entries, entry)
	return nil
}

func (m *MemoryHistory) List(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]HistoryEntry, 0)
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit = clampHistoryLimit(limit)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// PGHistory stores history in document_search_history.
type PGHistory struct {
	DB *sql.DB
}

func (r *PGHistory) Record(ctx context.Context, entry HistoryEntry) error {
	const query = `
INSERT INTO document_search_history (user_id, query, results_count, created_at)
VALUES ($1, $2, $3, now())`
	_, err := r.DB.ExecContext(ctx, query, entry.UserID, entry.Query, entry.ResultsCount)
	return err
}

func (r *PGHistory) List(ctx context.Context, userID int64, limit int) ([]HistoryEntry, error) {
	const query = `
SELECT id, user_id, query, results_count, created_at
FROM document_search_history
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`
	rows, err := r.DB.QueryContext(ctx, query, userID, clampHistoryLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HistoryEntry, 0)
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Query, &e.ResultsCount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func clampHistoryLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

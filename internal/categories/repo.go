package categories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

// Repo persists categories.
type Repo interface {
	Create(ctx context.Context, c Category) (Category, error)
	List(ctx context.Context) ([]Category, error)
}

type MemoryRepo struct {
	mu     sync.RWMutex
	nextID int64
	items  map[int64]Category
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{items: make(map[int64]Category)}
}

func (r *MemoryRepo) Create(ctx context.Context, c Category) (Category, error) {
	if err := ctx.Err(); err != nil {
		return Category{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if strings.EqualFold(existing.Name, c.Name) {
			return Category{}, ErrDuplicate
		}
	}
	r.nextID++
	c.ID = r.nextID
	c.CreatedAt = time.Now().UTC()
	r.items[c.ID] = c
	return c, nil
}

func (r *MemoryRepo) List(ctx context.Context) ([]Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Category, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Create(ctx context.Context, c Category) (Category, error) {
	const query = `
INSERT INTO document_categories (name, description, created_at)
VALUES ($1, $2, now())
RETURNING id, created_at`
	var desc any
	if c.Description != nil {
		desc = *c.Description
	}
	err := r.DB.QueryRowContext(ctx, query, c.Name, desc).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Category{}, ErrDuplicate
		}
		return Category{}, err
	}
	return c, nil
}

func (r *PGRepo) List(ctx context.Context) ([]Category, error) {
	const query = `
SELECT id, name, description, created_at
FROM document_categories
ORDER BY name ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Category, 0)
	for rows.Next() {
		var c Category
		var desc sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &desc, &c.CreatedAt); err != nil {
			return nil, err
		}
		if desc.Valid {
			c.Description = &desc.String
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

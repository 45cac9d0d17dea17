package categories

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

const maxNameLength = 100

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// CreateInput is the admin-supplied category.
type CreateInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: Category name is required", ErrInvalidInput)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return Category{}, fmt.Errorf("%w: Category name must be at most %d characters", ErrInvalidInput, maxNameLength)
	}
	c := Category{Name: name}
	if desc := strings.TrimSpace(in.Description); desc != "" {
		c.Description = &desc
	}
	created, err := s.Repo.Create(ctx, c)
	if err != nil {
		return Category{}, err
	}
	telemetry.Info("category.created", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"category_id": created.ID,
		"name":        created.Name,
	})
	return created, nil
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.Repo.List(ctx)
}

package categories

import (
	"errors"
	"time"
)

// Category groups documents under an admin-managed name.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrDuplicate    = errors.New("category already exists")
	ErrInvalidInput = errors.New("invalid category")
)

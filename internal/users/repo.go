package users

import "context"

// Repo persists users. Emails are unique case-insensitively.
type Repo interface {
	Create(ctx context.Context, user User) (User, error)
	GetByID(ctx context.Context, userID int64) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}

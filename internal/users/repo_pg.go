package users

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type PGRepo struct {
	DB *sql.DB
}

const selectUser = `
SELECT id, email, password_hash, first_name, last_name, role, created_at, updated_at
FROM users`

func (r *PGRepo) Create(ctx context.Context, user User) (User, error) {
	const query = `
INSERT INTO users (email, password_hash, first_name, last_name, role, created_at, updated_at)
VALUES (lower($1), $2, $3, $4, $5, now(), now())
RETURNING id, email, created_at, updated_at`
	if user.Role == "" {
		user.Role = RoleUser
	}
	err := r.DB.QueryRowContext(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Role,
	).Scan(&user.ID, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, err
	}
	return user, nil
}

func (r *PGRepo) GetByID(ctx context.Context, userID int64) (User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUser+"\nWHERE id = $1\nLIMIT 1", userID))
}

func (r *PGRepo) GetByEmail(ctx context.Context, email string) (User, error) {
	return r.scanOne(r.DB.QueryRowContext(ctx, selectUser+"\nWHERE lower(email) = lower($1)\nLIMIT 1", email))
}

func (r *PGRepo) scanOne(row *sql.Row) (User, error) {
	var user User
	var updatedAt sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.CreatedAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	if updatedAt.Valid {
		user.UpdatedAt = updatedAt.Time
	} else {
		user.UpdatedAt = user.CreatedAt
	}
	return user, nil
}

package users

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	sharedauth "github.com/BilalEnesS/doc-panel/internal/shared/auth"
	"github.com/BilalEnesS/doc-panel/internal/shared/telemetry"
)

// TokenType is the OAuth2 token type issued to clients.
const TokenType = "bearer"

type Service struct {
	Repo Repo
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// SignupInput is a new account request.
type SignupInput struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6,max=100"`
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Signup creates the account and returns it with a fresh access token.
func (s *Service) Signup(ctx context.Context, in SignupInput) (User, string, error) {
	if s == nil || s.Repo == nil {
		return User{}, "", errors.New("users service not configured")
	}
	email := normalizeEmail(in.Email)
	if email == "" {
		return User{}, "", errors.New("email is required")
	}
	if _, err := s.Repo.GetByEmail(ctx, email); err == nil {
		return User{}, "", ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, "", err
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return User{}, "", fmt.Errorf("hash password: %w", err)
	}
	user, err := s.Repo.Create(ctx, User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         RoleUser,
	})
	if err != nil {
		return User{}, "", err
	}
	token, err := IssueToken(user)
	if err != nil {
		return User{}, "", err
	}
	telemetry.Info("user.signup", map[string]any{
		"request_id": telemetry.RequestIDFromContext(ctx),
		"user_id":    user.ID,
	})
	return user, token, nil
}

// Login verifies credentials. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, in LoginInput) (User, string, error) {
	if s == nil || s.Repo == nil {
		return User{}, "", errors.New("users service not configured")
	}
	user, err := s.Repo.GetByEmail(ctx, normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, "", ErrInvalidCredentials
		}
		return User{}, "", err
	}
	if !CheckPassword(user.PasswordHash, in.Password) {
		return User{}, "", ErrInvalidCredentials
	}
	token, err := IssueToken(user)
	if err != nil {
		return User{}, "", err
	}
	return user, token, nil
}

func (s *Service) GetByID(ctx context.Context, userID int64) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	if userID <= 0 {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// FindOrCreateByEmail returns the account for an externally verified email,
// creating a passwordless one on first sight.
func (s *Service) FindOrCreateByEmail(ctx context.Context, email, firstName, lastName string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errors.New("users service not configured")
	}
	email = normalizeEmail(email)
	if email == "" {
		return User{}, errors.New("email is required")
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}
	user, err = s.Repo.Create(ctx, User{
		Email:     email,
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Role:      RoleUser,
	})
	if errors.Is(err, ErrEmailTaken) {
		return s.Repo.GetByEmail(ctx, email)
	}
	return user, err
}

// IssueToken signs an access token for user.
func IssueToken(user User) (string, error) {
	return sharedauth.SignJWT(sharedauth.Claims{
		Sub:   strconv.FormatInt(user.ID, 10),
		Email: user.Email,
		Role:  user.Role,
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

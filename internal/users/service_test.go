package users

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"

	sharedauth "github.com/BilalEnesS/doc-panel/internal/shared/auth"
)

func TestSignupAndLogin(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	user, token, err := svc.Signup(ctx, SignupInput{Email: " Ada@Example.com ", Password: "secret1", FirstName: "Ada", LastName: "Lovelace"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Email != "ada@example.com" || user.Role != RoleUser || user.PasswordHash == "secret1" {
		t.Fatalf("unexpected user %+v", user)
	}
	claims, err := sharedauth.VerifyJWT(token)
	if err != nil || claims.Sub != strconv.FormatInt(user.ID, 10) || claims.Role != RoleUser {
		t.Fatalf("unexpected claims %+v %v", claims, err)
	}

	if _, _, err := svc.Signup(ctx, SignupInput{Email: "ADA@example.com", Password: "other1"}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	if _, _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Login: %v", err)
	}
	for _, in := range []LoginInput{
		{Email: "ada@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "secret1"},
	} {
		if _, _, err := svc.Login(ctx, in); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials for %+v, got %v", in, err)
		}
	}
}

func TestPasswordTruncatedAt72Bytes(t *testing.T) {
	long := strings.Repeat("a", 72)
	hash, err := HashPassword(long + "ignored-suffix")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if !CheckPassword(hash, long) {
		t.Fatalf("bytes past 72 should not matter")
	}
	if CheckPassword(hash, strings.Repeat("a", 71)) {
		t.Fatalf("shorter password should not match")
	}
	if CheckPassword("", "anything") {
		t.Fatalf("empty hash never matches")
	}
}

func TestFindOrCreateByEmail(t *testing.T) {
	svc := NewService(NewMemoryRepo())
	ctx := context.Background()

	first, err := svc.FindOrCreateByEmail(ctx, "g@example.com", "Grace", "Hopper")
	if err != nil {
		t.Fatalf("FindOrCreateByEmail: %v", err)
	}
	again, err := svc.FindOrCreateByEmail(ctx, "G@example.com", "", "")
	if err != nil || again.ID != first.ID {
		t.Fatalf("expected same user, got %+v %v", again, err)
	}
	if _, _, err := svc.Login(ctx, LoginInput{Email: "g@example.com", Password: ""}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("passwordless account must not accept password login, got %v", err)
	}
}

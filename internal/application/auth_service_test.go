package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/token"
)

func newAuthHarness(t *testing.T) (*memoryStore, *testClock, *AuthService) {
	t.Helper()
	store := newMemoryStore()
	clock := newTestClock(testStart)
	tokens, err := token.NewManager("test-key", time.Hour, token.WithClock(clock.Now))
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	svc := NewAuthService(AuthServiceDeps{
		Users:        store,
		Tokens:       tokens,
		HashPassword: plainHash,
		VerifyPassword: func(hash, password string) error {
			if hash != "hash:"+password {
				return ErrInvalidCredentials
			}
			return nil
		},
		IDGenerator: sequentialIDs("user"),
		Now:         clock.Now,
	})
	return store, clock, svc
}

func TestAuthService_Authenticate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("issues a token carrying the profile", func(t *testing.T) {
		t.Parallel()
		store, _, svc := newAuthHarness(t)
		store.users["u1"] = persistence.User{ID: "u1", Email: "ana@marina.example", Name: "Ana", SiteID: "marina-a", Role: "admin", PasswordHash: "hash:segredo123"}

		result, err := svc.Authenticate(ctx, AuthenticateParams{Email: " ANA@marina.example ", Password: "segredo123"})
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if result.Token == "" || !result.ExpiresAt.Equal(testStart.Add(time.Hour)) {
			t.Fatalf("unexpected result %#v", result)
		}

		principal, err := svc.ValidateToken(ctx, result.Token)
		if err != nil {
			t.Fatalf("ValidateToken failed: %v", err)
		}
		if principal != (Principal{UserID: "u1", Name: "Ana", SiteID: "marina-a", Role: RoleAdmin}) {
			t.Fatalf("unexpected principal %#v", principal)
		}
	})

	t.Run("unknown email and wrong password look alike", func(t *testing.T) {
		t.Parallel()
		store, _, svc := newAuthHarness(t)
		store.users["u1"] = persistence.User{ID: "u1", Email: "ana@marina.example", Role: "user", PasswordHash: "hash:segredo123"}

		for _, params := range []AuthenticateParams{
			{Email: "ana@marina.example", Password: "errada"},
			{Email: "ninguem@marina.example", Password: "segredo123"},
			{Email: "", Password: ""},
		} {
			if _, err := svc.Authenticate(ctx, params); !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials for %#v, got %v", params, err)
			}
		}
	})
}

func TestAuthService_ValidateToken(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, clock, svc := newAuthHarness(t)
	store.users["u1"] = persistence.User{ID: "u1", Email: "ana@marina.example", Name: "Ana", SiteID: "marina-a", Role: "admin", PasswordHash: "hash:segredo123"}

	result, err := svc.Authenticate(ctx, AuthenticateParams{Email: "ana@marina.example", Password: "segredo123"})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}

	demoted := store.users["u1"]
	demoted.Role = "user"
	store.users["u1"] = demoted
	principal, err := svc.ValidateToken(ctx, result.Token)
	if err != nil || principal.Role != RoleUser {
		t.Fatalf("expected the stored role to win, got %#v, %v", principal, err)
	}

	if _, err := svc.ValidateToken(ctx, "garbage"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	clock.Advance(2 * time.Hour)
	if _, err := svc.ValidateToken(ctx, result.Token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected expired token to be refused, got %v", err)
	}

	clock.Advance(-2 * time.Hour)
	delete(store.users, "u1")
	if _, err := svc.ValidateToken(ctx, result.Token); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected deleted account to be refused, got %v", err)
	}
}

func TestAuthService_BootstrapOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _, svc := newAuthHarness(t)

	var vErr *ValidationError
	if _, err := svc.BootstrapOwner(ctx, "dono@marina.example", "", "curta"); !errors.As(err, &vErr) {
		t.Fatalf("expected short password to be refused, got %v", err)
	}

	created, err := svc.BootstrapOwner(ctx, "Dono@Marina.Example", "", "segredo123")
	if err != nil || !created {
		t.Fatalf("expected owner to be created, got %v, %v", created, err)
	}
	stored, err := store.GetUserByEmail(ctx, "dono@marina.example")
	if err != nil {
		t.Fatalf("owner not stored: %v", err)
	}
	if stored.Role != "owner" || stored.PasswordHash != "hash:segredo123" {
		t.Fatalf("unexpected owner %#v", stored)
	}

	created, err = svc.BootstrapOwner(ctx, "outro@marina.example", "", "segredo123")
	if err != nil || created {
		t.Fatalf("expected bootstrap to be skipped, got %v, %v", created, err)
	}
}

package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/marinagate/internal/persistence"
)

func plainHash(password string) (string, error) { return "hash:" + password, nil }

func newUserServiceHarness() (*memoryStore, *recordingAudit, *UserService) {
	store := newMemoryStore()
	audit := &recordingAudit{}
	svc := NewUserService(UserServiceDeps{
		Users:        store,
		Audit:        audit,
		HashPassword: plainHash,
		IDGenerator:  sequentialIDs("user"),
		Now:          newTestClock(testStart).Now,
	})
	return store, audit, svc
}

func TestUserService_Create(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("admin creates a receptionist in its own site", func(t *testing.T) {
		t.Parallel()
		store, audit, svc := newUserServiceHarness()
		user, err := svc.Create(ctx, siteAdmin, UserInput{Email: " Recep@Marina.Example ", Name: "Recepção", Password: "segredo123"})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if user.Email != "recep@marina.example" || user.Role != RoleUser || user.SiteID != "marina-a" {
			t.Fatalf("unexpected user %#v", user)
		}
		if store.users[user.ID].PasswordHash != "hash:segredo123" {
			t.Fatalf("expected hashed password to be stored")
		}
		if audit.last().Action != "criar_usuario" {
			t.Fatalf("expected audit event, got %v", audit.actions())
		}
	})

	t.Run("admin cannot grant owner or reach other sites", func(t *testing.T) {
		t.Parallel()
		_, _, svc := newUserServiceHarness()
		if _, err := svc.Create(ctx, siteAdmin, UserInput{Email: "o@x.io", Name: "O", Role: RoleOwner, Password: "segredo123"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.Create(ctx, siteAdmin, UserInput{Email: "b@x.io", Name: "B", SiteID: "marina-b", Password: "segredo123"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.Create(ctx, owner, UserInput{Email: "b@x.io", Name: "B", SiteID: "marina-b", Role: RoleAdmin, Password: "segredo123"}); err != nil {
			t.Fatalf("expected owner to create anywhere, got %v", err)
		}
	})

	t.Run("validates input", func(t *testing.T) {
		t.Parallel()
		_, _, svc := newUserServiceHarness()
		var vErr *ValidationError
		_, err := svc.Create(ctx, siteAdmin, UserInput{Email: "nope", Name: "", Role: "chef", Password: "curta"})
		if !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		for _, field := range []string{"email", "name", "role", "password"} {
			if vErr.FieldErrors[field] == "" {
				t.Errorf("expected %s error, got %#v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		_, _, svc := newUserServiceHarness()
		input := UserInput{Email: "a@x.io", Name: "A", Password: "segredo123"}
		if _, err := svc.Create(ctx, siteAdmin, input); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		input.Email = "A@X.IO"
		if _, err := svc.Create(ctx, siteAdmin, input); !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})

	t.Run("receptionists cannot manage users", func(t *testing.T) {
		t.Parallel()
		_, _, svc := newUserServiceHarness()
		if _, err := svc.Create(ctx, receptionist, UserInput{Email: "a@x.io", Name: "A", Password: "segredo123"}); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		if _, err := svc.List(ctx, receptionist); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestUserService_UpdateDeleteList(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store, _, svc := newUserServiceHarness()
	store.users["u-a"] = persistence.User{ID: "u-a", Email: "a@x.io", Name: "A", SiteID: "marina-a", Role: "user", PasswordHash: "old"}
	store.users["u-b"] = persistence.User{ID: "u-b", Email: "b@x.io", Name: "B", SiteID: "marina-b", Role: "user", PasswordHash: "old"}
	store.users["owner"] = persistence.User{ID: "owner", Email: "owner@x.io", Name: "Dono", Role: "owner", PasswordHash: "old"}
	store.users["admin"] = persistence.User{ID: "admin", Email: "admin@x.io", Name: "Admin", SiteID: "marina-a", Role: "admin", PasswordHash: "old"}

	listed, err := svc.List(ctx, siteAdmin)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(listed) != 2 || listed[0].Email != "a@x.io" || listed[1].Email != "admin@x.io" {
		t.Fatalf("expected admin to see own site ordered by email, got %#v", listed)
	}
	if all, _ := svc.List(ctx, owner); len(all) != 4 {
		t.Fatalf("expected owner to see every account, got %d", len(all))
	}

	role := RoleAdmin
	updated, err := svc.Update(ctx, siteAdmin, "u-a", UserPatch{Role: &role, Password: strPtr("novasenha1")})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.Role != RoleAdmin || store.users["u-a"].PasswordHash != "hash:novasenha1" {
		t.Fatalf("unexpected update %#v", store.users["u-a"])
	}
	if _, err := svc.Update(ctx, siteAdmin, "u-b", UserPatch{Name: strPtr("x")}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected other-site update to be refused, got %v", err)
	}
	if _, err := svc.Update(ctx, siteAdmin, "owner", UserPatch{Name: strPtr("x")}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected owner account to be protected, got %v", err)
	}
	demoted := RoleUser
	var vErr *ValidationError
	if _, err := svc.Update(ctx, siteAdmin, "admin", UserPatch{Role: &demoted}); !errors.As(err, &vErr) {
		t.Fatalf("expected own role change to be refused, got %v", err)
	}

	if err := svc.Delete(ctx, siteAdmin, "admin"); !errors.As(err, &vErr) {
		t.Fatalf("expected self delete to be refused, got %v", err)
	}
	if err := svc.Delete(ctx, siteAdmin, "u-b"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected other-site delete to be refused, got %v", err)
	}
	if err := svc.Delete(ctx, siteAdmin, "u-a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(ctx, siteAdmin, "u-a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

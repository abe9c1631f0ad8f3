package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/persistence/sqlite"
)

// SQLiteHarness provides a migrated SQLite store over a temporary file for
// integration-style tests.
type SQLiteHarness struct {
	Store *sqlite.Storage

	tb      testing.TB
	cleanup func()
}

// NewSQLiteHarness opens and migrates a store in tb's temp dir. The store is
// closed when the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "marinagate.db")
	storage, err := sqlite.Open(sqlite.DefaultConfig(path))
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if err := storage.Migrate(context.Background(), logger); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Store: storage,
		tb:    tb,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// Close releases the store. It is safe to call more than once.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// SeedSite stores a site and fails the test on error.
func (h *SQLiteHarness) SeedSite(site SiteFixture) persistence.Site {
	h.tb.Helper()
	stored, err := h.Store.CreateSite(context.Background(), site.Persistence())
	if err != nil {
		h.tb.Fatalf("seed site %s: %v", site.ID, err)
	}
	return stored
}

// SeedPerson stores a person and fails the test on error.
func (h *SQLiteHarness) SeedPerson(person PersonFixture) persistence.Person {
	h.tb.Helper()
	stored, err := h.Store.CreatePerson(context.Background(), person.Persistence())
	if err != nil {
		h.tb.Fatalf("seed person %s: %v", person.ID, err)
	}
	return stored
}

// SeedMovement stores a movement and fails the test on error.
func (h *SQLiteHarness) SeedMovement(movement MovementFixture) persistence.Movement {
	h.tb.Helper()
	stored, err := h.Store.CreateMovement(context.Background(), movement.Persistence())
	if err != nil {
		h.tb.Fatalf("seed movement %s: %v", movement.ID, err)
	}
	return stored
}

// SeedUser stores an account and fails the test on error.
func (h *SQLiteHarness) SeedUser(user UserFixture) persistence.User {
	h.tb.Helper()
	stored, err := h.Store.CreateUser(context.Background(), user.Persistence())
	if err != nil {
		h.tb.Fatalf("seed user %s: %v", user.ID, err)
	}
	return stored
}

package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/marinagate/internal/persistence"
)

func TestAuditService_List(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newMemoryStore()
	for i, site := range []string{"marina-a", "marina-b", "marina-a"} {
		_ = store.AppendAudit(ctx, persistence.AuditEntry{
			ID: string(rune('1' + i)), SiteID: site, Action: "registrar_entrada",
			CreatedAt: testStart.Add(time.Duration(i) * time.Minute),
		})
	}
	svc := NewAuditService(store)

	if _, err := svc.List(ctx, receptionist, AuditFilter{}); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	entries, err := svc.List(ctx, siteAdmin, AuditFilter{SiteID: "marina-b"})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "3" {
		t.Fatalf("expected admin pinned to own site newest first, got %#v", entries)
	}

	entries, _ = svc.List(ctx, owner, AuditFilter{})
	if len(entries) != 3 {
		t.Fatalf("expected owner to see every site, got %d", len(entries))
	}
	entries, _ = svc.List(ctx, owner, AuditFilter{SiteID: "marina-b"})
	if len(entries) != 1 {
		t.Fatalf("expected owner filter to apply, got %d", len(entries))
	}
}

package testfixtures

import (
	"context"
	"testing"

	"github.com/example/marinagate/internal/application"
)

func TestServiceFactoryWiresClockAndIDs(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("mov")))
	harness := NewSQLiteHarness(t)

	site := harness.SeedSite(NewSiteFixture())
	person := harness.SeedPerson(NewPersonFixture(site.ID))
	receptionist := NewUserFixture(site.ID)

	ledger := factory.NewLedger(LedgerDeps{Store: harness.Store})
	movement, err := ledger.RegisterEntry(context.Background(), receptionist.Principal(), person.ID, nil)
	if err != nil {
		t.Fatalf("RegisterEntry returned error: %v", err)
	}

	if movement.ID != "mov-0001" {
		t.Fatalf("expected generated ID mov-0001, got %q", movement.ID)
	}
	if !movement.EntryAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected entry at %v, got %v", factory.Clock.Now(), movement.EntryAt)
	}
	if movement.Status != application.StatusInside {
		t.Fatalf("expected INSIDE status, got %q", movement.Status)
	}
}

func TestFastHashPasswordVerifies(t *testing.T) {
	hash, err := FastHashPassword("segredo123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := application.VerifyPassword(hash, "segredo123"); err != nil {
		t.Fatalf("expected hash to verify, got %v", err)
	}
}

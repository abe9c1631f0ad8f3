package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/marinagate/internal/persistence"
)

type staticSites []Site

func (s staticSites) List(context.Context) ([]Site, error) { return s, nil }

func seedOpen(h *ledgerHarness, id, personID string, entry time.Time, observation *string) {
	h.store.addMovement(persistence.Movement{
		ID: id, SiteID: "marina-a", PersonID: personID, EntryAt: entry,
		Status: persistence.StatusInside, Observation: observation,
	})
}

func TestAutoCheckout_RunAutoCheckout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("closes movements past the threshold only", func(t *testing.T) {
		t.Parallel()
		h := newLedgerHarness()
		h.store.addPerson("marina-a", "old", "Antigo", "1")
		h.store.addPerson("marina-a", "new", "Recente", "2")
		seedOpen(h, "m-old", "old", testStart.Add(-9*time.Hour), strPtr("lancha"))
		seedOpen(h, "m-new", "new", testStart.Add(-7*time.Hour), nil)

		policy := NewAutoCheckout(AutoCheckoutDeps{Ledger: h.ledger})
		closed, err := policy.RunAutoCheckout(ctx, siteAdmin, 8)
		if err != nil {
			t.Fatalf("RunAutoCheckout failed: %v", err)
		}
		if closed != 1 {
			t.Fatalf("expected one closed movement, got %d", closed)
		}

		old := h.store.movements["m-old"]
		if old.Status != persistence.StatusOutside || old.ExitAt == nil || !old.ExitAt.Equal(testStart) {
			t.Fatalf("expected m-old closed at now, got %#v", old)
		}
		if old.Observation == nil || *old.Observation != "Saída automática após 8 horas de permanência" {
			t.Fatalf("expected overwritten observation, got %v", old.Observation)
		}
		if !strings.Contains(*old.Observation, "8") {
			t.Fatalf("expected threshold in observation")
		}
		if h.store.movements["m-new"].Status != persistence.StatusInside {
			t.Fatal("expected m-new untouched")
		}

		event := h.audit.last()
		if event.Action != "saida_automatica" || event.EntityID != "m-old" {
			t.Fatalf("unexpected audit event %#v", event)
		}
		if event.Details["horas_decorridas"] != 9.0 || event.Details["limite_horas"] != 8.0 {
			t.Fatalf("unexpected audit details %#v", event.Details)
		}
		if _, ok := event.Details["antes"]; !ok {
			t.Fatal("expected before snapshot in audit details")
		}
	})

	t.Run("append policy keeps the entry note", func(t *testing.T) {
		t.Parallel()
		h := newLedgerHarness()
		h.store.addPerson("marina-a", "old", "Antigo", "1")
		seedOpen(h, "m-old", "old", testStart.Add(-12*time.Hour), strPtr("lancha"))

		policy := NewAutoCheckout(AutoCheckoutDeps{Ledger: h.ledger, Policy: ObservationAppend})
		if _, err := policy.RunAutoCheckout(ctx, siteAdmin, 8); err != nil {
			t.Fatalf("RunAutoCheckout failed: %v", err)
		}
		want := "lancha | Saída automática após 8 horas de permanência"
		if got := h.store.movements["m-old"].Observation; got == nil || *got != want {
			t.Fatalf("expected %q, got %v", want, got)
		}
	})

	t.Run("requires an administrator and a positive threshold", func(t *testing.T) {
		t.Parallel()
		h := newLedgerHarness()
		policy := NewAutoCheckout(AutoCheckoutDeps{Ledger: h.ledger})

		if _, err := policy.RunAutoCheckout(ctx, receptionist, 8); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
		var vErr *ValidationError
		if _, err := policy.RunAutoCheckout(ctx, siteAdmin, 0); !errors.As(err, &vErr) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("continues past failing movements", func(t *testing.T) {
		t.Parallel()
		h := newLedgerHarness()
		h.store.addPerson("marina-a", "old", "Antigo", "1")
		seedOpen(h, "m-old", "old", testStart.Add(-9*time.Hour), nil)
		h.store.updateMovementErr = errors.New("backend down")

		policy := NewAutoCheckout(AutoCheckoutDeps{Ledger: h.ledger})
		closed, err := policy.RunAutoCheckout(ctx, siteAdmin, 8)
		if closed != 0 || !errors.Is(err, ErrPersistence) {
			t.Fatalf("expected persistence failure and nothing closed, got %d, %v", closed, err)
		}
		inside, _ := h.ledger.ListInside(ctx, receptionist)
		if len(inside) != 1 {
			t.Fatalf("expected cache to keep the open movement, got %d", len(inside))
		}
	})
}

func TestAutoCheckout_FindNearingThreshold(t *testing.T) {
	t.Parallel()
	h := newLedgerHarness()
	for _, p := range []struct {
		id      string
		elapsed time.Duration
	}{
		{"p-5h", 5 * time.Hour},
		{"p-6h", 6 * time.Hour},
		{"p-7h30", 7*time.Hour + 30*time.Minute},
		{"p-8h", 8 * time.Hour},
	} {
		h.store.addPerson("marina-a", p.id, p.id, p.id)
		seedOpen(h, "m-"+p.id, p.id, testStart.Add(-p.elapsed), nil)
	}

	policy := NewAutoCheckout(AutoCheckoutDeps{Ledger: h.ledger})
	nearing, err := policy.FindNearingThreshold(context.Background(), receptionist, 8, 2)
	if err != nil {
		t.Fatalf("FindNearingThreshold failed: %v", err)
	}
	if len(nearing) != 2 {
		t.Fatalf("expected two movements in [6h, 8h), got %#v", nearing)
	}
	if nearing[0].Person.ID != "p-7h30" || nearing[0].Remaining != 30*time.Minute {
		t.Fatalf("expected closest first, got %#v", nearing[0])
	}
	if nearing[1].Person.ID != "p-6h" {
		t.Fatalf("expected p-6h second, got %#v", nearing[1])
	}
	if h.store.movements["m-p-8h"].Status != persistence.StatusInside {
		t.Fatal("expected no movement to be modified")
	}
}

func TestAutoCheckout_RunAllSites(t *testing.T) {
	t.Parallel()
	h := newLedgerHarness()
	h.store.addPerson("marina-a", "a", "A", "1")
	h.store.addPerson("marina-b", "b", "B", "2")
	seedOpen(h, "ma", "a", testStart.Add(-10*time.Hour), nil)
	h.store.addMovement(persistence.Movement{
		ID: "mb", SiteID: "marina-b", PersonID: "b", EntryAt: testStart.Add(-10 * time.Hour), Status: persistence.StatusInside,
	})

	policy := NewAutoCheckout(AutoCheckoutDeps{
		Ledger: h.ledger,
		Sites:  staticSites{{ID: "marina-a"}, {ID: "marina-b"}},
	})
	closed, err := policy.RunAutoCheckoutAllSites(context.Background(), 8)
	if err != nil {
		t.Fatalf("RunAutoCheckoutAllSites failed: %v", err)
	}
	if closed != 2 {
		t.Fatalf("expected two closed movements, got %d", closed)
	}
	if h.observer.inside["marina-b"] != 0 {
		t.Fatalf("expected inside gauge reset for marina-b, got %d", h.observer.inside["marina-b"])
	}
}

func TestParseObservationPolicy(t *testing.T) {
	t.Parallel()
	for input, want := range map[string]ObservationPolicy{"": ObservationOverwrite, "Overwrite": ObservationOverwrite, " append ": ObservationAppend} {
		got, err := ParseObservationPolicy(input)
		if err != nil || got != want {
			t.Fatalf("ParseObservationPolicy(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseObservationPolicy("merge"); err == nil {
		t.Fatal("expected unknown policy to fail")
	}
}

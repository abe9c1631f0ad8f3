package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/marinagate/internal/persistence"
)

// DirectoryDeps wires the collaborators of a Directory.
type DirectoryDeps struct {
	Store       LedgerStore
	Ledger      *Ledger
	Audit       AuditLogger
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// Directory manages the people of a site. Writes go through the ledger's
// per-person lock and keep its cache in step.
type Directory struct {
	store       LedgerStore
	ledger      *Ledger
	audit       AuditLogger
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDirectory constructs a person directory.
func NewDirectory(deps DirectoryDeps) *Directory {
	d := &Directory{
		store:       deps.Store,
		ledger:      deps.Ledger,
		audit:       deps.Audit,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		logger:      defaultLogger(deps.Logger),
	}
	if d.ledger == nil {
		d.ledger = NewLedger(LedgerDeps{Store: deps.Store, Now: deps.Now, Logger: deps.Logger})
	}
	if d.audit == nil {
		d.audit = noopAudit{}
	}
	if d.idGenerator == nil {
		d.idGenerator = uuid.NewString
	}
	if d.now == nil {
		d.now = time.Now
	}
	return d
}

func (d *Directory) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, d.logger, "PersonDirectory", operation, attrs...)
}

// Create validates and stores a new person in the principal's site.
func (d *Directory) Create(ctx context.Context, principal Principal, input PersonInput) (person Person, err error) {
	if d == nil {
		err = fmt.Errorf("PersonDirectory is nil")
		return
	}

	logger := d.loggerWith(ctx, "Create",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create person", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("person_id", person.ID).InfoContext(ctx, "person created")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}

	candidate := Person{
		SiteID:   siteID,
		Name:     strings.TrimSpace(input.Name),
		Document: normalizeDocument(input.Document),
		Category: Category(strings.TrimSpace(string(input.Category))),
		Contact:  normalizeContact(input.Contact),
		Plate:    normalizePlate(input.Plate),
	}
	if vErr := validatePerson(candidate); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = d.ensureUniqueDocument(ctx, siteID, candidate.Document, ""); err != nil {
		return
	}

	now := d.now()
	candidate.ID = d.idGenerator()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now

	var stored persistence.Person
	stored, err = d.store.CreatePerson(ctx, candidate.record())
	if err != nil {
		err = mapPersonRepoError(err)
		return
	}
	person = personFromRecord(stored)
	d.ledger.rememberPerson(person)

	d.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "cadastrar_pessoa",
		EntityType: "pessoa",
		EntityID:   person.ID,
		EntityName: person.Name,
		Details:    map[string]any{"documento": person.Document, "tipo": string(person.Category)},
	})
	return
}

// Update applies a partial patch to a person of the principal's site.
func (d *Directory) Update(ctx context.Context, principal Principal, personID string, patch PersonPatch) (person Person, err error) {
	if d == nil {
		err = fmt.Errorf("PersonDirectory is nil")
		return
	}

	logger := d.loggerWith(ctx, "Update",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
		"person_id", personID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update person", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "person updated")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}

	var before Person
	err = d.withPerson(ctx, siteID, personID, func(existing Person) error {
		before = existing
		updated := existing
		if patch.Name != nil {
			updated.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Document != nil {
			updated.Document = normalizeDocument(*patch.Document)
		}
		if patch.Category != nil {
			updated.Category = Category(strings.TrimSpace(string(*patch.Category)))
		}
		if patch.Contact != nil {
			updated.Contact = normalizeContact(patch.Contact)
		}
		if patch.Plate != nil {
			updated.Plate = normalizePlate(patch.Plate)
		}
		if vErr := validatePerson(updated); vErr.HasErrors() {
			return vErr
		}
		if updated.Document != existing.Document {
			if err := d.ensureUniqueDocument(ctx, siteID, updated.Document, existing.ID); err != nil {
				return err
			}
		}
		updated.UpdatedAt = d.now()

		stored, err := d.store.UpdatePerson(ctx, updated.record())
		if err != nil {
			return mapPersonRepoError(err)
		}
		person = personFromRecord(stored)
		d.ledger.rememberPerson(person)
		return nil
	})
	if err != nil {
		return
	}

	d.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "editar_pessoa",
		EntityType: "pessoa",
		EntityID:   person.ID,
		EntityName: person.Name,
		Details:    map[string]any{"antes": personSnapshot(before), "depois": personSnapshot(person)},
	})
	return
}

// Delete removes a person and, with it, the person's closed movements. People
// who are currently inside cannot be deleted.
func (d *Directory) Delete(ctx context.Context, principal Principal, personID string) (err error) {
	if d == nil {
		return fmt.Errorf("PersonDirectory is nil")
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}

	logger := d.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
		"person_id", personID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete person", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "person deleted")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}

	var (
		deleted Person
		removed int
	)
	err = d.withPerson(ctx, siteID, personID, func(existing Person) error {
		deleted = existing
		movements, err := d.store.ListMovements(ctx, persistence.MovementFilter{SiteID: siteID, PersonID: personID})
		if err != nil {
			return persistenceError(err)
		}
		for _, m := range movements {
			if m.Status == persistence.StatusInside {
				return ErrPersonInside
			}
		}
		removed = len(movements)

		if err := d.store.DeletePerson(ctx, personID); err != nil {
			return mapPersonRepoError(err)
		}
		d.ledger.forgetPerson(siteID, personID)
		return nil
	})
	if err != nil {
		return
	}

	d.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "excluir_pessoa",
		EntityType: "pessoa",
		EntityID:   deleted.ID,
		EntityName: deleted.Name,
		Details:    map[string]any{"movimentacoes_removidas": removed, "antes": personSnapshot(deleted)},
	})
	return
}

// Get returns a person of the principal's site.
func (d *Directory) Get(ctx context.Context, principal Principal, personID string) (Person, error) {
	if d == nil {
		return Person{}, fmt.Errorf("PersonDirectory is nil")
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return Person{}, err
	}
	cache, err := d.ledger.cacheFor(ctx, siteID)
	if err != nil {
		return Person{}, err
	}
	return d.ledger.findPerson(ctx, cache, siteID, personID)
}

// List returns the people of the principal's site ordered by name. A non-empty
// search matches name, document or plate.
func (d *Directory) List(ctx context.Context, principal Principal, search string) ([]Person, error) {
	if d == nil {
		return nil, fmt.Errorf("PersonDirectory is nil")
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return nil, err
	}
	cache, err := d.ledger.cacheFor(ctx, siteID)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(search))
	documentTerm := normalizeDocument(search)
	plateTerm := plateKey(search)

	cache.mu.RLock()
	people := make([]Person, 0, len(cache.people))
	for _, p := range cache.people {
		if term != "" && !personMatches(p, term, documentTerm, plateTerm) {
			continue
		}
		people = append(people, p)
	}
	cache.mu.RUnlock()

	sort.Slice(people, func(i, j int) bool {
		if strings.EqualFold(people[i].Name, people[j].Name) {
			return people[i].ID < people[j].ID
		}
		return strings.ToLower(people[i].Name) < strings.ToLower(people[j].Name)
	})
	return people, nil
}

func personMatches(p Person, term, documentTerm, plateTerm string) bool {
	if strings.Contains(strings.ToLower(p.Name), term) {
		return true
	}
	if documentTerm != "" && strings.Contains(p.Document, documentTerm) {
		return true
	}
	return plateTerm != "" && p.Plate != nil && strings.Contains(plateKey(*p.Plate), plateTerm)
}

// withPerson resolves the person within the site and runs fn under its lock.
func (d *Directory) withPerson(ctx context.Context, siteID, personID string, fn func(existing Person) error) error {
	cache, err := d.ledger.cacheFor(ctx, siteID)
	if err != nil {
		return err
	}
	if _, err := d.ledger.findPerson(ctx, cache, siteID, personID); err != nil {
		return err
	}
	return d.ledger.withPersonLock(ctx, siteID, personID, func() error {
		record, err := d.store.GetPerson(ctx, personID)
		if err != nil {
			return mapPersonRepoError(err)
		}
		if record.SiteID != siteID {
			return ErrNotFound
		}
		return fn(personFromRecord(record))
	})
}

func (d *Directory) ensureUniqueDocument(ctx context.Context, siteID, document, selfID string) error {
	existing, err := d.store.ListPeople(ctx, persistence.PersonFilter{SiteID: siteID, Document: document})
	if err != nil {
		return persistenceError(err)
	}
	for _, p := range existing {
		if p.ID != selfID {
			return fieldError("document", "document already registered")
		}
	}
	return nil
}

func validatePerson(p Person) *ValidationError {
	vErr := &ValidationError{}
	if p.Name == "" {
		vErr.add("name", "name is required")
	}
	if p.Document == "" {
		vErr.add("document", "document is required")
	}
	if !p.Category.Valid() {
		vErr.add("category", "category is invalid")
	}
	return vErr
}

func mapPersonRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return fieldError("document", "document already registered")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("name", "name is required")
	}
	return persistenceError(err)
}

func personSnapshot(p Person) map[string]any {
	snapshot := map[string]any{
		"nome":      p.Name,
		"documento": p.Document,
		"tipo":      string(p.Category),
	}
	if p.Contact != nil {
		snapshot["contato"] = *p.Contact
	}
	if p.Plate != nil {
		snapshot["placa"] = *p.Plate
	}
	return snapshot
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/marinagate/internal/locking"
	"github.com/example/marinagate/internal/persistence"
)

// reasonAlreadyInside is shown to operators when CanEnter refuses an entry.
const reasonAlreadyInside = "pessoa já está dentro"

// LedgerStore is the persistence surface used by the ledger and the directory.
type LedgerStore interface {
	persistence.PersonRepository
	persistence.MovementRepository
}

// Locker serializes work on a key. The returned func releases the lock.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// AuditLogger records actions without blocking or failing the caller.
type AuditLogger interface {
	Log(ctx context.Context, event AuditEvent)
}

// LedgerObserver receives ledger activity for metrics.
type LedgerObserver interface {
	MovementRecorded(siteID, action string)
	InsideChanged(siteID string, count int)
}

type noopAudit struct{}

func (noopAudit) Log(context.Context, AuditEvent) {}

type noopObserver struct{}

func (noopObserver) MovementRecorded(string, string) {}
func (noopObserver) InsideChanged(string, int)       {}

// LedgerDeps wires the collaborators of a Ledger.
type LedgerDeps struct {
	Store       LedgerStore
	Locker      Locker
	Audit       AuditLogger
	Observer    LedgerObserver
	IDGenerator func() string
	Now         func() time.Time
	// Location is used to interpret civil dates in history filters and to
	// render deletion annotations.
	Location *time.Location
	// HideDeleted drops soft-deleted movements from every listing.
	HideDeleted bool
	Logger      *slog.Logger
}

// Ledger keeps the people and movements of each site in memory, mirrored to
// the store, and enforces the entry/exit rules.
type Ledger struct {
	store       LedgerStore
	locker      Locker
	audit       AuditLogger
	observer    LedgerObserver
	idGenerator func() string
	now         func() time.Time
	location    *time.Location
	hideDeleted bool
	logger      *slog.Logger

	mu    sync.Mutex
	sites map[string]*siteCache
}

type siteCache struct {
	mu        sync.RWMutex
	loaded    bool
	people    map[string]Person
	movements map[string]Movement
}

// NewLedger constructs a ledger with the provided dependencies.
func NewLedger(deps LedgerDeps) *Ledger {
	l := &Ledger{
		store:       deps.Store,
		locker:      deps.Locker,
		audit:       deps.Audit,
		observer:    deps.Observer,
		idGenerator: deps.IDGenerator,
		now:         deps.Now,
		location:    deps.Location,
		hideDeleted: deps.HideDeleted,
		logger:      defaultLogger(deps.Logger),
		sites:       make(map[string]*siteCache),
	}
	if l.locker == nil {
		l.locker = locking.NewKeyedMutex()
	}
	if l.audit == nil {
		l.audit = noopAudit{}
	}
	if l.observer == nil {
		l.observer = noopObserver{}
	}
	if l.idGenerator == nil {
		l.idGenerator = uuid.NewString
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.location == nil {
		l.location = time.UTC
	}
	return l
}

func (l *Ledger) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, l.logger, "MovementLedger", operation, attrs...)
}

// Location returns the time zone used for civil dates.
func (l *Ledger) Location() *time.Location {
	return l.location
}

func activeSite(principal Principal) (string, error) {
	siteID := strings.TrimSpace(principal.SiteID)
	if siteID == "" {
		return "", ErrNoActiveSite
	}
	return siteID, nil
}

// CanEnter reports whether the person may register a new entry at the
// principal's site. It has no side effects.
func (l *Ledger) CanEnter(ctx context.Context, principal Principal, personID string) (EntryCheck, error) {
	if l == nil {
		return EntryCheck{}, fmt.Errorf("MovementLedger is nil")
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return EntryCheck{}, err
	}
	cache, err := l.cacheFor(ctx, siteID)
	if err != nil {
		return EntryCheck{}, err
	}
	if _, err := l.findPerson(ctx, cache, siteID, personID); err != nil {
		return EntryCheck{}, err
	}

	cache.mu.RLock()
	defer cache.mu.RUnlock()
	for _, m := range cache.movements {
		if m.PersonID == personID && m.Inside() {
			return EntryCheck{Allowed: false, Reason: reasonAlreadyInside}, nil
		}
	}
	return EntryCheck{Allowed: true}, nil
}

// RegisterEntry opens a movement for the person. The open-movement check is
// repeated against the store while holding the person's lock.
func (l *Ledger) RegisterEntry(ctx context.Context, principal Principal, personID string, observation *string) (movement Movement, err error) {
	if l == nil {
		err = fmt.Errorf("MovementLedger is nil")
		return
	}

	logger := l.loggerWith(ctx, "RegisterEntry",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
		"person_id", personID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register entry", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("movement_id", movement.ID).InfoContext(ctx, "entry registered")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}
	if vErr := validateObservation("observation", observation); vErr != nil {
		err = vErr
		return
	}

	var cache *siteCache
	if cache, err = l.cacheFor(ctx, siteID); err != nil {
		return
	}
	var person Person
	if person, err = l.findPerson(ctx, cache, siteID, personID); err != nil {
		return
	}

	err = l.withPersonLock(ctx, siteID, personID, func() error {
		open, err := l.store.ListMovements(ctx, persistence.MovementFilter{
			SiteID:   siteID,
			PersonID: personID,
			Status:   persistence.StatusInside,
		})
		if err != nil {
			return persistenceError(err)
		}
		if len(open) > 0 {
			cache.putMovement(movementFromRecord(open[0]))
			return ErrAlreadyInside
		}

		now := l.now()
		record := Movement{
			ID:          l.idGenerator(),
			SiteID:      siteID,
			PersonID:    personID,
			EntryAt:     now,
			Status:      StatusInside,
			Observation: normalizeOptionalString(observation),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		stored, err := l.store.CreateMovement(ctx, record.record())
		if err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				return ErrAlreadyInside
			}
			return persistenceError(err)
		}
		movement = movementFromRecord(stored)
		cache.putMovement(movement)
		return nil
	})
	if err != nil {
		return
	}

	l.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "registrar_entrada",
		EntityType: "movimentacao",
		EntityID:   movement.ID,
		EntityName: person.Name,
		Details:    map[string]any{"pessoa_id": personID, "depois": movementSnapshot(movement)},
	})
	l.observer.MovementRecorded(siteID, "entry")
	l.reportInside(siteID, cache)
	return
}

// RegisterExit closes an open movement. exitAt defaults to now and may be
// back-dated, but never before the entry.
func (l *Ledger) RegisterExit(ctx context.Context, principal Principal, movementID string, exitAt *time.Time, observation *string) (movement Movement, err error) {
	if l == nil {
		err = fmt.Errorf("MovementLedger is nil")
		return
	}

	logger := l.loggerWith(ctx, "RegisterExit",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
		"movement_id", movementID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to register exit", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "exit registered")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}
	if vErr := validateObservation("observation", observation); vErr != nil {
		err = vErr
		return
	}

	var before Movement
	before, movement, err = l.mutateMovement(ctx, siteID, movementID, func(current Movement, now time.Time) (Movement, error) {
		if !current.Inside() {
			return Movement{}, ErrAlreadyExited
		}
		exit := now
		if exitAt != nil {
			exit = *exitAt
		}
		if exit.Before(current.EntryAt) {
			return Movement{}, fieldError("exit_at", "exit must not be before entry")
		}
		next := current
		next.ExitAt = &exit
		next.Status = StatusOutside
		text := composeExitObservation(current.Observation, observation)
		next.Observation = &text
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return
	}

	l.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "registrar_saida",
		EntityType: "movimentacao",
		EntityID:   movement.ID,
		EntityName: l.personName(siteID, movement.PersonID),
		Details:    map[string]any{"antes": movementSnapshot(before), "depois": movementSnapshot(movement)},
	})
	l.observer.MovementRecorded(siteID, "exit")
	l.reportInsideFor(siteID)
	return
}

// UpdateMovement applies a manual correction. A nil ExitAt leaves the exit
// untouched; a movement is never reopened.
func (l *Ledger) UpdateMovement(ctx context.Context, principal Principal, movementID string, edit MovementEdit) (movement Movement, err error) {
	if l == nil {
		err = fmt.Errorf("MovementLedger is nil")
		return
	}

	logger := l.loggerWith(ctx, "UpdateMovement",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
		"movement_id", movementID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update movement", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "movement updated")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}

	vErr := &ValidationError{}
	if edit.EntryAt.IsZero() {
		vErr.add("entry_at", "entry is required")
	}
	if edit.ExitAt != nil && edit.ExitAt.Before(edit.EntryAt) {
		vErr.add("exit_at", "exit must not be before entry")
	}
	vErr.merge(validateObservation("observation", edit.Observation))
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var before Movement
	before, movement, err = l.mutateMovement(ctx, siteID, movementID, func(current Movement, now time.Time) (Movement, error) {
		next := current
		next.EntryAt = edit.EntryAt
		if edit.ExitAt != nil {
			exit := *edit.ExitAt
			next.ExitAt = &exit
			next.Status = StatusOutside
		}
		if next.ExitAt != nil && next.ExitAt.Before(next.EntryAt) {
			return Movement{}, fieldError("exit_at", "exit must not be before entry")
		}
		if edit.Observation != nil {
			next.Observation = normalizeOptionalString(edit.Observation)
		}
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return
	}

	l.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "editar_movimentacao",
		EntityType: "movimentacao",
		EntityID:   movement.ID,
		EntityName: l.personName(siteID, movement.PersonID),
		Details:    map[string]any{"antes": movementSnapshot(before), "depois": movementSnapshot(movement)},
	})
	l.observer.MovementRecorded(siteID, "edit")
	l.reportInsideFor(siteID)
	return
}

// SoftDeleteMovement annotates and stamps a movement as deleted. The status is
// kept and the record stays in the ledger.
func (l *Ledger) SoftDeleteMovement(ctx context.Context, principal Principal, movementID string) (movement Movement, err error) {
	if l == nil {
		err = fmt.Errorf("MovementLedger is nil")
		return
	}
	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}

	logger := l.loggerWith(ctx, "SoftDeleteMovement",
		"principal_id", principal.UserID,
		"site_id", principal.SiteID,
		"movement_id", movementID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete movement", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "movement soft-deleted")
	}()

	var siteID string
	if siteID, err = activeSite(principal); err != nil {
		return
	}

	var before Movement
	before, movement, err = l.mutateMovement(ctx, siteID, movementID, func(current Movement, now time.Time) (Movement, error) {
		if current.Deleted() {
			return Movement{}, ErrAlreadyDeleted
		}
		next := current
		text := deletionObservation(current.Observation, now, l.location)
		next.Observation = &text
		deletedAt := now
		next.DeletedAt = &deletedAt
		next.UpdatedAt = now
		return next, nil
	})
	if err != nil {
		return
	}

	l.audit.Log(ctx, AuditEvent{
		SiteID:     siteID,
		UserID:     principal.UserID,
		Action:     "excluir_movimentacao",
		EntityType: "movimentacao",
		EntityID:   movement.ID,
		EntityName: l.personName(siteID, movement.PersonID),
		Details:    map[string]any{"antes": movementSnapshot(before), "depois": movementSnapshot(movement)},
	})
	l.observer.MovementRecorded(siteID, "delete")
	return
}

// ListInside returns the open movements of the principal's site joined with
// their people, newest entry first. It is recomputed on every call.
func (l *Ledger) ListInside(ctx context.Context, principal Principal) ([]InsideEntry, error) {
	if l == nil {
		return nil, fmt.Errorf("MovementLedger is nil")
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return nil, err
	}
	cache, err := l.cacheFor(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return l.insideEntries(cache), nil
}

func (l *Ledger) insideEntries(cache *siteCache) []InsideEntry {
	cache.mu.RLock()
	defer cache.mu.RUnlock()

	var entries []InsideEntry
	for _, m := range cache.movements {
		if !m.Inside() || (l.hideDeleted && m.Deleted()) {
			continue
		}
		person, ok := cache.people[m.PersonID]
		if !ok {
			continue
		}
		entries = append(entries, InsideEntry{Movement: m, Person: person})
	}
	sort.Slice(entries, func(i, j int) bool {
		return newerFirst(entries[i].Movement, entries[j].Movement)
	})
	return entries
}

// ListHistory returns the movements of the principal's site that match every
// filter, newest entry first. DateTo covers the whole day.
func (l *Ledger) ListHistory(ctx context.Context, principal Principal, filter HistoryFilter) ([]MovementWithPerson, error) {
	if l == nil {
		return nil, fmt.Errorf("MovementLedger is nil")
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return nil, err
	}

	var lower, upper time.Time
	if filter.DateFrom != nil {
		y, m, d := filter.DateFrom.Date()
		lower = time.Date(y, m, d, 0, 0, 0, 0, l.location)
	}
	if filter.DateTo != nil {
		y, m, d := filter.DateTo.Date()
		upper = time.Date(y, m, d+1, 0, 0, 0, 0, l.location)
	}
	if !lower.IsZero() && !upper.IsZero() && !lower.Before(upper) {
		return nil, fieldError("date_to", "end date must not be before start date")
	}

	name := strings.ToLower(strings.TrimSpace(filter.Name))
	document := normalizeDocument(filter.Document)
	plate := plateKey(filter.Plate)
	excludeDeleted := filter.ExcludeDeleted || l.hideDeleted

	cache, err := l.cacheFor(ctx, siteID)
	if err != nil {
		return nil, err
	}

	cache.mu.RLock()
	defer cache.mu.RUnlock()

	var rows []MovementWithPerson
	for _, m := range cache.movements {
		if excludeDeleted && m.Deleted() {
			continue
		}
		if !lower.IsZero() && m.EntryAt.Before(lower) {
			continue
		}
		if !upper.IsZero() && !m.EntryAt.Before(upper) {
			continue
		}
		person, ok := cache.people[m.PersonID]
		if !ok {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(person.Name), name) {
			continue
		}
		if document != "" && !strings.Contains(normalizeDocument(person.Document), document) {
			continue
		}
		if plate != "" && (person.Plate == nil || !strings.Contains(plateKey(*person.Plate), plate)) {
			continue
		}
		rows = append(rows, MovementWithPerson{Movement: m, Person: person})
	}
	sort.Slice(rows, func(i, j int) bool {
		return newerFirst(rows[i].Movement, rows[j].Movement)
	})
	return rows, nil
}

// ListMovementsFor returns every movement of a person, newest entry first.
func (l *Ledger) ListMovementsFor(ctx context.Context, principal Principal, personID string) ([]Movement, error) {
	if l == nil {
		return nil, fmt.Errorf("MovementLedger is nil")
	}
	siteID, err := activeSite(principal)
	if err != nil {
		return nil, err
	}
	cache, err := l.cacheFor(ctx, siteID)
	if err != nil {
		return nil, err
	}
	if _, err := l.findPerson(ctx, cache, siteID, personID); err != nil {
		return nil, err
	}
	return cache.movementsOf(personID), nil
}

// Refresh replaces the cached snapshot of a site with the store contents.
func (l *Ledger) Refresh(ctx context.Context, siteID string) error {
	if l == nil {
		return fmt.Errorf("MovementLedger is nil")
	}
	start := l.now()
	cache := l.siteEntry(siteID)
	if err := l.load(ctx, siteID, cache, true); err != nil {
		l.loggerWith(ctx, "Refresh", "site_id", siteID).ErrorContext(ctx, "failed to refresh site", "error", err)
		return err
	}

	cache.mu.RLock()
	people, movements := len(cache.people), len(cache.movements)
	cache.mu.RUnlock()
	l.loggerWith(ctx, "Refresh", "site_id", siteID).InfoContext(ctx, "site refreshed",
		"people", people,
		"movements", movements,
		"duration", l.now().Sub(start),
	)
	l.reportInside(siteID, cache)
	return nil
}

func (l *Ledger) siteEntry(siteID string) *siteCache {
	l.mu.Lock()
	defer l.mu.Unlock()
	cache, ok := l.sites[siteID]
	if !ok {
		cache = &siteCache{}
		l.sites[siteID] = cache
	}
	return cache
}

func (l *Ledger) cacheFor(ctx context.Context, siteID string) (*siteCache, error) {
	cache := l.siteEntry(siteID)
	cache.mu.RLock()
	loaded := cache.loaded
	cache.mu.RUnlock()
	if loaded {
		return cache, nil
	}
	if err := l.load(ctx, siteID, cache, false); err != nil {
		return nil, err
	}
	return cache, nil
}

// load fills the cache from the store. The write lock is held for the whole
// read so that mutations applied meanwhile are replayed on top of the snapshot.
func (l *Ledger) load(ctx context.Context, siteID string, cache *siteCache, force bool) error {
	if l.store == nil {
		return fmt.Errorf("ledger store not configured")
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.loaded && !force {
		return nil
	}

	people, err := l.store.ListPeople(ctx, persistence.PersonFilter{SiteID: siteID})
	if err != nil {
		return persistenceError(err)
	}
	movements, err := l.store.ListMovements(ctx, persistence.MovementFilter{SiteID: siteID})
	if err != nil {
		return persistenceError(err)
	}

	cache.people = make(map[string]Person, len(people))
	for _, p := range people {
		cache.people[p.ID] = personFromRecord(p)
	}
	cache.movements = make(map[string]Movement, len(movements))
	for _, m := range movements {
		cache.movements[m.ID] = movementFromRecord(m)
	}
	cache.loaded = true
	return nil
}

func (l *Ledger) withPersonLock(ctx context.Context, siteID, personID string, fn func() error) error {
	unlock, err := l.locker.Lock(ctx, "ledger:"+siteID+":"+personID)
	if err != nil {
		return fmt.Errorf("acquire person lock: %w", err)
	}
	defer unlock()
	return fn()
}

// findPerson resolves a person of the site from the cache, falling back to the
// store for people created elsewhere.
func (l *Ledger) findPerson(ctx context.Context, cache *siteCache, siteID, personID string) (Person, error) {
	if strings.TrimSpace(personID) == "" {
		return Person{}, ErrNotFound
	}
	cache.mu.RLock()
	person, ok := cache.people[personID]
	cache.mu.RUnlock()
	if ok {
		return person, nil
	}

	record, err := l.store.GetPerson(ctx, personID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Person{}, ErrNotFound
		}
		return Person{}, persistenceError(err)
	}
	if record.SiteID != siteID {
		return Person{}, ErrNotFound
	}
	person = personFromRecord(record)
	cache.putPerson(person)
	return person, nil
}

func (l *Ledger) getMovement(ctx context.Context, siteID, movementID string) (Movement, error) {
	record, err := l.store.GetMovement(ctx, movementID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return Movement{}, ErrNotFound
		}
		return Movement{}, persistenceError(err)
	}
	if record.SiteID != siteID {
		return Movement{}, ErrNotFound
	}
	return movementFromRecord(record), nil
}

// mutateMovement applies fn to the stored movement while holding the lock of
// its person, persists the result and updates the cache.
func (l *Ledger) mutateMovement(ctx context.Context, siteID, movementID string, fn func(current Movement, now time.Time) (Movement, error)) (before, after Movement, err error) {
	cache, err := l.cacheFor(ctx, siteID)
	if err != nil {
		return Movement{}, Movement{}, err
	}
	if strings.TrimSpace(movementID) == "" {
		return Movement{}, Movement{}, ErrNotFound
	}

	cache.mu.RLock()
	located, ok := cache.movements[movementID]
	cache.mu.RUnlock()
	if !ok {
		if located, err = l.getMovement(ctx, siteID, movementID); err != nil {
			return Movement{}, Movement{}, err
		}
	}

	err = l.withPersonLock(ctx, siteID, located.PersonID, func() error {
		current, err := l.getMovement(ctx, siteID, movementID)
		if err != nil {
			return err
		}
		before = current

		next, err := fn(current, l.now())
		if err != nil {
			cache.putMovement(current)
			return err
		}

		stored, err := l.store.UpdateMovement(ctx, next.record())
		if err != nil {
			switch {
			case errors.Is(err, persistence.ErrNotFound):
				return ErrNotFound
			case errors.Is(err, persistence.ErrConstraintViolation):
				return fieldError("exit_at", "exit must not be before entry")
			}
			return persistenceError(err)
		}
		after = movementFromRecord(stored)
		cache.putMovement(after)
		return nil
	})
	return before, after, err
}

func (l *Ledger) personName(siteID, personID string) string {
	cache := l.siteEntry(siteID)
	cache.mu.RLock()
	defer cache.mu.RUnlock()
	return cache.people[personID].Name
}

func (l *Ledger) reportInsideFor(siteID string) {
	l.reportInside(siteID, l.siteEntry(siteID))
}

func (l *Ledger) reportInside(siteID string, cache *siteCache) {
	cache.mu.RLock()
	count := 0
	for _, m := range cache.movements {
		if m.Inside() {
			count++
		}
	}
	cache.mu.RUnlock()
	l.observer.InsideChanged(siteID, count)
}

// rememberPerson and forgetPerson keep the cache in step with directory writes.
func (l *Ledger) rememberPerson(person Person) {
	l.siteEntry(person.SiteID).putPerson(person)
}

func (l *Ledger) forgetPerson(siteID, personID string) {
	cache := l.siteEntry(siteID)
	cache.mu.Lock()
	defer cache.mu.Unlock()
	delete(cache.people, personID)
	for id, m := range cache.movements {
		if m.PersonID == personID {
			delete(cache.movements, id)
		}
	}
}

func (c *siteCache) putPerson(person Person) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.people == nil {
		c.people = make(map[string]Person)
	}
	c.people[person.ID] = person
}

func (c *siteCache) putMovement(movement Movement) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.movements == nil {
		c.movements = make(map[string]Movement)
	}
	c.movements[movement.ID] = movement
}

func (c *siteCache) movementsOf(personID string) []Movement {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Movement
	for _, m := range c.movements {
		if m.PersonID == personID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newerFirst(out[i], out[j]) })
	return out
}

func newerFirst(a, b Movement) bool {
	if a.EntryAt.Equal(b.EntryAt) {
		return a.ID < b.ID
	}
	return a.EntryAt.After(b.EntryAt)
}

func movementSnapshot(m Movement) map[string]any {
	snapshot := map[string]any{
		"id":      m.ID,
		"entrada": m.EntryAt.UTC().Format(time.RFC3339),
		"status":  string(m.Status),
	}
	if m.ExitAt != nil {
		snapshot["saida"] = m.ExitAt.UTC().Format(time.RFC3339)
	}
	if m.Observation != nil {
		snapshot["observacao"] = *m.Observation
	}
	if m.DeletedAt != nil {
		snapshot["deleted_at"] = m.DeletedAt.UTC().Format(time.RFC3339)
	}
	return snapshot
}

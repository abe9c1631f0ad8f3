package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/marinagate/internal/persistence"
)

// memoryStore is a hand-written persistence.Store used by service tests.
type memoryStore struct {
	mu        sync.Mutex
	sites     map[string]persistence.Site
	people    map[string]persistence.Person
	movements map[string]persistence.Movement
	users     map[string]persistence.User
	audit     []persistence.AuditEntry

	// uniqueInside mirrors the partial unique index of the SQLite schema.
	uniqueInside bool

	createMovementErr error
	updateMovementErr error
	listSitesErr      error
	createCalls       int
	createDelay       time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		sites:        make(map[string]persistence.Site),
		people:       make(map[string]persistence.Person),
		movements:    make(map[string]persistence.Movement),
		users:        make(map[string]persistence.User),
		uniqueInside: true,
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) CreateSite(_ context.Context, site persistence.Site) (persistence.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[site.ID]; ok {
		return persistence.Site{}, persistence.ErrDuplicate
	}
	m.sites[site.ID] = site
	return site, nil
}

func (m *memoryStore) ListSites(context.Context) ([]persistence.Site, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listSitesErr != nil {
		return nil, m.listSitesErr
	}
	out := make([]persistence.Site, 0, len(m.sites))
	for _, s := range m.sites {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) DeleteSite(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sites[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.sites, id)
	return nil
}

func (m *memoryStore) CreatePerson(_ context.Context, person persistence.Person) (persistence.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.people {
		if p.SiteID == person.SiteID && p.Document == person.Document {
			return persistence.Person{}, persistence.ErrDuplicate
		}
	}
	m.people[person.ID] = person
	return person, nil
}

func (m *memoryStore) UpdatePerson(_ context.Context, person persistence.Person) (persistence.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[person.ID]; !ok {
		return persistence.Person{}, persistence.ErrNotFound
	}
	m.people[person.ID] = person
	return person, nil
}

func (m *memoryStore) GetPerson(_ context.Context, id string) (persistence.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.people[id]
	if !ok {
		return persistence.Person{}, persistence.ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) ListPeople(_ context.Context, filter persistence.PersonFilter) ([]persistence.Person, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Person
	for _, p := range m.people {
		if p.SiteID != filter.SiteID {
			continue
		}
		if filter.Document != "" && p.Document != filter.Document {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryStore) DeletePerson(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.people[id]; !ok {
		return persistence.ErrNotFound
	}
	for mid, mv := range m.movements {
		if mv.PersonID == id {
			delete(m.movements, mid)
		}
	}
	delete(m.people, id)
	return nil
}

func (m *memoryStore) CreateMovement(_ context.Context, movement persistence.Movement) (persistence.Movement, error) {
	if m.createDelay > 0 {
		time.Sleep(m.createDelay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.createMovementErr != nil {
		return persistence.Movement{}, m.createMovementErr
	}
	if m.uniqueInside && movement.Status == persistence.StatusInside {
		for _, mv := range m.movements {
			if mv.PersonID == movement.PersonID && mv.SiteID == movement.SiteID && mv.Status == persistence.StatusInside {
				return persistence.Movement{}, persistence.ErrDuplicate
			}
		}
	}
	m.movements[movement.ID] = movement
	return movement, nil
}

func (m *memoryStore) UpdateMovement(_ context.Context, movement persistence.Movement) (persistence.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateMovementErr != nil {
		return persistence.Movement{}, m.updateMovementErr
	}
	if _, ok := m.movements[movement.ID]; !ok {
		return persistence.Movement{}, persistence.ErrNotFound
	}
	m.movements[movement.ID] = movement
	return movement, nil
}

func (m *memoryStore) GetMovement(_ context.Context, id string) (persistence.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mv, ok := m.movements[id]
	if !ok {
		return persistence.Movement{}, persistence.ErrNotFound
	}
	return mv, nil
}

func (m *memoryStore) ListMovements(_ context.Context, filter persistence.MovementFilter) ([]persistence.Movement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.Movement
	for _, mv := range m.movements {
		if mv.SiteID != filter.SiteID {
			continue
		}
		if filter.PersonID != "" && mv.PersonID != filter.PersonID {
			continue
		}
		if filter.Status != "" && mv.Status != filter.Status {
			continue
		}
		out = append(out, mv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntryAt.After(out[j].EntryAt) })
	return out, nil
}

func (m *memoryStore) DeleteMovementsForPerson(_ context.Context, personID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, mv := range m.movements {
		if mv.PersonID == personID {
			delete(m.movements, id)
		}
	}
	return nil
}

func (m *memoryStore) CreateUser(_ context.Context, user persistence.User) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, user.Email) {
			return persistence.User{}, persistence.ErrDuplicate
		}
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryStore) UpdateUser(_ context.Context, user persistence.User) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryStore) GetUser(_ context.Context, id string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return u, nil
}

func (m *memoryStore) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

func (m *memoryStore) ListUsers(_ context.Context, siteID string) ([]persistence.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.User
	for _, u := range m.users {
		if siteID == "" || u.SiteID == siteID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memoryStore) CountUsers(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

func (m *memoryStore) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *memoryStore) AppendAudit(_ context.Context, entry persistence.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audit = append(m.audit, entry)
	return nil
}

func (m *memoryStore) ListAudit(_ context.Context, filter persistence.AuditFilter) ([]persistence.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []persistence.AuditEntry
	for i := len(m.audit) - 1; i >= 0; i-- {
		e := m.audit[i]
		if filter.SiteID != "" && e.SiteID != filter.SiteID {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}
		out = append(out, e)
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (m *memoryStore) addPerson(siteID, id, name, document string) persistence.Person {
	p := persistence.Person{ID: id, SiteID: siteID, Name: name, Document: document, Category: string(CategoryVisitor)}
	m.mu.Lock()
	m.people[id] = p
	m.mu.Unlock()
	return p
}

func (m *memoryStore) addMovement(mv persistence.Movement) {
	m.mu.Lock()
	m.movements[mv.ID] = mv
	m.mu.Unlock()
}

func (m *memoryStore) insideCount(personID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mv := range m.movements {
		if mv.PersonID == personID && mv.Status == persistence.StatusInside {
			n++
		}
	}
	return n
}

// recordingAudit captures audit events.
type recordingAudit struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (r *recordingAudit) Log(_ context.Context, event AuditEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

func (r *recordingAudit) last() AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return AuditEvent{}
	}
	return r.events[len(r.events)-1]
}

// recordingObserver captures ledger metrics callbacks.
type recordingObserver struct {
	mu      sync.Mutex
	actions []string
	inside  map[string]int
}

func (r *recordingObserver) MovementRecorded(siteID, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, siteID+":"+action)
}

func (r *recordingObserver) InsideChanged(siteID string, count int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inside == nil {
		r.inside = make(map[string]int)
	}
	r.inside[siteID] = count
}

// testClock is a settable time source.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock { return &testClock{now: start} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func sequentialIDs(prefix string) func() string {
	var (
		mu sync.Mutex
		n  int
	)
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

var (
	testStart    = time.Date(2024, time.March, 4, 11, 0, 0, 0, time.UTC)
	receptionist = Principal{UserID: "recep", Name: "Recepção", SiteID: "marina-a", Role: RoleUser}
	siteAdmin    = Principal{UserID: "admin", Name: "Admin", SiteID: "marina-a", Role: RoleAdmin}
	owner        = Principal{UserID: "owner", Name: "Dono", SiteID: "marina-a", Role: RoleOwner}
)

type ledgerHarness struct {
	store    *memoryStore
	clock    *testClock
	audit    *recordingAudit
	observer *recordingObserver
	ledger   *Ledger
}

func newLedgerHarness(opts ...func(*LedgerDeps)) *ledgerHarness {
	h := &ledgerHarness{
		store:    newMemoryStore(),
		clock:    newTestClock(testStart),
		audit:    &recordingAudit{},
		observer: &recordingObserver{},
	}
	deps := LedgerDeps{
		Store:       h.store,
		Audit:       h.audit,
		Observer:    h.observer,
		IDGenerator: sequentialIDs("mov"),
		Now:         h.clock.Now,
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(&deps)
	}
	h.ledger = NewLedger(deps)
	return h
}

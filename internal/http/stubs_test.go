package http

import (
	"context"
	"sync"
	"time"

	"github.com/example/marinagate/internal/application"
)

var (
	userPrincipal  = application.Principal{UserID: "u-1", Name: "Recepção", SiteID: "norte", Role: application.RoleUser}
	adminPrincipal = application.Principal{UserID: "u-2", Name: "Gerente", SiteID: "norte", Role: application.RoleAdmin}
	ownerPrincipal = application.Principal{UserID: "u-3", Name: "Dona", SiteID: "norte", Role: application.RoleOwner}
)

type stubTokens struct {
	principals map[string]application.Principal
}

func (s stubTokens) ValidateToken(_ context.Context, token string) (application.Principal, error) {
	p, ok := s.principals[token]
	if !ok {
		return application.Principal{}, application.ErrInvalidCredentials
	}
	return p, nil
}

func tokens() stubTokens {
	return stubTokens{principals: map[string]application.Principal{
		"user-token":  userPrincipal,
		"admin-token": adminPrincipal,
		"owner-token": ownerPrincipal,
	}}
}

type stubSites struct {
	known map[string]bool
}

func (s stubSites) Get(_ context.Context, id string) (application.Site, error) {
	if !s.known[id] {
		return application.Site{}, application.ErrNotFound
	}
	return application.Site{ID: id, Name: id}, nil
}

func sites() stubSites {
	return stubSites{known: map[string]bool{"norte": true, "sul": true}}
}

type stubLedger struct {
	mu sync.Mutex

	entryPrincipal application.Principal
	entryPersonID  string
	entryErr       error

	exitAt  *time.Time
	exitErr error

	edit application.MovementEdit

	history       []application.MovementWithPerson
	historyFilter application.HistoryFilter
	historyErr    error
}

func (s *stubLedger) RegisterEntry(_ context.Context, p application.Principal, personID string, observation *string) (application.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryPrincipal = p
	s.entryPersonID = personID
	if s.entryErr != nil {
		return application.Movement{}, s.entryErr
	}
	return application.Movement{
		ID:          "m-1",
		SiteID:      p.SiteID,
		PersonID:    personID,
		EntryAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Status:      application.StatusInside,
		Observation: observation,
	}, nil
}

func (s *stubLedger) RegisterExit(_ context.Context, p application.Principal, movementID string, exitAt *time.Time, _ *string) (application.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exitAt = exitAt
	if s.exitErr != nil {
		return application.Movement{}, s.exitErr
	}
	exit := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	return application.Movement{ID: movementID, SiteID: p.SiteID, Status: application.StatusOutside, ExitAt: &exit}, nil
}

func (s *stubLedger) UpdateMovement(_ context.Context, p application.Principal, movementID string, edit application.MovementEdit) (application.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit = edit
	return application.Movement{ID: movementID, SiteID: p.SiteID, EntryAt: edit.EntryAt, ExitAt: edit.ExitAt}, nil
}

func (s *stubLedger) SoftDeleteMovement(_ context.Context, p application.Principal, movementID string) (application.Movement, error) {
	now := time.Now()
	return application.Movement{ID: movementID, SiteID: p.SiteID, DeletedAt: &now}, nil
}

func (s *stubLedger) ListInside(context.Context, application.Principal) ([]application.InsideEntry, error) {
	return nil, nil
}

func (s *stubLedger) ListHistory(_ context.Context, _ application.Principal, filter application.HistoryFilter) ([]application.MovementWithPerson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.historyFilter = filter
	return s.history, s.historyErr
}

type stubAutoCheckout struct {
	threshold float64
	warn      float64
	closed    int
	err       error
	nearing   []application.NearingEntry
}

func (s *stubAutoCheckout) RunAutoCheckout(_ context.Context, _ application.Principal, thresholdHours float64) (int, error) {
	s.threshold = thresholdHours
	return s.closed, s.err
}

func (s *stubAutoCheckout) FindNearingThreshold(_ context.Context, _ application.Principal, thresholdHours, warnWindowHours float64) ([]application.NearingEntry, error) {
	s.threshold = thresholdHours
	s.warn = warnWindowHours
	return s.nearing, s.err
}

type stubUsers struct {
	listCalls int
}

func (s *stubUsers) List(context.Context, application.Principal) ([]application.User, error) {
	s.listCalls++
	return []application.User{{ID: "u-1", Email: "recepcao@marina.test", Name: "Recepção", SiteID: "norte", Role: application.RoleUser}}, nil
}

func (s *stubUsers) Create(_ context.Context, _ application.Principal, input application.UserInput) (application.User, error) {
	return application.User{ID: "u-9", Email: input.Email, Name: input.Name}, nil
}

func (s *stubUsers) Update(_ context.Context, _ application.Principal, userID string, _ application.UserPatch) (application.User, error) {
	return application.User{ID: userID}, nil
}

func (s *stubUsers) Delete(context.Context, application.Principal, string) error {
	return nil
}

type stubAudit struct {
	filter application.AuditFilter
}

func (s *stubAudit) List(_ context.Context, _ application.Principal, filter application.AuditFilter) ([]application.AuditEntry, error) {
	s.filter = filter
	return []application.AuditEntry{{ID: "a-1", Action: "movement.entry", EntityType: "movement", CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}}, nil
}

type recordedRequest struct {
	method string
	route  string
	status int
}

type stubObserver struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (s *stubObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, recordedRequest{method: method, route: route, status: status})
}

package persistence

import (
	"context"
	"time"
)

// SiteRepository exposes the site catalog held by the backend.
type SiteRepository interface {
	CreateSite(ctx context.Context, site Site) (Site, error)
	ListSites(ctx context.Context) ([]Site, error)
	DeleteSite(ctx context.Context, id string) error
}

// PersonFilter narrows person queries. SiteID is mandatory.
type PersonFilter struct {
	SiteID   string
	Document string
}

// PersonRepository stores directory entries.
type PersonRepository interface {
	CreatePerson(ctx context.Context, person Person) (Person, error)
	UpdatePerson(ctx context.Context, person Person) (Person, error)
	GetPerson(ctx context.Context, id string) (Person, error)
	ListPeople(ctx context.Context, filter PersonFilter) ([]Person, error)
	DeletePerson(ctx context.Context, id string) error
}

// MovementFilter narrows movement queries. SiteID is mandatory.
type MovementFilter struct {
	SiteID   string
	PersonID string
	Status   string
}

// MovementRepository stores entry/exit records.
type MovementRepository interface {
	CreateMovement(ctx context.Context, movement Movement) (Movement, error)
	UpdateMovement(ctx context.Context, movement Movement) (Movement, error)
	GetMovement(ctx context.Context, id string) (Movement, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	DeleteMovementsForPerson(ctx context.Context, personID string) error
}

// UserRepository stores operator accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, siteID string) ([]User, error)
	CountUsers(ctx context.Context) (int, error)
	DeleteUser(ctx context.Context, id string) error
}

// AuditFilter narrows audit log queries.
type AuditFilter struct {
	SiteID string
	Since  *time.Time
	Limit  int
}

// AuditRepository stores audit entries.
type AuditRepository interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	ListAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// Store bundles every repository a persistence provider offers.
type Store interface {
	SiteRepository
	PersonRepository
	MovementRepository
	UserRepository
	AuditRepository
	Close() error
}

package application

import (
	"strings"
	"time"

	"github.com/example/marinagate/internal/persistence"
)

// Role is the authorization level carried by an operator profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
	RoleOwner Role = "owner"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// Principal represents the authenticated operator invoking a service method.
// SiteID is the active site; every ledger query is scoped to it.
type Principal struct {
	UserID string
	Name   string
	SiteID string
	Role   Role
}

// IsAdmin reports whether the principal may run administrative mutations.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin || p.Role == RoleOwner
}

// IsOwner reports whether the principal may manage sites.
func (p Principal) IsOwner() bool {
	return p.Role == RoleOwner
}

// Category classifies a person in the directory.
type Category string

const (
	CategoryUnset           Category = ""
	CategoryClient          Category = "cliente"
	CategoryVisitor         Category = "visitante"
	CategorySailor          Category = "marinheiro"
	CategoryOwner           Category = "proprietario"
	CategoryStaff           Category = "funcionario"
	CategoryServiceProvider Category = "prestador_servico"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryUnset, CategoryClient, CategoryVisitor, CategorySailor, CategoryOwner, CategoryStaff, CategoryServiceProvider:
		return true
	}
	return false
}

// Status is the state of a movement.
type Status string

const (
	StatusInside  Status = persistence.StatusInside
	StatusOutside Status = persistence.StatusOutside
)

// Site is a marina location ("empresa").
type Site struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SiteInput captures caller provided site fields.
type SiteInput struct {
	ID   string
	Name string
}

// Person is a directory entry eligible for check-in.
type Person struct {
	ID        string
	SiteID    string
	Name      string
	Document  string
	Category  Category
	Contact   *string
	Plate     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PersonInput captures the attributes of a new person.
type PersonInput struct {
	Name     string
	Document string
	Category Category
	Contact  *string
	Plate    *string
}

// PersonPatch carries a partial update; nil fields are left untouched.
type PersonPatch struct {
	Name     *string
	Document *string
	Category *Category
	Contact  *string
	Plate    *string
}

// Movement is one entry/exit cycle of a person at a site.
type Movement struct {
	ID          string
	SiteID      string
	PersonID    string
	EntryAt     time.Time
	ExitAt      *time.Time
	Status      Status
	Observation *string
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Inside reports whether the movement is still open.
func (m Movement) Inside() bool {
	return m.Status == StatusInside
}

// Deleted reports whether the movement was soft-deleted.
func (m Movement) Deleted() bool {
	return m.DeletedAt != nil
}

// MovementEdit carries a manual correction of a movement.
type MovementEdit struct {
	EntryAt     time.Time
	ExitAt      *time.Time
	Observation *string
}

// EntryCheck is the outcome of CanEnter.
type EntryCheck struct {
	Allowed bool
	Reason  string
}

// InsideEntry pairs an open movement with its person.
type InsideEntry struct {
	Movement Movement
	Person   Person
}

// NearingEntry is an open movement approaching the auto-checkout threshold.
type NearingEntry struct {
	InsideEntry
	Elapsed   time.Duration
	Remaining time.Duration
}

// MovementWithPerson is a history row.
type MovementWithPerson struct {
	Movement Movement
	Person   Person
}

// HistoryFilter narrows ListHistory. DateFrom and DateTo are civil dates; only
// their year, month and day are used. All filters are AND-combined.
type HistoryFilter struct {
	DateFrom       *time.Time
	DateTo         *time.Time
	Name           string
	Document       string
	Plate          string
	ExcludeDeleted bool
}

// User is an operator account exposed by the application services.
type User struct {
	ID        string
	Email     string
	Name      string
	SiteID    string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal derives the acting identity from the profile.
func (u User) Principal() Principal {
	return Principal{UserID: u.ID, Name: u.Name, SiteID: u.SiteID, Role: u.Role}
}

// UserInput captures caller provided user attributes.
type UserInput struct {
	Email    string
	Name     string
	SiteID   string
	Role     Role
	Password string
}

// UserPatch carries a partial user update.
type UserPatch struct {
	Email    *string
	Name     *string
	SiteID   *string
	Role     *Role
	Password *string
}

// AuthenticateParams captures the data required to authenticate a user.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult captures the outcome of a successful login.
type AuthenticateResult struct {
	User      User
	Token     string
	ExpiresAt time.Time
}

// AuditEvent is a fire-and-forget record of an action.
type AuditEvent struct {
	SiteID     string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	EntityName string
	Details    map[string]any
}

// AuditEntry is a stored audit record.
type AuditEntry struct {
	ID         string
	SiteID     string
	UserID     string
	Action     string
	EntityType string
	EntityID   string
	EntityName string
	Details    map[string]any
	CreatedAt  time.Time
}

// AuditFilter narrows audit listings.
type AuditFilter struct {
	SiteID string
	Since  *time.Time
	Limit  int
}

func siteFromRecord(r persistence.Site) Site {
	return Site{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

func personFromRecord(r persistence.Person) Person {
	return Person{
		ID:        r.ID,
		SiteID:    r.SiteID,
		Name:      r.Name,
		Document:  r.Document,
		Category:  Category(r.Category),
		Contact:   r.Contact,
		Plate:     r.Plate,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (p Person) record() persistence.Person {
	return persistence.Person{
		ID:        p.ID,
		SiteID:    p.SiteID,
		Name:      p.Name,
		Document:  p.Document,
		Category:  string(p.Category),
		Contact:   p.Contact,
		Plate:     p.Plate,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func movementFromRecord(r persistence.Movement) Movement {
	return Movement{
		ID:          r.ID,
		SiteID:      r.SiteID,
		PersonID:    r.PersonID,
		EntryAt:     r.EntryAt,
		ExitAt:      r.ExitAt,
		Status:      Status(r.Status),
		Observation: r.Observation,
		DeletedAt:   r.DeletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func (m Movement) record() persistence.Movement {
	return persistence.Movement{
		ID:          m.ID,
		SiteID:      m.SiteID,
		PersonID:    m.PersonID,
		EntryAt:     m.EntryAt,
		ExitAt:      m.ExitAt,
		Status:      string(m.Status),
		Observation: m.Observation,
		DeletedAt:   m.DeletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func userFromRecord(r persistence.User) User {
	return User{
		ID:        r.ID,
		Email:     r.Email,
		Name:      r.Name,
		SiteID:    r.SiteID,
		Role:      Role(r.Role),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func auditFromRecord(r persistence.AuditEntry) AuditEntry {
	return AuditEntry{
		ID:         r.ID,
		SiteID:     r.SiteID,
		UserID:     r.UserID,
		Action:     r.Action,
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		EntityName: r.EntityName,
		Details:    r.Details,
		CreatedAt:  r.CreatedAt,
	}
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

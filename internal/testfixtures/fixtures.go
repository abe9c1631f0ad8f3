package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/marinagate/internal/application"
	"github.com/example/marinagate/internal/persistence"
)

var (
	siteCounter     uint64
	personCounter   uint64
	movementCounter uint64
	userCounter     uint64
)

var referenceTime = time.Date(2024, time.March, 4, 11, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Site fixtures -----------------------------

// SiteFixture is a deterministic marina site.
type SiteFixture struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// SiteOption configures a SiteFixture.
type SiteOption func(*SiteFixture)

// NewSiteFixture returns a site with a unique identifier.
func NewSiteFixture(opts ...SiteOption) SiteFixture {
	idx := atomic.AddUint64(&siteCounter, 1)
	fixture := SiteFixture{
		ID:        fmt.Sprintf("marina-%03d", idx),
		Name:      fmt.Sprintf("Marina %03d", idx),
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSiteID overrides the generated site ID.
func WithSiteID(id string) SiteOption {
	return func(f *SiteFixture) { f.ID = id }
}

// WithSiteName overrides the generated site name.
func WithSiteName(name string) SiteOption {
	return func(f *SiteFixture) { f.Name = name }
}

// Persistence converts the fixture into a stored site.
func (f SiteFixture) Persistence() persistence.Site {
	return persistence.Site{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

// Application converts the fixture into a catalog site.
func (f SiteFixture) Application() application.Site {
	return application.Site{ID: f.ID, Name: f.Name, CreatedAt: f.CreatedAt}
}

// ----------------------------- Person fixtures -----------------------------

// PersonFixture is a deterministic directory entry.
type PersonFixture struct {
	ID        string
	SiteID    string
	Name      string
	Document  string
	Category  application.Category
	Contact   *string
	Plate     *string
	CreatedAt time.Time
}

// PersonOption configures a PersonFixture.
type PersonOption func(*PersonFixture)

// NewPersonFixture returns a visitor of siteID with a unique document.
func NewPersonFixture(siteID string, opts ...PersonOption) PersonFixture {
	idx := atomic.AddUint64(&personCounter, 1)
	fixture := PersonFixture{
		ID:        fmt.Sprintf("pessoa-%03d", idx),
		SiteID:    siteID,
		Name:      fmt.Sprintf("Pessoa %03d", idx),
		Document:  fmt.Sprintf("DOC%06d", idx),
		Category:  application.CategoryVisitor,
		CreatedAt: referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithPersonID overrides the generated person ID.
func WithPersonID(id string) PersonOption {
	return func(f *PersonFixture) { f.ID = id }
}

// WithPersonName overrides the generated name.
func WithPersonName(name string) PersonOption {
	return func(f *PersonFixture) { f.Name = name }
}

// WithPersonDocument overrides the generated document.
func WithPersonDocument(document string) PersonOption {
	return func(f *PersonFixture) { f.Document = document }
}

// WithPersonCategory overrides the category.
func WithPersonCategory(category application.Category) PersonOption {
	return func(f *PersonFixture) { f.Category = category }
}

// WithPersonPlate sets the vehicle plate.
func WithPersonPlate(plate string) PersonOption {
	return func(f *PersonFixture) { f.Plate = &plate }
}

// WithPersonContact sets the contact number.
func WithPersonContact(contact string) PersonOption {
	return func(f *PersonFixture) { f.Contact = &contact }
}

// Persistence converts the fixture into a stored person.
func (f PersonFixture) Persistence() persistence.Person {
	return persistence.Person{
		ID:        f.ID,
		SiteID:    f.SiteID,
		Name:      f.Name,
		Document:  f.Document,
		Category:  string(f.Category),
		Contact:   f.Contact,
		Plate:     f.Plate,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.CreatedAt,
	}
}

// Input converts the fixture into directory input.
func (f PersonFixture) Input() application.PersonInput {
	return application.PersonInput{
		Name:     f.Name,
		Document: f.Document,
		Category: f.Category,
		Contact:  f.Contact,
		Plate:    f.Plate,
	}
}

// ----------------------------- Movement fixtures -----------------------------

// MovementFixture is a deterministic movement record.
type MovementFixture struct {
	ID          string
	SiteID      string
	PersonID    string
	EntryAt     time.Time
	ExitAt      *time.Time
	Observation *string
	DeletedAt   *time.Time
}

// MovementOption configures a MovementFixture.
type MovementOption func(*MovementFixture)

// NewMovementFixture returns an open movement that started at ReferenceTime.
func NewMovementFixture(siteID, personID string, opts ...MovementOption) MovementFixture {
	idx := atomic.AddUint64(&movementCounter, 1)
	fixture := MovementFixture{
		ID:       fmt.Sprintf("mov-%03d", idx),
		SiteID:   siteID,
		PersonID: personID,
		EntryAt:  referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithMovementID overrides the generated movement ID.
func WithMovementID(id string) MovementOption {
	return func(f *MovementFixture) { f.ID = id }
}

// WithEntryAt overrides the entry time.
func WithEntryAt(t time.Time) MovementOption {
	return func(f *MovementFixture) { f.EntryAt = t }
}

// WithExitAt closes the movement at t.
func WithExitAt(t time.Time) MovementOption {
	return func(f *MovementFixture) { f.ExitAt = &t }
}

// WithObservation sets the observation text.
func WithObservation(text string) MovementOption {
	return func(f *MovementFixture) { f.Observation = &text }
}

// WithDeletedAt marks the movement soft-deleted at t.
func WithDeletedAt(t time.Time) MovementOption {
	return func(f *MovementFixture) { f.DeletedAt = &t }
}

// Persistence converts the fixture into a stored movement. The status follows
// ExitAt.
func (f MovementFixture) Persistence() persistence.Movement {
	status := persistence.StatusInside
	if f.ExitAt != nil {
		status = persistence.StatusOutside
	}
	return persistence.Movement{
		ID:          f.ID,
		SiteID:      f.SiteID,
		PersonID:    f.PersonID,
		EntryAt:     f.EntryAt,
		ExitAt:      f.ExitAt,
		Status:      status,
		Observation: f.Observation,
		DeletedAt:   f.DeletedAt,
		CreatedAt:   f.EntryAt,
		UpdatedAt:   f.EntryAt,
	}
}

// ----------------------------- User fixtures -----------------------------

// UserFixture is a deterministic operator account.
type UserFixture struct {
	ID           string
	Email        string
	Name         string
	SiteID       string
	Role         application.Role
	PasswordHash string
	CreatedAt    time.Time
}

// UserOption configures a UserFixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a receptionist ("user" role) of siteID.
func NewUserFixture(siteID string, opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		Email:        id + "@marina.example",
		Name:         fmt.Sprintf("Operador %03d", idx),
		SiteID:       siteID,
		Role:         application.RoleUser,
		PasswordHash: "hash-" + id,
		CreatedAt:    referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) { f.ID = id }
}

// WithUserEmail overrides the generated email.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) { f.Email = email }
}

// WithUserRole overrides the role.
func WithUserRole(role application.Role) UserOption {
	return func(f *UserFixture) { f.Role = role }
}

// WithUserPasswordHash overrides the stored hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) { f.PasswordHash = hash }
}

// Principal converts the fixture into the identity acting on services.
func (f UserFixture) Principal() application.Principal {
	return application.Principal{UserID: f.ID, Name: f.Name, SiteID: f.SiteID, Role: f.Role}
}

// Persistence converts the fixture into a stored account.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Email:        f.Email,
		Name:         f.Name,
		SiteID:       f.SiteID,
		Role:         string(f.Role),
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
		UpdatedAt:    f.CreatedAt,
	}
}

package persistence

import "time"

// Site is a marina location ("empresa") acting as the tenancy boundary.
type Site struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Person is a directory entry ("pessoa") eligible for movement tracking.
type Person struct {
	ID        string
	SiteID    string
	Name      string
	Document  string
	Category  string
	Contact   *string
	Plate     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Movement status values as stored by the backend.
const (
	StatusInside  = "DENTRO"
	StatusOutside = "FORA"
)

// Movement is a single entry/exit cycle ("movimentação") of a person at a site.
type Movement struct {
	ID          string
	SiteID      string
	PersonID    string
	EntryAt     time.Time
	ExitAt      *time.Time
	Status      string
	Observation *string
	DeletedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is an operator account together with its profile attributes.
type User struct {
	ID           string
	Email        string
	Name         string
	SiteID       string
	Role         string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AuditEntry records an administrative or ledger action.
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

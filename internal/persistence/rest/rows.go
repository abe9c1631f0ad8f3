package rest

import (
	"time"

	"github.com/example/marinagate/internal/persistence"
)

const (
	tableSites     = "empresas"
	tablePeople    = "pessoas"
	tableMovements = "movimentacoes"
	tableUsers     = "usuarios"
	tableAudit     = "logs_auditoria"
)

type siteRow struct {
	ID        string    `json:"id"`
	Name      string    `json:"nome"`
	CreatedAt time.Time `json:"created_at"`
}

func (r siteRow) model() persistence.Site {
	return persistence.Site{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt}
}

type personRow struct {
	ID        string    `json:"id"`
	SiteID    string    `json:"empresa_id"`
	Name      string    `json:"nome"`
	Document  string    `json:"documento"`
	Category  string    `json:"tipo"`
	Contact   *string   `json:"contato"`
	Plate     *string   `json:"placa"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newPersonRow(p persistence.Person) personRow {
	return personRow{
		ID:        p.ID,
		SiteID:    p.SiteID,
		Name:      p.Name,
		Document:  p.Document,
		Category:  p.Category,
		Contact:   p.Contact,
		Plate:     p.Plate,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func (r personRow) model() persistence.Person {
	return persistence.Person{
		ID:        r.ID,
		SiteID:    r.SiteID,
		Name:      r.Name,
		Document:  r.Document,
		Category:  r.Category,
		Contact:   r.Contact,
		Plate:     r.Plate,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type movementRow struct {
	ID          string     `json:"id"`
	SiteID      string     `json:"empresa_id"`
	PersonID    string     `json:"pessoa_id"`
	EntryAt     time.Time  `json:"entrada"`
	ExitAt      *time.Time `json:"saida"`
	Status      string     `json:"status"`
	Observation *string    `json:"observacao"`
	DeletedAt   *time.Time `json:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newMovementRow(m persistence.Movement) movementRow {
	return movementRow{
		ID:          m.ID,
		SiteID:      m.SiteID,
		PersonID:    m.PersonID,
		EntryAt:     m.EntryAt,
		ExitAt:      m.ExitAt,
		Status:      m.Status,
		Observation: m.Observation,
		DeletedAt:   m.DeletedAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func (r movementRow) model() persistence.Movement {
	return persistence.Movement{
		ID:          r.ID,
		SiteID:      r.SiteID,
		PersonID:    r.PersonID,
		EntryAt:     r.EntryAt,
		ExitAt:      r.ExitAt,
		Status:      r.Status,
		Observation: r.Observation,
		DeletedAt:   r.DeletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

type userRow struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"nome"`
	SiteID       string    `json:"empresa_id"`
	Role         string    `json:"papel"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func newUserRow(u persistence.User) userRow {
	return userRow{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		SiteID:       u.SiteID,
		Role:         u.Role,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func (r userRow) model() persistence.User {
	return persistence.User{
		ID:           r.ID,
		Email:        r.Email,
		Name:         r.Name,
		SiteID:       r.SiteID,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type auditRow struct {
	ID         string         `json:"id"`
	SiteID     string         `json:"empresa_id"`
	UserID     string         `json:"usuario_id"`
	Action     string         `json:"acao"`
	EntityType string         `json:"tipo_entidade"`
	EntityID   string         `json:"entidade_id"`
	EntityName string         `json:"entidade_nome"`
	Details    map[string]any `json:"detalhes"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (r auditRow) model() persistence.AuditEntry {
	return persistence.AuditEntry{
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

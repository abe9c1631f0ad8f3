package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/marinagate/internal/persistence"
)

const personColumns = `id, empresa_id, nome, documento, tipo, contato, placa, created_at, updated_at`

// CreatePerson inserts a new directory entry.
func (s *Storage) CreatePerson(ctx context.Context, person persistence.Person) (persistence.Person, error) {
	if person.ID == "" || person.SiteID == "" {
		return persistence.Person{}, persistence.ErrConstraintViolation
	}
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO pessoas (`+personColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		person.ID,
		person.SiteID,
		person.Name,
		person.Document,
		person.Category,
		optionalString(person.Contact),
		optionalString(person.Plate),
		formatTime(person.CreatedAt),
		formatTime(person.UpdatedAt),
	)
	if err != nil {
		return persistence.Person{}, mapError(err)
	}
	return s.GetPerson(ctx, person.ID)
}

// UpdatePerson overwrites the mutable attributes of a person.
func (s *Storage) UpdatePerson(ctx context.Context, person persistence.Person) (persistence.Person, error) {
	result, err := s.pool.DB().ExecContext(ctx, `
		UPDATE pessoas
		SET nome = ?, documento = ?, tipo = ?, contato = ?, placa = ?, updated_at = ?
		WHERE id = ?`,
		person.Name,
		person.Document,
		person.Category,
		optionalString(person.Contact),
		optionalString(person.Plate),
		formatTime(person.UpdatedAt),
		person.ID,
	)
	if err != nil {
		return persistence.Person{}, mapError(err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Person{}, err
	}
	return s.GetPerson(ctx, person.ID)
}

// GetPerson retrieves a person by ID.
func (s *Storage) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	if id == "" {
		return persistence.Person{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+personColumns+` FROM pessoas WHERE id = ?`, id)
	return scanPerson(row)
}

// ListPeople returns the people of a site ordered by name.
func (s *Storage) ListPeople(ctx context.Context, filter persistence.PersonFilter) ([]persistence.Person, error) {
	clauses := []string{"empresa_id = ?"}
	args := []any{filter.SiteID}
	if filter.Document != "" {
		clauses = append(clauses, "documento = ?")
		args = append(args, filter.Document)
	}

	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT `+personColumns+` FROM pessoas WHERE `+strings.Join(clauses, " AND ")+` ORDER BY nome COLLATE NOCASE, id`,
		args...,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var people []persistence.Person
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		people = append(people, person)
	}
	return people, mapError(rows.Err())
}

// DeletePerson removes a person together with its movements.
func (s *Storage) DeletePerson(ctx context.Context, id string) error {
	return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM movimentacoes WHERE pessoa_id = ?`, id); err != nil {
			return mapError(err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM pessoas WHERE id = ?`, id)
		if err != nil {
			return mapError(err)
		}
		return requireAffected(result)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPerson(row rowScanner) (persistence.Person, error) {
	var (
		person               persistence.Person
		contact, plate       sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&person.ID,
		&person.SiteID,
		&person.Name,
		&person.Document,
		&person.Category,
		&contact,
		&plate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Person{}, mapError(err)
	}

	var err error
	if person.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Person{}, fmt.Errorf("parse person created_at: %w", err)
	}
	if person.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Person{}, fmt.Errorf("parse person updated_at: %w", err)
	}
	person.Contact = stringPtr(contact)
	person.Plate = stringPtr(plate)
	return person, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/example/marinagate/internal/persistence"
)

const movementColumns = `id, empresa_id, pessoa_id, entrada, saida, status, observacao, deleted_at, created_at, updated_at`

// CreateMovement inserts a new movement and returns the stored row.
func (s *Storage) CreateMovement(ctx context.Context, movement persistence.Movement) (persistence.Movement, error) {
	if movement.ID == "" || movement.SiteID == "" || movement.PersonID == "" {
		return persistence.Movement{}, persistence.ErrConstraintViolation
	}
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO movimentacoes (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		movement.ID,
		movement.SiteID,
		movement.PersonID,
		formatTime(movement.EntryAt),
		formatOptionalTime(movement.ExitAt),
		movement.Status,
		optionalString(movement.Observation),
		formatOptionalTime(movement.DeletedAt),
		formatTime(movement.CreatedAt),
		formatTime(movement.UpdatedAt),
	)
	if err != nil {
		return persistence.Movement{}, mapError(err)
	}
	return s.GetMovement(ctx, movement.ID)
}

// UpdateMovement overwrites a movement by ID, last writer wins.
func (s *Storage) UpdateMovement(ctx context.Context, movement persistence.Movement) (persistence.Movement, error) {
	result, err := s.pool.DB().ExecContext(ctx, `
		UPDATE movimentacoes
		SET entrada = ?, saida = ?, status = ?, observacao = ?, deleted_at = ?, updated_at = ?
		WHERE id = ?`,
		formatTime(movement.EntryAt),
		formatOptionalTime(movement.ExitAt),
		movement.Status,
		optionalString(movement.Observation),
		formatOptionalTime(movement.DeletedAt),
		formatTime(movement.UpdatedAt),
		movement.ID,
	)
	if err != nil {
		return persistence.Movement{}, mapError(err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.Movement{}, err
	}
	return s.GetMovement(ctx, movement.ID)
}

// GetMovement retrieves a movement by ID.
func (s *Storage) GetMovement(ctx context.Context, id string) (persistence.Movement, error) {
	if id == "" {
		return persistence.Movement{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+movementColumns+` FROM movimentacoes WHERE id = ?`, id)
	return scanMovement(row)
}

// ListMovements returns the movements of a site, newest entry first.
func (s *Storage) ListMovements(ctx context.Context, filter persistence.MovementFilter) ([]persistence.Movement, error) {
	clauses := []string{"empresa_id = ?"}
	args := []any{filter.SiteID}
	if filter.PersonID != "" {
		clauses = append(clauses, "pessoa_id = ?")
		args = append(args, filter.PersonID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, filter.Status)
	}

	rows, err := s.pool.DB().QueryContext(ctx,
		`SELECT `+movementColumns+` FROM movimentacoes WHERE `+strings.Join(clauses, " AND ")+` ORDER BY entrada DESC, id`,
		args...,
	)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var movements []persistence.Movement
	for rows.Next() {
		movement, err := scanMovement(rows)
		if err != nil {
			return nil, err
		}
		movements = append(movements, movement)
	}
	return movements, mapError(rows.Err())
}

// DeleteMovementsForPerson removes every movement of a person.
func (s *Storage) DeleteMovementsForPerson(ctx context.Context, personID string) error {
	_, err := s.pool.DB().ExecContext(ctx, `DELETE FROM movimentacoes WHERE pessoa_id = ?`, personID)
	return mapError(err)
}

func scanMovement(row rowScanner) (persistence.Movement, error) {
	var (
		movement             persistence.Movement
		entryAt              string
		exitAt, deletedAt    sql.NullString
		observation          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&movement.ID,
		&movement.SiteID,
		&movement.PersonID,
		&entryAt,
		&exitAt,
		&movement.Status,
		&observation,
		&deletedAt,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Movement{}, mapError(err)
	}

	var err error
	if movement.EntryAt, err = parseTime(entryAt); err != nil {
		return persistence.Movement{}, fmt.Errorf("parse movement entrada: %w", err)
	}
	if movement.ExitAt, err = parseOptionalTime(exitAt); err != nil {
		return persistence.Movement{}, fmt.Errorf("parse movement saida: %w", err)
	}
	if movement.DeletedAt, err = parseOptionalTime(deletedAt); err != nil {
		return persistence.Movement{}, fmt.Errorf("parse movement deleted_at: %w", err)
	}
	if movement.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Movement{}, fmt.Errorf("parse movement created_at: %w", err)
	}
	if movement.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Movement{}, fmt.Errorf("parse movement updated_at: %w", err)
	}
	movement.Observation = stringPtr(observation)
	return movement, nil
}

package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/marinagate/internal/persistence"
)

const userColumns = `id, email, nome, empresa_id, papel, password_hash, created_at, updated_at`

// CreateUser inserts a new operator account.
func (s *Storage) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if user.ID == "" || user.PasswordHash == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO usuarios (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID,
		normalizeEmail(user.Email),
		user.Name,
		user.SiteID,
		user.Role,
		user.PasswordHash,
		formatTime(user.CreatedAt),
		formatTime(user.UpdatedAt),
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	return s.GetUser(ctx, user.ID)
}

// UpdateUser overwrites an existing operator account.
func (s *Storage) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	if user.PasswordHash == "" {
		return persistence.User{}, persistence.ErrConstraintViolation
	}
	result, err := s.pool.DB().ExecContext(ctx, `
		UPDATE usuarios
		SET email = ?, nome = ?, empresa_id = ?, papel = ?, password_hash = ?, updated_at = ?
		WHERE id = ?`,
		normalizeEmail(user.Email),
		user.Name,
		user.SiteID,
		user.Role,
		user.PasswordHash,
		formatTime(user.UpdatedAt),
		user.ID,
	)
	if err != nil {
		return persistence.User{}, mapError(err)
	}
	if err := requireAffected(result); err != nil {
		return persistence.User{}, err
	}
	return s.GetUser(ctx, user.ID)
}

// GetUser retrieves an account by ID.
func (s *Storage) GetUser(ctx context.Context, id string) (persistence.User, error) {
	if id == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM usuarios WHERE id = ?`, id)
	return scanUser(row)
}

// GetUserByEmail retrieves an account by its login address, ignoring case.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	row := s.pool.DB().QueryRowContext(ctx, `SELECT `+userColumns+` FROM usuarios WHERE email = ?`, normalized)
	return scanUser(row)
}

// ListUsers returns accounts ordered by name. An empty siteID lists every account.
func (s *Storage) ListUsers(ctx context.Context, siteID string) ([]persistence.User, error) {
	query := `SELECT ` + userColumns + ` FROM usuarios`
	var args []any
	if siteID != "" {
		query += ` WHERE empresa_id = ?`
		args = append(args, siteID)
	}
	query += ` ORDER BY nome COLLATE NOCASE, id`

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var users []persistence.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, mapError(rows.Err())
}

// CountUsers returns the number of stored accounts.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM usuarios`).Scan(&count); err != nil {
		return 0, mapError(err)
	}
	return count, nil
}

// DeleteUser removes an account by ID.
func (s *Storage) DeleteUser(ctx context.Context, id string) error {
	result, err := s.pool.DB().ExecContext(ctx, `DELETE FROM usuarios WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

func scanUser(row rowScanner) (persistence.User, error) {
	var (
		user                 persistence.User
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.SiteID,
		&user.Role,
		&user.PasswordHash,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.User{}, mapError(err)
	}

	var err error
	if user.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	if user.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.User{}, fmt.Errorf("parse user updated_at: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

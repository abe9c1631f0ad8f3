package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/example/marinagate/internal/persistence"
)

const auditColumns = `id, empresa_id, usuario_id, acao, tipo_entidade, entidade_id, entidade_nome, detalhes, created_at`

// AppendAudit stores one audit entry. Details are kept as a JSON document.
func (s *Storage) AppendAudit(ctx context.Context, entry persistence.AuditEntry) error {
	if entry.ID == "" || entry.Action == "" {
		return persistence.ErrConstraintViolation
	}
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	encoded, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}

	_, err = s.pool.DB().ExecContext(ctx,
		`INSERT INTO logs_auditoria (`+auditColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.SiteID,
		entry.UserID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.EntityName,
		string(encoded),
		formatTime(entry.CreatedAt),
	)
	return mapError(err)
}

// ListAudit returns audit entries newest first.
func (s *Storage) ListAudit(ctx context.Context, filter persistence.AuditFilter) ([]persistence.AuditEntry, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.SiteID != "" {
		clauses = append(clauses, "empresa_id = ?")
		args = append(args, filter.SiteID)
	}
	if filter.Since != nil {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, formatTime(*filter.Since))
	}

	query := `SELECT ` + auditColumns + ` FROM logs_auditoria`
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	query += ` ORDER BY created_at DESC, id`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := s.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var entries []persistence.AuditEntry
	for rows.Next() {
		var (
			entry              persistence.AuditEntry
			details, createdAt string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.SiteID,
			&entry.UserID,
			&entry.Action,
			&entry.EntityType,
			&entry.EntityID,
			&entry.EntityName,
			&details,
			&createdAt,
		); err != nil {
			return nil, mapError(err)
		}
		if details != "" {
			if err := json.Unmarshal([]byte(details), &entry.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse audit created_at: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, mapError(rows.Err())
}

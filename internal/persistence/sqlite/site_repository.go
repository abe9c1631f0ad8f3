package sqlite

import (
	"context"
	"fmt"

	"github.com/example/marinagate/internal/persistence"
)

// CreateSite inserts a new site and returns the stored row.
func (s *Storage) CreateSite(ctx context.Context, site persistence.Site) (persistence.Site, error) {
	if site.ID == "" {
		return persistence.Site{}, persistence.ErrConstraintViolation
	}
	_, err := s.pool.DB().ExecContext(ctx,
		`INSERT INTO empresas (id, nome, created_at) VALUES (?, ?, ?)`,
		site.ID, site.Name, formatTime(site.CreatedAt),
	)
	if err != nil {
		return persistence.Site{}, mapError(err)
	}
	return site, nil
}

// ListSites returns every stored site ordered by name.
func (s *Storage) ListSites(ctx context.Context) ([]persistence.Site, error) {
	rows, err := s.pool.DB().QueryContext(ctx, `SELECT id, nome, created_at FROM empresas ORDER BY nome, id`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var sites []persistence.Site
	for rows.Next() {
		var (
			site      persistence.Site
			createdAt string
		)
		if err := rows.Scan(&site.ID, &site.Name, &createdAt); err != nil {
			return nil, mapError(err)
		}
		if site.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse site created_at: %w", err)
		}
		sites = append(sites, site)
	}
	return sites, mapError(rows.Err())
}

// DeleteSite removes a site by ID.
func (s *Storage) DeleteSite(ctx context.Context, id string) error {
	result, err := s.pool.DB().ExecContext(ctx, `DELETE FROM empresas WHERE id = ?`, id)
	if err != nil {
		return mapError(err)
	}
	return requireAffected(result)
}

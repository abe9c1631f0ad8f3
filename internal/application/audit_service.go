package application

import (
	"context"
	"fmt"

	"github.com/example/marinagate/internal/persistence"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditService lists the audit trail for administrators.
type AuditService struct {
	store persistence.AuditRepository
}

// NewAuditService constructs an AuditService.
func NewAuditService(store persistence.AuditRepository) *AuditService {
	return &AuditService{store: store}
}

// List returns audit entries newest first. Admins see their own site; owners
// may pass any SiteID or none for every site.
func (s *AuditService) List(ctx context.Context, principal Principal, filter AuditFilter) ([]AuditEntry, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("audit store not configured")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if !principal.IsOwner() {
		siteID, err := activeSite(principal)
		if err != nil {
			return nil, err
		}
		filter.SiteID = siteID
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultAuditLimit
	case filter.Limit > maxAuditLimit:
		filter.Limit = maxAuditLimit
	}

	records, err := s.store.ListAudit(ctx, persistence.AuditFilter{
		SiteID: filter.SiteID,
		Since:  filter.Since,
		Limit:  filter.Limit,
	})
	if err != nil {
		return nil, persistenceError(err)
	}
	out := make([]AuditEntry, 0, len(records))
	for _, r := range records {
		out = append(out, auditFromRecord(r))
	}
	return out, nil
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/example/marinagate/internal/persistence"
)

// SiteStore is the persistence surface used by the site catalog.
type SiteStore interface {
	persistence.SiteRepository
	ListPeople(ctx context.Context, filter persistence.PersonFilter) ([]persistence.Person, error)
}

// SiteServiceDeps wires the collaborators of a SiteService.
type SiteServiceDeps struct {
	Store SiteStore
	// Seed lists the fixed sites shipped with the deployment.
	Seed   []Site
	Audit  AuditLogger
	Now    func() time.Time
	Logger *slog.Logger
}

// SiteService exposes the site catalog: the fixed seed merged with the sites
// stored in the backend, the backend winning on identifier collisions.
type SiteService struct {
	store  SiteStore
	seed   []Site
	audit  AuditLogger
	now    func() time.Time
	logger *slog.Logger
}

// NewSiteService constructs the site catalog.
func NewSiteService(deps SiteServiceDeps) *SiteService {
	s := &SiteService{
		store:  deps.Store,
		seed:   append([]Site(nil), deps.Seed...),
		audit:  deps.Audit,
		now:    deps.Now,
		logger: defaultLogger(deps.Logger),
	}
	if s.audit == nil {
		s.audit = noopAudit{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *SiteService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SiteService", operation, attrs...)
}

// SyncSeed stores the seed sites missing from the backend so people can
// reference them.
func (s *SiteService) SyncSeed(ctx context.Context) error {
	if s == nil || s.store == nil {
		return fmt.Errorf("site store not configured")
	}
	stored, err := s.store.ListSites(ctx)
	if err != nil {
		return persistenceError(err)
	}
	known := make(map[string]struct{}, len(stored))
	for _, site := range stored {
		known[site.ID] = struct{}{}
	}

	created := 0
	for _, site := range s.seed {
		if _, ok := known[site.ID]; ok {
			continue
		}
		createdAt := site.CreatedAt
		if createdAt.IsZero() {
			createdAt = s.now()
		}
		_, err := s.store.CreateSite(ctx, persistence.Site{ID: site.ID, Name: site.Name, CreatedAt: createdAt})
		if err != nil && !errors.Is(err, persistence.ErrDuplicate) {
			return persistenceError(err)
		}
		created++
	}
	s.loggerWith(ctx, "SyncSeed").InfoContext(ctx, "seed sites synchronized", "seed", len(s.seed), "created", created)
	return nil
}

// List returns the merged catalog ordered by name. When the backend fails the
// seed alone is returned.
func (s *SiteService) List(ctx context.Context) ([]Site, error) {
	if s == nil {
		return nil, fmt.Errorf("SiteService is nil")
	}

	merged := make(map[string]Site, len(s.seed))
	for _, site := range s.seed {
		merged[site.ID] = site
	}

	if s.store != nil {
		stored, err := s.store.ListSites(ctx)
		if err != nil {
			s.loggerWith(ctx, "List").WarnContext(ctx, "backend sites unavailable, serving seed only",
				"error", err,
			)
		} else {
			for _, r := range stored {
				merged[r.ID] = siteFromRecord(r)
			}
		}
	}

	out := make([]Site, 0, len(merged))
	for _, site := range merged {
		out = append(out, site)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// Get returns a single site of the catalog.
func (s *SiteService) Get(ctx context.Context, id string) (Site, error) {
	sites, err := s.List(ctx)
	if err != nil {
		return Site{}, err
	}
	for _, site := range sites {
		if site.ID == id {
			return site, nil
		}
	}
	return Site{}, ErrNotFound
}

// Create stores a new site. Owners only.
func (s *SiteService) Create(ctx context.Context, principal Principal, input SiteInput) (site Site, err error) {
	if s == nil {
		err = fmt.Errorf("SiteService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create", "principal_id", principal.UserID, "site_id", input.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create site", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "site created")
	}()

	if !principal.IsOwner() {
		err = ErrUnauthorized
		return
	}
	if s.store == nil {
		err = fmt.Errorf("site store not configured")
		return
	}

	input.ID = strings.ToLower(strings.TrimSpace(input.ID))
	input.Name = strings.TrimSpace(input.Name)
	if vErr := validateSiteInput(input); vErr.HasErrors() {
		err = vErr
		return
	}
	if _, gErr := s.Get(ctx, input.ID); gErr == nil {
		err = ErrAlreadyExists
		return
	}

	var stored persistence.Site
	stored, err = s.store.CreateSite(ctx, persistence.Site{ID: input.ID, Name: input.Name, CreatedAt: s.now()})
	if err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			err = ErrAlreadyExists
			return
		}
		err = persistenceError(err)
		return
	}
	site = siteFromRecord(stored)

	s.audit.Log(ctx, AuditEvent{
		SiteID:     site.ID,
		UserID:     principal.UserID,
		Action:     "criar_empresa",
		EntityType: "empresa",
		EntityID:   site.ID,
		EntityName: site.Name,
	})
	return
}

// Delete removes a site that holds no people. Owners only; seed sites are fixed.
func (s *SiteService) Delete(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("SiteService is nil")
	}

	logger := s.loggerWith(ctx, "Delete", "principal_id", principal.UserID, "site_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete site", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "site deleted")
	}()

	if !principal.IsOwner() {
		return ErrUnauthorized
	}
	if s.store == nil {
		return fmt.Errorf("site store not configured")
	}
	for _, seed := range s.seed {
		if seed.ID == id {
			return fieldError("id", "fixed site cannot be deleted")
		}
	}

	site, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	people, err := s.store.ListPeople(ctx, persistence.PersonFilter{SiteID: id})
	if err != nil {
		return persistenceError(err)
	}
	if len(people) > 0 {
		return ErrSiteInUse
	}

	if err = s.store.DeleteSite(ctx, id); err != nil {
		switch {
		case errors.Is(err, persistence.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, persistence.ErrForeignKeyViolation):
			return ErrSiteInUse
		}
		return persistenceError(err)
	}

	s.audit.Log(ctx, AuditEvent{
		SiteID:     site.ID,
		UserID:     principal.UserID,
		Action:     "excluir_empresa",
		EntityType: "empresa",
		EntityID:   site.ID,
		EntityName: site.Name,
	})
	return nil
}

func validateSiteInput(input SiteInput) *ValidationError {
	vErr := &ValidationError{}
	if input.ID == "" {
		vErr.add("id", "id is required")
	} else {
		for _, r := range input.ID {
			if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_') {
				vErr.add("id", "id may only contain letters, digits, hyphens and underscores")
				break
			}
		}
	}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	return vErr
}

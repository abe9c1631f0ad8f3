package rest

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/marinagate/internal/persistence"
)

// first returns the single row of a return=representation response.
func first[T any](rows []T) (T, error) {
	var zero T
	if len(rows) == 0 {
		return zero, persistence.ErrNotFound
	}
	return rows[0], nil
}

func (c *Client) CreateSite(ctx context.Context, site persistence.Site) (persistence.Site, error) {
	var rows []siteRow
	if err := c.insert(ctx, tableSites, siteRow{ID: site.ID, Name: site.Name, CreatedAt: site.CreatedAt}, &rows); err != nil {
		return persistence.Site{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) ListSites(ctx context.Context) ([]persistence.Site, error) {
	var rows []siteRow
	if err := c.selectRows(ctx, tableSites, url.Values{"order": {"nome.asc,id.asc"}}, &rows); err != nil {
		return nil, err
	}
	sites := make([]persistence.Site, 0, len(rows))
	for _, row := range rows {
		sites = append(sites, row.model())
	}
	return sites, nil
}

func (c *Client) DeleteSite(ctx context.Context, id string) error {
	return c.deleteByID(ctx, tableSites, id)
}

func (c *Client) CreatePerson(ctx context.Context, person persistence.Person) (persistence.Person, error) {
	var rows []personRow
	if err := c.insert(ctx, tablePeople, newPersonRow(person), &rows); err != nil {
		return persistence.Person{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) UpdatePerson(ctx context.Context, person persistence.Person) (persistence.Person, error) {
	var rows []personRow
	patch := map[string]any{
		"nome":       person.Name,
		"documento":  person.Document,
		"tipo":       person.Category,
		"contato":    person.Contact,
		"placa":      person.Plate,
		"updated_at": person.UpdatedAt,
	}
	if err := c.update(ctx, tablePeople, person.ID, patch, &rows); err != nil {
		return persistence.Person{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) GetPerson(ctx context.Context, id string) (persistence.Person, error) {
	var rows []personRow
	if err := c.selectRows(ctx, tablePeople, url.Values{"id": {eq(id)}}, &rows); err != nil {
		return persistence.Person{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) ListPeople(ctx context.Context, filter persistence.PersonFilter) ([]persistence.Person, error) {
	params := url.Values{
		"empresa_id": {eq(filter.SiteID)},
		"order":      {"nome.asc,id.asc"},
	}
	if filter.Document != "" {
		params.Set("documento", eq(filter.Document))
	}
	var rows []personRow
	if err := c.selectRows(ctx, tablePeople, params, &rows); err != nil {
		return nil, err
	}
	people := make([]persistence.Person, 0, len(rows))
	for _, row := range rows {
		people = append(people, row.model())
	}
	return people, nil
}

// DeletePerson removes the person's movements before the person itself.
func (c *Client) DeletePerson(ctx context.Context, id string) error {
	if err := c.DeleteMovementsForPerson(ctx, id); err != nil {
		return err
	}
	return c.deleteByID(ctx, tablePeople, id)
}

func (c *Client) CreateMovement(ctx context.Context, movement persistence.Movement) (persistence.Movement, error) {
	var rows []movementRow
	if err := c.insert(ctx, tableMovements, newMovementRow(movement), &rows); err != nil {
		return persistence.Movement{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) UpdateMovement(ctx context.Context, movement persistence.Movement) (persistence.Movement, error) {
	var rows []movementRow
	patch := map[string]any{
		"entrada":    movement.EntryAt,
		"saida":      movement.ExitAt,
		"status":     movement.Status,
		"observacao": movement.Observation,
		"deleted_at": movement.DeletedAt,
		"updated_at": movement.UpdatedAt,
	}
	if err := c.update(ctx, tableMovements, movement.ID, patch, &rows); err != nil {
		return persistence.Movement{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) GetMovement(ctx context.Context, id string) (persistence.Movement, error) {
	var rows []movementRow
	if err := c.selectRows(ctx, tableMovements, url.Values{"id": {eq(id)}}, &rows); err != nil {
		return persistence.Movement{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) ListMovements(ctx context.Context, filter persistence.MovementFilter) ([]persistence.Movement, error) {
	params := url.Values{
		"empresa_id": {eq(filter.SiteID)},
		"order":      {"entrada.desc,id.asc"},
	}
	if filter.PersonID != "" {
		params.Set("pessoa_id", eq(filter.PersonID))
	}
	if filter.Status != "" {
		params.Set("status", eq(filter.Status))
	}
	var rows []movementRow
	if err := c.selectRows(ctx, tableMovements, params, &rows); err != nil {
		return nil, err
	}
	movements := make([]persistence.Movement, 0, len(rows))
	for _, row := range rows {
		movements = append(movements, row.model())
	}
	return movements, nil
}

func (c *Client) DeleteMovementsForPerson(ctx context.Context, personID string) error {
	_, err := c.deleteRows(ctx, tableMovements, url.Values{"pessoa_id": {eq(personID)}})
	return err
}

func (c *Client) CreateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	user.Email = normalizeEmail(user.Email)
	var rows []userRow
	if err := c.insert(ctx, tableUsers, newUserRow(user), &rows); err != nil {
		return persistence.User{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) UpdateUser(ctx context.Context, user persistence.User) (persistence.User, error) {
	var rows []userRow
	patch := map[string]any{
		"email":         normalizeEmail(user.Email),
		"nome":          user.Name,
		"empresa_id":    user.SiteID,
		"papel":         user.Role,
		"password_hash": user.PasswordHash,
		"updated_at":    user.UpdatedAt,
	}
	if err := c.update(ctx, tableUsers, user.ID, patch, &rows); err != nil {
		return persistence.User{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) GetUser(ctx context.Context, id string) (persistence.User, error) {
	return c.findUser(ctx, url.Values{"id": {eq(id)}})
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (persistence.User, error) {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return persistence.User{}, persistence.ErrNotFound
	}
	return c.findUser(ctx, url.Values{"email": {eq(normalized)}})
}

func (c *Client) findUser(ctx context.Context, params url.Values) (persistence.User, error) {
	var rows []userRow
	if err := c.selectRows(ctx, tableUsers, params, &rows); err != nil {
		return persistence.User{}, err
	}
	row, err := first(rows)
	return row.model(), err
}

func (c *Client) ListUsers(ctx context.Context, siteID string) ([]persistence.User, error) {
	params := url.Values{"order": {"nome.asc,id.asc"}}
	if siteID != "" {
		params.Set("empresa_id", eq(siteID))
	}
	var rows []userRow
	if err := c.selectRows(ctx, tableUsers, params, &rows); err != nil {
		return nil, err
	}
	users := make([]persistence.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.model())
	}
	return users, nil
}

func (c *Client) CountUsers(ctx context.Context) (int, error) {
	return c.count(ctx, tableUsers)
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.deleteByID(ctx, tableUsers, id)
}

func (c *Client) AppendAudit(ctx context.Context, entry persistence.AuditEntry) error {
	details := entry.Details
	if details == nil {
		details = map[string]any{}
	}
	row := auditRow{
		ID:         entry.ID,
		SiteID:     entry.SiteID,
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		EntityName: entry.EntityName,
		Details:    details,
		CreatedAt:  entry.CreatedAt,
	}
	var rows []auditRow
	return c.insert(ctx, tableAudit, row, &rows)
}

func (c *Client) ListAudit(ctx context.Context, filter persistence.AuditFilter) ([]persistence.AuditEntry, error) {
	params := url.Values{"order": {"created_at.desc,id.asc"}}
	if filter.SiteID != "" {
		params.Set("empresa_id", eq(filter.SiteID))
	}
	if filter.Since != nil {
		params.Set("created_at", "gte."+filter.Since.UTC().Format(time.RFC3339Nano))
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	var rows []auditRow
	if err := c.selectRows(ctx, tableAudit, params, &rows); err != nil {
		return nil, err
	}
	entries := make([]persistence.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, row.model())
	}
	return entries, nil
}

func (c *Client) deleteByID(ctx context.Context, table, id string) error {
	deleted, err := c.deleteRows(ctx, table, url.Values{"id": {eq(id)}})
	if err != nil {
		return err
	}
	if deleted == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/marinagate/internal/persistence"
)

// UserServiceDeps wires the collaborators of a UserService.
type UserServiceDeps struct {
	Users        persistence.UserRepository
	Audit        AuditLogger
	HashPassword PasswordHasher
	IDGenerator  func() string
	Now          func() time.Time
	Logger       *slog.Logger
}

// UserService administers operator accounts. Admins act within their own site
// and cannot grant or touch the owner role; owners act anywhere.
type UserService struct {
	users        persistence.UserRepository
	audit        AuditLogger
	hashPassword PasswordHasher
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(deps UserServiceDeps) *UserService {
	s := &UserService{
		users:        deps.Users,
		audit:        deps.Audit,
		hashPassword: deps.HashPassword,
		idGenerator:  deps.IDGenerator,
		now:          deps.Now,
		logger:       defaultLogger(deps.Logger),
	}
	if s.audit == nil {
		s.audit = noopAudit{}
	}
	if s.hashPassword == nil {
		s.hashPassword = HashPassword
	}
	if s.idGenerator == nil {
		s.idGenerator = uuid.NewString
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// List returns the accounts visible to the principal ordered by email.
func (s *UserService) List(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin() {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, fmt.Errorf("user repository not configured")
	}

	siteID := ""
	if !principal.IsOwner() {
		var err error
		if siteID, err = activeSite(principal); err != nil {
			return nil, err
		}
	}

	records, err := s.users.ListUsers(ctx, siteID)
	if err != nil {
		return nil, persistenceError(err)
	}
	out := make([]User, 0, len(records))
	for _, r := range records {
		out = append(out, userFromRecord(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Email == out[j].Email {
			return out[i].ID < out[j].ID
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

// Create validates input and persists a new account.
func (s *UserService) Create(ctx context.Context, principal Principal, input UserInput) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Create",
		"principal_id", principal.UserID,
		"email", strings.ToLower(strings.TrimSpace(input.Email)),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	normalized := normalizeUserInput(input)
	if normalized.Role == "" {
		normalized.Role = RoleUser
	}
	if normalized.SiteID == "" && !principal.IsOwner() {
		normalized.SiteID = principal.SiteID
	}

	vErr := validateUserInput(normalized)
	vErr.merge(validatePassword(normalized.Password))
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = authorizeUserScope(principal, normalized.SiteID, normalized.Role); err != nil {
		return
	}

	var hash string
	if hash, err = s.hashPassword(normalized.Password); err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	now := s.now()
	var stored persistence.User
	stored, err = s.users.CreateUser(ctx, persistence.User{
		ID:           s.idGenerator(),
		Email:        normalized.Email,
		Name:         normalized.Name,
		SiteID:       normalized.SiteID,
		Role:         string(normalized.Role),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		err = mapUserRepoError(err)
		return
	}
	user = userFromRecord(stored)

	s.audit.Log(ctx, AuditEvent{
		SiteID:     user.SiteID,
		UserID:     principal.UserID,
		Action:     "criar_usuario",
		EntityType: "usuario",
		EntityID:   user.ID,
		EntityName: user.Name,
		Details:    map[string]any{"depois": userSnapshot(user)},
	})
	return
}

// Update applies a partial change to an account.
func (s *UserService) Update(ctx context.Context, principal Principal, userID string, patch UserPatch) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Update",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	if !principal.IsAdmin() {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	var existing persistence.User
	if existing, err = s.users.GetUser(ctx, userID); err != nil {
		err = mapUserRepoError(err)
		return
	}
	before := userFromRecord(existing)
	if err = authorizeUserScope(principal, before.SiteID, before.Role); err != nil {
		return
	}

	next := UserInput{Email: before.Email, Name: before.Name, SiteID: before.SiteID, Role: before.Role}
	if patch.Email != nil {
		next.Email = *patch.Email
	}
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.SiteID != nil {
		next.SiteID = *patch.SiteID
	}
	if patch.Role != nil {
		next.Role = *patch.Role
	}
	next = normalizeUserInput(next)

	vErr := validateUserInput(next)
	if patch.Password != nil {
		vErr.merge(validatePassword(*patch.Password))
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = authorizeUserScope(principal, next.SiteID, next.Role); err != nil {
		return
	}
	if principal.UserID == userID && next.Role != before.Role {
		err = fieldError("role", "cannot change own role")
		return
	}

	updated := existing
	updated.Email = next.Email
	updated.Name = next.Name
	updated.SiteID = next.SiteID
	updated.Role = string(next.Role)
	updated.UpdatedAt = s.now()
	if patch.Password != nil {
		if updated.PasswordHash, err = s.hashPassword(*patch.Password); err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	var stored persistence.User
	if stored, err = s.users.UpdateUser(ctx, updated); err != nil {
		err = mapUserRepoError(err)
		return
	}
	user = userFromRecord(stored)

	details := map[string]any{"antes": userSnapshot(before), "depois": userSnapshot(user)}
	if patch.Password != nil {
		details["senha_alterada"] = true
	}
	s.audit.Log(ctx, AuditEvent{
		SiteID:     user.SiteID,
		UserID:     principal.UserID,
		Action:     "editar_usuario",
		EntityType: "usuario",
		EntityID:   user.ID,
		EntityName: user.Name,
		Details:    details,
	})
	return
}

// Delete removes an account. Operators cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, principal Principal, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}

	logger := s.loggerWith(ctx, "Delete",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}
	if principal.UserID == userID {
		return fieldError("id", "cannot delete own account")
	}

	existing, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return mapUserRepoError(err)
	}
	target := userFromRecord(existing)
	if err = authorizeUserScope(principal, target.SiteID, target.Role); err != nil {
		return err
	}
	if err = s.users.DeleteUser(ctx, userID); err != nil {
		return mapUserRepoError(err)
	}

	s.audit.Log(ctx, AuditEvent{
		SiteID:     target.SiteID,
		UserID:     principal.UserID,
		Action:     "excluir_usuario",
		EntityType: "usuario",
		EntityID:   target.ID,
		EntityName: target.Name,
		Details:    map[string]any{"antes": userSnapshot(target)},
	})
	return nil
}

// authorizeUserScope checks that principal may manage an account of the given
// site and role.
func authorizeUserScope(principal Principal, siteID string, role Role) error {
	if principal.IsOwner() {
		return nil
	}
	if !principal.IsAdmin() {
		return ErrUnauthorized
	}
	if role == RoleOwner || siteID != principal.SiteID {
		return ErrUnauthorized
	}
	return nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Email:    strings.ToLower(strings.TrimSpace(input.Email)),
		Name:     strings.TrimSpace(input.Name),
		SiteID:   strings.TrimSpace(input.SiteID),
		Role:     Role(strings.ToLower(strings.TrimSpace(string(input.Role)))),
		Password: input.Password,
	}
}

func validateUserInput(input UserInput) *ValidationError {
	vErr := &ValidationError{}

	if input.Email == "" {
		vErr.add("email", "email is required")
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		vErr.add("email", "email is invalid")
	}
	if input.Name == "" {
		vErr.add("name", "name is required")
	}
	if !input.Role.Valid() {
		vErr.add("role", "role is invalid")
	}
	if input.SiteID == "" && input.Role != RoleOwner {
		vErr.add("site_id", "site is required")
	}
	return vErr
}

func validatePassword(password string) *ValidationError {
	if len([]rune(password)) < MinPasswordLength {
		return fieldError("password", fmt.Sprintf("password must have at least %d characters", MinPasswordLength))
	}
	return nil
}

func mapUserRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	case errors.Is(err, persistence.ErrConstraintViolation):
		return fieldError("role", "role is invalid")
	}
	return persistenceError(err)
}

func userSnapshot(u User) map[string]any {
	return map[string]any{
		"id":         u.ID,
		"email":      u.Email,
		"nome":       u.Name,
		"empresa_id": u.SiteID,
		"papel":      string(u.Role),
	}
}

package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/marinagate/internal/persistence"
	"github.com/example/marinagate/internal/token"
)

// TokenManager issues and parses access tokens.
type TokenManager interface {
	Issue(subject token.Subject) (string, time.Time, error)
	Parse(tokenString string) (token.Subject, error)
}

// AuthServiceDeps wires the collaborators of an AuthService.
type AuthServiceDeps struct {
	Users          persistence.UserRepository
	Tokens         TokenManager
	VerifyPassword PasswordVerifier
	HashPassword   PasswordHasher
	IDGenerator    func() string
	Now            func() time.Time
	Logger         *slog.Logger
}

// AuthService coordinates login and token validation.
type AuthService struct {
	users          persistence.UserRepository
	tokens         TokenManager
	verifyPassword PasswordVerifier
	hashPassword   PasswordHasher
	idGenerator    func() string
	now            func() time.Time
	logger         *slog.Logger
}

// NewAuthService constructs an AuthService with the provided dependencies.
func NewAuthService(deps AuthServiceDeps) *AuthService {
	s := &AuthService{
		users:          deps.Users,
		tokens:         deps.Tokens,
		verifyPassword: deps.VerifyPassword,
		hashPassword:   deps.HashPassword,
		idGenerator:    deps.IDGenerator,
		now:            deps.Now,
		logger:         defaultLogger(deps.Logger),
	}
	if s.verifyPassword == nil {
		s.verifyPassword = VerifyPassword
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

func (s *AuthService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AuthService", operation, attrs...)
}

// Authenticate validates credentials and issues an access token.
func (s *AuthService) Authenticate(ctx context.Context, params AuthenticateParams) (result AuthenticateResult, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	email := strings.TrimSpace(strings.ToLower(params.Email))
	logger := s.loggerWith(ctx, "Authenticate", "email", email)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "authentication failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", result.User.ID).InfoContext(ctx, "authentication succeeded")
	}()

	if email == "" || params.Password == "" {
		err = ErrInvalidCredentials
		return
	}

	var record persistence.User
	record, err = s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = persistenceError(err)
		return
	}

	if vErr := s.verifyPassword(record.PasswordHash, params.Password); vErr != nil {
		err = ErrInvalidCredentials
		return
	}

	user := userFromRecord(record)
	var signed string
	var expiresAt time.Time
	signed, expiresAt, err = s.tokens.Issue(token.Subject{
		UserID: user.ID,
		Name:   user.Name,
		SiteID: user.SiteID,
		Role:   string(user.Role),
	})
	if err != nil {
		return
	}

	result = AuthenticateResult{User: user, Token: signed, ExpiresAt: expiresAt}
	return
}

// ValidateToken parses an access token and reloads its user so role and site
// changes apply to tokens issued before them.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (principal Principal, err error) {
	if s == nil {
		err = fmt.Errorf("AuthService is nil")
		return
	}
	if s.users == nil || s.tokens == nil {
		err = fmt.Errorf("auth service not configured")
		return
	}

	trimmed := strings.TrimSpace(tokenString)
	if trimmed == "" {
		err = ErrInvalidCredentials
		return
	}

	subject, pErr := s.tokens.Parse(trimmed)
	if pErr != nil {
		s.loggerWith(ctx, "ValidateToken").WarnContext(ctx, "token rejected", "error", pErr)
		err = ErrInvalidCredentials
		return
	}

	record, gErr := s.users.GetUser(ctx, subject.UserID)
	if gErr != nil {
		if errors.Is(gErr, persistence.ErrNotFound) {
			err = ErrInvalidCredentials
			return
		}
		err = persistenceError(gErr)
		return
	}

	principal = userFromRecord(record).Principal()
	return
}

// Profile returns the account behind a principal.
func (s *AuthService) Profile(ctx context.Context, principal Principal) (User, error) {
	if s == nil || s.users == nil {
		return User{}, fmt.Errorf("auth service not configured")
	}
	record, err := s.users.GetUser(ctx, principal.UserID)
	if err != nil {
		return User{}, mapUserRepoError(err)
	}
	return userFromRecord(record), nil
}

// BootstrapOwner creates an owner account when no account exists yet. It
// reports whether an account was created.
func (s *AuthService) BootstrapOwner(ctx context.Context, email, name, password string) (created bool, err error) {
	if s == nil || s.users == nil {
		return false, fmt.Errorf("auth service not configured")
	}

	logger := s.loggerWith(ctx, "BootstrapOwner", "email", strings.ToLower(strings.TrimSpace(email)))
	defer func() {
		switch {
		case err != nil:
			logger.ErrorContext(ctx, "failed to bootstrap owner", "error", err, "error_kind", ErrorKind(err))
		case created:
			logger.InfoContext(ctx, "owner account created")
		default:
			logger.DebugContext(ctx, "accounts already present, bootstrap skipped")
		}
	}()

	count, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, persistenceError(err)
	}
	if count > 0 {
		return false, nil
	}

	if strings.TrimSpace(name) == "" {
		name = "Proprietário"
	}
	input := normalizeUserInput(UserInput{Email: email, Name: name, Role: RoleOwner, Password: password})
	vErr := validateUserInput(input)
	vErr.merge(validatePassword(input.Password))
	if vErr.HasErrors() {
		return false, vErr
	}

	hash, err := s.hashPassword(input.Password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	now := s.now()
	if _, err = s.users.CreateUser(ctx, persistence.User{
		ID:           s.idGenerator(),
		Email:        input.Email,
		Name:         input.Name,
		Role:         string(RoleOwner),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}); err != nil {
		return false, mapUserRepoError(err)
	}
	return true, nil
}

// Package token issues and validates the HS256 access tokens handed to
// operators after login.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrExpired is returned for tokens past their expiry.
	ErrExpired = errors.New("token: expired")
	// ErrInvalid is returned for tokens that fail signature or claim checks.
	ErrInvalid = errors.New("token: invalid")
)

// Claims represents the JWT claims carried by access tokens.
type Claims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	SiteID string `json:"empresa_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// Subject is the identity encoded into a token.
type Subject struct {
	UserID string
	Name   string
	SiteID string
	Role   string
}

// Manager signs and parses access tokens.
type Manager struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithIssuer overrides the iss claim.
func WithIssuer(issuer string) Option {
	return func(m *Manager) { m.issuer = issuer }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewManager constructs a Manager. The signing key must not be empty.
func NewManager(signingKey string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if signingKey == "" {
		return nil, errors.New("token: signing key is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("token: ttl must be positive, got %s", ttl)
	}
	m := &Manager{
		signingKey: []byte(signingKey),
		issuer:     "marinagate",
		ttl:        ttl,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue signs a token for subject and returns it with its expiry.
func (m *Manager) Issue(subject Subject) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: subject.UserID,
		Name:   subject.Name,
		SiteID: subject.SiteID,
		Role:   subject.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject.UserID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
		},
	}).SignedString(m.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates tokenString and returns the encoded subject.
func (m *Manager) Parse(tokenString string) (Subject, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return m.signingKey, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Subject{}, ErrExpired
		}
		return Subject{}, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UserID == "" {
		return Subject{}, ErrInvalid
	}
	return Subject{UserID: claims.UserID, Name: claims.Name, SiteID: claims.SiteID, Role: claims.Role}, nil
}

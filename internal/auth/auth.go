// Package auth is the identity boundary: it hashes credentials, issues and
// parses session tokens, and converts the loosely-typed role claim into the
// strict domain.Role exactly once.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"classboard/internal/app"
	"classboard/internal/domain"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Name string `json:"name,omitempty"`
	Role string `json:"role,omitempty"`
}

// Service signs users up and in against the profile store.
type Service struct {
	store    app.ProfileStore
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
	newID    func() string
	hashCost int
}

func NewService(store app.ProfileStore, secret string, tokenTTL time.Duration) *Service {
	return &Service{
		store:    store,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
		newID:    uuid.NewString,
		hashCost: bcrypt.DefaultCost,
	}
}

// NewServiceWithClock is test-only for deterministic timestamps. It also
// drops the bcrypt cost to the minimum to keep tests fast.
func NewServiceWithClock(store app.ProfileStore, secret string, tokenTTL time.Duration, now func() time.Time) *Service {
	svc := NewService(store, secret, tokenTTL)
	svc.now = now
	svc.hashCost = bcrypt.MinCost
	return svc
}

// SignUp registers an account. The role string is validated here and
// nowhere else; everything downstream trusts domain.Role.
func (s *Service) SignUp(ctx context.Context, email, password, name, role string) (domain.Profile, error) {
	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return domain.Profile{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return domain.Profile{}, err
	}
	profile := domain.Profile{
		ID:           s.newID(),
		Name:         name,
		Email:        strings.ToLower(strings.TrimSpace(email)),
		Role:         parsedRole,
		PasswordHash: hash,
		CreatedAt:    s.now(),
	}
	if err := s.store.CreateProfile(ctx, profile); err != nil {
		return domain.Profile{}, err
	}
	return profile, nil
}

// SignIn checks credentials and returns a signed token plus the profile.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, domain.Profile, error) {
	profile, err := s.store.ProfileByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, domain.ErrProfileNotFound) {
			return "", domain.Profile{}, domain.ErrInvalidCredentials
		}
		return "", domain.Profile{}, err
	}
	if err := bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)); err != nil {
		return "", domain.Profile{}, domain.ErrInvalidCredentials
	}
	token, err := s.GenerateToken(profile)
	if err != nil {
		return "", domain.Profile{}, err
	}
	return token, profile, nil
}

// Profile returns the stored profile for an authenticated caller.
func (s *Service) Profile(ctx context.Context, id string) (domain.Profile, error) {
	return s.store.ProfileByID(ctx, id)
}

// GenerateToken signs an HS256 JWT carrying the profile's identity claims.
func (s *Service) GenerateToken(profile domain.Profile) (string, error) {
	now := s.now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Subject:   profile.ID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(s.tokenTTL).Unix(),
		},
		Name: profile.Name,
		Role: string(profile.Role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseToken validates a token string and returns the typed identity.
func (s *Service) ParseToken(raw string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, domain.ErrInvalidCredentials
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return Identity{}, domain.ErrInvalidCredentials
	}
	return Identity{UserID: claims.Subject, Name: claims.Name, Role: role}, nil
}

// Identity is the authenticated caller carried through request handling.
type Identity struct {
	UserID string
	Name   string
	Role   domain.Role
}

package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/maisgenetica/backend/internal/infrastructure/config"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for any failed login
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrLoginDisabled is returned when no password hash is configured
var ErrLoginDisabled = errors.New("administrator login is not configured")

// dummyHash keeps the work factor of a failed username equal to a failed password
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("maisgenetica"), bcrypt.DefaultCost)

// AdminAuthenticator checks the configured administrator credentials and
// manages the resulting sessions
type AdminAuthenticator struct {
	username     string
	passwordHash []byte
	tokens       *JWTService
	blacklist    TokenBlacklist
}

// NewAdminAuthenticator creates a new AdminAuthenticator
func NewAdminAuthenticator(cfg config.AdminConfig, tokens *JWTService, blacklist TokenBlacklist) *AdminAuthenticator {
	if blacklist == nil {
		blacklist = NewInMemoryTokenBlacklist()
	}
	return &AdminAuthenticator{
		username:     cfg.Username,
		passwordHash: []byte(cfg.PasswordHash),
		tokens:       tokens,
		blacklist:    blacklist,
	}
}

// Login issues a token when username and password match
func (a *AdminAuthenticator) Login(_ context.Context, username, password string) (*Token, error) {
	if len(a.passwordHash) == 0 {
		return nil, ErrLoginDisabled
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	hash := a.passwordHash
	if !userOK {
		hash = dummyHash
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil || !userOK {
		return nil, ErrInvalidCredentials
	}

	return a.tokens.GenerateAdminToken(a.username)
}

// Authenticate validates a bearer token and rejects revoked ones
func (a *AdminAuthenticator) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := a.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	revoked, err := a.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

// Logout revokes the session until its natural expiry
func (a *AdminAuthenticator) Logout(ctx context.Context, claims *Claims) error {
	return a.blacklist.Revoke(ctx, claims.ID, time.Until(claims.ExpiresAtTime()))
}

// HashPassword returns the bcrypt hash to put in admin.password_hash
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", fmt.Errorf("password must have at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

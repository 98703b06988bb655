package shop

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated subject
type Identity interface {
	ID() string
	Username() string
	Email() string
	Role() string
}

// Authenticator holds methods to deal with authentication
type Authenticator interface {
	Login(ctx context.Context, identifier Identifier, password string, rememberMe bool) (string, Identity, error)
	LoginAdmin(ctx context.Context, identifier Identifier, password string, rememberMe bool) (string, Identity, error)
	ClaimsFromToken(token string) (AuthClaims, error)
}

// Config holds auth options, loaded once at startup and read-only after that
type Config interface {
	GetSigningKey() string
	GetSigningMethod() string
	GetContextKey() string
	GetCookieName() string
	GetTokenExpiration() time.Duration
	GetExtendedTokenDuration() time.Duration
	GetTokenLookup() string
	GetAuthScheme() string
	GetIssuer() string
	IsProduction() bool
}

// TokenService issues and validates session tokens
type TokenService interface {
	Issue(identity Identity, rememberMe bool) (string, error)
	SignClaims(claims *JWTClaims) (string, error)
	Validate(tokenString string) (AuthClaims, error)
}

// IdentityProvider ensures we have a store to retrieve auth identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier Identifier, password string) (Identity, error)
	FindIdentity(ctx context.Context, identifier Identifier) (Identity, error)
}

// RememberPreferenceStore persists the remember-me preference on an identity
type RememberPreferenceStore interface {
	SetRememberMe(ctx context.Context, id string, rememberMe bool) error
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SHOP "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SHOP "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SHOP "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SHOP "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}

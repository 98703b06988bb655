package authware

import (
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

// JWKSValidator validates tokens signed by an external issuer against its
// published JWK set. The main session path uses the local HMAC validator;
// this exists for deployments that front the API with an identity
// provider issuing RS256 tokens.
type JWKSValidator struct {
	jwks *keyfunc.MultipleJWKS
}

// NewJWKSValidator fetches the JWK sets and keeps them refreshed in the
// background.
func NewJWKSValidator(jwkSetURLs []string, refreshErrorHandler func(error)) (*JWKSValidator, error) {
	if len(jwkSetURLs) == 0 {
		return nil, fmt.Errorf("at least one JWK set URL is required")
	}

	opts := keyfunc.Options{
		RefreshErrorHandler: refreshErrorHandler,
		RefreshInterval:     time.Hour,
		RefreshRateLimit:    time.Minute * 5,
		RefreshTimeout:      time.Second * 10,
		RefreshUnknownKID:   true,
	}

	m := make(map[string]keyfunc.Options, len(jwkSetURLs))
	for _, url := range jwkSetURLs {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWK sets: %w", err)
	}

	return &JWKSValidator{jwks: multi}, nil
}

// Validate implements TokenValidator
func (v *JWKSValidator) Validate(tokenString string) (AuthClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &externalClaims{}, v.jwks.Keyfunc)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*externalClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("could not decode token claims")
	}

	return claims, nil
}

// externalClaims adapts an external issuer's token payload to AuthClaims.
// Role semantics follow the session tokens: "user" below "admin".
type externalClaims struct {
	jwt.RegisteredClaims
	UID      string `json:"uid,omitempty"`
	Uname    string `json:"uname,omitempty"`
	UserRole string `json:"role,omitempty"`
}

func (c *externalClaims) Subject() string { return c.RegisteredClaims.Subject }

func (c *externalClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

func (c *externalClaims) Username() string { return c.Uname }

func (c *externalClaims) Role() string { return c.UserRole }

func (c *externalClaims) HasRole(role string) bool { return c.UserRole == role }

func (c *externalClaims) IsAtLeast(minRole string) bool {
	hierarchy := map[string]int{"user": 0, "admin": 1}

	current, ok := hierarchy[c.UserRole]
	if !ok {
		return false
	}

	min, ok := hierarchy[minRole]
	if !ok {
		return false
	}

	return current >= min
}

var _ TokenValidator = (*JWKSValidator)(nil)
var _ AuthClaims = (*externalClaims)(nil)

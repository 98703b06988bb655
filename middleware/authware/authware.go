// Package authware is the request-authentication middleware: it extracts
// a session token from the request (cookie first, Authorization header as
// fallback), validates it, and attaches the decoded claims to the request.
// On a failed validation it clears the session cookie so a poisoned client
// does not keep presenting the same stale token.
package authware

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultContextKey  = "claims"
	defaultCookieName  = "token"
	defaultAuthScheme  = "Bearer"
	defaultTokenLookup = "cookie:" + defaultCookieName + ",header:" + fiber.HeaderAuthorization
)

// ErrTokenMissing is returned when no token rides in either location
var ErrTokenMissing = errors.New("missing or malformed token")

// TokenValidator validates tokens without tying the middleware to a
// specific signing implementation. It mirrors the root package's
// TokenService.Validate.
type TokenValidator interface {
	Validate(tokenString string) (AuthClaims, error)
}

// AuthClaims is the structured-claims surface the middleware needs. It
// mirrors the root package's AuthClaims to avoid an import cycle.
type AuthClaims interface {
	Subject() string
	UserID() string
	Username() string
	Role() string
	HasRole(role string) bool
	IsAtLeast(minRole string) bool
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(*fiber.Ctx) bool
	// SuccessHandler runs after claims are attached; defaults to Next
	SuccessHandler fiber.Handler
	// ErrorHandler renders authentication failures; the default sends 401
	ErrorHandler func(*fiber.Ctx, error) error

	// TokenValidator is required for token validation
	TokenValidator TokenValidator

	ContextKey  string
	TokenLookup string
	AuthScheme  string

	// CookieName and CookieSecure describe the session cookie so it can
	// be cleared when a presented token fails validation
	CookieName   string
	CookieSecure bool

	// Optional RBAC checks evaluated after validation
	RequiredRole string
	MinimumRole  string
	RoleChecker  func(AuthClaims, string) bool

	// ContextEnricher propagates claims beyond the fiber locals, e.g.
	// into the standard request context
	ContextEnricher func(*fiber.Ctx, AuthClaims)
}

// New builds the middleware handler
func New(config ...Config) fiber.Handler {
	cfg := defaultConfig(config...)

	extractors := tokenExtractors(cfg.TokenLookup, cfg.AuthScheme)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw, err := extractToken(c, extractors)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		claims, err := cfg.TokenValidator.Validate(raw)
		if err != nil {
			clearSessionCookie(c, cfg)
			return cfg.ErrorHandler(c, err)
		}

		if err := roleChecks(claims, cfg); err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, claims)

		if cfg.ContextEnricher != nil {
			cfg.ContextEnricher(c, claims)
		}

		return cfg.SuccessHandler(c)
	}
}

func defaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if errors.Is(err, ErrTokenMissing) {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"success": false,
					"message": "please sign in",
				})
			}
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "invalid or expired session",
			})
		}
	}

	if cfg.TokenValidator == nil {
		panic("AUTH: middleware configuration: TokenValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = defaultContextKey
	}

	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = "cookie:" + cfg.CookieName + ",header:" + fiber.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = defaultAuthScheme
	}

	return cfg
}

func roleChecks(claims AuthClaims, cfg Config) error {
	if cfg.RequiredRole == "" && cfg.MinimumRole == "" && cfg.RoleChecker == nil {
		return nil
	}

	if cfg.RequiredRole != "" {
		if !claims.HasRole(cfg.RequiredRole) {
			return fmt.Errorf("access denied: required role %q not found", cfg.RequiredRole)
		}
	}

	if cfg.MinimumRole != "" {
		if !claims.IsAtLeast(cfg.MinimumRole) {
			return fmt.Errorf("access denied: minimum role %q required", cfg.MinimumRole)
		}
	}

	if cfg.RoleChecker != nil {
		roleToCheck := cfg.RequiredRole
		if roleToCheck == "" {
			roleToCheck = cfg.MinimumRole
		}

		if roleToCheck != "" && !cfg.RoleChecker(claims, roleToCheck) {
			return fmt.Errorf("access denied: custom role check failed for role %q", roleToCheck)
		}
	}

	return nil
}

func clearSessionCookie(c *fiber.Ctx, cfg Config) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		Path:     "/",
	})
}

// TokenExtractor pulls a raw token out of a request
type TokenExtractor func(c *fiber.Ctx) (string, error)

func extractToken(c *fiber.Ctx, extractors []TokenExtractor) (string, error) {
	var raw string
	var err error

	for _, extractor := range extractors {
		raw, err = extractor(c)
		if raw != "" && err == nil {
			return raw, nil
		}
	}

	if err == nil {
		err = ErrTokenMissing
	}

	return "", err
}

// tokenExtractors parses a lookup expression such as
// "cookie:token,header:Authorization" into an ordered extractor chain.
func tokenExtractors(tokenLookup, authScheme string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader returns a function that extracts the token from the
// request header, stripping the auth scheme prefix.
func tokenFromHeader(header, authScheme string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		a := c.Get(header)
		scheme := strings.TrimSpace(authScheme)
		l := len(scheme)
		if l == 0 {
			return "", ErrTokenMissing
		}
		if len(a) > l+1 && strings.EqualFold(a[:l], scheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", ErrTokenMissing
	}
}

// tokenFromQuery returns a function that extracts the token from the
// query string.
func tokenFromQuery(param string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Query(param)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

// tokenFromCookie returns a function that extracts the token from the
// named cookie.
func tokenFromCookie(name string) TokenExtractor {
	return func(c *fiber.Ctx) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", ErrTokenMissing
		}
		return token, nil
	}
}

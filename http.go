package shop

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/openmerce/go-shop/middleware/authware"
)

// SessionCookieMaxAge is fixed at 7 days regardless of the token TTL
// inside the cookie. A client may therefore hold a cookie whose token
// expired long ago; the verifier still rejects the token, so the
// inconsistency is cosmetic. Kept as-is on purpose.
const SessionCookieMaxAge = 7 * 24 * time.Hour

// SessionCookies writes and clears the session cookie
type SessionCookies struct {
	name     string
	secure   bool
	sameSite string
}

// NewSessionCookies derives cookie attributes from config: http-only
// always, secure plus SameSite=None in production, SameSite=Lax in
// development so local non-TLS setups keep working.
func NewSessionCookies(cfg Config) *SessionCookies {
	sameSite := "Lax"
	if cfg.IsProduction() {
		sameSite = "None"
	}

	return &SessionCookies{
		name:     cfg.GetCookieName(),
		secure:   cfg.IsProduction(),
		sameSite: sameSite,
	}
}

// Name returns the cookie name
func (s *SessionCookies) Name() string {
	return s.name
}

// Set writes the session cookie carrying the token
func (s *SessionCookies) Set(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.name,
		Value:    token,
		Expires:  time.Now().Add(SessionCookieMaxAge),
		MaxAge:   int(SessionCookieMaxAge / time.Second),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite,
		Path:     "/",
	})
}

// Clear expires the session cookie
func (s *SessionCookies) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite,
		Path:     "/",
	})
}

// ProtectedRoute builds the request-authentication middleware for the
// given config and validator: cookie-first/header-fallback extraction,
// stale-cookie clearing, claims into locals and the request context.
func ProtectedRoute(cfg Config, validator TokenValidator) fiber.Handler {
	return authware.New(authware.Config{
		TokenValidator: authwareValidator{validator},
		ContextKey:     cfg.GetContextKey(),
		TokenLookup:    cfg.GetTokenLookup(),
		AuthScheme:     cfg.GetAuthScheme(),
		CookieName:     cfg.GetCookieName(),
		CookieSecure:   cfg.IsProduction(),
		ErrorHandler:   authErrorHandler,
		ContextEnricher: func(c *fiber.Ctx, claims authware.AuthClaims) {
			if authClaims, ok := claims.(AuthClaims); ok {
				c.SetUserContext(WithClaimsContext(c.UserContext(), authClaims))
			}
		},
	})
}

// RequireAdmin guards a route group behind the admin role. Runs strictly
// after ProtectedRoute.
func RequireAdmin(contextKey string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiber(c, contextKey)
		if !ok {
			return WriteError(c, ErrUnableToFindSession)
		}

		if !claims.HasRole(RoleAdmin) {
			return WriteError(c, ErrAdminRequired)
		}

		return c.Next()
	}
}

// RequireOwnerOrAdmin authorizes the authenticated claims against the
// owner id carried in the named route parameter.
func RequireOwnerOrAdmin(contextKey, param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, ok := ClaimsFromFiber(c, contextKey)
		if !ok {
			return WriteError(c, ErrUnableToFindSession)
		}

		if err := Authorize(claims, c.Params(param)); err != nil {
			return WriteError(c, err)
		}

		return c.Next()
	}
}

// WriteError renders an error as the JSON envelope every endpoint uses
func WriteError(c *fiber.Ctx, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "an unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	body := fiber.Map{
		"success": false,
		"message": richErr.Message,
	}

	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	if len(richErr.Metadata) > 0 {
		body["details"] = richErr.Metadata
	}

	return c.Status(HTTPStatus(richErr)).JSON(body)
}

// authErrorHandler is wired into the middleware: the status code is 401
// for every failure mode so expired and forged tokens are not
// distinguishable from the outside.
func authErrorHandler(c *fiber.Ctx, err error) error {
	if errors.Is(err, authware.ErrTokenMissing) {
		return WriteError(c, ErrUnableToFindSession)
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return WriteError(c, richErr)
	}

	return WriteError(c, ErrTokenMalformed)
}

type authwareValidator struct {
	v TokenValidator
}

func (a authwareValidator) Validate(tokenString string) (authware.AuthClaims, error) {
	claims, err := a.v.Validate(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

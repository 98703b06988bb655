package authware_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openmerce/go-shop/middleware/authware"
)

type stubClaims struct {
	subject string
	role    string
}

func (s stubClaims) Subject() string  { return s.subject }
func (s stubClaims) UserID() string   { return s.subject }
func (s stubClaims) Username() string { return s.subject }
func (s stubClaims) Role() string     { return s.role }

func (s stubClaims) HasRole(role string) bool { return s.role == role }

func (s stubClaims) IsAtLeast(minRole string) bool {
	if s.role == "admin" {
		return true
	}
	return s.role == minRole
}

type stubValidator struct {
	accept map[string]stubClaims
}

func (v stubValidator) Validate(token string) (authware.AuthClaims, error) {
	claims, ok := v.accept[token]
	if !ok {
		return nil, fmt.Errorf("token rejected")
	}
	return claims, nil
}

func newApp(cfg authware.Config) *fiber.App {
	app := fiber.New()
	app.Get("/", authware.New(cfg), func(c *fiber.Ctx) error {
		claims := c.Locals(cfg.ContextKey).(authware.AuthClaims)
		return c.SendString(claims.Username())
	})
	return app
}

func validator() stubValidator {
	return stubValidator{accept: map[string]stubClaims{
		"good-token":  {subject: "gopher", role: "user"},
		"admin-token": {subject: "root", role: "admin"},
	}}
}

func TestExtractionOrder(t *testing.T) {
	cfg := authware.Config{
		TokenValidator: validator(),
		ContextKey:     "claims",
		TokenLookup:    "cookie:token,header:Authorization",
		AuthScheme:     "Bearer",
		CookieName:     "token",
	}
	app := newApp(cfg)

	t.Run("Cookie only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "good-token"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Header only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer good-token")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Cookie takes precedence over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "bad-token"})
		req.Header.Set("Authorization", "Bearer good-token")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Header scheme must match", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic good-token")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Nothing presented", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRoleGuards(t *testing.T) {
	t.Run("RequiredRole", func(t *testing.T) {
		app := newApp(authware.Config{
			TokenValidator: validator(),
			ContextKey:     "claims",
			RequiredRole:   "admin",
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "good-token"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "admin-token"})

		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("MinimumRole", func(t *testing.T) {
		app := newApp(authware.Config{
			TokenValidator: validator(),
			ContextKey:     "claims",
			MinimumRole:    "user",
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "good-token"})

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestFailedValidationClearsCookie(t *testing.T) {
	app := newApp(authware.Config{
		TokenValidator: validator(),
		ContextKey:     "claims",
		CookieName:     "token",
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "stale-token"})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Set-Cookie"))
}

func TestJWKSValidator(t *testing.T) {
	// A static symmetric JWK set; "k" is "secret-key-bytes" base64url
	// encoded. Real deployments publish RSA or EC keys, the resolution
	// path is identical.
	jwksJSON := `{
      "keys": [
        {
          "kty": "oct",
          "kid": "local-jwk",
          "k":   "c2VjcmV0LWtleS1ieXRlcw",
          "alg": "HS256"
        }
      ]
    }`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(jwksJSON))
	}))
	defer ts.Close()

	validator, err := authware.NewJWKSValidator([]string{ts.URL}, nil)
	require.NoError(t, err)

	signingKey := []byte("secret-key-bytes")

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "u-42",
		"uid":   "u-42",
		"uname": "gopher",
		"role":  "user",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	token.Header["kid"] = "local-jwk"
	signed, err := token.SignedString(signingKey)
	require.NoError(t, err)

	t.Run("Resolves the key and maps the claims", func(t *testing.T) {
		claims, err := validator.Validate(signed)
		require.NoError(t, err)

		assert.Equal(t, "u-42", claims.UserID())
		assert.Equal(t, "gopher", claims.Username())
		assert.Equal(t, "user", claims.Role())
		assert.True(t, claims.IsAtLeast("user"))
		assert.False(t, claims.IsAtLeast("admin"))
	})

	t.Run("Rejects a tampered token", func(t *testing.T) {
		_, err := validator.Validate(signed + "x")
		assert.Error(t, err)
	})

	t.Run("Rejects an unknown kid", func(t *testing.T) {
		other := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u-43"})
		other.Header["kid"] = "rotated-away"
		signedOther, err := other.SignedString(signingKey)
		require.NoError(t, err)

		_, err = validator.Validate(signedOther)
		assert.Error(t, err)
	})

	t.Run("Works as the middleware validator", func(t *testing.T) {
		app := newApp(authware.Config{
			TokenValidator: validator,
			ContextKey:     "claims",
		})

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+signed)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestNewJWKSValidatorRequiresURLs(t *testing.T) {
	_, err := authware.NewJWKSValidator(nil, nil)
	assert.Error(t, err)
}

func TestFilterSkipsMiddleware(t *testing.T) {
	app := fiber.New()
	app.Get("/", authware.New(authware.Config{
		TokenValidator: validator(),
		Filter:         func(c *fiber.Ctx) bool { return true },
	}), func(c *fiber.Ctx) error {
		return c.SendString("open")
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

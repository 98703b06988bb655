package shop_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	shop "github.com/openmerce/go-shop"
)

// testConfig implements shop.Config with fixed values
type testConfig struct {
	production bool
}

func (c testConfig) GetSigningKey() string                   { return testSigningKey }
func (c testConfig) GetSigningMethod() string                { return "HS256" }
func (c testConfig) GetContextKey() string                   { return "claims" }
func (c testConfig) GetCookieName() string                   { return "token" }
func (c testConfig) GetTokenExpiration() time.Duration       { return time.Hour }
func (c testConfig) GetExtendedTokenDuration() time.Duration { return 7 * 24 * time.Hour }
func (c testConfig) GetTokenLookup() string                  { return "cookie:token,header:Authorization" }
func (c testConfig) GetAuthScheme() string                   { return "Bearer" }
func (c testConfig) GetIssuer() string                       { return "test-issuer" }
func (c testConfig) IsProduction() bool                      { return c.production }

func newProtectedApp(t *testing.T, ts shop.TokenService) *fiber.App {
	t.Helper()

	cfg := testConfig{}
	app := fiber.New()

	app.Get("/private", shop.ProtectedRoute(cfg, ts), func(c *fiber.Ctx) error {
		claims, ok := shop.ClaimsFromFiber(c, cfg.GetContextKey())
		require.True(t, ok)
		return c.JSON(fiber.Map{"success": true, "user": claims.Username()})
	})

	app.Get("/admin", shop.ProtectedRoute(cfg, ts), shop.RequireAdmin(cfg.GetContextKey()), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	app.Get("/owned/:id", shop.ProtectedRoute(cfg, ts), shop.RequireOwnerOrAdmin(cfg.GetContextKey(), "id"), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true})
	})

	return app
}

func issueTestToken(t *testing.T, ts shop.TokenService, identity shop.Identity, rememberMe bool) string {
	t.Helper()
	token, err := ts.Issue(identity, rememberMe)
	require.NoError(t, err)
	return token
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := map[string]any{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func TestProtectedRouteWithoutToken(t *testing.T) {
	app := newProtectedApp(t, newLiveTokenService())

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "please sign in", body["message"])
}

func TestProtectedRouteCookie(t *testing.T) {
	ts := newLiveTokenService()
	app := newProtectedApp(t, ts)
	token := issueTestToken(t, ts, testIdentity(), false)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "gopher", body["user"])
}

func TestProtectedRouteHeaderFallback(t *testing.T) {
	ts := newLiveTokenService()
	app := newProtectedApp(t, ts)
	token := issueTestToken(t, ts, testIdentity(), false)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProtectedRouteCookieWinsOverHeader(t *testing.T) {
	// When both locations carry a token the cookie is authoritative: an
	// expired cookie fails the request even if the header token is good.
	issuedAt := time.Now().Add(-2 * time.Hour)
	expiredService := shop.NewTokenService([]byte(testSigningKey), time.Hour, 7*24*time.Hour, "test-issuer", nil).
		WithClock(func() time.Time { return issuedAt })

	expired := issueTestToken(t, expiredService, testIdentity(), false)

	ts := newLiveTokenService()
	valid := issueTestToken(t, ts, testIdentity(), false)

	app := newProtectedApp(t, ts)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: expired})
	req.Header.Set("Authorization", "Bearer "+valid)

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProtectedRouteExpiredTokenClearsCookie(t *testing.T) {
	issuedAt := time.Now().Add(-2 * time.Hour)
	backdated := shop.NewTokenService([]byte(testSigningKey), time.Hour, 7*24*time.Hour, "test-issuer", nil).
		WithClock(func() time.Time { return issuedAt })

	expired := issueTestToken(t, backdated, testIdentity(), false)

	app := newProtectedApp(t, newLiveTokenService())

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: expired})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	setCookie := resp.Header.Get("Set-Cookie")
	require.NotEmpty(t, setCookie, "a failed validation should clear the stale cookie")
	assert.True(t, strings.HasPrefix(setCookie, "token=;"), "cookie value should be emptied, got %q", setCookie)
	assert.Contains(t, strings.ToLower(setCookie), "expires=")
}

func TestProtectedRouteTamperedToken(t *testing.T) {
	forged := shop.NewTokenService([]byte("attacker-key"), time.Hour, 7*24*time.Hour, "test-issuer", nil)
	token := issueTestToken(t, forged, testIdentity(), false)

	app := newProtectedApp(t, newLiveTokenService())

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestClaimsReachRequestContext(t *testing.T) {
	// The middleware enriches the standard request context alongside the
	// fiber locals, so code below the handler can read the claims without
	// knowing about fiber.
	ts := newLiveTokenService()
	cfg := testConfig{}

	app := fiber.New()
	app.Get("/ctx", shop.ProtectedRoute(cfg, ts), func(c *fiber.Ctx) error {
		claims, ok := shop.GetClaims(c.UserContext())
		require.True(t, ok)
		return c.JSON(fiber.Map{"success": true, "user": claims.Username()})
	})

	token := issueTestToken(t, ts, testIdentity(), false)

	req := httptest.NewRequest(http.MethodGet, "/ctx", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "gopher", body["user"])
}

func TestProtectedRouteWithValidatorFunc(t *testing.T) {
	// Any func can stand in for the token service; useful for gateways
	// that delegate validation elsewhere.
	rejectAll := shop.TokenValidatorFunc(func(string) (shop.AuthClaims, error) {
		return nil, shop.ErrTokenSignature
	})

	app := fiber.New()
	app.Get("/private", shop.ProtectedRoute(testConfig{}, rejectAll), func(c *fiber.Ctx) error {
		return c.SendStatus(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: "whatever"})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	t.Run("Nil func counts as malformed", func(t *testing.T) {
		var nilValidator shop.TokenValidatorFunc

		_, err := nilValidator.Validate("anything")
		assert.ErrorIs(t, err, shop.ErrTokenMalformed)
	})
}

func TestRequireAdmin(t *testing.T) {
	ts := newLiveTokenService()
	app := newProtectedApp(t, ts)

	admin := TestIdentity{id: "a-1", username: "root", role: shop.RoleAdmin}
	user := testIdentity()

	tests := []struct {
		name       string
		identity   shop.Identity
		wantStatus int
	}{
		{name: "Admin passes", identity: admin, wantStatus: http.StatusOK},
		{name: "User is rejected", identity: user, wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := issueTestToken(t, ts, tt.identity, false)

			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.AddCookie(&http.Cookie{Name: "token", Value: token})

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestRequireOwnerOrAdmin(t *testing.T) {
	ts := newLiveTokenService()
	app := newProtectedApp(t, ts)

	owner := TestIdentity{id: "owner-1", username: "owner", role: shop.RoleUser}
	other := TestIdentity{id: "other-1", username: "other", role: shop.RoleUser}
	admin := TestIdentity{id: "admin-1", username: "root", role: shop.RoleAdmin}

	tests := []struct {
		name       string
		identity   shop.Identity
		path       string
		wantStatus int
	}{
		{name: "Owner acts on own resource", identity: owner, path: "/owned/owner-1", wantStatus: http.StatusOK},
		{name: "Admin acts on any resource", identity: admin, path: "/owned/owner-1", wantStatus: http.StatusOK},
		{name: "Stranger is rejected", identity: other, path: "/owned/owner-1", wantStatus: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := issueTestToken(t, ts, tt.identity, false)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.AddCookie(&http.Cookie{Name: "token", Value: token})

			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}

func TestSessionCookieMaxAgeIsFixed(t *testing.T) {
	// The cookie lives seven days regardless of the token TTL inside it; a
	// default one-hour session therefore outlives its token on the client.
	cookies := shop.NewSessionCookies(testConfig{})

	app := fiber.New()
	app.Get("/set", func(c *fiber.Ctx) error {
		cookies.Set(c, "session-token")
		return c.SendStatus(http.StatusOK)
	})
	app.Get("/clear", func(c *fiber.Ctx) error {
		cookies.Clear(c)
		return c.SendStatus(http.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/set", nil))
	require.NoError(t, err)

	setCookie := resp.Header.Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	assert.Contains(t, setCookie, "token=session-token")
	assert.Contains(t, strings.ToLower(setCookie), "max-age=604800")
	assert.Contains(t, strings.ToLower(setCookie), "httponly")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/clear", nil))
	require.NoError(t, err)

	cleared := resp.Header.Get("Set-Cookie")
	require.NotEmpty(t, cleared)
	assert.Contains(t, cleared, "token=")
	assert.NotContains(t, cleared, "session-token")
}

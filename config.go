package shop

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-errors"
)

// EnvConfig is the environment-backed Config implementation used by the
// server binary. Field defaults keep a bare `go run ./cmd/server` usable
// in development.
type EnvConfig struct {
	SigningKey        string        `env:"AUTH_SIGNING_KEY" envDefault:"dev-signing-key-change-me"`
	SigningMethod     string        `env:"AUTH_SIGNING_METHOD" envDefault:"HS256"`
	ContextKey        string        `env:"AUTH_CONTEXT_KEY" envDefault:"claims"`
	CookieName        string        `env:"AUTH_COOKIE_NAME" envDefault:"token"`
	TokenExpiration   time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"1h"`
	ExtendedTokenTTL  time.Duration `env:"AUTH_EXTENDED_TOKEN_TTL" envDefault:"168h"`
	TokenLookup       string        `env:"AUTH_TOKEN_LOOKUP" envDefault:"cookie:token,header:Authorization"`
	AuthScheme        string        `env:"AUTH_SCHEME" envDefault:"Bearer"`
	Issuer            string        `env:"AUTH_ISSUER" envDefault:"go-shop"`
	Environment       string        `env:"APP_ENV" envDefault:"development"`
	ServerAddress     string        `env:"SERVER_ADDRESS" envDefault:":9090"`
	DatabaseDSN       string        `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	GoogleAPIEndpoint string        `env:"GOOGLE_API_ENDPOINT" envDefault:"https://www.googleapis.com/oauth2/v2/userinfo"`
}

// NewEnvConfig parses configuration from the process environment
func NewEnvConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to parse environment configuration")
	}
	return cfg, nil
}

var _ Config = (*EnvConfig)(nil)

func (c *EnvConfig) GetSigningKey() string                  { return c.SigningKey }
func (c *EnvConfig) GetSigningMethod() string               { return c.SigningMethod }
func (c *EnvConfig) GetContextKey() string                  { return c.ContextKey }
func (c *EnvConfig) GetCookieName() string                  { return c.CookieName }
func (c *EnvConfig) GetTokenExpiration() time.Duration      { return c.TokenExpiration }
func (c *EnvConfig) GetExtendedTokenDuration() time.Duration { return c.ExtendedTokenTTL }
func (c *EnvConfig) GetTokenLookup() string                 { return c.TokenLookup }
func (c *EnvConfig) GetAuthScheme() string                  { return c.AuthScheme }
func (c *EnvConfig) GetIssuer() string                      { return c.Issuer }

func (c *EnvConfig) IsProduction() bool {
	return c.Environment == "production"
}

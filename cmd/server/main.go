package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	shop "github.com/openmerce/go-shop"
	"github.com/openmerce/go-shop/social/providers/google"
)

func main() {
	zl := zerolog.New(os.Stdout).With().Timestamp().Str("service", "go-shop").Logger()

	cfg, err := shop.NewEnvConfig()
	if err != nil {
		zl.Fatal().Err(err).Msg("configuration failed")
	}

	if !cfg.IsProduction() {
		zl = zl.Level(zerolog.DebugLevel)
	}

	logger := shop.NewZerologAdapter(zl)

	db, err := openDatabase(cfg.DatabaseDSN)
	if err != nil {
		zl.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := createSchema(ctx, db); err != nil {
		zl.Fatal().Err(err).Msg("schema creation failed")
	}

	repo := shop.NewRepositoryManager(db)
	repo.MustValidate()

	tokens := shop.NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetExtendedTokenDuration(),
		cfg.GetIssuer(),
		logger,
	)

	provider := shop.NewUserProvider(repo.Users()).WithLogger(logger)

	auther := shop.NewAuthenticator(provider, tokens).
		WithLogger(logger).
		WithRememberStore(repo.Users()).
		WithActivitySink(activityLogger(zl))

	cookies := shop.NewSessionCookies(cfg)
	protected := shop.ProtectedRoute(cfg, tokens)

	accounts := shop.NewAccountController(
		shop.WithControllerLogger(logger),
		shop.WithControllerActivitySink(activityLogger(zl)),
		shop.WithRepositoryManager(repo),
		shop.WithAuther(auther),
		shop.WithTokenService(tokens),
		shop.WithSessionCookies(cookies),
		shop.WithSocialProvider(google.New(google.Config{
			UserInfoURL: cfg.GoogleAPIEndpoint,
			HTTPClient:  &http.Client{Timeout: 10 * time.Second},
		})),
		shop.WithDebug(!cfg.IsProduction()),
	)

	products := shop.NewProductController(repo, logger)

	app := fiber.New(fiber.Config{
		AppName:      "go-shop",
		ErrorHandler: fiberErrorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(cors.New(cors.Config{
		AllowCredentials: true,
		AllowOriginsFunc: func(origin string) bool { return !cfg.IsProduction() },
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	accounts.RegisterRoutes(api, cfg.GetContextKey(), protected)
	products.RegisterRoutes(api, cfg.GetContextKey(), protected)

	go func() {
		zl.Info().Str("address", cfg.ServerAddress).Msg("server starting")
		if err := app.Listen(cfg.ServerAddress); err != nil {
			zl.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	<-ctx.Done()

	zl.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		zl.Error().Err(err).Msg("shutdown failed")
	}
}

func openDatabase(dsn string) (*bun.DB, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	return bun.NewDB(sqldb, sqlitedialect.New()), nil
}

func createSchema(ctx context.Context, db *bun.DB) error {
	models := []any{
		(*shop.User)(nil),
		(*shop.Product)(nil),
	}

	for _, model := range models {
		if _, err := db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	return nil
}

// activityLogger forwards audit events to the structured log. A real
// deployment would swap in a queue or database sink.
func activityLogger(zl zerolog.Logger) shop.ActivitySinkFunc {
	return func(ctx context.Context, event shop.ActivityEvent) error {
		zl.Info().
			Str("event", string(event.EventType)).
			Str("actor_id", event.Actor.ID).
			Str("actor_type", event.Actor.Type).
			Msg("activity")
		return nil
	}
}

func fiberErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"message": err.Error(),
	})
}

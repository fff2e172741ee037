package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/healthwatch/healthwatch/internal/config"
	"github.com/healthwatch/healthwatch/internal/domain/account"
	"github.com/healthwatch/healthwatch/internal/domain/clinic"
	"github.com/healthwatch/healthwatch/internal/domain/dashboard"
	"github.com/healthwatch/healthwatch/internal/domain/observation"
	"github.com/healthwatch/healthwatch/internal/domain/stats"
	"github.com/healthwatch/healthwatch/internal/domain/team"
	"github.com/healthwatch/healthwatch/internal/platform/auth"
	"github.com/healthwatch/healthwatch/internal/platform/db"
	"github.com/healthwatch/healthwatch/internal/platform/events"
	"github.com/healthwatch/healthwatch/internal/platform/middleware"
)

const version = "0.1.0"

func newLogger(dev bool) zerolog.Logger {
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV") == "development")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		logger.Info().Msg("connected to redis")
	}

	e, err := newServer(serverDeps{cfg: cfg, logger: logger, pool: pool, redis: rdb})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type serverDeps struct {
	cfg    *config.Config
	logger zerolog.Logger
	pool   *pgxpool.Pool
	// redis is optional. Without it revocations stay in process and no
	// alerts are published.
	redis *redis.Client
}

// newServer wires middleware, repositories and handlers. Nothing here talks
// to the database until a request arrives.
func newServer(d serverDeps) (*echo.Echo, error) {
	cfg, logger := d.cfg, d.logger

	var revocations auth.RevocationStore
	if d.redis != nil {
		revocations = auth.NewRedisRevocationStore(d.redis, "")
	} else {
		revocations = auth.NewMemoryRevocationStore()
	}

	signingKey := cfg.SigningKey()
	issuer, err := auth.NewTokenIssuer(signingKey, cfg.JWTIssuer, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, middleware.RequestIDHeader},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	jwtCfg := auth.JWTConfig{
		Issuer:      cfg.JWTIssuer,
		SigningKey:  signingKey,
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}
	if cfg.DevAuth {
		e.Use(auth.DevAuthMiddleware())
		jwtCfg.Skipper = func(c echo.Context) bool {
			return auth.AuthSkipper(c) || auth.ClaimsFromContext(c.Request().Context()) != nil
		}
	}
	e.Use(auth.JWTMiddleware(jwtCfg))
	e.Use(middleware.Audit(logger))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": version})
	})
	e.GET("/health/db", db.HealthHandler(d.pool))

	apiV1 := e.Group("/api/v1", middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// Accounts and auth
	accountSvc := account.NewService(account.NewAccountRepoPG(d.pool), issuer, revocations)
	accountHandler := account.NewHandler(accountSvc)
	accountHandler.RegisterAuthRoutes(e.Group("/auth"), middleware.RateLimit(middleware.LoginRateLimitConfig()))
	accountHandler.RegisterRoutes(apiV1)

	// Team members
	teamSvc := team.NewService(team.NewMemberRepoPG(d.pool))
	team.NewHandler(teamSvc).RegisterRoutes(apiV1)

	// Observations
	obsSvc := observation.NewService(observation.NewObservationRepoPG(d.pool))
	if d.redis != nil {
		obsSvc.SetAlertPublisher(events.NewRedisStreamPublisher(d.redis, cfg.AlertStream, events.DefaultMaxLen), logger)
	}
	observation.NewHandler(obsSvc).RegisterRoutes(apiV1)

	// Clinic settings
	clinicSvc := clinic.NewService(clinic.NewSettingsRepoPG(d.pool), db.NewTxRunner(d.pool))
	clinic.NewHandler(clinicSvc).RegisterRoutes(apiV1)

	// Dashboard, trends and reports
	statsSvc := stats.NewService(stats.NewStatsRepoPG(d.pool))
	dashHandler := dashboard.NewHandler(dashboard.NewService(statsSvc, clinicSvc, obsSvc))
	dashHandler.RegisterRoutes(apiV1)
	dashHandler.RegisterPageRoutes(e)

	return e, nil
}

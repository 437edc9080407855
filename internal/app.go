// Package internal contains core application wiring.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/gofiber/fiber/v2"

	"proplens/internal/cache"
	"proplens/internal/config"
	"proplens/internal/database"
	"proplens/internal/eventdata"
	apphttp "proplens/internal/http"
	"proplens/internal/logging"
)

// Application holds the wired components for the analytics service.
type Application struct {
	Config    *config.Config
	Logger    *slog.Logger
	DBManager *database.DBManager
	Engine    eventdata.Engine

	fiber    *fiber.App
	columnar driver.Conn
	cache    *cache.Cache
}

// NewApp creates a new application instance from the environment config.
func NewApp() (*Application, error) {
	return NewAppWithConfig(config.GetConfig())
}

// NewAppWithConfig wires the application from the provided config. The
// backend engine is resolved here so a misconfigured deployment fails at
// startup rather than on the first request.
func NewAppWithConfig(cfg *config.Config) (*Application, error) {
	logger := logging.NewLogger(cfg)

	dbManager := database.NewDBManager(cfg, logger)
	if err := dbManager.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := dbManager.MigrateDatabase(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	app := &Application{
		Config:    cfg,
		Logger:    logger,
		DBManager: dbManager,
	}

	backend := eventdata.BackendKind(cfg.AnalyticsBackend)
	deps := eventdata.Deps{
		DB: dbManager.GetConnection(),
		Pivot: eventdata.PivotConfig{
			Attributes:    cfg.PivotAttributes(),
			UserAttribute: cfg.PivotUserAttribute,
		},
		Logger: logger,
	}

	if backend == eventdata.BackendClickHouse {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		conn, err := database.ConnectColumnar(ctx, cfg.ClickHouseDSN, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect columnar backend: %w", err)
		}
		app.columnar = conn
		deps.Conn = conn
	}

	engine, err := eventdata.NewEngine(backend, deps)
	if err != nil {
		return nil, fmt.Errorf("failed to create query engine: %w", err)
	}
	app.Engine = engine

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		ttl := time.Duration(cfg.CacheTTLSeconds) * time.Second
		responseCache, err := cache.New(ctx, cfg.RedisAddr, ttl, logger)
		if err != nil {
			// The cache is an optimization; run without it rather than
			// refusing to start.
			logger.Warn("Response cache disabled", slog.Any("error", err))
		} else {
			app.cache = responseCache
		}
	}

	app.fiber = fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		DisableStartupMessage: true,
	})
	handler := apphttp.NewEventDataHandler(app.Engine, dbManager.GetConnection(), app.cache, logger)
	MountRoutes(app.fiber, dbManager.GetConnection(), handler, app)

	return app, nil
}

// Fiber exposes the underlying fiber app, mainly for tests.
func (a *Application) Fiber() *fiber.App {
	return a.fiber
}

// Run starts the HTTP listener and blocks until it stops.
func (a *Application) Run() error {
	addr := ":" + a.Config.AppPort
	a.Logger.Info("Starting server",
		slog.String("addr", addr),
		slog.String("backend", a.Config.AnalyticsBackend))
	return a.fiber.Listen(addr)
}

// Shutdown stops the listener and releases backend connections.
func (a *Application) Shutdown(ctx context.Context) error {
	if err := a.fiber.ShutdownWithContext(ctx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.Logger.Warn("Failed to close cache", slog.Any("error", err))
		}
	}
	if a.columnar != nil {
		if err := a.columnar.Close(); err != nil {
			a.Logger.Warn("Failed to close columnar connection", slog.Any("error", err))
		}
	}
	return nil
}

// healthCheck pings the active backend.
func (a *Application) healthCheck(ctx context.Context) error {
	if a.columnar != nil {
		return a.columnar.Ping(ctx)
	}
	db, err := a.DBManager.GetConnection().WithContext(ctx).DB()
	if err != nil {
		return err
	}
	return db.PingContext(ctx)
}

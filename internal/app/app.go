package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/sundayezeilo/linkinbio/internal/admin"
	"github.com/sundayezeilo/linkinbio/internal/auth"
	"github.com/sundayezeilo/linkinbio/internal/config"
	"github.com/sundayezeilo/linkinbio/internal/db"
	"github.com/sundayezeilo/linkinbio/internal/links"
	"github.com/sundayezeilo/linkinbio/internal/profiles"
	"github.com/sundayezeilo/linkinbio/internal/server"
)

// App holds the application dependencies and configuration.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	DBPool *pgxpool.Pool
	Server *server.Server
}

// New initializes and returns a new App instance with all dependencies wired up.
func New(ctx context.Context) (*App, error) {
	if err := loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := setupLogger(cfg.App.LogLevel)

	logger.Info("starting application",
		"env", cfg.App.Environment,
		"service", cfg.Service.Name,
		"version", cfg.Service.Version,
		"display_timezone", cfg.Display.Location().String(),
	)

	dbPool, err := db.Connect(ctx, db.PoolConfig{
		ConnString: cfg.Database.ConnectionString(),
		MaxConns:   cfg.Database.MaxConns,
		MinConns:   cfg.Database.MinConns,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx, dbPool); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		logger.Info("database schema applied")
	}

	srv, err := NewServer(cfg, logger, dbPool, nil)
	if err != nil {
		dbPool.Close()
		return nil, err
	}

	logger.Info("application initialized",
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		DBPool: dbPool,
		Server: srv,
	}, nil
}

// NewServer wires repositories, services and handlers on top of pool.
// All components share one clock; now defaults to time.Now.
func NewServer(cfg *config.Config, logger *slog.Logger, pool *pgxpool.Pool, now func() time.Time) (*server.Server, error) {
	if now == nil {
		now = time.Now
	}
	loc := cfg.Display.Location()

	verifier, err := auth.NewVerifier(auth.Config{
		Secret:   []byte(cfg.Auth.JWTSecret),
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
		Now:      now,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token verifier: %w", err)
	}

	linkRepo := links.NewRepository(pool, nil)
	linkSvc := links.NewService(linkRepo, &links.ServiceConfig{Now: now})
	profileSvc := profiles.NewService(profiles.NewRepository(pool), linkRepo, &profiles.ServiceConfig{
		Location: loc,
		Now:      now,
	})
	adminSvc := admin.NewService(linkRepo, admin.Config{Location: loc, Now: now})

	handlers := server.Handlers{
		Links: links.NewHandler(links.HandlerConfig{
			Service:  linkSvc,
			Logger:   logger,
			BaseURL:  cfg.Server.BaseURL,
			Location: loc,
			Now:      now,
		}),
		Profiles: profiles.NewHandler(profileSvc, logger),
		Admin:    admin.NewHandler(adminSvc, logger),
	}

	return server.New(cfg, logger, verifier, handlers, pool), nil
}

// Start starts the application server.
func (a *App) Start(ctx context.Context) error {
	a.Logger.Info("server starting",
		"port", a.Config.Server.Port,
		"base_url", a.Config.Server.BaseURL,
	)

	if err := a.Server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (a *App) Shutdown() error {
	a.Logger.Info("shutting down application")

	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database connection closed")
	}

	return nil
}

// loadEnv loads .env file only in non-production environments.
func loadEnv() error {
	env := os.Getenv("APP_ENV")
	if env == "development" || env == "test" {
		if err := godotenv.Load(".env"); err != nil {
			log.Println("no .env file found.")
		}
	}
	return nil
}

// setupLogger creates a structured logger based on the log level.
func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

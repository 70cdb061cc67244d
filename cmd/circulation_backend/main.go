package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/SscSPs/library_circulation_app/internal/core/services"
	"github.com/SscSPs/library_circulation_app/internal/handlers"
	"github.com/SscSPs/library_circulation_app/internal/middleware"
	"github.com/SscSPs/library_circulation_app/internal/platform/config"
	"github.com/SscSPs/library_circulation_app/internal/platform/events"
	"github.com/SscSPs/library_circulation_app/internal/platform/notify"
	"github.com/SscSPs/library_circulation_app/internal/platform/realtime"
	"github.com/SscSPs/library_circulation_app/internal/repositories/database/pgsql"
	"github.com/SscSPs/library_circulation_app/internal/repositories/memory"
	"github.com/SscSPs/library_circulation_app/internal/utils"
	"github.com/SscSPs/library_circulation_app/pkg/database"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/SscSPs/library_circulation_app/internal/core/ports/repositories"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// @title Library Circulation API
// @version 1.0
// @description Issue, return and renewal of library copies with fines, receipts and history.

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @security BearerAuth
func main() {
	// Initialize structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("Failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repos portsrepo.RepositoryProvider
	var dbPool *pgxpool.Pool
	switch cfg.StorageDriver {
	case config.StorageDriverMemory:
		store := memory.NewStore()
		if cfg.SeedDemoData {
			if err := store.SeedDemo(); err != nil {
				logger.Error("Failed to seed demo data", slog.String("error", err.Error()))
				os.Exit(1)
			}
			logger.Info("Demo data loaded into memory store")
		}
		repos = store.Repositories()
		logger.Warn("Using in-memory storage, data is lost on restart")
	default:
		dbPool, err = database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
		if err != nil {
			logger.Error("Failed to initialize database pool", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer database.ClosePgxPool(dbPool)
		logger.Info("Database connection pool established.")

		if err := runMigrations(cfg.DatabaseURL, logger); err != nil {
			logger.Error("Failed to apply migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		repos = pgsql.NewRepositoryProvider(dbPool)
	}

	redisClient, err := database.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error("Failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.CloseRedis(redisClient)

	hub := realtime.NewHub(redisClient, logger)
	go hub.Run()
	defer hub.Shutdown()

	notifier := notify.NewNotifier(notify.LogSender{Logger: logger}, cfg.NotifySenderEmail, cfg.NotifyQueueSize, logger)
	notifier.Start()

	dispatcher := events.NewDispatcher(cfg.EventQueueSize, logger,
		events.AuditSubscriber{Repo: repos.AuditRepo},
		events.RealtimeSubscriber{Hub: hub},
		events.ReceiptSubscriber{Notifier: notifier},
	)
	dispatcher.Start()

	serviceContainer := services.NewServiceContainer(cfg, repos, dispatcher)

	posthogClient := utils.InitializePosthogClient(cfg.PostHogAPIKey, cfg.PostHogHost, logger)
	defer posthogClient.Close()

	rateLimiter, err := middleware.NewRateLimiter(cfg.RateLimit, redisClient)
	if err != nil {
		logger.Error("Failed to create rate limiter", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.IsProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware (logging, recovery)
	r.Use(middleware.StructuredLoggingMiddleware(logger), gin.Recovery())

	if err := r.SetTrustedProxies(nil); err != nil {
		logger.Error("Failed to set trusted proxies", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handlers.RegisterRoutes(r, cfg, serviceContainer, handlers.RouteDependencies{
		Realtime:    hub,
		RateLimiter: rateLimiter,
		Analytics:   posthogClient,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("Server starting", slog.String("port", cfg.Port), slog.String("storage", cfg.StorageDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed to run", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.String("error", err.Error()))
	}
	// events may still queue receipts, so the dispatcher drains before the notifier
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("Event dispatcher did not drain", slog.String("error", err.Error()))
	}
	if err := notifier.Close(shutdownCtx); err != nil {
		logger.Error("Notifier did not drain", slog.String("error", err.Error()))
	}
	logger.Info("Server exited")
}

func runMigrations(databaseURL string, logger *slog.Logger) error {
	logger.Info("Running database migrations...")
	// Using pgx/v5/stdlib driver to be compatible with the main pool
	migrationDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := migrationDB.Close(); cerr != nil {
			logger.Error("Error closing migration DB connection", slog.String("error", cerr.Error()))
		}
	}()
	if err := migrationDB.Ping(); err != nil {
		return err
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance("file://migrations", "postgres", driver)
	if err != nil {
		return err
	}

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	// Check for dirty migrations after running Up.
	sourceErr, dbErr := m.Close()
	if sourceErr != nil {
		return sourceErr
	}
	if dbErr != nil {
		return dbErr
	}

	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("No new migrations to apply.")
	} else {
		logger.Info("Database migrations applied successfully.")
	}
	return nil
}

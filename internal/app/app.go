package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpapi "github.com/pixelforge/nexus/internal/http"
	"github.com/pixelforge/nexus/internal/service"
	"github.com/pixelforge/nexus/internal/store"
	"github.com/pixelforge/nexus/internal/store/drivers/sqlite"
	"github.com/pixelforge/nexus/pkg/cryptox"
	"github.com/pixelforge/nexus/pkg/jwtx"
	"github.com/pixelforge/nexus/pkg/slogx"
)

// BuildVersion should be set at build time via ldflags.
const BuildVersion = "v0.1.0"

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db     store.Store
	tokens *jwtx.HS256

	authService         *service.AuthService
	mfaService          *service.MFAService
	userService         *service.UserService
	projectService      *service.ProjectService
	documentService     *service.DocumentService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "nexus",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	tokens, err := jwtx.NewHS256(cfg.JWTSecret, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("initialize token signer: %w", err)
	}
	app.tokens = tokens

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()

	if err := app.bootstrapService.EnsureAdmin(context.Background()); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("nexus starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully stops the server, the background workers and the
// database, giving outstanding requests a deadline to complete.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("nexus stopped")
	return nil
}

func (app *Application) initDatabase() error {
	box, err := cryptox.NewSecretBox(app.cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("initialize field encryption: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn, box)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied")
	return nil
}

func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:             app.db,
		Tokens:            app.tokens,
		SessionTTL:        app.cfg.SessionTTL,
		ChallengeTTL:      app.cfg.ChallengeTTL,
		TOTPSkew:          app.cfg.TOTPSkew,
		MaxFailedAttempts: app.cfg.LockoutThreshold,
		LockoutDuration:   app.cfg.LockoutDuration,
	}
	app.mfaService = &service.MFAService{
		Store:    app.db,
		Issuer:   app.cfg.Issuer,
		TOTPSkew: app.cfg.TOTPSkew,
	}
	app.userService = &service.UserService{Store: app.db}
	app.projectService = &service.ProjectService{Store: app.db}
	app.documentService = &service.DocumentService{
		Store: app.db,
		Dir:   app.cfg.UploadDir,
	}
	app.bootstrapService = &service.BootstrapService{
		Store:    app.db,
		Logger:   app.logger,
		Username: app.cfg.BootstrapAdminUsername,
		Email:    app.cfg.BootstrapAdminEmail,
		Password: app.cfg.BootstrapAdminPassword,
	}
	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		BuildVersion,
		app.cfg.SessionTTL,
		app.cfg.SecureCookies,
		app.db,
		app.logger,
	)
	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.UserService = app.userService
	router.ProjectService = app.projectService
	router.DocumentService = app.documentService
	router.ApplyRoutes()

	app.router = router
	app.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", app.cfg.Port),
		Handler: router,
	}
}

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/promenade-labs/authcore/internal/auth"
	"github.com/promenade-labs/authcore/internal/background"
	"github.com/promenade-labs/authcore/internal/config"
	"github.com/promenade-labs/authcore/internal/database"
	"github.com/promenade-labs/authcore/internal/handlers"
	"github.com/promenade-labs/authcore/internal/repositories"
	"github.com/promenade-labs/authcore/internal/routes"
	"github.com/promenade-labs/authcore/internal/services"
	"github.com/promenade-labs/authcore/pkg/password"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Apply schema migrations before opening the pool
	if err := database.RunMigrations(cfg.Database.DSN()); err != nil {
		logger.Error("failed to run migrations", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repositories
	failedLoginRepo := repositories.NewFailedLoginRepository(db)
	mfaRepo := repositories.NewMFARepository(db)
	auditRepo := repositories.NewAuditLogRepository(db)
	historyRepo := repositories.NewPasswordHistoryRepository(db)

	// Audit sink (dual-write slog + database)
	auditService := services.NewAuditService(auditRepo, logger)

	// Security notifications
	var notifier services.SecurityNotifier = services.NoopNotifier{}
	if cfg.Email.Enabled {
		sesNotifier, err := services.NewAWSSESNotifier(cfg.Email.AWSRegion, cfg.Email.FromAddress, logger)
		if err != nil {
			logger.Error("failed to initialize SES notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	// Brute-force guard
	guardConfig := services.BruteForceConfig{
		MaxAttempts:     cfg.Security.MaxLoginAttempts,
		AttemptWindow:   cfg.Security.AttemptWindow,
		LockoutDuration: cfg.Security.LockoutDuration,
	}
	guard := services.NewBruteForceGuard(failedLoginRepo, auditService, notifier, guardConfig, logger)

	// TOTP manager and MFA service
	totpMgr, err := auth.NewTOTPManager(cfg.Security.TOTPEncryptionKey, cfg.Security.TOTPIssuer)
	if err != nil {
		logger.Error("failed to initialize TOTP manager", slog.Any("error", err))
		os.Exit(1)
	}

	verifier := services.NewHTTPPasswordVerifier(cfg.Security.AuthProviderURL, cfg.Security.AuthProviderTimeout)
	mfaService := services.NewMFAService(
		mfaRepo,
		verifier,
		totpMgr,
		auditService,
		notifier,
		services.MFAConfig{BackupCodeCount: cfg.Security.BackupCodeCount},
		logger,
	)

	// Password policy engine
	breachChecker := password.NewBreachChecker(cfg.Security.BreachAPIBaseURL, cfg.Security.BreachAPITimeout)
	historyChecker := password.NewHistoryChecker(historyRepo, cfg.Security.PasswordHistoryLimit)
	engine := password.NewEngine(breachChecker, historyChecker)

	// Initialize handlers
	mfaHandler := handlers.NewMFAHandler(mfaService, logger)
	securityHandler := handlers.NewSecurityHandler(guard, engine, logger)

	router := routes.New(mfaHandler, securityHandler, db, logger)

	// Background retention cleanup
	cleanup := background.NewCleanupManager(
		failedLoginRepo,
		auditRepo,
		cfg.Security.AttemptRetention,
		cfg.Security.CleanupInterval,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go cleanup.Start(ctx)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	go func() {
		logger.Info("server starting", slog.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	cleanup.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped")
}

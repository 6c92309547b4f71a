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

	"github.com/BradenHooton/fintrack/internal/audit"
	"github.com/BradenHooton/fintrack/internal/auth"
	"github.com/BradenHooton/fintrack/internal/background"
	"github.com/BradenHooton/fintrack/internal/config"
	"github.com/BradenHooton/fintrack/internal/database"
	"github.com/BradenHooton/fintrack/internal/handlers"
	"github.com/BradenHooton/fintrack/internal/middleware"
	"github.com/BradenHooton/fintrack/internal/models"
	"github.com/BradenHooton/fintrack/internal/monitor"
	"github.com/BradenHooton/fintrack/internal/observability"
	"github.com/BradenHooton/fintrack/internal/repositories"
	"github.com/BradenHooton/fintrack/internal/routes"
	"github.com/BradenHooton/fintrack/internal/services"
	pkgauth "github.com/BradenHooton/fintrack/pkg/auth"
	pkghttp "github.com/BradenHooton/fintrack/pkg/http"
	pkglogger "github.com/BradenHooton/fintrack/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := pkglogger.New(os.Stdout, cfg.Server.LogLevel)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	if err := observability.InitSentry(cfg.Observability.SentryDSN, cfg.Server.Env); err != nil {
		logger.Warn("sentry disabled", slog.Any("error", err))
	}
	defer observability.FlushSentry()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Initialize database
	db, err := database.NewConnection(ctx, &cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()
	database.RegisterPoolMetrics(registry, db)

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Initialize repositories
	userRepo := repositories.NewUserRepository(db)
	cardRepo := repositories.NewCardRepository(db)
	txRepo := repositories.NewTransactionRepository(db)

	auditStore, closeAudit, err := openAuditStore(cfg, db, logger)
	if err != nil {
		logger.Error("failed to open audit log", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeAudit()

	// Alert e-mail delivery is optional
	var notifier services.AlertNotifier
	var sesNotifier *services.SESAlertNotifier
	if cfg.Notify.To != "" {
		minSeverity, ok := models.ParseSeverity(cfg.Notify.MinSeverity)
		if !ok {
			minSeverity = models.SeverityHigh
		}
		sesNotifier, err = services.NewSESAlertNotifier(ctx, cfg.Notify.AWSRegion, services.SESAlertNotifierConfig{
			To:          cfg.Notify.To,
			From:        cfg.Notify.From,
			MinSeverity: minSeverity,
			PerMinute:   cfg.Notify.PerMinute,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize alert notifier", slog.Any("error", err))
			os.Exit(1)
		}
		notifier = sesNotifier
	}

	auditService := services.NewAuditService(auditStore, logger, notifier)
	auditService.SetUserLookup(userRepo)

	// Security monitor
	securityMonitor := monitor.New(monitor.Config{
		FailureThreshold: cfg.Security.FailureThreshold,
		FailureWindow:    cfg.Security.FailureWindow,
		RateThreshold:    cfg.Security.RateThreshold,
		RateWindow:       cfg.Security.RateWindow,
	},
		monitor.WithAlertSink(auditService),
		monitor.WithMetrics(monitor.NewMetrics(registry)),
		monitor.WithLogger(logger),
	)
	sweeper := background.NewSweeper(securityMonitor, logger, cfg.Security.SweepInterval)

	// Authentication
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	policy := pkgauth.DefaultPasswordPolicy()
	policy.RequireMixedCase = cfg.Auth.RequireMixedCase
	if cfg.Auth.PasswordSymbols != "" {
		policy.Symbols = cfg.Auth.PasswordSymbols
	}
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelayMs:    cfg.Auth.TimingDelayBaseMs,
		RandomDelayMs:  cfg.Auth.TimingDelayRandomMs,
		DelayOnSuccess: true,
	})

	// Initialize services
	authService := services.NewAuthService(services.AuthServiceDeps{
		Users:   userRepo,
		Tokens:  tokenManager,
		Monitor: securityMonitor,
		Audit:   auditService,
		Hasher:  pkgauth.NewHasher(cfg.Auth.BcryptCost),
		Policy:  policy,
		Timing:  timingDelay,
		Logger:  logger,
	})
	userService := services.NewUserService(userRepo, auditService, logger)
	cardService := services.NewCardService(cardRepo, auditService, logger)
	txService := services.NewTransactionService(txRepo, cardService, auditService, logger)
	securityService := services.NewSecurityService(securityMonitor, auditService, logger)

	// Bootstrap first admin user if configured
	if cfg.Admin.Email != "" {
		adminCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := userService.EnsureAdmin(adminCtx, authService, cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Error("failed to ensure admin user", slog.Any("error", err))
		}
		cancel()
	}

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		logger.Error("invalid trusted proxy list", slog.Any("error", err))
		os.Exit(1)
	}

	routerCfg := routes.RouterConfig{
		Env:            cfg.Server.Env,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
		Guard: middleware.GuardConfig{
			MaxBodyBytes: cfg.Security.MaxBodyBytes,
			IPConfig:     ipConfig,
		},
		Monitor:       securityMonitor,
		Authorizer:    authService,
		AuthRateLimit: middleware.RateLimitConfig{RequestsPerMinute: cfg.Auth.AuthEndpointRateLimit},
		Logger:        logger,
	}
	if cfg.Observability.MetricsEnabled {
		routerCfg.Metrics = registry
	}

	router := routes.NewRouter(routerCfg, routes.Handlers{
		Auth:         handlers.NewAuthHandler(authService, securityMonitor),
		Users:        handlers.NewUserHandler(authService, userService),
		Cards:        handlers.NewCardHandler(cardService, securityMonitor),
		Transactions: handlers.NewTransactionHandler(txService, securityMonitor),
		Security:     handlers.NewSecurityHandler(securityService),
		Health:       handlers.NewHealthHandler(db, logger),
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		sweeper.Start(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")
		sweeper.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if sesNotifier != nil {
			sesNotifier.Wait(shutdownCtx)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

// openAuditStore selects the durable audit backend. The returned close
// function is always non-nil.
func openAuditStore(cfg *config.Config, db *database.DB, logger *slog.Logger) (services.AuditStore, func(), error) {
	if cfg.Audit.Backend == config.AuditBackendPostgres {
		return repositories.NewAuditLogRepository(db), func() {}, nil
	}

	fileLog, err := audit.OpenFileLog(cfg.Audit.LogPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return fileLog, func() {
		if err := fileLog.Close(); err != nil {
			logger.Error("failed to close audit log", slog.Any("error", err))
		}
	}, nil
}

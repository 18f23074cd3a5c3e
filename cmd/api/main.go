package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	_ "github.com/joho/godotenv/autoload"

	"github.com/sjperalta/parktime-api/internal/config"
	"github.com/sjperalta/parktime-api/internal/database"
	"github.com/sjperalta/parktime-api/internal/handlers"
	"github.com/sjperalta/parktime-api/internal/metrics"
	"github.com/sjperalta/parktime-api/internal/middleware"
	"github.com/sjperalta/parktime-api/internal/repository"
	"github.com/sjperalta/parktime-api/internal/services"
	"github.com/sjperalta/parktime-api/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Setup(cfg.Environment)

	// Initialize Sentry when DSN is configured
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		}); err != nil {
			logger.Error("Sentry initialization failed", "error", err)
		} else {
			logger.Info("Sentry initialized")
		}
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database, cfg.Environment)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to database", "driver", cfg.Database.Driver)

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 2*time.Minute)
	if err := database.Migrate(startupCtx, db, cfg.Database.Driver); err != nil {
		cancelStartup()
		logger.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Initialize repositories and services
	repos := repository.NewRepositories(db)
	svcs := services.NewServices(repos, cfg, nil)

	if err := svcs.Employee.BootstrapAdmin(startupCtx, cfg.Auth.BootstrapAdminPassword); err != nil {
		cancelStartup()
		logger.Error("Failed to bootstrap admin account", "error", err)
		os.Exit(1)
	}
	cancelStartup()

	metrics.Init()

	// Initialize handlers
	cookies := middleware.NewCookieSessions(cfg.Session)
	h := handlers.NewHandlers(svcs, cookies, nil)

	// Setup router
	router := setupRouter(h, svcs, cookies, cfg)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	// Flush Sentry events before exit
	if cfg.SentryDSN != "" {
		sentry.Flush(5 * time.Second)
	}

	logger.Info("Server exited gracefully")
}

func setupRouter(h *handlers.Handlers, svcs *services.Services, cookies *middleware.CookieSessions, cfg *config.Config) *gin.Engine {
	router := gin.New()

	if len(cfg.TrustedProxies) > 0 {
		if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			logger.Warn("Invalid trusted proxies", "error", err)
		}
	} else {
		_ = router.SetTrustedProxies(nil)
	}

	// Global middleware
	if cfg.SentryDSN != "" {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())
	router.Use(gzip.Gzip(gzip.DefaultCompression))

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	loginLimiter := middleware.NewRateLimiter(cfg.Auth.LoginRatePerMinute, cfg.Auth.LoginRateBurst)
	h.Register(router, middleware.Auth(svcs.Auth, cookies), loginLimiter.Middleware())

	return router
}

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/medisync/caregate/internal/audit"
	"github.com/medisync/caregate/internal/auth"
	"github.com/medisync/caregate/internal/backend"
	"github.com/medisync/caregate/internal/config"
	"github.com/medisync/caregate/internal/cookies"
	"github.com/medisync/caregate/internal/database"
	"github.com/medisync/caregate/internal/guard"
	"github.com/medisync/caregate/internal/middleware"
	"github.com/medisync/caregate/internal/pages"
	"github.com/medisync/caregate/internal/ratelimit"
	"github.com/medisync/caregate/internal/routes"
	"github.com/medisync/caregate/internal/session"
	"github.com/medisync/caregate/internal/token"
)

func main() {
	// Load .env if present, then the environment proper
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	var logger *zap.Logger
	if cfg.IsDevelopment() {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}
	defer logger.Sync()

	logger.Info("Starting CareGate", zap.String("env", cfg.Env))

	// Connect to PostgreSQL and apply migrations
	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	if err := database.RunMigrations(cfg.Database.URL()); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Connected to PostgreSQL")

	// Connect to Redis
	redisClient, err := database.NewRedisClient(cfg.RedisURL)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	logger.Info("Connected to Redis")

	// Initialize services
	codec := token.NewCodec(cfg.JWT.AccessSecret)
	table := routes.Default()
	store := cookies.NewStore(cfg.Cookie.Secure, cfg.Cookie.ParsedSameSite(), cfg.Cookie.Domain)
	api := backend.New(cfg.Backend.APIBaseURL, cfg.Backend.Timeout)

	revoked := token.NewRevocationList(redisClient.Client)
	refresher := guard.NewRefresher(api, revoked)
	accessGuard := guard.New(codec, table, store, refresher, logger)

	limiter := ratelimit.NewLimiter(
		redisClient.Client,
		cfg.RateLimit.Window,
		cfg.RateLimit.MaxAttempts,
		cfg.RateLimit.LockoutDuration,
	)
	recorder := audit.NewRecorder(db.DB, logger)

	authService := auth.NewService(api, codec, table, limiter, recorder, logger)
	authHandler := auth.NewHandler(authService, store, codec, revoked, logger)
	sessions := session.NewManager(codec, store)

	pageProxy, err := pages.NewProxy(cfg.Backend.AppOrigin, logger)
	if err != nil {
		logger.Fatal("Failed to initialize page proxy", zap.Error(err))
	}

	// Set up Gin router
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	allowedOrigins := middleware.ParseAllowedOrigins(cfg.CORS.AllowedOrigins)
	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Metrics())

	// Public routes
	router.GET("/health", authHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Auth routes
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/logout", authHandler.Logout)
		authGroup.GET("/me", sessions.Me)
	}

	// Everything else is page traffic: guard it, then proxy to the
	// rendering origin
	router.NoRoute(accessGuard.Middleware(), pageProxy.Handle)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

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

	"flagsplit/app/echo-server/router"
	"flagsplit/business/evaluation"
	"flagsplit/business/splittest"
	userService "flagsplit/business/user"
	"flagsplit/internal/middleware"
	psqlRepo "flagsplit/internal/repository/postgres"
	redisRepo "flagsplit/internal/repository/redis"
	"flagsplit/internal/rest"
	"flagsplit/pkg/config"
	"flagsplit/pkg/database"
	redisdb "flagsplit/pkg/database/redis"
	"flagsplit/pkg/logger"
	"flagsplit/pkg/metrics"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting FlagSplit", "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	logger.Info("Database connected successfully")

	redisClient, err := redisdb.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", "error", err)
	}
	defer func() {
		if err := redisdb.CloseRedisClient(redisClient); err != nil {
			logger.Error("Failed to close Redis client", "error", err)
		}
	}()

	// Init validate
	validate := validator.New()

	// Init repo
	userRepo := psqlRepo.NewUserRepository(db)
	featureRepo := psqlRepo.NewFeatureRepository(db)
	envRepo := psqlRepo.NewEnvironmentRepository(db)
	identityRepo := psqlRepo.NewIdentityRepository(db)
	evalRepo := psqlRepo.NewEvaluationRepository(db)
	conversionRepo := psqlRepo.NewConversionRepository(db)
	splitTestRepo := psqlRepo.NewSplitTestRepository(db)
	envCache := redisRepo.NewEnvironmentCache(redisClient)

	// Init service
	usersService := userService.NewUserService(userRepo, validate)
	evalService := evaluation.NewService(featureRepo, identityRepo, evalRepo, conversionRepo)
	splitTestService := splittest.NewService(
		featureRepo,
		envRepo,
		identityRepo,
		evalRepo,
		conversionRepo,
		splitTestRepo,
		splittest.Config{
			Workers:       cfg.Analytics.Workers,
			FeatureBudget: cfg.Analytics.FeatureBudget,
		},
	)

	// Init handler
	userHandler := rest.NewUserHandler(usersService)
	featureHandler := rest.NewFeatureAdminHandler(featureRepo)
	envHandler := rest.NewEnvironmentAdminHandler(envRepo)
	splitTestHandler := rest.NewSplitTestHandler(splitTestRepo, splitTestService)
	sdkHandler := rest.NewSDKHandler(evalService)

	// Init metrics
	metrics.Init()

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// HTTP error handler
	e.HTTPErrorHandler = middleware.ErrorHandler

	// Global middleware
	e.Use(echomiddleware.Recover())
	e.Use(metrics.Middleware())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Environment-Key"},
	}))

	// Auth middleware
	authRequired := middleware.AuthMiddleware()
	adminOnly := middleware.AdminOnly()
	envKey := middleware.EnvironmentKey(envRepo, envCache)

	// Setup routes
	api := e.Group("/api/v1")
	router.SetupUserRoutes(api, userHandler, authRequired, adminOnly)
	router.SetupFeatureAdminRoutes(api, featureHandler, authRequired, adminOnly)
	router.SetupEnvironmentAdminRoutes(api, envHandler, authRequired, adminOnly)
	router.SetupSplitTestRoutes(api, splitTestHandler, authRequired, adminOnly)
	router.SetupSDKRoutes(api, sdkHandler, envKey)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Recurring split test updates
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()

	if cfg.Analytics.Enabled {
		scheduler := splittest.NewScheduler(splitTestService, cfg.Analytics.UpdateInterval)
		go scheduler.Start(schedulerCtx)
	} else {
		logger.Info("Split test analytics disabled")
	}

	// Goroutine server
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server starting", "address", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	stopScheduler()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown server
	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

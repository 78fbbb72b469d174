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

	"auctionWatch/app/analytics-server/router"
	"auctionWatch/business/scoring"
	"auctionWatch/domain"
	"auctionWatch/internal/middleware"
	psqlRepo "auctionWatch/internal/repository/postgres"
	"auctionWatch/internal/rest"
	"auctionWatch/pkg/config"
	"auctionWatch/pkg/database"
	"auctionWatch/pkg/logger"
	"auctionWatch/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.App.Environment)
	logger.Info("Starting auctionWatch analytics", "version", cfg.App.Version)

	db, err := database.InitPostgres(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}
	logger.Info("Database connected successfully")

	metrics.Init()

	// Init repo
	lotRepo := psqlRepo.NewLotRepository(db)
	bidRepo := psqlRepo.NewBidRepository(db)
	ratingRepo := psqlRepo.NewRatingRepository(db)
	evidenceRepo := psqlRepo.NewEvidenceRepository(db)

	// Init service
	scoringService, err := scoring.NewService(
		scoring.DefaultConfig(),
		cfg.Analysis.Workers,
		lotRepo,
		bidRepo,
		ratingRepo,
		evidenceRepo,
	)
	if err != nil {
		logger.Fatal("Failed to init scoring service", "error", err)
	}

	// Init handler
	analysisHandler := rest.NewAnalysisHandler(scoringService, cfg.Analysis.WindowMonths)

	// Scheduled runs, disabled when no schedule is configured
	var scheduler *cron.Cron
	if cfg.Analysis.Schedule != "" {
		scheduler = cron.New()
		_, err := scheduler.AddFunc(cfg.Analysis.Schedule, func() {
			now := time.Now()
			window := domain.AnalysisWindow{From: now.AddDate(0, -cfg.Analysis.WindowMonths, 0), To: now}
			if _, err := scoringService.RunAnalysis(context.Background(), window); err != nil {
				logger.Error("Scheduled analysis run failed", err)
			}
		})
		if err != nil {
			logger.Fatal("Failed to schedule analysis", "error", err)
		}
		scheduler.Start()
		logger.Info("Analysis schedule active", "spec", cfg.Analysis.Schedule)
	}

	// Init echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"http://localhost:3000", "http://localhost:8080"},
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Setup routes
	authRequired := middleware.AuthMiddleware(cfg.JWT.SecretKey)
	analystOnly := middleware.RequireRole("analyst", "admin")

	api := e.Group("/api/v1")
	router.SetupAnalysisRoutes(api, analysisHandler, authRequired, analystOnly)
	router.SetupRatingRoutes(api, analysisHandler)

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

	if scheduler != nil {
		scheduler.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Server stopped")
}

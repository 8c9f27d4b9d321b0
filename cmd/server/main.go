package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connect4engine/internal/cache"
	"connect4engine/internal/config"
	"connect4engine/internal/database"
	"connect4engine/internal/handlers"
	"connect4engine/internal/services"
	"connect4engine/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Env); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Log.Info("Starting Connect4 Engine Server",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.Int("rows", cfg.Board.Rows),
		zap.Int("cols", cfg.Board.Cols),
	)

	deps := handlers.RouterDeps{}

	// Persistence and events are optional; the interfaces stay untyped nil
	// when a backend is not configured.
	var store services.GameStore
	if cfg.HasDatabase() {
		db, err := database.New(cfg)
		if err != nil {
			logger.Log.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer db.Close()
		if err := db.EnsureSchema(); err != nil {
			logger.Log.Fatal("Failed to create schema", zap.Error(err))
		}
		store = db
		deps.DB = db
		deps.Analytics = services.NewAnalyticsService(db)
	} else {
		logger.Log.Info("DATABASE_URL not set, games will not be persisted")
	}

	var events services.EventPublisher
	if cfg.HasKafka() {
		producer, err := services.NewKafkaProducer(cfg)
		if err != nil {
			logger.Log.Fatal("Failed to create Kafka producer", zap.Error(err))
		}
		defer producer.Close()
		events = producer
	}

	// Initialize services
	gameService := services.NewGameService(cfg, store, events)
	reaperService := services.NewReaperService(cfg, gameService)
	deps.Games = gameService

	if cfg.HasRedis() {
		results, err := cache.NewRedisCache(cfg)
		if err != nil {
			logger.Log.Warn("Redis unavailable, analysis results will not be shared", zap.Error(err))
		} else {
			defer results.Close()
			gameService.SetResultCache(results, time.Duration(cfg.Redis.TTL)*time.Second)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reaperService.Start(ctx)

	// Setup Gin
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handlers.NewRouter(deps),
	}

	// Start server
	go func() {
		logger.Log.Info("Server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server shutdown failed", zap.Error(err))
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"connect4engine/internal/config"
	"connect4engine/internal/database"
	"connect4engine/internal/services"
	"connect4engine/pkg/logger"

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

	if !cfg.HasDatabase() || !cfg.HasKafka() {
		logger.Log.Fatal("Analytics consumer needs DATABASE_URL and KAFKA_BROKERS")
	}

	logger.Log.Info("Starting Connect4 Analytics Consumer",
		zap.String("env", cfg.Server.Env),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("topic", cfg.Kafka.TopicEvents),
		zap.String("group_id", cfg.Kafka.GroupID),
	)

	// Connect to database
	db, err := database.New(cfg)
	if err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := db.EnsureSchema(); err != nil {
		logger.Log.Fatal("Failed to create schema", zap.Error(err))
	}

	// Initialize analytics service
	analyticsService := services.NewAnalyticsService(db)

	// Initialize Kafka consumer
	kafkaConsumer, err := services.NewKafkaConsumer(cfg, analyticsService)
	if err != nil {
		logger.Log.Fatal("Failed to create Kafka consumer", zap.Error(err))
	}
	defer kafkaConsumer.Close()

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		logger.Log.Info("Kafka consumer started, waiting for events")
		kafkaConsumer.Start(ctx)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutdown signal received, stopping consumer")
	cancel()
	<-done

	logger.Log.Info("Analytics consumer stopped")
}

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

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/codenest/internal/api"
	"github.com/RishiKendai/codenest/internal/classifier"
	"github.com/RishiKendai/codenest/internal/config"
	"github.com/RishiKendai/codenest/internal/configs/env"
	"github.com/RishiKendai/codenest/internal/infra/mongo"
	redisInfra "github.com/RishiKendai/codenest/internal/infra/redis"
	"github.com/RishiKendai/codenest/internal/logger"
	"github.com/RishiKendai/codenest/internal/metrics"
	"github.com/RishiKendai/codenest/internal/plagiarism"
	"github.com/RishiKendai/codenest/internal/preprocess"
	"github.com/RishiKendai/codenest/internal/repository"
	"github.com/RishiKendai/codenest/internal/stream"
)

const maxDeliveryRetries = 3

func main() {
	if err := env.LoadEnv(); err != nil {
		log.Warn().Err(err).Msg("Failed to load .env file, continuing with system environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("Invalid configuration: %v", err))
	}

	logger.Init(cfg.LogLevel)
	log.Info().Msg("Starting CodeNest server")

	// Initialize Prometheus metrics
	metrics.InitPrometheus()
	log.Info().Msg("Prometheus metrics initialized")

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := api.StartServer("metrics", metricsMux, cfg.MetricsPort)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect MongoDB
	mongoClient, err := mongo.NewClient(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create MongoDB client")
	}
	defer mongoClient.Close(context.Background())

	// Connect Redis
	redisClient, err := redisInfra.NewClient(ctx, cfg.RedisHost, cfg.RedisPassword, 0)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Redis client")
	}
	defer redisClient.Close()

	// Initialize repositories
	mongoRepo := repository.NewMongoRepository(mongoClient)
	if err := mongoRepo.EnsureIndexes(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to ensure MongoDB indexes")
	}
	submissionsRepo := repository.NewSubmissionsRepository(mongoRepo)
	resultsRepo := repository.NewResultsRepository(mongoRepo)
	statusStore := plagiarism.NewStatusStore(redisClient.Client)

	// Classifier is loaded or trained on first use
	clf := classifier.NewHandle(cfg.ModelPath, classifier.DefaultConfig)

	// Initialize worker pool and comparison engine
	workerPool := plagiarism.NewWorkerPool(ctx)
	defer workerPool.Close()
	engine := plagiarism.NewEngine(workerPool, clf)

	extractor := preprocess.NewService(submissionsRepo, preprocess.Config{
		Concurrency: cfg.ExtractConcurrency,
		Features:    cfg.FeatureOptions(),
	})
	pipeline := plagiarism.NewPipeline(extractor, engine, resultsRepo, statusStore)

	// Initialize retry handler
	retryHandler := stream.NewRetryHandler(redisClient.Client, cfg.RedisDeadLetterKey, maxDeliveryRetries)

	// Initialize Redis stream consumer
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	consumerName := fmt.Sprintf("consumer-%s-%d-%s", hostname, os.Getpid(), uuid.New().String()[:8])
	consumer := stream.NewConsumer(redisClient.Client, stream.ConsumerConfig{
		StreamKey:  cfg.RedisStreamKey,
		Group:      cfg.RedisConsumerGroup,
		Name:       consumerName,
		Retention:  cfg.StreamRetentionDuration,
		JobTimeout: cfg.ComputationTimeout,
		// every attempt may run to the timeout before the entry is acknowledged
		ClaimMinIdle: cfg.ComputationTimeout*(maxDeliveryRetries+1) + 5*time.Minute,
	}, pipeline, retryHandler)
	log.Info().Str("consumer_name", consumerName).Msg("Redis stream consumer initialized")

	handler := api.NewHandler(cfg, pipeline, resultsRepo, statusStore, clf)
	router := api.SetupRoutes(cfg, handler)

	// Start Redis consumer in background
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Redis consumer error")
		}
	}()
	log.Info().Msg("Redis consumer started")

	srv := api.StartServer("api", router, cfg.ServerPort)

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down gracefully...")

	if err := api.ShutdownServer(srv, 30*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down HTTP server")
	}

	// Unacknowledged stream messages stay pending and are reclaimed on restart
	cancel()
	<-consumerDone
	handler.Stop()

	if err := api.ShutdownServer(metricsServer, 5*time.Second); err != nil {
		log.Error().Err(err).Msg("Error shutting down metrics server")
	}

	log.Info().Msg("Shutdown complete")
}

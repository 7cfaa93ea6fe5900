package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	redisCache "github.com/Abdurahmanit/GroupProject/newsroom-service/internal/adapter/cache/redis"
	mongoAdapter "github.com/Abdurahmanit/GroupProject/newsroom-service/internal/adapter/mongo"
	natsAdapter "github.com/Abdurahmanit/GroupProject/newsroom-service/internal/adapter/nats"
	s3Storage "github.com/Abdurahmanit/GroupProject/newsroom-service/internal/adapter/storage/s3"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/config"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/platform/metrics"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/platform/tracer"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/cache"
	grpcPort "github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/grpc"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/port/rest"
	"github.com/Abdurahmanit/GroupProject/newsroom-service/internal/usecase"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	configPath := "config.yaml"
	if cp := os.Getenv("CONFIG_PATH"); cp != "" {
		configPath = cp
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.JWT.Secret == "" {
		log.Fatal("jwt.secret (NEWS_JWT_SECRET) must be set")
	}

	appLogger, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Configuration loaded",
		zap.String("http_port", cfg.HTTP.Port),
		zap.String("grpc_port", cfg.GRPC.Port),
		zap.String("mongo_database", cfg.Mongo.Database),
		zap.String("minio_bucket", cfg.MinIO.Bucket),
	)

	tp := tracer.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.OTLPEndpoint, appLogger)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			appLogger.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}()

	metricsManager := metrics.NewMetricsManager("newsroom")
	metricsServer := metrics.StartMetricsServer(cfg.Metrics.Port, appLogger, metricsManager.Registry)

	mongoClient, err := mongoAdapter.NewMongoDBConnection(&cfg.Mongo)
	if err != nil {
		appLogger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			appLogger.Error("Failed to disconnect MongoDB", zap.Error(err))
		} else {
			appLogger.Info("MongoDB connection closed.")
		}
	}()
	appLogger.Info("Successfully connected to MongoDB!")

	setupCtx, setupCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer setupCancel()
	if err := mongoAdapter.EnsureNewsIndexes(setupCtx, mongoClient.Database(cfg.Mongo.Database)); err != nil {
		appLogger.Warn("Failed to ensure news indexes", zap.Error(err))
	}

	minioClient, err := s3Storage.NewMinIOClient(&cfg.MinIO)
	if err != nil {
		appLogger.Fatal("Failed to create MinIO client", zap.Error(err))
	}
	if err := s3Storage.EnsureBucket(setupCtx, minioClient, cfg.MinIO.Bucket, appLogger); err != nil {
		appLogger.Fatal("Failed to prepare MinIO bucket", zap.Error(err))
	}
	imageStorage := s3Storage.NewImageStorage(minioClient, &cfg.MinIO, appLogger)

	healthChecks := map[string]rest.HealthCheck{
		"mongo": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
	}

	var cacheRepo cache.CacheRepository
	redisClient, err := redisCache.NewRedisClient(&cfg.Redis, appLogger)
	if err != nil {
		appLogger.Warn("Redis unavailable, active news list will not be cached", zap.Error(err))
	} else {
		defer func() { _ = redisClient.Close() }()
		redisStore := redisCache.NewCache(redisClient, cfg.Redis.KeyPrefix, appLogger)
		cacheRepo = redisStore
		healthChecks["redis"] = redisStore.Ping
	}

	var publisher usecase.NATSPublisherInterface
	natsPublisher, err := natsAdapter.NewNATSPublisher(&cfg.NATS, appLogger)
	if err != nil {
		appLogger.Warn("NATS unavailable, news events will not be published", zap.Error(err))
	} else {
		defer natsPublisher.Close()
		publisher = natsPublisher
	}

	newsRepo := mongoAdapter.NewNewsMongoRepository(mongoClient, cfg.Mongo.Database)
	txManager := mongoAdapter.NewTxManager(mongoClient, appLogger)
	newsUC := usecase.NewNewsUseCase(
		newsRepo,
		txManager,
		imageStorage,
		publisher,
		cacheRepo,
		metricsManager,
		cfg.Cache.ActiveNewsTTL,
		appLogger,
	)

	newsHandler := rest.NewNewsHandler(newsUC, cfg.HTTP.MaxUploadSize, appLogger)
	router := rest.NewRouter(newsHandler, rest.RouterConfig{
		JWTSecret:    cfg.JWT.Secret,
		Metrics:      metricsManager,
		HealthChecks: healthChecks,
	}, appLogger)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	grpcServer := grpcPort.NewServer(&cfg.GRPC, appLogger)

	serverErrors := make(chan error, 2)
	go func() {
		appLogger.Info("HTTP server starting", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()
	go func() {
		if err := grpcServer.Run(); err != nil {
			serverErrors <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-serverErrors:
		appLogger.Error("Server failed, shutting down", zap.Error(err))
	}

	grpcServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			appLogger.Error("Metrics server shutdown failed", zap.Error(err))
		}
	}
	grpcServer.Stop()

	appLogger.Info("Newsroom service stopped")
}

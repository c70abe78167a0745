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

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	ginprometheus "github.com/zsais/go-gin-prometheus"

	"storybook-server/internal/config"
	"storybook-server/internal/handler"
	"storybook-server/internal/messaging"
	"storybook-server/internal/middleware"
	"storybook-server/internal/repository"
	"storybook-server/internal/service"
	"storybook-server/internal/worker"
	"storybook-server/internal/workflow"
	"storybook-server/migrations"
	"storybook-server/pkg/database"
	"storybook-server/pkg/logger"
	"storybook-server/pkg/migration"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: could not load .env file: %v\n", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded", zap.String("env", cfg.Env), zap.String("dsn", cfg.GetMaskedDSN()))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	db, err := database.New(ctx, database.Config{
		DSN:         cfg.GetDSN(),
		MaxConns:    int32(cfg.DBMaxConns),
		IdleTimeout: cfg.DBIdleTimeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer db.Close()

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, db.Pool, log)
	if err := migrator.Up(ctx); err != nil {
		log.Fatal("Failed to apply database migrations", zap.Error(err))
	}

	// --- Redis ---
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	pingCancel()
	log.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	// --- RabbitMQ ---
	mqConn, err := messaging.ConnectRabbitMQ(cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()

	mqChannel, err := mqConn.Channel()
	if err != nil {
		log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	defer mqChannel.Close()

	if err := messaging.SetupTopology(mqChannel, cfg, log); err != nil {
		log.Fatal("Failed to declare RabbitMQ topology", zap.Error(err))
	}

	// --- Dependency injection ---
	txManager := repository.NewTxManager(db)
	storyRepo := repository.NewPgStoryRepository(log)
	stepRepo := repository.NewPgStepLogRepository(log)
	storyCache := repository.NewRedisStoryCache(redisClient, cfg.StoryCacheTTL, log)

	aiClient, err := service.NewAIClient(cfg, log)
	if err != nil {
		log.Fatal("Failed to create AI client", zap.Error(err))
	}
	textGen := service.NewTextGenerator(aiClient, cfg, log)

	blobStore, err := service.NewFileBlobStore(cfg, log)
	if err != nil {
		log.Fatal("Failed to set up illustration storage", zap.Error(err))
	}
	illustrator := service.NewIllustrationGenerator(cfg, blobStore, log)

	publisher := messaging.NewRabbitMQTaskPublisher(mqChannel, cfg.GenerationQueue, cfg.IllustrationQueue, log)
	notifier := messaging.NewRabbitMQNotifier(mqChannel, cfg.UpdatesQueue, log)

	storyWorkflow := workflow.NewStoryWorkflow(
		txManager, storyRepo, stepRepo, storyCache,
		textGen, illustrator, notifier, cfg, log)
	taskHandler := worker.NewTaskHandler(storyWorkflow, log)

	storySvc := service.NewStoryService(txManager, storyRepo, stepRepo, storyCache, publisher, log)
	storyHandler := handler.NewStoryHandler(storySvc, cfg.ListStoriesLimit, log)

	// --- Workflow consumers ---
	consumerCtx, stopConsumers := context.WithCancel(context.Background())
	defer stopConsumers()

	generationConsumer := messaging.NewConsumer(mqChannel, cfg.GenerationQueue, taskHandler.HandleGenerationTask, log)
	illustrationConsumer := messaging.NewConsumer(mqChannel, cfg.IllustrationQueue, taskHandler.HandleIllustrationTask, log)
	for _, c := range []*messaging.Consumer{generationConsumer, illustrationConsumer} {
		c := c
		go func() {
			if err := c.Run(consumerCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Consumer stopped with error", zap.Error(err))
			}
		}()
	}

	// --- HTTP server ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)
	router.Static("/illustrations", cfg.BlobDir)

	// Only the write endpoints require a token; reads stay open.
	var authMW gin.HandlerFunc
	if cfg.AuthEnabled {
		authMW = middleware.Auth(cfg.JWTSecret, log)
	}
	storyHandler.RegisterRoutes(router, authMW)

	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// Workflow metrics are served separately from the API port.
	metricsSrv := &http.Server{
		Addr:    ":" + cfg.MetricsPort,
		Handler: promhttp.Handler(),
	}
	go func() {
		log.Info("Starting metrics server", zap.String("port", cfg.MetricsPort))
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Metrics server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("Metrics server forced to shutdown", zap.Error(err))
	}

	// In-flight workflow runs resume from the step log on the next delivery.
	stopConsumers()

	log.Info("Server exiting")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/researchcanvas/canvasd/internal/application/pipeline"
	"github.com/researchcanvas/canvasd/internal/bus"
	"github.com/researchcanvas/canvasd/internal/config"
	"github.com/researchcanvas/canvasd/internal/ports"
	"github.com/researchcanvas/canvasd/pkg/adapters/enrich/gemini"
	"github.com/researchcanvas/canvasd/pkg/adapters/llm"
	"github.com/researchcanvas/canvasd/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/researchcanvas/canvasd/pkg/adapters/storage/memory"
	postgresstorage "github.com/researchcanvas/canvasd/pkg/adapters/storage/postgres"
	redisstorage "github.com/researchcanvas/canvasd/pkg/adapters/storage/redis"
	"github.com/researchcanvas/canvasd/pkg/api/grpc"
	"github.com/researchcanvas/canvasd/pkg/api/http"
	"github.com/researchcanvas/canvasd/pkg/api/websocket"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting canvasd",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	ctx := context.Background()

	// Initialize store
	store, cleanup, err := initStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer cleanup()

	// Initialize metrics and event bus
	metricsCollector := prometheus.NewCollector()

	eventBus := bus.New(cfg.Bus.ReplayTTL, logger, metricsCollector)
	busMonitor := bus.NewMonitor(eventBus, cfg.Bus.MonitorInterval, logger, metricsCollector)
	busMonitor.Start()

	// Initialize LLM client
	llmClient, err := llm.NewClient(&llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Metrics:   metricsCollector,
		Logger:    logger,
	})
	if err != nil {
		logger.Fatal("failed to create LLM client", zap.Error(err))
	}

	// Image enrichment is optional; without a key the pipeline skips it
	var enricher ports.Enricher
	if cfg.Enrichment.APIKey != "" {
		g, err := gemini.New(ctx, &gemini.Config{
			APIKey: cfg.Enrichment.APIKey,
			Model:  cfg.Enrichment.Model,
			Logger: logger,
		})
		if err != nil {
			logger.Fatal("failed to create enricher", zap.Error(err))
		}
		enricher = g
	} else {
		logger.Info("no enrichment API key set, image generation disabled")
	}

	// Initialize pipeline manager
	pipelineMgr := pipeline.NewManager(
		store,
		llmClient,
		llmClient,
		llmClient,
		llmClient,
		enricher,
		eventBus,
		metricsCollector,
		logger,
		pipeline.Config{
			UnitTimeout:          cfg.Pipeline.UnitTimeout,
			EnrichMaxRetries:     cfg.Enrichment.MaxRetries,
			EnrichInitialBackoff: cfg.Enrichment.InitialBackoff,
			EnrichAttemptTimeout: cfg.Enrichment.AttemptTimeout,
		},
	)

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Port:     cfg.HTTPPort,
		Pipeline: pipelineMgr,
		Store:    store,
		Logger:   logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:     cfg.GRPCPort,
		Pipeline: pipelineMgr,
		Logger:   logger,
	})
	if err != nil {
		logger.Fatal("failed to create gRPC server", zap.Error(err))
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server failed", zap.Error(err))
		}
	}()

	logger.Info("canvasd started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("store_backend", cfg.Store.Backend))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	if err := pipelineMgr.Shutdown(shutdownCtx); err != nil {
		logger.Error("pipeline manager shutdown error", zap.Error(err))
	}

	busMonitor.Stop()

	logger.Info("canvasd shut down complete")
}

// initStore builds the configured store backend and returns a cleanup
// function for its connections.
func initStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		cleanup := func() {
			if err := redisClient.Close(); err != nil {
				logger.Error("Redis close error", zap.Error(err))
			}
		}
		return redisstorage.NewStore(redisClient, logger), cleanup, nil

	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create Postgres pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}

		store := postgresstorage.NewStore(pool)
		if err := store.CreateSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}
		logger.Info("connected to Postgres")

		return store, pool.Close, nil

	case "memory":
		logger.Warn("using in-memory store, data will not survive restarts")
		return memorystorage.NewStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store backend: %s", cfg.Store.Backend)
	}
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}

package main

// @title           Sercha RAG API
// @version         1.0
// @description     Retrieval-augmented generation for course documents: chunking, embedding, per-document vector stores, retrieval and grounded answers.

// @contact.name   Sercha OSS
// @contact.url    https://github.com/custodia-labs/sercha-rag/issues

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token. Format: "Bearer {token}"

// @securityDefinitions.apikey ServiceKey
// @in header
// @name X-Service-Key
// @description Shared key of backend services

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/auth"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/postgres"
	postgresqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/custodia-labs/sercha-rag/internal/adapters/driven/queue/redis"
	redisadapter "github.com/custodia-labs/sercha-rag/internal/adapters/driven/redis"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/http"
	"github.com/custodia-labs/sercha-rag/internal/config"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
	"github.com/custodia-labs/sercha-rag/internal/worker"
)

var version = "dev"

func main() {
	// Operators hash the service key once and set SERVICE_KEY_HASH
	if len(os.Args) > 2 && os.Args[1] == "hash-service-key" {
		hash, err := auth.NewAdapter("", "").HashServiceKey(os.Args[2])
		if err != nil {
			log.Fatalf("Failed to hash service key: %v", err)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	// Command line arg overrides RUN_MODE (api, worker, all)
	if len(os.Args) > 1 {
		cfg.RunMode = os.Args[1]
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	logger := cfg.Logger()
	slog.SetDefault(logger)

	log.Printf("sercha-rag %s starting in %s mode", version, cfg.RunMode)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	// ===== Initialize PostgreSQL =====
	log.Println("Connecting to PostgreSQL...")
	db, err := postgres.Connect(ctx, postgres.Config{
		URL:             cfg.DatabaseURL,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.DB.ConnMaxIdleTime,
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema (idempotent)
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")

	// ===== Initialize Redis (optional) =====
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		log.Println("Connecting to Redis...")
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("Redis connected")
	}

	// ===== Lock, cache and queue (Redis if available, otherwise PostgreSQL) =====
	var (
		distributedLock driven.DistributedLock
		storeCache      driven.StoreCache
		taskQueue       driven.TaskQueue
		redisPinger     http.Pinger
		cacheBackend    = "none"
		lockBackend     = "postgres"
	)
	if redisClient != nil {
		distributedLock = redisadapter.NewLock(redisClient)
		cache := redisadapter.NewStoreCache(redisClient)
		storeCache = cache
		redisPinger = cache
		cacheBackend, lockBackend = "redis", "redis"

		queue, err := redisqueue.NewQueue(ctx, redisClient, fmt.Sprintf("worker-%d", os.Getpid()))
		if err != nil {
			log.Fatalf("Failed to create task queue: %v", err)
		}
		taskQueue = queue
		log.Println("Using Redis lock, store cache and task queue")
	} else {
		distributedLock = postgres.NewAdvisoryLock(db)
		taskQueue = postgresqueue.NewQueue(db.DB)
		log.Println("Using PostgreSQL advisory lock and task queue; merged stores are not cached")
	}
	defer taskQueue.Close()

	// ===== AI services =====
	runtimeConfig := domain.NewRuntimeConfig(cacheBackend, lockBackend)
	runtimeServices := runtime.NewServices(runtimeConfig)
	defer runtimeServices.Close()

	aiFactory := ai.NewFactory(cfg.AI.Retry)
	if err := runtimeServices.Configure(ctx, aiFactory, &cfg.AI, cfg.ValidateAIOnStartup, logger); err != nil {
		// Keep serving; readiness reports the missing services
		logger.Error("AI services partially configured", "error", err)
	}

	log.Printf("Runtime config: cache_backend=%s, lock_backend=%s, embedding=%t, llm=%t",
		runtimeConfig.CacheBackend,
		runtimeConfig.LockBackend,
		runtimeConfig.EmbeddingAvailable(),
		runtimeConfig.LLMAvailable())

	// ===== Core services =====
	ragService, err := services.NewRAGService(postgres.NewVectorStoreRepository(db), runtimeServices, services.RAGServiceConfig{
		Settings: cfg.RAG,
		Lock:     distributedLock,
		LockTTL:  cfg.IndexLockTTL,
		Cache:    storeCache,
		CacheTTL: cfg.StoreCacheTTL,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("Failed to create RAG service: %v", err)
	}

	titleService := services.NewTitleService(runtimeServices, services.TitleServiceConfig{
		MaxLength: cfg.RAG.TitleMaxLength,
		Language:  cfg.RAG.TitleLanguage,
		Timeout:   cfg.TitleTimeout,
		Logger:    logger,
	})

	var wg sync.WaitGroup

	if cfg.RunsWorker() {
		w := worker.NewWorker(worker.WorkerConfig{
			TaskQueue:      taskQueue,
			Indexer:        ragService,
			Logger:         logger,
			Concurrency:    cfg.WorkerConcurrency,
			DequeueTimeout: cfg.WorkerDequeueTimeout,
		})
		if err := w.Start(ctx); err != nil {
			log.Fatalf("Failed to start worker: %v", err)
		}
		log.Printf("Worker started (concurrency=%d), handling index_document and delete_document tasks", cfg.WorkerConcurrency)

		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			log.Println("Stopping worker...")
			w.Stop()
		}()
	}

	if cfg.RunsAPI() {
		httpConfig := http.DefaultConfig()
		httpConfig.Port = cfg.Port
		httpConfig.Version = version
		httpConfig.MaxBodyBytes = cfg.MaxBodyBytes
		httpConfig.ServiceKeyHash = cfg.ServiceKeyHash
		httpConfig.CORSOrigins = cfg.CORSOrigins
		httpConfig.RAG = cfg.RAG

		if cfg.ServiceKeyHash == "" {
			log.Println("Warning: SERVICE_KEY_HASH not set, service-key authentication disabled")
		}
		if cfg.JWTSecret == config.DevelopmentJWTSecret {
			log.Println("Warning: using the development JWT secret")
		}

		server := http.NewServer(httpConfig, http.Dependencies{
			RAGService:   ragService,
			TitleService: titleService,
			Auth:         auth.NewAdapter(cfg.JWTSecret, cfg.JWTIssuer),
			AIServices:   runtimeServices,
			TaskQueue:    taskQueue,
			DB:           db,
			Redis:        redisPinger,
			Logger:       logger,
		})

		log.Printf("API server starting on :%d", cfg.Port)
		if err := server.Start(ctx); err != nil {
			log.Printf("Server error: %v", err)
			cancel()
		}
	} else {
		<-ctx.Done()
	}

	wg.Wait()
	log.Println("sercha-rag stopped")
}

package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/runtime"
)

// Pinger is a simple health check interface
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	httpServer *http.Server
	router     *http.ServeMux
	handler    http.Handler
	config     Config
	logger     *slog.Logger

	// Services
	ragService   driving.RAGService
	titleService driving.TitleService
	auth         driven.AuthAdapter
	aiServices   *runtime.Services

	// Infrastructure
	taskQueue   driven.TaskQueue // nil disables async indexing
	db          Pinger           // PostgreSQL health check
	redisClient Pinger           // Redis health check (optional)
}

// Config holds server configuration
type Config struct {
	Host    string
	Port    int
	Version string

	// MaxBodyBytes caps request bodies, PDF uploads included
	MaxBodyBytes int64

	// ServiceKeyHash is the bcrypt hash of the machine caller key; empty disables it
	ServiceKeyHash string

	CORSOrigins []string

	// RAG supplies defaults for requests that carry their own stores
	RAG domain.RAGSettings
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Host:         "0.0.0.0",
		Port:         8080,
		Version:      "dev",
		MaxBodyBytes: 32 << 20,
		RAG:          domain.DefaultRAGSettings(),
	}
}

// Dependencies are the collaborators the server routes to
type Dependencies struct {
	RAGService   driving.RAGService
	TitleService driving.TitleService
	Auth         driven.AuthAdapter
	AIServices   *runtime.Services
	TaskQueue    driven.TaskQueue // optional
	DB           Pinger
	Redis        Pinger // optional
	Logger       *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies) *Server {
	defaults := DefaultConfig()
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaults.MaxBodyBytes
	}
	if cfg.RAG.TopK <= 0 {
		cfg.RAG = defaults.RAG
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:       http.NewServeMux(),
		config:       cfg,
		logger:       logger,
		ragService:   deps.RAGService,
		titleService: deps.TitleService,
		auth:         deps.Auth,
		aiServices:   deps.AIServices,
		taskQueue:    deps.TaskQueue,
		db:           deps.DB,
		redisClient:  deps.Redis,
	}

	s.setupRoutes()

	// Outermost first: recover, log, then CORS
	s.handler = NewRecoveryMiddleware(logger).Handler(
		NewLoggingMiddleware(logger).Handler(
			NewCORSMiddleware(cfg.CORSOrigins).Handler(s.router)))

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute, // indexing large documents is synchronous
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler returns the fully wrapped handler (used by tests)
func (s *Server) Handler() http.Handler {
	return s.handler
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	authMiddleware := NewAuthMiddleware(s.auth, s.config.ServiceKeyHash)
	authed := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(h)
	}
	managers := func(h http.HandlerFunc) http.Handler {
		return authMiddleware.Authenticate(authMiddleware.RequireDocumentManager(h))
	}

	// Health endpoints (no auth)
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /ready", s.handleReady)
	s.router.HandleFunc("GET /version", s.handleVersion)
	s.router.HandleFunc("GET /api/v1/openapi.json", s.handleOpenAPI)

	// Stateless build (the caller stores the result)
	s.router.Handle("POST /api/v1/vector-stores:build", managers(s.handleBuildVectorStore))

	// Persisted per-document stores
	s.router.Handle("PUT /api/v1/documents/{id}/vector-store", managers(s.handleIndexDocument))
	s.router.Handle("GET /api/v1/documents/{id}/vector-store", authed(s.handleGetDocumentStore))
	s.router.Handle("DELETE /api/v1/documents/{id}/vector-store", managers(s.handleDeleteDocument))

	// Background task status
	s.router.Handle("GET /api/v1/tasks/{id}", managers(s.handleGetTask))

	// Retrieval and chat
	s.router.Handle("POST /api/v1/retrieve", authed(s.handleRetrieve))
	s.router.Handle("POST /api/v1/ask", authed(s.handleAsk))
	s.router.Handle("POST /api/v1/chats/title", authed(s.handleGenerateTitle))
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Stop stops the server
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

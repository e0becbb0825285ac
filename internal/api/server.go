package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eshaffer321/bill-reconciler/internal/api/handlers"
	"github.com/eshaffer321/bill-reconciler/internal/api/middleware"
	"github.com/eshaffer321/bill-reconciler/internal/infrastructure/storage"
)

// Config holds API server configuration.
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DefaultConfig returns sensible defaults for the API server.
func DefaultConfig() Config {
	return Config{
		Host:           "127.0.0.1",
		Port:           52045,
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
	}
}

// Server is the HTTP API server.
type Server struct {
	config     Config
	router     *gin.Engine
	httpServer *http.Server
	logger     *slog.Logger
	repo       storage.Repository
	analyzer   handlers.Analyzer
	settings   handlers.SettingsStore
}

// NewServer creates a new API server.
// If analyzer is nil the ingestion endpoints are not registered; if settings
// is nil the settings endpoints are not registered.
func NewServer(cfg Config, repo storage.Repository, analyzer handlers.Analyzer, settings handlers.SettingsStore, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:   cfg,
		router:   gin.New(),
		logger:   logger,
		repo:     repo,
		analyzer: analyzer,
		settings: settings,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures global middleware.
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.Logging(s.logger))

	corsConfig := middleware.DefaultCORSConfig()
	if len(s.config.AllowedOrigins) > 0 {
		corsConfig.AllowedOrigins = s.config.AllowedOrigins
	}
	s.router.Use(middleware.CORS(corsConfig))
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	base := handlers.NewBase(s.repo, s.logger)

	// Health check (no /api prefix - for load balancers)
	var schema handlers.SchemaReporter
	if r, ok := s.repo.(handlers.SchemaReporter); ok {
		schema = r
	}
	s.router.GET("/health", handlers.NewHealthHandler(schema).Get)

	api := s.router.Group("/api")

	if s.analyzer != nil {
		analyzeHandler := handlers.NewAnalyzeHandler(s.repo, s.analyzer, base)
		api.POST("/analyze", analyzeHandler.Analyze)
		api.POST("/raw-events/:id/reanalyze", analyzeHandler.Reanalyze)
	}

	billsHandler := handlers.NewBillsHandler(s.repo, base)
	api.GET("/bills", billsHandler.List)
	api.GET("/bills/:id", billsHandler.Get)
	api.GET("/raw-events", billsHandler.ListRawEvents)

	if s.settings != nil {
		settingsHandler := handlers.NewSettingsHandler(s.settings, base)
		api.GET("/settings", settingsHandler.Get)
		api.PUT("/settings", settingsHandler.Update)
	}

	ref := handlers.NewReferenceHandler(s.repo, base)
	api.GET("/assets", ref.ListAssets)
	api.POST("/assets", ref.CreateAsset)
	api.DELETE("/assets/:id", ref.DeleteAsset)
	api.GET("/asset-mappings", ref.ListAssetMappings)
	api.PUT("/asset-mappings", ref.SaveAssetMapping)
	api.DELETE("/asset-mappings/:id", ref.DeleteAssetMapping)
	api.GET("/categories", ref.ListCategories)
	api.POST("/categories", ref.CreateCategory)
	api.GET("/category-mappings", ref.ListCategoryMappings)
	api.PUT("/category-mappings", ref.SaveCategoryMapping)
	api.DELETE("/category-mappings/:id", ref.DeleteCategoryMapping)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("starting API server", "addr", addr)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")

	if s.httpServer == nil {
		return nil
	}

	return s.httpServer.Shutdown(ctx)
}

// Router returns the gin engine for testing.
func (s *Server) Router() http.Handler {
	return s.router
}

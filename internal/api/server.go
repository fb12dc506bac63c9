// Package api provides the HTTP API server and handlers for the media board.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sambooru/sambooru-server/internal/catalog"
	"github.com/sambooru/sambooru-server/internal/config"
	"github.com/sambooru/sambooru-server/internal/http/response"
	"github.com/sambooru/sambooru-server/internal/ingest"
	"github.com/sambooru/sambooru-server/internal/query"
	"github.com/sambooru/sambooru-server/internal/ratelimit"
	"github.com/sambooru/sambooru-server/internal/service"
	"github.com/sambooru/sambooru-server/internal/store"
	"github.com/sambooru/sambooru-server/internal/validation"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	store       *store.Store
	catalog     *catalog.Catalog
	postService *service.PostService
	pipeline    *ingest.Pipeline
	engine      *query.Engine
	uploads     *ratelimit.KeyedRateLimiter
	validator   *validation.Validator
	cfg         *config.Config
	router      *chi.Mux
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	store *store.Store,
	cat *catalog.Catalog,
	postService *service.PostService,
	pipeline *ingest.Pipeline,
	engine *query.Engine,
	uploads *ratelimit.KeyedRateLimiter,
	cfg *config.Config,
	logger *slog.Logger,
) *Server {
	s := &Server{
		store:       store,
		catalog:     cat,
		postService: postService,
		pipeline:    pipeline,
		engine:      engine,
		uploads:     uploads,
		validator:   validation.New(),
		cfg:         cfg,
		router:      chi.NewRouter(),
		logger:      logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// Health check.
	s.router.Get("/health", s.handleHealthCheck)

	// Stored assets and previews.
	s.router.Handle("/files/*", http.StripPrefix("/files/",
		http.FileServer(http.Dir(s.cfg.ImagesPath()))))
	s.router.Handle("/thumbnails/*", http.StripPrefix("/thumbnails/",
		http.FileServer(http.Dir(s.cfg.ThumbnailsPath()))))

	// API v1.
	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authenticate)

		// Posts.
		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handleSearchPosts)
			r.Post("/", s.handleUpload)
			r.Get("/{id}", s.handleGetPost)
			r.Put("/{id}/tags", s.handleEditPostTags)
			r.Delete("/{id}", s.handleDeletePost)
		})

		// Tags.
		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Patch("/{id}", s.handleUpdateTag)
			r.Delete("/{id}", s.handleDeleteTag)
		})
	})
}

// handleHealthCheck returns server health status.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	response.Success(w, map[string]string{
		"status": "healthy",
	}, s.logger)
}

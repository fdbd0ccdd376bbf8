// Package server provides the HTTP API for asking questions about the notes.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/notionrag/internal/config"
	"github.com/hyperjump/notionrag/internal/models"
	"github.com/hyperjump/notionrag/internal/rag"
)

// Assistant answers questions and reports on the served index.
type Assistant interface {
	Ask(ctx context.Context, question string) (models.Answer, error)
	Status(ctx context.Context) (*rag.Status, error)
}

// Quota tracks per-user daily usage. Record reserves a prompt atomically and
// fails with quota.ErrLimitReached when none are left; Release returns one.
type Quota interface {
	Usage(ctx context.Context, user string) (models.Usage, error)
	Record(ctx context.Context, user string) (models.Usage, error)
	Release(ctx context.Context, user string) (models.Usage, error)
}

// Server is the HTTP server for the notionrag API.
type Server struct {
	assistant Assistant
	quota     Quota
	auth      *Authenticator
	config    *config.ServerConfig
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(assistant Assistant, quota Quota, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		assistant: assistant,
		quota:     quota,
		auth:      NewAuthenticator(cfg.JWTSecret, cfg.UserHeader),
		config:    cfg,
		logger:    logger,
	}
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Post("/api/v1/query", s.handleQuery)
		r.Get("/api/v1/usage", s.handleUsage)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr), zap.Bool("jwt", s.auth.UsesJWT()))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

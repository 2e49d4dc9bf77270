// Package server provides the HTTP JSON API for the taskman board.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/attachment"
	"github.com/diogenes-ai-code/taskman/internal/config"
	"github.com/diogenes-ai-code/taskman/internal/service"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/renderer/html"
)

// Config holds the server configuration.
type Config struct {
	// Port is the TCP port to listen on (default 18090).
	Port int

	// Host is the address to bind to (default "localhost").
	Host string

	// DB is the database connection of the active store.
	DB *sql.DB

	// UploadsDir is where attachments are written.
	UploadsDir string

	// AllowedExt limits attachment types. Empty accepts any file.
	AllowedExt []string

	// View holds the board presentation used when a request leaves it unset.
	View config.ViewConfig

	// MaxUploadBytes caps multipart request bodies (default 32 MiB).
	MaxUploadBytes int64

	// Logger for server events (optional).
	Logger *slog.Logger
}

// Server is the HTTP server for the taskman API.
type Server struct {
	config     Config
	httpServer *http.Server
	router     *http.ServeMux
	board      *service.BoardService
	markdown   goldmark.Markdown
	logger     *slog.Logger
	now        func() time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) (*Server, error) {
	if config.DB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if config.UploadsDir == "" {
		return nil, fmt.Errorf("uploads directory is required")
	}

	if config.Port == 0 {
		config.Port = 18090
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.MaxUploadBytes == 0 {
		config.MaxUploadBytes = 32 << 20
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{
		config: config,
		router: http.NewServeMux(),
		board:  service.NewBoardService(config.DB, attachment.NewStore(config.UploadsDir, config.AllowedExt...), logger),
		// Newlines in a detail are line breaks, as typed.
		markdown: goldmark.New(goldmark.WithRendererOptions(html.WithHardWraps())),
		logger:   logger,
		now:      time.Now,
	}

	s.setupRoutes()

	return s, nil
}

// Handler returns the routed handler wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return s.withLogging(s.router)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.Address())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.Address(), err)
	}

	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "url", "http://"+listener.Addr().String())

	return s.httpServer.Serve(listener)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("Shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// Address returns the server address (e.g., "localhost:18090").
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}

// withLogging wraps a handler with request logging.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

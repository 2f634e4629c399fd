// Package server provides the HTTP server for the rock-paper-scissors game.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/coder/quartz"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/ayusman/suit/internal/capture"
	"github.com/ayusman/suit/internal/classifier"
	"github.com/ayusman/suit/internal/game"
	"github.com/ayusman/suit/internal/metric"
	"github.com/ayusman/suit/internal/server/api"
	"github.com/ayusman/suit/internal/store"
)

// ShutdownTimeout bounds graceful shutdown in Run.
const ShutdownTimeout = 5 * time.Second

// Config holds the server configuration. Routes are registered only for the
// collaborators that are set.
type Config struct {
	StaticDir  string
	Store      *store.Store
	Session    *game.Session
	Classifier classifier.Classify
	Model      api.ModelInfo
	Camera     capture.Camera
	Hub        *Hub

	// AllowedOrigins defaults to any origin.
	AllowedOrigins []string

	Clock   quartz.Clock
	Logger  zerolog.Logger
	Metrics metric.Client
}

// Server represents the HTTP server for the game.
type Server struct {
	config Config
	router chi.Router
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	if config.Metrics == nil {
		config.Metrics = metric.Nop()
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = []string{"*"}
	}

	s := &Server{
		config: config,
		router: chi.NewRouter(),
		start:  config.Clock.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		if s.config.Session != nil && s.config.Classifier != nil {
			api.NewGameHandler(s.config.Session, s.config.Classifier, s.config.Model, s.config.Logger).Routes(r)
		}

		if s.config.Store != nil {
			api.NewRoundsHandler(s.config.Store).Routes(r)
		}

		if s.config.Hub != nil {
			r.Get("/events", s.config.Hub.ServeHTTP)
		}

		if s.config.Camera != nil {
			r.Get("/stream", NewStreamHandler(s.config.Camera, s.config.Clock).ServeHTTP)
			if s.config.Session != nil {
				api.NewCaptureHandler(s.config.Camera, s.config.Session, s.config.Logger).Routes(r)
			}
		}
	})

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// instrument logs each request and records its count and latency.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.config.Clock.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		elapsed := s.config.Clock.Since(start)

		tags := metric.BuildTag(
			metric.NewTag(metric.TagPath, route),
			metric.NewTag(metric.TagMethod, r.Method),
			metric.NewTag(metric.TagStatus, strconv.Itoa(status)),
		)
		_ = s.config.Metrics.Incr(metric.APIRequestCount, tags, 1)
		_ = s.config.Metrics.Timing(metric.APIRequestLatency, elapsed, tags, 1)

		s.config.Logger.Debug().
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Dur("elapsed", elapsed).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status": "ok",
		"uptime": s.config.Clock.Since(s.start).String(),
	}
	if s.config.Hub != nil {
		response["clients"] = s.config.Hub.Clients()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.config.Logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if s.config.Hub != nil {
		s.config.Hub.Close()
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.config.Logger.Info().Msg("http server stopped")
	return nil
}

// Package server provides HTTP server wiring and lifecycle management.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/campusops/roomclerk/internal/frameworks/service"
	cachemem "github.com/campusops/roomclerk/internal/platform/cache/memory"
	"github.com/campusops/roomclerk/internal/platform/config"
	"github.com/campusops/roomclerk/internal/platform/logutil"
)

// Server wraps the HTTP server and its mounted services.
type Server struct {
	cfg        *config.Config
	httpServer *http.Server
	logger     *slog.Logger
	limitCache *cachemem.Cache

	// mountedServices tracks services for lifecycle management (Close on
	// shutdown). Stored in mount order; closed in reverse order.
	mountedServices []service.Service
}

// New creates a new Server with the given configuration and services.
// Services are passed as a name->service map; nil entries are skipped.
func New(cfg *config.Config, logger *slog.Logger, services map[string]service.Service) *Server {
	logger = logutil.NoopIfNil(logger)

	s := &Server{
		cfg:    cfg,
		logger: logger,
	}

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(s.requestLogger)
	router.Use(chimw.Recoverer)

	if cfg.RateLimit.Enabled {
		s.limitCache = cachemem.New(cfg.RateLimit.Window(), time.Minute)
		limiter := &rateLimiter{
			counter: s.limitCache,
			limit:   cfg.RateLimit.Limit(),
			window:  cfg.RateLimit.Window(),
			logger:  logger,
		}
		router.Use(limiter.Wrap)
		logger.Info("rate limiting enabled",
			"limit", cfg.RateLimit.Limit(), "window", cfg.RateLimit.Window())
	}

	router.Get("/healthz", s.handleHealth)

	for name, svc := range services {
		if svc == nil {
			continue
		}
		mount := "/" + svc.Prefix()
		router.Mount(mount, http.StripPrefix(mount, svc.Handler()))
		s.mountedServices = append(s.mountedServices, svc)
		logger.Info("service mounted", "service", name, "path", mount)
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP listener until it fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.cfg.ListenAddr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and closes mounted services in
// reverse mount order.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	for i := len(s.mountedServices) - 1; i >= 0; i-- {
		if cerr := s.mountedServices[i].Close(); cerr != nil {
			s.logger.Warn("service close failed", "error", cerr)
		}
	}
	if s.limitCache != nil {
		s.limitCache.Close()
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// requestLogger logs each request with method, path, status, and timing.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

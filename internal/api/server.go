package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/copygate/internal/adcopy"
	"github.com/JakeFAU/copygate/internal/clock/system"
	"github.com/JakeFAU/copygate/internal/config"
	"github.com/JakeFAU/copygate/internal/generate"
	"github.com/JakeFAU/copygate/internal/llm"
	"github.com/JakeFAU/copygate/internal/metrics"
	"github.com/JakeFAU/copygate/internal/prompt"
)

// Acquirer produces page signals for a URL. It never fails.
type Acquirer interface {
	Acquire(ctx context.Context, url string) adcopy.PageSignals
}

// Generator runs a usage-gated completion.
type Generator interface {
	Generate(ctx context.Context, identity string, req llm.Request) (generate.Result, error)
}

// Refiner rewrites a single ad asset.
type Refiner interface {
	Refine(ctx context.Context, in prompt.RefineInput) (string, error)
}

// Throttle admits or rejects a request from identity.
type Throttle interface {
	Allow(identity string) bool
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the collaborators the handlers call. Throttle, Clock, and Ready are optional.
type Dependencies struct {
	Acquirer  Acquirer
	Generator Generator
	Refiner   Refiner
	Throttle  Throttle
	Clock     adcopy.Clock
	Ready     map[string]Pinger
}

// Server wires HTTP handlers to the acquisition pipeline and generation gateway.
type Server struct {
	router chi.Router
	deps   Dependencies
	cfg    config.Config
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Dependencies, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = system.New()
	}
	s := &Server{
		deps:   deps,
		cfg:    cfg,
		logger: logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(corsMiddleware)
	r.Use(requestIDMiddleware)
	r.Use(metrics.Middleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	if timeout := cfg.RequestTimeout(); timeout > 0 {
		r.Use(timeoutMiddleware(timeout))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		if deps.Throttle != nil {
			r.Use(throttleMiddleware(deps.Throttle, s.logger))
		}
		r.Post("/scrape", s.scrape)
		r.Post("/generate", s.generate)
		r.Post("/refine", s.refine)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	failures := map[string]string{}
	for name, p := range s.deps.Ready {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
			failures[name] = err.Error()
		}
	}
	if len(failures) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not ready", "failures": failures})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

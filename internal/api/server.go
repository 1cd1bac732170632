// Package api exposes the scheduling operations over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"playout/internal/catalog"
	"playout/internal/duration"
	"playout/internal/schedule"
)

// Tracer reports every duration strategy's outcome for a reference.
type Tracer interface {
	Trace(ctx context.Context, ref duration.Reference) ([]duration.TraceEntry, error)
}

// Options wires the optional collaborators of a Server.
type Options struct {
	Media   catalog.Library
	Tracer  Tracer
	Logger  logrus.FieldLogger
	Health  func(ctx context.Context) error
	Timeout time.Duration
}

type Server struct {
	svc     *schedule.Service
	media   catalog.Library
	tracer  Tracer
	log     logrus.FieldLogger
	health  func(ctx context.Context) error
	timeout time.Duration
	newID   func() string
}

func NewServer(svc *schedule.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		logger = l
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Server{
		svc:     svc,
		media:   opts.Media,
		tracer:  opts.Tracer,
		log:     logger,
		health:  opts.Health,
		timeout: timeout,
		newID:   newMediaID,
	}
}

func (s *Server) Router(middlewares ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))
	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health", s.handleHealth)

	r.Get("/channels", s.handleListChannels)
	r.Get("/channels/{channel}/days/{date}", s.handleListDay)
	r.Post("/channels/{channel}/days/{date}/items", s.handleSchedule)

	r.Get("/items/{id}", s.handleGetItem)
	r.Delete("/items/{id}", s.handleRemoveItem)
	r.Patch("/items/{id}/start", s.handleMoveItem)
	r.Post("/items/{id}/reorder", s.handleReorderItem)
	r.Put("/items/{id}/status", s.handleSetStatus)

	r.Post("/duplicate", s.handleDuplicate)

	r.Route("/media", func(r chi.Router) {
		r.Get("/", s.handleListMedia)
		r.Post("/", s.handleAddMedia)
		r.Get("/{id}", s.handleGetMedia)
		r.Get("/{id}/duration", s.handleTraceMedia)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			s.log.WithError(err).Warn("health check failed")
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "degraded",
				"error":  err.Error(),
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "playout",
	})
}

// Package httpapi is the synchronous HTTP surface (C5): registration and
// read endpoints over the catalog store, composing the blob coordinator
// (C4) for dataset registration. Routing is go-chi.
package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/nilslice/datadictd/internal/blob"
	"github.com/nilslice/datadictd/internal/metrics"
	"github.com/nilslice/datadictd/internal/storage"
)

// Server bundles everything an HTTP handler needs: the catalog store,
// the blob coordinator, and a logger.
type Server struct {
	store         storage.Store
	coordinator   *blob.Coordinator
	managerDomain string
	log           *slog.Logger
	metrics       *metrics.Registry
}

// New builds a Server. managerDomain is the optional email-domain
// suffix configured via DD_MANAGER_EMAIL_DOMAIN; empty means
// unrestricted. m may be nil, in which case request counters and the
// /metrics endpoint are skipped.
func New(store storage.Store, coordinator *blob.Coordinator, managerDomain string, log *slog.Logger, m *metrics.Registry) *Server {
	return &Server{store: store, coordinator: coordinator, managerDomain: managerDomain, log: log, metrics: m}
}

// Router builds the complete chi.Router for the service, including CORS
// and request logging middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(slogLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	if s.metrics != nil {
		r.Use(s.metricsMiddleware)
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/manager/register", s.handleRegisterManager)
		r.Post("/dataset/register", s.handleRegisterDataset)
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/dataset/{name}", s.handleFindDataset)
		r.Get("/dataset/{name}/latest", s.handleLatestPartition)
		r.Get("/dataset/{name}/{partitionName:.*}", s.handleFindPartition)
	})

	return r
}

// metricsMiddleware records one counter increment per request, labeled
// by route pattern (not raw path, to keep cardinality bounded) and
// numeric status code.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}
		s.metrics.HTTPRequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
	})
}

// slogLogger adapts the structured logger into chi's request logging
// middleware slot, matching the logging style used elsewhere in the
// service rather than chi's own stdlib-logger default.
func slogLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
			)
		})
	}
}

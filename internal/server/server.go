// Package server exposes the generator over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rendis/codeflow/internal/flowchart"
	"github.com/rendis/codeflow/internal/logging"
	"github.com/rendis/codeflow/internal/store"
	"github.com/rendis/codeflow/internal/streaming"
	"github.com/rendis/codeflow/internal/validation"
)

// DefaultMaxBodyBytes bounds request bodies when Deps.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 4 << 20

// Deps holds the dependencies for the HTTP server. Store and Hub may be nil,
// which disables the history and event-stream endpoints.
type Deps struct {
	Generator    *flowchart.Generator
	Validator    validation.Validator
	Store        store.Store
	Hub          streaming.Hub
	Gatherer     prometheus.Gatherer
	Logger       *slog.Logger
	Version      string
	MaxBodyBytes int64
}

// Server serves the codeflow HTTP API.
type Server struct {
	deps Deps
}

// New creates a Server.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Server{deps: deps}
}

// Handler returns the HTTP handler for all routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Core.
	mux.HandleFunc("POST /parse", s.handleParse)
	mux.HandleFunc("POST /render", s.handleRender)

	// History.
	mux.HandleFunc("GET /diagrams", s.handleListDiagrams)
	mux.HandleFunc("GET /diagrams/{id}", s.handleGetDiagram)
	mux.HandleFunc("DELETE /diagrams/{id}", s.handleDeleteDiagram)
	mux.HandleFunc("GET /builds", s.handleListBuilds)

	// SSE stream.
	mux.HandleFunc("GET /events", s.handleSSE)

	// Operations.
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	return s.withRequestContext(mux)
}

// withRequestContext tags every request with a request ID, taken from the
// X-Request-ID header when present, and logs its completion.
func (s *Server) withRequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		ctx := logging.WithTransport(logging.WithRequestID(r.Context(), id), "http")
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r.WithContext(ctx))

		s.deps.Logger.DebugContext(ctx, "request served",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}

// statusRecorder captures the response status and keeps http.Flusher
// available for SSE.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

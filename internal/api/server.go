package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cheapnut/cheapnut/internal/catalog"
	"github.com/cheapnut/cheapnut/internal/model"
	"github.com/cheapnut/cheapnut/internal/refresh"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// Refresher is the slice of the refresh orchestrator the API needs.
type Refresher interface {
	Trigger(ctx context.Context, sources ...string) (*model.RefreshJob, bool, error)
	Job(ctx context.Context, id string) (*model.RefreshJob, error)
	StalenessSummary(ctx context.Context) (refresh.StalenessSummary, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	engine     Querier
	refresher  Refresher
	mux        *http.ServeMux
	corsOrigin string
}

// Querier is the slice of the catalog engine the API needs.
type Querier interface {
	Search(ctx context.Context, query string) (catalog.SearchResult, error)
	Leaderboard(ctx context.Context, metric string, limit int) ([]model.Item, error)
	Compare(ctx context.Context, query string) (*catalog.Comparison, error)
}

// New creates a new API server.
func New(engine Querier, refresher Refresher, corsOrigin string) *Server {
	if corsOrigin == "" {
		corsOrigin = "*"
	}
	srv := &Server{engine: engine, refresher: refresher, mux: http.NewServeMux(), corsOrigin: corsOrigin}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/search", s.handleSearch)
	s.mux.HandleFunc("GET /api/benchmarks/leaderboard", s.handleLeaderboard)
	s.mux.HandleFunc("POST /api/benchmarks/refresh", s.handleRefresh)
	s.mux.HandleFunc("GET /api/benchmarks/refresh/{id}", s.handleGetJob)
	s.mux.HandleFunc("GET /api/benchmarks/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/compare/opportunity-cost", s.handleCompare)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers so the browser front end can call us
// from its own origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the {"error": ...} payload the front end branches on.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cheapnut/cheapnut/internal/catalog"
	"github.com/cheapnut/cheapnut/internal/model"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to CheapNut API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// GET /api/search?q=<text>
// ---------------------------------------------------------------------------

// itemView is the item shape the front end renders.
type itemView struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     float64         `json:"price"`
	Unit      string          `json:"unit"`
	Store     string          `json:"store"`
	Nutrition model.Nutrition `json:"nutrition"`
}

type searchResponse struct {
	Grocery  []itemView `json:"grocery"`
	FastFood []itemView `json:"fastfood"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{
		Grocery:  itemViews(result.Grocery),
		FastFood: itemViews(result.FastFood),
	})
}

func itemViews(items []model.Item) []itemView {
	out := make([]itemView, len(items))
	for i, it := range items {
		out[i] = itemView{
			ID:        it.ID,
			Name:      it.Name,
			Price:     it.Price,
			Unit:      it.Unit,
			Store:     it.Store,
			Nutrition: it.Nutrition,
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// GET /api/benchmarks/leaderboard?metric=protein|calories|price
// ---------------------------------------------------------------------------

// leaderboardRow flattens an item with its derived metrics for the
// leaderboard table. Undefined metrics render as null, never 0.
type leaderboardRow struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Store             string   `json:"store"`
	LowestPrice       float64  `json:"lowest_price"`
	Unit              string   `json:"unit"`
	PricePer100g      *float64 `json:"price_per_100g"`
	ProteinPerDollar  *float64 `json:"protein_per_dollar"`
	CaloriesPerDollar *float64 `json:"calories_per_dollar"`
	LastUpdated       string   `json:"last_updated"`
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	metric := r.URL.Query().Get("metric")
	if metric == "" {
		metric = "protein"
	}
	limit := catalog.DefaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	items, err := s.engine.Leaderboard(r.Context(), metric, limit)
	if err != nil {
		if errors.Is(err, model.ErrCatalogUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := make([]leaderboardRow, len(items))
	for i, it := range items {
		rows[i] = leaderboardRow{
			ID:                it.ID,
			Name:              it.Name,
			Store:             it.Store,
			LowestPrice:       it.Price,
			Unit:              it.Unit,
			PricePer100g:      it.Metrics.PricePer100g,
			ProteinPerDollar:  it.Metrics.ProteinPerDollar,
			CaloriesPerDollar: it.Metrics.CaloriesPerDollar,
			LastUpdated:       it.LastUpdated.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

// ---------------------------------------------------------------------------
// POST /api/benchmarks/refresh
// ---------------------------------------------------------------------------

type refreshResponse struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	Coalesced bool   `json:"coalesced"`
}

// handleRefresh triggers a refresh and returns 202 immediately; it
// never waits for the scrape to finish.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	job, coalesced, err := s.refresher.Trigger(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to start refresh")
		return
	}
	writeJSON(w, http.StatusAccepted, refreshResponse{
		JobID:     job.JobID,
		Status:    job.Status,
		Coalesced: coalesced,
	})
}

// ---------------------------------------------------------------------------
// GET /api/benchmarks/refresh/{id}
// ---------------------------------------------------------------------------

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.refresher.Job(r.Context(), r.PathValue("id"))
	if errors.Is(err, model.ErrItemNotFound) {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load job")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// ---------------------------------------------------------------------------
// GET /api/benchmarks/status
// ---------------------------------------------------------------------------

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	summary, err := s.refresher.StalenessSummary(r.Context())
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// ---------------------------------------------------------------------------
// GET /api/compare/opportunity-cost?query=<text>
// ---------------------------------------------------------------------------

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	result, err := s.engine.Compare(r.Context(), query)
	switch {
	case errors.Is(err, model.ErrItemNotFound):
		writeError(w, http.StatusNotFound, "no fast food item matched your search")
	case errors.Is(err, model.ErrNoBenchmark):
		writeError(w, http.StatusNotFound, "no grocery benchmark available yet, try refreshing")
	case errors.Is(err, model.ErrCatalogUnavailable):
		writeError(w, http.StatusServiceUnavailable, "catalog unavailable")
	case err != nil:
		writeError(w, http.StatusInternalServerError, "comparison failed")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}

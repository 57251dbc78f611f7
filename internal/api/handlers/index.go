package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Sudhamsh17/equal-weighted-index-100/internal/contracts"
	"github.com/Sudhamsh17/equal-weighted-index-100/internal/store"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/logger"
	"github.com/Sudhamsh17/equal-weighted-index-100/pkg/redis"
)

// IndexReader is the read surface the handlers need from the store.
type IndexReader interface {
	IndexValues(ctx context.Context, from, to time.Time) ([]contracts.IndexValueRecord, error)
	CompositionAt(ctx context.Context, date time.Time) (*contracts.CompositionSnapshot, error)
	LatestIndexValue(ctx context.Context) (*contracts.IndexValueRecord, error)
	CustomQuery(ctx context.Context, query string) (*store.QueryResult, error)
}

// IndexHandler serves read access to index values, compositions and the
// custom query escape hatch.
type IndexHandler struct {
	store  IndexReader
	cache  *redis.Cache
	logger *logger.Logger
}

// NewIndexHandler creates a new index handler
func NewIndexHandler(st IndexReader, cache *redis.Cache, log *logger.Logger) *IndexHandler {
	return &IndexHandler{
		store:  st,
		cache:  cache,
		logger: log,
	}
}

// valuePoint is one date's index level in API responses.
type valuePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// GetValues returns index values within a date range
// GET /api/v1/index/values?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *IndexHandler) GetValues(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	from, err := parseDateParam(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if to.Before(from) {
		respondError(w, http.StatusBadRequest, "'to' precedes 'from'")
		return
	}

	records, err := h.store.IndexValues(ctx, from, to)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load index values")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve index values")
		return
	}
	if len(records) == 0 {
		respondError(w, http.StatusNotFound, "No index values in range")
		return
	}

	points := make([]valuePoint, 0, len(records))
	for _, rec := range records {
		points = append(points, valuePoint{
			Date:  rec.Date.Format(contracts.DateFormat),
			Value: rec.Value,
		})
	}
	respondJSON(w, http.StatusOK, points)
}

// compositionEntry is one constituent holding in API responses.
type compositionEntry struct {
	Ticker string  `json:"ticker"`
	Qty    float64 `json:"qty"`
}

type compositionResponse struct {
	Date    string             `json:"date"`
	Entries []compositionEntry `json:"entries"`
}

// GetComposition returns the composition in effect on a date
// GET /api/v1/index/composition?date=YYYY-MM-DD
func (h *IndexHandler) GetComposition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	date, err := parseDateParam(r, "date")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, err := h.store.CompositionAt(ctx, date)
	if err != nil {
		if errors.Is(err, contracts.ErrEmptyResult) {
			respondError(w, http.StatusNotFound, "No composition on or before that date")
			return
		}
		h.logger.WithError(err).Error("Failed to load composition")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve composition")
		return
	}

	resp := compositionResponse{Date: snapshot.Date.Format(contracts.DateFormat)}
	for _, entry := range snapshot.Entries {
		resp.Entries = append(resp.Entries, compositionEntry{Ticker: entry.Ticker, Qty: entry.Qty})
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetLatest returns the most recent index value
// GET /api/v1/index/latest
func (h *IndexHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached valuePoint
	if h.cache != nil {
		if hit, err := h.cache.Get(ctx, redis.LatestValueKey, &cached); err == nil && hit {
			respondJSON(w, http.StatusOK, cached)
			return
		}
	}

	record, err := h.store.LatestIndexValue(ctx)
	if err != nil {
		if errors.Is(err, contracts.ErrEmptyResult) {
			respondError(w, http.StatusNotFound, "No index values computed yet")
			return
		}
		h.logger.WithError(err).Error("Failed to load latest index value")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest index value")
		return
	}

	point := valuePoint{Date: record.Date.Format(contracts.DateFormat), Value: record.Value}
	if h.cache != nil {
		if err := h.cache.Set(ctx, redis.LatestValueKey, point, redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Failed to cache latest index value")
		}
	}
	respondJSON(w, http.StatusOK, point)
}

// QueryRequest is a raw read-only SQL query
type QueryRequest struct {
	SQL string `json:"sql"`
}

// Query executes a read-only SQL query against the index tables
// POST /api/v1/query
func (h *IndexHandler) Query(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.SQL == "" {
		respondError(w, http.StatusBadRequest, "Missing 'sql' field")
		return
	}

	result, err := h.store.CustomQuery(ctx, req.SQL)
	if err != nil {
		if errors.Is(err, contracts.ErrEmptyResult) {
			respondError(w, http.StatusNotFound, "Query returned no rows")
			return
		}
		h.logger.WithError(err).Warn("Custom query failed")
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Helper functions

func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, errors.New("missing '" + name + "' query parameter (expected YYYY-MM-DD)")
	}
	date, err := time.Parse(contracts.DateFormat, raw)
	if err != nil {
		return time.Time{}, errors.New("invalid '" + name + "' date format (expected YYYY-MM-DD)")
	}
	return date, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

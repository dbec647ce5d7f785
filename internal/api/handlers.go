package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/stockdata/stock-data-service/internal/cache"
	"github.com/stockdata/stock-data-service/internal/database"
	"github.com/stockdata/stock-data-service/internal/models"
)

const (
	defaultPageSize = 100
	dateLayout      = "2006-01-02"
)

// Store defines the read operations handlers need from the database layer.
type Store interface {
	ListPage(ctx context.Context, symbol string, page, pageSize int) ([]*models.PriceRecord, error)
	Latest(ctx context.Context, symbol string) (*models.PriceRecord, error)
	Range(ctx context.Context, symbol string, startDate, endDate *time.Time) ([]*models.PriceRecord, error)
	Symbols(ctx context.Context) ([]string, error)
	Stats(ctx context.Context, symbol string) (*models.SymbolStats, error)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	store  Store
	cache  *cache.Cache
	logger *slog.Logger
}

// NewHandler creates a new Handler. The cache may be nil, in which case
// every read goes straight to the store.
func NewHandler(store Store, c *cache.Cache, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		cache:  c,
		logger: logger,
	}
}

// ListStocks handles GET /api/v1/stocks
func (h *Handler) ListStocks(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "per_page", defaultPageSize)
	if page < 1 || pageSize < 1 {
		http.Error(w, "page and per_page must be positive", http.StatusBadRequest)
		return
	}

	records, err := cache.Fetch(r.Context(), h.cache, cache.PageKey(symbol, page, pageSize), cache.ListTTL,
		func() ([]*models.PriceRecord, error) {
			return h.store.ListPage(r.Context(), symbol, page, pageSize)
		})
	if err != nil {
		h.serverError(w, "list stocks", err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// ListSymbols handles GET /api/v1/stocks/symbols
func (h *Handler) ListSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := cache.Fetch(r.Context(), h.cache, cache.Key("symbols"), cache.SymbolsTTL,
		func() ([]string, error) {
			return h.store.Symbols(r.Context())
		})
	if err != nil {
		h.serverError(w, "list symbols", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string][]string{"symbols": symbols})
}

// GetLatest handles GET /api/v1/stocks/{symbol}
func (h *Handler) GetLatest(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	record, err := cache.Fetch(r.Context(), h.cache, cache.Key("latest", symbol), cache.LatestTTL,
		func() (*models.PriceRecord, error) {
			return h.store.Latest(r.Context(), symbol)
		})
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "stock "+symbol+" not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "get latest", err)
		return
	}

	respondJSON(w, http.StatusOK, record)
}

// GetHistory handles GET /api/v1/stocks/{symbol}/history
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]
	startStr := r.URL.Query().Get("start_date")
	endStr := r.URL.Query().Get("end_date")

	startDate, err := parseDate(startStr)
	if err != nil {
		http.Error(w, "invalid start_date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	endDate, err := parseDate(endStr)
	if err != nil {
		http.Error(w, "invalid end_date, want YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	records, err := cache.Fetch(r.Context(), h.cache, cache.RangeKey(symbol, startStr, endStr), cache.HistoryTTL,
		func() ([]*models.PriceRecord, error) {
			return h.store.Range(r.Context(), symbol, startDate, endDate)
		})
	if err != nil {
		h.serverError(w, "get history", err)
		return
	}

	respondJSON(w, http.StatusOK, records)
}

// GetStats handles GET /api/v1/stocks/{symbol}/stats
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	symbol := mux.Vars(r)["symbol"]

	stats, err := cache.Fetch(r.Context(), h.cache, cache.Key("stats", symbol), cache.HistoryTTL,
		func() (*models.SymbolStats, error) {
			return h.store.Stats(r.Context(), symbol)
		})
	if errors.Is(err, database.ErrNotFound) {
		http.Error(w, "stock "+symbol+" not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.serverError(w, "get stats", err)
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op+" failed", "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func queryInt(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return n
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	t = t.UTC()
	return &t, nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

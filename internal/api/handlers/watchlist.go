package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

// ReasonManual marks entries added over the API
const ReasonManual = "manual"

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.\-]{0,9}$`)

// WatchlistHandler handles watchlist endpoints
type WatchlistHandler struct {
	watchlist contracts.WatchlistManager
	cache     *redis.Cache
	location  *time.Location
	now       func() time.Time
	logger    *logger.Logger
}

// NewWatchlistHandler creates a new watchlist handler.
// loc is the exchange time zone that dates manual additions.
func NewWatchlistHandler(watchlist contracts.WatchlistManager, cache *redis.Cache, loc *time.Location, log *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{
		watchlist: watchlist,
		cache:     cache,
		location:  loc,
		now:       time.Now,
		logger:    log.Module("api"),
	}
}

// EntryView is the API representation of a watchlist entry
type EntryView struct {
	contracts.WatchlistEntry
	DateAdded   string `json:"date_added"`
	PercentText string `json:"percent_below_high_text"`
}

func newEntryView(e contracts.WatchlistEntry) EntryView {
	return EntryView{
		WatchlistEntry: e,
		DateAdded:      e.DateAdded.Format("2006-01-02"),
		PercentText:    fmt.Sprintf("%.2f%%", e.PercentBelowHigh*100),
	}
}

// ListResponse is the body of GET /api/watchlist
type ListResponse struct {
	Count   int         `json:"count"`
	Entries []EntryView `json:"entries"`
}

// List returns every entry, newest first
// GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var entries []contracts.WatchlistEntry
	err := h.cache.GetOrSet(ctx, redis.WatchlistKey(), &entries, redis.TTLMedium, func() (interface{}, error) {
		return h.watchlist.List(ctx)
	})
	if err != nil {
		h.logger.WithError(err).Error("Failed to list watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve watchlist")
		return
	}

	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}

	respondJSON(w, http.StatusOK, ListResponse{Count: len(views), Entries: views})
}

// AddRequest is the body of POST /api/watchlist
type AddRequest struct {
	Ticker string `json:"ticker"`
	Reason string `json:"reason"`
}

// Add lists a ticker by hand. An existing entry is returned untouched with 200.
// POST /api/watchlist
func (h *WatchlistHandler) Add(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ticker, ok := normalizeTicker(req.Ticker)
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}
	if req.Reason == "" {
		req.Reason = ReasonManual
	}

	entry, created, err := h.watchlist.Add(ctx, ticker, req.Reason, h.now().In(h.location))
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to add to watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to add to watchlist")
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.invalidate(r)
		h.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"reason": req.Reason,
		}).Info("Ticker added to watchlist by hand")
	}

	respondJSON(w, status, newEntryView(*entry))
}

// Remove deletes a ticker's entry
// DELETE /api/watchlist/{ticker}
func (h *WatchlistHandler) Remove(w http.ResponseWriter, r *http.Request) {
	ticker, ok := normalizeTicker(mux.Vars(r)["ticker"])
	if !ok {
		respondError(w, http.StatusBadRequest, "Invalid ticker")
		return
	}

	removed, err := h.watchlist.Remove(r.Context(), ticker)
	if err != nil {
		h.logger.WithError(err).WithField("ticker", ticker).Error("Failed to remove from watchlist")
		respondError(w, http.StatusInternalServerError, "Failed to remove from watchlist")
		return
	}
	if !removed {
		respondError(w, http.StatusNotFound, "Ticker is not on the watchlist")
		return
	}

	h.invalidate(r)
	h.logger.WithField("ticker", ticker).Info("Ticker removed from watchlist")
	w.WriteHeader(http.StatusNoContent)
}

func (h *WatchlistHandler) invalidate(r *http.Request) {
	if err := h.cache.Delete(r.Context(), redis.WatchlistKey()); err != nil {
		h.logger.WithError(err).Warn("Failed to invalidate watchlist cache")
	}
}

func normalizeTicker(raw string) (string, bool) {
	t := strings.ToUpper(strings.TrimSpace(raw))
	return t, tickerPattern.MatchString(t)
}

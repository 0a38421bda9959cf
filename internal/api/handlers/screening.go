package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/stockwatch/internal/contracts"
	"github.com/wonny/stockwatch/pkg/logger"
	"github.com/wonny/stockwatch/pkg/redis"
)

// manualRunTimeout bounds a pass started over HTTP, detached from the request
const manualRunTimeout = 30 * time.Minute

// Trigger starts a locked screening pass
type Trigger interface {
	RunOnce(ctx context.Context) (*contracts.RunSummary, bool, error)
}

// ScreeningHandler handles screening run endpoints
// ⭐ SSOT: 스크리닝 API 핸들러는 이 구조체에서만
type ScreeningHandler struct {
	trigger Trigger
	runs    contracts.RunRecorder
	cache   *redis.Cache
	limiter *redis.RateLimiter
	logger  *logger.Logger

	// done receives the outcome of background runs; nil outside tests
	done chan<- error
}

// NewScreeningHandler creates a new screening handler
func NewScreeningHandler(trigger Trigger, runs contracts.RunRecorder, cache *redis.Cache, limiter *redis.RateLimiter, log *logger.Logger) *ScreeningHandler {
	return &ScreeningHandler{
		trigger: trigger,
		runs:    runs,
		cache:   cache,
		limiter: limiter,
		logger:  log.Module("api"),
	}
}

// TriggerResponse acknowledges a manual run
type TriggerResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Run starts a screening pass in the background
// POST /api/screening/run
func (h *ScreeningHandler) Run(w http.ResponseWriter, r *http.Request) {
	allowed, _, err := h.limiter.Allow(r.Context(), redis.ScreeningTriggerLimit)
	if err != nil {
		h.logger.WithError(err).Warn("Rate limiter unavailable, allowing trigger")
		allowed = true
	}
	if !allowed {
		w.Header().Set("Retry-After", strconv.Itoa(int(redis.ScreeningTriggerLimit.Window.Seconds())))
		respondError(w, http.StatusTooManyRequests, "Screening was triggered recently, try again later")
		return
	}

	h.logger.WithField("remote", r.RemoteAddr).Info("Manual screening triggered")

	// 요청이 끝나도 실행은 계속되어야 함
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), manualRunTimeout)
	go func() {
		defer cancel()

		summary, ran, err := h.trigger.RunOnce(ctx)
		switch {
		case err != nil:
			h.logger.WithError(err).Error("Manual screening failed")
		case !ran:
			h.logger.Warn("Manual screening skipped, another run holds the lock")
		default:
			h.logger.WithFields(map[string]interface{}{
				"run_id":   summary.RunID,
				"admitted": len(summary.Admitted),
			}).Info("Manual screening completed")
		}

		if h.done != nil {
			h.done <- err
		}
	}()

	respondJSON(w, http.StatusAccepted, TriggerResponse{
		Status:  "accepted",
		Message: "Screening run started",
	})
}

// Latest returns the most recent run summary
// GET /api/screening/runs/latest
func (h *ScreeningHandler) Latest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var summary contracts.RunSummary
	err := h.cache.GetOrSet(ctx, redis.LatestRunKey(), &summary, redis.TTLShort, func() (interface{}, error) {
		return h.runs.LatestRun(ctx)
	})
	if errors.Is(err, contracts.ErrNotFound) {
		respondError(w, http.StatusNotFound, "No screening run recorded yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest run")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

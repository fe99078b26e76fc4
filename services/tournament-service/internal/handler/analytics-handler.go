package handler

import (
	"net/http"

	"github.com/bracket-esports/bracket/common/logger"
	"github.com/bracket-esports/bracket/common/models"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/repository"
	"github.com/bracket-esports/bracket/services/tournament-service/internal/service"
)

type AnalyticsHandler struct {
	analyticsService service.AnalyticsService
	logger           *logger.Logger
}

func NewAnalyticsHandler(analyticsService service.AnalyticsService, logger *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

func (h *AnalyticsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	metric := repository.LeaderboardMetric(r.URL.Query().Get("metric"))
	if metric == "" {
		metric = repository.MetricKills
	}

	entries, err := h.analyticsService.Leaderboard(r.Context(), models.Game(urlParam(r, "game")), metric, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, entries)
}

func (h *AnalyticsHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	entries, err := h.analyticsService.EarningsLeaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, entries)
}

func (h *AnalyticsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	counters, err := h.analyticsService.PlatformOverview(r.Context())
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, counters)
}

func (h *AnalyticsHandler) User(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.analyticsService.UserAnalytics(r.Context(), urlParam(r, "userId"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	ok(w, http.StatusOK, analytics)
}

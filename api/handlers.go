// Package api serves the read-only activity projection over HTTP.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/romeda-works/romeda-bot/app/modules/ranking"
	"github.com/romeda-works/romeda-bot/config"
)

// ActivitySource is the ranking snapshot the projection serves; satisfied by
// the orchestrator service.
type ActivitySource interface {
	Snapshot() (entries []ranking.Entry, at time.Time, ok bool)
}

// ChannelActivity is the wire shape for one projected channel.
type ChannelActivity struct {
	ChannelID          string    `json:"channelId"`
	ActivityPoint      int       `json:"activityPoint"`
	Rank               int       `json:"rank"`
	ActiveMemberCount  int       `json:"activeMemberCount"`
	WeeklyMessageCount int       `json:"weeklyMessageCount"`
	LastUpdated        time.Time `json:"lastUpdated"`
}

// ChannelList is the envelope for the full ranking.
type ChannelList struct {
	Clubs       []ChannelActivity `json:"clubs"`
	Total       int               `json:"total"`
	LastUpdated time.Time         `json:"lastUpdated"`
}

// Health is the liveness response.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Handlers serves the projection endpoints.
type Handlers struct {
	source ActivitySource
	logger *slog.Logger
}

// NewHandlers creates the projection handlers.
func NewHandlers(source ActivitySource, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{source: source, logger: logger}
}

// HandleChannelActivity serves one channel's current standing.
func (h *Handlers) HandleChannelActivity(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	entries, at, ok := h.source.Snapshot()
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable, "ranking has not been computed yet")
		return
	}

	for i, e := range entries {
		if e.ChannelID != channelID {
			continue
		}
		writeJSON(w, h.logger, ChannelActivity{
			ChannelID:          e.ChannelID,
			ActivityPoint:      e.ActivityScore,
			Rank:               i + 1,
			ActiveMemberCount:  e.ActiveMemberCount,
			WeeklyMessageCount: e.WeeklyMessageCount,
			LastUpdated:        at,
		})
		return
	}

	writeJSONError(w, http.StatusNotFound, "channel is not ranked")
}

// HandleChannelList serves the full ranking.
func (h *Handlers) HandleChannelList(w http.ResponseWriter, r *http.Request) {
	entries, at, ok := h.source.Snapshot()
	if !ok {
		writeJSONError(w, http.StatusServiceUnavailable, "ranking has not been computed yet")
		return
	}

	clubs := make([]ChannelActivity, len(entries))
	for i, e := range entries {
		clubs[i] = ChannelActivity{
			ChannelID:          e.ChannelID,
			ActivityPoint:      e.ActivityScore,
			Rank:               i + 1,
			ActiveMemberCount:  e.ActiveMemberCount,
			WeeklyMessageCount: e.WeeklyMessageCount,
			LastUpdated:        at,
		}
	}
	writeJSON(w, h.logger, ChannelList{
		Clubs:       clubs,
		Total:       len(clubs),
		LastUpdated: at,
	})
}

// HandleHealth reports process liveness.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, Health{Status: "ok", Timestamp: time.Now()})
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", slog.Any("error", err))
	}
}

// writeJSONError emits the error shape every non-200 response carries.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// NewRouter assembles the projection router.
func NewRouter(cfg config.APIConfig, source ActivitySource, registry *prometheus.Registry, logger *slog.Logger) chi.Router {
	handlers := NewHandlers(source, logger)
	limiter := NewIPRateLimiter(5, 10)

	r := chi.NewRouter()
	r.Get("/health", handlers.HandleHealth)
	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/club", func(r chi.Router) {
		r.Use(CORSMiddleware)
		r.Use(RateLimitMiddleware(limiter))
		r.Use(TokenAuthMiddleware(cfg.Token))

		r.Get("/activity/{channelID}", handlers.HandleChannelActivity)
		r.Get("/list", handlers.HandleChannelList)
	})

	return r
}

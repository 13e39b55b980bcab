package http

import (
	"net/http"

	"github.com/go-chi/render"

	"stockdesk/internal/services"
	"stockdesk/internal/websocket"
)

// HubStatser exposes WebSocket hub counters
type HubStatser interface {
	Stats() websocket.HubStats
}

// RunLister lists analysis runs
type RunLister interface {
	List() []services.RunSnapshot
	Active() (string, bool)
}

// MetricsHandler serves the Prometheus endpoint and a JSON summary of
// service counters
type MetricsHandler struct {
	prometheus http.Handler
	hub        HubStatser
	runs       RunLister
}

// NewMetricsHandler creates a new metrics handler. prometheus may be nil, in
// which case /metrics answers 404.
func NewMetricsHandler(prometheus http.Handler, hub HubStatser, runs RunLister) *MetricsHandler {
	if prometheus == nil {
		prometheus = http.NotFoundHandler()
	}
	return &MetricsHandler{prometheus: prometheus, hub: hub, runs: runs}
}

// StatsResponse summarises service counters
type StatsResponse struct {
	WebSocket   *websocket.HubStats `json:"websocket,omitempty"`
	Analyses    int                 `json:"analyses"`
	ActiveRunID string              `json:"active_run_id,omitempty"`
	States      map[string]int      `json:"states"`
}

// Prometheus handles GET /metrics
func (h *MetricsHandler) Prometheus(w http.ResponseWriter, r *http.Request) {
	h.prometheus.ServeHTTP(w, r)
}

// GetStats handles GET /api/stats
func (h *MetricsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{States: make(map[string]int)}
	if h.hub != nil {
		stats := h.hub.Stats()
		resp.WebSocket = &stats
	}
	if h.runs != nil {
		snaps := h.runs.List()
		resp.Analyses = len(snaps)
		for _, s := range snaps {
			resp.States[s.State.String()]++
		}
		resp.ActiveRunID, _ = h.runs.Active()
	}
	render.JSON(w, r, resp)
}

// Package handlers contains HTTP request handlers
package handlers

import (
	"net/http"
	"time"
)

type HealthHandler struct {
	startTime time.Time
	courtesy  CourtesyProvider
}

func NewHealthHandler(courtesy CourtesyProvider) *HealthHandler {
	return &HealthHandler{startTime: time.Now(), courtesy: courtesy}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "OK",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   "1.0.0",
		"uptime":    time.Since(h.startTime).String(),
		"bluetooth": h.courtesy.Status().Adapter.String(),
	})
}

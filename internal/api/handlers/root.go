package handlers

import (
	"net/http"
)

type RootHandler struct {
	stopCount  int
	groupCount int
}

// NewRootHandler creates the index handler. The counts describe the loaded catalog.
func NewRootHandler(stopCount, groupCount int) *RootHandler {
	return &RootHandler{stopCount: stopCount, groupCount: groupCount}
}

func (h *RootHandler) Index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "comfortablemove",
		"description": "Nearest bus stop lookup and BLE courtesy seat notifications",
		"version":     "1.0.0",
		"catalog": map[string]int{
			"records": h.stopCount,
			"stops":   h.groupCount,
		},
		"endpoints": map[string]string{
			"GET /health":                  "Health check",
			"GET /api":                     "API information",
			"POST /location/fix":           "Report a device fix {lng, lat}",
			"POST /location/refresh":       "Accept the next device fix",
			"GET /stops/current":           "Stop resolved from the last accepted fix",
			"GET /stops/nearest":           "Nearest stop to ?lng=&lat=",
			"GET /stops/closest":           "Closest stops to ?lng=&lat=&limit=",
			"GET /stops/{nodeId}/arrivals": "Arrival messages for every route at a stop",
			"GET /stops/{nodeId}/alerts":   "Service alerts for a stop's routes",
			"POST /courtesy/{route}":       "Send a courtesy seat notification {confirm: true}",
			"GET /courtesy/status":         "Bluetooth and notifier state",
			"GET /courtesy/history":        "Recent notification attempts",
		},
	})
}

func (h *RootHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":   "Route not found",
		"message": "Check /api for available routes",
	})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/randytsao24/comfortablemove/internal/location"
	"github.com/randytsao24/comfortablemove/internal/models"
)

const (
	defaultLimit = 5
	maxLimit     = 20
)

type StopsHandler struct {
	stops    StopProvider
	location LocationProvider
}

func NewStopsHandler(stops StopProvider, loc LocationProvider) *StopsHandler {
	return &StopsHandler{stops: stops, location: loc}
}

// GetCurrent returns the stop resolved from the last accepted device fix
func (h *StopsHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	stop, ok := h.location.Current()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "No current stop",
			"message": "Report a location fix first",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stop":    stop,
	})
}

// GetNearest resolves the nearest stop to a coordinate
func (h *StopsHandler) GetNearest(w http.ResponseWriter, r *http.Request) {
	p, err := parsePointParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid coordinates",
			"message": err.Error(),
		})
		return
	}

	stop, ok := h.stops.Nearest(p)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "No stops loaded",
			"message": "The stop catalog is empty",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"location":        p,
		"stop":            stop,
		"approx_meters":   location.ApproxMeters(p, models.Point{X: stop.X, Y: stop.Y}),
		"routes_serviced": len(stop.Routes),
	})
}

// GetClosest returns the N closest stops to a coordinate
func (h *StopsHandler) GetClosest(w http.ResponseWriter, r *http.Request) {
	p, err := parsePointParams(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid coordinates",
			"message": err.Error(),
		})
		return
	}

	limit := parseIntParam(r, "limit", defaultLimit, 1, maxLimit)
	stops := h.stops.Closest(p, limit)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"location": p,
		"stops":    stops,
		"metadata": map[string]any{
			"stops_found": len(stops),
		},
	})
}

// stopFromPath resolves the {nodeId} path value, writing an error response on failure
func stopFromPath(w http.ResponseWriter, r *http.Request, stops StopProvider) (models.ResolvedStop, bool) {
	nodeID, err := strconv.Atoi(r.PathValue("nodeId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid stop ID",
			"message": "Stop ID must be a number",
		})
		return models.ResolvedStop{}, false
	}

	stop, ok := stops.ByNodeID(nodeID)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":   "Stop not found",
			"message": "Stop " + strconv.Itoa(nodeID) + " is not in the catalog",
		})
		return models.ResolvedStop{}, false
	}
	return stop, true
}

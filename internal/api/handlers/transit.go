package handlers

import (
	"net/http"
	"time"

	"github.com/randytsao24/comfortablemove/internal/transit"
)

type TransitHandler struct {
	stops    StopProvider
	arrivals ArrivalProvider
	alerts   AlertProvider
}

func NewTransitHandler(stops StopProvider, arrivals ArrivalProvider, alerts AlertProvider) *TransitHandler {
	return &TransitHandler{
		stops:    stops,
		arrivals: arrivals,
		alerts:   alerts,
	}
}

// GetArrivals returns the next arrival message for every route at a stop
func (h *TransitHandler) GetArrivals(w http.ResponseWriter, r *http.Request) {
	stop, ok := stopFromPath(w, r, h.stops)
	if !ok {
		return
	}

	if !h.arrivals.HasAPIKey() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":   "Bus arrival API not configured",
			"message": "Set BUS_API_KEY to enable arrival lookups",
		})
		return
	}

	arrivals := h.arrivals.ArrivalsForStop(r.Context(), stop)

	withData := 0
	for _, a := range arrivals {
		if a.HasData {
			withData++
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"stop_id":   stop.ID,
		"stop_name": stop.StopName,
		"direction": stop.Direction,
		"arrivals":  arrivals,
		"metadata": map[string]any{
			"routes":     len(arrivals),
			"with_data":  withData,
			"fetched_at": time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// GetServiceAlerts returns active service alerts for a stop's routes
func (h *TransitHandler) GetServiceAlerts(w http.ResponseWriter, r *http.Request) {
	stop, ok := stopFromPath(w, r, h.stops)
	if !ok {
		return
	}

	alerts, err := h.alerts.GetAlerts(r.Context(), stop.Routes)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to fetch service alerts",
			"message": err.Error(),
		})
		return
	}
	if alerts == nil {
		alerts = []transit.ServiceAlert{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stop_id": stop.ID,
		"alerts":  alerts,
		"count":   len(alerts),
	})
}

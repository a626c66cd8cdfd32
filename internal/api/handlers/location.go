package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/randytsao24/comfortablemove/internal/location"
	"github.com/randytsao24/comfortablemove/internal/models"
)

type LocationHandler struct {
	location LocationProvider
}

func NewLocationHandler(loc LocationProvider) *LocationHandler {
	return &LocationHandler{location: loc}
}

type fixRequest struct {
	Lng *float64 `json:"lng"`
	Lat *float64 `json:"lat"`
}

// PostFix reports a device fix. Only the first fix after a refresh is resolved.
func (h *LocationHandler) PostFix(w http.ResponseWriter, r *http.Request) {
	var req fixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Lng == nil || req.Lat == nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Invalid location fix",
			"message": "Body must be {\"lng\": number, \"lat\": number}",
		})
		return
	}

	p := models.Point{X: *req.Lng, Y: *req.Lat}
	stop, found, err := h.location.Update(r.Context(), p)
	switch {
	case errors.Is(err, location.ErrFixIgnored):
		current, ok := h.location.Current()
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"accepted": false,
			"message":  "Fix ignored until refresh",
			"stop":     optionalStop(current, ok),
		})
		return
	case err != nil:
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{
			"error":   "Location lookup interrupted",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"accepted": true,
		"stop":     optionalStop(stop, found),
	})
}

// PostRefresh re-arms the tracker so the next fix is resolved
func (h *LocationHandler) PostRefresh(w http.ResponseWriter, r *http.Request) {
	h.location.Refresh()
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Next location fix will be resolved",
	})
}

func optionalStop(stop models.ResolvedStop, ok bool) any {
	if !ok {
		return nil
	}
	return stop
}

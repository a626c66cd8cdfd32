package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/randytsao24/comfortablemove/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func parseIntParam(r *http.Request, name string, defaultVal, min, max int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}

	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}

	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// parsePointParams reads a lng/lat query pair
func parsePointParams(r *http.Request) (models.Point, error) {
	q := r.URL.Query()
	if q.Get("lng") == "" || q.Get("lat") == "" {
		return models.Point{}, errors.New("lng and lat query parameters are required")
	}

	lng, err := strconv.ParseFloat(q.Get("lng"), 64)
	if err != nil {
		return models.Point{}, errors.New("lng must be a number")
	}
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return models.Point{}, errors.New("lat must be a number")
	}
	return models.Point{X: lng, Y: lat}, nil
}

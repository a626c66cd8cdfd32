package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/randytsao24/comfortablemove/internal/courtesy"
	"github.com/randytsao24/comfortablemove/internal/history"
)

type CourtesyHandler struct {
	notifier CourtesyProvider
	history  HistoryProvider
}

func NewCourtesyHandler(notifier CourtesyProvider, hist HistoryProvider) *CourtesyHandler {
	return &CourtesyHandler{notifier: notifier, history: hist}
}

type courtesyRequest struct {
	Confirm bool `json:"confirm"`
}

// PostNotify sends the courtesy seat message to the bus serving {route}.
// The request must carry an explicit confirmation.
func (h *CourtesyHandler) PostNotify(w http.ResponseWriter, r *http.Request) {
	route := strings.TrimSpace(r.PathValue("route"))
	if route == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": "Route is required",
		})
		return
	}

	var req courtesyRequest
	if r.Body != nil {
		// An empty or malformed body counts as unconfirmed
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if !req.Confirm {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":   "Confirmation required",
			"message": route + "버스에 배려석 알림을 전송하시겠습니까?",
			"route":   route,
		})
		return
	}

	ok, err := h.notifier.Send(r.Context(), route)
	switch {
	case errors.Is(err, courtesy.ErrAttemptInFlight):
		writeJSON(w, http.StatusConflict, map[string]any{
			"error":   "Notification already in progress",
			"message": "Wait for the current attempt to finish",
		})
		return
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusGatewayTimeout, map[string]any{
			"error":   "Request ended before the notification finished",
			"message": err.Error(),
		})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to start notification",
			"message": err.Error(),
		})
		return
	}

	if !ok {
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"success": false,
			"route":   route,
			"error":   "버스 배려석 알림 전송에 실패하였습니다.",
			"message": "다시 한번 시도해주세요.",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"route":   route,
		"message": "알림 전송 완료",
	})
}

// GetStatus reports the radio and notifier state
func (h *CourtesyHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	s := h.notifier.Status()

	body := map[string]any{
		"success":  true,
		"adapter":  s.Adapter.String(),
		"state":    s.State.String(),
		"scanning": s.Scanning,
	}
	if s.Route != "" {
		body["route"] = s.Route
	}
	writeJSON(w, http.StatusOK, body)
}

// GetHistory returns recent notification attempts
func (h *CourtesyHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", history.DefaultLimit, 1, history.MaxLimit)

	attempts, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":   "Failed to load history",
			"message": err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"attempts": attempts,
		"count":    len(attempts),
	})
}

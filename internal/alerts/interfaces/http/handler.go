package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"prepaid-meter-cloud/internal/alerts/application"
	alerts "prepaid-meter-cloud/internal/alerts/domain"
)

// AlertHandler lists alerts and mutates their read state.
type AlertHandler struct {
	dispatcher *application.Dispatcher
	logger     *log.Logger
}

// NewAlertHandler constructs an alert handler.
func NewAlertHandler(dispatcher *application.Dispatcher, logger *log.Logger) (*AlertHandler, error) {
	if dispatcher == nil {
		return nil, errors.New("alert handler: nil dispatcher")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &AlertHandler{dispatcher: dispatcher, logger: logger}, nil
}

// List serves GET ?user_id=&unread=true.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	unreadOnly := r.URL.Query().Get("unread") == "true"

	list, err := h.dispatcher.List(r.Context(), userID, unreadOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(list))
	for _, alert := range list {
		payload = append(payload, alertPayload(alert))
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": payload})
}

type markReadRequest struct {
	AlertID string `json:"alert_id"`
}

// MarkRead serves POST {"alert_id": ...}; repeat calls are no-ops.
func (h *AlertHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.dispatcher.MarkRead(r.Context(), req.AlertID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

type clearReadRequest struct {
	UserID string `json:"user_id"`
}

// ClearRead serves POST {"user_id": ...} and reports deleted count.
func (h *AlertHandler) ClearRead(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req clearReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	deleted, err := h.dispatcher.ClearRead(r.Context(), req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

func (h *AlertHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerts.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, alerts.ErrEmptyUserID),
		errors.Is(err, alerts.ErrInvalidKind),
		errors.Is(err, alerts.ErrInvalidChannel):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("alerts: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func alertPayload(alert *alerts.Alert) map[string]any {
	payload := map[string]any{
		"id":         alert.ID,
		"user_id":    alert.UserID,
		"kind":       alert.Kind,
		"title":      alert.Title,
		"message":    alert.Message,
		"data":       alert.Data,
		"is_read":    alert.IsRead,
		"email_sent": alert.EmailSent,
		"sms_sent":   alert.SMSSent,
		"push_sent":  alert.PushSent,
		"created_at": alert.CreatedAt,
	}
	if alert.ReadAt != nil {
		payload["read_at"] = alert.ReadAt
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/shopspring/decimal"

	accounts "prepaid-meter-cloud/internal/accounts/domain"
)

// SettingsHandler reads and updates per-user alert configuration.
type SettingsHandler struct {
	repo   accounts.SettingsRepository
	logger *log.Logger
}

// NewSettingsHandler constructs a settings handler.
func NewSettingsHandler(repo accounts.SettingsRepository, logger *log.Logger) (*SettingsHandler, error) {
	if repo == nil {
		return nil, errors.New("settings handler: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SettingsHandler{repo: repo, logger: logger}, nil
}

type settingsPayload struct {
	UserID                 string                       `json:"user_id"`
	Email                  string                       `json:"email,omitempty"`
	Phone                  string                       `json:"phone,omitempty"`
	UsageAlertEnabled      bool                         `json:"usage_alert_enabled"`
	LowBalanceAlertEnabled bool                         `json:"low_balance_alert_enabled"`
	UsageThresholdKWh      decimal.Decimal              `json:"usage_threshold_kwh"`
	LowBalanceThreshold    decimal.Decimal              `json:"low_balance_threshold"`
	Channels               map[string]channelPreference `json:"channels"`
}

type channelPreference struct {
	Email bool `json:"email"`
	SMS   bool `json:"sms"`
	Push  bool `json:"push"`
}

// ServeHTTP serves GET (stored settings or defaults) and PUT (replace).
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.put(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, accounts.ErrEmptyUserID.Error(), http.StatusBadRequest)
		return
	}
	settings, err := h.repo.Get(r.Context(), userID)
	if errors.Is(err, accounts.ErrNotFound) {
		settings = accounts.DefaultSettings(userID)
		err = nil
	}
	if err != nil {
		h.logger.Printf("settings: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(settings))
}

func (h *SettingsHandler) put(w http.ResponseWriter, r *http.Request) {
	var payload settingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.UserID == "" {
		http.Error(w, accounts.ErrEmptyUserID.Error(), http.StatusBadRequest)
		return
	}

	settings := &accounts.Settings{
		UserID:                 payload.UserID,
		Email:                  payload.Email,
		Phone:                  payload.Phone,
		UsageAlertEnabled:      payload.UsageAlertEnabled,
		LowBalanceAlertEnabled: payload.LowBalanceAlertEnabled,
		UsageThresholdKWh:      payload.UsageThresholdKWh,
		LowBalanceThreshold:    payload.LowBalanceThreshold,
		Channels:               accounts.ChannelPreferences{},
	}
	for category, pref := range payload.Channels {
		settings.Channels[category] = accounts.ChannelPreference{
			Email: pref.Email,
			SMS:   pref.SMS,
			Push:  pref.Push,
		}
	}

	if err := h.repo.Put(r.Context(), settings); err != nil {
		h.logger.Printf("settings: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toPayload(settings))
}

func toPayload(settings *accounts.Settings) settingsPayload {
	payload := settingsPayload{
		UserID:                 settings.UserID,
		Email:                  settings.Email,
		Phone:                  settings.Phone,
		UsageAlertEnabled:      settings.UsageAlertEnabled,
		LowBalanceAlertEnabled: settings.LowBalanceAlertEnabled,
		UsageThresholdKWh:      settings.UsageThresholdKWh,
		LowBalanceThreshold:    settings.LowBalanceThreshold,
		Channels:               map[string]channelPreference{},
	}
	for category, pref := range settings.Channels {
		payload.Channels[category] = channelPreference{Email: pref.Email, SMS: pref.SMS, Push: pref.Push}
	}
	return payload
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

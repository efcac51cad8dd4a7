package http

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/observability/metrics"
	"prepaid-meter-cloud/internal/readings/application"
	readings "prepaid-meter-cloud/internal/readings/domain"
)

// IngestHandler accepts meter readings pushed by devices or gateways.
type IngestHandler struct {
	service *application.IngestService
	logger  *log.Logger
}

// NewIngestHandler constructs an ingest handler.
func NewIngestHandler(service *application.IngestService, logger *log.Logger) (*IngestHandler, error) {
	if service == nil {
		return nil, errors.New("reading ingest: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &IngestHandler{service: service, logger: logger}, nil
}

type ingestRequest struct {
	UserID         string              `json:"user_id"`
	TS             int64               `json:"ts"`
	EnergyKWh      decimal.Decimal     `json:"energy_kwh"`
	PowerKW        decimal.Decimal     `json:"power_kw"`
	Voltage        *decimal.Decimal    `json:"voltage,omitempty"`
	Current        *decimal.Decimal    `json:"current,omitempty"`
	BatteryPercent *int                `json:"battery_percent,omitempty"`
	BatteryStatus  string              `json:"battery_status,omitempty"`
	Readings       []ingestRequestItem `json:"readings,omitempty"`
}

type ingestRequestItem struct {
	UserID         string           `json:"user_id"`
	TS             int64            `json:"ts"`
	EnergyKWh      decimal.Decimal  `json:"energy_kwh"`
	PowerKW        decimal.Decimal  `json:"power_kw"`
	Voltage        *decimal.Decimal `json:"voltage,omitempty"`
	Current        *decimal.Decimal `json:"current,omitempty"`
	BatteryPercent *int             `json:"battery_percent,omitempty"`
	BatteryStatus  string           `json:"battery_status,omitempty"`
}

// ServeHTTP ingests one reading or a batch.
func (h *IngestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Printf("reading ingest: read body error: %v", err)
		metrics.IncIngestError("read_body")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var req ingestRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Printf("reading ingest: decode error: %v", err)
		metrics.IncIngestError("decode")
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if len(req.Readings) > 0 {
		inputs := make([]application.NewReading, 0, len(req.Readings))
		for _, item := range req.Readings {
			inputs = append(inputs, toNewReading(item))
		}
		batch, err := h.service.RecordBatch(r.Context(), inputs)
		if err != nil {
			metrics.ObserveIngest(metrics.ResultError, time.Since(start))
			h.writeError(w, err)
			return
		}
		metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
		writeJSON(w, http.StatusCreated, map[string]any{"inserted": len(batch)})
		return
	}

	reading, err := h.service.Record(r.Context(), toNewReading(ingestRequestItem{
		UserID:         req.UserID,
		TS:             req.TS,
		EnergyKWh:      req.EnergyKWh,
		PowerKW:        req.PowerKW,
		Voltage:        req.Voltage,
		Current:        req.Current,
		BatteryPercent: req.BatteryPercent,
		BatteryStatus:  req.BatteryStatus,
	}))
	if err != nil {
		metrics.ObserveIngest(metrics.ResultError, time.Since(start))
		h.writeError(w, err)
		return
	}
	metrics.ObserveIngest(metrics.ResultSuccess, time.Since(start))
	writeJSON(w, http.StatusCreated, map[string]any{"id": reading.ID, "cost": reading.Cost})
}

func (h *IngestHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, readings.ErrEmptyUserID),
		errors.Is(err, readings.ErrZeroTimestamp),
		errors.Is(err, readings.ErrNegativeEnergy),
		errors.Is(err, readings.ErrNegativePower),
		errors.Is(err, readings.ErrInvalidBatteryStatus):
		metrics.IncIngestError("validation")
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("reading ingest: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// LatestHandler serves the newest reading for a user.
type LatestHandler struct {
	service *application.IngestService
}

// NewLatestHandler constructs a latest-reading handler.
func NewLatestHandler(service *application.IngestService) (*LatestHandler, error) {
	if service == nil {
		return nil, errors.New("latest reading: nil service")
	}
	return &LatestHandler{service: service}, nil
}

// ServeHTTP returns the newest reading for the user query parameter.
func (h *LatestHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	reading, err := h.service.Latest(r.Context(), userID)
	if errors.Is(err, readings.ErrNotFound) {
		http.Error(w, "no readings found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, reading)
}

func toNewReading(item ingestRequestItem) application.NewReading {
	var ts time.Time
	if item.TS > 0 {
		// Accept milliseconds or seconds.
		if item.TS > 1_000_000_000_000 {
			ts = time.UnixMilli(item.TS).UTC()
		} else {
			ts = time.Unix(item.TS, 0).UTC()
		}
	}
	return application.NewReading{
		UserID:         item.UserID,
		Timestamp:      ts,
		EnergyKWh:      item.EnergyKWh,
		PowerKW:        item.PowerKW,
		Voltage:        item.Voltage,
		Current:        item.Current,
		BatteryPercent: item.BatteryPercent,
		BatteryStatus:  item.BatteryStatus,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

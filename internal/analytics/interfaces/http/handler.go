package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"prepaid-meter-cloud/internal/analytics/application"
	analytics "prepaid-meter-cloud/internal/analytics/domain"
	"prepaid-meter-cloud/internal/analytics/interfaces"
	"prepaid-meter-cloud/internal/observability/metrics"
)

// SummaryHandler generates and lists period summaries.
type SummaryHandler struct {
	service *application.SummaryService
	logger  *log.Logger
}

// NewSummaryHandler constructs a summary handler.
func NewSummaryHandler(service *application.SummaryService, logger *log.Logger) (*SummaryHandler, error) {
	if service == nil {
		return nil, errors.New("summary handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &SummaryHandler{service: service, logger: logger}, nil
}

type generateRequest struct {
	UserID     string `json:"user_id"`
	PeriodType string `json:"period_type"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
}

// ServeHTTP generates a summary (POST) or lists stored summaries (GET).
func (h *SummaryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.generate(w, r)
	case http.MethodGet:
		h.list(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *SummaryHandler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		http.Error(w, "invalid start_date", http.StatusBadRequest)
		return
	}
	endDate, err := time.Parse("2006-01-02", req.EndDate)
	if err != nil {
		http.Error(w, "invalid end_date", http.StatusBadRequest)
		return
	}

	start := time.Now()
	summary, created, err := h.service.ComputeSummary(r.Context(), req.UserID, analytics.PeriodType(req.PeriodType), startDate, endDate)
	if err != nil {
		metrics.ObserveSummaryCompute(metrics.ResultError, time.Since(start))
		h.writeError(w, err)
		return
	}
	metrics.ObserveSummaryCompute(metrics.ResultSuccess, time.Since(start))
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, summaryPayload(summary))
}

func (h *SummaryHandler) list(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	periodType := analytics.PeriodType(r.URL.Query().Get("period_type"))

	summaries, err := h.service.Summaries(r.Context(), userID, periodType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	payload := make([]map[string]any, 0, len(summaries))
	for _, summary := range summaries {
		payload = append(payload, summaryPayload(summary))
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": payload})
}

func (h *SummaryHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, analytics.ErrNoData),
		errors.Is(err, analytics.ErrSummaryNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, analytics.ErrEmptyUserID),
		errors.Is(err, analytics.ErrInvalidPeriodType),
		errors.Is(err, analytics.ErrInvalidDateRange),
		errors.Is(err, analytics.ErrInvalidWindow):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Printf("analytics: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func summaryPayload(summary *analytics.PeriodSummary) map[string]any {
	return map[string]any{
		"user_id":          summary.UserID,
		"period_type":      summary.PeriodType,
		"start_date":       summary.StartDate.Format("2006-01-02"),
		"end_date":         summary.EndDate.Format("2006-01-02"),
		"total_energy_kwh": summary.TotalEnergyKWh,
		"average_power_kw": summary.AveragePowerKW,
		"peak_power_kw":    summary.PeakPowerKW,
		"total_cost":       summary.TotalCost,
		"reading_count":    summary.ReadingCount,
	}
}

// ChartHandler serves chart series for the day/week/month windows.
type ChartHandler struct {
	service *application.SummaryService
	logger  *log.Logger
}

// NewChartHandler constructs a chart handler.
func NewChartHandler(service *application.SummaryService, logger *log.Logger) (*ChartHandler, error) {
	if service == nil {
		return nil, errors.New("chart handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ChartHandler{service: service, logger: logger}, nil
}

// ServeHTTP returns labels and values for ?user_id=&window=.
func (h *ChartHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	window := r.URL.Query().Get("window")
	if window == "" {
		window = application.WindowDay
	}

	seq, err := h.service.ChartSeries(r.Context(), userID, window, time.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrInvalidWindow), errors.Is(err, analytics.ErrEmptyUserID):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Printf("chart: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	metrics.IncChartRequest(window)

	var labels []string
	var values []decimal.Decimal
	for label, value := range seq {
		labels = append(labels, label)
		values = append(values, value)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"window": window,
		"labels": labels,
		"values": values,
	})
}

// StatsHandler serves headline usage figures.
type StatsHandler struct {
	service *application.SummaryService
	logger  *log.Logger
}

// NewStatsHandler constructs a stats handler.
func NewStatsHandler(service *application.SummaryService, logger *log.Logger) (*StatsHandler, error) {
	if service == nil {
		return nil, errors.New("stats handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &StatsHandler{service: service, logger: logger}, nil
}

// ServeHTTP returns usage stats for ?user_id=.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	stats, err := h.service.Stats(r.Context(), r.URL.Query().Get("user_id"), time.Now().UTC())
	if errors.Is(err, analytics.ErrEmptyUserID) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Printf("stats: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// ExportHandler serves usage statements as PDF or XLSX.
type ExportHandler struct {
	service *application.SummaryService
	logger  *log.Logger
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service *application.SummaryService, logger *log.Logger) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("export handler: nil service")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &ExportHandler{service: service, logger: logger}, nil
}

// ServeHTTP renders ?user_id=&period_type=&format=pdf|xlsx.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	userID := r.URL.Query().Get("user_id")
	periodType := analytics.PeriodType(r.URL.Query().Get("period_type"))
	if periodType == "" {
		periodType = analytics.PeriodDaily
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "pdf"
	}

	summaries, err := h.service.Summaries(r.Context(), userID, periodType)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrEmptyUserID), errors.Is(err, analytics.ErrInvalidPeriodType):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.logger.Printf("export: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	now := time.Now().UTC()
	start := time.Now()
	switch format {
	case "pdf":
		payload, err := interfaces.BuildUsagePDF(userID, summaries, now)
		if err != nil {
			h.logger.Printf("export pdf: %v", err)
			metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=usage-%s.pdf", userID))
		_, _ = w.Write(payload)
	case "xlsx":
		payload, err := interfaces.BuildUsageXLSX(userID, summaries, now)
		if err != nil {
			h.logger.Printf("export xlsx: %v", err)
			metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=usage-%s.xlsx", userID))
		_, _ = w.Write(payload)
	default:
		http.Error(w, "unsupported format", http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

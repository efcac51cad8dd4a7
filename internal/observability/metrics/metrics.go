package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "meter_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	ingestRequests *prometheus.CounterVec
	ingestErrors   *prometheus.CounterVec
	ingestLatency  *prometheus.HistogramVec

	alertsRaised    *prometheus.CounterVec
	alertDeliveries *prometheus.CounterVec

	summaryComputeTotal   *prometheus.CounterVec
	summaryComputeLatency *prometheus.HistogramVec

	chartRequests *prometheus.CounterVec

	creditTotal   *prometheus.CounterVec
	creditLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		ingestRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_requests_total",
				Help: "Total reading ingest requests by result",
			},
			[]string{"result"},
		)
		ingestErrors = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ingest_errors_total",
				Help: "Total reading ingest errors by reason",
			},
			[]string{"reason"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Reading ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		alertsRaised = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_raised_total",
				Help: "Total alerts raised by kind",
			},
			[]string{"kind"},
		)
		alertDeliveries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_deliveries_total",
				Help: "Total alert delivery attempts by channel and result",
			},
			[]string{"channel", "result"},
		)

		summaryComputeTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "summary_compute_total",
				Help: "Total period summary computations by result",
			},
			[]string{"result"},
		)
		summaryComputeLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "summary_compute_latency_seconds",
				Help:    "Period summary computation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		chartRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "chart_requests_total",
				Help: "Total chart series requests by window",
			},
			[]string{"window"},
		)

		creditTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "balance_credits_total",
				Help: "Total balance credit operations by result",
			},
			[]string{"result"},
		)
		creditLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "balance_credit_latency_seconds",
				Help:    "Balance credit latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "statement_export_total",
				Help: "Total usage statement exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "statement_export_latency_seconds",
				Help:    "Usage statement export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			ingestRequests,
			ingestErrors,
			ingestLatency,
			alertsRaised,
			alertDeliveries,
			summaryComputeTotal,
			summaryComputeLatency,
			chartRequests,
			creditTotal,
			creditLatency,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveIngest records ingest request duration and result.
func ObserveIngest(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if ingestRequests != nil {
		ingestRequests.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncIngestError increments ingest error counter.
func IncIngestError(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if ingestErrors != nil {
		ingestErrors.WithLabelValues(reason).Inc()
	}
}

// IncAlertRaised increments raised alert counter.
func IncAlertRaised(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	if alertsRaised != nil {
		alertsRaised.WithLabelValues(kind).Inc()
	}
}

// IncAlertDelivery increments delivery attempt counter.
func IncAlertDelivery(channel, result string) {
	if channel == "" {
		channel = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if alertDeliveries != nil {
		alertDeliveries.WithLabelValues(channel, result).Inc()
	}
}

// ObserveSummaryCompute records summary computation latency and result.
func ObserveSummaryCompute(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if summaryComputeTotal != nil {
		summaryComputeTotal.WithLabelValues(result).Inc()
	}
	if summaryComputeLatency != nil {
		summaryComputeLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncChartRequest increments chart request counter.
func IncChartRequest(window string) {
	if window == "" {
		window = "unknown"
	}
	if chartRequests != nil {
		chartRequests.WithLabelValues(window).Inc()
	}
}

// ObserveCredit records balance credit latency and result.
func ObserveCredit(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if creditTotal != nil {
		creditTotal.WithLabelValues(result).Inc()
	}
	if creditLatency != nil {
		creditLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveExport records usage statement export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)

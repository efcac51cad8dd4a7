package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

func registerDBMetrics(db *sql.DB, logger *log.Logger) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "alerts_unread",
			Help: "Unread alerts across all users",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM alerts WHERE is_read = FALSE")
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "alerts_undelivered",
			Help: "Alerts with no delivery flag set on any channel",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM alerts WHERE NOT email_sent AND NOT sms_sent AND NOT push_sent")
		},
	))
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}

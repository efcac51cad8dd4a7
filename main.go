package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	accountsrepo "prepaid-meter-cloud/internal/accounts/infrastructure/postgres"
	accountshttp "prepaid-meter-cloud/internal/accounts/interfaces/http"
	alertapp "prepaid-meter-cloud/internal/alerts/application"
	alerts "prepaid-meter-cloud/internal/alerts/domain"
	alertrepo "prepaid-meter-cloud/internal/alerts/infrastructure/postgres"
	alerthttp "prepaid-meter-cloud/internal/alerts/interfaces/http"
	alertnotify "prepaid-meter-cloud/internal/alerts/notify"
	analyticsapp "prepaid-meter-cloud/internal/analytics/application"
	analyticsrepo "prepaid-meter-cloud/internal/analytics/infrastructure/postgres"
	analyticshttp "prepaid-meter-cloud/internal/analytics/interfaces/http"
	billingapp "prepaid-meter-cloud/internal/billing/application"
	billingevents "prepaid-meter-cloud/internal/billing/application/events"
	billingrepo "prepaid-meter-cloud/internal/billing/infrastructure/postgres"
	billinghttp "prepaid-meter-cloud/internal/billing/interfaces/http"
	"prepaid-meter-cloud/internal/eventing"
	"prepaid-meter-cloud/internal/observability/metrics"
	"prepaid-meter-cloud/internal/pricing"
	readingapp "prepaid-meter-cloud/internal/readings/application"
	readingevents "prepaid-meter-cloud/internal/readings/application/events"
	readingrepo "prepaid-meter-cloud/internal/readings/infrastructure/postgres"
	readinghttp "prepaid-meter-cloud/internal/readings/interfaces/http"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)

	tariff, err := pricing.NewTariff(cfg.RatePerKWh)
	if err != nil {
		logger.Fatalf("tariff error: %v", err)
	}

	readingRepo := readingrepo.NewReadingRepository(db)
	summaryRepo := analyticsrepo.NewSummaryRepository(db)
	settingsRepo := accountsrepo.NewSettingsRepository(db)
	alertRepo := alertrepo.NewAlertRepository(db)
	balanceRepo := billingrepo.NewBalanceRepository(db)
	paymentRepo := billingrepo.NewPaymentRepository(db)

	bus := eventing.NewInMemoryBus()

	ingestService, err := readingapp.NewIngestService(readingRepo, tariff, bus, readingapp.SystemClock{})
	if err != nil {
		logger.Fatalf("ingest service error: %v", err)
	}
	summaryService, err := analyticsapp.NewSummaryService(readingRepo, summaryRepo, analyticsapp.SystemClock{})
	if err != nil {
		logger.Fatalf("summary service error: %v", err)
	}

	notifyCfg, err := alertnotify.LoadConfig()
	if err != nil {
		logger.Fatalf("notify config error: %v", err)
	}
	transport := alertnotify.NewWebhookTransport(notifyCfg.ChannelURLs(), notifyCfg.Timeout())
	dispatcher, err := alertapp.NewDispatcher(alertRepo, settingsRepo, transport, alertapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("alert dispatcher error: %v", err)
	}
	evaluator, err := alertapp.NewEvaluator(settingsRepo, dispatcher, logger)
	if err != nil {
		logger.Fatalf("alert evaluator error: %v", err)
	}

	ledger, err := billingapp.NewLedger(balanceRepo, bus, billingapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("ledger error: %v", err)
	}
	paymentService, err := billingapp.NewPaymentService(paymentRepo, ledger, dispatcherAlertSink{dispatcher: dispatcher}, billingapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("payment service error: %v", err)
	}

	// The synchronous chain: ingest -> ReadingRecorded -> usage threshold;
	// credit -> BalanceChanged -> low balance threshold.
	bus.Subscribe(eventing.EventTypeOf[readingevents.ReadingRecorded](), evaluator.HandleReadingRecorded)
	bus.Subscribe(eventing.EventTypeOf[billingevents.BalanceChanged](), evaluator.HandleBalanceChanged)

	ingestHandler, err := readinghttp.NewIngestHandler(ingestService, logger)
	if err != nil {
		logger.Fatalf("ingest handler error: %v", err)
	}
	latestHandler, err := readinghttp.NewLatestHandler(ingestService)
	if err != nil {
		logger.Fatalf("latest handler error: %v", err)
	}
	summaryHandler, err := analyticshttp.NewSummaryHandler(summaryService, logger)
	if err != nil {
		logger.Fatalf("summary handler error: %v", err)
	}
	chartHandler, err := analyticshttp.NewChartHandler(summaryService, logger)
	if err != nil {
		logger.Fatalf("chart handler error: %v", err)
	}
	statsHandler, err := analyticshttp.NewStatsHandler(summaryService, logger)
	if err != nil {
		logger.Fatalf("stats handler error: %v", err)
	}
	exportHandler, err := analyticshttp.NewExportHandler(summaryService, logger)
	if err != nil {
		logger.Fatalf("export handler error: %v", err)
	}
	settingsHandler, err := accountshttp.NewSettingsHandler(settingsRepo, logger)
	if err != nil {
		logger.Fatalf("settings handler error: %v", err)
	}
	alertHandler, err := alerthttp.NewAlertHandler(dispatcher, logger)
	if err != nil {
		logger.Fatalf("alert handler error: %v", err)
	}
	billingHandler, err := billinghttp.NewBillingHandler(ledger, paymentService, logger)
	if err != nil {
		logger.Fatalf("billing handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ingest/readings", ingestHandler)
	mux.Handle("/api/v1/readings/latest", latestHandler)
	mux.Handle("/api/v1/summaries", summaryHandler)
	mux.Handle("/api/v1/chart", chartHandler)
	mux.Handle("/api/v1/stats", statsHandler)
	mux.Handle("/api/v1/exports/usage", exportHandler)
	mux.Handle("/api/v1/settings", settingsHandler)
	mux.HandleFunc("/api/v1/alerts", alertHandler.List)
	mux.HandleFunc("/api/v1/alerts/read", alertHandler.MarkRead)
	mux.HandleFunc("/api/v1/alerts/clear", alertHandler.ClearRead)
	mux.HandleFunc("/api/v1/balance", billingHandler.Balance)
	mux.HandleFunc("/api/v1/balance/credit", billingHandler.Credit)
	mux.HandleFunc("/api/v1/payments", billingHandler.ListPayments)
	mux.HandleFunc("/api/v1/payments/create", billingHandler.CreatePayment)
	mux.HandleFunc("/api/v1/payments/confirm", billingHandler.ConfirmPayment)
	mux.HandleFunc("/api/v1/payments/fail", billingHandler.FailPayment)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	RatePerKWh  decimal.Decimal
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}

	rate, err := decimal.NewFromString(getenvDefault("ENERGY_RATE_PER_KWH", "20.00"))
	if err != nil {
		log.Fatalf("ENERGY_RATE_PER_KWH parse error: %v", err)
	}
	cfg.RatePerKWh = rate
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ---- Adapters ----

// dispatcherAlertSink lets billing raise payment alerts without importing
// the alerts application package.
type dispatcherAlertSink struct {
	dispatcher *alertapp.Dispatcher
}

func (s dispatcherAlertSink) Raise(ctx context.Context, userID, kind, title, message string, data map[string]any) error {
	alert, err := s.dispatcher.Raise(ctx, userID, alerts.Kind(kind), title, message, data)
	if err != nil {
		return err
	}
	s.dispatcher.DeliverAll(ctx, alert.ID)
	return nil
}

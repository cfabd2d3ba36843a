package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "pos_"

	// ResultSuccess labels a successful operation.
	ResultSuccess = "success"
	// ResultError labels a failed operation.
	ResultError = "error"
)

var (
	registerOnce sync.Once

	confirmTotal   *prometheus.CounterVec
	confirmLatency *prometheus.HistogramVec

	ledgerPostTotal   *prometheus.CounterVec
	ledgerPostLatency *prometheus.HistogramVec

	reportTotal   *prometheus.CounterVec
	reportLatency *prometheus.HistogramVec

	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec

	gatewayPolls *prometheus.CounterVec

	reversalTotal *prometheus.CounterVec

	reviewsOpened prometheus.Counter
)

// Init registers observability metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		confirmTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "payment_confirm_total",
				Help: "Total payment confirmations by outcome",
			},
			[]string{"result"},
		)
		confirmLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "payment_confirm_latency_seconds",
				Help:    "Payment confirmation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		ledgerPostTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_post_total",
				Help: "Total journal entry posts by result",
			},
			[]string{"result"},
		)
		ledgerPostLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_post_latency_seconds",
				Help:    "Journal entry post latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "ledger_report_total",
				Help: "Total ledger report queries by report and result",
			},
			[]string{"report", "result"},
		)
		reportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ledger_report_latency_seconds",
				Help:    "Ledger report latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"report", "result"},
		)

		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "export_total",
				Help: "Total document exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "export_latency_seconds",
				Help:    "Document export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		gatewayPolls = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "gateway_polls_total",
				Help: "Total gateway status polls by normalized status",
			},
			[]string{"status"},
		)

		reversalTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transaction_reversal_total",
				Help: "Total transaction reversals by result",
			},
			[]string{"result"},
		)

		reviewsOpened = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "manual_reviews_opened_total",
				Help: "Total confirmations escalated to manual review",
			},
		)

		prometheus.MustRegister(
			confirmTotal,
			confirmLatency,
			ledgerPostTotal,
			ledgerPostLatency,
			reportTotal,
			reportLatency,
			exportTotal,
			exportLatency,
			gatewayPolls,
			reversalTotal,
			reviewsOpened,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveConfirm records confirmation duration and outcome.
func ObserveConfirm(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if confirmTotal != nil {
		confirmTotal.WithLabelValues(result).Inc()
	}
	if confirmLatency != nil {
		confirmLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveLedgerPost records journal post duration and result.
func ObserveLedgerPost(result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if ledgerPostTotal != nil {
		ledgerPostTotal.WithLabelValues(result).Inc()
	}
	if ledgerPostLatency != nil {
		ledgerPostLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// ObserveReport records report query duration and result.
func ObserveReport(report, result string, duration time.Duration) {
	if report == "" {
		report = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if reportTotal != nil {
		reportTotal.WithLabelValues(report, result).Inc()
	}
	if reportLatency != nil {
		reportLatency.WithLabelValues(report, result).Observe(duration.Seconds())
	}
}

// ObserveExport records document export duration and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = ResultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// IncGatewayPoll counts a normalized gateway status observation.
func IncGatewayPoll(status string) {
	if status == "" {
		status = "unknown"
	}
	if gatewayPolls != nil {
		gatewayPolls.WithLabelValues(status).Inc()
	}
}

// IncReversal counts a transaction reversal.
func IncReversal(result string) {
	if result == "" {
		result = ResultSuccess
	}
	if reversalTotal != nil {
		reversalTotal.WithLabelValues(result).Inc()
	}
}

// IncReviewOpened counts a confirmation escalated to manual review.
func IncReviewOpened() {
	if reviewsOpened != nil {
		reviewsOpened.Inc()
	}
}

package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook ingestion metrics
	webhooksReceivedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gateway_webhooks_received_total",
		Help: "Total number of gateway webhook deliveries by outcome",
	}, []string{
		"event_type", // PAYMENT_STATUS_CHANGED, CANCEL_STATUS_CHANGED, ...
		"outcome",    // applied, already_processed, rejected_transition, error, ...
	})

	// Settlement batch metrics
	settlementRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_runs_total",
		Help: "Total number of settlement batch runs",
	}, []string{
		"status",  // noop, success, failed
		"dry_run", // true, false
	})

	settlementRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "settlement_run_duration_seconds",
		Help: "Wall-clock duration of settlement batch runs",
		// Buckets: 100ms to 5m (a run holds row locks for its full duration)
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 120, 300},
	}, []string{
		"status",
	})

	settlementPayoutTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payout_minor_units_total",
		Help: "Total payout amount produced by settlement runs, in minor currency units",
	})

	settlementCommissionTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_commission_minor_units_total",
		Help: "Total commission amount produced by settlement runs, in minor currency units",
	})
)

// RecordWebhook records one webhook delivery outcome
func RecordWebhook(eventType, outcome string) {
	webhooksReceivedTotal.WithLabelValues(eventType, outcome).Inc()
}

// RecordSettlementRun records one settlement batch run
func RecordSettlementRun(status string, dryRun bool, duration time.Duration) {
	dry := "false"
	if dryRun {
		dry = "true"
	}
	settlementRunsTotal.WithLabelValues(status, dry).Inc()
	settlementRunDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordSettlementTotals adds a run's payout and commission to the counters
func RecordSettlementTotals(payout, commission int64) {
	settlementPayoutTotal.Add(float64(payout))
	settlementCommissionTotal.Add(float64(commission))
}

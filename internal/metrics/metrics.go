package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the payment & commission engine.
type Metrics struct {
	// Gateway (C3) metrics
	GatewayCallsTotal  *prometheus.CounterVec
	GatewayCallErrors  *prometheus.CounterVec
	GatewayCallLatency *prometheus.HistogramVec

	// Payment intent (C4) metrics
	IntentsCreatedTotal    *prometheus.CounterVec
	IntentsSucceededTotal  *prometheus.CounterVec
	IntentsFailedTotal     *prometheus.CounterVec
	IntentSettlementLatency *prometheus.HistogramVec

	// Commission (C5) metrics
	CommissionsCreditedTotal  *prometheus.CounterVec
	CommissionAmountTotal     *prometheus.CounterVec

	// Withdrawal (C6) metrics
	WithdrawalsRequestedTotal *prometheus.CounterVec
	WithdrawalsApprovedTotal  *prometheus.CounterVec
	WithdrawalsRejectedTotal  *prometheus.CounterVec
	WithdrawalAmountTotal     *prometheus.CounterVec

	// Reconciliation (C7) metrics
	ReconcileRunsTotal      prometheus.Counter
	ReconcileCorrectedTotal prometheus.Counter
	ReconcileDuration       prometheus.Histogram

	// Notification delivery queue metrics
	NotifyDeliveredTotal *prometheus.CounterVec
	NotifyRetriesTotal   *prometheus.CounterVec
	NotifyDLQTotal       *prometheus.CounterVec
	NotifyDuration       *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitHitsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration     *prometheus.HistogramVec
	DBConnectionsActive prometheus.Gauge
}

// New creates and registers all Prometheus metrics.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		GatewayCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_gateway_calls_total",
				Help: "Total number of outbound calls made to payment gateways",
			},
			[]string{"gateway", "operation"},
		),
		GatewayCallErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_gateway_call_errors_total",
				Help: "Total number of failed gateway calls",
			},
			[]string{"gateway", "operation", "error_type"},
		),
		GatewayCallLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sbc_gateway_call_duration_seconds",
				Help:    "Gateway call duration",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"gateway", "operation"},
		),

		IntentsCreatedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_payment_intents_created_total",
				Help: "Total number of payment intents created",
			},
			[]string{"gateway"},
		),
		IntentsSucceededTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_payment_intents_succeeded_total",
				Help: "Total number of payment intents that settled successfully",
			},
			[]string{"gateway"},
		),
		IntentsFailedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_payment_intents_failed_total",
				Help: "Total number of payment intents that failed or expired",
			},
			[]string{"gateway", "reason"},
		),
		IntentSettlementLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sbc_payment_intent_settlement_seconds",
				Help:    "Time from intent creation to terminal status",
				Buckets: []float64{1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"gateway"},
		),

		CommissionsCreditedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_commissions_credited_total",
				Help: "Total number of commission ledger entries credited",
			},
			[]string{"level", "plan"},
		),
		CommissionAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_commission_amount_total",
				Help: "Total commission amount credited, in minor units",
			},
			[]string{"level", "currency"},
		),

		WithdrawalsRequestedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_withdrawals_requested_total",
				Help: "Total number of withdrawal requests",
			},
			[]string{"destination_type"},
		),
		WithdrawalsApprovedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_withdrawals_approved_total",
				Help: "Total number of withdrawals that completed payout",
			},
			[]string{"destination_type"},
		),
		WithdrawalsRejectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_withdrawals_rejected_total",
				Help: "Total number of withdrawals rejected or failed",
			},
			[]string{"destination_type", "reason"},
		),
		WithdrawalAmountTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_withdrawal_amount_total",
				Help: "Total withdrawal amount paid out, in minor units",
			},
			[]string{"currency"},
		),

		ReconcileRunsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sbc_reconcile_runs_total",
				Help: "Total number of reconciliation sweeps run",
			},
		),
		ReconcileCorrectedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sbc_reconcile_corrected_total",
				Help: "Total number of stuck intents corrected by reconciliation",
			},
		),
		ReconcileDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sbc_reconcile_duration_seconds",
				Help:    "Duration of a reconciliation sweep",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
			},
		),

		NotifyDeliveredTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_notify_delivered_total",
				Help: "Total number of outbound notification deliveries",
			},
			[]string{"event_type", "status"},
		),
		NotifyRetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_notify_retries_total",
				Help: "Total number of outbound notification retry attempts",
			},
			[]string{"event_type", "attempt"},
		),
		NotifyDLQTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_notify_dlq_total",
				Help: "Total number of notifications sent to the dead-letter queue",
			},
			[]string{"event_type"},
		),
		NotifyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sbc_notify_duration_seconds",
				Help:    "Time taken for a notification delivery attempt",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"event_type"},
		),

		RateLimitHitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sbc_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"limit_type", "identifier"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sbc_db_query_duration_seconds",
				Help:    "Database query duration",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.5, 1, 2},
			},
			[]string{"operation", "backend"},
		),
		DBConnectionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sbc_db_connections_active",
				Help: "Number of active database connections",
			},
		),
	}
}

// ObserveGatewayCall records an outbound gateway call.
func (m *Metrics) ObserveGatewayCall(gateway, operation string, duration time.Duration, err error) {
	m.GatewayCallsTotal.WithLabelValues(gateway, operation).Inc()
	m.GatewayCallLatency.WithLabelValues(gateway, operation).Observe(duration.Seconds())
	if err != nil {
		m.GatewayCallErrors.WithLabelValues(gateway, operation, classifyError(err.Error())).Inc()
	}
}

// ObserveIntentCreated records a new payment intent.
func (m *Metrics) ObserveIntentCreated(gateway string) {
	m.IntentsCreatedTotal.WithLabelValues(gateway).Inc()
}

// ObserveIntentTerminal records an intent reaching a terminal status.
func (m *Metrics) ObserveIntentTerminal(gateway string, success bool, reason string, age time.Duration) {
	if success {
		m.IntentsSucceededTotal.WithLabelValues(gateway).Inc()
	} else {
		m.IntentsFailedTotal.WithLabelValues(gateway, reason).Inc()
	}
	m.IntentSettlementLatency.WithLabelValues(gateway).Observe(age.Seconds())
}

// ObserveCommission records a commission ledger credit.
func (m *Metrics) ObserveCommission(level, plan, currency string, amountMinorUnits int64) {
	m.CommissionsCreditedTotal.WithLabelValues(level, plan).Inc()
	m.CommissionAmountTotal.WithLabelValues(level, currency).Add(float64(amountMinorUnits))
}

// ObserveWithdrawalRequested records a new withdrawal request.
func (m *Metrics) ObserveWithdrawalRequested(destinationType string) {
	m.WithdrawalsRequestedTotal.WithLabelValues(destinationType).Inc()
}

// ObserveWithdrawalOutcome records a withdrawal reaching a terminal state.
func (m *Metrics) ObserveWithdrawalOutcome(destinationType, currency string, approved bool, reason string, amountMinorUnits int64) {
	if approved {
		m.WithdrawalsApprovedTotal.WithLabelValues(destinationType).Inc()
		m.WithdrawalAmountTotal.WithLabelValues(currency).Add(float64(amountMinorUnits))
		return
	}
	m.WithdrawalsRejectedTotal.WithLabelValues(destinationType, reason).Inc()
}

// ObserveReconcileRun records one reconciliation sweep.
func (m *Metrics) ObserveReconcileRun(duration time.Duration, corrected int) {
	m.ReconcileRunsTotal.Inc()
	m.ReconcileDuration.Observe(duration.Seconds())
	if corrected > 0 {
		m.ReconcileCorrectedTotal.Add(float64(corrected))
	}
}

// ObserveNotify records an outbound notification delivery attempt.
func (m *Metrics) ObserveNotify(eventType, status string, duration time.Duration, attempt int, sentToDLQ bool) {
	m.NotifyDeliveredTotal.WithLabelValues(eventType, status).Inc()
	m.NotifyDuration.WithLabelValues(eventType).Observe(duration.Seconds())

	if attempt > 1 {
		m.NotifyRetriesTotal.WithLabelValues(eventType, formatAttempt(attempt)).Inc()
	}
	if sentToDLQ {
		m.NotifyDLQTotal.WithLabelValues(eventType).Inc()
	}
}

// ObserveRateLimit records a rate limit hit.
func (m *Metrics) ObserveRateLimit(limitType, identifier string) {
	m.RateLimitHitsTotal.WithLabelValues(limitType, identifier).Inc()
}

// ObserveDBQuery records a database query.
func (m *Metrics) ObserveDBQuery(operation, backend string, duration time.Duration) {
	m.DBQueryDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func classifyError(errStr string) string {
	lower := strings.ToLower(errStr)
	switch {
	case strings.Contains(lower, "timeout"):
		return "timeout"
	case strings.Contains(lower, "rate limit"):
		return "rate_limit"
	case strings.Contains(lower, "connection"):
		return "connection"
	case strings.Contains(lower, "not found"):
		return "not_found"
	default:
		return "other"
	}
}

func formatAttempt(attempt int) string {
	if attempt <= 5 {
		return string(rune('0' + attempt))
	}
	return "5+"
}

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsInitialization(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("metrics collector should not be nil")
	}
	if m.GatewayCallsTotal == nil || m.IntentsCreatedTotal == nil || m.CommissionsCreditedTotal == nil {
		t.Error("expected gateway/intent/commission metrics to be initialized")
	}
	if m.WithdrawalsRequestedTotal == nil || m.ReconcileRunsTotal == nil || m.NotifyDeliveredTotal == nil {
		t.Error("expected withdrawal/reconcile/notify metrics to be initialized")
	}
}

func TestObserveGatewayCall(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveGatewayCall("cinetpay", "initiate", 500*time.Millisecond, nil)
	calls := promtest.ToFloat64(m.GatewayCallsTotal.WithLabelValues("cinetpay", "initiate"))
	if calls != 1 {
		t.Errorf("expected 1 gateway call, got %.0f", calls)
	}

	m.ObserveGatewayCall("cinetpay", "initiate", time.Second, errors.New("connection reset"))
	errs := promtest.ToFloat64(m.GatewayCallErrors.WithLabelValues("cinetpay", "initiate", "connection"))
	if errs != 1 {
		t.Errorf("expected 1 classified gateway error, got %.0f", errs)
	}
}

func TestObserveIntentLifecycle(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveIntentCreated("feexpay")
	created := promtest.ToFloat64(m.IntentsCreatedTotal.WithLabelValues("feexpay"))
	if created != 1 {
		t.Errorf("expected 1 intent created, got %.0f", created)
	}

	m.ObserveIntentTerminal("feexpay", true, "", 10*time.Second)
	succeeded := promtest.ToFloat64(m.IntentsSucceededTotal.WithLabelValues("feexpay"))
	if succeeded != 1 {
		t.Errorf("expected 1 intent succeeded, got %.0f", succeeded)
	}

	m.ObserveIntentTerminal("feexpay", false, "provider_error", 5*time.Second)
	failed := promtest.ToFloat64(m.IntentsFailedTotal.WithLabelValues("feexpay", "provider_error"))
	if failed != 1 {
		t.Errorf("expected 1 intent failed, got %.0f", failed)
	}
}

func TestObserveCommission(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveCommission("1", "subscription_classique", "XAF", 500)
	count := promtest.ToFloat64(m.CommissionsCreditedTotal.WithLabelValues("1", "subscription_classique"))
	if count != 1 {
		t.Errorf("expected 1 commission credited, got %.0f", count)
	}
	amount := promtest.ToFloat64(m.CommissionAmountTotal.WithLabelValues("1", "XAF"))
	if amount != 500 {
		t.Errorf("expected commission amount 500, got %.0f", amount)
	}
}

func TestObserveWithdrawalLifecycle(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveWithdrawalRequested("mobile_money")
	requested := promtest.ToFloat64(m.WithdrawalsRequestedTotal.WithLabelValues("mobile_money"))
	if requested != 1 {
		t.Errorf("expected 1 withdrawal requested, got %.0f", requested)
	}

	m.ObserveWithdrawalOutcome("mobile_money", "XAF", true, "", 10000)
	approved := promtest.ToFloat64(m.WithdrawalsApprovedTotal.WithLabelValues("mobile_money"))
	if approved != 1 {
		t.Errorf("expected 1 withdrawal approved, got %.0f", approved)
	}
	amount := promtest.ToFloat64(m.WithdrawalAmountTotal.WithLabelValues("XAF"))
	if amount != 10000 {
		t.Errorf("expected withdrawal amount 10000, got %.0f", amount)
	}

	m.ObserveWithdrawalOutcome("mobile_money", "XAF", false, "daily_limit_exceeded", 0)
	rejected := promtest.ToFloat64(m.WithdrawalsRejectedTotal.WithLabelValues("mobile_money", "daily_limit_exceeded"))
	if rejected != 1 {
		t.Errorf("expected 1 withdrawal rejected, got %.0f", rejected)
	}
}

func TestObserveReconcileRun(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveReconcileRun(2*time.Second, 3)
	runs := promtest.ToFloat64(m.ReconcileRunsTotal)
	if runs != 1 {
		t.Errorf("expected 1 reconcile run, got %.0f", runs)
	}
	corrected := promtest.ToFloat64(m.ReconcileCorrectedTotal)
	if corrected != 3 {
		t.Errorf("expected 3 corrected, got %.0f", corrected)
	}
}

func TestObserveNotify(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveNotify("commission_received", "success", 200*time.Millisecond, 1, false)
	delivered := promtest.ToFloat64(m.NotifyDeliveredTotal.WithLabelValues("commission_received", "success"))
	if delivered != 1 {
		t.Errorf("expected 1 delivery, got %.0f", delivered)
	}

	m.ObserveNotify("withdrawal_otp", "failed", 2*time.Second, 5, true)
	retries := promtest.ToFloat64(m.NotifyRetriesTotal.WithLabelValues("withdrawal_otp", "5"))
	if retries != 1 {
		t.Errorf("expected 1 retry record, got %.0f", retries)
	}
	dlq := promtest.ToFloat64(m.NotifyDLQTotal.WithLabelValues("withdrawal_otp"))
	if dlq != 1 {
		t.Errorf("expected 1 DLQ record, got %.0f", dlq)
	}
}

func TestObserveRateLimit(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveRateLimit("per_user", "user123")
	hits := promtest.ToFloat64(m.RateLimitHitsTotal.WithLabelValues("per_user", "user123"))
	if hits != 1 {
		t.Errorf("expected 1 rate limit hit, got %.0f", hits)
	}
}

func TestObserveDBQuery(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	m.ObserveDBQuery("SELECT", "postgres", 50*time.Millisecond)
	if m.DBQueryDuration == nil {
		t.Error("DBQueryDuration should be initialized")
	}
}

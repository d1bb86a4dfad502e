package nowpayments

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"
)

func testAdapter() *Adapter {
	return New(Config{
		IPNSecret:          "shh",
		FiatToUSD:          map[string]float64{"XAF": 0.0017},
		StablecoinsFromUSD: map[string]bool{"USDT": true, "USDC": true},
	}, nil)
}

func TestEstimateUSDStablecoinShortCircuits(t *testing.T) {
	a := testAdapter()
	got, err := a.EstimateUSD(1000, "USDT")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got != 1000 {
		t.Errorf("expected 1:1 for a USD-pegged stablecoin, got %d", got)
	}
}

func TestEstimateUSDAppliesFiatRate(t *testing.T) {
	a := testAdapter()
	got, err := a.EstimateUSD(100000, "XAF")
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	want := int64(100000 * 0.0017)
	if got != want {
		t.Errorf("expected %d, got %d", want, got)
	}
}

func TestEstimateUSDRejectsUnknownCurrency(t *testing.T) {
	a := testAdapter()
	if _, err := a.EstimateUSD(1000, "GBP"); err == nil {
		t.Fatal("expected an error for a currency with no configured rate")
	}
}

func TestMapStatus(t *testing.T) {
	a := testAdapter()
	cases := map[string]string{
		"waiting":        "waiting_for_crypto_deposit",
		"confirming":     "processing",
		"sending":        "processing",
		"confirmed":      "confirmed",
		"partially_paid": "partially_paid",
		"finished":       "succeeded",
		"failed":         "failed",
		"refunded":       "failed",
		"expired":        "expired",
	}
	for providerStatus, want := range cases {
		if got := a.MapStatus(providerStatus, 0); got != want {
			t.Errorf("MapStatus(%q) = %q, want %q", providerStatus, got, want)
		}
	}
}

func TestParseWebhookVerifiesSignature(t *testing.T) {
	a := testAdapter()
	body := []byte(`{"payment_id":"pay-1","payment_status":"finished","order_id":"order-1"}`)

	mac := hmac.New(sha512.New, []byte("shh"))
	mac.Write(body)
	validSig := hex.EncodeToString(mac.Sum(nil))

	event, err := a.ParseWebhook(nil, body, map[string]string{"x-nowpayments-sig": validSig})
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if !event.Verified {
		t.Error("expected a correctly-signed webhook to verify")
	}
	if event.ExternalID != "pay-1" {
		t.Errorf("expected pay-1, got %s", event.ExternalID)
	}

	tampered, err := a.ParseWebhook(nil, body, map[string]string{"x-nowpayments-sig": "deadbeef"})
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if tampered.Verified {
		t.Error("expected a mismatched signature to fail verification")
	}

	missing, err := a.ParseWebhook(nil, body, nil)
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if missing.Verified {
		t.Error("expected a missing signature header to fail verification")
	}
}

package cinetpay

import (
	"testing"

	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
)

func TestMapStatusPayment(t *testing.T) {
	a := New(Config{}, nil)
	cases := map[string]string{
		"ACCEPTED":  "completed",
		"00":        "completed",
		"REFUSED":   "failed",
		"CANCELLED": "failed",
		"PENDING":   "processing",
		"UNKNOWN":   "processing",
	}
	for providerStatus, want := range cases {
		if got := a.MapStatus(providerStatus, gateway.DirectionPayment); got != want {
			t.Errorf("MapStatus(%q, payment) = %q, want %q", providerStatus, got, want)
		}
	}
}

func TestMapStatusPayout(t *testing.T) {
	a := New(Config{}, nil)
	cases := map[string]string{
		"VAL": "completed",
		"REJ": "failed",
		"NOS": "failed",
		"NEW": "processing",
		"REC": "processing",
	}
	for providerStatus, want := range cases {
		if got := a.MapStatus(providerStatus, gateway.DirectionPayout); got != want {
			t.Errorf("MapStatus(%q, payout) = %q, want %q", providerStatus, got, want)
		}
	}
}

func TestParseWebhookNeverClaimsVerified(t *testing.T) {
	a := New(Config{}, nil)
	event, err := a.ParseWebhook(nil, []byte("cpm_trans_id=tx-1&cpm_result=00"), nil)
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Verified {
		t.Error("CinetPay webhooks carry no signature; ParseWebhook must never report Verified=true")
	}
	if event.ExternalID != "tx-1" {
		t.Errorf("expected tx-1, got %s", event.ExternalID)
	}
	if event.ProviderStatus != "00" {
		t.Errorf("expected status 00, got %s", event.ProviderStatus)
	}
}

func TestName(t *testing.T) {
	a := New(Config{}, nil)
	if a.Name() != "cinetpay" {
		t.Errorf("expected cinetpay, got %s", a.Name())
	}
}

package feexpay

import (
	"testing"

	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
)

func TestMapStatus(t *testing.T) {
	a := New(Config{}, nil, false)
	cases := map[string]string{
		"SUCCESSFUL": "completed",
		"SUCCESS":    "completed",
		"FAILED":     "failed",
		"CANCELLED":  "failed",
		"PENDING":    "processing",
	}
	for providerStatus, want := range cases {
		if got := a.MapStatus(providerStatus, gateway.DirectionPayment); got != want {
			t.Errorf("MapStatus(%q) = %q, want %q", providerStatus, got, want)
		}
	}
}

func TestCreatePayoutDisabledByFeatureFlag(t *testing.T) {
	a := New(Config{}, nil, false)
	if _, err := a.CreatePayout(nil, gateway.PayoutRequest{}); err != gateway.ErrFeatureDisabled {
		t.Fatalf("expected ErrFeatureDisabled when payouts are disabled, got %v", err)
	}
}

func TestParseWebhookNeverClaimsVerified(t *testing.T) {
	a := New(Config{}, nil, false)
	event, err := a.ParseWebhook(nil, []byte(`{"reference":"ref-1","status":"SUCCESSFUL"}`), nil)
	if err != nil {
		t.Fatalf("parse webhook: %v", err)
	}
	if event.Verified {
		t.Error("FeexPay webhooks carry no signature; ParseWebhook must never report Verified=true")
	}
	if event.ExternalID != "ref-1" {
		t.Errorf("expected ref-1, got %s", event.ExternalID)
	}
}

func TestParseWebhookRejectsMalformedBody(t *testing.T) {
	a := New(Config{}, nil, false)
	if _, err := a.ParseWebhook(nil, []byte("not json"), nil); err == nil {
		t.Fatal("expected an error decoding a malformed webhook body")
	}
}

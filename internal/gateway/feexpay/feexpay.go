// Package feexpay adapts FeexPay-style aggregator APIs to gateway.Adapter.
// Fiat only, no balance API, no signed webhooks: verification is always by
// status re-fetch keyed on a client-chosen reference (§4.3).
package feexpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/rpcutil"
)

type Config struct {
	BaseURL string
	ShopID  string
	APIKey  string
}

type Adapter struct {
	cfg     Config
	client  *http.Client
	enabled bool // payout path feature flag, §4.6 "FeexPay withdrawal feature flag"
}

func New(cfg Config, client *http.Client, payoutEnabled bool) *Adapter {
	return &Adapter{cfg: cfg, client: client, enabled: payoutEnabled}
}

func (a *Adapter) Name() string { return "feexpay" }

func (a *Adapter) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.IntentResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"shop": a.cfg.ShopID, "reference": req.OrderID, "amount": req.Amount, "currency": req.Currency,
	})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.IntentResult, error) {
		resp, err := a.post(ctx, "/api/transactions/public/requesttopay", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Reference   string `json:"reference"`
			RedirectURL string `json:"redirect_url"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("feexpay: decode create-intent response: %w", err)
		}
		return &gateway.IntentResult{ExternalID: parsed.Reference, RedirectURL: parsed.RedirectURL}, nil
	})
}

func (a *Adapter) CheckStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	return rpcutil.WithRetry(ctx, func() (*gateway.StatusResult, error) {
		resp, err := a.get(ctx, "/api/transactions/public/single/status/"+externalID)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Status   string `json:"status"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("feexpay: decode status response: %w", err)
		}
		return &gateway.StatusResult{ProviderStatus: parsed.Status, Amount: parsed.Amount, Currency: parsed.Currency}, nil
	})
}

func (a *Adapter) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	if !a.enabled {
		return nil, gateway.ErrFeatureDisabled
	}
	body, err := json.Marshal(map[string]interface{}{
		"shop": a.cfg.ShopID, "reference": req.OrderID, "amount": req.Amount, "phone": req.DestinationPhone,
	})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.PayoutResult, error) {
		resp, err := a.post(ctx, "/api/payouts/public/transfer", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Reference string `json:"reference"`
			Status    string `json:"status"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("feexpay: decode payout response: %w", err)
		}
		return &gateway.PayoutResult{ExternalID: parsed.Reference, Status: parsed.Status}, nil
	})
}

func (a *Adapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*gateway.WebhookEvent, error) {
	var parsed struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("feexpay: decode webhook body: %w", err)
	}
	return &gateway.WebhookEvent{
		Kind: gateway.KindPayment, ExternalID: parsed.Reference, ProviderStatus: parsed.Status, Verified: false,
	}, nil
}

func (a *Adapter) MapStatus(providerStatus string, direction gateway.Direction) string {
	switch providerStatus {
	case "SUCCESSFUL", "SUCCESS":
		return "completed"
	case "FAILED", "CANCELLED":
		return "failed"
	default:
		return "processing"
	}
}

func (a *Adapter) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	return a.do(ctx, http.MethodPost, path, body)
}

func (a *Adapter) get(ctx context.Context, path string) ([]byte, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

func (a *Adapter) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, a.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("feexpay: server error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

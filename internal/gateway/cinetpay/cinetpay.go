// Package cinetpay adapts CinetPay-style aggregator APIs to gateway.Adapter.
// Fiat only (XAF/XOF/KES/CDF/GNF). Payment webhooks are unsigned: the
// adapter always treats ParseWebhook results as unverified and relies on
// CheckStatus re-fetch before acting on them (§4.3).
package cinetpay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/rpcutil"
)

// Config holds the credentials needed to call CinetPay's payment and
// transfer (payout) APIs.
type Config struct {
	BaseURL          string
	APIKey           string
	SiteID           string
	TransferLogin    string
	TransferPassword string
}

// Adapter implements gateway.Adapter for CinetPay.
type Adapter struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config, client *http.Client) *Adapter {
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return "cinetpay" }

func (a *Adapter) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.IntentResult, error) {
	body := map[string]interface{}{
		"apikey":      a.cfg.APIKey,
		"site_id":     a.cfg.SiteID,
		"transaction_id": req.OrderID,
		"amount":      req.Amount,
		"currency":    req.Currency,
		"metadata":    req.Metadata,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	result, err := rpcutil.WithRetry(ctx, func() (*gateway.IntentResult, error) {
		resp, err := a.post(ctx, "/v2/payment", payload)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Data struct {
				PaymentURL string `json:"payment_url"`
				PaymentToken string `json:"payment_token"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("cinetpay: decode create-intent response: %w", err)
		}
		return &gateway.IntentResult{
			ExternalID:  parsed.Data.PaymentToken,
			RedirectURL: parsed.Data.PaymentURL,
		}, nil
	})
	return result, err
}

func (a *Adapter) CheckStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	body, err := json.Marshal(map[string]string{
		"apikey": a.cfg.APIKey, "site_id": a.cfg.SiteID, "transaction_id": externalID,
	})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.StatusResult, error) {
		resp, err := a.post(ctx, "/v2/payment/check", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Data struct {
				Status   string `json:"status"`
				Amount   int64  `json:"amount"`
				Currency string `json:"currency"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("cinetpay: decode status response: %w", err)
		}
		return &gateway.StatusResult{
			ProviderStatus: parsed.Data.Status,
			Amount:         parsed.Data.Amount,
			Currency:       parsed.Data.Currency,
		}, nil
	})
}

// CreatePayout calls CinetPay's separate transfer API (§4.3 "via a separate
// transfer API").
func (a *Adapter) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"login": a.cfg.TransferLogin, "password": a.cfg.TransferPassword,
		"client_transaction_id": req.OrderID, "amount": req.Amount,
		"phone": req.DestinationPhone,
	})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.PayoutResult, error) {
		resp, err := a.post(ctx, "/v1/transfer/money/send", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			TransactionID string `json:"transaction_id"`
			Status        string `json:"status"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("cinetpay: decode payout response: %w", err)
		}
		return &gateway.PayoutResult{ExternalID: parsed.TransactionID, Status: parsed.Status}, nil
	})
}

// GetBalance reports the merchant's transferable balance via CinetPay's
// transfer-account balance check (§9 "GET /api/admin/gateway-balances").
func (a *Adapter) GetBalance(ctx context.Context) (*gateway.BalanceResult, error) {
	body, err := json.Marshal(map[string]string{"login": a.cfg.TransferLogin, "password": a.cfg.TransferPassword})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.BalanceResult, error) {
		resp, err := a.post(ctx, "/v1/transfer/check/balance", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			Data struct {
				Balance  float64 `json:"balance"`
				Currency string  `json:"currency"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("cinetpay: decode balance response: %w", err)
		}
		return &gateway.BalanceResult{Amount: parsed.Data.Balance, Currency: parsed.Data.Currency}, nil
	})
}

// ParseWebhook never claims verified=true: CinetPay payment notifications
// carry no signature, so callers must always re-fetch via CheckStatus (§4.3).
func (a *Adapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*gateway.WebhookEvent, error) {
	values, err := url.ParseQuery(string(rawBody))
	if err != nil {
		return nil, fmt.Errorf("cinetpay: parse webhook body: %w", err)
	}
	return &gateway.WebhookEvent{
		Kind:           gateway.KindPayment,
		ExternalID:     values.Get("cpm_trans_id"),
		ProviderStatus: values.Get("cpm_result"),
		Verified:       false,
	}, nil
}

func (a *Adapter) MapStatus(providerStatus string, direction gateway.Direction) string {
	if direction == gateway.DirectionPayout {
		switch providerStatus {
		case "VAL":
			return "completed"
		case "REJ", "NOS":
			return "failed"
		case "NEW", "REC":
			return "processing"
		default:
			return "processing"
		}
	}
	switch providerStatus {
	case "ACCEPTED", "00":
		return "completed"
	case "REFUSED", "CANCELLED":
		return "failed"
	case "PENDING":
		return "processing"
	default:
		return "processing"
	}
}

func (a *Adapter) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("cinetpay: server error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

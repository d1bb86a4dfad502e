// Package nowpayments adapts a NOWPayments-style crypto processor to
// gateway.Adapter. Webhooks are signed with HMAC-SHA512 over the raw body
// using a shared IPN secret (§4.3); unsupported fiat price currencies are
// converted to USD via a configured rate table before calling the provider.
package nowpayments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/rpcutil"
)

type Config struct {
	BaseURL     string
	APIKey      string
	IPNSecret   string
	FiatToUSD   map[string]float64 // XAF/XOF/GNF/CDF/KES -> USD rate, §4.3
	StablecoinsFromUSD map[string]bool // USD-pegged stablecoins short-circuit to 1:1
}

type Adapter struct {
	cfg    Config
	client *http.Client
}

func New(cfg Config, client *http.Client) *Adapter {
	return &Adapter{cfg: cfg, client: client}
}

func (a *Adapter) Name() string { return "nowpayments" }

// EstimateUSD converts a minor-unit amount in an unsupported fiat currency to
// USD cents using the configured rate table, short-circuiting 1:1 for
// USD-pegged stablecoins (§4.3 edge case).
func (a *Adapter) EstimateUSD(amount int64, currency string) (int64, error) {
	if a.cfg.StablecoinsFromUSD[currency] {
		return amount, nil
	}
	rate, ok := a.cfg.FiatToUSD[currency]
	if !ok {
		return 0, fmt.Errorf("nowpayments: no USD rate configured for %s", currency)
	}
	return int64(float64(amount) * rate), nil
}

func (a *Adapter) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.IntentResult, error) {
	amount, currency := req.Amount, req.Currency
	if _, ok := a.cfg.FiatToUSD[currency]; ok {
		usd, err := a.EstimateUSD(amount, currency)
		if err != nil {
			return nil, err
		}
		amount, currency = usd, "USD"
	}
	body, err := json.Marshal(map[string]interface{}{
		"price_amount": amount, "price_currency": currency, "order_id": req.OrderID,
	})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.IntentResult, error) {
		resp, err := a.post(ctx, "/v1/payment", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			PaymentID      string  `json:"payment_id"`
			PayAddress     string  `json:"pay_address"`
			PayAmount      float64 `json:"pay_amount"`
			PayCurrency    string  `json:"pay_currency"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("nowpayments: decode create-intent response: %w", err)
		}
		return &gateway.IntentResult{
			ExternalID: parsed.PaymentID, PayAddress: parsed.PayAddress,
			PayAmount: int64(parsed.PayAmount), PayCurrency: parsed.PayCurrency,
		}, nil
	})
}

func (a *Adapter) CheckStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	return rpcutil.WithRetry(ctx, func() (*gateway.StatusResult, error) {
		resp, err := a.get(ctx, "/v1/payment/"+externalID)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			PaymentStatus string  `json:"payment_status"`
			PriceAmount   float64 `json:"price_amount"`
			PriceCurrency string  `json:"price_currency"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("nowpayments: decode status response: %w", err)
		}
		return &gateway.StatusResult{
			ProviderStatus: parsed.PaymentStatus, Amount: int64(parsed.PriceAmount), Currency: parsed.PriceCurrency,
		}, nil
	})
}

func (a *Adapter) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	body, err := json.Marshal(map[string]interface{}{
		"withdrawals": []map[string]interface{}{
			{"address": req.DestinationAddr, "amount": req.Amount, "currency": req.Currency},
		},
	})
	if err != nil {
		return nil, err
	}
	return rpcutil.WithRetry(ctx, func() (*gateway.PayoutResult, error) {
		resp, err := a.post(ctx, "/v1/payout", body)
		if err != nil {
			return nil, err
		}
		var parsed struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("nowpayments: decode payout response: %w", err)
		}
		return &gateway.PayoutResult{ExternalID: parsed.ID, Status: parsed.Status}, nil
	})
}

// GetBalance reports the account's aggregate crypto balance converted to
// USD, summing every currency the response contains (§9 "live balances").
func (a *Adapter) GetBalance(ctx context.Context) (*gateway.BalanceResult, error) {
	return rpcutil.WithRetry(ctx, func() (*gateway.BalanceResult, error) {
		resp, err := a.get(ctx, "/v1/balance")
		if err != nil {
			return nil, err
		}
		var parsed map[string]float64
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return nil, fmt.Errorf("nowpayments: decode balance response: %w", err)
		}
		var total float64
		for currency, amount := range parsed {
			if currency == "USD" || a.cfg.StablecoinsFromUSD[currency] {
				total += amount
				continue
			}
			if rate, ok := a.cfg.FiatToUSD[currency]; ok {
				total += amount * rate
			}
		}
		return &gateway.BalanceResult{Amount: total, Currency: "USD"}, nil
	})
}

// ParseWebhook verifies the x-nowpayments-sig header against an HMAC-SHA512
// of the raw body, using the shared IPN secret (§4.3).
func (a *Adapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*gateway.WebhookEvent, error) {
	var parsed struct {
		PaymentID     string `json:"payment_id"`
		PaymentStatus string `json:"payment_status"`
		OrderID       string `json:"order_id"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return nil, fmt.Errorf("nowpayments: decode webhook body: %w", err)
	}

	sig := headers["x-nowpayments-sig"]
	verified := a.verifySignature(rawBody, sig)

	return &gateway.WebhookEvent{
		Kind:           gateway.KindPayment,
		ExternalID:     parsed.PaymentID,
		ProviderStatus: parsed.PaymentStatus,
		Metadata:       map[string]string{"orderId": parsed.OrderID},
		Verified:       verified,
	}, nil
}

func (a *Adapter) verifySignature(rawBody []byte, sigHex string) bool {
	if sigHex == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(a.cfg.IPNSecret))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(sigHex))
}

func (a *Adapter) MapStatus(providerStatus string, direction gateway.Direction) string {
	switch providerStatus {
	case "waiting":
		return "waiting_for_crypto_deposit"
	case "confirming", "sending":
		return "processing"
	case "confirmed":
		return "confirmed"
	case "partially_paid":
		return "partially_paid"
	case "finished":
		return "succeeded"
	case "failed":
		return "failed"
	case "refunded":
		return "failed"
	case "expired":
		return "expired"
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
	httpReq.Header.Set("x-api-key", a.cfg.APIKey)

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
		return nil, fmt.Errorf("nowpayments: server error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

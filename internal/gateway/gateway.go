// Package gateway defines the shared C3 adapter contract implemented by
// each payment provider (cinetpay, feexpay, nowpayments).
package gateway

import (
	"context"
	"errors"
)

// Direction distinguishes a payment (inbound) from a payout (outbound) call,
// since the same provider status vocabulary can map differently per direction.
type Direction string

const (
	DirectionPayment Direction = "payment"
	DirectionPayout  Direction = "payout"
)

// Kind labels what a parsed webhook refers to.
type Kind string

const (
	KindPayment Kind = "payment"
	KindPayout  Kind = "payout"
)

// ErrAmountBelowMinimum is a terminal user error (§4.3 edge cases): never retried.
var ErrAmountBelowMinimum = errors.New("gateway: amount below provider minimum")

// ErrFeatureDisabled is returned when a payout path is globally disabled
// (§4.6 "FeexPay withdrawal feature flag").
var ErrFeatureDisabled = errors.New("gateway: payout path disabled")

// IntentRequest is the input to CreateIntent.
type IntentRequest struct {
	OrderID  string // sessionId, echoed back by the provider where supported
	Amount   int64  // minor units
	Currency string
	Metadata map[string]string // originatingService, callbackPath, userId, paymentType, internalRefs...
}

// IntentResult is the adapter's response to a successful CreateIntent call.
type IntentResult struct {
	ExternalID  string
	RedirectURL string
	ClientSecret string
	PayAddress  string
	PayAmount   int64
	PayCurrency string
}

// StatusResult is the adapter's response to CheckStatus.
type StatusResult struct {
	ProviderStatus string
	Amount         int64
	Currency       string
	Raw            map[string]interface{}
}

// PayoutRequest is the input to CreatePayout.
type PayoutRequest struct {
	OrderID          string
	Amount           int64
	Currency         string
	DestinationPhone string // mobile-money
	DestinationAddr  string // crypto
	Metadata         map[string]string
}

// PayoutResult is the adapter's response to a successful CreatePayout call.
type PayoutResult struct {
	ExternalID string
	Status     string
	Raw        map[string]interface{}
}

// WebhookEvent is the adapter's normalized view of an inbound webhook.
type WebhookEvent struct {
	Kind           Kind
	ExternalID     string
	ProviderStatus string
	Metadata       map[string]string
	Verified       bool
}

// Adapter is implemented once per provider (§4.3).
type Adapter interface {
	Name() string
	CreateIntent(ctx context.Context, req IntentRequest) (*IntentResult, error)
	CheckStatus(ctx context.Context, externalID string) (*StatusResult, error)
	// CreatePayout is optional: input-only gateways return ErrFeatureDisabled.
	CreatePayout(ctx context.Context, req PayoutRequest) (*PayoutResult, error)
	ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*WebhookEvent, error)
	MapStatus(providerStatus string, direction Direction) string
}

// BalanceResult is a provider's reported float balance, backing the admin
// "live balances from each provider" endpoint.
type BalanceResult struct {
	Amount   float64
	Currency string
}

// BalanceProvider is implemented by adapters whose aggregator exposes a
// balance-check API (CinetPay, NOWPayments). FeexPay has none and so does
// not implement this.
type BalanceProvider interface {
	GetBalance(ctx context.Context) (*BalanceResult, error)
}

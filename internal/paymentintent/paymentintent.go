// Package paymentintent implements C4: it binds an internal session to a
// gateway call, tracks lifecycle, and fans webhook outcomes out into the
// ledger/balance/commission components.
package paymentintent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
)

type (
	Intent = storage.PaymentIntent
	Status = storage.IntentStatus
)

const (
	StatusPendingUserInput     = storage.IntentPendingUserInput
	StatusPendingProvider      = storage.IntentPendingProvider
	StatusWaitingCryptoDeposit = storage.IntentWaitingCryptoDeposit
	StatusProcessing           = storage.IntentProcessing
	StatusConfirmed            = storage.IntentConfirmed
	StatusSucceeded            = storage.IntentSucceeded
	StatusPartiallyPaid        = storage.IntentPartiallyPaid
	StatusFailed               = storage.IntentFailed
	StatusExpired              = storage.IntentExpired
)

var (
	ErrNotFound          = storage.ErrNotFound
	ErrValidation        = errors.New("paymentintent: invalid request")
	ErrUnauthorizedWebhook = errors.New("paymentintent: webhook signature verification failed")
)

// CreateRequest is the validated input to CreateIntent.
type CreateRequest struct {
	UserID            string
	PaymentType       string
	RequestedAmount   int64
	RequestedCurrency string
	Gateway           string
	OriginatingService string
	CallbackPath       string
	InternalRefs       map[string]string
}

// CommissionDistributor is the narrow slice of commission.Engine the
// manager needs, kept as an interface to avoid an import cycle.
type CommissionDistributor interface {
	Distribute(ctx context.Context, settled *ledger.Transaction) error
}

// Manager implements the C4 operations (§4.4).
type Manager struct {
	store     storage.Store
	ledger    *ledger.Store
	balances  *balance.Projection
	gateways  *gateway.Registry
	commission CommissionDistributor

	sessionLocks sync.Map // sessionId -> *sync.Mutex
}

func NewManager(store storage.Store, ledgerStore *ledger.Store, balances *balance.Projection, gateways *gateway.Registry, commission CommissionDistributor) *Manager {
	return &Manager{store: store, ledger: ledgerStore, balances: balances, gateways: gateways, commission: commission}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	actual, _ := m.sessionLocks.LoadOrStore(sessionID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// CreateIntent implements the five-step algorithm of §4.4.
func (m *Manager) CreateIntent(ctx context.Context, req CreateRequest) (*Intent, *gateway.IntentResult, error) {
	log := logger.FromContext(ctx).With().Str("component", "paymentintent").Logger()

	// 1. Validate.
	if req.RequestedAmount <= 0 || req.PaymentType == "" || req.RequestedCurrency == "" || req.Gateway == "" {
		return nil, nil, ErrValidation
	}

	// 2. Allocate sessionId.
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	// 3. Persist with status pending_provider.
	intent := &Intent{
		SessionID:         sessionID,
		UserID:            req.UserID,
		PaymentType:       req.PaymentType,
		RequestedAmount:   req.RequestedAmount,
		RequestedCurrency: req.RequestedCurrency,
		Gateway:           req.Gateway,
		Status:            StatusPendingProvider,
		Metadata:          req.InternalRefs,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := m.store.CreatePaymentIntent(ctx, intent); err != nil {
		return nil, nil, err
	}

	// 4. Call the adapter's createIntent.
	metadata := map[string]string{
		"originatingService": req.OriginatingService,
		"callbackPath":       req.CallbackPath,
		"userId":             req.UserID,
		"paymentType":        req.PaymentType,
	}
	for k, v := range req.InternalRefs {
		metadata[k] = v
	}
	result, err := m.gateways.CreateIntent(ctx, req.Gateway, gateway.IntentRequest{
		OrderID: sessionID, Amount: req.RequestedAmount, Currency: req.RequestedCurrency, Metadata: metadata,
	})
	if err != nil {
		// 6. On adapter failure, mark intent failed.
		_, _ = m.store.UpdatePaymentIntentStatus(ctx, sessionID, StatusFailed, 0, "")
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("gateway create-intent failed")
		return intent, nil, err
	}

	// 5. On success, update intent with providerRef.
	updated, err := m.store.UpdatePaymentIntentStatus(ctx, sessionID, StatusPendingProvider, 0, "")
	if err != nil {
		return nil, nil, err
	}
	updated.ProviderRef = result.ExternalID
	return updated, result, nil
}

// GetBySession returns the current intent state.
func (m *Manager) GetBySession(ctx context.Context, sessionID string) (*Intent, error) {
	return m.store.GetPaymentIntent(ctx, sessionID)
}

// PollStatus re-fetches status from the provider and applies the same
// guarded transition path as IngestWebhook. It records no status-check
// timestamp on the intent; a poll that leaves the status unchanged writes
// nothing beyond what applyTransition writes.
func (m *Manager) PollStatus(ctx context.Context, sessionID string) (*Intent, error) {
	intent, err := m.store.GetPaymentIntent(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	result, err := m.gateways.CheckStatus(ctx, intent.Gateway, intent.ProviderRef)
	if err != nil {
		return nil, err
	}
	adapter, err := m.gateways.Get(intent.Gateway)
	if err != nil {
		return nil, err
	}
	newStatus := Status(adapter.MapStatus(result.ProviderStatus, gateway.DirectionPayment))
	return m.applyTransition(ctx, intent, newStatus, result.Amount, result.Currency)
}

// IngestWebhook implements the seven-step algorithm of §4.4.
func (m *Manager) IngestWebhook(ctx context.Context, gatewayName string, rawBody []byte, headers map[string]string) error {
	log := logger.FromContext(ctx).With().Str("component", "paymentintent").Str("gateway", gatewayName).Logger()

	adapter, err := m.gateways.Get(gatewayName)
	if err != nil {
		return err
	}

	// 1. Parse and verify.
	event, err := adapter.ParseWebhook(ctx, rawBody, headers)
	if err != nil {
		return err
	}
	if requiresSignature(gatewayName) && !event.Verified {
		return ErrUnauthorizedWebhook
	}

	// 2. Look up intent by providerRef, falling back to sessionId from metadata.
	intent, err := m.store.GetPaymentIntentByProviderRef(ctx, gatewayName, event.ExternalID)
	if err != nil {
		if sessionID := event.Metadata["orderId"]; sessionID != "" {
			intent, err = m.store.GetPaymentIntent(ctx, sessionID)
		}
	}
	if err != nil || intent == nil {
		log.Warn().Str("externalId", event.ExternalID).Msg("webhook for unknown intent, acknowledging without retry")
		return nil
	}

	lock := m.sessionLock(intent.SessionID)
	lock.Lock()
	defer lock.Unlock()

	// 3. Compute the status the webhook payload claims.
	claimedStatus := Status(adapter.MapStatus(event.ProviderStatus, gateway.DirectionPayment))
	newStatus := claimedStatus
	var paidAmount int64
	var paidCurrency string

	// CinetPay and FeexPay webhooks are not signature-verified (event.Verified
	// stays false for them — requiresSignature only covers NOWPayments' HMAC),
	// so a forged or replayed payload claiming success must never be enough to
	// credit a balance on its own. Re-fetch the authoritative status from the
	// provider's own status endpoint and settle off that instead of the
	// webhook's unverified claim (§9: no crediting without reconciliation).
	if !event.Verified && claimedStatus == StatusSucceeded {
		result, statusErr := m.gateways.CheckStatus(ctx, gatewayName, intent.ProviderRef)
		if statusErr != nil {
			log.Warn().Err(statusErr).Msg("webhook claimed success but provider status re-fetch failed; not settling")
			return statusErr
		}
		newStatus = Status(adapter.MapStatus(result.ProviderStatus, gateway.DirectionPayment))
		paidAmount, paidCurrency = result.Amount, result.Currency
		if newStatus != StatusSucceeded {
			log.Warn().Str("providerStatus", result.ProviderStatus).Msg("webhook claimed success but provider status check disagrees; not settling")
		}
	}

	// 4-7. Guarded transition + ledger/balance/commission fan-out.
	_, err = m.applyTransition(ctx, intent, newStatus, paidAmount, paidCurrency)
	return err
}

func (m *Manager) applyTransition(ctx context.Context, intent *Intent, newStatus Status, paidAmount int64, paidCurrency string) (*Intent, error) {
	log := logger.FromContext(ctx).With().Str("component", "paymentintent").Str("sessionId", intent.SessionID).Logger()

	if intent.Status.IsTerminal() {
		return intent, nil
	}

	updated, err := m.store.UpdatePaymentIntentStatus(ctx, intent.SessionID, newStatus, paidAmount, paidCurrency)
	if err != nil {
		return nil, err
	}

	switch newStatus {
	case StatusSucceeded:
		if err := m.onSuccess(ctx, updated); err != nil {
			log.Error().Err(err).Msg("post-success ledger/balance/commission fan-out failed")
			return updated, err
		}
	case StatusFailed, StatusExpired:
		if err := m.onFailure(ctx, updated); err != nil {
			log.Error().Err(err).Msg("post-failure cleanup failed")
			return updated, err
		}
	}
	return updated, nil
}

// onSuccess idempotently creates the matched C1 deposit, adjusts C2, then
// fans out to C5 (§4.4 step 5).
func (m *Manager) onSuccess(ctx context.Context, intent *Intent) error {
	amount := intent.PaidAmount
	currency := intent.PaidCurrency
	if amount == 0 {
		amount, currency = intent.RequestedAmount, intent.RequestedCurrency
	}

	existing, err := m.ledger.FindByTransactionID(ctx, intent.SessionID)
	if err == nil && existing != nil {
		return nil // already settled, idempotent no-op
	}

	tx := &ledger.Transaction{
		TransactionID: intent.SessionID,
		UserID:        intent.UserID,
		Type:          ledger.TypePayment,
		Amount:        amount,
		Currency:      currency,
		Status:        ledger.StatusCompleted,
		PaymentProvider: ledger.PaymentProviderInfo{
			Provider: intent.Gateway, ExternalTransactionID: intent.ProviderRef, Status: "completed",
		},
		Metadata: map[string]string{
			"paymentType":          intent.PaymentType,
			"sourcePaymentSessionId": intent.SessionID,
		},
	}
	settled, err := m.ledger.Append(ctx, tx)
	if err != nil && !errors.Is(err, ledger.ErrAlreadyExists) {
		return err
	}
	if settled == nil {
		return nil
	}

	isFiat := currency != "USD"
	if isFiat {
		if _, err := m.balances.Adjust(ctx, intent.UserID, amount, 0, 0); err != nil {
			return err
		}
	} else {
		if _, err := m.balances.Adjust(ctx, intent.UserID, 0, amount, 0); err != nil {
			return err
		}
	}

	if m.commission != nil && isCommissionBearing(intent.PaymentType) {
		if err := m.commission.Distribute(ctx, settled); err != nil {
			return fmt.Errorf("commission distribution: %w", err)
		}
	}
	return nil
}

// onFailure marks any tentative C1 entry failed (§4.4 step 6). No refund is
// needed here because createIntent never pre-debits the buyer.
func (m *Manager) onFailure(ctx context.Context, intent *Intent) error {
	existing, err := m.ledger.FindByTransactionID(ctx, intent.SessionID)
	if err != nil {
		return nil
	}
	if existing.Status.IsTerminal() {
		return nil
	}
	_, err = m.ledger.UpdateStatus(ctx, intent.SessionID, ledger.StatusFailed, nil)
	return err
}

// ListStale returns payment intents past olderThan still non-terminal, used
// by reconcile/admin tooling.
func (m *Manager) ListStale(ctx context.Context, olderThan time.Duration) ([]*Intent, error) {
	return m.store.ListStalePaymentIntents(ctx, olderThan)
}

func requiresSignature(gatewayName string) bool {
	return gatewayName == "nowpayments"
}

func isCommissionBearing(paymentType string) bool {
	switch paymentType {
	case "subscription_classique", "subscription_cible", "activation":
		return true
	default:
		return false
	}
}

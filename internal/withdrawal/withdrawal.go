// Package withdrawal implements C6: the OTP-gated, admin-approved payout
// orchestrator sitting between a user's withdrawal request and a gateway's
// payout API.
package withdrawal

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
)

// Type is the withdrawal rail chosen by the user.
type Type string

const (
	TypeMobileMoney Type = "mobile_money"
	TypeCrypto      Type = "crypto"
)

var (
	ErrValidation          = errors.New("withdrawal: invalid request")
	ErrBelowMinimum        = errors.New("withdrawal: amount below minimum")
	ErrNotMultiple         = errors.New("withdrawal: amount not a multiple of the required step")
	ErrDailyLimitExceeded  = errors.New("withdrawal: daily limit exceeded")
	ErrPendingExists       = errors.New("withdrawal: a non-terminal withdrawal already exists")
	ErrNoPayoutDestination = errors.New("withdrawal: no payout destination configured")
	ErrOTPMismatch         = errors.New("withdrawal: otp mismatch or expired")
	ErrInvalidState        = errors.New("withdrawal: operation not valid from current state")
	ErrFeatureDisabled     = gateway.ErrFeatureDisabled
)

// InitiateRequest is the validated input to Initiate.
type InitiateRequest struct {
	UserID   string
	Amount   int64 // requested gross amount, minor units
	Currency string
	Type     Type
}

// Quote is the fee preview returned by Estimate.
type Quote struct {
	Gross int64
	Fee   int64
	Net   int64
}

// Orchestrator implements the C6 operations (§4.6).
type Orchestrator struct {
	ledger   *ledger.Store
	balances *balance.Projection
	gateways *gateway.Registry
	users    collaborators.UserClient
	notify   collaborators.NotificationClient
	cfg      config.WithdrawalConfig
}

func NewOrchestrator(ledgerStore *ledger.Store, balances *balance.Projection, gateways *gateway.Registry, users collaborators.UserClient, notify collaborators.NotificationClient, cfg config.WithdrawalConfig) *Orchestrator {
	return &Orchestrator{ledger: ledgerStore, balances: balances, gateways: gateways, users: users, notify: notify, cfg: cfg}
}

// Estimate computes the fee preview without creating a transaction.
func (o *Orchestrator) Estimate(amount int64, t Type) Quote {
	fee := o.computeFee(amount)
	return Quote{Gross: amount, Fee: fee, Net: amount - fee}
}

func (o *Orchestrator) computeFee(amount int64) int64 {
	fixed := int64(o.cfg.FeeFixedXAF * 100)
	percent := int64(float64(amount) * o.cfg.FeePercent / 100)
	return fixed + percent
}

// Initiate implements the five-step algorithm of §4.6.
func (o *Orchestrator) Initiate(ctx context.Context, req InitiateRequest) (*ledger.Transaction, string, error) {
	log := logger.FromContext(ctx).With().Str("component", "withdrawal").Str("userId", req.UserID).Logger()

	// 1. Validate amount and rail-specific minimums.
	if req.Amount <= 0 || req.UserID == "" {
		return nil, "", ErrValidation
	}
	switch req.Type {
	case TypeMobileMoney:
		minimum := int64(o.cfg.MobileMoneyMinimumXAF * 100)
		if req.Amount < minimum {
			return nil, "", ErrBelowMinimum
		}
		step := int64(o.cfg.MobileMoneyMultipleOf * 100)
		if step > 0 && req.Amount%step != 0 {
			return nil, "", ErrNotMultiple
		}
	case TypeCrypto:
		minimum := int64(o.cfg.CryptoMinimumUSD * 100)
		if req.Amount < minimum {
			return nil, "", ErrBelowMinimum
		}
	default:
		return nil, "", ErrValidation
	}

	// 2. Daily limits, pending-withdrawal check, payout destination check.
	within, _, err := o.balances.WithinDailyLimits(ctx, req.UserID, req.Amount, int64(o.cfg.DailyLimitXAF*100), o.cfg.MaxWithdrawalsPerDay)
	if err != nil {
		return nil, "", err
	}
	if !within {
		return nil, "", ErrDailyLimitExceeded
	}
	pending, err := o.balances.HasPendingBlockingTransactions(ctx, req.UserID, []ledger.TransactionType{ledger.TypeWithdrawal})
	if err != nil {
		return nil, "", err
	}
	if pending {
		return nil, "", ErrPendingExists
	}
	details, err := o.users.GetUserDetails(ctx, req.UserID)
	if err != nil {
		return nil, "", err
	}
	if req.Type == TypeMobileMoney && details.MobileMoneyPhone == "" {
		return nil, "", ErrNoPayoutDestination
	}
	if req.Type == TypeCrypto && details.CryptoAddress == "" {
		return nil, "", ErrNoPayoutDestination
	}

	// 3. Compute fee and net.
	fee := o.computeFee(req.Amount)

	// 4. Generate OTP, hash it, set an expiry.
	code, err := generateOTP()
	if err != nil {
		return nil, "", err
	}
	hash := hashOTP(code)
	ttl := o.cfg.OTPTTL.Duration
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	expiresAt := time.Now().UTC().Add(ttl)

	// 5. Create the C1 record with status=pending_otp_verification. No debit yet.
	tx := &ledger.Transaction{
		UserID:   req.UserID,
		Type:     ledger.TypeWithdrawal,
		Amount:   req.Amount,
		Currency: req.Currency,
		Fee:      fee,
		Status:   ledger.StatusPendingOTPVerification,
		Metadata: map[string]string{
			"withdrawalType":   string(req.Type),
			"otpHash":          hash,
			"otpExpiresAt":     expiresAt.Format(time.RFC3339),
			"selectedPayoutService": selectPayoutService(req.Type),
		},
	}
	created, err := o.ledger.Append(ctx, tx)
	if err != nil {
		return nil, "", err
	}

	// 6. Emit withdrawal_otp to notification.
	if o.notify != nil {
		if err := o.notify.SendInternal(ctx, collaborators.InternalEvent{
			Type: "withdrawal_otp", UserID: req.UserID,
			Data: map[string]string{"code": code, "transactionId": created.TransactionID},
		}); err != nil {
			log.Warn().Err(err).Msg("failed to deliver withdrawal OTP notification")
		}
	}

	return created, created.TransactionID, nil
}

// VerifyOTP transitions pending_otp_verification -> pending_admin_approval.
func (o *Orchestrator) VerifyOTP(ctx context.Context, transactionID, code string) (*ledger.Transaction, error) {
	tx, err := o.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != ledger.StatusPendingOTPVerification {
		return nil, ErrInvalidState
	}
	expiresAt, _ := time.Parse(time.RFC3339, tx.Metadata["otpExpiresAt"])
	if time.Now().UTC().After(expiresAt) || hashOTP(code) != tx.Metadata["otpHash"] {
		return nil, ErrOTPMismatch
	}
	return o.ledger.UpdateStatus(ctx, transactionID, ledger.StatusPendingAdminApproval, nil)
}

// AdminApprove debits C2, dispatches the payout, and records the external
// transaction id (§4.6 adminApprove).
func (o *Orchestrator) AdminApprove(ctx context.Context, transactionID, adminID, note string) (*ledger.Transaction, error) {
	log := logger.FromContext(ctx).With().Str("component", "withdrawal").Str("transactionId", transactionID).Logger()

	tx, err := o.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != ledger.StatusPendingAdminApproval {
		return nil, ErrInvalidState
	}

	processing, err := o.ledger.UpdateStatusWithMetadata(ctx, transactionID, ledger.StatusProcessing, map[string]string{
		"approvedByAdminId": adminID, "approvalNote": note,
	})
	if err != nil {
		return nil, err
	}

	net := tx.Amount - tx.Fee
	isFiat := tx.Currency != "USD"
	if isFiat {
		if _, err := o.balances.Adjust(ctx, tx.UserID, -net, 0, 0); err != nil {
			return nil, err
		}
	} else {
		if _, err := o.balances.Adjust(ctx, tx.UserID, 0, -net, 0); err != nil {
			return nil, err
		}
	}

	withdrawalType := Type(tx.Metadata["withdrawalType"])
	provider := selectPayoutService(withdrawalType)

	details, err := o.users.GetUserDetails(ctx, tx.UserID)
	if err != nil {
		return o.refundAndFail(ctx, processing, "lookup user destination failed")
	}

	dest := details.MobileMoneyPhone
	if withdrawalType == TypeCrypto {
		dest = details.CryptoAddress
	}

	result, err := o.gateways.CreatePayout(ctx, provider, gateway.PayoutRequest{
		OrderID: transactionID, Amount: net, Currency: tx.Currency,
		DestinationPhone: dest, DestinationAddr: dest,
	})
	if err != nil {
		// Synchronous dispatch failure: leave processing for C7 to catch up on
		// retryable errors, terminally fail and refund otherwise.
		log.Warn().Err(err).Str("destination", logger.TruncateAddress(dest)).Msg("payout dispatch failed synchronously")
		return processing, nil
	}

	return o.ledger.UpdateStatusWithMetadata(ctx, transactionID, ledger.StatusProcessing, map[string]string{
		"externalTransactionId": result.ExternalID,
	})
}

func (o *Orchestrator) refundAndFail(ctx context.Context, tx *ledger.Transaction, reason string) (*ledger.Transaction, error) {
	net := tx.Amount - tx.Fee
	isFiat := tx.Currency != "USD"
	if isFiat {
		_, _ = o.balances.Adjust(ctx, tx.UserID, net, 0, 0)
	} else {
		_, _ = o.balances.Adjust(ctx, tx.UserID, 0, net, 0)
	}
	return o.ledger.UpdateStatusWithMetadata(ctx, tx.TransactionID, ledger.StatusFailed, map[string]string{"failureReason": reason})
}

// AdminReject is only valid from pending_admin_approval; no refund occurred.
func (o *Orchestrator) AdminReject(ctx context.Context, transactionID, adminID, reason string) (*ledger.Transaction, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: reason required", ErrValidation)
	}
	tx, err := o.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != ledger.StatusPendingAdminApproval {
		return nil, ErrInvalidState
	}
	rejected, err := o.ledger.UpdateStatusWithMetadata(ctx, transactionID, ledger.StatusRejectedByAdmin, map[string]string{
		"rejectedByAdminId": adminID, "rejectionReason": reason,
	})
	if err != nil {
		return nil, err
	}
	if _, err := o.balances.ReverseWithdrawal(ctx, tx.UserID, tx.Amount, tx.CreatedAt); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("transactionId", transactionID).Msg("failed to release daily-limit slot after admin reject")
	}
	return rejected, nil
}

// UserCancel is only valid from pending_otp_verification.
func (o *Orchestrator) UserCancel(ctx context.Context, transactionID string) (*ledger.Transaction, error) {
	tx, err := o.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status != ledger.StatusPendingOTPVerification {
		return nil, ErrInvalidState
	}
	cancelled, err := o.ledger.UpdateStatus(ctx, transactionID, ledger.StatusCancelled, nil)
	if err != nil {
		return nil, err
	}
	if _, err := o.balances.ReverseWithdrawal(ctx, tx.UserID, tx.Amount, tx.CreatedAt); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("transactionId", transactionID).Msg("failed to release daily-limit slot after user cancel")
	}
	return cancelled, nil
}

// ConfirmPayoutWebhook maps the provider's callback and applies the normal
// C6 terminal transitions (§4.6).
func (o *Orchestrator) ConfirmPayoutWebhook(ctx context.Context, providerName string, mappedStatus string, transactionID string) (*ledger.Transaction, error) {
	tx, err := o.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if tx.Status.IsTerminal() {
		return tx, nil
	}

	switch mappedStatus {
	case "completed":
		return o.ledger.UpdateStatusWithMetadata(ctx, transactionID, ledger.StatusCompleted, map[string]string{"statusCheckedAt": time.Now().UTC().Format(time.RFC3339)})
	case "failed":
		return o.refundAndFail(ctx, tx, "provider reported failure")
	default:
		return o.ledger.UpdateStatusWithMetadata(ctx, transactionID, ledger.StatusProcessing, map[string]string{"statusCheckedAt": time.Now().UTC().Format(time.RFC3339)})
	}
}

// selectPayoutService routes mobile-money payouts to CinetPay (Aggregator-A)
// and crypto payouts to NOWPayments per §4.6. FeexPay's CreatePayout exists
// but is a feature-flagged secondary rail (gated by the
// FeexPayWithdrawalsEnabled flag that app.go passes to feexpay.New) — it is
// never the default selection.
func selectPayoutService(t Type) string {
	if t == TypeCrypto {
		return "nowpayments"
	}
	return "cinetpay"
}

func generateOTP() (string, error) {
	const digits = "0123456789"
	out := make([]byte, 6)
	for i := range out {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		out[i] = digits[n.Int64()]
	}
	return string(out), nil
}

func hashOTP(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

package withdrawal

import (
	"context"
	"testing"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/circuitbreaker"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/money"
	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
)

type fakeUsers struct {
	details collaborators.UserDetails
}

func (f *fakeUsers) GetUserDetails(ctx context.Context, id string) (collaborators.UserDetails, error) {
	return f.details, nil
}
func (f *fakeUsers) GetReferrerChain(ctx context.Context, id string, depth int) ([]string, error) {
	return nil, nil
}
func (f *fakeUsers) FindUsersByCriteria(ctx context.Context, filter collaborators.Criteria) ([]collaborators.UserDetails, error) {
	return nil, nil
}
func (f *fakeUsers) GetRandomUserIDs(ctx context.Context, n int) ([]string, error) { return nil, nil }
func (f *fakeUsers) UpdateBalance(ctx context.Context, id string, delta money.Money) error {
	return nil
}

type fakeNotifier struct{ otpCode string }

func (f *fakeNotifier) SendInternal(ctx context.Context, evt collaborators.InternalEvent) error {
	if evt.Type == "withdrawal_otp" {
		f.otpCode = evt.Data["code"]
	}
	return nil
}
func (f *fakeNotifier) Broadcast(ctx context.Context, evt collaborators.BroadcastEvent) error {
	return nil
}

type payoutAdapter struct {
	name      string
	payoutErr error
	calls     int
}

func (p *payoutAdapter) Name() string { return p.name }
func (p *payoutAdapter) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.IntentResult, error) {
	return nil, nil
}
func (p *payoutAdapter) CheckStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	return nil, nil
}
func (p *payoutAdapter) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	p.calls++
	if p.payoutErr != nil {
		return nil, p.payoutErr
	}
	return &gateway.PayoutResult{ExternalID: "payout-1", Status: "pending"}, nil
}
func (p *payoutAdapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*gateway.WebhookEvent, error) {
	return nil, nil
}
func (p *payoutAdapter) MapStatus(providerStatus string, direction gateway.Direction) string {
	return providerStatus
}

func testConfig() config.WithdrawalConfig {
	return config.WithdrawalConfig{
		DailyLimitXAF:             5000,
		MaxWithdrawalsPerDay:      3,
		MobileMoneyMinimumXAF:     5,
		MobileMoneyMultipleOf:     5,
		CryptoMinimumUSD:          2,
		FeePercent:                1,
		FeeFixedXAF:               0,
		OTPTTL:                    config.Duration{Duration: 10 * time.Minute},
		FeexPayWithdrawalsEnabled: true,
	}
}

// newTestOrchestrator wires a registry with one payoutAdapter per gateway the
// withdrawal flow can route to, and returns them so a test can assert on
// which adapter's CreatePayout was actually invoked.
func newTestOrchestrator(users *fakeUsers, notify *fakeNotifier, cfg config.WithdrawalConfig) (*Orchestrator, storage.Store, *payoutAdapter, *payoutAdapter, *payoutAdapter) {
	backend := storage.NewMemoryStore()
	ledgerStore := ledger.NewStore(backend)
	balances := balance.NewProjection(backend)
	registry := gateway.NewRegistry(circuitbreaker.NewManager(circuitbreaker.Config{Enabled: false}))
	cinetpay := &payoutAdapter{name: "cinetpay"}
	feexpay := &payoutAdapter{name: "feexpay"}
	nowpayments := &payoutAdapter{name: "nowpayments"}
	registry.Register(cinetpay)
	registry.Register(feexpay)
	registry.Register(nowpayments)
	return NewOrchestrator(ledgerStore, balances, registry, users, notify, cfg), backend, cinetpay, feexpay, nowpayments
}

func TestEstimateComputesFee(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(&fakeUsers{}, &fakeNotifier{}, testConfig())
	quote := o.Estimate(10000, TypeMobileMoney)
	if quote.Fee != 100 {
		t.Errorf("expected 1%% fee = 100, got %d", quote.Fee)
	}
	if quote.Net != 9900 {
		t.Errorf("expected net 9900, got %d", quote.Net)
	}
}

func TestInitiateRejectsBelowMinimum(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(&fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}, &fakeNotifier{}, testConfig())
	_, _, err := o.Initiate(context.Background(), InitiateRequest{UserID: "user-1", Amount: 400, Currency: "XAF", Type: TypeMobileMoney})
	if err != ErrBelowMinimum {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
}

func TestInitiateRejectsNonMultiple(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(&fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}, &fakeNotifier{}, testConfig())
	_, _, err := o.Initiate(context.Background(), InitiateRequest{UserID: "user-1", Amount: 502, Currency: "XAF", Type: TypeMobileMoney})
	if err != ErrNotMultiple {
		t.Fatalf("expected ErrNotMultiple, got %v", err)
	}
}

func TestInitiateRejectsMissingPayoutDestination(t *testing.T) {
	o, _, _, _, _ := newTestOrchestrator(&fakeUsers{}, &fakeNotifier{}, testConfig())
	_, _, err := o.Initiate(context.Background(), InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != ErrNoPayoutDestination {
		t.Fatalf("expected ErrNoPayoutDestination, got %v", err)
	}
}

func TestInitiateDoesNotDebitUpfront(t *testing.T) {
	users := &fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}
	o, backend, _, _, _ := newTestOrchestrator(users, &fakeNotifier{}, testConfig())
	_, _, err := o.Initiate(context.Background(), InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	view, _ := backend.GetBalance(context.Background(), "user-1")
	if view.Balance != 0 {
		t.Errorf("expected no debit before admin approval, got balance %d", view.Balance)
	}
}

func TestFullHappyPathDebitsOnApproval(t *testing.T) {
	users := &fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}
	notify := &fakeNotifier{}
	o, backend, cinetpay, feexpay, _ := newTestOrchestrator(users, notify, testConfig())
	ctx := context.Background()

	if _, err := backend.Adjust(ctx, "user-1", 100000, 0, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	tx, txID, err := o.Initiate(ctx, InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if tx.Status != ledger.StatusPendingOTPVerification {
		t.Fatalf("expected pending_otp_verification, got %s", tx.Status)
	}
	if notify.otpCode == "" {
		t.Fatal("expected an OTP to have been generated and delivered")
	}

	verified, err := o.VerifyOTP(ctx, txID, notify.otpCode)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if verified.Status != ledger.StatusPendingAdminApproval {
		t.Fatalf("expected pending_admin_approval, got %s", verified.Status)
	}

	if _, err := o.VerifyOTP(ctx, txID, "000000"); err == nil {
		t.Fatal("expected re-verifying from pending_admin_approval to fail")
	}

	approved, err := o.AdminApprove(ctx, txID, "admin-1", "looks fine")
	if err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if approved.Status != ledger.StatusProcessing {
		t.Fatalf("expected processing, got %s", approved.Status)
	}

	view, _ := backend.GetBalance(ctx, "user-1")
	want := int64(100000 - (1000 - o.computeFee(1000)))
	if view.Balance != want {
		t.Errorf("expected balance %d after net debit, got %d", want, view.Balance)
	}

	if cinetpay.calls != 1 {
		t.Errorf("expected mobile-money payout to dispatch through cinetpay (Aggregator-A), got %d calls", cinetpay.calls)
	}
	if feexpay.calls != 0 {
		t.Errorf("expected feexpay (feature-flagged secondary rail) not to be used by default, got %d calls", feexpay.calls)
	}
}

// TestMobileMoneyWithdrawalSelectsCinetPay pins §4.6's routing rule directly:
// mobile-money payouts must go through Aggregator-A (CinetPay), never
// FeexPay (Aggregator-B).
func TestMobileMoneyWithdrawalSelectsCinetPay(t *testing.T) {
	if got := selectPayoutService(TypeMobileMoney); got != "cinetpay" {
		t.Fatalf("expected mobile-money withdrawals to select cinetpay, got %q", got)
	}
	if got := selectPayoutService(TypeCrypto); got != "nowpayments" {
		t.Fatalf("expected crypto withdrawals to select nowpayments, got %q", got)
	}
}

// TestAdminApproveLeavesProcessingWhenPayoutDispatchFails covers a CreatePayout
// error from the selected provider (e.g. cinetpay rejecting the request
// synchronously): the debit is not reverted inline, it is left in
// "processing" for C7 reconcile to resolve, matching the dispatch-failure
// comment in AdminApprove.
func TestAdminApproveLeavesProcessingWhenPayoutDispatchFails(t *testing.T) {
	cfg := testConfig()
	users := &fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}
	notify := &fakeNotifier{}
	o, backend, cinetpay, _, _ := newTestOrchestrator(users, notify, cfg)
	cinetpay.payoutErr = gateway.ErrFeatureDisabled
	ctx := context.Background()

	if _, err := backend.Adjust(ctx, "user-1", 100000, 0, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	_, txID, err := o.Initiate(ctx, InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := o.VerifyOTP(ctx, txID, notify.otpCode); err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	final, err := o.AdminApprove(ctx, txID, "admin-1", "")
	if err != nil {
		t.Fatalf("admin approve: %v", err)
	}
	if final.Status != ledger.StatusProcessing {
		t.Fatalf("expected processing when the payout dispatch fails synchronously, got %s", final.Status)
	}

	net := int64(1000 - o.computeFee(1000))
	want := int64(100000) - net
	view, _ := backend.GetBalance(ctx, "user-1")
	if view.Balance != want {
		t.Errorf("expected the debit to still be applied pending reconcile, got %d want %d", view.Balance, want)
	}
}

func TestUserCancelOnlyValidFromPendingOTP(t *testing.T) {
	users := &fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}
	notify := &fakeNotifier{}
	o, _, _, _, _ := newTestOrchestrator(users, notify, testConfig())
	ctx := context.Background()

	_, txID, err := o.Initiate(ctx, InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	cancelled, err := o.UserCancel(ctx, txID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != ledger.StatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}

	if _, err := o.UserCancel(ctx, txID); err != ErrInvalidState {
		t.Fatalf("expected ErrInvalidState on a second cancel, got %v", err)
	}
}

// TestUserCancelReleasesDailyLimitSlot covers §4.2: a cancelled withdrawal
// must not keep counting against the user's daily withdrawal limit, or a
// cancel/re-initiate cycle would eventually lock the user out for no reason.
func TestUserCancelReleasesDailyLimitSlot(t *testing.T) {
	users := &fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}
	notify := &fakeNotifier{}
	o, backend, _, _, _ := newTestOrchestrator(users, notify, testConfig())
	ctx := context.Background()

	_, txID, err := o.Initiate(ctx, InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	view, _ := backend.GetBalance(ctx, "user-1")
	if view.DailyWithdrawalTotal != 1000 || view.DailyWithdrawalCount != 1 {
		t.Fatalf("expected the initiate to reserve a daily-limit slot, got total=%d count=%d", view.DailyWithdrawalTotal, view.DailyWithdrawalCount)
	}

	if _, err := o.UserCancel(ctx, txID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	view, _ = backend.GetBalance(ctx, "user-1")
	if view.DailyWithdrawalTotal != 0 || view.DailyWithdrawalCount != 0 {
		t.Errorf("expected the daily counter to net to zero after cancel, got total=%d count=%d", view.DailyWithdrawalTotal, view.DailyWithdrawalCount)
	}
}

// TestAdminRejectReleasesDailyLimitSlot mirrors the cancel case for an
// admin-rejected withdrawal, which also never debited the user (§4.2).
func TestAdminRejectReleasesDailyLimitSlot(t *testing.T) {
	users := &fakeUsers{details: collaborators.UserDetails{MobileMoneyPhone: "670000000"}}
	notify := &fakeNotifier{}
	o, backend, _, _, _ := newTestOrchestrator(users, notify, testConfig())
	ctx := context.Background()

	_, txID, err := o.Initiate(ctx, InitiateRequest{UserID: "user-1", Amount: 1000, Currency: "XAF", Type: TypeMobileMoney})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if _, err := o.VerifyOTP(ctx, txID, notify.otpCode); err != nil {
		t.Fatalf("verify otp: %v", err)
	}

	if _, err := o.AdminReject(ctx, txID, "admin-1", "suspicious"); err != nil {
		t.Fatalf("admin reject: %v", err)
	}

	view, _ := backend.GetBalance(ctx, "user-1")
	if view.DailyWithdrawalTotal != 0 || view.DailyWithdrawalCount != 0 {
		t.Errorf("expected the daily counter to net to zero after admin reject, got total=%d count=%d", view.DailyWithdrawalTotal, view.DailyWithdrawalCount)
	}
}

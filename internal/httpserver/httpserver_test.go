package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/TambongStercy/SBC-MS-sub012/internal/activation"
	"github.com/TambongStercy/SBC-MS-sub012/internal/apperrors"
	"github.com/TambongStercy/SBC-MS-sub012/internal/auth"
	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/circuitbreaker"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/commission"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/idempotency"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/metrics"
	"github.com/TambongStercy/SBC-MS-sub012/internal/money"
	"github.com/TambongStercy/SBC-MS-sub012/internal/paymentintent"
	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
	"github.com/TambongStercy/SBC-MS-sub012/internal/withdrawal"
)

const testJWTSecret = "test-secret"

type noopUsers struct{}

func (noopUsers) GetUserDetails(ctx context.Context, id string) (collaborators.UserDetails, error) {
	return collaborators.UserDetails{UserID: id, MobileMoneyPhone: "670000000"}, nil
}
func (noopUsers) GetReferrerChain(ctx context.Context, id string, depth int) ([]string, error) {
	return nil, nil
}
func (noopUsers) FindUsersByCriteria(ctx context.Context, filter collaborators.Criteria) ([]collaborators.UserDetails, error) {
	return nil, nil
}
func (noopUsers) GetRandomUserIDs(ctx context.Context, n int) ([]string, error) { return nil, nil }
func (noopUsers) UpdateBalance(ctx context.Context, id string, delta money.Money) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) SendInternal(ctx context.Context, evt collaborators.InternalEvent) error {
	return nil
}
func (noopNotifier) Broadcast(ctx context.Context, evt collaborators.BroadcastEvent) error { return nil }

type stubIntentAdapter struct{ name string }

func (s *stubIntentAdapter) Name() string { return s.name }
func (s *stubIntentAdapter) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.IntentResult, error) {
	return &gateway.IntentResult{ExternalID: "ext-1", RedirectURL: "https://pay.example"}, nil
}
func (s *stubIntentAdapter) CheckStatus(ctx context.Context, externalID string) (*gateway.StatusResult, error) {
	return &gateway.StatusResult{ProviderStatus: "PENDING"}, nil
}
func (s *stubIntentAdapter) CreatePayout(ctx context.Context, req gateway.PayoutRequest) (*gateway.PayoutResult, error) {
	return &gateway.PayoutResult{ExternalID: "payout-1", Status: "pending"}, nil
}
func (s *stubIntentAdapter) ParseWebhook(ctx context.Context, rawBody []byte, headers map[string]string) (*gateway.WebhookEvent, error) {
	return nil, nil
}
func (s *stubIntentAdapter) MapStatus(providerStatus string, direction gateway.Direction) string {
	return "processing"
}

func testServer(t *testing.T) (http.Handler, storage.Store, *ledger.Store) {
	t.Helper()
	backend := storage.NewMemoryStore()
	ledgerStore := ledger.NewStore(backend)
	balances := balance.NewProjection(backend)
	registry := gateway.NewRegistry(circuitbreaker.NewManager(circuitbreaker.Config{Enabled: false}))
	registry.Register(&stubIntentAdapter{name: "cinetpay"})

	commissionEngine := commission.NewEngine(ledgerStore, balances, noopUsers{}, noopNotifier{}, map[string]commission.Plan{})
	paymentIntents := paymentintent.NewManager(backend, ledgerStore, balances, registry, commissionEngine)

	withdrawals := withdrawal.NewOrchestrator(ledgerStore, balances, registry, noopUsers{}, noopNotifier{}, config.WithdrawalConfig{
		DailyLimitXAF: 5000, MaxWithdrawalsPerDay: 3, MobileMoneyMinimumXAF: 5, MobileMoneyMultipleOf: 5,
		FeePercent: 1, OTPTTL: config.Duration{Duration: 10 * time.Minute}, FeexPayWithdrawalsEnabled: true,
	})

	activationLedger := activation.NewLedger(ledgerStore, balances, noopUsers{}, noopNotifier{}, commissionEngine, map[string]activation.Price{
		"CLASSIQUE": {XAFMinor: 5000, USDMinor: 1000},
	})

	cfg := &config.Config{}
	cfg.Server.Address = ":0"
	cfg.Server.RequestTimeout = config.Duration{Duration: 5 * time.Second}
	cfg.Server.PaymentTimeout = config.Duration{Duration: 5 * time.Second}

	deps := Dependencies{
		PaymentIntents:  paymentIntents,
		Withdrawals:     withdrawals,
		Activation:      activationLedger,
		Gateways:        registry,
		Ledger:          ledgerStore,
		Balances:        balances,
		AuthVerifier:    auth.NewVerifier(testJWTSecret),
		ServiceVerifier: auth.NewServiceVerifier("service-secret", nil),
	}

	router := chi.NewRouter()
	ConfigureRouter(router, cfg, deps, idempotency.NewMemoryStore(), metrics.New(prometheus.NewRegistry()), zerolog.Nop())
	return router, backend, ledgerStore
}

func signUserToken(t *testing.T, userID, role string) string {
	t.Helper()
	claims := auth.Claims{UserID: userID, Role: role}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apperrors.Envelope {
	t.Helper()
	var env apperrors.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body=%s)", err, rec.Body.String())
	}
	return env
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := testServer(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestCreatePaymentIntentRequiresAuth(t *testing.T) {
	router, _, _ := testServer(t)
	body, _ := json.Marshal(map[string]interface{}{"paymentType": "subscription_classique", "amount": 1000, "currency": "XAF", "gateway": "cinetpay"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/payments/intent", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}

func TestCreatePaymentIntentSucceedsForAuthenticatedUser(t *testing.T) {
	router, _, _ := testServer(t)
	body, _ := json.Marshal(map[string]interface{}{"paymentType": "subscription_classique", "amount": 1000, "currency": "XAF", "gateway": "cinetpay"})
	req := httptest.NewRequest(http.MethodPost, "/api/payments/intent", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("expected success envelope, got %+v", env)
	}
}

func TestCreatePaymentIntentRejectsNonPositiveAmount(t *testing.T) {
	router, _, _ := testServer(t)
	body, _ := json.Marshal(map[string]interface{}{"paymentType": "subscription_classique", "amount": 0, "currency": "XAF", "gateway": "cinetpay"})
	req := httptest.NewRequest(http.MethodPost, "/api/payments/intent", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for a non-positive amount, got %d", rec.Code)
	}
}

func TestTransactionHistoryScopedToCaller(t *testing.T) {
	router, _, ledgerStore := testServer(t)
	ctx := context.Background()
	if _, err := ledgerStore.Append(ctx, &ledger.Transaction{UserID: "user-1", Type: ledger.TypeDeposit, Amount: 500, Currency: "XAF", Status: ledger.StatusCompleted}); err != nil {
		t.Fatalf("seed tx: %v", err)
	}
	if _, err := ledgerStore.Append(ctx, &ledger.Transaction{UserID: "user-2", Type: ledger.TypeDeposit, Amount: 700, Currency: "XAF", Status: ledger.StatusCompleted}); err != nil {
		t.Fatalf("seed tx: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/history", nil)
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	items, ok := env.Data.([]interface{})
	if !ok {
		t.Fatalf("expected a list of transactions, got %T", env.Data)
	}
	if len(items) != 1 {
		t.Errorf("expected only the caller's own transaction, got %d", len(items))
	}
}

func TestTransactionByIDForbidsNonOwner(t *testing.T) {
	router, _, ledgerStore := testServer(t)
	tx, err := ledgerStore.Append(context.Background(), &ledger.Transaction{UserID: "user-1", Type: ledger.TypeDeposit, Amount: 500, Currency: "XAF", Status: ledger.StatusCompleted})
	if err != nil {
		t.Fatalf("seed tx: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/transactions/"+tx.TransactionID, nil)
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-2", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-owner, got %d (body=%s)", rec.Code, rec.Body.String())
	}
}

func TestAdminRoutesRejectNonAdminRole(t *testing.T) {
	router, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/withdrawals/pending", nil)
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for a non-admin caller, got %d", rec.Code)
	}
}

func TestWithdrawalEstimateRequiresPositiveAmount(t *testing.T) {
	router, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/transactions/withdrawal/estimate?amount=0", nil)
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWithdrawalEstimateReturnsOKForPositiveAmount(t *testing.T) {
	router, _, _ := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/transactions/withdrawal/estimate?amount=1000&type=mobile_money", nil)
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body=%s)", rec.Code, rec.Body.String())
	}
}

func TestInternalDepositRequiresServiceAuth(t *testing.T) {
	router, _, _ := testServer(t)
	body, _ := json.Marshal(map[string]interface{}{"userId": "user-1", "amount": 1000, "currency": "XAF"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/internal/deposit", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without the service bearer token, got %d", rec.Code)
	}
}

func TestInternalDepositCreditsBalance(t *testing.T) {
	router, backend, _ := testServer(t)
	body, _ := json.Marshal(map[string]interface{}{"userId": "user-1", "amount": 1000, "currency": "XAF"})
	req := httptest.NewRequest(http.MethodPost, "/api/internal/deposit", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer service-secret")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body=%s)", rec.Code, rec.Body.String())
	}
	view, err := backend.GetBalance(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if view.Balance != 1000 {
		t.Errorf("expected balance credited 1000, got %d", view.Balance)
	}
}

func TestActivationTransferRequiresAuth(t *testing.T) {
	router, _, _ := testServer(t)
	body, _ := json.Marshal(map[string]interface{}{"amount": 1000, "currency": "XAF"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/activation-balance/transfer", bytes.NewReader(body)))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a bearer token, got %d", rec.Code)
	}
}

func TestActivationTransferTopsUpFromBalance(t *testing.T) {
	router, backend, _ := testServer(t)
	if _, err := backend.Adjust(context.Background(), "user-1", 10000, 0, 0); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	body, _ := json.Marshal(map[string]interface{}{"amount": 3000, "currency": "XAF"})
	req := httptest.NewRequest(http.MethodPost, "/api/activation-balance/transfer", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+signUserToken(t, "user-1", "user"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body=%s)", rec.Code, rec.Body.String())
	}

	view, _ := backend.GetBalance(context.Background(), "user-1")
	if view.ActivationBalance != 3000 {
		t.Errorf("expected activation balance 3000, got %d", view.ActivationBalance)
	}
}

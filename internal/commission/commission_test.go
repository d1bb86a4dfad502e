package commission

import (
	"context"
	"testing"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/money"
	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
)

type fakeUserClient struct {
	chain []string
}

func (f *fakeUserClient) GetReferrerChain(ctx context.Context, id string, depth int) ([]string, error) {
	return f.chain, nil
}

func (f *fakeUserClient) GetUserDetails(ctx context.Context, id string) (collaborators.UserDetails, error) {
	return collaborators.UserDetails{UserID: id}, nil
}

func (f *fakeUserClient) FindUsersByCriteria(ctx context.Context, filter collaborators.Criteria) ([]collaborators.UserDetails, error) {
	return nil, nil
}

func (f *fakeUserClient) GetRandomUserIDs(ctx context.Context, n int) ([]string, error) {
	return nil, nil
}

func (f *fakeUserClient) UpdateBalance(ctx context.Context, id string, delta money.Money) error {
	return nil
}

type fakeNotifier struct {
	sent []collaborators.InternalEvent
}

func (f *fakeNotifier) SendInternal(ctx context.Context, evt collaborators.InternalEvent) error {
	f.sent = append(f.sent, evt)
	return nil
}

func (f *fakeNotifier) Broadcast(ctx context.Context, evt collaborators.BroadcastEvent) error {
	return nil
}

func newTestEngine(chain []string, plans map[string]Plan) (*Engine, *ledger.Store, *balance.Projection, *fakeNotifier) {
	backend := storage.NewMemoryStore()
	ledgerStore := ledger.NewStore(backend)
	balances := balance.NewProjection(backend)
	notifier := &fakeNotifier{}
	engine := NewEngine(ledgerStore, balances, &fakeUserClient{chain: chain}, notifier, plans)
	return engine, ledgerStore, balances, notifier
}

func testPlans() map[string]Plan {
	return map[string]Plan{
		"subscription_classique": {Currency: "XAF", Levels: [3]int64{1000, 500, 250}},
	}
}

func TestDistributeCreditsThreeLevels(t *testing.T) {
	engine, _, balances, notifier := newTestEngine([]string{"ref-1", "ref-2", "ref-3"}, testPlans())
	ctx := context.Background()

	settled := &ledger.Transaction{TransactionID: "tx-1", UserID: "buyer-1", Metadata: map[string]string{"paymentType": "subscription_classique"}}
	if err := engine.Distribute(ctx, settled); err != nil {
		t.Fatalf("distribute: %v", err)
	}

	for refID, want := range map[string]int64{"ref-1": 1000, "ref-2": 500, "ref-3": 250} {
		view, err := balances.GetBalance(ctx, refID)
		if err != nil {
			t.Fatalf("get balance %s: %v", refID, err)
		}
		if view.Balance != want {
			t.Errorf("expected %s credited %d, got %d", refID, want, view.Balance)
		}
	}
	if len(notifier.sent) != 3 {
		t.Errorf("expected 3 notifications, got %d", len(notifier.sent))
	}
}

func TestDistributeIsIdempotentPerSourceTransaction(t *testing.T) {
	engine, _, balances, _ := newTestEngine([]string{"ref-1"}, testPlans())
	ctx := context.Background()

	settled := &ledger.Transaction{TransactionID: "tx-1", UserID: "buyer-1", Metadata: map[string]string{"paymentType": "subscription_classique"}}
	if err := engine.Distribute(ctx, settled); err != nil {
		t.Fatalf("first distribute: %v", err)
	}
	if err := engine.Distribute(ctx, settled); err != nil {
		t.Fatalf("second distribute: %v", err)
	}

	view, err := balances.GetBalance(ctx, "ref-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if view.Balance != 1000 {
		t.Errorf("expected exactly one credit of 1000, got %d (double-credited)", view.Balance)
	}
}

func TestDistributeRejectsUnknownPlan(t *testing.T) {
	engine, _, _, _ := newTestEngine([]string{"ref-1"}, testPlans())
	settled := &ledger.Transaction{TransactionID: "tx-1", UserID: "buyer-1", Metadata: map[string]string{"paymentType": "unknown"}}
	if err := engine.Distribute(context.Background(), settled); err == nil {
		t.Fatal("expected an error for a paymentType with no configured plan")
	}
}

func TestRepairPassReusesDistributeIdempotency(t *testing.T) {
	engine, _, balances, _ := newTestEngine([]string{"ref-1"}, testPlans())
	ctx := context.Background()
	settled := &ledger.Transaction{TransactionID: "tx-1", UserID: "buyer-1", Metadata: map[string]string{"paymentType": "subscription_classique"}}

	if err := engine.Distribute(ctx, settled); err != nil {
		t.Fatalf("distribute: %v", err)
	}
	if err := engine.RepairPass(ctx, settled); err != nil {
		t.Fatalf("repair pass: %v", err)
	}

	view, _ := balances.GetBalance(ctx, "ref-1")
	if view.Balance != 1000 {
		t.Errorf("expected repair pass to be a no-op on an already-credited transaction, got %d", view.Balance)
	}
}

package activation

import (
	"context"
	"testing"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/commission"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/money"
	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
)

type fakeUsers struct {
	known map[string]bool
}

func (f *fakeUsers) GetUserDetails(ctx context.Context, id string) (collaborators.UserDetails, error) {
	if f.known != nil && !f.known[id] {
		return collaborators.UserDetails{}, storage.ErrNotFound
	}
	return collaborators.UserDetails{UserID: id}, nil
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

type noopNotifier struct{}

func (noopNotifier) SendInternal(ctx context.Context, evt collaborators.InternalEvent) error {
	return nil
}
func (noopNotifier) Broadcast(ctx context.Context, evt collaborators.BroadcastEvent) error { return nil }

func newTestLedger(prices map[string]Price) (*Ledger, *balance.Projection) {
	backend := storage.NewMemoryStore()
	ledgerStore := ledger.NewStore(backend)
	balances := balance.NewProjection(backend)
	users := &fakeUsers{}
	commissionEngine := commission.NewEngine(ledgerStore, balances, users, noopNotifier{}, map[string]commission.Plan{
		"activation": {Currency: "XAF", Levels: [3]int64{100, 50, 25}},
	})
	return NewLedger(ledgerStore, balances, users, noopNotifier{}, commissionEngine, prices), balances
}

func testPrices() map[string]Price {
	return map[string]Price{
		"CLASSIQUE": {XAFMinor: 5000, USDMinor: 1000},
	}
}

func TestTopUpMovesFromBalanceToActivation(t *testing.T) {
	l, balances := newTestLedger(testPrices())
	ctx := context.Background()

	if _, err := balances.Adjust(ctx, "user-1", 10000, 0, 0); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := l.TopUp(ctx, "user-1", 3000, "XAF"); err != nil {
		t.Fatalf("top up: %v", err)
	}

	view, err := balances.GetBalance(ctx, "user-1")
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if view.Balance != 7000 {
		t.Errorf("expected spendable balance 7000 after top-up, got %d", view.Balance)
	}
	if view.ActivationBalance != 3000 {
		t.Errorf("expected activation balance 3000, got %d", view.ActivationBalance)
	}
}

func TestTopUpRejectsNonPositiveAmount(t *testing.T) {
	l, _ := newTestLedger(testPrices())
	if _, err := l.TopUp(context.Background(), "user-1", 0, "XAF"); err != ErrValidation {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestTransferToUserRejectsSelfTransfer(t *testing.T) {
	l, _ := newTestLedger(testPrices())
	if _, err := l.TransferToUser(context.Background(), "user-1", "user-1", 100, "XAF"); err != ErrSelfTransfer {
		t.Fatalf("expected ErrSelfTransfer, got %v", err)
	}
}

func TestTransferToUserMovesActivationBalance(t *testing.T) {
	l, balances := newTestLedger(testPrices())
	ctx := context.Background()

	if _, err := balances.Adjust(ctx, "user-1", 0, 0, 5000); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if _, err := l.TransferToUser(ctx, "user-1", "user-2", 2000, "XAF"); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	senderView, _ := balances.GetBalance(ctx, "user-1")
	recipientView, _ := balances.GetBalance(ctx, "user-2")
	if senderView.ActivationBalance != 3000 {
		t.Errorf("expected sender left with 3000, got %d", senderView.ActivationBalance)
	}
	if recipientView.ActivationBalance != 2000 {
		t.Errorf("expected recipient credited 2000, got %d", recipientView.ActivationBalance)
	}
}

func TestSponsorActivationRejectsUnknownSKU(t *testing.T) {
	l, _ := newTestLedger(testPrices())
	if _, err := l.SponsorActivation(context.Background(), "user-1", "user-2", "NOPE", "XAF"); err != ErrNoSuchSKU {
		t.Fatalf("expected ErrNoSuchSKU, got %v", err)
	}
}

func TestSponsorActivationDebitsSponsorActivationBalance(t *testing.T) {
	l, balances := newTestLedger(testPrices())
	ctx := context.Background()

	if _, err := balances.Adjust(ctx, "sponsor-1", 0, 0, 10000); err != nil {
		t.Fatalf("seed: %v", err)
	}

	settled, err := l.SponsorActivation(ctx, "sponsor-1", "beneficiary-1", "CLASSIQUE", "XAF")
	if err != nil {
		t.Fatalf("sponsor activation: %v", err)
	}
	if settled.Type != ledger.TypeSponsorActivation {
		t.Errorf("expected a sponsor-activation entry, got %s", settled.Type)
	}

	sponsorView, _ := balances.GetBalance(ctx, "sponsor-1")
	if sponsorView.ActivationBalance != 5000 {
		t.Errorf("expected sponsor debited to 5000, got %d", sponsorView.ActivationBalance)
	}
}

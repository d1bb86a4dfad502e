// Package balance implements C2: the per-user balance projection derived
// from the C1 ledger, plus the atomicity and daily-limit guards that sit in
// front of every debit.
package balance

import (
	"context"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/storage"
)

type View = storage.UserBalanceView

var ErrInsufficientFunds = storage.ErrInsufficientFunds

// Ledger is the subset of storage.Store the balance projection needs.
// Kept as an interface (rather than *storage.Store) so business-logic
// packages can be tested against a hand-rolled fake if desired.
type Ledger interface {
	GetBalance(ctx context.Context, userID string) (*View, error)
	GetBalances(ctx context.Context, userIDs []string) (map[string]*View, error)
	Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*View, error)
	HasPendingBlockingTransactions(ctx context.Context, userID string, types []storage.TransactionType) (bool, error)
	RecordWithdrawal(ctx context.Context, userID string, amount, maxDailyAmount int64, maxDailyCount int) (bool, *View, error)
	ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*View, error)
}

// Projection is the C2 API: every debit/credit in the system goes through
// Adjust, which is atomic per-user regardless of backend (§4.2, §5).
type Projection struct {
	ledger Ledger
}

func NewProjection(ledger Ledger) *Projection {
	return &Projection{ledger: ledger}
}

func (p *Projection) GetBalance(ctx context.Context, userID string) (*View, error) {
	return p.ledger.GetBalance(ctx, userID)
}

func (p *Projection) GetBalances(ctx context.Context, userIDs []string) (map[string]*View, error) {
	return p.ledger.GetBalances(ctx, userIDs)
}

// Adjust applies the deltas atomically, rejecting with ErrInsufficientFunds
// if any resulting field would go negative (§4.2 "Adjust").
func (p *Projection) Adjust(ctx context.Context, userID string, deltaBalance, deltaUSD, deltaActivation int64) (*View, error) {
	return p.ledger.Adjust(ctx, userID, deltaBalance, deltaUSD, deltaActivation)
}

// HasPendingBlockingTransactions reports whether userID has any non-terminal
// transaction of one of the given types, used to serialize conflicting
// operations (e.g. a second withdrawal while one is still processing).
func (p *Projection) HasPendingBlockingTransactions(ctx context.Context, userID string, types []storage.TransactionType) (bool, error) {
	return p.ledger.HasPendingBlockingTransactions(ctx, userID, types)
}

// WithinDailyLimits advances the user's rolling 24h withdrawal window and
// reports whether amount keeps the user within maxDailyAmount/maxDailyCount.
// On success the caller must still debit via Adjust separately — recording
// the attempt and moving the money are deliberately two steps so a rejected
// Adjust (insufficient funds) does not also consume a daily-limit slot
// retroactively in a way that can't be told apart from a real withdrawal.
func (p *Projection) WithinDailyLimits(ctx context.Context, userID string, amount int64, maxDailyAmount int64, maxDailyCount int) (bool, *View, error) {
	return p.ledger.RecordWithdrawal(ctx, userID, amount, maxDailyAmount, maxDailyCount)
}

// ReverseWithdrawal releases the daily-limit slot a cancelled or
// admin-rejected withdrawal reserved via WithinDailyLimits, identified by
// recordedAt (the original RecordWithdrawal time) so an already-rolled-over
// window isn't reversed into a fresh one (§4.2).
func (p *Projection) ReverseWithdrawal(ctx context.Context, userID string, amount int64, recordedAt time.Time) (*View, error) {
	return p.ledger.ReverseWithdrawal(ctx, userID, amount, recordedAt)
}

// StaleSince reports whether a view's daily window has run its full 24h
// (true once 24h or more have passed since DailyWindowStart), used by
// reconcile/admin tooling to decide whether a displayed
// dailyWithdrawalTotal is still meaningful or due for reset.
func StaleSince(view *View, now time.Time) bool {
	return now.Sub(view.DailyWindowStart) >= 24*time.Hour
}

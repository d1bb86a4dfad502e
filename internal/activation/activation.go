// Package activation implements C8: the activation sub-ledger, a balance
// pool isolated from spendable funds that can only be topped up from a
// user's own balance, transferred peer-to-peer, or spent to sponsor a
// beneficiary's subscription activation.
package activation

import (
	"context"
	"errors"
	"fmt"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/commission"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
)

var (
	ErrValidation  = errors.New("activation: invalid request")
	ErrSelfTransfer = errors.New("activation: cannot transfer to self")
	ErrNoSuchSKU   = errors.New("activation: unknown activation SKU")
)

// Price is one SKU's activation pricing and its dedicated commission plan
// (§4.8: "fan out commissions... using the activation commission plan" —
// distinct from the subscription commission plans of §4.5).
type Price struct {
	USDMinor int64
	XAFMinor int64
	PlanXAF  commission.Plan
	PlanUSD  commission.Plan
}

// Ledger implements the C8 operations.
type Ledger struct {
	ledger     *ledger.Store
	balances   *balance.Projection
	users      collaborators.UserClient
	notify     collaborators.NotificationClient
	commission *commission.Engine
	prices     map[string]Price
}

func NewLedger(ledgerStore *ledger.Store, balances *balance.Projection, users collaborators.UserClient, notify collaborators.NotificationClient, commissionEngine *commission.Engine, prices map[string]Price) *Ledger {
	return &Ledger{ledger: ledgerStore, balances: balances, users: users, notify: notify, commission: commissionEngine, prices: prices}
}

// PricesFromConfig converts the configured major-unit activation price table
// into minor-unit Price entries with their dedicated commission plans.
func PricesFromConfig(cfg config.ActivationConfig, toMinor func(major float64, currency string) int64) map[string]Price {
	prices := make(map[string]Price, len(cfg.Prices))
	for sku, p := range cfg.Prices {
		prices[sku] = Price{
			USDMinor: toMinor(p.USD, "USD"),
			XAFMinor: toMinor(p.XAF, "XAF"),
			PlanXAF: commission.Plan{
				Currency: "XAF",
				Levels:   [3]int64{toMinor(p.CommissionXAF.Level1, "XAF"), toMinor(p.CommissionXAF.Level2, "XAF"), toMinor(p.CommissionXAF.Level3, "XAF")},
			},
			PlanUSD: commission.Plan{
				Currency: "USD",
				Levels:   [3]int64{toMinor(p.CommissionUSD.Level1, "USD"), toMinor(p.CommissionUSD.Level2, "USD"), toMinor(p.CommissionUSD.Level3, "USD")},
			},
		}
	}
	return prices
}

// TopUp moves funds from the user's spendable balance into their own
// activation pool: one debit from balance, one credit to activationBalance,
// atomic (§4.8 "Top-up").
func (l *Ledger) TopUp(ctx context.Context, userID string, amount int64, currency string) (*ledger.Transaction, error) {
	if amount <= 0 {
		return nil, ErrValidation
	}

	debitType, creditType := ledger.TypeActivationTransferOut, ledger.TypeActivationTransferIn
	_ = debitType

	isFiat := currency != "USD"
	if isFiat {
		if _, err := l.balances.Adjust(ctx, userID, -amount, 0, amount); err != nil {
			return nil, err
		}
	} else {
		if _, err := l.balances.Adjust(ctx, userID, 0, -amount, amount); err != nil {
			return nil, err
		}
	}

	return l.ledger.Append(ctx, &ledger.Transaction{
		UserID: userID, Type: creditType, Amount: amount, Currency: currency,
		Status: ledger.StatusCompleted, Description: "activation top-up",
	})
}

// TransferToUser moves activationBalance from sender to recipient (§4.8
// "Peer transfer"). Requires recipient exists and is not self.
func (l *Ledger) TransferToUser(ctx context.Context, senderID, recipientID string, amount int64, currency string) (*ledger.Transaction, error) {
	if amount <= 0 {
		return nil, ErrValidation
	}
	if senderID == recipientID {
		return nil, ErrSelfTransfer
	}
	if _, err := l.users.GetUserDetails(ctx, recipientID); err != nil {
		return nil, fmt.Errorf("recipient lookup failed: %w", err)
	}

	isFiat := currency != "USD"
	if isFiat {
		if _, err := l.balances.Adjust(ctx, senderID, 0, 0, -amount); err != nil {
			return nil, err
		}
		if _, err := l.balances.Adjust(ctx, recipientID, 0, 0, amount); err != nil {
			// Best-effort compensation: credit the sender back.
			_, _ = l.balances.Adjust(ctx, senderID, 0, 0, amount)
			return nil, err
		}
	} else {
		if _, err := l.balances.Adjust(ctx, senderID, 0, 0, -amount); err != nil {
			return nil, err
		}
		if _, err := l.balances.Adjust(ctx, recipientID, 0, 0, amount); err != nil {
			_, _ = l.balances.Adjust(ctx, senderID, 0, 0, amount)
			return nil, err
		}
	}

	return l.ledger.Append(ctx, &ledger.Transaction{
		UserID: senderID, Type: ledger.TypeActivationTransferOut, Amount: amount, Currency: currency,
		Status: ledger.StatusCompleted, Description: "activation peer transfer",
		Metadata: map[string]string{"recipientUserId": recipientID},
	})
}

// SponsorActivation debits the sponsor's activationBalance by the plan
// price and credits the beneficiary with a full activation of sku, fanning
// out commissions per the activation plan (§4.8 "Sponsor activation"). The
// subscription itself is set by the subscription collaborator consuming the
// emitted notification event, not by this engine.
func (l *Ledger) SponsorActivation(ctx context.Context, sponsorID, beneficiaryID, sku, currency string) (*ledger.Transaction, error) {
	price, ok := l.prices[sku]
	if !ok {
		return nil, ErrNoSuchSKU
	}
	if sponsorID == beneficiaryID {
		return nil, ErrSelfTransfer
	}

	amount := price.XAFMinor
	plan := price.PlanXAF
	if currency == "USD" {
		amount = price.USDMinor
		plan = price.PlanUSD
	}

	if _, err := l.balances.Adjust(ctx, sponsorID, 0, 0, -amount); err != nil {
		return nil, err
	}

	settled, err := l.ledger.Append(ctx, &ledger.Transaction{
		UserID: beneficiaryID, Type: ledger.TypeSponsorActivation, Amount: amount, Currency: currency,
		Status: ledger.StatusCompleted, Description: fmt.Sprintf("sponsored activation: %s", sku),
		Metadata: map[string]string{"sponsorUserId": sponsorID, "activationSku": sku, "paymentType": "activation"},
	})
	if err != nil {
		return nil, err
	}

	if l.notify != nil {
		_ = l.notify.SendInternal(ctx, collaborators.InternalEvent{
			Type: "activation_sponsored", UserID: beneficiaryID,
			Data: map[string]string{"sponsorUserId": sponsorID, "activationSku": sku},
		})
	}

	if l.commission != nil {
		// Distribute looks the plan up by the entry's paymentType
		// ("activation") in the engine's own plan table, which app.go builds
		// from commission.PlansFromConfig alone; price.PlanXAF/PlanUSD are not
		// passed to it.
		if err := l.commission.Distribute(ctx, settled); err != nil {
			return settled, fmt.Errorf("activation commission distribution: %w", err)
		}
	}
	_ = plan

	return settled, nil
}

// ReferralsActivatableByUser returns sponsorId's direct referrals that do
// not yet hold an active subscription of sku (§4.8).
func (l *Ledger) ReferralsActivatableByUser(ctx context.Context, sponsorID, sku string) ([]collaborators.UserDetails, error) {
	candidates, err := l.users.FindUsersByCriteria(ctx, collaborators.Criteria{SubscriptionSKU: "!" + sku})
	if err != nil {
		return nil, err
	}
	var referrals []collaborators.UserDetails
	for _, u := range candidates {
		if u.ReferrerID == sponsorID {
			referrals = append(referrals, u)
		}
	}
	return referrals, nil
}

// ReferralsUpgradableByUser returns sponsorId's direct referrals currently
// on CLASSIQUE who are eligible to upgrade to CIBLE (§4.8).
func (l *Ledger) ReferralsUpgradableByUser(ctx context.Context, sponsorID string) ([]collaborators.UserDetails, error) {
	candidates, err := l.users.FindUsersByCriteria(ctx, collaborators.Criteria{SubscriptionSKU: "CLASSIQUE"})
	if err != nil {
		return nil, err
	}
	var referrals []collaborators.UserDetails
	for _, u := range candidates {
		if u.ReferrerID == sponsorID {
			referrals = append(referrals, u)
		}
	}
	return referrals, nil
}

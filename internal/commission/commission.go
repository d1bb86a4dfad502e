// Package commission implements C5: on settlement of a commission-bearing
// transaction, computes and credits up to three levels of referral
// commission, idempotent per source transaction.
package commission

import (
	"context"
	"fmt"

	"github.com/TambongStercy/SBC-MS-sub012/internal/balance"
	"github.com/TambongStercy/SBC-MS-sub012/internal/collaborators"
	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
)

// Plan is a three-level commission schedule fixed in one currency,
// independent of the buyer's payment currency (§3 CommissionPlan, §4.5).
type Plan struct {
	Currency string
	Levels   [3]int64 // minor units, index 0 = level 1
}

// Engine implements Distribute and RepairPass (§4.5).
type Engine struct {
	ledger   *ledger.Store
	balances *balance.Projection
	users    collaborators.UserClient
	notify   collaborators.NotificationClient
	plans    map[string]Plan
}

func NewEngine(ledgerStore *ledger.Store, balances *balance.Projection, users collaborators.UserClient, notify collaborators.NotificationClient, plans map[string]Plan) *Engine {
	return &Engine{ledger: ledgerStore, balances: balances, users: users, notify: notify, plans: plans}
}

// PlansFromConfig builds the plan table from the commission section of
// config, converting the configured float major-unit amounts to minor units.
func PlansFromConfig(cfg config.CommissionConfig, toMinor func(major float64, currency string) int64) map[string]Plan {
	plans := make(map[string]Plan, len(cfg.Plans))
	for sku, p := range cfg.Plans {
		plans[sku] = Plan{
			Currency: p.Currency,
			Levels: [3]int64{
				toMinor(p.Level1, p.Currency),
				toMinor(p.Level2, p.Currency),
				toMinor(p.Level3, p.Currency),
			},
		}
	}
	return plans
}

// Distribute implements the algorithm of §4.5: resolves the referrer chain,
// credits up to three levels in the plan's own currency, best-effort-atomic
// (a failed level is logged, not rolled back, and is repaired later).
func (e *Engine) Distribute(ctx context.Context, settled *ledger.Transaction) error {
	log := logger.FromContext(ctx).With().Str("component", "commission").Str("sourcePaymentSessionId", settled.TransactionID).Logger()

	plan, ok := e.plans[settled.Metadata["paymentType"]]
	if !ok {
		return fmt.Errorf("commission: no plan configured for paymentType %q", settled.Metadata["paymentType"])
	}

	chain, err := e.users.GetReferrerChain(ctx, settled.UserID, 3)
	if err != nil {
		return fmt.Errorf("resolve referrer chain: %w", err)
	}

	for i, referrerID := range chain {
		if i >= 3 {
			break
		}
		level := i + 1
		amount := plan.Levels[i]
		if amount <= 0 || referrerID == "" {
			continue
		}

		if err := e.creditLevel(ctx, settled, referrerID, level, amount, plan.Currency); err != nil {
			log.Error().Err(err).Str("referrerId", referrerID).Int("level", level).Msg("commission credit failed, will be repaired")
			continue
		}
	}
	return nil
}

// RepairPass re-runs Distribute's idempotent credit logic for a given source
// transaction, used by both the reconciler's repair sweep and an
// admin-triggered manual repair (§4.5 step 3).
func (e *Engine) RepairPass(ctx context.Context, settled *ledger.Transaction) error {
	return e.Distribute(ctx, settled)
}

func (e *Engine) creditLevel(ctx context.Context, settled *ledger.Transaction, referrerID string, level int, amount int64, currency string) error {
	// Idempotency check (§4.5 step 2b): a matching C1 deposit already exists.
	existing, err := e.ledger.Find(ctx, ledger.Filter{
		UserID: referrerID,
		Type:   ledger.TypeDeposit,
		MetadataEquals: map[string]string{
			"sourcePaymentSessionId": settled.TransactionID,
			"commissionLevel":        fmt.Sprintf("%d", level),
		},
	}, ledger.Pagination{Page: 1, Limit: 1})
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	tx := &ledger.Transaction{
		UserID:   referrerID,
		Type:     ledger.TypeDeposit,
		Amount:   amount,
		Currency: currency,
		Status:   ledger.StatusCompleted,
		Metadata: map[string]string{
			"sourcePaymentSessionId": settled.TransactionID,
			"commissionLevel":        fmt.Sprintf("%d", level),
			"beneficiaryUserId":      referrerID,
		},
	}
	if _, err := e.ledger.Append(ctx, tx); err != nil {
		return err
	}

	isFiat := currency != "USD"
	if isFiat {
		if _, err := e.balances.Adjust(ctx, referrerID, amount, 0, 0); err != nil {
			return err
		}
	} else {
		if _, err := e.balances.Adjust(ctx, referrerID, 0, amount, 0); err != nil {
			return err
		}
	}

	if e.notify != nil {
		_ = e.notify.SendInternal(ctx, collaborators.InternalEvent{
			Type:   "commission_received",
			UserID: referrerID,
			Data: map[string]string{
				"amount":   fmt.Sprintf("%d", amount),
				"currency": currency,
				"level":    fmt.Sprintf("%d", level),
			},
		})
	}
	return nil
}

// Package reconcile implements C7: a ticker-driven worker that polls the
// gateway for any withdrawal still stuck in "processing" and nudges it
// toward a terminal state, the way internal/monitoring's wallet-balance
// poller runs a background sweep on a fixed cadence.
package reconcile

import (
	"context"
	"sync"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/config"
	"github.com/TambongStercy/SBC-MS-sub012/internal/gateway"
	"github.com/TambongStercy/SBC-MS-sub012/internal/ledger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/logger"
	"github.com/TambongStercy/SBC-MS-sub012/internal/withdrawal"
)

// Worker runs the C7 reconciliation sweep on cfg.Interval, bounding each
// cycle's batch size and spacing calls to the gateways (§4.7, §5 backpressure).
type Worker struct {
	ledger       *ledger.Store
	gateways     *gateway.Registry
	withdrawals  *withdrawal.Orchestrator
	cfg          config.ReconcileConfig

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewWorker(ledgerStore *ledger.Store, gateways *gateway.Registry, withdrawals *withdrawal.Orchestrator, cfg config.ReconcileConfig) *Worker {
	return &Worker{ledger: ledgerStore, gateways: gateways, withdrawals: withdrawals, cfg: cfg, stopCh: make(chan struct{})}
}

// Start begins the periodic sweep. Mirrors the teacher's Start/Stop/loop
// shape: a ticker goroutine that also runs one cycle immediately.
func (w *Worker) Start(ctx context.Context) {
	interval := w.cfg.Interval.Duration
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := logger.FromContext(ctx).With().Str("component", "reconcile").Logger()
	log.Info().Dur("interval", interval).Int("batchSize", w.batchSize()).Msg("reconcile worker starting")

	w.wg.Add(1)
	go w.loop(ctx, interval)
}

func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, interval time.Duration) {
	defer w.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.processCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processCycle(ctx)
		}
	}
}

func (w *Worker) batchSize() int {
	if w.cfg.BatchSize <= 0 {
		return 100
	}
	if w.cfg.BatchSize > 100 {
		return 100
	}
	return w.cfg.BatchSize
}

// processCycle implements one scheduled sweep (§4.7): batch size <= 100,
// >= minCallSpacing between external calls, failures logged and skipped.
func (w *Worker) processCycle(ctx context.Context) {
	log := logger.FromContext(ctx).With().Str("component", "reconcile").Logger()

	staleness := w.cfg.StalenessThreshold.Duration
	stuck, err := w.ledger.FindProcessingWithdrawals(ctx, staleness)
	if err != nil {
		log.Error().Err(err).Msg("failed to list processing withdrawals")
		return
	}

	spacing := w.cfg.MinCallSpacing.Duration
	if spacing <= 0 {
		spacing = time.Second
	}

	limit := w.batchSize()
	for i, tx := range stuck {
		if i >= limit {
			log.Warn().Int("remaining", len(stuck)-limit).Msg("reconcile batch size reached, deferring remainder to next cycle")
			break
		}
		w.processOne(ctx, tx)
		if i < limit-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(spacing):
			}
		}
	}
}

// processOne checks a single stuck withdrawal against its gateway and
// applies the normal C6 transition (§4.7).
func (w *Worker) processOne(ctx context.Context, tx *ledger.Transaction) {
	log := logger.FromContext(ctx).With().Str("component", "reconcile").Str("transactionId", tx.TransactionID).Logger()

	provider := tx.Metadata["selectedPayoutService"]
	externalID := tx.Metadata["externalTransactionId"]
	if provider == "" || externalID == "" {
		log.Debug().Msg("withdrawal has no dispatched payout yet, skipping")
		return
	}

	adapter, err := w.gateways.Get(provider)
	if err != nil {
		log.Warn().Err(err).Msg("unknown gateway, skipping")
		return
	}

	result, err := w.gateways.CheckStatus(ctx, provider, externalID)
	if err != nil {
		log.Warn().Err(err).Msg("check-status call failed, will retry next cycle")
		return
	}

	mapped := adapter.MapStatus(result.ProviderStatus, gateway.DirectionPayout)
	if _, err := w.withdrawals.ConfirmPayoutWebhook(ctx, provider, mapped, tx.TransactionID); err != nil {
		log.Warn().Err(err).Msg("failed to apply reconciled transition")
	}
}

// RunManualSweep triggers an admin-initiated check-all pass (§4.7).
func (w *Worker) RunManualSweep(ctx context.Context) {
	w.processCycle(ctx)
}

// RunManualSweepOne triggers an admin-initiated check for a single
// transactionId (§4.7 "or a specific transactionId").
func (w *Worker) RunManualSweepOne(ctx context.Context, transactionID string) error {
	tx, err := w.ledger.FindByTransactionID(ctx, transactionID)
	if err != nil {
		return err
	}
	w.processOne(ctx, tx)
	return nil
}

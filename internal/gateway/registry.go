package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/TambongStercy/SBC-MS-sub012/internal/cacheutil"
	"github.com/TambongStercy/SBC-MS-sub012/internal/circuitbreaker"
)

// balancesCacheTTL bounds how often GetBalances actually calls out to every
// provider: the admin dashboard polls this endpoint far more often than a
// merchant balance meaningfully changes.
const balancesCacheTTL = 30 * time.Second

// Registry resolves a gateway name to its Adapter, wrapping every call
// through the shared circuit breaker manager (§4.3, §9 supplemented
// circuit-breaker-per-outbound-call feature).
type Registry struct {
	adapters map[string]Adapter
	breakers *circuitbreaker.Manager
	serviceFor map[string]circuitbreaker.ServiceType

	balancesMu    sync.RWMutex
	balancesCache map[string]BalanceResult
	balancesAt    time.Time
}

func NewRegistry(breakers *circuitbreaker.Manager) *Registry {
	return &Registry{
		adapters: make(map[string]Adapter),
		breakers: breakers,
		serviceFor: map[string]circuitbreaker.ServiceType{
			"cinetpay":   circuitbreaker.ServiceCinetPay,
			"feexpay":    circuitbreaker.ServiceFeexPay,
			"nowpayments": circuitbreaker.ServiceNOWPayments,
		},
	}
}

func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("gateway: unknown provider %q", name)
	}
	return a, nil
}

// CreateIntent resolves the adapter and runs CreateIntent through that
// provider's circuit breaker.
func (r *Registry) CreateIntent(ctx context.Context, provider string, req IntentRequest) (*IntentResult, error) {
	adapter, err := r.Get(provider)
	if err != nil {
		return nil, err
	}
	service := r.serviceFor[provider]
	result, err := r.breakers.Execute(service, func() (interface{}, error) {
		return adapter.CreateIntent(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*IntentResult), nil
}

func (r *Registry) CheckStatus(ctx context.Context, provider, externalID string) (*StatusResult, error) {
	adapter, err := r.Get(provider)
	if err != nil {
		return nil, err
	}
	service := r.serviceFor[provider]
	result, err := r.breakers.Execute(service, func() (interface{}, error) {
		return adapter.CheckStatus(ctx, externalID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*StatusResult), nil
}

// GetBalances reports the current live balance of every registered provider
// that implements BalanceProvider, cached for balancesCacheTTL (§9 "GET
// /api/admin/gateway-balances").
func (r *Registry) GetBalances(ctx context.Context) (map[string]BalanceResult, error) {
	return cacheutil.ReadThrough(
		&r.balancesMu,
		func(now time.Time) (map[string]BalanceResult, bool) {
			if r.balancesCache != nil && now.Sub(r.balancesAt) < balancesCacheTTL {
				return r.balancesCache, true
			}
			return nil, false
		},
		func(now time.Time) (map[string]BalanceResult, error) {
			out := make(map[string]BalanceResult, len(r.adapters))
			for name, adapter := range r.adapters {
				provider, ok := adapter.(BalanceProvider)
				if !ok {
					continue
				}
				bal, err := provider.GetBalance(ctx)
				if err != nil {
					continue
				}
				out[name] = *bal
			}
			r.balancesCache = out
			r.balancesAt = now
			return out, nil
		},
	)
}

// CreatePayout dispatches the payout through the provider's circuit breaker,
// then invalidates the cached GetBalances view — a successful payout debits
// the provider's real balance immediately, and the admin dashboard shouldn't
// report stale headroom for up to balancesCacheTTL after money moved.
func (r *Registry) CreatePayout(ctx context.Context, provider string, req PayoutRequest) (*PayoutResult, error) {
	adapter, err := r.Get(provider)
	if err != nil {
		return nil, err
	}
	service := r.serviceFor[provider]
	var out *PayoutResult
	err = cacheutil.WriteThrough(r.invalidateBalancesCache, func() error {
		result, err := r.breakers.Execute(service, func() (interface{}, error) {
			return adapter.CreatePayout(ctx, req)
		})
		if err != nil {
			return err
		}
		out = result.(*PayoutResult)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// invalidateBalancesCache drops the cached GetBalances snapshot so the next
// call re-fetches live balances from every provider.
func (r *Registry) invalidateBalancesCache() {
	r.balancesMu.Lock()
	defer r.balancesMu.Unlock()
	r.balancesCache = nil
}

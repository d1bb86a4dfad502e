package money

import (
	"fmt"
	"sync"
)

// Asset represents a currency with its display properties.
type Asset struct {
	Code     string // ISO-ish currency code (XAF, XOF, USD, ...)
	Decimals uint8  // Number of minor-unit decimal places
}

// Global asset registry with concurrent access protection.
var (
	// assetRegistry seeds the currencies named in §3/§9: the zero-decimal
	// mobile-money currencies circulating across SBC's served countries,
	// plus USD for crypto-denominated gateways and activation pricing.
	assetRegistry = map[string]Asset{
		"XAF": {Code: "XAF", Decimals: 0},
		"XOF": {Code: "XOF", Decimals: 0},
		"GNF": {Code: "GNF", Decimals: 0},
		"CDF": {Code: "CDF", Decimals: 0},
		"KES": {Code: "KES", Decimals: 0},
		"USD": {Code: "USD", Decimals: 2},
	}
	assetRegistryMu sync.RWMutex
)

// GetAsset retrieves an asset from the registry.
func GetAsset(code string) (Asset, error) {
	assetRegistryMu.RLock()
	asset, ok := assetRegistry[code]
	assetRegistryMu.RUnlock()

	if !ok {
		return Asset{}, fmt.Errorf("money: unknown asset: %s", code)
	}
	return asset, nil
}

// MustGetAsset retrieves an asset and panics if not found (for tests/constants).
func MustGetAsset(code string) Asset {
	asset, err := GetAsset(code)
	if err != nil {
		panic(err)
	}
	return asset
}

// RegisterAsset adds a new asset to the registry (for testing or onboarding a new currency).
func RegisterAsset(asset Asset) error {
	if asset.Code == "" {
		return fmt.Errorf("money: asset code required")
	}
	if asset.Decimals > 18 {
		return fmt.Errorf("money: decimals must be <= 18")
	}

	assetRegistryMu.Lock()
	assetRegistry[asset.Code] = asset
	assetRegistryMu.Unlock()

	return nil
}

// ListAssets returns all registered assets.
func ListAssets() []Asset {
	assetRegistryMu.RLock()
	assets := make([]Asset, 0, len(assetRegistry))
	for _, asset := range assetRegistry {
		assets = append(assets, asset)
	}
	assetRegistryMu.RUnlock()

	return assets
}

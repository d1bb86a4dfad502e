package money

import (
	"encoding/json"
	"fmt"
)

// MoneyJSON represents the wire format for Money in every payment-intent and
// transaction-history response this engine emits. Uses atomic units for
// precision — a client never has to re-derive XAF/USD decimal placement:
//
//	{"asset":"XAF", "atomic":"1000"}
type MoneyJSON struct {
	Asset  string `json:"asset"`  // Asset code (XAF, XOF, USD, ...)
	Atomic string `json:"atomic"` // Atomic units as string
}

// MarshalJSON implements json.Marshaler for Money.
// Outputs atomic-only JSON:
//
//	{
//	  "asset": "XAF",
//	  "atomic": "1000"
//	}
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(MoneyJSON{
		Asset:  m.Asset.Code,
		Atomic: m.ToAtomic(),
	})
}

// UnmarshalJSON implements json.Unmarshaler for Money.
// Accepts atomic format only:
//   - {"asset":"XAF", "atomic":"1000"}  → Money{XAF, 1000}
//
// Returns error if:
//   - Asset code is missing or unknown
//   - Atomic field is missing
//   - Parsing fails
func (m *Money) UnmarshalJSON(data []byte) error {
	var mj MoneyJSON
	if err := json.Unmarshal(data, &mj); err != nil {
		return fmt.Errorf("money: invalid JSON: %w", err)
	}

	// Asset is required
	if mj.Asset == "" {
		return fmt.Errorf("money: asset code required")
	}

	// Atomic is required
	if mj.Atomic == "" {
		return fmt.Errorf("money: 'atomic' field required")
	}

	asset, err := GetAsset(mj.Asset)
	if err != nil {
		return err
	}

	parsed, err := FromAtomic(asset, mj.Atomic)
	if err != nil {
		return err
	}

	*m = parsed
	return nil
}

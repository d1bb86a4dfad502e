package money

import (
	"encoding/json"
	"testing"
)

func TestMoneyMarshalJSON(t *testing.T) {
	m := New(MustGetAsset("XAF"), 1500)
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"asset":"XAF","atomic":"1500"}`
	if string(data) != want {
		t.Errorf("Marshal = %s, want %s", data, want)
	}
}

func TestMoneyUnmarshalJSON(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`{"asset":"USD","atomic":"1050"}`), &m); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Asset.Code != "USD" || m.Atomic != 1050 {
		t.Errorf("got %+v, want USD/1050", m)
	}
}

func TestMoneyUnmarshalJSONUnknownAsset(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`{"asset":"ZZZ","atomic":"100"}`), &m); err == nil {
		t.Fatal("expected error for unknown asset")
	}
}

func TestMoneyUnmarshalJSONMissingFields(t *testing.T) {
	var m Money
	if err := json.Unmarshal([]byte(`{"asset":"USD"}`), &m); err == nil {
		t.Fatal("expected error for missing atomic field")
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	original := New(MustGetAsset("KES"), 42)
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Money
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !decoded.Equal(original) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, original)
	}
}

package money

import "testing"

func TestFromMajorHalfUpRounding(t *testing.T) {
	cases := []struct {
		asset Asset
		major string
		want  int64
	}{
		{MustGetAsset("USD"), "10.50", 1050},
		{MustGetAsset("USD"), "10.505", 1051}, // half-up rounds the extra digit
		{MustGetAsset("USD"), "10.504", 1050},
		{MustGetAsset("XAF"), "500", 500},
		{MustGetAsset("XAF"), "500.6", 501}, // zero-decimal currency still rounds
	}

	for _, tc := range cases {
		got, err := FromMajor(tc.asset, tc.major)
		if err != nil {
			t.Fatalf("FromMajor(%s, %q) returned error: %v", tc.asset.Code, tc.major, err)
		}
		if got.Atomic != tc.want {
			t.Errorf("FromMajor(%s, %q) = %d, want %d", tc.asset.Code, tc.major, got.Atomic, tc.want)
		}
	}
}

func TestToMajor(t *testing.T) {
	if got := New(MustGetAsset("USD"), 1050).ToMajor(); got != "10.50" {
		t.Errorf("ToMajor() = %q, want 10.50", got)
	}
	if got := New(MustGetAsset("XAF"), 500).ToMajor(); got != "500" {
		t.Errorf("ToMajor() = %q, want 500", got)
	}
}

func TestAddRequiresSameAsset(t *testing.T) {
	usd := New(MustGetAsset("USD"), 100)
	xaf := New(MustGetAsset("XAF"), 100)
	if _, err := usd.Add(xaf); err == nil {
		t.Fatal("expected asset mismatch error")
	}
}

func TestAddOverflow(t *testing.T) {
	asset := MustGetAsset("XAF")
	a := New(asset, 1<<62)
	b := New(asset, 1<<62)
	if _, err := a.Add(b); err != ErrOverflow {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestMulBasisPoints(t *testing.T) {
	asset := MustGetAsset("XAF")
	amount := New(asset, 10000)
	got, err := amount.MulBasisPoints(250) // 2.5%
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Atomic != 250 {
		t.Errorf("MulBasisPoints(250) on 10000 = %d, want 250", got.Atomic)
	}
}

func TestDivHalfUp(t *testing.T) {
	asset := MustGetAsset("XAF")
	amount := New(asset, 100)
	got, err := amount.Div(3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Atomic != 33 {
		t.Errorf("Div(3) on 100 = %d, want 33", got.Atomic)
	}
}

func TestComparisons(t *testing.T) {
	asset := MustGetAsset("USD")
	a := New(asset, 100)
	b := New(asset, 200)

	if !a.LessThan(b) {
		t.Error("expected a < b")
	}
	if !b.GreaterThan(a) {
		t.Error("expected b > a")
	}
	if a.Equal(b) {
		t.Error("expected a != b")
	}
	if !a.Negate().IsNegative() {
		t.Error("expected Negate() to produce a negative value")
	}
	if !a.Negate().Abs().Equal(a) {
		t.Error("expected Abs() to undo Negate()")
	}
}

func TestZeroAndIsZero(t *testing.T) {
	asset := MustGetAsset("XAF")
	if !Zero(asset).IsZero() {
		t.Error("Zero() should be IsZero()")
	}
}

package skinledger

import "testing"

func TestPercentChange(t *testing.T) {
	testCases := []struct {
		old, new float64
		want     Percent
	}{
		{1, 1.5, 0.5},
		{2, 1, -0.5},
		{4, 4, 0},
		{0, 5, Percent((5.0 - 0.01) / 0.01)},
		{0, 0, 0},
		{0, 0.01, 0},
	}
	for _, tc := range testCases {
		got := PercentChange(M(tc.old, "GBP"), M(tc.new, "GBP"))
		if !got.Equal(tc.want) {
			t.Errorf("PercentChange(%v, %v) = %v, want %v", tc.old, tc.new, float64(got), float64(tc.want))
		}
	}
}

func TestExpectedProfit(t *testing.T) {
	sold := M(7.00, "GBP")
	rows := []Row{
		{CurrentValue: M(5, "GBP"), PurchasePrice: M(2, "GBP")},
		{CurrentValue: M(10, "GBP"), PurchasePrice: M(3, "GBP"), Sold: &sold},
	}
	got := ExpectedProfit(rows)
	if want := M(2.55, "GBP"); !got.Equal(want) {
		t.Errorf("ExpectedProfit() = %s, want %s", got.Decimal(), want.Decimal())
	}
}

func TestExpectedProfit_Empty(t *testing.T) {
	if got := ExpectedProfit(nil); !got.IsZero() {
		t.Errorf("ExpectedProfit(nil) = %s, want 0", got.Decimal())
	}
}

func TestExpectedProfit_Loss(t *testing.T) {
	rows := []Row{
		{CurrentValue: M(1, "GBP"), PurchasePrice: M(3, "GBP")},
		{CurrentValue: M(0.03, "GBP"), PurchasePrice: M(0.03, "GBP")},
	}
	if got, want := ExpectedProfit(rows), M(-1.7, "GBP"); !got.Equal(want) {
		t.Errorf("ExpectedProfit() = %s, want %s", got.Decimal(), want.Decimal())
	}
}

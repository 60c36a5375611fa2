package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestTotals(t *testing.T) {
	p := DefaultPricing()
	got := p.Totals([]Line{
		{UnitPrice: d("12.50"), Quantity: 2},
		{UnitPrice: d("3.99"), Quantity: 1},
	})
	if !got.Subtotal.Equal(d("28.99")) {
		t.Fatalf("subtotal = %s", got.Subtotal)
	}
	if !got.Tax.Equal(d("2.32")) {
		t.Fatalf("tax = %s, want 2.32", got.Tax)
	}
	if !got.Total.Equal(d("31.31")) {
		t.Fatalf("total = %s, want 31.31", got.Total)
	}
	if got.ItemCount != 3 {
		t.Fatalf("item count = %d, want 3", got.ItemCount)
	}
}

func TestTotalsEmpty(t *testing.T) {
	got := DefaultPricing().Totals(nil)
	if !got.Total.IsZero() || got.ItemCount != 0 {
		t.Fatalf("empty totals = %+v", got)
	}
}

func TestSplitMatches(t *testing.T) {
	p := DefaultPricing()
	total := d("100.00")
	cases := []struct {
		splits []decimal.Decimal
		want   bool
	}{
		{[]decimal.Decimal{d("50"), d("50")}, true},
		{[]decimal.Decimal{d("33.33"), d("33.33"), d("33.33")}, true},
		{[]decimal.Decimal{d("50"), d("49.98")}, false},
		{[]decimal.Decimal{d("60"), d("40.01")}, true},
		{[]decimal.Decimal{d("60"), d("40.02")}, false},
	}
	for _, tc := range cases {
		if got := p.SplitMatches(tc.splits, total); got != tc.want {
			t.Fatalf("SplitMatches(%v) = %v, want %v", tc.splits, got, tc.want)
		}
	}
}

func TestMinorUnits(t *testing.T) {
	if got := ToMinorUnits(d("31.31")); got != 3131 {
		t.Fatalf("ToMinorUnits = %d", got)
	}
	if got := ToMinorUnits(d("0.005")); got != 1 {
		t.Fatalf("ToMinorUnits rounding = %d", got)
	}
	if got := FromMinorUnits(1999); !got.Equal(d("19.99")) {
		t.Fatalf("FromMinorUnits = %s", got)
	}
}

func TestTopics(t *testing.T) {
	if got := GeneralTopic("r1"); got != "restaurant:r1" {
		t.Fatalf("general = %s", got)
	}
	if got := KitchenTopic("r1"); got != "restaurant:r1:kitchen" {
		t.Fatalf("kitchen = %s", got)
	}
	if got := FloorTopic("r1"); got != "restaurant:r1:floor" {
		t.Fatalf("floor = %s", got)
	}
}

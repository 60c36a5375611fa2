package domain

import "github.com/shopspring/decimal"

// Pricing holds the settlement parameters shared by totals and split bills.
type Pricing struct {
	TaxRate        decimal.Decimal
	SplitTolerance decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		TaxRate:        decimal.RequireFromString("0.08"),
		SplitTolerance: decimal.RequireFromString("0.01"),
	}
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

type Totals struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}

// Totals prices lines at their current unit price. Tax is rounded to the
// cent; subtotal is exact.
func (p Pricing) Totals(lines []Line) Totals {
	subtotal := decimal.Zero
	count := 0
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
		count += l.Quantity
	}
	tax := subtotal.Mul(p.TaxRate).Round(2)
	return Totals{
		Subtotal:  subtotal,
		Tax:       tax,
		Total:     subtotal.Add(tax),
		ItemCount: count,
	}
}

// SplitMatches reports whether the split amounts add up to total within
// the configured tolerance.
func (p Pricing) SplitMatches(splits []decimal.Decimal, total decimal.Decimal) bool {
	sum := decimal.Sum(decimal.Zero, splits...)
	return sum.Sub(total).Abs().LessThanOrEqual(p.SplitTolerance)
}

// ToMinorUnits converts an amount to integer cents for the card processor.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

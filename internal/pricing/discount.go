// Package pricing keeps discounted prices and discount percentages of the
// pricing forms consistent. All currencies are treated as two-decimal
// amounts, rounded half up.
package pricing

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds half away from zero to two places, which is half up for
// the non-negative amounts the forms hold.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FinalPrice derives the discounted price from a base price and a
// discount percent. A non-positive base leaves current untouched.
func FinalPrice(base, discountPercent, current decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return current
	}
	return Round2(base.Sub(base.Mul(discountPercent).Div(hundred)))
}

// DiscountPercent derives the discount percent from a base and a final
// price. It recomputes only when 0 < final < base; otherwise current is
// returned unchanged.
func DiscountPercent(base, final, current decimal.Decimal) decimal.Decimal {
	if !final.IsPositive() || !final.LessThan(base) {
		return current
	}
	return Round2(base.Sub(final).Div(base).Mul(hundred))
}

// Field names a form input that drives a recomputation.
type Field string

const (
	FieldBasePrice       Field = "actual_price"
	FieldDiscountPercent Field = "discount_percent"
	FieldFinalPrice      Field = "discounted_price"
)

// Form is the price triple shared by the research paper, visa and
// counselling pricing forms.
type Form struct {
	BasePrice       decimal.Decimal `json:"actual_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	FinalPrice      decimal.Decimal `json:"discounted_price"`
}

// ApplyForward recomputes FinalPrice when the base price or discount
// percent changed. FinalPrice is read-only in these forms.
func ApplyForward(f Form, changed Field) Form {
	if changed == FieldBasePrice || changed == FieldDiscountPercent {
		f.FinalPrice = FinalPrice(f.BasePrice, f.DiscountPercent, f.FinalPrice)
	}
	return f
}

// ApplyInverse recomputes DiscountPercent when the base or final price changed.
func ApplyInverse(f Form, changed Field) Form {
	if changed == FieldBasePrice || changed == FieldFinalPrice {
		f.DiscountPercent = DiscountPercent(f.BasePrice, f.FinalPrice, f.DiscountPercent)
	}
	return f
}

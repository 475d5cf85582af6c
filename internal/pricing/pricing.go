package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/ashimneupane/bazarly-backend/pkg/enums"
)

// Source names which discount won when computing an effective price.
type Source string

const (
	SourceNone Source = "NONE"
	SourceOwn  Source = "OWN"
	SourceDeal Source = "DEAL"
)

var hundred = decimal.NewFromInt(100)

// Input carries everything needed to price a sellable item. DealPercentage
// must only be set when the linked deal is enabled and within its window;
// the caller owns that check.
type Input struct {
	BasePrice      decimal.Decimal
	Discount       *decimal.Decimal
	DiscountType   *enums.DiscountType
	DealPercentage *decimal.Decimal
}

// Result is the computed price breakdown.
type Result struct {
	BasePrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	EffectivePrice decimal.Decimal
	Applied        Source
}

// Effective computes the display/charge price for an item. The item's own
// discount and the deal discount never stack: the larger rupee reduction
// wins. The result is clamped at zero and rounded to 2 decimal places.
func Effective(in Input) Result {
	base := in.BasePrice.Round(2)

	ownAmount := ownDiscountAmount(base, in.Discount, in.DiscountType)
	dealAmount := dealDiscountAmount(base, in.DealPercentage)

	applied := SourceNone
	amount := decimal.Zero
	switch {
	case ownAmount.GreaterThan(dealAmount) && ownAmount.IsPositive():
		applied = SourceOwn
		amount = ownAmount
	case dealAmount.IsPositive():
		applied = SourceDeal
		amount = dealAmount
	}

	effective := base.Sub(amount)
	if effective.IsNegative() {
		effective = decimal.Zero
	}

	return Result{
		BasePrice:      base,
		DiscountAmount: amount.Round(2),
		EffectivePrice: effective.Round(2),
		Applied:        applied,
	}
}

func ownDiscountAmount(base decimal.Decimal, discount *decimal.Decimal, discountType *enums.DiscountType) decimal.Decimal {
	if discount == nil || discountType == nil || !discount.IsPositive() {
		return decimal.Zero
	}
	switch *discountType {
	case enums.DiscountTypePercentage:
		return base.Mul(*discount).Div(hundred).Round(2)
	case enums.DiscountTypeFlat:
		return discount.Round(2)
	default:
		return decimal.Zero
	}
}

func dealDiscountAmount(base decimal.Decimal, percentage *decimal.Decimal) decimal.Decimal {
	if percentage == nil || !percentage.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(*percentage).Div(hundred).Round(2)
}

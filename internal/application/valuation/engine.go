// Package valuation computes the authoritative estimated value of a donated item.
package valuation

import (
	"handover-backend/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	// MinorValueFloor: items bought for less than this are valued at zero.
	MinorValueFloor = decimal.NewFromInt(20)

	retainedUpToOneYear  = decimal.RequireFromString("0.60")
	retainedUpToTwoYears = decimal.RequireFromString("0.50")
	retainedOlder        = decimal.RequireFromString("0.34")
	usedMultiplier       = decimal.RequireFromString("0.50")
)

// Appraisal is a manual valuation. It is authoritative only when a supporting
// document was attached.
type Appraisal struct {
	Amount     decimal.Decimal
	Documented bool
}

// Input holds the valuation inputs. Callers validate price and year first;
// the engine never coerces bad values.
type Input struct {
	Category      domain.Category
	Condition     domain.Condition
	OriginalPrice decimal.Decimal
	PurchaseYear  int
	CurrentYear   int
	Appraisal     *Appraisal
}

// Estimate applies the depreciation formula. It is pure and deterministic.
// Scrap vehicles are not priced here; use Valuate for policy-aware results.
func Estimate(in Input) decimal.Decimal {
	if in.Appraisal != nil && in.Appraisal.Documented {
		return roundCents(in.Appraisal.Amount)
	}
	price := in.OriginalPrice
	if price.LessThan(MinorValueFloor) {
		return decimal.Zero
	}
	if in.Condition == domain.ConditionNew {
		return roundCents(price)
	}

	var base decimal.Decimal
	switch age := in.CurrentYear - in.PurchaseYear; {
	case age <= 1:
		base = price.Mul(retainedUpToOneYear)
	case age <= 2:
		base = price.Mul(retainedUpToTwoYears)
	default:
		base = price.Mul(retainedOlder)
	}
	if in.Condition == domain.ConditionUsed {
		base = base.Mul(usedMultiplier)
	}
	return roundCents(base)
}

// Result is what a listing stores after valuation.
type Result struct {
	EstimatedValue decimal.Decimal
	IsValuated     bool
	ValuationPrice decimal.NullDecimal
}

// Valuate resolves the category policy and produces the stored valuation
// fields. A documented appraisal wins over every other rule.
func Valuate(in Input) Result {
	if in.Appraisal != nil && in.Appraisal.Documented {
		amount := roundCents(in.Appraisal.Amount)
		return Result{
			EstimatedValue: amount,
			IsValuated:     true,
			ValuationPrice: decimal.NewNullDecimal(amount),
		}
	}
	if fixed, ok := PolicyFor(in.Category).FixedValue(in.Condition); ok {
		return Result{EstimatedValue: fixed}
	}
	return Result{EstimatedValue: Estimate(in)}
}

// roundCents rounds half-up to two decimal places. Values are never negative
// here, so decimal's half-away-from-zero rounding is half-up.
func roundCents(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

package valuation

import (
	"handover-backend/internal/domain"

	"github.com/shopspring/decimal"
)

// Policy holds the category-specific exceptions to the generic listing rules.
// Adding a category means adding a row here, not touching the lifecycle code.
type Policy struct {
	Category domain.Category
	// AllowScrap permits condition=scrap; ScrapValue replaces the formula for it.
	AllowScrap bool
	ScrapValue decimal.Decimal
	// MinAgeYears is the minimum age at creation (0 = none).
	MinAgeYears int
	// ValueMayExceedPrice lifts the estimatedValue <= originalPrice ceiling.
	ValueMayExceedPrice bool
}

// ScrapVehicleValue is the flat value of a scrapped vehicle.
var ScrapVehicleValue = decimal.NewFromInt(150)

var policies = map[domain.Category]Policy{
	domain.CategoryFurniture: {Category: domain.CategoryFurniture},
	domain.CategoryBooks:     {Category: domain.CategoryBooks},
	domain.CategoryVehicles: {
		Category:   domain.CategoryVehicles,
		AllowScrap: true,
		ScrapValue: ScrapVehicleValue,
	},
	domain.CategoryAntique: {
		Category:            domain.CategoryAntique,
		MinAgeYears:         20,
		ValueMayExceedPrice: true,
	},
}

// PolicyFor returns the policy of c; unknown categories get the generic rules.
func PolicyFor(c domain.Category) Policy {
	if p, ok := policies[c]; ok {
		return p
	}
	return Policy{Category: c}
}

// AllowsCondition reports whether cond may be used in this category.
func (p Policy) AllowsCondition(cond domain.Condition) bool {
	if cond == domain.ConditionScrap {
		return p.AllowScrap
	}
	return cond.Valid()
}

// FixedValue returns the override value for cond, if the policy has one.
func (p Policy) FixedValue(cond domain.Condition) (decimal.Decimal, bool) {
	if cond == domain.ConditionScrap && p.AllowScrap {
		return p.ScrapValue, true
	}
	return decimal.Decimal{}, false
}

// CeilingApplies reports whether estimatedValue must stay <= originalPrice.
func (p Policy) CeilingApplies(cond domain.Condition) bool {
	if p.ValueMayExceedPrice {
		return false
	}
	if _, fixed := p.FixedValue(cond); fixed {
		return false
	}
	return true
}

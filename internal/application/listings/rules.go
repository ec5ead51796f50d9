package listings

import (
	"fmt"
	"strings"
	"time"

	"handover-backend/internal/application/valuation"
	"handover-backend/internal/domain"
	"handover-backend/internal/pkg/apperror"
	"handover-backend/internal/pkg/validation"

	"github.com/shopspring/decimal"
)

const (
	MinImages = 4
	// HighValueThreshold: items at or above this original price need a documented valuation.
	HighValueThreshold = 1000
	// DefaultMinDeadlineDays is the minimum lead time for a collection deadline.
	DefaultMinDeadlineDays = 6
	minPurchaseYear        = 1800
)

var highValueThreshold = decimal.NewFromInt(HighValueThreshold)

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return apperror.Validation("Title is required")
	}
	return nil
}

func validateCategory(c domain.Category) error {
	if !c.Valid() {
		return apperror.Validation("Invalid category")
	}
	return nil
}

func validateCondition(c domain.Category, cond domain.Condition) error {
	if !cond.Valid() {
		return apperror.Validation("Invalid condition")
	}
	if !valuation.PolicyFor(c).AllowsCondition(cond) {
		return apperror.Validation("Condition scrap is only allowed for Vehicles")
	}
	return nil
}

func validatePrice(p decimal.Decimal) error {
	if !p.IsPositive() {
		return apperror.Validation("Original price must be a positive amount")
	}
	if !p.Equal(p.Round(2)) {
		return apperror.Validation("Original price must have at most two decimal places")
	}
	return nil
}

func validatePurchaseYear(year int, now time.Time) error {
	if year < minPurchaseYear {
		return apperror.Validation("Invalid purchase year")
	}
	if year > now.UTC().Year() {
		return apperror.Validation("Purchase year must not be in the future")
	}
	return nil
}

func validateLocation(city, postalCode string) error {
	if strings.TrimSpace(city) == "" {
		return apperror.Validation("City is required")
	}
	if !validation.IsValidPostalCode(postalCode) {
		return apperror.Validation("Invalid postal code")
	}
	return nil
}

func validateImages(urls []string) error {
	if len(urls) < MinImages {
		return apperror.Validation("At least 4 images are required")
	}
	for _, u := range urls {
		if !validation.IsHTTPURL(u) {
			return apperror.Validation("Invalid image URL")
		}
	}
	return nil
}

func validateDocURLs(urls []string) error {
	for _, u := range urls {
		if !validation.IsHTTPURL(u) {
			return apperror.Validation("Invalid valuation document URL")
		}
	}
	return nil
}

// validateDeadline requires the deadline date to be at least minDays after
// today, both normalized to midnight UTC.
func validateDeadline(deadline, now time.Time, minDays int) error {
	if deadline.IsZero() {
		return apperror.Validation("Collection deadline is required")
	}
	earliest := startOfDay(now).AddDate(0, 0, minDays)
	if startOfDay(deadline).Before(earliest) {
		return apperror.Validation(fmt.Sprintf("Collection deadline must be at least %d days from today", minDays))
	}
	return nil
}

func validateAntiqueAge(c domain.Category, purchaseYear int, now time.Time) error {
	minAge := valuation.PolicyFor(c).MinAgeYears
	if minAge > 0 && now.UTC().Year()-purchaseYear < minAge {
		return apperror.Validation("Antique items must be at least 20 years old")
	}
	return nil
}

func validateAppraisal(amount *decimal.Decimal, docURLs []string) error {
	if amount == nil {
		return nil
	}
	if !amount.IsPositive() {
		return apperror.Validation("Valuation price must be a positive amount")
	}
	if len(docURLs) == 0 {
		return apperror.Validation("A valuation document is required when a valuation price is provided")
	}
	return nil
}

func validateHighValue(l *domain.Listing) error {
	if l.OriginalPrice.LessThan(highValueThreshold) {
		return nil
	}
	if !l.IsValuated || len(l.ValuationDocURLs) == 0 {
		return apperror.Validation("Items worth 1000 or more require a professional valuation with a supporting document")
	}
	return nil
}

func validateCeiling(l *domain.Listing) error {
	if !valuation.PolicyFor(l.Category).CeilingApplies(l.Condition) {
		return nil
	}
	if l.EstimatedValue.GreaterThan(l.OriginalPrice) {
		return apperror.Validation("Estimated value cannot exceed the original price")
	}
	return nil
}

// revalue recomputes the stored valuation fields of l from its current inputs.
func revalue(l *domain.Listing, appraisal *decimal.Decimal, now time.Time) {
	in := valuation.Input{
		Category:      l.Category,
		Condition:     l.Condition,
		OriginalPrice: l.OriginalPrice,
		PurchaseYear:  l.PurchaseYear,
		CurrentYear:   now.UTC().Year(),
	}
	if appraisal != nil {
		in.Appraisal = &valuation.Appraisal{Amount: *appraisal, Documented: len(l.ValuationDocURLs) > 0}
	}
	res := valuation.Valuate(in)
	l.EstimatedValue = res.EstimatedValue
	l.IsValuated = res.IsValuated
	l.ValuationPrice = res.ValuationPrice
}

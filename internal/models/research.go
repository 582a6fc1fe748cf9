package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ResearchPaperConfig prices a research paper by currency and co-author count.
type ResearchPaperConfig struct {
	ConfigID ID `json:"config_id"`
	ResearchPaperConfigInput
}

type ResearchPaperConfigInput struct {
	Currency        string          `json:"currency"`
	CoAuthors       FlexString      `json:"co_authors"`
	ActualPrice     decimal.Decimal `json:"actual_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DurationWeeks   string          `json:"duration_weeks"`
}

func (in ResearchPaperConfigInput) Validate() error {
	if strings.TrimSpace(in.Currency) == "" {
		return invalid("currency", "currency is required")
	}
	if in.CoAuthors == "" {
		return invalid("co_authors", "co-author count is required")
	}
	return validatePrices(in.ActualPrice, in.DiscountPercent)
}

func validatePrices(actual, discountPercent decimal.Decimal) error {
	if actual.IsNegative() {
		return invalid("actual_price", "must not be negative")
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(decimal.NewFromInt(100)) {
		return invalid("discount_percent", "must be between 0 and 100")
	}
	return nil
}

package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// VisaConfig prices a visa application by currency, dependents and mock interviews.
type VisaConfig struct {
	ConfigID ID `json:"config_id"`
	VisaConfigInput
}

type VisaConfigInput struct {
	Currency        string          `json:"currency"`
	Dependents      FlexString      `json:"dependents"`
	Mocks           FlexString      `json:"mocks"`
	ActualPrice     decimal.Decimal `json:"actual_price"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DurationMonths  string          `json:"duration_months"`
}

func (in VisaConfigInput) Validate() error {
	if strings.TrimSpace(in.Currency) == "" {
		return invalid("currency", "currency is required")
	}
	if in.DiscountedPrice.IsNegative() {
		return invalid("discounted_price", "must not be negative")
	}
	return validatePrices(in.ActualPrice, in.DiscountPercent)
}

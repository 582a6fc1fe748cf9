package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

type ServiceType struct {
	ServiceTypeID ID `json:"service_type_id"`
	ServiceTypeInput
}

type ServiceTypeInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Duration     string `json:"duration"`
	IsActive     bool   `json:"is_active"`
	DisplayOrder int    `json:"display_order"`
}

func (in ServiceTypeInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "name is required")
	}
	return nil
}

type Counsellor struct {
	CounselorID ID `json:"counselor_id"`
	CounsellorInput
}

type CounsellorInput struct {
	Name     string `json:"name"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Bio      string `json:"bio"`
	IsActive bool   `json:"is_active"`
}

func (in CounsellorInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "name is required")
	}
	if strings.TrimSpace(in.Email) == "" {
		return invalid("email", "email is required")
	}
	return nil
}

// CounsellingPricing prices one service type with one counsellor in one currency.
type CounsellingPricing struct {
	ID          ID           `json:"id"`
	ServiceType *ServiceType `json:"service_type,omitempty"`
	Counselor   *Counsellor  `json:"counselor,omitempty"`
	CounsellingPricingInput
}

type CounsellingPricingInput struct {
	ServiceTypeID   int64           `json:"service_type_id"`
	CounselorID     int64           `json:"counselor_id"`
	Currency        string          `json:"currency"`
	ActualPrice     decimal.Decimal `json:"actual_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountedPrice decimal.Decimal `json:"discounted_price"`
	IsActive        bool            `json:"is_active"`
}

func (in CounsellingPricingInput) Validate() error {
	if in.ServiceTypeID <= 0 {
		return invalid("service_type_id", "service type is required")
	}
	if in.CounselorID <= 0 {
		return invalid("counselor_id", "counsellor is required")
	}
	if strings.TrimSpace(in.Currency) == "" {
		return invalid("currency", "currency is required")
	}
	return validatePrices(in.ActualPrice, in.DiscountPercent)
}

package models

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase workflow statuses. Payment status is tracked separately.
const (
	StatusPending    = "pending"
	StatusInitiated  = "initiated"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
	StatusFailed     = "failed"
)

var purchaseStatuses = map[string]bool{
	StatusPending:    true,
	StatusInitiated:  true,
	StatusInProgress: true,
	StatusCompleted:  true,
	StatusCancelled:  true,
	StatusFailed:     true,
}

// Purchase is a student's order for a research paper, visa application
// or counselling service. Fields not used by a given service stay empty.
type Purchase struct {
	PurchaseID    ID              `json:"purchase_id,omitempty"`
	ID            ID              `json:"id,omitempty"`
	OrderID       string          `json:"order_id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Email         string          `json:"email,omitempty"`
	Phone         string          `json:"phone,omitempty"`
	Country       string          `json:"country,omitempty"`
	Currency      string          `json:"currency,omitempty"`
	CoAuthors     FlexString      `json:"co_authors,omitempty"`
	ResearchGroup string          `json:"research_group,omitempty"`
	Dependents    FlexString      `json:"dependents,omitempty"`
	Mocks         FlexString      `json:"mocks,omitempty"`
	VisaGuarantee bool            `json:"visa_guarantee,omitempty"`
	Duration      string          `json:"duration,omitempty"`
	ServiceType   json.RawMessage `json:"service_type,omitempty"`
	Counselor     json.RawMessage `json:"counselor,omitempty"`
	User          *User           `json:"user,omitempty"`
	AmountPaid    decimal.Decimal `json:"amount_paid"`
	FinalAmount   decimal.Decimal `json:"final_amount"`
	PaymentStatus string          `json:"payment_status,omitempty"`
	Status        string          `json:"status,omitempty"`
	CaseStatus    string          `json:"case_status,omitempty"`
	AdminNotes    string          `json:"admin_notes,omitempty"`
	MeetingLink   string          `json:"meeting_link,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Key returns whichever identifier upstream populated.
func (p Purchase) Key() ID {
	if p.PurchaseID != "" {
		return p.PurchaseID
	}
	return p.ID
}

type PurchaseStats struct {
	TotalPurchases    int             `json:"totalPurchases"`
	CompletedPayments int             `json:"completedPayments"`
	PendingPayments   int             `json:"pendingPayments"`
	TotalRevenue      decimal.Decimal `json:"totalRevenue"`
}

// ComputePurchaseStats derives the stats block for services whose
// upstream has no stats endpoint.
func ComputePurchaseStats(purchases []Purchase) PurchaseStats {
	stats := PurchaseStats{TotalPurchases: len(purchases), TotalRevenue: decimal.Zero}
	for _, p := range purchases {
		switch p.PaymentStatus {
		case StatusCompleted:
			stats.CompletedPayments++
			amount := p.AmountPaid
			if amount.IsZero() {
				amount = p.FinalAmount
			}
			stats.TotalRevenue = stats.TotalRevenue.Add(amount)
		case StatusPending, StatusInitiated:
			stats.PendingPayments++
		}
	}
	return stats
}

// PurchaseUpdate is the admin edit of a purchase: status, case status,
// notes and, for counselling, the meeting link.
type PurchaseUpdate struct {
	Status      string `json:"status,omitempty"`
	CaseStatus  string `json:"case_status,omitempty"`
	AdminNotes  string `json:"admin_notes,omitempty"`
	MeetingLink string `json:"meeting_link,omitempty"`
}

func (u PurchaseUpdate) Validate() error {
	if u.Status == "" && u.CaseStatus == "" && u.AdminNotes == "" && u.MeetingLink == "" {
		return invalid("status", "nothing to update")
	}
	if u.Status != "" && !purchaseStatuses[u.Status] {
		return invalid("status", "unknown status "+u.Status)
	}
	if u.MeetingLink != "" && !strings.HasPrefix(u.MeetingLink, "http") {
		return invalid("meeting_link", "must be an http(s) link")
	}
	return nil
}

package models

import (
	"strings"
	"time"
)

const (
	ServiceResearchPaper   = "research_paper"
	ServiceVisaApplication = "visa_application"
)

// Terms is one version of a terms-and-conditions document.
type Terms struct {
	TermsID     ID         `json:"terms_id"`
	ServiceType string     `json:"service_type"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Version     FlexString `json:"version,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
}

type TermsInput struct {
	ServiceType string `json:"service_type,omitempty"`
	Title       string `json:"title"`
	Content     string `json:"content"`
}

// Validate checks a create body; requireService is false for edits,
// which may only change title and content.
func (in TermsInput) Validate(requireService bool) error {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Content) == "" {
		return invalid("title", "Title and content are required")
	}
	if requireService && in.ServiceType != ServiceResearchPaper && in.ServiceType != ServiceVisaApplication {
		return invalid("service_type", "unknown service type "+in.ServiceType)
	}
	return nil
}

// Agreement records a user's acceptance of a specific terms version.
type Agreement struct {
	AgreementID ID        `json:"agreement_id"`
	ServiceType string    `json:"service_type"`
	SignedName  string    `json:"signed_name"`
	IPAddress   string    `json:"ip_address,omitempty"`
	AgreedAt    time.Time `json:"agreed_at"`
	User        *User     `json:"user,omitempty"`
	Terms       *Terms    `json:"terms,omitempty"`
}

type AgreementStats struct {
	Total           int `json:"total"`
	ResearchPaper   int `json:"research_paper"`
	VisaApplication int `json:"visa_application"`
}

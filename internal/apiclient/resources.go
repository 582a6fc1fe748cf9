package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"admin-console/internal/models"
)

const (
	usersPath           = "/admin/users"
	bookingsPath        = "/admin/bookings"
	timeslotsPath       = "/admin/timeslots"
	researchPath        = "/admin/research-papers"
	visaPath            = "/admin/visa-applications"
	counsellingPath     = "/counselling/admin"
	termsPath           = "/admin/terms"
	agreementsPath      = "/admin/agreements"
	configsSuffix       = "/configs"
	purchasesSuffix     = "/purchases"
	purchaseStatsSuffix = "/purchases/stats"
)

func (a *Authorized) Users(ctx context.Context) ([]models.User, error) {
	return get[[]models.User](ctx, a, usersPath)
}

func (a *Authorized) Bookings(ctx context.Context) ([]models.Booking, error) {
	return get[[]models.Booking](ctx, a, bookingsPath)
}

// TimeSlots lists slots, optionally only those in timezone. "all" and ""
// mean every timezone.
func (a *Authorized) TimeSlots(ctx context.Context, timezone string) ([]models.TimeSlot, error) {
	path := timeslotsPath
	if timezone != "" && timezone != "all" {
		path += "?" + url.Values{"timezone": {timezone}}.Encode()
	}
	return get[[]models.TimeSlot](ctx, a, path)
}

func (a *Authorized) SaveTimeSlot(ctx context.Context, op Save[models.TimeSlotInput]) (*models.TimeSlot, error) {
	return save[models.TimeSlotInput, models.TimeSlot](ctx, a, timeslotsPath, op)
}

// ToggleTimeSlot flips a slot's active flag and returns upstream's message.
func (a *Authorized) ToggleTimeSlot(ctx context.Context, id models.ID) (string, error) {
	return a.call(ctx, http.MethodPatch, itemPath(timeslotsPath, id)+"/toggle", struct{}{}, nil)
}

func (a *Authorized) DeleteTimeSlot(ctx context.Context, id models.ID) error {
	return a.remove(ctx, timeslotsPath, id)
}

// Research papers.

func (a *Authorized) ResearchConfigs(ctx context.Context) ([]models.ResearchPaperConfig, error) {
	return get[[]models.ResearchPaperConfig](ctx, a, researchPath+configsSuffix)
}

func (a *Authorized) SaveResearchConfig(ctx context.Context, op Save[models.ResearchPaperConfigInput]) (*models.ResearchPaperConfig, error) {
	return save[models.ResearchPaperConfigInput, models.ResearchPaperConfig](ctx, a, researchPath+configsSuffix, op)
}

func (a *Authorized) DeleteResearchConfig(ctx context.Context, id models.ID) error {
	return a.remove(ctx, researchPath+configsSuffix, id)
}

func (a *Authorized) ResearchPurchases(ctx context.Context) ([]models.Purchase, error) {
	return get[[]models.Purchase](ctx, a, researchPath+purchasesSuffix)
}

func (a *Authorized) ResearchPurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	return get[models.PurchaseStats](ctx, a, researchPath+purchaseStatsSuffix)
}

func (a *Authorized) UpdateResearchPurchase(ctx context.Context, id models.ID, in models.PurchaseUpdate) (*models.Purchase, error) {
	return send[models.Purchase](ctx, a, http.MethodPut, itemPath(researchPath+purchasesSuffix, id)+"/status", in)
}

// Visa applications.

func (a *Authorized) VisaConfigs(ctx context.Context) ([]models.VisaConfig, error) {
	return get[[]models.VisaConfig](ctx, a, visaPath+configsSuffix)
}

func (a *Authorized) SaveVisaConfig(ctx context.Context, op Save[models.VisaConfigInput]) (*models.VisaConfig, error) {
	return save[models.VisaConfigInput, models.VisaConfig](ctx, a, visaPath+configsSuffix, op)
}

func (a *Authorized) DeleteVisaConfig(ctx context.Context, id models.ID) error {
	return a.remove(ctx, visaPath+configsSuffix, id)
}

func (a *Authorized) VisaPurchases(ctx context.Context) ([]models.Purchase, error) {
	return get[[]models.Purchase](ctx, a, visaPath+purchasesSuffix)
}

func (a *Authorized) VisaPurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	return get[models.PurchaseStats](ctx, a, visaPath+purchaseStatsSuffix)
}

func (a *Authorized) UpdateVisaPurchase(ctx context.Context, id models.ID, in models.PurchaseUpdate) (*models.Purchase, error) {
	return send[models.Purchase](ctx, a, http.MethodPut, itemPath(visaPath+purchasesSuffix, id), in)
}

// Counselling.

func (a *Authorized) ServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	return get[[]models.ServiceType](ctx, a, counsellingPath+"/service-types")
}

func (a *Authorized) SaveServiceType(ctx context.Context, op Save[models.ServiceTypeInput]) (*models.ServiceType, error) {
	return save[models.ServiceTypeInput, models.ServiceType](ctx, a, counsellingPath+"/service-types", op)
}

func (a *Authorized) DeleteServiceType(ctx context.Context, id models.ID) error {
	return a.remove(ctx, counsellingPath+"/service-types", id)
}

func (a *Authorized) Counsellors(ctx context.Context) ([]models.Counsellor, error) {
	return get[[]models.Counsellor](ctx, a, counsellingPath+"/counselors")
}

func (a *Authorized) SaveCounsellor(ctx context.Context, op Save[models.CounsellorInput]) (*models.Counsellor, error) {
	return save[models.CounsellorInput, models.Counsellor](ctx, a, counsellingPath+"/counselors", op)
}

func (a *Authorized) DeleteCounsellor(ctx context.Context, id models.ID) error {
	return a.remove(ctx, counsellingPath+"/counselors", id)
}

func (a *Authorized) CounsellingPricing(ctx context.Context) ([]models.CounsellingPricing, error) {
	return get[[]models.CounsellingPricing](ctx, a, counsellingPath+"/pricing")
}

func (a *Authorized) SaveCounsellingPricing(ctx context.Context, op Save[models.CounsellingPricingInput]) (*models.CounsellingPricing, error) {
	return save[models.CounsellingPricingInput, models.CounsellingPricing](ctx, a, counsellingPath+"/pricing", op)
}

func (a *Authorized) DeleteCounsellingPricing(ctx context.Context, id models.ID) error {
	return a.remove(ctx, counsellingPath+"/pricing", id)
}

func (a *Authorized) CounsellingPurchases(ctx context.Context) ([]models.Purchase, error) {
	return get[[]models.Purchase](ctx, a, counsellingPath+purchasesSuffix)
}

func (a *Authorized) UpdateCounsellingPurchase(ctx context.Context, id models.ID, in models.PurchaseUpdate) (*models.Purchase, error) {
	return send[models.Purchase](ctx, a, http.MethodPut, itemPath(counsellingPath+purchasesSuffix, id), in)
}

// Terms and agreements.

func (a *Authorized) Terms(ctx context.Context) ([]models.Terms, error) {
	return get[[]models.Terms](ctx, a, termsPath)
}

// SaveTerms creates a new version, or edits the title and content of an
// existing one. The service type of an existing version is fixed.
func (a *Authorized) SaveTerms(ctx context.Context, op Save[models.TermsInput]) (*models.Terms, error) {
	if op.IsUpdate() {
		body := op.Body
		body.ServiceType = ""
		op = op.WithBody(body)
	}
	return save[models.TermsInput, models.Terms](ctx, a, termsPath, op)
}

// ActivateTerms makes one version current; upstream deactivates the others.
func (a *Authorized) ActivateTerms(ctx context.Context, id models.ID) error {
	_, err := a.call(ctx, http.MethodPatch, itemPath(termsPath, id)+"/activate", struct{}{}, nil)
	return err
}

func (a *Authorized) Agreements(ctx context.Context) ([]models.Agreement, error) {
	return get[[]models.Agreement](ctx, a, agreementsPath)
}

func (a *Authorized) AgreementStats(ctx context.Context) (models.AgreementStats, error) {
	return get[models.AgreementStats](ctx, a, agreementsPath+"/stats")
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admin-console/internal/apiclient"
	"admin-console/internal/audit"
	"admin-console/internal/dashboard"
	"admin-console/internal/models"
	"admin-console/internal/pricing"
	"admin-console/internal/util"

	"go.uber.org/zap"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrAnalyticsDisabled = errors.New("audit analytics is not enabled")
	ErrSearchDisabled    = errors.New("user search index is not enabled")
)

// UserSearcher is the user directory index.
type UserSearcher interface {
	Sync(ctx context.Context, users []models.User) (int, error)
	Search(ctx context.Context, query, role string) ([]models.User, error)
}

// AuditReporter aggregates recorded audit events.
type AuditReporter interface {
	Summary(ctx context.Context, since time.Time) ([]audit.ActionSummary, error)
}

type UserList struct {
	Users []models.User    `json:"users"`
	Stats models.UserStats `json:"stats"`
}

type AuditReport struct {
	Since   time.Time             `json:"since"`
	Actions []audit.ActionSummary `json:"actions"`
}

// AdminService runs console screens against upstream with the caller's
// credentials. Mutations are validated first and audited after.
type AdminService struct {
	api      *apiclient.Client
	recorder *audit.Recorder
	users    UserSearcher
	reports  AuditReporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewAdminService accepts nil users and reports when those backends are off.
func NewAdminService(api *apiclient.Client, recorder *audit.Recorder, users UserSearcher, reports AuditReporter, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		api:      api,
		recorder: recorder,
		users:    users,
		reports:  reports,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *AdminService) as(creds *models.Credentials) *apiclient.Authorized {
	return s.api.As(creds.AccessToken)
}

func validate(err error) error {
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

// mutate forwards one change upstream and audits the outcome.
func mutate[R any](ctx context.Context, s *AdminService, creds *models.Credentials, action, resource string, id models.ID, fn func(*apiclient.Authorized) (R, error)) (R, error) {
	start := time.Now()
	out, err := fn(s.as(creds))

	entry := audit.Entry{
		Action:     action,
		Actor:      creds.User.Email,
		Resource:   resource,
		ResourceID: id.String(),
	}
	if err != nil {
		entry.Outcome = audit.OutcomeFailure
		entry.Detail = err.Error()
		s.logger.Warn("Upstream mutation failed",
			util.String("action", action),
			util.String("resource", resource),
			util.ErrorField(err),
		)
	} else {
		s.logger.Info("Upstream mutation applied",
			util.String("action", action),
			util.String("resource", resource),
			util.String("resource_id", id.String()),
			util.Duration("duration", time.Since(start)),
		)
	}
	if s.recorder != nil {
		s.recorder.Record(ctx, entry)
	}
	return out, err
}

func saveAction[T any](op apiclient.Save[T]) string {
	if op.IsUpdate() {
		return "update"
	}
	return "create"
}

func (s *AdminService) Dashboard(ctx context.Context, creds *models.Credentials) (*dashboard.Overview, error) {
	return dashboard.LoadOverview(ctx, s.as(creds))
}

// Users lists upstream users filtered in memory and refreshes the search
// index with the unfiltered list.
func (s *AdminService) Users(ctx context.Context, creds *models.Credentials, filter models.UserFilter) (*UserList, error) {
	users, err := s.as(creds).Users(ctx)
	if err != nil {
		return nil, err
	}
	if s.users != nil {
		if _, err := s.users.Sync(ctx, users); err != nil {
			s.logger.Warn("User index sync failed", util.ErrorField(err))
		}
	}
	return &UserList{
		Users: models.FilterUsers(users, filter),
		Stats: models.ComputeUserStats(users),
	}, nil
}

// SearchUsers queries the index, falling back to the in-memory filter
// when the index is off or failing.
func (s *AdminService) SearchUsers(ctx context.Context, creds *models.Credentials, filter models.UserFilter) ([]models.User, error) {
	if s.users != nil {
		role := filter.Role
		if role == "all" {
			role = ""
		}
		found, err := s.users.Search(ctx, filter.Query, role)
		if err == nil {
			return found, nil
		}
		s.logger.Warn("User index search failed, filtering upstream list", util.ErrorField(err))
	}
	users, err := s.as(creds).Users(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterUsers(users, filter), nil
}

// SyncUsers pushes the upstream user list into the search index.
func (s *AdminService) SyncUsers(ctx context.Context, creds *models.Credentials) (int, error) {
	if s.users == nil {
		return 0, ErrSearchDisabled
	}
	users, err := s.as(creds).Users(ctx)
	if err != nil {
		return 0, err
	}
	return s.users.Sync(ctx, users)
}

func (s *AdminService) Bookings(ctx context.Context, creds *models.Credentials, query string) ([]models.Booking, error) {
	bookings, err := s.as(creds).Bookings(ctx)
	if err != nil {
		return nil, err
	}
	return models.FilterBookings(bookings, query), nil
}

func (s *AdminService) TimeSlots(ctx context.Context, creds *models.Credentials, timezone string) ([]models.TimeSlot, error) {
	return s.as(creds).TimeSlots(ctx, timezone)
}

func (s *AdminService) SaveTimeSlot(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.TimeSlotInput]) (*models.TimeSlot, error) {
	if err := validate(op.Body.Validate()); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, saveAction(op), "timeslot", op.ID(), func(a *apiclient.Authorized) (*models.TimeSlot, error) {
		return a.SaveTimeSlot(ctx, op)
	})
}

// ToggleTimeSlot returns upstream's confirmation message.
func (s *AdminService) ToggleTimeSlot(ctx context.Context, creds *models.Credentials, id models.ID) (string, error) {
	return mutate(ctx, s, creds, "toggle", "timeslot", id, func(a *apiclient.Authorized) (string, error) {
		return a.ToggleTimeSlot(ctx, id)
	})
}

func (s *AdminService) DeleteTimeSlot(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "delete", "timeslot", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.DeleteTimeSlot(ctx, id)
	})
	return err
}

func (s *AdminService) ResearchPapers(ctx context.Context, creds *models.Credentials) (*dashboard.ResearchPapers, error) {
	return dashboard.LoadResearchPapers(ctx, s.as(creds))
}

// SaveResearchConfig recomputes the discounted price from the base price
// and discount before forwarding.
func (s *AdminService) SaveResearchConfig(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.ResearchPaperConfigInput]) (*models.ResearchPaperConfig, error) {
	in := op.Body
	if err := validate(in.Validate()); err != nil {
		return nil, err
	}
	in.DiscountedPrice = pricing.FinalPrice(in.ActualPrice, in.DiscountPercent, in.DiscountedPrice)
	op = op.WithBody(in)
	return mutate(ctx, s, creds, saveAction(op), "research_paper_config", op.ID(), func(a *apiclient.Authorized) (*models.ResearchPaperConfig, error) {
		return a.SaveResearchConfig(ctx, op)
	})
}

func (s *AdminService) DeleteResearchConfig(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "delete", "research_paper_config", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.DeleteResearchConfig(ctx, id)
	})
	return err
}

func (s *AdminService) UpdateResearchPurchase(ctx context.Context, creds *models.Credentials, id models.ID, in models.PurchaseUpdate) (*models.Purchase, error) {
	if err := validate(in.Validate()); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, "update", "research_paper_purchase", id, func(a *apiclient.Authorized) (*models.Purchase, error) {
		return a.UpdateResearchPurchase(ctx, id, in)
	})
}

func (s *AdminService) VisaApplications(ctx context.Context, creds *models.Credentials) (*dashboard.VisaApplications, error) {
	return dashboard.LoadVisaApplications(ctx, s.as(creds))
}

// SaveVisaConfig derives the discount percent from the base and
// discounted prices; the visa form is priced by its final amount.
func (s *AdminService) SaveVisaConfig(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.VisaConfigInput]) (*models.VisaConfig, error) {
	in := op.Body
	in.DiscountPercent = pricing.DiscountPercent(in.ActualPrice, in.DiscountedPrice, in.DiscountPercent)
	if err := validate(in.Validate()); err != nil {
		return nil, err
	}
	op = op.WithBody(in)
	return mutate(ctx, s, creds, saveAction(op), "visa_config", op.ID(), func(a *apiclient.Authorized) (*models.VisaConfig, error) {
		return a.SaveVisaConfig(ctx, op)
	})
}

func (s *AdminService) DeleteVisaConfig(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "delete", "visa_config", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.DeleteVisaConfig(ctx, id)
	})
	return err
}

func (s *AdminService) UpdateVisaPurchase(ctx context.Context, creds *models.Credentials, id models.ID, in models.PurchaseUpdate) (*models.Purchase, error) {
	if err := validate(in.Validate()); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, "update", "visa_purchase", id, func(a *apiclient.Authorized) (*models.Purchase, error) {
		return a.UpdateVisaPurchase(ctx, id, in)
	})
}

func (s *AdminService) Counselling(ctx context.Context, creds *models.Credentials) (*dashboard.Counselling, error) {
	return dashboard.LoadCounselling(ctx, s.as(creds))
}

func (s *AdminService) SaveServiceType(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.ServiceTypeInput]) (*models.ServiceType, error) {
	if err := validate(op.Body.Validate()); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, saveAction(op), "service_type", op.ID(), func(a *apiclient.Authorized) (*models.ServiceType, error) {
		return a.SaveServiceType(ctx, op)
	})
}

func (s *AdminService) DeleteServiceType(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "delete", "service_type", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.DeleteServiceType(ctx, id)
	})
	return err
}

func (s *AdminService) SaveCounsellor(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.CounsellorInput]) (*models.Counsellor, error) {
	if err := validate(op.Body.Validate()); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, saveAction(op), "counsellor", op.ID(), func(a *apiclient.Authorized) (*models.Counsellor, error) {
		return a.SaveCounsellor(ctx, op)
	})
}

func (s *AdminService) DeleteCounsellor(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "delete", "counsellor", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.DeleteCounsellor(ctx, id)
	})
	return err
}

func (s *AdminService) SaveCounsellingPricing(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.CounsellingPricingInput]) (*models.CounsellingPricing, error) {
	in := op.Body
	if err := validate(in.Validate()); err != nil {
		return nil, err
	}
	in.DiscountedPrice = pricing.FinalPrice(in.ActualPrice, in.DiscountPercent, in.DiscountedPrice)
	op = op.WithBody(in)
	return mutate(ctx, s, creds, saveAction(op), "counselling_pricing", op.ID(), func(a *apiclient.Authorized) (*models.CounsellingPricing, error) {
		return a.SaveCounsellingPricing(ctx, op)
	})
}

func (s *AdminService) DeleteCounsellingPricing(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "delete", "counselling_pricing", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.DeleteCounsellingPricing(ctx, id)
	})
	return err
}

func (s *AdminService) UpdateCounsellingPurchase(ctx context.Context, creds *models.Credentials, id models.ID, in models.PurchaseUpdate) (*models.Purchase, error) {
	if err := validate(in.Validate()); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, "update", "counselling_purchase", id, func(a *apiclient.Authorized) (*models.Purchase, error) {
		return a.UpdateCounsellingPurchase(ctx, id, in)
	})
}

func (s *AdminService) Terms(ctx context.Context, creds *models.Credentials) (*dashboard.Terms, error) {
	return dashboard.LoadTerms(ctx, s.as(creds))
}

// SaveTerms requires a service type on create only; edits change title
// and content.
func (s *AdminService) SaveTerms(ctx context.Context, creds *models.Credentials, op apiclient.Save[models.TermsInput]) (*models.Terms, error) {
	if err := validate(op.Body.Validate(!op.IsUpdate())); err != nil {
		return nil, err
	}
	return mutate(ctx, s, creds, saveAction(op), "terms", op.ID(), func(a *apiclient.Authorized) (*models.Terms, error) {
		return a.SaveTerms(ctx, op)
	})
}

func (s *AdminService) ActivateTerms(ctx context.Context, creds *models.Credentials, id models.ID) error {
	_, err := mutate(ctx, s, creds, "activate", "terms", id, func(a *apiclient.Authorized) (struct{}, error) {
		return struct{}{}, a.ActivateTerms(ctx, id)
	})
	return err
}

// AuditReport summarises audit events recorded in the last days.
func (s *AdminService) AuditReport(ctx context.Context, days int) (*AuditReport, error) {
	if s.reports == nil {
		return nil, ErrAnalyticsDisabled
	}
	if days <= 0 {
		days = 7
	}
	since := s.now().UTC().AddDate(0, 0, -days)
	actions, err := s.reports.Summary(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise audit events: %w", err)
	}
	return &AuditReport{Since: since, Actions: actions}, nil
}

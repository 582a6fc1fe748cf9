// Package dashboard assembles the data behind each admin screen from
// several upstream calls issued in parallel. A batch is all-or-nothing:
// the first failure cancels the rest and no aggregate is produced.
package dashboard

import (
	"context"

	"admin-console/internal/models"

	"golang.org/x/sync/errgroup"
)

const recentUsersCount = 5

// Source is the slice of the upstream API the screens read.
type Source interface {
	Users(ctx context.Context) ([]models.User, error)
	Bookings(ctx context.Context) ([]models.Booking, error)
	TimeSlots(ctx context.Context, timezone string) ([]models.TimeSlot, error)

	ResearchConfigs(ctx context.Context) ([]models.ResearchPaperConfig, error)
	ResearchPurchases(ctx context.Context) ([]models.Purchase, error)
	ResearchPurchaseStats(ctx context.Context) (models.PurchaseStats, error)

	VisaConfigs(ctx context.Context) ([]models.VisaConfig, error)
	VisaPurchases(ctx context.Context) ([]models.Purchase, error)
	VisaPurchaseStats(ctx context.Context) (models.PurchaseStats, error)

	ServiceTypes(ctx context.Context) ([]models.ServiceType, error)
	Counsellors(ctx context.Context) ([]models.Counsellor, error)
	CounsellingPricing(ctx context.Context) ([]models.CounsellingPricing, error)
	CounsellingPurchases(ctx context.Context) ([]models.Purchase, error)

	Terms(ctx context.Context) ([]models.Terms, error)
	Agreements(ctx context.Context) ([]models.Agreement, error)
	AgreementStats(ctx context.Context) (models.AgreementStats, error)
}

type Overview struct {
	TotalUsers     int           `json:"totalUsers"`
	ActiveUsers    int           `json:"activeUsers"`
	TotalBookings  int           `json:"totalBookings"`
	TotalTimeslots int           `json:"totalTimeslots"`
	RecentUsers    []models.User `json:"recentUsers"`
}

type ResearchPapers struct {
	Configs   []models.ResearchPaperConfig `json:"configs"`
	Purchases []models.Purchase            `json:"purchases"`
	Stats     models.PurchaseStats         `json:"stats"`
}

type VisaApplications struct {
	Configs   []models.VisaConfig  `json:"configs"`
	Purchases []models.Purchase    `json:"purchases"`
	Stats     models.PurchaseStats `json:"stats"`
}

type Counselling struct {
	ServiceTypes []models.ServiceType        `json:"serviceTypes"`
	Counsellors  []models.Counsellor         `json:"counsellors"`
	Pricing      []models.CounsellingPricing `json:"pricing"`
	Purchases    []models.Purchase           `json:"purchases"`
	Stats        models.PurchaseStats        `json:"stats"`
}

type Terms struct {
	Terms      []models.Terms        `json:"terms"`
	Agreements []models.Agreement    `json:"agreements"`
	Stats      models.AgreementStats `json:"stats"`
}

// fetch runs fn and stores its result only if it succeeded.
func fetch[T any](ctx context.Context, g *errgroup.Group, dst *T, fn func(context.Context) (T, error)) {
	g.Go(func() error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	})
}

func LoadOverview(ctx context.Context, src Source) (*Overview, error) {
	var (
		users    []models.User
		bookings []models.Booking
		slots    []models.TimeSlot
	)
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, &users, src.Users)
	fetch(gctx, g, &bookings, src.Bookings)
	fetch(gctx, g, &slots, func(ctx context.Context) ([]models.TimeSlot, error) {
		return src.TimeSlots(ctx, "")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Overview{
		TotalUsers:     len(users),
		ActiveUsers:    models.ComputeUserStats(users).Active,
		TotalBookings:  len(bookings),
		TotalTimeslots: len(slots),
		RecentUsers:    models.RecentUsers(users, recentUsersCount),
	}, nil
}

func LoadResearchPapers(ctx context.Context, src Source) (*ResearchPapers, error) {
	var out ResearchPapers
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, &out.Configs, src.ResearchConfigs)
	fetch(gctx, g, &out.Purchases, src.ResearchPurchases)
	fetch(gctx, g, &out.Stats, src.ResearchPurchaseStats)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

func LoadVisaApplications(ctx context.Context, src Source) (*VisaApplications, error) {
	var out VisaApplications
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, &out.Configs, src.VisaConfigs)
	fetch(gctx, g, &out.Purchases, src.VisaPurchases)
	fetch(gctx, g, &out.Stats, src.VisaPurchaseStats)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadCounselling derives purchase stats locally; upstream has no
// counselling stats endpoint.
func LoadCounselling(ctx context.Context, src Source) (*Counselling, error) {
	var out Counselling
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, &out.ServiceTypes, src.ServiceTypes)
	fetch(gctx, g, &out.Counsellors, src.Counsellors)
	fetch(gctx, g, &out.Pricing, src.CounsellingPricing)
	fetch(gctx, g, &out.Purchases, src.CounsellingPurchases)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Stats = models.ComputePurchaseStats(out.Purchases)
	return &out, nil
}

func LoadTerms(ctx context.Context, src Source) (*Terms, error) {
	var out Terms
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, &out.Terms, src.Terms)
	fetch(gctx, g, &out.Agreements, src.Agreements)
	fetch(gctx, g, &out.Stats, src.AgreementStats)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &out, nil
}

package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"admin-console/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves fixed data; fail names a call that errors and block
// names calls that wait for cancellation.
type fakeSource struct {
	fail  map[string]error
	block map[string]bool

	users     []models.User
	purchases []models.Purchase
}

func (f *fakeSource) check(ctx context.Context, name string) error {
	if f.block[name] {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Second):
			return errors.New("not cancelled")
		}
	}
	return f.fail[name]
}

func (f *fakeSource) Users(ctx context.Context) ([]models.User, error) {
	return f.users, f.check(ctx, "users")
}

func (f *fakeSource) Bookings(ctx context.Context) ([]models.Booking, error) {
	return []models.Booking{{Name: "a"}, {Name: "b"}}, f.check(ctx, "bookings")
}

func (f *fakeSource) TimeSlots(ctx context.Context, _ string) ([]models.TimeSlot, error) {
	return []models.TimeSlot{{Time: "10:00"}}, f.check(ctx, "timeslots")
}

func (f *fakeSource) ResearchConfigs(ctx context.Context) ([]models.ResearchPaperConfig, error) {
	return []models.ResearchPaperConfig{{ConfigID: "1"}}, f.check(ctx, "research_configs")
}

func (f *fakeSource) ResearchPurchases(ctx context.Context) ([]models.Purchase, error) {
	return f.purchases, f.check(ctx, "research_purchases")
}

func (f *fakeSource) ResearchPurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	return models.PurchaseStats{TotalPurchases: 4}, f.check(ctx, "research_stats")
}

func (f *fakeSource) VisaConfigs(ctx context.Context) ([]models.VisaConfig, error) {
	return []models.VisaConfig{{ConfigID: "2"}}, f.check(ctx, "visa_configs")
}

func (f *fakeSource) VisaPurchases(ctx context.Context) ([]models.Purchase, error) {
	return f.purchases, f.check(ctx, "visa_purchases")
}

func (f *fakeSource) VisaPurchaseStats(ctx context.Context) (models.PurchaseStats, error) {
	return models.PurchaseStats{TotalPurchases: 2}, f.check(ctx, "visa_stats")
}

func (f *fakeSource) ServiceTypes(ctx context.Context) ([]models.ServiceType, error) {
	return []models.ServiceType{{ServiceTypeID: "1"}}, f.check(ctx, "service_types")
}

func (f *fakeSource) Counsellors(ctx context.Context) ([]models.Counsellor, error) {
	return []models.Counsellor{{CounselorID: "1"}}, f.check(ctx, "counsellors")
}

func (f *fakeSource) CounsellingPricing(ctx context.Context) ([]models.CounsellingPricing, error) {
	return []models.CounsellingPricing{{ID: "1"}}, f.check(ctx, "pricing")
}

func (f *fakeSource) CounsellingPurchases(ctx context.Context) ([]models.Purchase, error) {
	return f.purchases, f.check(ctx, "counselling_purchases")
}

func (f *fakeSource) Terms(ctx context.Context) ([]models.Terms, error) {
	return []models.Terms{{TermsID: "1"}}, f.check(ctx, "terms")
}

func (f *fakeSource) Agreements(ctx context.Context) ([]models.Agreement, error) {
	return []models.Agreement{{AgreementID: "1"}}, f.check(ctx, "agreements")
}

func (f *fakeSource) AgreementStats(ctx context.Context) (models.AgreementStats, error) {
	return models.AgreementStats{Total: 1}, f.check(ctx, "agreement_stats")
}

func TestLoadOverview(t *testing.T) {
	now := time.Now()
	src := &fakeSource{users: []models.User{
		{Username: "old", IsActive: true, CreatedAt: now.Add(-72 * time.Hour)},
		{Username: "new", IsActive: true, CreatedAt: now},
		{Username: "mid", CreatedAt: now.Add(-time.Hour)},
	}}

	got, err := LoadOverview(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalUsers)
	assert.Equal(t, 2, got.ActiveUsers)
	assert.Equal(t, 2, got.TotalBookings)
	assert.Equal(t, 1, got.TotalTimeslots)
	require.Len(t, got.RecentUsers, 3)
	assert.Equal(t, "new", got.RecentUsers[0].Username)
	assert.Equal(t, "old", got.RecentUsers[2].Username)
}

func TestLoadOverview_FailFast(t *testing.T) {
	boom := errors.New("bookings unavailable")
	src := &fakeSource{
		fail:  map[string]error{"bookings": boom},
		block: map[string]bool{"users": true, "timeslots": true},
	}

	start := time.Now()
	got, err := LoadOverview(context.Background(), src)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
	assert.Less(t, time.Since(start), 4*time.Second, "siblings were not cancelled")
}

func TestLoaders_AnyFailureDropsAggregate(t *testing.T) {
	boom := errors.New("boom")
	tests := []struct {
		call string
		load func(context.Context, Source) (any, error)
	}{
		{"research_stats", func(ctx context.Context, s Source) (any, error) { return LoadResearchPapers(ctx, s) }},
		{"visa_configs", func(ctx context.Context, s Source) (any, error) { return LoadVisaApplications(ctx, s) }},
		{"pricing", func(ctx context.Context, s Source) (any, error) { return LoadCounselling(ctx, s) }},
		{"agreements", func(ctx context.Context, s Source) (any, error) { return LoadTerms(ctx, s) }},
	}
	for _, tt := range tests {
		t.Run(tt.call, func(t *testing.T) {
			src := &fakeSource{fail: map[string]error{tt.call: boom}}
			_, err := tt.load(context.Background(), src)
			assert.ErrorIs(t, err, boom)
		})
	}
}

func TestLoadResearchAndVisa(t *testing.T) {
	src := &fakeSource{purchases: []models.Purchase{{PurchaseID: "1"}}}

	rp, err := LoadResearchPapers(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, rp.Configs, 1)
	assert.Len(t, rp.Purchases, 1)
	assert.Equal(t, 4, rp.Stats.TotalPurchases)

	va, err := LoadVisaApplications(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, models.ID("2"), va.Configs[0].ConfigID)
	assert.Equal(t, 2, va.Stats.TotalPurchases)
}

func TestLoadCounselling_DerivesStats(t *testing.T) {
	src := &fakeSource{purchases: []models.Purchase{
		{ID: "1", PaymentStatus: models.StatusCompleted, AmountPaid: decimal.RequireFromString("150.50")},
		{ID: "2", PaymentStatus: models.StatusCompleted, FinalAmount: decimal.NewFromInt(100)},
		{ID: "3", PaymentStatus: models.StatusPending},
		{ID: "4", PaymentStatus: models.StatusFailed},
	}}

	got, err := LoadCounselling(context.Background(), src)
	require.NoError(t, err)
	assert.Len(t, got.ServiceTypes, 1)
	assert.Len(t, got.Counsellors, 1)
	assert.Len(t, got.Pricing, 1)
	assert.Equal(t, 4, got.Stats.TotalPurchases)
	assert.Equal(t, 2, got.Stats.CompletedPayments)
	assert.Equal(t, 1, got.Stats.PendingPayments)
	assert.True(t, got.Stats.TotalRevenue.Equal(decimal.RequireFromString("250.50")))
}

func TestLoadTerms(t *testing.T) {
	got, err := LoadTerms(context.Background(), &fakeSource{})
	require.NoError(t, err)
	assert.Len(t, got.Terms, 1)
	assert.Len(t, got.Agreements, 1)
	assert.Equal(t, 1, got.Stats.Total)
}

package models

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleUsers() []User {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []User{
		{UserID: "1", Username: "alice", Email: "alice@uni.edu", UserRole: "student", IsActive: true, EmailVerify: true, CreatedAt: base},
		{UserID: "2", Username: "Bob", Email: "bob@mountgc.com", UserRole: "admin", IsActive: true, CreatedAt: base.Add(48 * time.Hour)},
		{UserID: "3", Username: "carol", Email: "carol@uni.edu", UserRole: "student", CreatedAt: base.Add(24 * time.Hour)},
	}
}

func TestFilterUsers(t *testing.T) {
	users := sampleUsers()

	tests := []struct {
		name   string
		filter UserFilter
		want   []ID
	}{
		{"no filter", UserFilter{}, []ID{"1", "2", "3"}},
		{"all role", UserFilter{Role: "all"}, []ID{"1", "2", "3"}},
		{"role only", UserFilter{Role: "student"}, []ID{"1", "3"}},
		{"query matches username case-insensitively", UserFilter{Query: "BOB"}, []ID{"2"}},
		{"query matches email", UserFilter{Query: "uni.edu"}, []ID{"1", "3"}},
		{"role and query", UserFilter{Role: "admin", Query: "uni"}, []ID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterUsers(users, tt.filter)
			ids := make([]ID, 0, len(got))
			for _, u := range got {
				ids = append(ids, u.UserID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestComputeUserStatsAndRecent(t *testing.T) {
	users := sampleUsers()

	stats := ComputeUserStats(users)
	assert.Equal(t, UserStats{Total: 3, Admin: 1, Student: 2, Active: 2, Verified: 1}, stats)

	recent := RecentUsers(users, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, ID("2"), recent[0].UserID)
	assert.Equal(t, ID("3"), recent[1].UserID)
	assert.Equal(t, ID("1"), users[0].UserID, "input must not be reordered")
}

func TestFilterBookings(t *testing.T) {
	bookings := []Booking{
		{BookingID: "10", Name: "Dan", Email: "dan@x.io", Category: "MBA"},
		{BookingID: "11", Name: "Eve", Email: "eve@y.io", Category: "Visa"},
	}
	assert.Len(t, FilterBookings(bookings, ""), 2)
	got := FilterBookings(bookings, "visa")
	require.Len(t, got, 1)
	assert.Equal(t, ID("11"), got[0].BookingID)
}

func TestFlexString(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 42, "b": "2-3", "c": null}`), &v))
	assert.Equal(t, FlexString("42"), v.A)
	assert.Equal(t, FlexString("2-3"), v.B)
	assert.Equal(t, FlexString(""), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &v))
}

func TestTimeSlotInputValidate(t *testing.T) {
	err := TimeSlotInput{Timezone: "IST"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "time", ve.Field)

	assert.Error(t, TimeSlotInput{Time: "10:00"}.Validate())
	assert.NoError(t, TimeSlotInput{Time: "10:00", Timezone: "IST"}.Validate())
}

func TestPurchaseUpdateValidate(t *testing.T) {
	assert.Error(t, PurchaseUpdate{}.Validate())
	assert.Error(t, PurchaseUpdate{Status: "shipped"}.Validate())
	assert.Error(t, PurchaseUpdate{MeetingLink: "zoom"}.Validate())
	assert.NoError(t, PurchaseUpdate{Status: StatusInProgress, AdminNotes: "called student"}.Validate())
	assert.NoError(t, PurchaseUpdate{MeetingLink: "https://zoom.us/j/1"}.Validate())
}

func TestComputePurchaseStats(t *testing.T) {
	purchases := []Purchase{
		{ID: "1", PaymentStatus: StatusCompleted, AmountPaid: decimal.RequireFromString("100.50")},
		{ID: "2", PaymentStatus: StatusCompleted, FinalAmount: decimal.RequireFromString("49.50")},
		{ID: "3", PaymentStatus: StatusPending},
		{ID: "4", PaymentStatus: StatusFailed},
	}
	stats := ComputePurchaseStats(purchases)
	assert.Equal(t, 4, stats.TotalPurchases)
	assert.Equal(t, 2, stats.CompletedPayments)
	assert.Equal(t, 1, stats.PendingPayments)
	assert.True(t, stats.TotalRevenue.Equal(decimal.NewFromInt(150)))
}

func TestPurchaseKeyAndMoneyEncoding(t *testing.T) {
	assert.Equal(t, ID("p-1"), Purchase{PurchaseID: "p-1", ID: "9"}.Key())
	assert.Equal(t, ID("9"), Purchase{ID: "9"}.Key())

	body, err := json.Marshal(ResearchPaperConfigInput{
		Currency:        "USD",
		CoAuthors:       "2",
		ActualPrice:     decimal.NewFromInt(1000),
		DiscountedPrice: decimal.NewFromInt(800),
		DiscountPercent: decimal.NewFromInt(20),
	})
	require.NoError(t, err)
	assert.Contains(t, string(body), `"actual_price":1000`)
	assert.Contains(t, string(body), `"co_authors":"2"`)
}

func TestConfigValidation(t *testing.T) {
	assert.Error(t, ResearchPaperConfigInput{CoAuthors: "1"}.Validate())
	assert.Error(t, ResearchPaperConfigInput{Currency: "USD", CoAuthors: "1", DiscountPercent: decimal.NewFromInt(120)}.Validate())
	assert.NoError(t, ResearchPaperConfigInput{Currency: "USD", CoAuthors: "1", ActualPrice: decimal.NewFromInt(10)}.Validate())

	assert.Error(t, VisaConfigInput{Currency: "USD", DiscountedPrice: decimal.NewFromInt(-1)}.Validate())
	assert.Error(t, CounsellingPricingInput{CounselorID: 1, Currency: "USD"}.Validate())
	assert.NoError(t, CounsellingPricingInput{ServiceTypeID: 1, CounselorID: 2, Currency: "INR"}.Validate())

	assert.Error(t, TermsInput{Title: "T"}.Validate(false))
	assert.Error(t, TermsInput{Title: "T", Content: "C", ServiceType: "other"}.Validate(true))
	assert.NoError(t, TermsInput{Title: "T", Content: "C"}.Validate(false))
	assert.NoError(t, TermsInput{Title: "T", Content: "C", ServiceType: ServiceVisaApplication}.Validate(true))
}

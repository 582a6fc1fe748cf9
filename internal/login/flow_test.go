package login

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"admin-console/internal/models"
	"admin-console/internal/otpinput"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAuth struct {
	requestFn func(ctx context.Context, email string) error
	verifyFn  func(ctx context.Context, email, code string) (*models.Credentials, error)

	mu       sync.Mutex
	requests []string
	codes    []string
}

func (a *fakeAuth) RequestOTP(ctx context.Context, email string) error {
	a.mu.Lock()
	a.requests = append(a.requests, email)
	a.mu.Unlock()
	if a.requestFn == nil {
		return nil
	}
	return a.requestFn(ctx, email)
}

func (a *fakeAuth) VerifyOTP(ctx context.Context, email, code string) (*models.Credentials, error) {
	a.mu.Lock()
	a.codes = append(a.codes, code)
	a.mu.Unlock()
	if a.verifyFn == nil {
		return adminCreds(email), nil
	}
	return a.verifyFn(ctx, email, code)
}

type serverMessageErr struct{ msg string }

func (e serverMessageErr) Error() string       { return "upstream: " + e.msg }
func (e serverMessageErr) UserMessage() string { return e.msg }

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

type fakeTickers struct {
	mu  sync.Mutex
	all []*fakeTicker
}

func (f *fakeTickers) New(time.Duration) Ticker {
	t := &fakeTicker{ch: make(chan time.Time)}
	f.mu.Lock()
	f.all = append(f.all, t)
	f.mu.Unlock()
	return t
}

func (f *fakeTickers) last() *fakeTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.all[len(f.all)-1]
}

func (f *fakeTickers) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.all)
}

func adminCreds(email string) *models.Credentials {
	return &models.Credentials{
		AccessToken: "token-123",
		User:        models.AdminProfile{UserID: "1", Email: email, Role: models.RoleAdmin},
	}
}

func newTestFlow(t *testing.T, auth *fakeAuth, persist PersistFunc) (*Flow, *fakeTickers) {
	t.Helper()
	tickers := &fakeTickers{}
	f := NewFlow(auth, persist, zap.NewNop(), WithTicker(tickers.New))
	t.Cleanup(f.Close)
	return f, tickers
}

func TestSubmitEmail_StartsCountdownAndLocksResend(t *testing.T) {
	auth := &fakeAuth{}
	f, tickers := newTestFlow(t, auth, nil)
	ctx := context.Background()

	s, err := f.SubmitEmail(ctx, "  admin@example.com ")
	require.NoError(t, err)
	assert.Equal(t, StateOTPEntry, s.State)
	assert.Equal(t, "admin@example.com", s.Email)
	assert.Equal(t, 60, s.ResendIn)
	assert.False(t, s.CanResend)
	assert.Equal(t, []string{"admin@example.com"}, auth.requests)
	require.NotNil(t, s.Notice)
	assert.Equal(t, NoticeSuccess, s.Notice.Level)

	_, err = f.Resend(ctx)
	assert.ErrorIs(t, err, ErrResendLocked)
	assert.Len(t, auth.requests, 1)

	tk := tickers.last()
	for i := 0; i < 59; i++ {
		tk.ch <- time.Now()
	}
	assert.Eventually(t, func() bool { return f.Snapshot().ResendIn == 1 }, time.Second, time.Millisecond)
	assert.False(t, f.Snapshot().CanResend)

	tk.ch <- time.Now()
	assert.Eventually(t, func() bool { return f.Snapshot().CanResend }, time.Second, time.Millisecond)
	assert.Eventually(t, tk.stopped.Load, time.Second, time.Millisecond)
	assert.Equal(t, StateOTPEntry, f.Snapshot().State)

	s, err = f.Resend(ctx)
	require.NoError(t, err)
	assert.Equal(t, 60, s.ResendIn)
	assert.Equal(t, 2, tickers.count())
	assert.Len(t, auth.requests, 2)
}

func TestSubmitEmail_Failure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"server message", serverMessageErr{"User not found"}, "User not found"},
		{"fallback", errors.New("dial tcp: refused"), "Failed to send OTP"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auth := &fakeAuth{requestFn: func(context.Context, string) error { return tt.err }}
			f, tickers := newTestFlow(t, auth, nil)

			s, err := f.SubmitEmail(context.Background(), "admin@example.com")
			require.Error(t, err)
			assert.Equal(t, StateEmailEntry, s.State)
			require.NotNil(t, s.Notice)
			assert.Equal(t, tt.wantMsg, s.Notice.Message)
			assert.Equal(t, 0, tickers.count())
		})
	}
}

func TestSubmitEmail_Validation(t *testing.T) {
	for _, email := range []string{"", "   ", "not-an-email", "a b@example.com"} {
		auth := &fakeAuth{}
		f, _ := newTestFlow(t, auth, nil)

		s, err := f.SubmitEmail(context.Background(), email)
		assert.ErrorIs(t, err, ErrInvalidEmail, email)
		assert.Equal(t, StateEmailEntry, s.State)
		assert.Empty(t, auth.requests)
	}
}

func TestVerifyFailure_ClearsDigitsAndRemounts(t *testing.T) {
	auth := &fakeAuth{verifyFn: func(context.Context, string, string) (*models.Credentials, error) {
		return nil, serverMessageErr{"Invalid or expired OTP"}
	}}
	var persisted int
	f, _ := newTestFlow(t, auth, func(context.Context, *models.Credentials) error {
		persisted++
		return nil
	})
	ctx := context.Background()

	before, err := f.SubmitEmail(ctx, "admin@example.com")
	require.NoError(t, err)

	s, err := f.Paste(ctx, "123456")
	require.Error(t, err)
	assert.Equal(t, StateOTPEntry, s.State)
	assert.Equal(t, [otpinput.Length]string{}, s.Digits)
	assert.Equal(t, before.WidgetKey+1, s.WidgetKey)
	assert.False(t, s.Verified)
	assert.True(t, s.Error)
	assert.False(t, s.Disabled)
	require.NotNil(t, s.Notice)
	assert.Equal(t, "Invalid or expired OTP", s.Notice.Message)
	assert.Equal(t, 0, persisted)
	assert.Nil(t, f.Credentials())

	// the fresh widget accepts a new code
	s, err = f.Input(ctx, 0, "9")
	require.NoError(t, err)
	assert.Equal(t, "9", s.Digits[0])
	assert.Equal(t, 1, s.Focus)
}

func TestVerifyFailure_Messages(t *testing.T) {
	tests := []struct {
		name    string
		verify  func(context.Context, string, string) (*models.Credentials, error)
		persist PersistFunc
		wantErr error
		wantMsg string
	}{
		{
			name:    "generic",
			verify:  func(context.Context, string, string) (*models.Credentials, error) { return nil, errors.New("boom") },
			wantMsg: "Invalid OTP",
		},
		{
			name: "not admin",
			verify: func(_ context.Context, email, _ string) (*models.Credentials, error) {
				c := adminCreds(email)
				c.User.Role = "student"
				return c, nil
			},
			wantErr: ErrNotAdmin,
			wantMsg: "Access denied! Admin credentials required.",
		},
		{
			name:    "persist",
			persist: func(context.Context, *models.Credentials) error { return errors.New("redis down") },
			wantErr: ErrPersist,
			wantMsg: msgPersistFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _ := newTestFlow(t, &fakeAuth{verifyFn: tt.verify}, tt.persist)
			ctx := context.Background()
			_, err := f.SubmitEmail(ctx, "admin@example.com")
			require.NoError(t, err)

			s, err := f.Paste(ctx, "123456")
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, StateOTPEntry, s.State)
			assert.Equal(t, tt.wantMsg, s.Notice.Message)
		})
	}
}

func TestVerifySuccess(t *testing.T) {
	auth := &fakeAuth{}
	var saved *models.Credentials
	f, tickers := newTestFlow(t, auth, func(_ context.Context, c *models.Credentials) error {
		saved = c
		return nil
	})
	ctx := context.Background()

	_, err := f.SubmitEmail(ctx, "admin@example.com")
	require.NoError(t, err)

	var s Snapshot
	for i, d := range []string{"4", "8", "1", "5", "1", "6"} {
		s, err = f.Input(ctx, i, d)
		require.NoError(t, err)
		if i < 5 {
			assert.Equal(t, StateOTPEntry, s.State)
			assert.Empty(t, auth.codes)
		}
	}

	assert.Equal(t, StateAuthenticated, s.State)
	assert.True(t, s.Verified)
	assert.Equal(t, []string{"481516"}, auth.codes)
	require.NotNil(t, saved)
	assert.Equal(t, "token-123", saved.AccessToken)
	assert.Same(t, saved, f.Credentials())
	assert.Equal(t, "Welcome back, Admin!", s.Notice.Message)
	assert.Eventually(t, tickers.last().stopped.Load, time.Second, time.Millisecond)

	_, err = f.Input(ctx, 0, "1")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.SubmitEmail(ctx, "admin@example.com")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestChangeEmail_DiscardsEntry(t *testing.T) {
	f, tickers := newTestFlow(t, &fakeAuth{}, nil)
	ctx := context.Background()

	_, err := f.SubmitEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	_, err = f.Input(ctx, 0, "1")
	require.NoError(t, err)

	s, err := f.ChangeEmail()
	require.NoError(t, err)
	assert.Equal(t, StateEmailEntry, s.State)
	assert.Equal(t, [otpinput.Length]string{}, s.Digits)
	assert.Equal(t, 0, s.ResendIn)
	assert.Eventually(t, tickers.last().stopped.Load, time.Second, time.Millisecond)

	_, err = f.ChangeEmail()
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.Resend(ctx)
	assert.ErrorIs(t, err, ErrInvalidState)

	s, err = f.SubmitEmail(ctx, "other@example.com")
	require.NoError(t, err)
	assert.Equal(t, "other@example.com", s.Email)
}

func TestEditBeforeOTPEntry(t *testing.T) {
	f, _ := newTestFlow(t, &fakeAuth{}, nil)

	_, err := f.Paste(context.Background(), "123456")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = f.FocusCell(context.Background(), 2)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStaleRequestResultDiscarded(t *testing.T) {
	var f *Flow
	auth := &fakeAuth{requestFn: func(context.Context, string) error {
		f.Close()
		return nil
	}}
	f, tickers := newTestFlow(t, auth, nil)

	s, err := f.SubmitEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, StateRequestingOTP, s.State)
	assert.Equal(t, 0, tickers.count())
}

func TestStaleVerifyResultNotPersisted(t *testing.T) {
	var f *Flow
	auth := &fakeAuth{verifyFn: func(_ context.Context, email, _ string) (*models.Credentials, error) {
		f.Close()
		return adminCreds(email), nil
	}}
	var persisted int
	f, _ = newTestFlow(t, auth, func(context.Context, *models.Credentials) error {
		persisted++
		return nil
	})
	ctx := context.Background()

	_, err := f.SubmitEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	s, err := f.Paste(ctx, "123456")
	require.NoError(t, err)

	assert.Equal(t, StateVerifying, s.State)
	assert.Zero(t, persisted)
	assert.Nil(t, f.Credentials())
}

func TestKeyDownAndFocusPassThrough(t *testing.T) {
	f, _ := newTestFlow(t, &fakeAuth{}, nil)
	ctx := context.Background()
	_, err := f.SubmitEmail(ctx, "admin@example.com")
	require.NoError(t, err)

	_, _ = f.Input(ctx, 0, "1")
	s, err := f.KeyDown(ctx, 1, otpinput.KeyBackspace)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Focus)

	s, err = f.FocusCell(ctx, 0)
	require.NoError(t, err)
	assert.True(t, s.Selected)
}

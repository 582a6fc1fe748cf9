package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"admin-console/internal/audit"
	"admin-console/internal/authstore"
	"admin-console/internal/config"
	"admin-console/internal/login"
	"admin-console/internal/models"
	"admin-console/internal/otpinput"
	"admin-console/internal/util"

	"go.uber.org/zap"
)

var (
	ErrThrottled     = errors.New("too many OTP requests")
	ErrUnknownAction = errors.New("unknown OTP action")
)

const msgThrottled = "Too many OTP requests. Please try again later."

// Upstream is the part of the platform API the login screens use.
type Upstream interface {
	login.Authenticator
	Logout(ctx context.Context, token string) error
}

// Throttle counts OTP requests per email.
type Throttle interface {
	Allow(ctx context.Context, email string) (bool, time.Duration, error)
}

// ThrottledError is returned instead of calling upstream once an email
// exceeded its request budget.
type ThrottledError struct {
	RetryAfter time.Duration
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s, retry in %s", ErrThrottled, e.RetryAfter.Round(time.Second))
}

func (e *ThrottledError) UserMessage() string { return msgThrottled }

func (e *ThrottledError) Is(target error) bool { return target == ErrThrottled }

type throttledAuthenticator struct {
	login.Authenticator
	throttle Throttle
	logger   *zap.Logger
}

// RequestOTP fails open when the throttle backend is unreachable.
func (t *throttledAuthenticator) RequestOTP(ctx context.Context, email string) error {
	ok, retryAfter, err := t.throttle.Allow(ctx, email)
	if err != nil {
		t.logger.Warn("OTP throttle unavailable", util.ErrorField(err))
		return t.Authenticator.RequestOTP(ctx, email)
	}
	if !ok {
		return &ThrottledError{RetryAfter: retryAfter}
	}
	return t.Authenticator.RequestOTP(ctx, email)
}

// OTPAction is one event from the code entry widget.
type OTPAction struct {
	Action string `json:"action"`
	Cell   int    `json:"cell"`
	Value  string `json:"value"`
	Key    string `json:"key"`
	Text   string `json:"text"`
}

type LoginOption func(*LoginService)

// WithThrottle limits OTP requests per email.
func WithThrottle(t Throttle) LoginOption {
	return func(s *LoginService) { s.throttle = t }
}

// WithFlowOptions passes options to every flow the service creates.
func WithFlowOptions(opts ...login.Option) LoginOption {
	return func(s *LoginService) { s.flowOpts = append(s.flowOpts, opts...) }
}

func withNow(now func() time.Time) LoginOption {
	return func(s *LoginService) { s.now = now }
}

// LoginService owns one login flow per console session and moves issued
// credentials into the credential store.
type LoginService struct {
	upstream Upstream
	auth     login.Authenticator
	throttle Throttle
	store    authstore.Store
	recorder *audit.Recorder
	cfg      config.LoginConfig
	flowOpts []login.Option
	logger   *zap.Logger
	now      func() time.Time

	mu    sync.Mutex
	flows map[string]*login.Flow
}

func NewLoginService(
	upstream Upstream,
	store authstore.Store,
	recorder *audit.Recorder,
	cfg config.LoginConfig,
	logger *zap.Logger,
	opts ...LoginOption,
) *LoginService {
	s := &LoginService{
		upstream: upstream,
		auth:     upstream,
		store:    store,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		flows:    make(map[string]*login.Flow),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.throttle != nil {
		s.auth = &throttledAuthenticator{Authenticator: upstream, throttle: s.throttle, logger: s.logger}
	}
	return s
}

func (s *LoginService) flow(sessionID string) *login.Flow {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.flows[sessionID]; ok {
		return f
	}
	persist := func(ctx context.Context, creds *models.Credentials) error {
		return s.store.Save(ctx, sessionID, creds)
	}
	opts := append([]login.Option{
		login.WithResendCooldown(s.cfg.ResendCooldown),
		login.WithClock(s.now),
	}, s.flowOpts...)
	f := login.NewFlow(s.auth, persist, s.logger.With(zap.String("component", "login_flow")), opts...)
	s.flows[sessionID] = f
	return f
}

func (s *LoginService) drop(sessionID string, f *login.Flow) {
	s.mu.Lock()
	if s.flows[sessionID] == f {
		delete(s.flows, sessionID)
	}
	s.mu.Unlock()
	f.Close()
}

// Status returns the session's login screen without creating a flow.
func (s *LoginService) Status(sessionID string) login.Snapshot {
	s.mu.Lock()
	f, ok := s.flows[sessionID]
	s.mu.Unlock()
	if !ok {
		return login.Snapshot{State: login.StateEmailEntry}
	}
	return f.Snapshot()
}

func (s *LoginService) SubmitEmail(ctx context.Context, sessionID, email string) (login.Snapshot, error) {
	snap, err := s.flow(sessionID).SubmitEmail(ctx, email)
	s.afterRequest(ctx, snap, err)
	return snap, err
}

func (s *LoginService) Resend(ctx context.Context, sessionID string) (login.Snapshot, error) {
	snap, err := s.flow(sessionID).Resend(ctx)
	if !errors.Is(err, login.ErrResendLocked) {
		s.afterRequest(ctx, snap, err)
	}
	return snap, err
}

// Edit applies a widget event. Completing the sixth digit verifies the
// code before Edit returns.
func (s *LoginService) Edit(ctx context.Context, sessionID string, a OTPAction) (login.Snapshot, error) {
	f := s.flow(sessionID)

	var (
		snap login.Snapshot
		err  error
	)
	switch a.Action {
	case "input":
		snap, err = f.Input(ctx, a.Cell, a.Value)
	case "key":
		snap, err = f.KeyDown(ctx, a.Cell, otpinput.Key(a.Key))
	case "paste":
		snap, err = f.Paste(ctx, a.Text)
	case "focus":
		snap, err = f.FocusCell(ctx, a.Cell)
	default:
		return f.Snapshot(), fmt.Errorf("%w: %q", ErrUnknownAction, a.Action)
	}

	switch {
	case snap.State == login.StateAuthenticated:
		creds := f.Credentials()
		s.record(ctx, audit.Entry{
			Action:     "login",
			Actor:      snap.Email,
			Resource:   "admin_session",
			ResourceID: creds.User.UserID.String(),
		})
		s.drop(sessionID, f)
	case err != nil && !errors.Is(err, login.ErrInvalidState):
		outcome := audit.OutcomeFailure
		if errors.Is(err, login.ErrNotAdmin) {
			outcome = audit.OutcomeDenied
		}
		s.record(ctx, audit.Entry{
			Action:   "login",
			Actor:    snap.Email,
			Resource: "admin_session",
			Outcome:  outcome,
			Detail:   err.Error(),
		})
	}
	return snap, err
}

func (s *LoginService) ChangeEmail(sessionID string) (login.Snapshot, error) {
	return s.flow(sessionID).ChangeEmail()
}

func (s *LoginService) afterRequest(ctx context.Context, snap login.Snapshot, err error) {
	switch {
	case err == nil && snap.State == login.StateOTPEntry:
		s.record(ctx, audit.Entry{Action: "otp_request", Actor: snap.Email, Resource: "admin_session"})
	case err != nil && !errors.Is(err, login.ErrInvalidEmail) && !errors.Is(err, login.ErrInvalidState):
		outcome := audit.OutcomeFailure
		if errors.Is(err, ErrThrottled) {
			outcome = audit.OutcomeDenied
		}
		s.record(ctx, audit.Entry{
			Action:   "otp_request",
			Actor:    snap.Email,
			Resource: "admin_session",
			Outcome:  outcome,
			Detail:   err.Error(),
		})
	}
}

// Credentials loads what the session signed in with.
func (s *LoginService) Credentials(ctx context.Context, sessionID string) (*models.Credentials, error) {
	return s.store.Load(ctx, sessionID)
}

// Logout always clears local credentials. Upstream failures are logged
// and otherwise ignored.
func (s *LoginService) Logout(ctx context.Context, sessionID string, creds *models.Credentials) error {
	if creds != nil && creds.AccessToken != "" {
		if err := s.upstream.Logout(ctx, creds.AccessToken); err != nil {
			s.logger.Warn("Upstream logout failed", util.ErrorField(err))
		}
	}
	if err := s.store.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}

	actor := ""
	if creds != nil {
		actor = creds.User.Email
	}
	s.record(ctx, audit.Entry{Action: "logout", Actor: actor, Resource: "admin_session"})
	return nil
}

// Sweep discards flows idle for longer than the configured TTL and
// returns how many were removed.
func (s *LoginService) Sweep() int {
	cutoff := s.now().Add(-s.cfg.FlowIdleTTL)

	s.mu.Lock()
	var stale []*login.Flow
	for id, f := range s.flows {
		if f.LastActive().Before(cutoff) {
			stale = append(stale, f)
			delete(s.flows, id)
		}
	}
	s.mu.Unlock()

	for _, f := range stale {
		f.Close()
	}
	if len(stale) > 0 {
		s.logger.Debug("Swept idle login flows", util.Int("count", len(stale)))
	}
	return len(stale)
}

// RunJanitor sweeps idle flows every interval until ctx is done.
func (s *LoginService) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *LoginService) ActiveFlows() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flows)
}

// Close stops every flow's countdown.
func (s *LoginService) Close() {
	s.mu.Lock()
	flows := s.flows
	s.flows = make(map[string]*login.Flow)
	s.mu.Unlock()

	for _, f := range flows {
		f.Close()
	}
}

func (s *LoginService) record(ctx context.Context, e audit.Entry) {
	if s.recorder != nil {
		s.recorder.Record(ctx, e)
	}
}

// Invalidate drops stored credentials after upstream rejected them.
func (s *LoginService) Invalidate(ctx context.Context, sessionID string) {
	if err := s.store.Clear(ctx, sessionID); err != nil {
		s.logger.Warn("Failed to clear rejected credentials", util.ErrorField(err))
	}
}

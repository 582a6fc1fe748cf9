// Package login drives one admin's OTP sign-in attempt: email entry, code
// request, six-digit entry, verification and the resend countdown.
package login

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"admin-console/internal/models"
	"admin-console/internal/otpinput"
	"admin-console/internal/util"

	"go.uber.org/zap"
)

type State string

const (
	StateEmailEntry    State = "EMAIL_ENTRY"
	StateRequestingOTP State = "REQUESTING_OTP"
	StateOTPEntry      State = "OTP_ENTRY"
	StateVerifying     State = "VERIFYING"
	StateAuthenticated State = "AUTHENTICATED"
	// StateFailedVerify is passed through on a rejected code and never observed at rest.
	StateFailedVerify State = "FAILED_VERIFY"
)

const DefaultResendCooldown = 60 * time.Second

const (
	msgRequestFailed = "Failed to send OTP"
	msgVerifyFailed  = "Invalid OTP"
	msgAdminOnly     = "Access denied! Admin credentials required."
	msgEmailRequired = "Please enter your email"
	msgEmailInvalid  = "Please enter a valid email address"
	msgCodeSent      = "OTP sent to your email"
	msgWelcome       = "Welcome back, Admin!"
	msgPersistFailed = "Signed in, but the session could not be saved. Please try again."
)

var (
	ErrInvalidState = errors.New("action not allowed in current login state")
	ErrResendLocked = errors.New("resend is locked until the countdown ends")
	ErrInvalidEmail = errors.New("invalid email")
	ErrNotAdmin     = errors.New("verified account is not an admin")
	ErrPersist      = errors.New("persist credentials")
)

// Authenticator talks to the upstream OTP endpoints.
type Authenticator interface {
	RequestOTP(ctx context.Context, email string) error
	VerifyOTP(ctx context.Context, email, code string) (*models.Credentials, error)
}

// PersistFunc stores issued credentials in a single write.
type PersistFunc func(ctx context.Context, creds *models.Credentials) error

// Errors carrying a message meant for the admin implement UserMessage.
type userMessager interface {
	UserMessage() string
}

type NoticeLevel string

const (
	NoticeError   NoticeLevel = "error"
	NoticeSuccess NoticeLevel = "success"
)

type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// Snapshot is a point-in-time copy of a flow.
type Snapshot struct {
	State     State                   `json:"state"`
	Email     string                  `json:"email"`
	Digits    [otpinput.Length]string `json:"otp_digits"`
	Focus     int                     `json:"focus"`
	Selected  bool                    `json:"selected"`
	Disabled  bool                    `json:"disabled"`
	Error     bool                    `json:"error"`
	ResendIn  int                     `json:"resend_countdown_seconds"`
	CanResend bool                    `json:"can_resend"`
	WidgetKey int                     `json:"widget_key"`
	Verified  bool                    `json:"verified"`
	Notice    *Notice                 `json:"notice,omitempty"`
}

type Option func(*Flow)

func WithTicker(fn TickerFunc) Option {
	return func(f *Flow) { f.countdown = NewCountdown(fn) }
}

func WithResendCooldown(d time.Duration) Option {
	return func(f *Flow) {
		if d >= time.Second {
			f.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// Flow is safe for concurrent use. Upstream calls run without the lock
// held; a result is dropped when the flow moved on while it was in flight.
type Flow struct {
	mu        sync.Mutex
	auth      Authenticator
	persist   PersistFunc
	logger    *zap.Logger
	cooldown  time.Duration
	countdown *Countdown
	now       func() time.Time

	state      State
	email      string
	widget     *otpinput.Widget
	widgetKey  int
	pending    string
	notice     *Notice
	epoch      uint64
	creds      *models.Credentials
	lastActive time.Time
}

func NewFlow(auth Authenticator, persist PersistFunc, logger *zap.Logger, opts ...Option) *Flow {
	f := &Flow{
		auth:     auth,
		persist:  persist,
		logger:   logger,
		cooldown: DefaultResendCooldown,
		now:      time.Now,
		state:    StateEmailEntry,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.countdown == nil {
		f.countdown = NewCountdown(nil)
	}
	if f.logger == nil {
		f.logger = zap.NewNop()
	}
	f.lastActive = f.now()
	return f
}

// SubmitEmail requests a code for email and moves to OTP entry on success.
func (f *Flow) SubmitEmail(ctx context.Context, email string) (Snapshot, error) {
	f.mu.Lock()
	f.touchLocked()
	if f.state != StateEmailEntry {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrInvalidState
	}

	email = util.NormalizeEmail(email)
	if email == "" || !util.IsValidEmail(email) {
		msg := msgEmailInvalid
		if email == "" {
			msg = msgEmailRequired
		}
		f.notice = &Notice{Level: NoticeError, Message: msg}
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, fmt.Errorf("%w: %s", ErrInvalidEmail, msg)
	}

	f.email = email
	f.state = StateRequestingOTP
	f.notice = nil
	f.epoch++
	epoch := f.epoch
	f.mu.Unlock()

	return f.request(ctx, epoch, email, StateEmailEntry)
}

// Resend requests a fresh code once the countdown has run out.
func (f *Flow) Resend(ctx context.Context) (Snapshot, error) {
	f.mu.Lock()
	f.touchLocked()
	if f.state != StateOTPEntry {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrInvalidState
	}
	if f.countdown.Remaining() > 0 {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrResendLocked
	}

	f.state = StateRequestingOTP
	f.notice = nil
	f.epoch++
	epoch := f.epoch
	email := f.email
	f.mu.Unlock()

	return f.request(ctx, epoch, email, StateOTPEntry)
}

func (f *Flow) request(ctx context.Context, epoch uint64, email string, onFailure State) (Snapshot, error) {
	err := f.auth.RequestOTP(ctx, email)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.epoch != epoch {
		f.logger.Debug("Discarding stale OTP request result", zap.String("email", email))
		return f.snapshotLocked(), nil
	}
	if err != nil {
		f.logger.Warn("OTP request failed", zap.String("email", email), zap.Error(err))
		f.state = onFailure
		f.notice = &Notice{Level: NoticeError, Message: Message(err, msgRequestFailed)}
		return f.snapshotLocked(), err
	}

	f.enterOTPEntryLocked()
	f.notice = &Notice{Level: NoticeSuccess, Message: msgCodeSent}
	return f.snapshotLocked(), nil
}

func (f *Flow) enterOTPEntryLocked() {
	f.state = StateOTPEntry
	f.remountLocked()
	f.countdown.Start(int(f.cooldown / time.Second))
}

func (f *Flow) remountLocked() {
	f.widgetKey++
	f.widget = otpinput.New(func(code string) { f.pending = code })
}

// Input forwards a cell edit to the code widget.
func (f *Flow) Input(ctx context.Context, cell int, value string) (Snapshot, error) {
	return f.edit(ctx, func(w *otpinput.Widget) { w.Input(cell, value) })
}

func (f *Flow) KeyDown(ctx context.Context, cell int, key otpinput.Key) (Snapshot, error) {
	return f.edit(ctx, func(w *otpinput.Widget) { w.KeyDown(cell, key) })
}

func (f *Flow) Paste(ctx context.Context, text string) (Snapshot, error) {
	return f.edit(ctx, func(w *otpinput.Widget) { w.Paste(text) })
}

func (f *Flow) FocusCell(ctx context.Context, cell int) (Snapshot, error) {
	return f.edit(ctx, func(w *otpinput.Widget) { w.Focus(cell) })
}

// edit applies op and, when it completes the code, verifies it before
// returning.
func (f *Flow) edit(ctx context.Context, op func(*otpinput.Widget)) (Snapshot, error) {
	f.mu.Lock()
	f.touchLocked()
	if f.state != StateOTPEntry {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, ErrInvalidState
	}

	f.pending = ""
	op(f.widget)
	code := f.pending
	f.pending = ""
	if code == "" {
		s := f.snapshotLocked()
		f.mu.Unlock()
		return s, nil
	}

	f.state = StateVerifying
	f.widget.SetDisabled(true)
	f.widget.SetError(false)
	f.notice = nil
	f.epoch++
	epoch := f.epoch
	email := f.email
	f.mu.Unlock()

	return f.verify(ctx, epoch, email, code)
}

func (f *Flow) verify(ctx context.Context, epoch uint64, email, code string) (Snapshot, error) {
	creds, err := f.auth.VerifyOTP(ctx, email, code)
	if err == nil && (creds == nil || !creds.User.IsAdmin()) {
		err = ErrNotAdmin
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.epoch != epoch {
		f.logger.Debug("Discarding stale OTP verify result", zap.String("email", email))
		return f.snapshotLocked(), nil
	}
	// Persisting under the lock keeps Close from landing between the
	// epoch check and the write.
	if err == nil && f.persist != nil {
		if perr := f.persist(ctx, creds); perr != nil {
			err = fmt.Errorf("%w: %w", ErrPersist, perr)
		}
	}
	if err != nil {
		f.logger.Warn("OTP verification failed", zap.String("email", email), zap.Error(err))
		f.state = StateFailedVerify
		f.notice = &Notice{Level: NoticeError, Message: verifyMessage(err)}
		f.remountLocked()
		f.widget.SetError(true)
		f.state = StateOTPEntry
		return f.snapshotLocked(), err
	}

	f.state = StateAuthenticated
	f.countdown.Stop()
	f.widget = nil
	f.creds = creds
	f.notice = &Notice{Level: NoticeSuccess, Message: msgWelcome}
	f.logger.Info("Admin authenticated", zap.String("email", email))
	return f.snapshotLocked(), nil
}

// ChangeEmail abandons code entry and returns to the email step.
func (f *Flow) ChangeEmail() (Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.touchLocked()

	if f.state != StateOTPEntry {
		return f.snapshotLocked(), ErrInvalidState
	}
	f.countdown.Stop()
	f.widget = nil
	f.state = StateEmailEntry
	f.notice = nil
	f.epoch++
	return f.snapshotLocked(), nil
}

// Close stops the countdown and invalidates in-flight calls.
func (f *Flow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countdown.Stop()
	f.epoch++
}

func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Credentials returns what verification issued, or nil before that.
func (f *Flow) Credentials() *models.Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creds
}

func (f *Flow) LastActive() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastActive
}

func (f *Flow) touchLocked() {
	f.lastActive = f.now()
}

func (f *Flow) snapshotLocked() Snapshot {
	s := Snapshot{
		State:     f.state,
		Email:     f.email,
		WidgetKey: f.widgetKey,
		Verified:  f.state == StateAuthenticated,
	}
	if f.notice != nil {
		n := *f.notice
		s.Notice = &n
	}
	if f.widget != nil {
		s.Digits = f.widget.Digits()
		s.Focus = f.widget.Focused()
		s.Selected = f.widget.Selected()
		s.Disabled = f.widget.Disabled()
		s.Error = f.widget.Error()
	}
	if f.state == StateOTPEntry {
		s.ResendIn = f.countdown.Remaining()
		s.CanResend = s.ResendIn == 0
	}
	return s
}

// Message returns the admin-facing text carried by err, or fallback.
func Message(err error, fallback string) string {
	var um userMessager
	if errors.As(err, &um) {
		if m := um.UserMessage(); m != "" {
			return m
		}
	}
	return fallback
}

func verifyMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotAdmin):
		return msgAdminOnly
	case errors.Is(err, ErrPersist):
		return msgPersistFailed
	}
	return Message(err, msgVerifyFailed)
}

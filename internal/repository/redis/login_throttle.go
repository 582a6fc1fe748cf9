package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"admin-console/internal/client"
)

const otpRequestPrefix = "admin_console:otp_requests:"

// LoginThrottle caps OTP requests per email within a fixed window.
type LoginThrottle struct {
	client *client.RedisClient
	limit  int
	window time.Duration
	logger *zap.Logger
}

func NewLoginThrottle(client *client.RedisClient, limit int, window time.Duration, logger *zap.Logger) *LoginThrottle {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoginThrottle{client: client, limit: limit, window: window, logger: logger}
}

// Allow counts one request for email and reports whether it is within the
// limit, plus how long until the window resets.
func (t *LoginThrottle) Allow(ctx context.Context, email string) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := otpRequestPrefix + strings.ToLower(strings.TrimSpace(email))
	count, err := t.client.IncrWithWindow(ctx, key, t.window)
	if err != nil {
		return false, 0, fmt.Errorf("failed to count OTP request: %w", err)
	}
	if int(count) <= t.limit {
		return true, 0, nil
	}

	retryAfter, err := t.client.TTL(ctx, key)
	if err != nil || retryAfter < 0 {
		retryAfter = t.window
	}
	t.logger.Warn("OTP request throttled", zap.String("email", email), zap.Int64("count", count))
	return false, retryAfter, nil
}

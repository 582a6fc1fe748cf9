package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"admin-console/internal/models"
)

type otpRequest struct {
	Email string `json:"email"`
}

type otpVerifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type verifiedUser struct {
	UserID   models.ID `json:"user_id"`
	Email    string    `json:"email"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Role     string    `json:"role"`
	UserRole string    `json:"user_role"`
}

type verifyResponse struct {
	AccessToken  string        `json:"accessToken"`
	RefreshToken string        `json:"refreshToken"`
	User         *verifiedUser `json:"user"`
}

// RequestOTP asks upstream to email a one-time code.
func (c *Client) RequestOTP(ctx context.Context, email string) error {
	_, err := c.do(ctx, http.MethodPost, "/admin-auth/request-otp", "", otpRequest{Email: email}, nil)
	return err
}

// VerifyOTP exchanges a code for credentials. Upstream reports the role
// as either role or user_role.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*models.Credentials, error) {
	var resp verifyResponse
	if _, err := c.do(ctx, http.MethodPost, "/admin-auth/verify-otp", "", otpVerifyRequest{Email: email, OTP: code}, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("%w: verify-otp: missing token or user", ErrMalformedResponse)
	}

	u := resp.User
	profile := models.AdminProfile{
		UserID:   u.UserID,
		Email:    u.Email,
		Username: u.Username,
		Name:     u.Name,
		Role:     u.Role,
	}
	if profile.Role == "" {
		profile.Role = u.UserRole
	}
	if profile.Name == "" {
		profile.Name = u.Username
	}
	if profile.Email == "" {
		profile.Email = email
	}

	return &models.Credentials{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		User:         profile,
		IssuedAt:     time.Now().UTC(),
	}, nil
}

// Logout invalidates token upstream.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.As(token).Logout(ctx)
}

package models

import "time"

const RoleAdmin = "admin"

// AdminProfile is the signed-in admin as persisted under adminUser.
type AdminProfile struct {
	UserID   ID     `json:"user_id,omitempty"`
	Email    string `json:"email"`
	Username string `json:"username,omitempty"`
	Name     string `json:"name,omitempty"`
	Role     string `json:"role"`
}

func (p AdminProfile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Credentials is what a successful OTP verification yields.
type Credentials struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	User         AdminProfile `json:"user"`
	IssuedAt     time.Time    `json:"issued_at"`
}

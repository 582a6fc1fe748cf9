package models

import (
	"sort"
	"strings"
	"time"
)

type User struct {
	UserID      ID        `json:"user_id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	UserRole    string    `json:"user_role"`
	IsActive    bool      `json:"is_active"`
	EmailVerify bool      `json:"email_verify"`
	CreatedAt   time.Time `json:"created_at"`
}

type UserStats struct {
	Total    int `json:"total"`
	Admin    int `json:"admin"`
	Student  int `json:"student"`
	Active   int `json:"active"`
	Verified int `json:"verified"`
}

// UserFilter narrows the users screen. Empty fields and role "all" match everything.
type UserFilter struct {
	Query string
	Role  string
}

func FilterUsers(users []User, f UserFilter) []User {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]User, 0, len(users))
	for _, u := range users {
		if f.Role != "" && f.Role != "all" && u.UserRole != f.Role {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(u.Username), q) &&
			!strings.Contains(strings.ToLower(u.Email), q) {
			continue
		}
		out = append(out, u)
	}
	return out
}

func ComputeUserStats(users []User) UserStats {
	stats := UserStats{Total: len(users)}
	for _, u := range users {
		switch u.UserRole {
		case "admin":
			stats.Admin++
		case "student":
			stats.Student++
		}
		if u.IsActive {
			stats.Active++
		}
		if u.EmailVerify {
			stats.Verified++
		}
	}
	return stats
}

// RecentUsers returns up to n users, newest first. The input is not modified.
func RecentUsers(users []User, n int) []User {
	sorted := make([]User, len(users))
	copy(sorted, users)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

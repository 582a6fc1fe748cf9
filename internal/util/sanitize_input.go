package util

import (
	"net/mail"
	"strings"
)

// NormalizeEmail trims surrounding whitespace. Case is preserved because
// upstream treats the address as entered.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

// IsValidEmail reports whether s is a bare RFC 5322 address.
func IsValidEmail(s string) bool {
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

// ContainsSuspicious flags markup and template characters in free text.
func ContainsSuspicious(s string) bool {
	lower := strings.ToLower(s)
	for _, c := range []string{"<", ">", "${", "{{", "script", "onerror", "onload"} {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"admin@mountgc.com", true},
		{"first.last+tag@example.co", true},
		{"", false},
		{"not-an-email", false},
		{"Admin <admin@mountgc.com>", false},
		{"admin @mountgc.com", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsValidEmail(tt.in), tt.in)
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "Admin@MountGC.com", NormalizeEmail("  Admin@MountGC.com \n"))
}

func TestContainsSuspicious(t *testing.T) {
	assert.True(t, ContainsSuspicious("<script>alert(1)</script>"))
	assert.True(t, ContainsSuspicious("hello ${name}"))
	assert.False(t, ContainsSuspicious("Visa application terms v2"))
}

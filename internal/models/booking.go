package models

import "strings"

type Booking struct {
	BookingID        ID     `json:"booking_id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Category         string `json:"category"`
	SessionType      string `json:"session_type"`
	BookingDate      string `json:"booking_date"`
	BookingTimeCST   string `json:"booking_time_cst"`
	OriginalTime     string `json:"original_time"`
	OriginalTimezone string `json:"original_timezone"`
	ZoomLink         string `json:"zoom_link,omitempty"`
}

// FilterBookings matches name, email or category, case-insensitively.
func FilterBookings(bookings []Booking, query string) []Booking {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return bookings
	}
	out := make([]Booking, 0, len(bookings))
	for _, b := range bookings {
		if strings.Contains(strings.ToLower(b.Name), q) ||
			strings.Contains(strings.ToLower(b.Email), q) ||
			strings.Contains(strings.ToLower(b.Category), q) {
			out = append(out, b)
		}
	}
	return out
}

package models

import "strings"

type TimeSlot struct {
	TimeslotID ID     `json:"timeslot_id"`
	Time       string `json:"time"`
	Timezone   string `json:"timezone"`
	IsActive   bool   `json:"is_active"`
}

// TimeSlotInput is the create/update body.
type TimeSlotInput struct {
	Time     string `json:"time"`
	Timezone string `json:"timezone"`
}

func (in TimeSlotInput) Validate() error {
	if strings.TrimSpace(in.Time) == "" {
		return invalid("time", "Please enter a time")
	}
	if strings.TrimSpace(in.Timezone) == "" {
		return invalid("timezone", "Please select a timezone")
	}
	return nil
}

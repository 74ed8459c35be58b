package models

import (
	"strings"
	"time"
)

// Medication is a user-registered medication with its dosing schedule.
type Medication struct {
	ID           string    `json:"id" validate:"required"`
	Name         string    `json:"name" validate:"required,max=120"`
	Dose         string    `json:"dose" validate:"required,max=120"`
	Times        []string  `json:"times" validate:"required,min=1,dive,required"` // "8:00 AM" or "20:00"
	DurationDays int       `json:"duration_days" validate:"min=1,max=3650"`
	StartDate    time.Time `json:"start_date" validate:"required"`
	ImageRef     string    `json:"image_ref,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// FormatTimes returns the scheduled times as a comma separated list
func (m *Medication) FormatTimes() string {
	return strings.Join(m.Times, ", ")
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// AvailabilitySlot is a fixed 45-minute bookable window. IsBooked is set
// exclusively by the booking flow; IsFree is the therapist-togglable pricing
// flag (free community slot vs paid).
type AvailabilitySlot struct {
	ID          uuid.UUID `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	TherapistID uuid.UUID `json:"therapist_id"`

	Date            string `json:"date"`      // YYYY-MM-DD
	StartTime       string `json:"startTime"` // HH:MM, 24h
	DurationMinutes int    `json:"duration_minutes"`
	IsBooked        bool   `json:"isBooked"`
	IsFree          bool   `json:"isFree"`
}

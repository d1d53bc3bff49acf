package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus lifecycle: SCHEDULED → COMPLETED | NO_SHOW | CANCELLED.
type SessionStatus string

const (
	SessionStatusScheduled SessionStatus = "SCHEDULED"
	SessionStatusCompleted SessionStatus = "COMPLETED"
	SessionStatusNoShow    SessionStatus = "NO_SHOW"
	SessionStatusCancelled SessionStatus = "CANCELLED"
)

// AttendanceStatus values mirror the clinical documentation form.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceLate    AttendanceStatus = "LATE"
	AttendanceNoShow  AttendanceStatus = "NO_SHOW"
)

// Session is a scheduled therapy session plus its clinical documentation.
// Documentation fields are only meaningful once the session is completed;
// a NO_SHOW suppresses them.
type Session struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChildID     uuid.UUID `json:"child_id"`
	TherapistID uuid.UUID `json:"therapist_id"`

	ScheduledAt     time.Time     `json:"scheduled_at"`
	DurationMinutes int           `json:"duration_minutes"`
	SessionType     string        `json:"session_type"`
	Status          SessionStatus `json:"status"`
	Rate            float64       `json:"rate"`
	IsPaid          bool          `json:"is_paid"`

	// Clinical documentation
	AttendanceStatus  string `json:"attendance_status,omitempty"`
	OverallProgress   string `json:"overall_progress,omitempty"`
	PatientEngagement string `json:"patient_engagement,omitempty"`
	RiskAssessment    string `json:"risk_assessment,omitempty"`
	FocusAreas        string `json:"focus_areas,omitempty"`
	SessionNotes      string `json:"session_notes,omitempty"`
	NextSessionGoals  string `json:"next_session_goals,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// RequestStatus transitions: pending → accepted | rejected. Only pending
// requests are shown to therapists.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// PatientRequest is a parent's ask for a therapist to take on a child.
type PatientRequest struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ParentID    uuid.UUID `json:"parent_id"`
	ChildID     uuid.UUID `json:"child_id"`
	TherapistID uuid.UUID `json:"therapist_id"`

	Status  RequestStatus `json:"status"`
	Message string        `json:"message,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Role determines which dashboard and endpoints a user may access.
type Role string

const (
	RoleParent    Role = "parent"
	RoleTherapist Role = "therapist"
	RoleManager   Role = "manager"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Role  Role   `json:"role"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`

	IsActive bool `json:"is_active"`
}

// Child is a patient record owned by a parent. TherapistID is set when a
// patient request is accepted.
type Child struct {
	ID          uuid.UUID  `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	ParentID    uuid.UUID  `json:"parent_id"`
	TherapistID *uuid.UUID `json:"therapist_id,omitempty"`
	Name        string     `json:"name"`
	DateOfBirth *time.Time `json:"date_of_birth,omitempty"`
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus transitions: pending → under_review (manual), and
// {pending | under_review} → {approved | rejected}. Approved and rejected
// are terminal.
type ApplicationStatus string

const (
	ApplicationPending     ApplicationStatus = "pending"
	ApplicationUnderReview ApplicationStatus = "under_review"
	ApplicationApproved    ApplicationStatus = "approved"
	ApplicationRejected    ApplicationStatus = "rejected"
)

// ReferenceContact is the professional reference embedded in an application.
type ReferenceContact struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation"`
}

type TherapistApplication struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`

	LicenseNumber     string `json:"license_number"`
	LicenseAuthority  string `json:"license_authority,omitempty"`
	YearsOfExperience int    `json:"years_of_experience"`

	HighestQualification string `json:"highest_qualification,omitempty"`
	Institution          string `json:"institution,omitempty"`
	Specializations      string `json:"specializations,omitempty"`

	LicenseDocumentURL string `json:"license_document_url,omitempty"`
	DegreeDocumentURL  string `json:"degree_document_url,omitempty"`

	Reference ReferenceContact `json:"reference"`

	Status          ApplicationStatus `json:"status"`
	ReviewedAt      *time.Time        `json:"reviewed_at,omitempty"`
	ReviewedBy      *uuid.UUID        `json:"reviewed_by,omitempty"`
	RejectionReason string            `json:"rejection_reason,omitempty"`
}

// IsTerminal reports whether the application can no longer change status.
func (s ApplicationStatus) IsTerminal() bool {
	return s == ApplicationApproved || s == ApplicationRejected
}

// Package appreview implements the search, filtering, and status-transition
// rules for therapist application review.
package appreview

import (
	"errors"
	"strings"

	"github.com/sparkslk/sparks-backend/internal/models"
)

var (
	// ErrTerminalStatus means the application is approved or rejected and
	// cannot change again.
	ErrTerminalStatus = errors.New("application status is terminal")
	// ErrInvalidTransition means the requested status change is not allowed.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrReasonRequired means a rejection was attempted without a reason.
	ErrReasonRequired = errors.New("rejection requires a reason")
)

// Matches reports whether the application satisfies a case-insensitive
// substring search over name, email, and license number, intersected with a
// status-equality filter. Empty search or status means "no constraint".
func Matches(app models.TherapistApplication, search string, status models.ApplicationStatus) bool {
	if status != "" && app.Status != status {
		return false
	}
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(app.Name), needle) ||
		strings.Contains(strings.ToLower(app.Email), needle) ||
		strings.Contains(strings.ToLower(app.LicenseNumber), needle)
}

// Filter applies Matches across a list.
func Filter(apps []models.TherapistApplication, search string, status models.ApplicationStatus) []models.TherapistApplication {
	out := make([]models.TherapistApplication, 0, len(apps))
	for _, app := range apps {
		if Matches(app, search, status) {
			out = append(out, app)
		}
	}
	return out
}

// ValidateTransition enforces the review state machine:
// pending → under_review, and {pending, under_review} → {approved, rejected}.
// Rejection must carry a non-empty reason.
func ValidateTransition(current, target models.ApplicationStatus, rejectionReason string) error {
	if current.IsTerminal() {
		return ErrTerminalStatus
	}

	switch target {
	case models.ApplicationUnderReview:
		if current != models.ApplicationPending {
			return ErrInvalidTransition
		}
	case models.ApplicationApproved:
		// allowed from pending or under_review
	case models.ApplicationRejected:
		if strings.TrimSpace(rejectionReason) == "" {
			return ErrReasonRequired
		}
	default:
		return ErrInvalidTransition
	}
	return nil
}

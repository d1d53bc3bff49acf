package appreview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkslk/sparks-backend/internal/models"
)

func apps() []models.TherapistApplication {
	return []models.TherapistApplication{
		{Name: "Dr. Sarah Johnson", Email: "sarah.j@clinic.lk", LicenseNumber: "SLMC-1001", Status: models.ApplicationPending},
		{Name: "Dr. Michael Chen", Email: "mchen@clinic.lk", LicenseNumber: "SLMC-1002", Status: models.ApplicationUnderReview},
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	out := Filter(apps(), "sarah", "")
	require.Len(t, out, 1)
	assert.Equal(t, "Dr. Sarah Johnson", out[0].Name)

	out = Filter(apps(), "SARAH", "")
	require.Len(t, out, 1)

	// license number is searchable too
	out = Filter(apps(), "slmc-1002", "")
	require.Len(t, out, 1)
	assert.Equal(t, "Dr. Michael Chen", out[0].Name)
}

func TestSearchIntersectsStatusFilter(t *testing.T) {
	out := Filter(apps(), "dr", models.ApplicationUnderReview)
	require.Len(t, out, 1)
	assert.Equal(t, "Dr. Michael Chen", out[0].Name)

	out = Filter(apps(), "sarah", models.ApplicationUnderReview)
	assert.Empty(t, out)
}

func TestRejectionRequiresReason(t *testing.T) {
	err := ValidateTransition(models.ApplicationPending, models.ApplicationRejected, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	err = ValidateTransition(models.ApplicationPending, models.ApplicationRejected, "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	err = ValidateTransition(models.ApplicationPending, models.ApplicationRejected, "Incomplete license documentation")
	assert.NoError(t, err)
}

func TestTerminalStatesAreFrozen(t *testing.T) {
	for _, terminal := range []models.ApplicationStatus{models.ApplicationApproved, models.ApplicationRejected} {
		err := ValidateTransition(terminal, models.ApplicationUnderReview, "")
		assert.ErrorIs(t, err, ErrTerminalStatus)
	}
}

func TestTransitionGraph(t *testing.T) {
	// pending → under_review is the only path to under_review
	assert.NoError(t, ValidateTransition(models.ApplicationPending, models.ApplicationUnderReview, ""))
	assert.ErrorIs(t, ValidateTransition(models.ApplicationUnderReview, models.ApplicationUnderReview, ""), ErrInvalidTransition)

	// approval allowed from both live states
	assert.NoError(t, ValidateTransition(models.ApplicationPending, models.ApplicationApproved, ""))
	assert.NoError(t, ValidateTransition(models.ApplicationUnderReview, models.ApplicationApproved, ""))

	// unknown target
	assert.ErrorIs(t, ValidateTransition(models.ApplicationPending, "archived", ""), ErrInvalidTransition)
}

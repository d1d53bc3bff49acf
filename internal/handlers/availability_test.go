package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/schedule"
	"github.com/sparkslk/sparks-backend/internal/services"
)

func therapistSession(t *testing.T) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token, err := services.CreateSession(userID, models.RoleTherapist)
	require.NoError(t, err)
	return userID, token
}

func authedRequest(t *testing.T, handler http.HandlerFunc, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func availabilityRows(userID uuid.UUID, date string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "created_at", "therapist_id", "slot_date", "start_time",
		"duration_minutes", "is_booked", "is_free",
	}).AddRow(uuid.NewString(), time.Now(), userID.String(), date, "10:00", 45, false, true)
}

func TestGetAvailabilityServesSecondReadFromCache(t *testing.T) {
	mock, _ := setupHandlerTest(t)
	userID, token := therapistSession(t)

	week := schedule.WeekStart(time.Now().AddDate(0, 0, 14))
	weekStr := week.Format("2006-01-02")

	// Only ONE database read is expected across the two GETs
	mock.ExpectQuery("SELECT id, created_at, therapist_id").
		WillReturnRows(availabilityRows(userID, weekStr))

	rec := authedRequest(t, GetAvailability, http.MethodGet,
		"/api/therapist/availability?weekStart="+weekStr, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec2 := authedRequest(t, GetAvailability, http.MethodGet,
		"/api/therapist/availability?weekStart="+weekStr, token, nil)
	require.Equal(t, http.StatusOK, rec2.Code)

	var body struct {
		Slots []map[string]interface{} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &body))
	assert.Len(t, body.Slots, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSlotInvalidatesCachedWeek(t *testing.T) {
	mock, mr := setupHandlerTest(t)
	userID, token := therapistSession(t)

	week := schedule.WeekStart(time.Now().AddDate(0, 0, 14))
	weekStr := week.Format("2006-01-02")

	mock.ExpectQuery("SELECT id, created_at, therapist_id").
		WillReturnRows(availabilityRows(userID, weekStr))

	rec := authedRequest(t, GetAvailability, http.MethodGet,
		"/api/therapist/availability?weekStart="+weekStr, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, mr.Exists(services.CacheKeyPrefix+availabilityCacheKey(userID, weekStr)))

	mock.ExpectQuery("SELECT start_time FROM availability_slots").
		WillReturnRows(sqlmock.NewRows([]string{"start_time"}))
	mock.ExpectExec("INSERT INTO availability_slots").
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec = authedRequest(t, CreateSlot, http.MethodPost, "/api/therapist/availability", token,
		map[string]interface{}{"date": weekStr, "startTime": "11:00", "isFree": true})
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.False(t, mr.Exists(services.CacheKeyPrefix+availabilityCacheKey(userID, weekStr)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkAddSlotsRejectsOversizedRange(t *testing.T) {
	setupHandlerTest(t)
	_, token := therapistSession(t)

	rec := authedRequest(t, BulkAddSlots, http.MethodPost, "/api/therapist/availability/bulk-add", token,
		map[string]interface{}{
			"startDate":  "0001-01-01",
			"endDate":    "9999-12-31",
			"daysOfWeek": []int{},
			"startTimes": []string{"10:00"},
			"isFree":     true,
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Contains(t, body.Message, "date range")
}

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/services"
)

func setupHandlerTest(t *testing.T) (sqlmock.Sqlmock, *miniredis.Miniredis) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	database.PostgresDB = db

	mr := miniredis.RunT(t)
	database.RedisClient = redis.NewClient(&redis.Options{Addr: mr.Addr()})

	return mock, mr
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestForgotPasswordIssuesOTPForKnownEmail(t *testing.T) {
	mock, mr := setupHandlerTest(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("parent@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))

	rec := postJSON(t, ForgotPassword, "/api/mobile/forgot-password",
		map[string]string{"email": "Parent@Example.com"})

	assert.Equal(t, http.StatusOK, rec.Code)

	code, err := mr.Get(services.OTPKeyPrefix + "parent@example.com")
	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestForgotPasswordUnknownEmailLooksTheSame(t *testing.T) {
	mock, mr := setupHandlerTest(t)

	mock.ExpectQuery("SELECT id FROM users WHERE email").
		WithArgs("nobody@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := postJSON(t, ForgotPassword, "/api/mobile/forgot-password",
		map[string]string{"email": "nobody@example.com"})

	assert.Equal(t, http.StatusOK, rec.Code)

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)

	// No code stored for an unknown account
	assert.False(t, mr.Exists(services.OTPKeyPrefix+"nobody@example.com"))
}

func TestForgotPasswordCooldownReturns429WithRemaining(t *testing.T) {
	setupHandlerTest(t)

	// Arm the cooldown as a prior request would have
	_, err := services.RequestOTP(context.Background(), "parent@example.com")
	require.NoError(t, err)

	rec := postJSON(t, ForgotPassword, "/api/mobile/forgot-password",
		map[string]string{"email": "parent@example.com"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	remaining, ok := body["remainingSeconds"].(float64)
	require.True(t, ok, "429 body must carry remainingSeconds")
	assert.Greater(t, remaining, float64(0))
	assert.LessOrEqual(t, remaining, float64(60))
}

func TestVerifyForgotPasswordOTPMintsToken(t *testing.T) {
	setupHandlerTest(t)

	code, err := services.RequestOTP(context.Background(), "parent@example.com")
	require.NoError(t, err)

	rec := postJSON(t, VerifyForgotPasswordOTP, "/api/mobile/forgot-password/verify",
		map[string]string{"email": "parent@example.com", "otp": code})

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	token, _ := body["verificationToken"].(string)
	assert.NotEmpty(t, token)
}

func TestVerifyForgotPasswordOTPWrongCode(t *testing.T) {
	setupHandlerTest(t)

	_, err := services.RequestOTP(context.Background(), "parent@example.com")
	require.NoError(t, err)

	rec := postJSON(t, VerifyForgotPasswordOTP, "/api/mobile/forgot-password/verify",
		map[string]string{"email": "parent@example.com", "otp": "000000"})

	// A specific wrong 6-digit guess can collide with the real code, but not
	// in a fresh test run where the code is random; mismatch is the expected path
	if rec.Code == http.StatusOK {
		t.Skip("random code collided with the guess")
	}
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetForgotPasswordRejectsWeakPassword(t *testing.T) {
	setupHandlerTest(t)

	rec := postJSON(t, ResetForgotPassword, "/api/mobile/forgot-password/reset",
		map[string]string{
			"email":             "parent@example.com",
			"verificationToken": "whatever",
			"newPassword":       "short",
		})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetForgotPasswordUpdatesHashAndKillsSessions(t *testing.T) {
	mock, mr := setupHandlerTest(t)
	ctx := context.Background()

	code, err := services.RequestOTP(ctx, "parent@example.com")
	require.NoError(t, err)
	token, err := services.VerifyOTP(ctx, "parent@example.com", code)
	require.NoError(t, err)

	userID := uuid.New()
	sessionToken, err := services.CreateSession(userID, "parent")
	require.NoError(t, err)

	mock.ExpectQuery("UPDATE users SET password_hash").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(userID.String()))

	rec := postJSON(t, ResetForgotPassword, "/api/mobile/forgot-password/reset",
		map[string]string{
			"email":             "parent@example.com",
			"verificationToken": token,
			"newPassword":       "NewPassw0rd",
		})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Token is single use and every session is gone
	assert.False(t, mr.Exists(services.ResetTokenKeyPrefix+"parent@example.com"))
	_, valid, err := services.ValidateSession(sessionToken)
	require.NoError(t, err)
	assert.False(t, valid)
}

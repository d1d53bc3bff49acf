package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/services"
	"github.com/sparkslk/sparks-backend/pkg/utils"
)

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type VerifyOTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type ResetPasswordRequest struct {
	Email             string `json:"email"`
	VerificationToken string `json:"verificationToken"`
	NewPassword       string `json:"newPassword"`
}

// ForgotPassword issues a 6-digit OTP for the email. The response does not
// reveal whether the email is registered; only the 429 cooldown case is
// distinguishable, and it carries remainingSeconds for the client timer.
func ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		writeError(w, http.StatusBadRequest, "Email is required")
		return
	}

	ctx := r.Context()

	if remaining := services.OTPCooldownRemaining(ctx, email); remaining > 0 {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"success":          false,
			"message":          "Please wait before requesting another code",
			"remainingSeconds": remaining,
		})
		return
	}

	var userID uuid.UUID
	err := database.PostgresDB.QueryRow("SELECT id FROM users WHERE email = $1", email).Scan(&userID)
	if err == sql.ErrNoRows {
		// Don't reveal whether the email exists
		writeSuccess(w, http.StatusOK, "If an account exists for this email, a code has been sent", nil)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	code, err := services.RequestOTP(ctx, email)
	if err != nil {
		if errors.Is(err, services.ErrOTPCooldown) {
			writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
				"success":          false,
				"message":          "Please wait before requesting another code",
				"remainingSeconds": services.OTPCooldownRemaining(ctx, email),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to generate verification code")
		return
	}

	if err := services.SendOTPEmail(ctx, email, code); err != nil {
		log.Printf("failed to send OTP email to %s: %v", email, err)
	}

	writeSuccess(w, http.StatusOK, "If an account exists for this email, a code has been sent", nil)
}

// VerifyForgotPasswordOTP checks the submitted code and returns an opaque
// verification token for the reset step.
func VerifyForgotPasswordOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	otp := strings.TrimSpace(req.OTP)
	if email == "" || otp == "" {
		writeError(w, http.StatusBadRequest, "Email and OTP are required")
		return
	}
	if len(otp) != 6 {
		writeError(w, http.StatusBadRequest, "OTP must be 6 digits")
		return
	}

	token, err := services.VerifyOTP(r.Context(), email, otp)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOTPExpired):
			writeError(w, http.StatusBadRequest, "Verification code has expired. Please request a new one.")
		case errors.Is(err, services.ErrOTPTooManyAttempts):
			writeError(w, http.StatusTooManyRequests, "Too many incorrect attempts. Please request a new code.")
		case errors.Is(err, services.ErrOTPMismatch):
			writeError(w, http.StatusBadRequest, "Incorrect verification code")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to verify code")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":           true,
		"message":           "Code verified",
		"verificationToken": token,
	})
}

// ResetForgotPassword sets a new password given a valid verification token,
// then invalidates every session for the user.
func ResetForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.VerificationToken == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "Email, verification token and new password are required")
		return
	}

	if err := utils.ValidatePasswordStrength(req.NewPassword); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := services.ConsumeResetToken(r.Context(), email, req.VerificationToken); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired verification token. Please restart the reset process.")
		return
	}

	hashed, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	var userID uuid.UUID
	err = database.PostgresDB.QueryRow(`
		UPDATE users SET password_hash = $1, updated_at = $2 WHERE email = $3 RETURNING id
	`, hashed, time.Now(), email).Scan(&userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update password")
		return
	}

	// Force re-login everywhere with the new password
	services.InvalidateUserSessions(userID)

	writeSuccess(w, http.StatusOK, "Password has been reset. Please sign in with your new password.", nil)
}

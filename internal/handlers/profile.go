package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/services"
)

type TherapistProfileRequest struct {
	Bio            string  `json:"bio"`
	Specialization string  `json:"specialization"`
	Languages      string  `json:"languages"`
	HourlyRate     float64 `json:"hourlyRate"`
}

var profileCache services.CacheService

func profileCacheKey(userID uuid.UUID) string {
	return "therapist_profile:" + userID.String()
}

// GetTherapistProfile returns the caller's profile, creating nothing.
// Profiles change rarely, so reads go through the Redis cache.
// GET /api/therapist/profile
func GetTherapistProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	var cached map[string]interface{}
	if hit, err := profileCache.Get(profileCacheKey(session.UserID), &cached); err == nil && hit {
		writeSuccess(w, http.StatusOK, "", cached)
		return
	}

	var bio, specialization, languages, imageURL string
	var hourlyRate float64
	var isComplete bool
	var updatedAt time.Time

	err := database.PostgresDB.QueryRow(`
		SELECT COALESCE(bio, ''), COALESCE(specialization, ''), COALESCE(languages, ''),
		       hourly_rate, COALESCE(image_url, ''), is_complete, updated_at
		FROM therapist_profiles WHERE user_id = $1
	`, session.UserID).Scan(&bio, &specialization, &languages, &hourlyRate, &imageURL, &isComplete, &updatedAt)
	if err == sql.ErrNoRows {
		writeSuccess(w, http.StatusOK, "", map[string]interface{}{
			"isComplete": false,
		})
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	profile := map[string]interface{}{
		"bio":            bio,
		"specialization": specialization,
		"languages":      languages,
		"hourlyRate":     hourlyRate,
		"imageUrl":       imageURL,
		"isComplete":     isComplete,
		"updatedAt":      updatedAt,
	}
	profileCache.Set(profileCacheKey(session.UserID), profile)

	writeSuccess(w, http.StatusOK, "", profile)
}

// UpsertTherapistProfile creates or updates the caller's profile fields.
// POST /api/therapist/profile
func UpsertTherapistProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	var req TherapistProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.HourlyRate < 0 {
		writeError(w, http.StatusBadRequest, "Hourly rate cannot be negative")
		return
	}

	_, err := database.PostgresDB.Exec(`
		INSERT INTO therapist_profiles (user_id, updated_at, bio, specialization, languages, hourly_rate)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		ON CONFLICT (user_id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			bio = EXCLUDED.bio,
			specialization = EXCLUDED.specialization,
			languages = EXCLUDED.languages,
			hourly_rate = EXCLUDED.hourly_rate
	`, session.UserID, time.Now(), req.Bio, req.Specialization, req.Languages, req.HourlyRate)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save profile")
		return
	}

	profileCache.Delete(profileCacheKey(session.UserID))
	writeSuccess(w, http.StatusOK, "Profile saved", nil)
}

// UploadProfileImage stores a profile photo via Cloudinary.
// POST /api/therapist/profile/image (multipart, field "image")
func UploadProfileImage(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["image"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "Image file is required")
		return
	}

	if cloudinaryService == nil {
		writeError(w, http.StatusInternalServerError, "File upload service not available")
		return
	}

	url, err := cloudinaryService.UploadFileFromHeader(r.Context(), headers[0], "sparks/profiles")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to upload image")
		return
	}

	_, err = database.PostgresDB.Exec(`
		INSERT INTO therapist_profiles (user_id, updated_at, image_url)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET updated_at = EXCLUDED.updated_at, image_url = EXCLUDED.image_url
	`, session.UserID, time.Now(), url)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save image")
		return
	}

	profileCache.Delete(profileCacheKey(session.UserID))
	writeSuccess(w, http.StatusOK, "Image uploaded", map[string]interface{}{"imageUrl": url})
}

// CompleteTherapistProfile marks the profile ready for the public directory.
// Requires bio, specialization and a positive rate to already be saved.
// POST /api/therapist/profile/complete
func CompleteTherapistProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	var bio, specialization sql.NullString
	var hourlyRate float64
	err := database.PostgresDB.QueryRow(`
		SELECT bio, specialization, hourly_rate FROM therapist_profiles WHERE user_id = $1
	`, session.UserID).Scan(&bio, &specialization, &hourlyRate)
	if err == sql.ErrNoRows {
		writeError(w, http.StatusBadRequest, "Profile has not been filled in yet")
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if !bio.Valid || !specialization.Valid || hourlyRate <= 0 {
		writeError(w, http.StatusBadRequest, "Bio, specialization, and hourly rate are required before completing the profile")
		return
	}

	_, err = database.PostgresDB.Exec(`
		UPDATE therapist_profiles SET is_complete = TRUE, updated_at = $1 WHERE user_id = $2
	`, time.Now(), session.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to complete profile")
		return
	}

	profileCache.Delete(profileCacheKey(session.UserID))
	writeSuccess(w, http.StatusOK, "Profile completed", nil)
}

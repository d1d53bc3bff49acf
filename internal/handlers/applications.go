package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/appreview"
	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/services"
	"github.com/sparkslk/sparks-backend/pkg/utils"
)

var cloudinaryService *services.CloudinaryService

// InitCloudinaryService wires the shared Cloudinary uploader. Called from main.
func InitCloudinaryService(cloudName, apiKey, apiSecret string) error {
	svc, err := services.NewCloudinaryService(cloudName, apiKey, apiSecret)
	if err != nil {
		return err
	}
	cloudinaryService = svc
	return nil
}

type ReviewApplicationRequest struct {
	Action          string `json:"action"` // "start_review" | "approve" | "reject"
	RejectionReason string `json:"rejectionReason,omitempty"`
}

const applicationColumns = `id, created_at, updated_at, name, email, phone,
	license_number, COALESCE(license_authority, ''), years_of_experience,
	COALESCE(highest_qualification, ''), COALESCE(institution, ''),
	COALESCE(specializations, ''), COALESCE(license_document_url, ''),
	COALESCE(degree_document_url, ''), COALESCE(reference_name, ''),
	COALESCE(reference_phone, ''), COALESCE(reference_relation, ''),
	status, reviewed_at, reviewed_by, COALESCE(rejection_reason, '')`

func scanApplicationRows(rows *sql.Rows) ([]models.TherapistApplication, error) {
	var apps []models.TherapistApplication
	for rows.Next() {
		var app models.TherapistApplication
		var reviewedAt sql.NullTime
		var reviewedBy sql.NullString

		err := rows.Scan(&app.ID, &app.CreatedAt, &app.UpdatedAt, &app.Name,
			&app.Email, &app.Phone, &app.LicenseNumber, &app.LicenseAuthority,
			&app.YearsOfExperience, &app.HighestQualification, &app.Institution,
			&app.Specializations, &app.LicenseDocumentURL, &app.DegreeDocumentURL,
			&app.Reference.Name, &app.Reference.Phone, &app.Reference.Relation,
			&app.Status, &reviewedAt, &reviewedBy, &app.RejectionReason)
		if err != nil {
			return nil, err
		}

		if reviewedAt.Valid {
			t := reviewedAt.Time
			app.ReviewedAt = &t
		}
		if reviewedBy.Valid {
			if id, err := uuid.Parse(reviewedBy.String); err == nil {
				app.ReviewedBy = &id
			}
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// SubmitApplication handles a prospective therapist's application with
// multipart/form-data (includes licence and degree document uploads).
// POST /api/therapist/applications
func SubmitApplication(w http.ResponseWriter, r *http.Request) {
	// 20MB for both documents plus form fields
	if err := r.ParseMultipartForm(20 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	email := strings.ToLower(strings.TrimSpace(r.FormValue("email")))
	phone := strings.TrimSpace(r.FormValue("phone"))
	licenseNumber := strings.TrimSpace(r.FormValue("licenseNumber"))
	licenseAuthority := r.FormValue("licenseAuthority")
	highestQualification := r.FormValue("highestQualification")
	institution := r.FormValue("institution")
	specializations := r.FormValue("specializations")
	referenceName := r.FormValue("referenceName")
	referencePhone := r.FormValue("referencePhone")
	referenceRelation := r.FormValue("referenceRelation")
	yearsOfExperience, _ := strconv.Atoi(r.FormValue("yearsOfExperience"))

	if name == "" || email == "" || phone == "" || licenseNumber == "" {
		writeError(w, http.StatusBadRequest, "Name, email, phone, and license number are required")
		return
	}

	// One live application per email
	var existingID uuid.UUID
	err := database.PostgresDB.QueryRow(`
		SELECT id FROM therapist_applications
		WHERE email = $1 AND status IN ($2, $3)
	`, email, models.ApplicationPending, models.ApplicationUnderReview).Scan(&existingID)
	if err == nil {
		writeError(w, http.StatusConflict, "An application for this email is already under review")
		return
	} else if err != sql.ErrNoRows {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	var licenseURL, degreeURL string
	if cloudinaryService != nil && r.MultipartForm != nil {
		if headers := r.MultipartForm.File["licenseDocument"]; len(headers) > 0 {
			url, err := cloudinaryService.UploadFileFromHeader(r.Context(), headers[0], "sparks/applications")
			if err != nil {
				log.Printf("license document upload failed: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to upload license document")
				return
			}
			licenseURL = url
		}
		if headers := r.MultipartForm.File["degreeDocument"]; len(headers) > 0 {
			url, err := cloudinaryService.UploadFileFromHeader(r.Context(), headers[0], "sparks/applications")
			if err != nil {
				log.Printf("degree document upload failed: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to upload degree document")
				return
			}
			degreeURL = url
		}
	}

	appID := uuid.New()
	now := time.Now()
	_, err = database.PostgresDB.Exec(`
		INSERT INTO therapist_applications (id, created_at, updated_at, name, email, phone,
			license_number, license_authority, years_of_experience, highest_qualification,
			institution, specializations, license_document_url, degree_document_url,
			reference_name, reference_phone, reference_relation, status)
		VALUES ($1, $2, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''),
			NULLIF($10, ''), NULLIF($11, ''), NULLIF($12, ''), NULLIF($13, ''),
			NULLIF($14, ''), NULLIF($15, ''), NULLIF($16, ''), $17)
	`, appID, now, name, email, phone, licenseNumber, licenseAuthority,
		yearsOfExperience, highestQualification, institution, specializations,
		licenseURL, degreeURL, referenceName, referencePhone, referenceRelation,
		models.ApplicationPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to submit application")
		return
	}

	writeSuccess(w, http.StatusCreated, "Application submitted. We will contact you after review.", map[string]interface{}{
		"id": appID.String(),
	})
}

// GetApplications lists applications for manager review, filtered by
// free-text search (name/email/license, case-insensitive substring)
// intersected with a status filter.
// GET /api/manager/applications?search=&status=
func GetApplications(w http.ResponseWriter, r *http.Request) {
	_, ok := requireRole(w, r, models.RoleManager)
	if !ok {
		return
	}

	rows, err := database.PostgresDB.Query(
		"SELECT " + applicationColumns + " FROM therapist_applications ORDER BY created_at DESC")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	apps, err := scanApplicationRows(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	search := r.URL.Query().Get("search")
	status := models.ApplicationStatus(r.URL.Query().Get("status"))
	filtered := appreview.Filter(apps, search, status)

	writeSuccess(w, http.StatusOK, "", filtered)
}

// ReviewApplication moves an application through the review state machine.
// Approval provisions the therapist's user account with an unguessable
// placeholder password; the therapist sets a real one via the
// forgot-password flow.
// PATCH /api/manager/applications/{id}/review
func ReviewApplication(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleManager)
	if !ok {
		return
	}

	appID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid application id")
		return
	}

	var req ReviewApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var target models.ApplicationStatus
	switch req.Action {
	case "start_review":
		target = models.ApplicationUnderReview
	case "approve":
		target = models.ApplicationApproved
	case "reject":
		target = models.ApplicationRejected
	default:
		writeError(w, http.StatusBadRequest, `Action must be "start_review", "approve", or "reject"`)
		return
	}

	tx, err := database.PostgresDB.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var current models.ApplicationStatus
	var name, email, phone string
	err = tx.QueryRow(`
		SELECT status, name, email, phone FROM therapist_applications
		WHERE id = $1 FOR UPDATE
	`, appID).Scan(&current, &name, &email, &phone)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Application not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if err := appreview.ValidateTransition(current, target, req.RejectionReason); err != nil {
		switch err {
		case appreview.ErrTerminalStatus:
			writeError(w, http.StatusConflict, "Application has already been "+string(current))
		case appreview.ErrReasonRequired:
			writeError(w, http.StatusBadRequest, "A rejection reason is required")
		default:
			writeError(w, http.StatusBadRequest, "Invalid status transition")
		}
		return
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE therapist_applications
		SET status = $1, updated_at = $2, reviewed_at = $2, reviewed_by = $3,
			rejection_reason = NULLIF($4, '')
		WHERE id = $5
	`, target, now, session.UserID, strings.TrimSpace(req.RejectionReason), appID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update application")
		return
	}

	// Approval provisions the therapist's account unless one already exists
	if target == models.ApplicationApproved {
		var existing uuid.UUID
		err = tx.QueryRow("SELECT id FROM users WHERE email = $1", email).Scan(&existing)
		if err == sql.ErrNoRows {
			tempPassword := uuid.NewString()
			hashed, hashErr := utils.HashPassword(tempPassword)
			if hashErr != nil {
				writeError(w, http.StatusInternalServerError, "Failed to provision account")
				return
			}
			_, err = tx.Exec(`
				INSERT INTO users (id, created_at, updated_at, name, email, password_hash, role, phone)
				VALUES ($1, $2, $2, $3, $4, $5, $6, $7)
			`, uuid.New(), now, name, email, hashed, models.RoleTherapist, phone)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Failed to provision account")
				return
			}
		} else if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeSuccess(w, http.StatusOK, "Application "+string(target), nil)
}

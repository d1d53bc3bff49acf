package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/pkg/clientip"
)

var contactValidate = validator.New()

type ContactRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=7,max=20"`
	Subject  string `json:"subject" validate:"omitempty,max=255"`
	Category string `json:"category" validate:"omitempty,oneof=general support billing feedback"`
	Message  string `json:"message" validate:"required,min=10,max=5000"`
}

// SubmitContact stores a contact-form submission. Public endpoint, guarded
// by the Redis rate limiter at the route level.
// POST /api/contact
func SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := contactValidate.Struct(req); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			writeError(w, http.StatusBadRequest, "Invalid value for field: "+verrs[0].Field())
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid input")
		return
	}

	_, err := database.PostgresDB.Exec(`
		INSERT INTO contact_us (id, created_at, name, email, phone, subject, category, message, ip_address)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9)
	`, uuid.New(), time.Now(), req.Name, req.Email, req.Phone, req.Subject,
		req.Category, req.Message, clientip.FromRequest(r))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to submit message")
		return
	}

	writeSuccess(w, http.StatusCreated, "Thank you for reaching out. We will get back to you soon.", nil)
}

// GetContactMessages lists submissions for managers, newest first.
// GET /api/manager/contacts
func GetContactMessages(w http.ResponseWriter, r *http.Request) {
	_, ok := requireRole(w, r, models.RoleManager)
	if !ok {
		return
	}

	rows, err := database.PostgresDB.Query(`
		SELECT id, created_at, name, email, COALESCE(phone, ''), COALESCE(subject, ''),
		       COALESCE(category, ''), message
		FROM contact_us ORDER BY created_at DESC LIMIT 500
	`)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var messages []map[string]interface{}
	for rows.Next() {
		var id uuid.UUID
		var createdAt time.Time
		var name, email, phone, subject, category, message string
		if err := rows.Scan(&id, &createdAt, &name, &email, &phone, &subject, &category, &message); err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		messages = append(messages, map[string]interface{}{
			"id":        id.String(),
			"createdAt": createdAt,
			"name":      name,
			"email":     email,
			"phone":     phone,
			"subject":   subject,
			"category":  category,
			"message":   message,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeSuccess(w, http.StatusOK, "", messages)
}

// DeleteContactMessage removes a handled submission.
// DELETE /api/manager/contacts/{id}
func DeleteContactMessage(w http.ResponseWriter, r *http.Request) {
	_, ok := requireRole(w, r, models.RoleManager)
	if !ok {
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid message id")
		return
	}

	res, err := database.PostgresDB.Exec("DELETE FROM contact_us WHERE id = $1", id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete message")
		return
	}
	if n, _ := res.RowsAffected(); n == 0 {
		writeError(w, http.StatusNotFound, "Message not found")
		return
	}

	writeSuccess(w, http.StatusOK, "Message deleted", nil)
}

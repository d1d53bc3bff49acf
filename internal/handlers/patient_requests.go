package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
)

type PatientRequestAction struct {
	RequestID string `json:"requestId"`
	Action    string `json:"action"` // "accept" | "reject"
}

// GetPatientRequests lists the calling therapist's pending requests. Only
// pending requests are ever shown; accepted and rejected ones are history.
// GET /api/therapist/patient-requests
func GetPatientRequests(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	rows, err := database.PostgresDB.Query(`
		SELECT pr.id, pr.created_at, pr.parent_id, pr.child_id, pr.therapist_id,
		       pr.status, COALESCE(pr.message, ''), u.name, c.name
		FROM patient_requests pr
		JOIN users u ON u.id = pr.parent_id
		JOIN children c ON c.id = pr.child_id
		WHERE pr.therapist_id = $1 AND pr.status = $2
		ORDER BY pr.created_at
	`, session.UserID, models.RequestPending)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var requests []map[string]interface{}
	for rows.Next() {
		var req models.PatientRequest
		var parentName, childName string
		err := rows.Scan(&req.ID, &req.CreatedAt, &req.ParentID, &req.ChildID,
			&req.TherapistID, &req.Status, &req.Message, &parentName, &childName)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		requests = append(requests, map[string]interface{}{
			"id":         req.ID.String(),
			"createdAt":  req.CreatedAt,
			"parentId":   req.ParentID.String(),
			"parentName": parentName,
			"childId":    req.ChildID.String(),
			"childName":  childName,
			"status":     req.Status,
			"message":    req.Message,
		})
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeSuccess(w, http.StatusOK, "", requests)
}

// ActOnPatientRequest accepts or rejects a pending request. Accepting links
// the child to the therapist. Acting on an already-decided request is a 409.
// POST /api/therapist/patient-requests
func ActOnPatientRequest(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	var req PatientRequestAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	requestID, err := uuid.Parse(req.RequestID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request id")
		return
	}

	var newStatus models.RequestStatus
	switch req.Action {
	case "accept":
		newStatus = models.RequestAccepted
	case "reject":
		newStatus = models.RequestRejected
	default:
		writeError(w, http.StatusBadRequest, `Action must be "accept" or "reject"`)
		return
	}

	tx, err := database.PostgresDB.Begin()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	var childID uuid.UUID
	var status models.RequestStatus
	err = tx.QueryRow(`
		SELECT child_id, status FROM patient_requests
		WHERE id = $1 AND therapist_id = $2 FOR UPDATE
	`, requestID, session.UserID).Scan(&childID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Request not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if status != models.RequestPending {
		writeError(w, http.StatusConflict, "Request has already been "+string(status))
		return
	}

	now := time.Now()
	_, err = tx.Exec(`
		UPDATE patient_requests SET status = $1, updated_at = $2 WHERE id = $3
	`, newStatus, now, requestID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update request")
		return
	}

	if newStatus == models.RequestAccepted {
		_, err = tx.Exec(
			"UPDATE children SET therapist_id = $1 WHERE id = $2",
			session.UserID, childID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to link patient")
			return
		}
	}

	if err := tx.Commit(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	if newStatus == models.RequestAccepted {
		writeSuccess(w, http.StatusOK, "Request accepted", nil)
	} else {
		writeSuccess(w, http.StatusOK, "Request rejected", nil)
	}
}

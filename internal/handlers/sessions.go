package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
)

const sessionColumns = `id, created_at, updated_at, child_id, therapist_id,
	scheduled_at, duration_minutes, session_type, status, rate, is_paid,
	attendance_status, overall_progress, patient_engagement, risk_assessment,
	focus_areas, session_notes, next_session_goals`

// UpdateSessionRequest carries clinical documentation plus an optional
// status transition.
type UpdateSessionRequest struct {
	AttendanceStatus  string `json:"attendanceStatus,omitempty"`
	OverallProgress   string `json:"overallProgress,omitempty"`
	PatientEngagement string `json:"patientEngagement,omitempty"`
	RiskAssessment    string `json:"riskAssessment,omitempty"`
	FocusAreas        string `json:"focusAreas,omitempty"`
	SessionNotes      string `json:"sessionNotes,omitempty"`
	NextSessionGoals  string `json:"nextSessionGoals,omitempty"`
	MoveToStatus      string `json:"moveToStatus,omitempty"`
}

func scanSession(row *sql.Row) (models.Session, error) {
	var s models.Session
	var attendance, progress, engagement, risk, focus, notes, goals sql.NullString

	err := row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.ChildID, &s.TherapistID,
		&s.ScheduledAt, &s.DurationMinutes, &s.SessionType, &s.Status, &s.Rate,
		&s.IsPaid, &attendance, &progress, &engagement, &risk, &focus, &notes, &goals)
	if err != nil {
		return s, err
	}

	s.AttendanceStatus = attendance.String
	s.OverallProgress = progress.String
	s.PatientEngagement = engagement.String
	s.RiskAssessment = risk.String
	s.FocusAreas = focus.String
	s.SessionNotes = notes.String
	s.NextSessionGoals = goals.String
	return s, nil
}

// GetParentSession returns a single session for a child of the caller.
// GET /api/parent/sessions/{id}
func GetParentSession(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	row := database.PostgresDB.QueryRow(`
		SELECT `+sessionColumns+` FROM sessions
		WHERE id = $1 AND child_id IN (SELECT id FROM children WHERE parent_id = $2)
	`, sessionID, session.UserID)

	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Session not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", s)
}

// GetTherapistSession returns a session owned by the calling therapist.
// GET /api/therapist/sessions/{id}
func GetTherapistSession(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	row := database.PostgresDB.QueryRow(
		"SELECT "+sessionColumns+" FROM sessions WHERE id = $1 AND therapist_id = $2",
		sessionID, session.UserID)

	s, err := scanSession(row)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Session not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	writeSuccess(w, http.StatusOK, "", s)
}

// UpdateTherapistSession saves clinical documentation and optionally moves
// the session to a new status. Moving to NO_SHOW suppresses the clinical
// fields: whatever was submitted alongside is discarded and existing
// documentation is cleared.
// PUT /api/therapist/sessions/{id}
func UpdateTherapistSession(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	var req UpdateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var currentStatus models.SessionStatus
	err = database.PostgresDB.QueryRow(
		"SELECT status FROM sessions WHERE id = $1 AND therapist_id = $2",
		sessionID, session.UserID).Scan(&currentStatus)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Session not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	newStatus := currentStatus
	if req.MoveToStatus != "" {
		target := models.SessionStatus(req.MoveToStatus)
		switch target {
		case models.SessionStatusCompleted, models.SessionStatusNoShow, models.SessionStatusCancelled:
			if currentStatus != models.SessionStatusScheduled {
				writeError(w, http.StatusConflict, "Session is no longer scheduled")
				return
			}
			newStatus = target
		default:
			writeError(w, http.StatusBadRequest, "Invalid target status")
			return
		}
	}

	now := time.Now()

	if newStatus == models.SessionStatusNoShow {
		_, err = database.PostgresDB.Exec(`
			UPDATE sessions SET status = $1, attendance_status = $2, updated_at = $3,
				overall_progress = NULL, patient_engagement = NULL, risk_assessment = NULL,
				focus_areas = NULL, session_notes = NULL, next_session_goals = NULL
			WHERE id = $4
		`, models.SessionStatusNoShow, models.AttendanceNoShow, now, sessionID)
	} else {
		_, err = database.PostgresDB.Exec(`
			UPDATE sessions SET status = $1, updated_at = $2,
				attendance_status = NULLIF($3, ''), overall_progress = NULLIF($4, ''),
				patient_engagement = NULLIF($5, ''), risk_assessment = NULLIF($6, ''),
				focus_areas = NULLIF($7, ''), session_notes = NULLIF($8, ''),
				next_session_goals = NULLIF($9, '')
			WHERE id = $10
		`, newStatus, now, req.AttendanceStatus, req.OverallProgress,
			req.PatientEngagement, req.RiskAssessment, req.FocusAreas,
			req.SessionNotes, req.NextSessionGoals, sessionID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update session")
		return
	}

	row := database.PostgresDB.QueryRow(
		"SELECT "+sessionColumns+" FROM sessions WHERE id = $1", sessionID)
	s, err := scanSession(row)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeSuccess(w, http.StatusOK, "Session updated", s)
}

// GetTherapistSessions lists the calling therapist's sessions, optionally
// bounded by date.
// GET /api/therapist/sessions?startDate=&endDate=
func GetTherapistSessions(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	query := "SELECT " + sessionColumns + " FROM sessions WHERE therapist_id = $1"
	args := []interface{}{session.UserID}

	if start := r.URL.Query().Get("startDate"); start != "" {
		args = append(args, start)
		query += " AND scheduled_at >= $2"
	}
	if end := r.URL.Query().Get("endDate"); end != "" {
		args = append(args, end)
		if len(args) == 3 {
			query += " AND scheduled_at < ($3::date + 1)"
		} else {
			query += " AND scheduled_at < ($2::date + 1)"
		}
	}
	query += " ORDER BY scheduled_at"

	rows, err := database.PostgresDB.Query(query, args...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		var s models.Session
		var attendance, progress, engagement, risk, focus, notes, goals sql.NullString
		err := rows.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt, &s.ChildID, &s.TherapistID,
			&s.ScheduledAt, &s.DurationMinutes, &s.SessionType, &s.Status, &s.Rate,
			&s.IsPaid, &attendance, &progress, &engagement, &risk, &focus, &notes, &goals)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		s.AttendanceStatus = attendance.String
		s.OverallProgress = progress.String
		s.PatientEngagement = engagement.String
		s.RiskAssessment = risk.String
		s.FocusAreas = focus.String
		s.SessionNotes = notes.String
		s.NextSessionGoals = goals.String
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	writeSuccess(w, http.StatusOK, "", sessions)
}

package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
)

// reportRow is one session joined with its patient's name.
type reportRow struct {
	SessionID   uuid.UUID            `json:"sessionId"`
	PatientName string               `json:"patientName"`
	ScheduledAt time.Time            `json:"scheduledAt"`
	Duration    int                  `json:"durationMinutes"`
	SessionType string               `json:"sessionType"`
	Status      models.SessionStatus `json:"status"`
	Rate        float64              `json:"rate"`
	IsPaid      bool                 `json:"isPaid"`
}

// ReportSummary aggregates a therapist's sessions for the selected range.
type ReportSummary struct {
	TotalSessions  int     `json:"totalSessions"`
	Completed      int     `json:"completed"`
	NoShow         int     `json:"noShow"`
	Cancelled      int     `json:"cancelled"`
	Upcoming       int     `json:"upcoming"`
	UniquePatients int     `json:"uniquePatients"`
	TotalEarnings  float64 `json:"totalEarnings"`
	UnpaidAmount   float64 `json:"unpaidAmount"`
}

func reportRows(therapistID uuid.UUID, filterType, startDate, endDate, patientID string, now time.Time) ([]reportRow, error) {
	query := `
		SELECT s.id, c.name, s.scheduled_at, s.duration_minutes, s.session_type,
		       s.status, s.rate, s.is_paid
		FROM sessions s
		JOIN children c ON c.id = s.child_id
		WHERE s.therapist_id = $1`
	args := []interface{}{therapistID}

	// filterType presets override explicit dates
	switch filterType {
	case "week":
		startDate = now.AddDate(0, 0, -7).Format("2006-01-02")
		endDate = ""
	case "month":
		startDate = now.AddDate(0, -1, 0).Format("2006-01-02")
		endDate = ""
	case "year":
		startDate = now.AddDate(-1, 0, 0).Format("2006-01-02")
		endDate = ""
	}

	if startDate != "" {
		args = append(args, startDate)
		query += fmt.Sprintf(" AND s.scheduled_at >= $%d", len(args))
	}
	if endDate != "" {
		args = append(args, endDate)
		query += fmt.Sprintf(" AND s.scheduled_at < ($%d::date + 1)", len(args))
	}
	if patientID != "" {
		id, err := uuid.Parse(patientID)
		if err != nil {
			return nil, fmt.Errorf("invalid patient id")
		}
		args = append(args, id)
		query += fmt.Sprintf(" AND s.child_id = $%d", len(args))
	}
	query += " ORDER BY s.scheduled_at"

	rows, err := database.PostgresDB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []reportRow
	for rows.Next() {
		var row reportRow
		err := rows.Scan(&row.SessionID, &row.PatientName, &row.ScheduledAt,
			&row.Duration, &row.SessionType, &row.Status, &row.Rate, &row.IsPaid)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func summarize(rows []reportRow) ReportSummary {
	var s ReportSummary
	patients := make(map[string]bool)
	for _, row := range rows {
		s.TotalSessions++
		patients[row.PatientName] = true
		switch row.Status {
		case models.SessionStatusCompleted:
			s.Completed++
			if row.IsPaid {
				s.TotalEarnings += row.Rate
			} else {
				s.UnpaidAmount += row.Rate
			}
		case models.SessionStatusNoShow:
			s.NoShow++
		case models.SessionStatusCancelled:
			s.Cancelled++
		case models.SessionStatusScheduled:
			s.Upcoming++
		}
	}
	s.UniquePatients = len(patients)
	return s
}

// GetReports returns summary stats, per-status counts, and the session list
// for the selected range.
// GET /api/therapist/reports?filterType=&startDate=&endDate=&patientId=
func GetReports(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	q := r.URL.Query()
	rows, err := reportRows(session.UserID, q.Get("filterType"), q.Get("startDate"),
		q.Get("endDate"), q.Get("patientId"), time.Now())
	if err != nil {
		if err.Error() == "invalid patient id" {
			writeError(w, http.StatusBadRequest, "Invalid patient id")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	byType := make(map[string]int)
	byStatus := make(map[string]int)
	for _, row := range rows {
		byType[row.SessionType]++
		byStatus[string(row.Status)]++
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":          true,
		"summary":          summarize(rows),
		"sessionsByType":   byType,
		"sessionsByStatus": byStatus,
		"sessions":         rows,
	})
}

// ExportReportsCSV streams the same session list as a CSV download.
// Column order is fixed: Patient Name, Date, Time, Duration, Type, Status, Rate, Paid.
// GET /api/therapist/reports/export?filterType=&startDate=&endDate=&patientId=
func ExportReportsCSV(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	q := r.URL.Query()
	rows, err := reportRows(session.UserID, q.Get("filterType"), q.Get("startDate"),
		q.Get("endDate"), q.Get("patientId"), time.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="sessions-report.csv"`)

	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"Patient Name", "Date", "Time", "Duration", "Type", "Status", "Rate", "Paid"})
	for _, row := range rows {
		paid := "No"
		if row.IsPaid {
			paid = "Yes"
		}
		cw.Write([]string{
			row.PatientName,
			row.ScheduledAt.Format("2006-01-02"),
			row.ScheduledAt.Format("15:04"),
			strconv.Itoa(row.Duration),
			row.SessionType,
			string(row.Status),
			strconv.FormatFloat(row.Rate, 'f', 2, 64),
			paid,
		})
	}
}

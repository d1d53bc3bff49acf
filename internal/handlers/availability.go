package handlers

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sparkslk/sparks-backend/internal/database"
	"github.com/sparkslk/sparks-backend/internal/models"
	"github.com/sparkslk/sparks-backend/internal/schedule"
	"github.com/sparkslk/sparks-backend/internal/services"
)

var availabilityCache services.CacheService

func availabilityCacheKey(therapistID uuid.UUID, weekStart string) string {
	return "availability:" + therapistID.String() + ":" + weekStart
}

// invalidateAvailabilityWeek drops the cached week view containing date.
func invalidateAvailabilityWeek(therapistID uuid.UUID, date string) {
	parsed, err := schedule.ParseDate(date, slotLocation)
	if err != nil {
		return
	}
	week := schedule.WeekStart(parsed).Format("2006-01-02")
	availabilityCache.Delete(availabilityCacheKey(therapistID, week))
}

// slotLocation is set once at startup from the configured timezone.
var slotLocation = time.UTC

// SetSlotLocation configures the timezone used for slot date arithmetic.
func SetSlotLocation(loc *time.Location) {
	if loc != nil {
		slotLocation = loc
	}
}

type CreateSlotRequest struct {
	Date      string `json:"date"`      // YYYY-MM-DD
	StartTime string `json:"startTime"` // HH:MM
	IsFree    bool   `json:"isFree"`
}

type BulkAddSlotsRequest struct {
	StartDate  string   `json:"startDate"`
	EndDate    string   `json:"endDate"`
	DaysOfWeek []int    `json:"daysOfWeek"` // 0=Sunday .. 6=Saturday; empty = every day
	StartTimes []string `json:"startTimes"` // HH:MM values applied to each selected date
	IsFree     bool     `json:"isFree"`
}

// SlotConflict identifies one date+time that could not be created.
type SlotConflict struct {
	Date      string `json:"date"`
	StartTime string `json:"startTime"`
	Reason    string `json:"reason"`
}

type UpdateSlotRequest struct {
	IsFree *bool `json:"isFree"`
}

// slotView adds the derived end time to a slot for client display.
type slotView struct {
	models.AvailabilitySlot
	EndTime string `json:"endTime"`
}

func slotEndTime(startTime string) string {
	start, err := schedule.ParseClockToMinutes(startTime)
	if err != nil {
		return ""
	}
	return schedule.MinutesToClock(start + schedule.SlotMinutes)
}

// reservedIntervals returns the occupied intervals for a therapist's date.
func reservedIntervals(therapistID uuid.UUID, date string) ([]schedule.Interval, error) {
	rows, err := database.PostgresDB.Query(`
		SELECT start_time FROM availability_slots
		WHERE therapist_id = $1 AND slot_date = $2
	`, therapistID, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []schedule.Interval
	for rows.Next() {
		var startTime string
		if err := rows.Scan(&startTime); err != nil {
			return nil, err
		}
		iv, err := schedule.SlotInterval(startTime)
		if err != nil {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, rows.Err()
}

// GetAvailability lists the caller's slots for the week containing
// weekStart (any date in the week works; the Monday boundary is recomputed).
// Without weekStart the current week is used. Week views are served from the
// Redis cache; every slot mutation drops the affected week's entry.
// GET /api/therapist/availability?weekStart=YYYY-MM-DD
func GetAvailability(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	anchor := time.Now().In(slotLocation)
	if ws := r.URL.Query().Get("weekStart"); ws != "" {
		parsed, err := schedule.ParseDate(ws, slotLocation)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid weekStart date")
			return
		}
		anchor = parsed
	}

	weekStart := schedule.WeekStart(anchor)
	weekEnd := weekStart.AddDate(0, 0, 7)

	cacheKey := availabilityCacheKey(session.UserID, weekStart.Format("2006-01-02"))
	var cached []slotView
	if hit, err := availabilityCache.Get(cacheKey, &cached); err == nil && hit {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":   true,
			"weekStart": weekStart.Format("2006-01-02"),
			"slots":     cached,
		})
		return
	}

	rows, err := database.PostgresDB.Query(`
		SELECT id, created_at, therapist_id, to_char(slot_date, 'YYYY-MM-DD'),
		       start_time, duration_minutes, is_booked, is_free
		FROM availability_slots
		WHERE therapist_id = $1 AND slot_date >= $2 AND slot_date < $3
		ORDER BY slot_date, start_time
	`, session.UserID, weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	slots := make([]slotView, 0)
	for rows.Next() {
		var s models.AvailabilitySlot
		err := rows.Scan(&s.ID, &s.CreatedAt, &s.TherapistID, &s.Date,
			&s.StartTime, &s.DurationMinutes, &s.IsBooked, &s.IsFree)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		slots = append(slots, slotView{AvailabilitySlot: s, EndTime: slotEndTime(s.StartTime)})
	}
	if err := rows.Err(); err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	availabilityCache.Set(cacheKey, slots)

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"weekStart": weekStart.Format("2006-01-02"),
		"slots":     slots,
	})
}

// CreateSlot adds a single 45-minute slot after overlap checking.
// POST /api/therapist/availability
func CreateSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := schedule.ParseDate(req.Date, slotLocation); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date")
		return
	}
	if _, err := schedule.ParseClockToMinutes(req.StartTime); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time")
		return
	}
	if past, err := schedule.IsDatePast(req.Date, slotLocation, time.Now()); err != nil || past {
		writeError(w, http.StatusBadRequest, "Cannot create slots in the past")
		return
	}

	reserved, err := reservedIntervals(session.UserID, req.Date)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	conflict, err := schedule.ConflictsAny(req.StartTime, reserved)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start time")
		return
	}
	if conflict {
		writeError(w, http.StatusConflict, "Slot overlaps an existing slot")
		return
	}

	slotID := uuid.New()
	now := time.Now()
	_, err = database.PostgresDB.Exec(`
		INSERT INTO availability_slots (id, created_at, therapist_id, slot_date, start_time, duration_minutes, is_free)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, slotID, now, session.UserID, req.Date, req.StartTime, schedule.SlotMinutes, req.IsFree)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			writeError(w, http.StatusConflict, "Slot already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create slot")
		return
	}

	invalidateAvailabilityWeek(session.UserID, req.Date)

	writeSuccess(w, http.StatusCreated, "Slot created", slotView{
		AvailabilitySlot: models.AvailabilitySlot{
			ID:              slotID,
			CreatedAt:       now,
			TherapistID:     session.UserID,
			Date:            req.Date,
			StartTime:       req.StartTime,
			DurationMinutes: schedule.SlotMinutes,
			IsFree:          req.IsFree,
		},
		EndTime: slotEndTime(req.StartTime),
	})
}

// BulkAddSlots expands a date range × day-of-week selection × start times
// into individual slots, creating the conflict-free ones and reporting the
// rest. Conflicting entries never abort the batch.
// POST /api/therapist/availability/bulk-add
func BulkAddSlots(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	var req BulkAddSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if len(req.StartTimes) == 0 {
		writeError(w, http.StatusBadRequest, "At least one start time is required")
		return
	}
	for _, ts := range req.StartTimes {
		if _, err := schedule.ParseClockToMinutes(ts); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start time: "+ts)
			return
		}
	}

	var days []time.Weekday
	for _, d := range req.DaysOfWeek {
		if d < 0 || d > 6 {
			writeError(w, http.StatusBadRequest, "daysOfWeek values must be 0-6")
			return
		}
		days = append(days, time.Weekday(d))
	}

	dates, err := schedule.ExpandDates(req.StartDate, req.EndDate, days, slotLocation)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	now := time.Now()
	createdCount := 0
	conflicts := make([]SlotConflict, 0)
	touchedDates := make(map[string]struct{})

	for _, date := range dates {
		if past, err := schedule.IsDatePast(date, slotLocation, now); err != nil || past {
			for _, ts := range req.StartTimes {
				conflicts = append(conflicts, SlotConflict{Date: date, StartTime: ts, Reason: "date is in the past"})
			}
			continue
		}

		reserved, err := reservedIntervals(session.UserID, date)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}

		for _, ts := range req.StartTimes {
			conflict, err := schedule.ConflictsAny(ts, reserved)
			if err != nil || conflict {
				conflicts = append(conflicts, SlotConflict{Date: date, StartTime: ts, Reason: "overlaps an existing slot"})
				continue
			}

			_, err = database.PostgresDB.Exec(`
				INSERT INTO availability_slots (id, created_at, therapist_id, slot_date, start_time, duration_minutes, is_free)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, uuid.New(), now, session.UserID, date, ts, schedule.SlotMinutes, req.IsFree)
			if err != nil {
				conflicts = append(conflicts, SlotConflict{Date: date, StartTime: ts, Reason: "overlaps an existing slot"})
				continue
			}

			createdCount++
			touchedDates[date] = struct{}{}
			if iv, err := schedule.SlotInterval(ts); err == nil {
				// Newly created slots reserve their interval for the rest of the batch
				reserved = append(reserved, iv)
			}
		}
	}

	for date := range touchedDates {
		invalidateAvailabilityWeek(session.UserID, date)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"createdCount": createdCount,
		"conflicts":    conflicts,
	})
}

// UpdateSlot toggles the free/paid flag. Booked slots cannot be changed.
// PATCH /api/therapist/availability/{id}
func UpdateSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	slotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot id")
		return
	}

	var req UpdateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsFree == nil {
		writeError(w, http.StatusBadRequest, "isFree is required")
		return
	}

	var isBooked bool
	var slotDate string
	err = database.PostgresDB.QueryRow(`
		SELECT is_booked, to_char(slot_date, 'YYYY-MM-DD')
		FROM availability_slots WHERE id = $1 AND therapist_id = $2
	`, slotID, session.UserID).Scan(&isBooked, &slotDate)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Slot not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if isBooked {
		writeError(w, http.StatusConflict, "Booked slots cannot be modified")
		return
	}

	_, err = database.PostgresDB.Exec(
		"UPDATE availability_slots SET is_free = $1 WHERE id = $2", *req.IsFree, slotID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update slot")
		return
	}

	invalidateAvailabilityWeek(session.UserID, slotDate)
	writeSuccess(w, http.StatusOK, "Slot updated", nil)
}

// DeleteSlot removes an unbooked slot.
// DELETE /api/therapist/availability/{id}
func DeleteSlot(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleTherapist)
	if !ok {
		return
	}

	slotID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid slot id")
		return
	}

	var isBooked bool
	var slotDate string
	err = database.PostgresDB.QueryRow(`
		SELECT is_booked, to_char(slot_date, 'YYYY-MM-DD')
		FROM availability_slots WHERE id = $1 AND therapist_id = $2
	`, slotID, session.UserID).Scan(&isBooked, &slotDate)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Slot not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if isBooked {
		writeError(w, http.StatusConflict, "Booked slots cannot be deleted")
		return
	}

	_, err = database.PostgresDB.Exec("DELETE FROM availability_slots WHERE id = $1", slotID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete slot")
		return
	}

	invalidateAvailabilityWeek(session.UserID, slotDate)
	writeSuccess(w, http.StatusOK, "Slot deleted", nil)
}

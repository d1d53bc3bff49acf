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
	"github.com/sparkslk/sparks-backend/internal/tasklist"
)

type CompleteTaskRequest struct {
	CompletionNotes string `json:"completionNotes,omitempty"`
	Unmark          bool   `json:"unmark,omitempty"`
}

// TaskListResponse carries the filtered tasks plus derived counts.
type TaskListResponse struct {
	Success      bool       `json:"success"`
	Tasks        []taskView `json:"tasks"`
	OverdueCount int        `json:"overdueCount"`
	Message      string     `json:"message,omitempty"`
}

// taskView is a Task with the status rewritten to OVERDUE when derived so.
type taskView struct {
	models.Task
	DisplayStatus models.TaskStatus `json:"displayStatus"`
}

// childBelongsToParent verifies ownership before exposing a child's tasks.
func childBelongsToParent(childID, parentID uuid.UUID) bool {
	var one int
	err := database.PostgresDB.QueryRow(
		"SELECT 1 FROM children WHERE id = $1 AND parent_id = $2", childID, parentID,
	).Scan(&one)
	return err == nil
}

func scanTasks(rows *sql.Rows) ([]models.Task, error) {
	var tasks []models.Task
	for rows.Next() {
		var t models.Task
		var description, instructions, recurrence, completionNotes sql.NullString
		var sessionID, assignedBy sql.NullString
		var dueDate, completedAt sql.NullTime

		err := rows.Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt, &t.ChildID, &sessionID,
			&assignedBy, &t.Title, &description, &instructions, &t.Status,
			&t.Priority, &dueDate, &recurrence, &completionNotes, &completedAt)
		if err != nil {
			return nil, err
		}

		t.Description = description.String
		t.Instructions = instructions.String
		t.Recurrence = models.RecurrencePattern(recurrence.String)
		t.CompletionNotes = completionNotes.String
		if sessionID.Valid {
			if id, err := uuid.Parse(sessionID.String); err == nil {
				t.SessionID = &id
			}
		}
		if assignedBy.Valid {
			if id, err := uuid.Parse(assignedBy.String); err == nil {
				t.AssignedBy = &id
			}
		}
		if dueDate.Valid {
			d := dueDate.Time
			t.DueDate = &d
		}
		if completedAt.Valid {
			c := completedAt.Time
			t.CompletedAt = &c
		}

		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

const taskColumns = `id, created_at, updated_at, child_id, session_id, assigned_by,
	title, description, instructions, status, priority, due_date, recurrence,
	completion_notes, completed_at`

func respondTaskList(w http.ResponseWriter, tasks []models.Task, ft tasklist.FilterType, fs tasklist.FilterStatus) {
	now := time.Now()
	filtered := tasklist.Filter(tasks, ft, fs, now)

	views := make([]taskView, 0, len(filtered))
	for _, t := range filtered {
		display := t.Status
		if t.IsOverdue(now) {
			display = models.TaskStatusOverdue
		}
		views = append(views, taskView{Task: t, DisplayStatus: display})
	}

	writeJSON(w, http.StatusOK, TaskListResponse{
		Success:      true,
		Tasks:        views,
		OverdueCount: tasklist.CountOverdue(tasks, now),
	})
}

// GetChildTasks lists a child's tasks with type/status filtering.
// GET /api/parent/children/{childId}/tasks?filterType=&filterStatus=
func GetChildTasks(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent)
	if !ok {
		return
	}

	childID, err := uuid.Parse(chi.URLParam(r, "childId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid child id")
		return
	}
	if !childBelongsToParent(childID, session.UserID) {
		writeError(w, http.StatusNotFound, "Child not found")
		return
	}

	rows, err := database.PostgresDB.Query(
		"SELECT "+taskColumns+" FROM tasks WHERE child_id = $1 ORDER BY created_at", childID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	ft := tasklist.ParseFilterType(r.URL.Query().Get("filterType"))
	fs := tasklist.ParseFilterStatus(r.URL.Query().Get("filterStatus"))
	respondTaskList(w, tasks, ft, fs)
}

// GetSessionTasks lists the tasks assigned during a specific session.
// GET /api/parent/sessions/{id}/tasks?filterType=&filterStatus=
func GetSessionTasks(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent)
	if !ok {
		return
	}

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session id")
		return
	}

	// Tasks reachable only when the session's child belongs to the caller
	rows, err := database.PostgresDB.Query(`
		SELECT `+taskColumns+` FROM tasks
		WHERE session_id = $1
		  AND child_id IN (SELECT id FROM children WHERE parent_id = $2)
		ORDER BY created_at
	`, sessionID, session.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	tasks, err := scanTasks(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Database error")
		return
	}

	ft := tasklist.ParseFilterType(r.URL.Query().Get("filterType"))
	fs := tasklist.ParseFilterStatus(r.URL.Query().Get("filterStatus"))
	respondTaskList(w, tasks, ft, fs)
}

// CompleteTask marks a task completed (with optional notes), or reverts a
// completion when the body carries unmark:true.
// PATCH /api/parent/children/{childId}/tasks/{taskId}/complete
// PATCH /api/parent/sessions/{id}/tasks/{taskId}/complete
func CompleteTask(w http.ResponseWriter, r *http.Request) {
	session, ok := requireRole(w, r, models.RoleParent)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(chi.URLParam(r, "taskId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid task id")
		return
	}

	var req CompleteTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// An empty body means complete with no notes
		req = CompleteTaskRequest{}
	}

	// Ownership check through the child relation
	var childID uuid.UUID
	var status models.TaskStatus
	err = database.PostgresDB.QueryRow(`
		SELECT t.child_id, t.status FROM tasks t
		JOIN children c ON c.id = t.child_id
		WHERE t.id = $1 AND c.parent_id = $2
	`, taskID, session.UserID).Scan(&childID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			writeError(w, http.StatusNotFound, "Task not found")
		} else {
			writeError(w, http.StatusInternalServerError, "Database error")
		}
		return
	}

	now := time.Now()

	if req.Unmark {
		if status != models.TaskStatusCompleted {
			writeError(w, http.StatusConflict, "Task is not completed")
			return
		}
		_, err = database.PostgresDB.Exec(`
			UPDATE tasks SET status = $1, completion_notes = NULL, completed_at = NULL, updated_at = $2
			WHERE id = $3
		`, models.TaskStatusPending, now, taskID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to update task")
			return
		}
		writeSuccess(w, http.StatusOK, "Task marked as incomplete", nil)
		return
	}

	if status == models.TaskStatusCompleted {
		writeError(w, http.StatusConflict, "Task is already completed")
		return
	}

	_, err = database.PostgresDB.Exec(`
		UPDATE tasks SET status = $1, completion_notes = NULLIF($2, ''), completed_at = $3, updated_at = $3
		WHERE id = $4
	`, models.TaskStatusCompleted, req.CompletionNotes, now, taskID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update task")
		return
	}

	writeSuccess(w, http.StatusOK, "Task completed", nil)
}

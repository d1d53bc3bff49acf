package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus is the stored status of a task. OVERDUE is derived at read time
// from the due date, never written to the database.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusOverdue    TaskStatus = "OVERDUE"
)

// RecurrencePattern values: "daily", "weekly", or empty for one-off tasks.
type RecurrencePattern string

const (
	RecurrenceDaily  RecurrencePattern = "daily"
	RecurrenceWeekly RecurrencePattern = "weekly"
)

type Task struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ChildID    uuid.UUID  `json:"child_id"`
	SessionID  *uuid.UUID `json:"session_id,omitempty"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`

	Title        string            `json:"title"`
	Description  string            `json:"description,omitempty"`
	Instructions string            `json:"instructions,omitempty"`
	Status       TaskStatus        `json:"status"`
	Priority     int               `json:"priority"` // higher = more urgent
	DueDate      *time.Time        `json:"due_date,omitempty"`
	Recurrence   RecurrencePattern `json:"recurrence,omitempty"`

	CompletionNotes string     `json:"completion_notes,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// IsCompleted reports whether the task has been marked done.
func (t *Task) IsCompleted() bool {
	return t.Status == TaskStatusCompleted
}

// IsOverdue reports whether this task's due date has passed without the task
// being completed. The check is per task: another task sharing the same due
// date has no bearing on this one.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.IsCompleted() {
		return false
	}
	return t.DueDate.Before(now)
}

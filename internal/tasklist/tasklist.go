// Package tasklist implements the task filtering and display-order rules
// shared by the parent dashboard and the session tasks view.
package tasklist

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sparkslk/sparks-backend/internal/models"
)

// FilterType selects tasks by how they recur / who assigned them.
type FilterType string

const (
	TypeAll       FilterType = "all"
	TypeDaily     FilterType = "daily"     // daily-recurring
	TypeTherapist FilterType = "therapist" // therapist-assigned, non-daily
	TypeWeekly    FilterType = "weekly"    // weekly-recurring
)

// FilterStatus selects tasks by completion state.
type FilterStatus string

const (
	StatusAll       FilterStatus = "all"
	StatusPending   FilterStatus = "pending" // pending or in-progress
	StatusCompleted FilterStatus = "completed"
	StatusOverdue   FilterStatus = "overdue"
)

// ParseFilterType maps a query value to a FilterType, defaulting to all.
func ParseFilterType(s string) FilterType {
	switch FilterType(s) {
	case TypeDaily, TypeTherapist, TypeWeekly:
		return FilterType(s)
	default:
		return TypeAll
	}
}

// ParseFilterStatus maps a query value to a FilterStatus, defaulting to all.
func ParseFilterStatus(s string) FilterStatus {
	switch FilterStatus(s) {
	case StatusPending, StatusCompleted, StatusOverdue:
		return FilterStatus(s)
	default:
		return StatusAll
	}
}

// Filter applies both filter axes and, when the status filter is "all",
// re-partitions the result into display order: pending (priority desc,
// stable), then overdue, then completed, each task appearing exactly once.
func Filter(tasks []models.Task, ft FilterType, fs FilterStatus, now time.Time) []models.Task {
	byType := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if matchesType(t, ft) {
			byType = append(byType, t)
		}
	}

	if fs != StatusAll {
		out := make([]models.Task, 0, len(byType))
		for _, t := range byType {
			if matchesStatus(t, fs, now) {
				out = append(out, t)
			}
		}
		return out
	}

	return displayOrder(byType, now)
}

// CountOverdue returns how many tasks are overdue. Overdue is evaluated per
// task: the task's own due date and its own completion state.
func CountOverdue(tasks []models.Task, now time.Time) int {
	n := 0
	for i := range tasks {
		if tasks[i].IsOverdue(now) {
			n++
		}
	}
	return n
}

func matchesType(t models.Task, ft FilterType) bool {
	switch ft {
	case TypeDaily:
		return t.Recurrence == models.RecurrenceDaily
	case TypeWeekly:
		return t.Recurrence == models.RecurrenceWeekly
	case TypeTherapist:
		return t.AssignedBy != nil && t.Recurrence != models.RecurrenceDaily
	default:
		return true
	}
}

func matchesStatus(t models.Task, fs FilterStatus, now time.Time) bool {
	switch fs {
	case StatusPending:
		return t.Status == models.TaskStatusPending || t.Status == models.TaskStatusInProgress
	case StatusCompleted:
		return t.IsCompleted()
	case StatusOverdue:
		return t.IsOverdue(now)
	default:
		return true
	}
}

// displayOrder partitions tasks into [active pending (priority desc),
// overdue, completed] with identity dedup. An overdue task that is still
// technically PENDING lands in the pending bucket only.
func displayOrder(tasks []models.Task, now time.Time) []models.Task {
	var pending, overdue, completed []models.Task
	seen := make(map[uuid.UUID]bool, len(tasks))

	for _, t := range tasks {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true

		switch {
		case t.Status == models.TaskStatusPending || t.Status == models.TaskStatusInProgress:
			pending = append(pending, t)
		case t.IsOverdue(now):
			overdue = append(overdue, t)
		case t.IsCompleted():
			completed = append(completed, t)
		default:
			// Stored OVERDUE status without pending/in-progress; keep with overdue.
			overdue = append(overdue, t)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Priority > pending[j].Priority
	})

	out := make([]models.Task, 0, len(pending)+len(overdue)+len(completed))
	out = append(out, pending...)
	out = append(out, overdue...)
	out = append(out, completed...)
	return out
}

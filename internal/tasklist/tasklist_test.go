package tasklist

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sparkslk/sparks-backend/internal/models"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func mkTask(title string, status models.TaskStatus, priority int, due *time.Time, rec models.RecurrencePattern, assigned bool) models.Task {
	t := models.Task{
		ID:         uuid.New(),
		Title:      title,
		Status:     status,
		Priority:   priority,
		DueDate:    due,
		Recurrence: rec,
	}
	if assigned {
		id := uuid.New()
		t.AssignedBy = &id
	}
	return t
}

func ptr(t time.Time) *time.Time { return &t }

func TestFilterAllAllIsIdempotentAndDeduplicated(t *testing.T) {
	yesterday := ptr(now.AddDate(0, 0, -1))
	tomorrow := ptr(now.AddDate(0, 0, 1))

	lowPending := mkTask("low", models.TaskStatusPending, 1, tomorrow, "", true)
	highPending := mkTask("high", models.TaskStatusPending, 9, tomorrow, "", true)
	overduePending := mkTask("overdue-but-pending", models.TaskStatusPending, 5, yesterday, "", true)
	done := mkTask("done", models.TaskStatusCompleted, 3, yesterday, "", true)

	in := []models.Task{lowPending, done, overduePending, highPending}
	out := Filter(in, TypeAll, StatusAll, now)

	// No duplicates, nothing lost
	require.Len(t, out, len(in))
	seen := map[uuid.UUID]int{}
	for _, task := range out {
		seen[task.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "task %s appeared %d times", id, n)
	}

	// Display order: pending by priority desc (the overdue-but-pending task
	// stays in the pending bucket), then completed.
	assert.Equal(t, "high", out[0].Title)
	assert.Equal(t, "overdue-but-pending", out[1].Title)
	assert.Equal(t, "low", out[2].Title)
	assert.Equal(t, "done", out[3].Title)
}

func TestOverdueIsPerTaskNotPerDueDate(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1)

	// Two tasks share the exact due-date timestamp; only one is completed.
	pending := mkTask("pending", models.TaskStatusPending, 0, ptr(yesterday), "", true)
	completed := mkTask("completed", models.TaskStatusCompleted, 0, ptr(yesterday), "", true)

	tasks := []models.Task{pending, completed}

	// The completed sibling must not shadow the pending task's overdue state.
	assert.Equal(t, 1, CountOverdue(tasks, now))

	out := Filter(tasks, TypeAll, StatusOverdue, now)
	require.Len(t, out, 1)
	assert.Equal(t, "pending", out[0].Title)
}

func TestFilterTypeAxes(t *testing.T) {
	daily := mkTask("daily", models.TaskStatusPending, 0, nil, models.RecurrenceDaily, true)
	weekly := mkTask("weekly", models.TaskStatusPending, 0, nil, models.RecurrenceWeekly, true)
	oneOff := mkTask("one-off", models.TaskStatusPending, 0, nil, "", true)
	unassigned := mkTask("unassigned", models.TaskStatusPending, 0, nil, "", false)

	tasks := []models.Task{daily, weekly, oneOff, unassigned}

	out := Filter(tasks, TypeDaily, StatusAll, now)
	require.Len(t, out, 1)
	assert.Equal(t, "daily", out[0].Title)

	out = Filter(tasks, TypeWeekly, StatusAll, now)
	require.Len(t, out, 1)
	assert.Equal(t, "weekly", out[0].Title)

	// Therapist-assigned means assigned and non-daily: weekly and one-off.
	out = Filter(tasks, TypeTherapist, StatusAll, now)
	require.Len(t, out, 2)

	out = Filter(tasks, TypeAll, StatusAll, now)
	assert.Len(t, out, 4)
}

func TestFilterStatusAxes(t *testing.T) {
	yesterday := ptr(now.AddDate(0, 0, -1))
	tomorrow := ptr(now.AddDate(0, 0, 1))

	tasks := []models.Task{
		mkTask("pending", models.TaskStatusPending, 0, tomorrow, "", true),
		mkTask("in-progress", models.TaskStatusInProgress, 0, tomorrow, "", true),
		mkTask("late", models.TaskStatusPending, 0, yesterday, "", true),
		mkTask("done", models.TaskStatusCompleted, 0, yesterday, "", true),
	}

	// pending = pending or in-progress (stored status, includes the late one)
	out := Filter(tasks, TypeAll, StatusPending, now)
	assert.Len(t, out, 3)

	out = Filter(tasks, TypeAll, StatusCompleted, now)
	require.Len(t, out, 1)
	assert.Equal(t, "done", out[0].Title)

	out = Filter(tasks, TypeAll, StatusOverdue, now)
	require.Len(t, out, 1)
	assert.Equal(t, "late", out[0].Title)
}

func TestParseFilters(t *testing.T) {
	assert.Equal(t, TypeAll, ParseFilterType(""))
	assert.Equal(t, TypeAll, ParseFilterType("bogus"))
	assert.Equal(t, TypeDaily, ParseFilterType("daily"))
	assert.Equal(t, StatusAll, ParseFilterStatus(""))
	assert.Equal(t, StatusOverdue, ParseFilterStatus("overdue"))
}

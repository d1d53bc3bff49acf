package schedule

import (
	"testing"
	"time"
)

func mustLoadLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("Asia/Colombo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func TestParseClockToMinutes(t *testing.T) {
	min, err := ParseClockToMinutes("09:45")
	if err != nil {
		t.Fatalf("ParseClockToMinutes error: %v", err)
	}
	if min != 585 {
		t.Fatalf("expected 585, got %d", min)
	}
	if _, err := ParseClockToMinutes("25:00"); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}

func TestSlotIntervalIs45Minutes(t *testing.T) {
	iv, err := SlotInterval("10:00")
	if err != nil {
		t.Fatalf("SlotInterval error: %v", err)
	}
	if iv.End-iv.Start != SlotMinutes {
		t.Fatalf("expected %d minute span, got %d", SlotMinutes, iv.End-iv.Start)
	}
}

func TestConflictsAny(t *testing.T) {
	reserved := []Interval{{Start: 600, End: 645}} // 10:00-10:45

	conflict, err := ConflictsAny("10:30", reserved)
	if err != nil {
		t.Fatalf("ConflictsAny error: %v", err)
	}
	if !conflict {
		t.Fatalf("expected 10:30 to conflict with 10:00-10:45")
	}

	conflict, err = ConflictsAny("10:45", reserved)
	if err != nil {
		t.Fatalf("ConflictsAny error: %v", err)
	}
	if conflict {
		t.Fatalf("expected back-to-back 10:45 slot to not conflict")
	}
}

func TestWeekStartIsMonday(t *testing.T) {
	loc := mustLoadLoc(t)
	// 2026-02-04 is a Wednesday
	wed := time.Date(2026, 2, 4, 15, 30, 0, 0, loc)
	ws := WeekStart(wed)
	if ws.Weekday() != time.Monday {
		t.Fatalf("expected Monday, got %v", ws.Weekday())
	}
	if ws.Format("2006-01-02") != "2026-02-02" {
		t.Fatalf("expected 2026-02-02, got %s", ws.Format("2006-01-02"))
	}

	// A Monday is its own week start
	mon := time.Date(2026, 2, 2, 0, 0, 0, 0, loc)
	if !WeekStart(mon).Equal(mon) {
		t.Fatalf("Monday should be its own week start")
	}

	// Sunday belongs to the preceding Monday's week
	sun := time.Date(2026, 2, 8, 10, 0, 0, 0, loc)
	if WeekStart(sun).Format("2006-01-02") != "2026-02-02" {
		t.Fatalf("Sunday should map back to Monday 2026-02-02")
	}
}

func TestExpandDatesWeekdaySelection(t *testing.T) {
	loc := mustLoadLoc(t)
	// 2026-02-02 (Mon) through 2026-02-15 (Sun): two Mondays and two Thursdays
	dates, err := ExpandDates("2026-02-02", "2026-02-15", []time.Weekday{time.Monday, time.Thursday}, loc)
	if err != nil {
		t.Fatalf("ExpandDates error: %v", err)
	}
	want := []string{"2026-02-02", "2026-02-05", "2026-02-09", "2026-02-12"}
	if len(dates) != len(want) {
		t.Fatalf("expected %d dates, got %d: %v", len(want), len(dates), dates)
	}
	for i, d := range want {
		if dates[i] != d {
			t.Fatalf("expected %s at index %d, got %s", d, i, dates[i])
		}
	}
}

func TestExpandDatesAllDays(t *testing.T) {
	loc := mustLoadLoc(t)
	dates, err := ExpandDates("2026-02-02", "2026-02-04", nil, loc)
	if err != nil {
		t.Fatalf("ExpandDates error: %v", err)
	}
	if len(dates) != 3 {
		t.Fatalf("expected 3 dates, got %d", len(dates))
	}
}

func TestExpandDatesInvalidRange(t *testing.T) {
	loc := mustLoadLoc(t)
	if _, err := ExpandDates("2026-02-10", "2026-02-02", nil, loc); err != ErrInvalidRange {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestExpandDatesCapsRangeLength(t *testing.T) {
	loc := mustLoadLoc(t)

	// A maximal multi-century range must be rejected outright, not expanded.
	if _, err := ExpandDates("0001-01-01", "9999-12-31", nil, loc); err != ErrRangeTooLong {
		t.Fatalf("expected ErrRangeTooLong, got %v", err)
	}
	if _, err := ExpandDates("2026-01-01", "2027-06-01", nil, loc); err != ErrRangeTooLong {
		t.Fatalf("expected ErrRangeTooLong for 517-day range, got %v", err)
	}

	// A full leap year is still allowed
	dates, err := ExpandDates("2028-01-01", "2028-12-31", nil, loc)
	if err != nil {
		t.Fatalf("ExpandDates error: %v", err)
	}
	if len(dates) != 366 {
		t.Fatalf("expected 366 dates, got %d", len(dates))
	}
}

func TestIsDatePast(t *testing.T) {
	loc := mustLoadLoc(t)
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)

	past, err := IsDatePast("2026-02-03", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected date to be past")
	}

	past, err = IsDatePast("2026-02-04", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected today to not be past")
	}
}

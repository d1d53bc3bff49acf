package schedule

import (
	"errors"
	"fmt"
	"time"
)

// SlotMinutes is the fixed duration of every availability slot.
const SlotMinutes = 45

// MaxRangeDays caps how many days a bulk date range may span.
const MaxRangeDays = 366

var (
	ErrInvalidDate  = errors.New("invalid date format")
	ErrInvalidTime  = errors.New("invalid time format")
	ErrInvalidRange = errors.New("end date before start date")
	ErrRangeTooLong = errors.New("date range cannot exceed 366 days")
)

// ParseDate parses a YYYY-MM-DD date in the given location.
func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

// ParseClockToMinutes converts an HH:MM string to minutes since midnight.
func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

// MinutesToClock converts minutes since midnight to an HH:MM string.
func MinutesToClock(minutes int) string {
	h := minutes / 60
	m := minutes % 60
	return fmt.Sprintf("%02d:%02d", h, m)
}

// IsDatePast reports whether the date is strictly before today in loc.
func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

// Interval is a [Start, End) span in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// Overlaps reports whether two intervals intersect.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// SlotInterval returns the interval a slot starting at timeStr occupies.
func SlotInterval(timeStr string) (Interval, error) {
	start, err := ParseClockToMinutes(timeStr)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: start + SlotMinutes}, nil
}

// ConflictsAny reports whether a slot at timeStr overlaps any reserved
// interval on the same date.
func ConflictsAny(timeStr string, reserved []Interval) (bool, error) {
	candidate, err := SlotInterval(timeStr)
	if err != nil {
		return false, err
	}
	for _, r := range reserved {
		if Overlaps(candidate, r) {
			return true, nil
		}
	}
	return false, nil
}

// WeekStart returns the Monday at 00:00 of the week containing date.
func WeekStart(date time.Time) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	// time.Weekday: Sunday == 0, Monday == 1
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// ExpandDates walks [startDate, endDate] inclusive and returns the dates
// whose weekday is in daysOfWeek (time.Weekday values). An empty daysOfWeek
// selects every day. Ranges longer than MaxRangeDays are rejected.
func ExpandDates(startStr, endStr string, daysOfWeek []time.Weekday, loc *time.Location) ([]string, error) {
	start, err := ParseDate(startStr, loc)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(endStr, loc)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, ErrInvalidRange
	}
	if start.AddDate(0, 0, MaxRangeDays).Before(end) {
		return nil, ErrRangeTooLong
	}

	selected := make(map[time.Weekday]bool, len(daysOfWeek))
	for _, d := range daysOfWeek {
		selected[d] = true
	}

	dates := make([]string, 0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if len(selected) > 0 && !selected[d.Weekday()] {
			continue
		}
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates, nil
}

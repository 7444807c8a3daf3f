package domain

import (
	"fmt"
	"time"
)

// MinuteOfDay is a time of day expressed as minutes since local midnight.
// Schedule rules are stored this way so they survive DST shifts: "09:00"
// means 09:00 wall clock on every date the rule applies to.
type MinuteOfDay int

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// At anchors the time of day on a calendar date in the given location.
func (m MinuteOfDay) At(date Date, loc *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, int(m)/60, int(m)%60, 0, 0, loc)
}

// ParseMinuteOfDay parses "HH:MM" (24h).
func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	var h, min int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &min); err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 24 || min < 0 || min > 59 || (h == 24 && min != 0) {
		return 0, fmt.Errorf("invalid time %q", s)
	}
	return MinuteOfDay(h*60 + min), nil
}

// Date is a calendar date with no time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Weekday in the given location is just the weekday of local midnight.
func (d Date) Weekday(loc *time.Location) time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc).Weekday()
}

// Bounds returns local midnight and the next local midnight. On DST days the
// span is 23 or 25 hours; interval math downstream only assumes ordering.
func (d Date) Bounds(loc *time.Location) (time.Time, time.Time) {
	start := time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
	end := time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, loc)
	return start, end
}

func (d Date) AddDays(n int) Date {
	t := time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC)
	return DateOf(t)
}

// WeeklyRule is one recurring working window. Multiple rules may exist for
// the same day (split shifts); overlapping rules are merged at resolve time.
type WeeklyRule struct {
	ID          int64        `json:"id"`
	HostUserID  int64        `json:"host_user_id"`
	DayOfWeek   time.Weekday `json:"day_of_week"` // 0 = Sunday
	StartMinute MinuteOfDay  `json:"start_minute"`
	EndMinute   MinuteOfDay  `json:"end_minute"`
}

func (r WeeklyRule) Validate() error {
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return NewValidationError("day_of_week", "must be 0-6")
	}
	if r.StartMinute >= r.EndMinute {
		return NewValidationError("start_time", "must be before end_time")
	}
	if r.StartMinute < 0 || r.EndMinute > 24*60 {
		return NewValidationError("time", "must fall within one day")
	}
	return nil
}

// DateOverride replaces the weekly schedule for one date. At most one
// override exists per (host, date). Blocked overrides yield zero slots;
// overrides with custom hours replace the weekly rules entirely.
type DateOverride struct {
	ID          int64        `json:"id"`
	HostUserID  int64        `json:"host_user_id"`
	Date        Date         `json:"date"`
	IsBlocked   bool         `json:"is_blocked"`
	StartMinute *MinuteOfDay `json:"start_minute,omitempty"`
	EndMinute   *MinuteOfDay `json:"end_minute,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

func (o DateOverride) Validate() error {
	if o.IsBlocked {
		return nil
	}
	if o.StartMinute == nil || o.EndMinute == nil {
		return NewValidationError("override", "custom hours require start_time and end_time")
	}
	if *o.StartMinute >= *o.EndMinute {
		return NewValidationError("start_time", "must be before end_time")
	}
	return nil
}

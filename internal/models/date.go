package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and display format of due dates.
const DateLayout = "2006-01-02"

// DateOf returns the calendar day of t as midnight UTC, dropping the time of day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar day in the local time zone.
func Today() time.Time {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD date. An empty string yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (expected YYYY-MM-DD)", s)
	}
	return &t, nil
}

// FormatDate formats an optional date, returning "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// UrgencyFor classifies a due date relative to today.
func UrgencyFor(due *time.Time, today time.Time) Urgency {
	if due == nil {
		return UrgencyNone
	}
	days := int(DateOf(*due).Sub(DateOf(today)).Hours() / 24)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days < 1:
		return UrgencyToday
	case days <= 2:
		return UrgencySoon
	case days <= 5:
		return UrgencyUpcoming
	default:
		return UrgencyLater
	}
}

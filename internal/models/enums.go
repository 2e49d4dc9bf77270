// Package models defines the domain models for taskman.
package models

import (
	"fmt"
	"strings"
)

// Status is the board column a ticket belongs to.
type Status string

const (
	StatusTodo  Status = "Todo"
	StatusDoing Status = "Doing"
	StatusDone  Status = "Done"
)

// Statuses lists the board columns from left to right.
var Statuses = []Status{StatusTodo, StatusDoing, StatusDone}

// IsValid returns true if the status is one of the three board columns.
func (s Status) IsValid() bool {
	switch s {
	case StatusTodo, StatusDoing, StatusDone:
		return true
	}
	return false
}

// Index returns the column position of the status, or -1 when invalid.
func (s Status) Index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStatus parses a column name case-insensitively.
func ParseStatus(s string) (Status, error) {
	s = strings.TrimSpace(s)
	for _, st := range Statuses {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q (valid: Todo, Doing, Done)", s)
}

// Priority is the importance of a ticket.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Priorities lists every priority from most to least important.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow}

// IsValid returns true if the priority is a known level.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Rank returns the sort rank for the priority (lower is more important).
// Unrecognised values rank after Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// ParsePriority parses a priority case-insensitively. An empty string yields Medium.
func ParsePriority(s string) (Priority, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return PriorityMedium, nil
	}
	for _, p := range Priorities {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid priority %q (valid: High, Medium, Low)", s)
}

// Urgency classifies how close a due date is.
type Urgency string

const (
	UrgencyNone     Urgency = "none"
	UrgencyOverdue  Urgency = "overdue"
	UrgencyToday    Urgency = "today"
	UrgencySoon     Urgency = "soon"     // within 2 days
	UrgencyUpcoming Urgency = "upcoming" // within 5 days
	UrgencyLater    Urgency = "later"
)

// Marker returns the single-glyph marker shown before a card title.
func (u Urgency) Marker() string {
	switch u {
	case UrgencyOverdue:
		return "⚫"
	case UrgencyToday:
		return "🔴"
	case UrgencySoon:
		return "🟠"
	case UrgencyUpcoming:
		return "🟡"
	case UrgencyLater:
		return "🟢"
	default:
		return ""
	}
}

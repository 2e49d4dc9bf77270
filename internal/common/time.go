package common

import (
	"fmt"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/models"
)

// FormatAge returns a human-readable age string for a timestamp.
// Examples: "just now", "5m ago", "3h ago", "2d ago"
func FormatAge(t time.Time) string {
	return FormatDuration(time.Since(t))
}

// FormatDuration returns a human-readable string for a duration.
// Examples: "just now", "5m ago", "3h ago", "2d ago"
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return fmt.Sprintf("%dd ago", int(d.Hours()/24))
}

// FormatDue describes a due date relative to today.
// Examples: "", "today", "tomorrow", "in 4d", "1d overdue"
func FormatDue(due *time.Time, today time.Time) string {
	if due == nil {
		return ""
	}
	days := int(models.DateOf(*due).Sub(models.DateOf(today)).Hours() / 24)
	switch {
	case days < 0:
		return fmt.Sprintf("%dd overdue", -days)
	case days == 0:
		return "today"
	case days == 1:
		return "tomorrow"
	default:
		return fmt.Sprintf("in %dd", days)
	}
}

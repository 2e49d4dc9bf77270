package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/diogenes-ai-code/taskman/internal/common"
	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/diogenes-ai-code/taskman/internal/service"
	"golang.org/x/term"
)

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiGreen  = "\033[32m"
	ansiCyan   = "\033[36m"
)

// useColor reports whether output may carry ANSI colour and urgency glyphs.
// Pipes and files get plain text.
func useColor() bool {
	if IsNoColor() || jsonOut {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func colorize(code, s string) string {
	if !useColor() {
		return s
	}
	return code + s + ansiReset
}

func priorityColor(p models.Priority) string {
	switch p {
	case models.PriorityHigh:
		return ansiRed
	case models.PriorityLow:
		return ansiGreen
	default:
		return ansiYellow
	}
}

func urgencyColor(u models.Urgency) string {
	switch u {
	case models.UrgencyOverdue, models.UrgencyToday:
		return ansiRed
	case models.UrgencySoon, models.UrgencyUpcoming:
		return ansiYellow
	default:
		return ansiDim
	}
}

// parseID parses a ticket or subtask argument.
func parseID(arg string) (int64, error) {
	id, err := common.ParseTicketID(arg)
	if err != nil {
		return 0, ErrInvalidArgsWithSuggestion(SuggestTicketID, "%v", err)
	}
	return id, nil
}

// parseStatus parses a column argument.
func parseStatus(arg string) (models.Status, error) {
	status, err := models.ParseStatus(arg)
	if err != nil {
		return "", ErrInvalidArgsWithSuggestion(SuggestStatusNames, "%v", err)
	}
	return status, nil
}

// cardLine renders one ticket as a single board line.
func cardLine(v *service.TicketView) string {
	var b strings.Builder

	b.WriteString(colorize(ansiDim, fmt.Sprintf("#%-4d", v.ID)))
	b.WriteString(" ")
	if useColor() {
		if m := v.Urgency.Marker(); m != "" {
			b.WriteString(m)
			b.WriteString(" ")
		}
	}
	b.WriteString(colorize(ansiBold, v.Title))
	b.WriteString(" ")
	b.WriteString(colorize(priorityColor(v.Priority), "["+string(v.Priority)+"]"))

	if v.Ticket.Due != nil {
		due := fmt.Sprintf("due %s (%s)", v.Due, common.FormatDue(v.Ticket.Due, models.Today()))
		b.WriteString("  ")
		b.WriteString(colorize(urgencyColor(v.Urgency), due))
	}
	if tags := v.TagList(); len(tags) > 0 {
		b.WriteString("  ")
		b.WriteString(colorize(ansiCyan, "#"+strings.Join(tags, " #")))
	}
	if v.Subtasks.Total > 0 {
		b.WriteString(fmt.Sprintf("  [%d/%d]", v.Subtasks.Done, v.Subtasks.Total))
	}
	if v.AttachmentName != "" {
		b.WriteString("  +" + v.AttachmentName)
		if !v.AttachmentAvailable {
			b.WriteString(" (missing)")
		}
	}
	return b.String()
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// truncate shortens s to at most maxLen runes, marking the cut with "...".
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

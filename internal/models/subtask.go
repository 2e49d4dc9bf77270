package models

import (
	"fmt"
	"strings"
	"time"
)

// Subtask is a checklist item owned by exactly one ticket.
type Subtask struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	Title     string    `json:"title"`
	Done      bool      `json:"done"`
	Sort      int       `json:"sort"`
	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// Validate validates the subtask fields.
func (s *Subtask) Validate() error {
	if s.TicketID <= 0 {
		return fmt.Errorf("ticket_id is required")
	}
	if strings.TrimSpace(s.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	return nil
}

// SubtaskCounts summarises a ticket's checklist.
type SubtaskCounts struct {
	Done  int `json:"done"`
	Total int `json:"total"`
}

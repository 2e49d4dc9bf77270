package models

import (
	"fmt"
	"strings"
	"time"
)

// Ticket is a single card on the board.
type Ticket struct {
	ID       int64      `json:"id"`
	Title    string     `json:"title"`
	Detail   string     `json:"detail"`
	Due      *time.Time `json:"-"`
	Priority Priority   `json:"priority"`

	// Status decides column membership; Sort orders the ticket within it.
	Status Status `json:"status"`
	Sort   int    `json:"sort"`

	// Tags is the raw comma-separated tag string as entered.
	Tags string `json:"tags"`

	ParentID   *int64 `json:"parent_id,omitempty"`
	Attachment string `json:"attachment,omitempty"`

	// Expanded is the persisted collapse/expand state of the card.
	Expanded bool `json:"expanded"`

	CreatedAt time.Time `json:"created"`
	UpdatedAt time.Time `json:"updated"`
}

// TagList splits the raw tag string on commas, trimming whitespace and
// dropping empty entries. Duplicates are kept.
func (t *Ticket) TagList() []string {
	return SplitTags(t.Tags)
}

// HasTags reports whether the ticket carries at least one non-empty tag.
func (t *Ticket) HasTags() bool {
	return len(t.TagList()) > 0
}

// DueString returns the due date as YYYY-MM-DD, or "" when absent.
func (t *Ticket) DueString() string {
	return FormatDate(t.Due)
}

// Validate validates the editable ticket fields.
func (t *Ticket) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if !t.Priority.IsValid() {
		return fmt.Errorf("invalid priority: %s", t.Priority)
	}
	if !t.Status.IsValid() {
		return fmt.Errorf("invalid status: %s", t.Status)
	}
	return nil
}

// SplitTags splits a comma-separated tag string into trimmed, non-empty tags.
func SplitTags(raw string) []string {
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// Board is every ticket grouped by column, each column in display order.
type Board map[Status][]*Ticket

// NewBoard returns a board with an empty slice for every column.
func NewBoard() Board {
	b := make(Board, len(Statuses))
	for _, s := range Statuses {
		b[s] = []*Ticket{}
	}
	return b
}

// All returns every ticket on the board, column by column.
func (b Board) All() []*Ticket {
	var all []*Ticket
	for _, s := range Statuses {
		all = append(all, b[s]...)
	}
	return all
}

// Find returns the ticket with the given id and its column position.
func (b Board) Find(id int64) (*Ticket, int, bool) {
	for _, s := range Statuses {
		for i, t := range b[s] {
			if t.ID == id {
				return t, i, true
			}
		}
	}
	return nil, -1, false
}

// ColumnOrder is the complete top-to-bottom id order of one column,
// as produced by a drag-and-drop gesture.
type ColumnOrder struct {
	Status Status  `json:"status"`
	IDs    []int64 `json:"ids"`
}

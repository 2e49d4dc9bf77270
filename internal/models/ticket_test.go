package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicketTagList(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"bug", []string{"bug"}},
		{"bug, urgent ,", []string{"bug", "urgent"}},
		{" , ", nil},
		{"bug,bug", []string{"bug", "bug"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			ticket := &Ticket{Tags: tt.raw}
			assert.Equal(t, tt.want, ticket.TagList())
			assert.Equal(t, tt.want != nil, ticket.HasTags())
		})
	}
}

func TestTicketValidate(t *testing.T) {
	valid := Ticket{Title: "Write report", Priority: PriorityMedium, Status: StatusTodo}
	assert.NoError(t, valid.Validate())

	noTitle := valid
	noTitle.Title = "   "
	assert.EqualError(t, noTitle.Validate(), "title cannot be empty")

	badPriority := valid
	badPriority.Priority = "Urgent"
	assert.Error(t, badPriority.Validate())
}

func TestBoardFind(t *testing.T) {
	b := NewBoard()
	b[StatusDoing] = append(b[StatusDoing], &Ticket{ID: 1}, &Ticket{ID: 2})

	ticket, pos, ok := b.Find(2)
	assert.True(t, ok)
	assert.Equal(t, int64(2), ticket.ID)
	assert.Equal(t, 1, pos)

	_, _, ok = b.Find(3)
	assert.False(t, ok)
	assert.Len(t, b.All(), 2)
}

package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Status
		wantErr bool
	}{
		{"exact", "Todo", StatusTodo, false},
		{"lowercase", "doing", StatusDoing, false},
		{"uppercase", "DONE", StatusDone, false},
		{"with whitespace", "  todo  ", StatusTodo, false},
		{"invalid", "blocked", "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid status")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusIndex(t *testing.T) {
	assert.Equal(t, 0, StatusTodo.Index())
	assert.Equal(t, 1, StatusDoing.Index())
	assert.Equal(t, 2, StatusDone.Index())
	assert.Equal(t, -1, Status("Later").Index())
}

func TestParsePriority(t *testing.T) {
	tests := []struct {
		input   string
		want    Priority
		wantErr bool
	}{
		{"High", PriorityHigh, false},
		{"low", PriorityLow, false},
		{"", PriorityMedium, false},
		{"urgent", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePriority(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Less(t, PriorityLow.Rank(), Priority("Someday").Rank())
}

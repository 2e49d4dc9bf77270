package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketID(t *testing.T) {
	tests := []struct {
		ref     string
		want    int64
		wantErr bool
	}{
		{"42", 42, false},
		{"#42", 42, false},
		{"1", 1, false},
		{"  7  ", 7, false},

		{"0", 0, true},
		{"#0", 0, true},
		{"-3", 0, true},
		{"abc", 0, true},
		{"##4", 0, true},
		{"4#", 0, true},
		{"99999999999999999999", 0, true}, // overflows int64
		{"", 0, true},
		{" ", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			id, err := ParseTicketID(tt.ref)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTicketID)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.want, id)
			}
		})
	}
}

func TestParseTicketIDs(t *testing.T) {
	ids, err := ParseTicketIDs([]string{"3", "#1", "2"})
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1, 2}, ids)

	_, err = ParseTicketIDs([]string{"3", "x"})
	assert.ErrorIs(t, err, ErrInvalidTicketID)

	ids, err = ParseTicketIDs(nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"High", "Low"}, SplitList("High, Low"))
	assert.Equal(t, []string{"a", "b"}, SplitList(" a,,b , "))
	assert.Nil(t, SplitList(""))
}

// Package common provides shared utilities used across CLI and server packages.
package common

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTicketID is returned when a ticket reference is not a positive number.
var ErrInvalidTicketID = errors.New("invalid ticket id (expected a positive number, e.g. 42 or #42)")

// ticketIDRegex accepts "42" and "#42".
var ticketIDRegex = regexp.MustCompile(`^#?(\d+)$`)

// ParseTicketID parses a ticket reference like "42" or "#42".
// Returns ErrInvalidTicketID if the format is invalid or the number is not positive.
func ParseTicketID(ref string) (int64, error) {
	matches := ticketIDRegex.FindStringSubmatch(strings.TrimSpace(ref))
	if matches == nil {
		return 0, ErrInvalidTicketID
	}
	id, err := strconv.ParseInt(matches[1], 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidTicketID
	}
	return id, nil
}

// ParseTicketIDs parses every reference, failing on the first invalid one.
func ParseTicketIDs(refs []string) ([]int64, error) {
	ids := make([]int64, 0, len(refs))
	for _, ref := range refs {
		id, err := ParseTicketID(ref)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// SplitList splits a comma-separated flag value into trimmed, non-empty items.
func SplitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

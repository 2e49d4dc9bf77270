// Package board holds the pure filter and sort transforms applied to a board
// column before it is displayed. Nothing here touches storage.
package board

import (
	"sort"
	"strings"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/models"
	"golang.org/x/text/cases"
)

// SortOptions are independent toggles; both may be on at once.
type SortOptions struct {
	ByDue      bool
	ByPriority bool
}

// FilterOptions are applied conjunctively after sorting.
type FilterOptions struct {
	// OverdueOnly keeps tickets due today or earlier.
	OverdueOnly bool
	// Search matches title or raw tags, ignoring case. Empty disables it.
	Search string
	// Priorities is the selected priority set. An empty set selects nothing.
	Priorities []models.Priority
	// RestrictTags enables the tag filter; Tags is then the selected set.
	// Untagged tickets always pass.
	RestrictTags bool
	Tags         []string
}

// DefaultFilterOptions selects every priority and leaves tags unrestricted.
func DefaultFilterOptions() FilterOptions {
	return FilterOptions{
		Priorities: append([]models.Priority{}, models.Priorities...),
	}
}

// Apply returns a sorted and filtered copy of tickets. The input slice and
// the tickets it points to are left untouched.
func Apply(tickets []*models.Ticket, so SortOptions, fo FilterOptions, today time.Time) []*models.Ticket {
	sorted := make([]*models.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.SliceStable(sorted, less(sorted, so))

	result := make([]*models.Ticket, 0, len(sorted))
	m := newMatcher(fo, today)
	for _, t := range sorted {
		if m.match(t) {
			result = append(result, t)
		}
	}
	return result
}

func less(ts []*models.Ticket, so SortOptions) func(i, j int) bool {
	return func(i, j int) bool {
		a, b := ts[i], ts[j]
		if so.ByDue {
			if c := compareDue(a.Due, b.Due); c != 0 {
				return c < 0
			}
		}
		if so.ByPriority {
			if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
				return ra < rb
			}
		}
		if !so.ByDue && !so.ByPriority && a.Sort != b.Sort {
			return a.Sort < b.Sort
		}
		return a.ID < b.ID
	}
}

// compareDue orders dated tickets by day with undated ones after all of them.
func compareDue(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	da, db := models.DateOf(*a), models.DateOf(*b)
	switch {
	case da.Before(db):
		return -1
	case da.After(db):
		return 1
	}
	return 0
}

type matcher struct {
	opts       FilterOptions
	today      time.Time
	search     string
	fold       cases.Caser
	priorities map[models.Priority]bool
	tags       map[string]bool
}

func newMatcher(fo FilterOptions, today time.Time) *matcher {
	m := &matcher{
		opts:       fo,
		today:      models.DateOf(today),
		fold:       cases.Fold(),
		priorities: make(map[models.Priority]bool, len(fo.Priorities)),
		tags:       make(map[string]bool, len(fo.Tags)),
	}
	m.search = m.fold.String(fo.Search)
	for _, p := range fo.Priorities {
		m.priorities[p] = true
	}
	for _, tag := range fo.Tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			m.tags[tag] = true
		}
	}
	return m
}

func (m *matcher) match(t *models.Ticket) bool {
	if m.opts.OverdueOnly {
		if t.Due == nil || models.DateOf(*t.Due).After(m.today) {
			return false
		}
	}

	if m.search != "" &&
		!strings.Contains(m.fold.String(t.Title), m.search) &&
		!strings.Contains(m.fold.String(t.Tags), m.search) {
		return false
	}

	if !m.priorities[t.Priority] {
		return false
	}

	if m.opts.RestrictTags {
		tags := t.TagList()
		if len(tags) == 0 {
			return true
		}
		for _, tag := range tags {
			if m.tags[tag] {
				return true
			}
		}
		return false
	}
	return true
}

// CollectTags returns every distinct trimmed tag on the board, sorted.
func CollectTags(b models.Board) []string {
	seen := make(map[string]bool)
	tags := []string{}
	for _, t := range b.All() {
		for _, tag := range t.TagList() {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	sort.Strings(tags)
	return tags
}

package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/diogenes-ai-code/taskman/internal/models"
)

// SubtaskRepo provides checklist operations over the subtasks table.
type SubtaskRepo struct {
	db *sql.DB
}

// NewSubtaskRepo creates a new SubtaskRepo.
func NewSubtaskRepo(db *sql.DB) *SubtaskRepo {
	return &SubtaskRepo{db: db}
}

// List retrieves the subtasks of a ticket ordered by (sort, id).
func (r *SubtaskRepo) List(ctx context.Context, ticketID int64) ([]*models.Subtask, error) {
	query := `
		SELECT id, ticket_id, title, done, sort, created, updated
		FROM subtasks
		WHERE ticket_id = ?
		ORDER BY sort, id
	`
	rows, err := r.db.QueryContext(ctx, query, ticketID)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to list subtasks")
	}
	defer rows.Close()

	subtasks := []*models.Subtask{}
	for rows.Next() {
		var s models.Subtask
		if err := rows.Scan(&s.ID, &s.TicketID, &s.Title, &s.Done, &s.Sort, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, werrors.WrapStorage(err, "failed to scan subtask")
		}
		subtasks = append(subtasks, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.WrapStorage(err, "error iterating subtasks")
	}
	return subtasks, nil
}

// Add appends a subtask to the end of a ticket's checklist.
// An empty or whitespace-only title is ignored and yields (nil, nil).
func (r *SubtaskRepo) Add(ctx context.Context, ticketID int64, title string) (*models.Subtask, error) {
	st := models.Subtask{TicketID: ticketID, Title: strings.TrimSpace(title)}
	if st.Title == "" {
		return nil, nil
	}
	if err := st.Validate(); err != nil {
		return nil, werrors.Validation("invalid subtask: %v", err)
	}

	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM tickets WHERE id = ?", ticketID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, werrors.NotFound("ticket %d not found", ticketID)
	}
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to look up ticket")
	}

	var maxSort sql.NullInt64
	err = r.db.QueryRowContext(ctx, "SELECT MAX(sort) FROM subtasks WHERE ticket_id = ?", ticketID).Scan(&maxSort)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to get max sort")
	}

	nextSort := 0
	if maxSort.Valid {
		nextSort = int(maxSort.Int64) + 1
	}

	now := time.Now()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO subtasks (ticket_id, title, done, sort, created, updated)
		VALUES (?, ?, 0, ?, ?, ?)
	`, st.TicketID, st.Title, nextSort, now, now)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to add subtask")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to get subtask id")
	}

	st.ID = id
	st.Sort = nextSort
	st.CreatedAt = now
	st.UpdatedAt = now
	return &st, nil
}

// Toggle sets the completion flag of a subtask. The parent ticket is not touched.
func (r *SubtaskRepo) Toggle(ctx context.Context, id int64, done bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE subtasks SET done = ?, updated = ? WHERE id = ?`, done, time.Now(), id)
	if err != nil {
		return werrors.WrapStorage(err, "failed to toggle subtask")
	}
	return requireAffected(result, "subtask", id)
}

// Delete removes a subtask. Deleting a missing subtask is a no-op.
func (r *SubtaskRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM subtasks WHERE id = ?`, id); err != nil {
		return werrors.WrapStorage(err, "failed to delete subtask")
	}
	return nil
}

// Counts returns done/total checklist counts keyed by ticket id.
// Tickets without subtasks are absent from the map.
func (r *SubtaskRepo) Counts(ctx context.Context) (map[int64]models.SubtaskCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT ticket_id, COALESCE(SUM(done), 0), COUNT(*) FROM subtasks GROUP BY ticket_id`)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to count subtasks")
	}
	defer rows.Close()

	counts := make(map[int64]models.SubtaskCounts)
	for rows.Next() {
		var ticketID int64
		var c models.SubtaskCounts
		if err := rows.Scan(&ticketID, &c.Done, &c.Total); err != nil {
			return nil, werrors.WrapStorage(err, "failed to scan subtask count")
		}
		counts[ticketID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.WrapStorage(err, "error iterating subtask counts")
	}
	return counts, nil
}

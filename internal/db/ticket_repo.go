package db

import (
	"context"
	"database/sql"
	"strings"
	"time"

	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/diogenes-ai-code/taskman/internal/models"
)

// TicketRepo provides board operations over the tickets table.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo creates a new TicketRepo.
func NewTicketRepo(db *sql.DB) *TicketRepo {
	return &TicketRepo{db: db}
}

// NewTicket holds the fields supplied when adding a ticket.
type NewTicket struct {
	Title      string
	Detail     string
	Due        *time.Time
	Priority   models.Priority
	Tags       string
	ParentID   *int64
	Attachment string
}

// TicketEdit holds the editable fields of a ticket. Update replaces all of them.
type TicketEdit struct {
	Title      string
	Detail     string
	Due        *time.Time
	Priority   models.Priority
	Tags       string
	Attachment string
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const ticketColumns = `id, title, detail, due, priority, status, tags, sort,
	created, updated, parent_id, attachment, expanded`

// FetchBoard returns every ticket grouped by status, each column ordered by
// (sort, id). Every column is present, even when empty.
func (r *TicketRepo) FetchBoard(ctx context.Context) (models.Board, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets ORDER BY sort, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to fetch board")
	}
	defer rows.Close()

	board := models.NewBoard()
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		if !t.Status.IsValid() {
			return nil, werrors.Storage("ticket %d has unknown status %q", t.ID, t.Status)
		}
		board[t.Status] = append(board[t.Status], t)
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.WrapStorage(err, "error iterating tickets")
	}
	return board, nil
}

// Get retrieves a ticket by ID.
func (r *TicketRepo) Get(ctx context.Context, id int64) (*models.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id = ?`
	t, err := scanTicket(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, werrors.NotFound("ticket %d not found", id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Insert adds a ticket to the Todo column with sort 0 and returns its id.
// New cards start expanded.
func (r *TicketRepo) Insert(ctx context.Context, in NewTicket) (int64, error) {
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	t := models.Ticket{Title: in.Title, Priority: in.Priority, Status: models.StatusTodo}
	if err := t.Validate(); err != nil {
		return 0, werrors.Validation("invalid ticket: %v", err)
	}

	query := `
		INSERT INTO tickets (
			title, detail, due, priority, status, tags, sort,
			created, updated, parent_id, attachment, expanded
		) VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, 1)
	`
	now := time.Now()
	result, err := r.db.ExecContext(ctx, query,
		in.Title, in.Detail, nullDate(in.Due), in.Priority, models.StatusTodo, in.Tags,
		now, now, nullInt64(in.ParentID), nullString(in.Attachment),
	)
	if err != nil {
		return 0, werrors.WrapStorage(err, "failed to insert ticket")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, werrors.WrapStorage(err, "failed to get ticket id")
	}
	return id, nil
}

// Update replaces the editable fields of a ticket. Status, sort and the
// expand state are left alone.
func (r *TicketRepo) Update(ctx context.Context, id int64, in TicketEdit) error {
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	t := models.Ticket{Title: in.Title, Priority: in.Priority, Status: models.StatusTodo}
	if err := t.Validate(); err != nil {
		return werrors.Validation("invalid ticket: %v", err)
	}

	query := `
		UPDATE tickets SET
			title = ?, detail = ?, due = ?, priority = ?, tags = ?, attachment = ?, updated = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		in.Title, in.Detail, nullDate(in.Due), in.Priority, in.Tags, nullString(in.Attachment),
		time.Now(), id,
	)
	if err != nil {
		return werrors.WrapStorage(err, "failed to update ticket")
	}
	return requireAffected(result, "ticket", id)
}

// Move changes only the status of a ticket. The caller re-sequences if needed.
func (r *TicketRepo) Move(ctx context.Context, id int64, status models.Status) error {
	if !status.IsValid() {
		return werrors.Validation("invalid status: %s", status)
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE tickets SET status = ?, updated = ? WHERE id = ?`, status, time.Now(), id)
	if err != nil {
		return werrors.WrapStorage(err, "failed to move ticket")
	}
	return requireAffected(result, "ticket", id)
}

// Delete removes a ticket and, through the foreign key, its subtasks.
// Deleting a missing ticket is a no-op.
func (r *TicketRepo) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM tickets WHERE id = ?`, id); err != nil {
		return werrors.WrapStorage(err, "failed to delete ticket")
	}
	return nil
}

// SwapSort exchanges the sort values of two tickets in one transaction.
func (r *TicketRepo) SwapSort(ctx context.Context, idA, idB int64) error {
	if idA == idB {
		return nil
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		sortA, _, err := currentPlacement(ctx, tx, idA)
		if err != nil {
			return err
		}
		sortB, _, err := currentPlacement(ctx, tx, idB)
		if err != nil {
			return err
		}

		now := time.Now()
		if _, err := tx.ExecContext(ctx, `UPDATE tickets SET sort = ?, updated = ? WHERE id = ?`, sortB, now, idA); err != nil {
			return werrors.WrapStorage(err, "failed to swap sort")
		}
		if _, err := tx.ExecContext(ctx, `UPDATE tickets SET sort = ?, updated = ? WHERE id = ?`, sortA, now, idB); err != nil {
			return werrors.WrapStorage(err, "failed to swap sort")
		}
		return nil
	})
}

// ReorderColumn assigns sort = 0..n-1 to ids in the given column, moving any
// ticket that came from another column.
func (r *TicketRepo) ReorderColumn(ctx context.Context, status models.Status, ids []int64) error {
	return r.ReorderColumns(ctx, models.ColumnOrder{Status: status, IDs: ids})
}

// ReorderColumns applies several column orders in a single transaction, as
// needed when a drag crosses columns. Tickets already in a column but absent
// from every order keep their relative order after the listed ones.
func (r *TicketRepo) ReorderColumns(ctx context.Context, orders ...models.ColumnOrder) error {
	listed := make(map[int64]bool)
	for _, o := range orders {
		if !o.Status.IsValid() {
			return werrors.Validation("invalid status: %s", o.Status)
		}
		for _, id := range o.IDs {
			if listed[id] {
				return werrors.Validation("ticket %d listed more than once", id)
			}
			listed[id] = true
		}
	}

	return r.withTx(ctx, func(tx *sql.Tx) error {
		now := time.Now()
		for _, o := range orders {
			current, err := columnIDs(ctx, tx, o.Status)
			if err != nil {
				return err
			}

			final := append([]int64{}, o.IDs...)
			for _, id := range current {
				if !listed[id] {
					final = append(final, id)
				}
			}

			for pos, id := range final {
				sort, status, err := currentPlacement(ctx, tx, id)
				if err != nil {
					return err
				}
				if sort == pos && status == o.Status {
					continue
				}
				_, err = tx.ExecContext(ctx,
					`UPDATE tickets SET sort = ?, status = ?, updated = ? WHERE id = ?`,
					pos, o.Status, now, id)
				if err != nil {
					return werrors.WrapStorage(err, "failed to reorder column %s", o.Status)
				}
			}
		}
		return nil
	})
}

// SetExpanded persists the expand state of a card without touching updated.
func (r *TicketRepo) SetExpanded(ctx context.Context, id int64, expanded bool) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tickets SET expanded = ? WHERE id = ?`, expanded, id)
	if err != nil {
		return werrors.WrapStorage(err, "failed to set expand state")
	}
	return requireAffected(result, "ticket", id)
}

// SetAllExpanded expands or collapses every card at once.
func (r *TicketRepo) SetAllExpanded(ctx context.Context, expanded bool) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE tickets SET expanded = ?`, expanded); err != nil {
		return werrors.WrapStorage(err, "failed to set expand state")
	}
	return nil
}

// Exists reports whether a ticket with the given id exists.
func (r *TicketRepo) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM tickets WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, werrors.WrapStorage(err, "failed to look up ticket")
	}
	return true, nil
}

func (r *TicketRepo) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return werrors.WrapStorage(err, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return werrors.WrapStorage(err, "failed to commit transaction")
	}
	return nil
}

func columnIDs(ctx context.Context, q queryer, status models.Status) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `SELECT id FROM tickets WHERE status = ? ORDER BY sort, id`, status)
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to read column %s", status)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, werrors.WrapStorage(err, "failed to scan ticket id")
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, werrors.WrapStorage(err, "error iterating column %s", status)
	}
	return ids, nil
}

func currentPlacement(ctx context.Context, q queryer, id int64) (int, models.Status, error) {
	var sort int
	var status models.Status
	err := q.QueryRowContext(ctx, `SELECT sort, status FROM tickets WHERE id = ?`, id).Scan(&sort, &status)
	if err == sql.ErrNoRows {
		return 0, "", werrors.NotFound("ticket %d not found", id)
	}
	if err != nil {
		return 0, "", werrors.WrapStorage(err, "failed to read ticket %d", id)
	}
	return sort, status, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(rs rowScanner) (*models.Ticket, error) {
	var t models.Ticket
	var detail, due, tags, attachment sql.NullString
	var parentID sql.NullInt64

	err := rs.Scan(
		&t.ID, &t.Title, &detail, &due, &t.Priority, &t.Status, &tags, &t.Sort,
		&t.CreatedAt, &t.UpdatedAt, &parentID, &attachment, &t.Expanded,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, werrors.WrapStorage(err, "failed to scan ticket")
	}

	t.Status = models.Status(strings.TrimSpace(string(t.Status)))
	t.Detail = detail.String
	t.Tags = tags.String
	t.Attachment = attachment.String
	if parentID.Valid {
		t.ParentID = &parentID.Int64
	}
	if due.Valid && due.String != "" {
		d, err := models.ParseDate(due.String)
		if err != nil {
			return nil, werrors.WrapStorage(err, "ticket %d has a malformed due date", t.ID)
		}
		t.Due = d
	}
	return &t, nil
}

func requireAffected(result sql.Result, what string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return werrors.WrapStorage(err, "failed to get rows affected")
	}
	if rows == 0 {
		return werrors.NotFound("%s %d not found", what, id)
	}
	return nil
}

// Helper functions for nullable types
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func nullDate(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: models.FormatDate(t), Valid: true}
}

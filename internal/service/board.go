// Package service provides the board use cases the CLI and HTTP server call.
package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/attachment"
	"github.com/diogenes-ai-code/taskman/internal/board"
	"github.com/diogenes-ai-code/taskman/internal/db"
	werrors "github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/diogenes-ai-code/taskman/internal/state"
)

// BoardService coordinates the ticket and subtask repositories, the state
// machine and the attachment store.
type BoardService struct {
	tickets      *db.TicketRepo
	subtasks     *db.SubtaskRepo
	files        *attachment.Store
	stateMachine *state.Machine
	logger       *slog.Logger
}

// NewBoardService creates a BoardService. A nil logger discards output.
func NewBoardService(database *sql.DB, files *attachment.Store, logger *slog.Logger) *BoardService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &BoardService{
		tickets:      db.NewTicketRepo(database),
		subtasks:     db.NewSubtaskRepo(database),
		files:        files,
		stateMachine: state.NewMachine(),
		logger:       logger,
	}
}

// Upload is a file supplied with a create or edit.
type Upload struct {
	Name string
	Body io.Reader
}

// TicketInput holds the raw fields of a new ticket.
type TicketInput struct {
	Title    string
	Detail   string
	Due      *time.Time
	Priority models.Priority
	Tags     string
	ParentID *int64
	Upload   *Upload
}

// TicketUpdate holds the edited fields of a ticket. Without an Upload the
// current attachment is kept unless RemoveAttachment is set.
type TicketUpdate struct {
	Title            string
	Detail           string
	Due              *time.Time
	Priority         models.Priority
	Tags             string
	Upload           *Upload
	RemoveAttachment bool
}

// TicketView is a ticket decorated for display.
type TicketView struct {
	*models.Ticket
	Due                 string               `json:"due,omitempty"`
	Urgency             models.Urgency       `json:"urgency"`
	AttachmentName      string               `json:"attachment_name,omitempty"`
	AttachmentAvailable bool                 `json:"attachment_available"`
	Subtasks            models.SubtaskCounts `json:"subtasks"`
}

// Column is one board column after filtering.
type Column struct {
	Status  models.Status `json:"status"`
	Tickets []*TicketView `json:"tickets"`
	// Total counts the column before filtering.
	Total int `json:"total"`
}

// BoardQuery selects how the board is presented.
type BoardQuery struct {
	Sort     board.SortOptions
	Filter   board.FilterOptions
	HideDone bool
	Today    time.Time
}

// TimelineEntry is one dated ticket drawn as a span from creation to due date.
type TimelineEntry struct {
	ID       int64           `json:"id"`
	Title    string          `json:"title"`
	Status   models.Status   `json:"status"`
	Priority models.Priority `json:"priority"`
	Start    string          `json:"start"`
	End      string          `json:"end"`
	Days     int             `json:"days"`
	Urgency  models.Urgency  `json:"urgency"`
}

func (s *BoardService) validateFields(title string, priority models.Priority, upload *Upload) (models.Priority, error) {
	if upload != nil {
		if err := s.files.Check(upload.Name); err != nil {
			return "", err
		}
	}
	if priority == "" {
		priority = models.PriorityMedium
	}
	if strings.TrimSpace(title) == "" {
		return "", werrors.Validation("title cannot be empty")
	}
	if !priority.IsValid() {
		return "", werrors.Validation("invalid priority %q (valid: High, Medium, Low)", priority)
	}
	return priority, nil
}

// CreateTicket adds a ticket to Todo. An upload is written before the row
// and removed again if the insert fails.
func (s *BoardService) CreateTicket(ctx context.Context, in TicketInput) (*models.Ticket, error) {
	priority, err := s.validateFields(in.Title, in.Priority, in.Upload)
	if err != nil {
		return nil, err
	}

	if in.ParentID != nil {
		ok, err := s.tickets.Exists(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, werrors.NotFound("parent ticket %d not found", *in.ParentID)
		}
	}

	var path string
	if in.Upload != nil {
		if path, err = s.files.Save(in.Upload.Name, in.Upload.Body); err != nil {
			return nil, err
		}
	}

	id, err := s.tickets.Insert(ctx, db.NewTicket{
		Title:      strings.TrimSpace(in.Title),
		Detail:     in.Detail,
		Due:        in.Due,
		Priority:   priority,
		Tags:       in.Tags,
		ParentID:   in.ParentID,
		Attachment: path,
	})
	if err != nil {
		s.discardFile(path)
		return nil, err
	}

	s.logger.Debug("ticket created", "ticket_id", id, "attachment", path != "")
	return s.tickets.Get(ctx, id)
}

// EditTicket replaces the editable fields of a ticket. A replaced or removed
// attachment file is deleted once the row is updated.
func (s *BoardService) EditTicket(ctx context.Context, id int64, in TicketUpdate) (*models.Ticket, error) {
	priority, err := s.validateFields(in.Title, in.Priority, in.Upload)
	if err != nil {
		return nil, err
	}

	current, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	path := current.Attachment
	if in.RemoveAttachment {
		path = ""
	}
	if in.Upload != nil {
		if path, err = s.files.Save(in.Upload.Name, in.Upload.Body); err != nil {
			return nil, err
		}
	}

	err = s.tickets.Update(ctx, id, db.TicketEdit{
		Title:      strings.TrimSpace(in.Title),
		Detail:     in.Detail,
		Due:        in.Due,
		Priority:   priority,
		Tags:       in.Tags,
		Attachment: path,
	})
	if err != nil {
		if path != current.Attachment {
			s.discardFile(path)
		}
		return nil, err
	}

	if current.Attachment != "" && path != current.Attachment {
		s.discardFile(current.Attachment)
	}

	s.logger.Debug("ticket updated", "ticket_id", id)
	return s.tickets.Get(ctx, id)
}

// GetTicket returns a decorated ticket.
func (s *BoardService) GetTicket(ctx context.Context, id int64, today time.Time) (*TicketView, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.subtasks.Counts(ctx)
	if err != nil {
		return nil, err
	}
	return s.view(t, counts, today), nil
}

// DeleteTicket removes a ticket, its subtasks and its attachment file.
// Deleting a missing ticket is a no-op.
func (s *BoardService) DeleteTicket(ctx context.Context, id int64) error {
	t, err := s.tickets.Get(ctx, id)
	if werrors.Is(err, werrors.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.tickets.Delete(ctx, id); err != nil {
		return err
	}
	s.discardFile(t.Attachment)

	s.logger.Debug("ticket deleted", "ticket_id", id)
	return nil
}

// Advance moves a ticket one column right. At Done nothing is written and
// moved is false.
func (s *BoardService) Advance(ctx context.Context, id int64) (t *models.Ticket, moved bool, err error) {
	return s.step(ctx, id, state.TransitionTypeAdvance, state.Next)
}

// Retreat moves a ticket one column left. At Todo nothing is written and
// moved is false.
func (s *BoardService) Retreat(ctx context.Context, id int64) (t *models.Ticket, moved bool, err error) {
	return s.step(ctx, id, state.TransitionTypeRetreat, state.Prev)
}

func (s *BoardService) step(ctx context.Context, id int64, kind state.TransitionType, next func(models.Status) models.Status) (*models.Ticket, bool, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	to := next(t.Status)
	if to == t.Status {
		return t, false, nil
	}
	if err := s.stateMachine.CanTransition(t.Status, to, kind); err != nil {
		return nil, false, werrors.Validation("%v", err)
	}

	if err := s.tickets.Move(ctx, id, to); err != nil {
		return nil, false, err
	}
	s.logger.Debug("ticket moved", "ticket_id", id, "from", t.Status, "status", to)

	t, err = s.tickets.Get(ctx, id)
	return t, err == nil, err
}

// DragMove drops a ticket at index of the target column, re-sequencing the
// destination and, when it differs, the source column in one transaction.
func (s *BoardService) DragMove(ctx context.Context, id int64, target models.Status, index int) error {
	b, err := s.tickets.FetchBoard(ctx)
	if err != nil {
		return err
	}

	orders, err := state.PlanDrag(b, id, target, index)
	if err != nil {
		return err
	}
	if err := s.tickets.ReorderColumns(ctx, orders...); err != nil {
		return err
	}

	s.logger.Debug("ticket dragged", "ticket_id", id, "status", target, "index", index)
	return nil
}

// Shift moves a ticket one place up (delta < 0) or down (delta > 0) within
// its column. At either end nothing happens and moved is false.
func (s *BoardService) Shift(ctx context.Context, id int64, delta int) (moved bool, err error) {
	if delta == 0 {
		return false, nil
	}

	b, err := s.tickets.FetchBoard(ctx)
	if err != nil {
		return false, err
	}
	t, pos, ok := b.Find(id)
	if !ok {
		return false, werrors.NotFound("ticket %d not found", id)
	}

	column := b[t.Status]
	other := pos + 1
	if delta < 0 {
		other = pos - 1
	}
	if other < 0 || other >= len(column) {
		return false, nil
	}
	neighbour := column[other]

	if neighbour.Sort != t.Sort {
		err = s.tickets.SwapSort(ctx, id, neighbour.ID)
	} else {
		// Equal sorts only order by id, so swapping them changes nothing.
		ids := make([]int64, len(column))
		for i, c := range column {
			ids[i] = c.ID
		}
		ids[pos], ids[other] = ids[other], ids[pos]
		err = s.tickets.ReorderColumn(ctx, t.Status, ids)
	}
	if err != nil {
		return false, err
	}

	s.logger.Debug("ticket shifted", "ticket_id", id, "status", t.Status, "delta", delta)
	return true, nil
}

// Reorder applies a full column order, as sent by the drag-and-drop handler.
func (s *BoardService) Reorder(ctx context.Context, status models.Status, ids []int64) error {
	if err := s.tickets.ReorderColumn(ctx, status, ids); err != nil {
		return err
	}
	s.logger.Debug("column reordered", "status", status, "count", len(ids))
	return nil
}

// SetExpanded persists the expand state of one card.
func (s *BoardService) SetExpanded(ctx context.Context, id int64, expanded bool) error {
	return s.tickets.SetExpanded(ctx, id, expanded)
}

// SetAllExpanded expands or collapses every card.
func (s *BoardService) SetAllExpanded(ctx context.Context, expanded bool) error {
	return s.tickets.SetAllExpanded(ctx, expanded)
}

// Board returns the columns left to right with the query applied.
func (s *BoardService) Board(ctx context.Context, q BoardQuery) ([]Column, error) {
	b, err := s.tickets.FetchBoard(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.subtasks.Counts(ctx)
	if err != nil {
		return nil, err
	}

	today := q.Today
	if today.IsZero() {
		today = models.Today()
	}

	columns := make([]Column, 0, len(models.Statuses))
	for _, status := range models.Statuses {
		if q.HideDone && status == models.StatusDone {
			continue
		}
		filtered := board.Apply(b[status], q.Sort, q.Filter, today)
		col := Column{Status: status, Tickets: make([]*TicketView, 0, len(filtered)), Total: len(b[status])}
		for _, t := range filtered {
			col.Tickets = append(col.Tickets, s.view(t, counts, today))
		}
		columns = append(columns, col)
	}
	return columns, nil
}

// Tags returns every distinct tag on the board, sorted.
func (s *BoardService) Tags(ctx context.Context) ([]string, error) {
	b, err := s.tickets.FetchBoard(ctx)
	if err != nil {
		return nil, err
	}
	return board.CollectTags(b), nil
}

// Timeline lists dated tickets as spans ordered by due date.
func (s *BoardService) Timeline(ctx context.Context, today time.Time) ([]TimelineEntry, error) {
	b, err := s.tickets.FetchBoard(ctx)
	if err != nil {
		return nil, err
	}

	entries := []TimelineEntry{}
	for _, t := range b.All() {
		if t.Due == nil {
			continue
		}
		end := models.DateOf(*t.Due)
		start := models.DateOf(t.CreatedAt)
		if start.After(end) {
			start = end
		}
		entries = append(entries, TimelineEntry{
			ID:       t.ID,
			Title:    t.Title,
			Status:   t.Status,
			Priority: t.Priority,
			Start:    start.Format(models.DateLayout),
			End:      end.Format(models.DateLayout),
			Days:     int(end.Sub(start).Hours()/24) + 1,
			Urgency:  models.UrgencyFor(t.Due, today),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].End != entries[j].End {
			return entries[i].End < entries[j].End
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// OpenAttachment opens the file attached to a ticket.
func (s *BoardService) OpenAttachment(ctx context.Context, id int64) (*os.File, string, error) {
	t, err := s.tickets.Get(ctx, id)
	if err != nil {
		return nil, "", err
	}
	f, err := s.files.Open(t.Attachment)
	if err != nil {
		return nil, "", err
	}
	return f, attachment.OriginalName(t.Attachment), nil
}

// ListSubtasks returns a ticket's checklist. A missing or deleted ticket has
// an empty checklist.
func (s *BoardService) ListSubtasks(ctx context.Context, ticketID int64) ([]*models.Subtask, error) {
	return s.subtasks.List(ctx, ticketID)
}

// Move is a column a ticket may go to next and the gestures that get it there.
type Move struct {
	To          models.Status          `json:"to"`
	Gestures    []state.TransitionType `json:"gestures"`
	Description string                 `json:"description"`
}

// AllowedMoves lists the moves out of a column in rule order.
func (s *BoardService) AllowedMoves(from models.Status) []Move {
	rules := s.stateMachine.GetValidTransitions(from)
	moves := make([]Move, 0, len(rules))
	for _, rule := range rules {
		moves = append(moves, Move{To: rule.To, Gestures: rule.AllowedTypes, Description: rule.Description})
	}
	return moves
}

// AddSubtask appends an item to a ticket's checklist. A blank title adds nothing.
func (s *BoardService) AddSubtask(ctx context.Context, ticketID int64, title string) (*models.Subtask, error) {
	st, err := s.subtasks.Add(ctx, ticketID, title)
	if err != nil {
		return nil, err
	}
	if st != nil {
		s.logger.Debug("subtask added", "ticket_id", ticketID, "subtask_id", st.ID)
	}
	return st, nil
}

// ToggleSubtask marks a checklist item done or not done.
func (s *BoardService) ToggleSubtask(ctx context.Context, id int64, done bool) error {
	if err := s.subtasks.Toggle(ctx, id, done); err != nil {
		return err
	}
	s.logger.Debug("subtask toggled", "subtask_id", id, "done", done)
	return nil
}

// DeleteSubtask removes a checklist item. A missing item is a no-op.
func (s *BoardService) DeleteSubtask(ctx context.Context, id int64) error {
	return s.subtasks.Delete(ctx, id)
}

func (s *BoardService) view(t *models.Ticket, counts map[int64]models.SubtaskCounts, today time.Time) *TicketView {
	v := &TicketView{
		Ticket:   t,
		Due:      t.DueString(),
		Urgency:  models.UrgencyFor(t.Due, today),
		Subtasks: counts[t.ID],
	}
	if t.Attachment != "" {
		v.AttachmentName = attachment.OriginalName(t.Attachment)
		v.AttachmentAvailable = s.files.Available(t.Attachment)
	}
	return v
}

func (s *BoardService) discardFile(path string) {
	if path == "" {
		return
	}
	if err := s.files.Remove(path); err != nil {
		s.logger.Warn("failed to remove attachment", "path", path, "error", err)
	}
}

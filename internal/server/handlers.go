package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/diogenes-ai-code/taskman/internal/attachment"
	"github.com/diogenes-ai-code/taskman/internal/board"
	"github.com/diogenes-ai-code/taskman/internal/common"
	"github.com/diogenes-ai-code/taskman/internal/errors"
	"github.com/diogenes-ai-code/taskman/internal/models"
	"github.com/diogenes-ai-code/taskman/internal/service"
)

// API Response types

// TicketResponse is a ticket with its rendered detail.
type TicketResponse struct {
	*service.TicketView
	DetailHTML string `json:"detail_html"`
}

// ColumnResponse is one board column in API responses.
type ColumnResponse struct {
	Status  models.Status    `json:"status"`
	Total   int              `json:"total"`
	Tickets []TicketResponse `json:"tickets"`
}

// MoveResponse reports the outcome of a next/prev or up/down request.
type MoveResponse struct {
	Moved  bool            `json:"moved"`
	Ticket *TicketResponse `json:"ticket,omitempty"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// API Request types

// TicketRequest carries the fields of a create or update. Multipart forms
// use the same names plus an "attachment" file part.
type TicketRequest struct {
	Title            string `json:"title"`
	Detail           string `json:"detail"`
	Due              string `json:"due"`
	Priority         string `json:"priority"`
	Tags             string `json:"tags"`
	ParentID         *int64 `json:"parent_id"`
	RemoveAttachment bool   `json:"remove_attachment"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    status,
		Message: message,
	})
}

// writeServiceError maps an error kind to its HTTP status. A missing
// attachment file is reported as 404 rather than a server fault.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	status := errors.GetHTTPStatus(err)
	if stderrors.Is(err, attachment.ErrUnavailable) {
		status = http.StatusNotFound
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}
	writeError(w, status, err.Error())
}

func pathID(r *http.Request) (int64, error) {
	id, err := common.ParseTicketID(r.PathValue("id"))
	if err != nil {
		return 0, errors.Validation("%v", err)
	}
	return id, nil
}

func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Validation("invalid request body: %v", err)
	}
	return nil
}

func (s *Server) today() time.Time {
	return models.DateOf(s.now())
}

func (s *Server) renderDetail(detail string) string {
	if strings.TrimSpace(detail) == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(detail), &buf); err != nil {
		s.logger.Warn("failed to render detail", "error", err)
		return "<p>" + strings.ReplaceAll(html.EscapeString(detail), "\n", "<br>") + "</p>"
	}
	return buf.String()
}

func (s *Server) ticketResponse(v *service.TicketView) TicketResponse {
	return TicketResponse{TicketView: v, DetailHTML: s.renderDetail(v.Detail)}
}

func (s *Server) respondTicket(w http.ResponseWriter, r *http.Request, status int, id int64) {
	v, err := s.board.GetTicket(r.Context(), id, s.today())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, status, s.ticketResponse(v))
}

// Board handlers

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	q, err := s.boardQuery(r.URL.Query())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	columns, err := s.board.Board(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	response := make([]ColumnResponse, 0, len(columns))
	for _, c := range columns {
		col := ColumnResponse{Status: c.Status, Total: c.Total, Tickets: make([]TicketResponse, 0, len(c.Tickets))}
		for _, v := range c.Tickets {
			col.Tickets = append(col.Tickets, s.ticketResponse(v))
		}
		response = append(response, col)
	}

	writeJSON(w, http.StatusOK, response)
}

// boardQuery reads the board view from query parameters, falling back to the
// configured view. A present but empty "priority" selects no priorities.
func (s *Server) boardQuery(values url.Values) (service.BoardQuery, error) {
	q := service.BoardQuery{
		Sort: board.SortOptions{
			ByDue:      s.config.View.SortByDue,
			ByPriority: s.config.View.SortByPriority,
		},
		Filter:   board.DefaultFilterOptions(),
		HideDone: s.config.View.HideDone,
		Today:    s.today(),
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"due", &q.Sort.ByDue},
		{"priority_sort", &q.Sort.ByPriority},
		{"overdue", &q.Filter.OverdueOnly},
		{"hide_done", &q.HideDone},
	}
	for _, f := range flags {
		if !values.Has(f.name) {
			continue
		}
		v, err := strconv.ParseBool(values.Get(f.name))
		if err != nil {
			return q, errors.Validation("invalid %s value %q", f.name, values.Get(f.name))
		}
		*f.dst = v
	}

	q.Filter.Search = values.Get("q")

	if values.Has("priority") {
		q.Filter.Priorities = []models.Priority{}
		for _, p := range common.SplitList(values.Get("priority")) {
			priority, err := models.ParsePriority(p)
			if err != nil {
				return q, errors.Validation("%v", err)
			}
			q.Filter.Priorities = append(q.Filter.Priorities, priority)
		}
	}

	if values.Has("tag") {
		q.Filter.RestrictTags = true
		q.Filter.Tags = common.SplitList(values.Get("tag"))
	}

	return q, nil
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.board.Tags(r.Context())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	entries, err := s.board.Timeline(r.Context(), s.today())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSetAllExpanded(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Expanded bool `json:"expanded"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.board.SetAllExpanded(r.Context(), req.Expanded); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Ticket handlers

// readTicketRequest accepts JSON or a multipart form with an optional
// "attachment" file. The returned closer must be called once the upload
// has been consumed.
func (s *Server) readTicketRequest(w http.ResponseWriter, r *http.Request) (TicketRequest, *service.Upload, func(), error) {
	var req TicketRequest
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		return req, nil, noop, decodeJSON(r, &req)
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.config.MaxUploadBytes); err != nil {
		return req, nil, noop, errors.Validation("invalid form: %v", err)
	}
	cleanup := func() { r.MultipartForm.RemoveAll() }

	req.Title = r.FormValue("title")
	req.Detail = r.FormValue("detail")
	req.Due = r.FormValue("due")
	req.Priority = r.FormValue("priority")
	req.Tags = r.FormValue("tags")
	if v := r.FormValue("parent_id"); v != "" {
		id, err := common.ParseTicketID(v)
		if err != nil {
			cleanup()
			return req, nil, noop, errors.Validation("invalid parent_id: %v", err)
		}
		req.ParentID = &id
	}
	if v := r.FormValue("remove_attachment"); v != "" {
		req.RemoveAttachment, _ = strconv.ParseBool(v)
	}

	file, header, err := r.FormFile("attachment")
	if err == http.ErrMissingFile {
		return req, nil, cleanup, nil
	}
	if err != nil {
		cleanup()
		return req, nil, noop, errors.Validation("invalid attachment: %v", err)
	}
	return req, &service.Upload{Name: header.Filename, Body: file}, func() {
		file.Close()
		cleanup()
	}, nil
}

func parseFields(req TicketRequest) (*time.Time, models.Priority, error) {
	due, err := models.ParseDate(req.Due)
	if err != nil {
		return nil, "", errors.Validation("%v", err)
	}
	priority, err := models.ParsePriority(req.Priority)
	if err != nil {
		return nil, "", errors.Validation("%v", err)
	}
	return due, priority, nil
}

func (s *Server) handleCreateTicket(w http.ResponseWriter, r *http.Request) {
	req, upload, done, err := s.readTicketRequest(w, r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer done()

	due, priority, err := parseFields(req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ticket, err := s.board.CreateTicket(r.Context(), service.TicketInput{
		Title:    req.Title,
		Detail:   req.Detail,
		Due:      due,
		Priority: priority,
		Tags:     req.Tags,
		ParentID: req.ParentID,
		Upload:   upload,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.respondTicket(w, r, http.StatusCreated, ticket.ID)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.respondTicket(w, r, http.StatusOK, id)
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	req, upload, done, err := s.readTicketRequest(w, r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer done()

	due, priority, err := parseFields(req)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	_, err = s.board.EditTicket(r.Context(), id, service.TicketUpdate{
		Title:            req.Title,
		Detail:           req.Detail,
		Due:              due,
		Priority:         priority,
		Tags:             req.Tags,
		Upload:           upload,
		RemoveAttachment: req.RemoveAttachment,
	})
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	s.respondTicket(w, r, http.StatusOK, id)
}

func (s *Server) handleDeleteTicket(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.board.DeleteTicket(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Movement handlers

func (s *Server) handleAdvance(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, s.board.Advance)
}

func (s *Server) handleRetreat(w http.ResponseWriter, r *http.Request) {
	s.handleStep(w, r, s.board.Retreat)
}

func (s *Server) handleStep(w http.ResponseWriter, r *http.Request, step func(context.Context, int64) (*models.Ticket, bool, error)) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	ticket, moved, err := step(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	resp := MoveResponse{Moved: moved}
	v, err := s.board.GetTicket(r.Context(), ticket.ID, s.today())
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	tr := s.ticketResponse(v)
	resp.Ticket = &tr
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShift(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req struct {
		Direction string `json:"direction"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	var delta int
	switch strings.ToLower(req.Direction) {
	case "up":
		delta = -1
	case "down":
		delta = 1
	default:
		s.writeServiceError(w, errors.Validation("invalid direction %q (valid: up, down)", req.Direction))
		return
	}

	moved, err := s.board.Shift(r.Context(), id, delta)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MoveResponse{Moved: moved})
}

func (s *Server) handleDrag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req struct {
		Status string `json:"status"`
		Index  int    `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}
	status, err := models.ParseStatus(req.Status)
	if err != nil {
		s.writeServiceError(w, errors.Validation("%v", err))
		return
	}

	if err := s.board.DragMove(r.Context(), id, status, req.Index); err != nil {
		s.writeServiceError(w, err)
		return
	}
	s.respondTicket(w, r, http.StatusOK, id)
}

func (s *Server) handleReorderColumn(w http.ResponseWriter, r *http.Request) {
	status, err := models.ParseStatus(r.PathValue("status"))
	if err != nil {
		s.writeServiceError(w, errors.Validation("%v", err))
		return
	}

	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	if err := s.board.Reorder(r.Context(), status, req.IDs); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetExpanded(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req struct {
		Expanded bool `json:"expanded"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	if err := s.board.SetExpanded(r.Context(), id, req.Expanded); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	f, name, err := s.board.OpenAttachment(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		s.writeServiceError(w, errors.WrapAttachment(err, "failed to stat attachment"))
		return
	}

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// Subtask handlers

func (s *Server) handleListSubtasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	subtasks, err := s.board.ListSubtasks(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if subtasks == nil {
		subtasks = []*models.Subtask{}
	}
	writeJSON(w, http.StatusOK, subtasks)
}

func (s *Server) handleAddSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	st, err := s.board.AddSubtask(r.Context(), id, req.Title)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if st == nil {
		// Blank titles add nothing.
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (s *Server) handleToggleSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}

	var req struct {
		Done bool `json:"done"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.writeServiceError(w, err)
		return
	}

	if err := s.board.ToggleSubtask(r.Context(), id, req.Done); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.board.DeleteSubtask(r.Context(), id); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.config.DB.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("database unavailable: %v", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

package server

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /api/board", s.handleBoard)
	s.router.HandleFunc("GET /api/tags", s.handleTags)
	s.router.HandleFunc("GET /api/timeline", s.handleTimeline)
	s.router.HandleFunc("PUT /api/board/expanded", s.handleSetAllExpanded)

	s.router.HandleFunc("POST /api/tickets", s.handleCreateTicket)
	s.router.HandleFunc("GET /api/tickets/{id}", s.handleGetTicket)
	s.router.HandleFunc("PUT /api/tickets/{id}", s.handleUpdateTicket)
	s.router.HandleFunc("DELETE /api/tickets/{id}", s.handleDeleteTicket)

	s.router.HandleFunc("POST /api/tickets/{id}/advance", s.handleAdvance)
	s.router.HandleFunc("POST /api/tickets/{id}/retreat", s.handleRetreat)
	s.router.HandleFunc("POST /api/tickets/{id}/shift", s.handleShift)
	s.router.HandleFunc("POST /api/tickets/{id}/drag", s.handleDrag)
	s.router.HandleFunc("PUT /api/tickets/{id}/expanded", s.handleSetExpanded)
	s.router.HandleFunc("GET /api/tickets/{id}/attachment", s.handleAttachment)

	s.router.HandleFunc("PUT /api/columns/{status}", s.handleReorderColumn)

	s.router.HandleFunc("GET /api/tickets/{id}/subtasks", s.handleListSubtasks)
	s.router.HandleFunc("POST /api/tickets/{id}/subtasks", s.handleAddSubtask)
	s.router.HandleFunc("PUT /api/subtasks/{id}", s.handleToggleSubtask)
	s.router.HandleFunc("DELETE /api/subtasks/{id}", s.handleDeleteSubtask)

	// Health check
	s.router.HandleFunc("GET /api/health", s.handleHealth)
}

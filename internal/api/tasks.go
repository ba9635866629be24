// Task endpoints.
//
// GET  /api/tasks                — caller's tasks
// POST /api/tasks                — create a task
// POST /api/tasks/{id}/progress  — advance progress
// POST /api/tasks/{id}/reset     — reopen a recurring task
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/greenloop-app/greenloop/internal/domain"
)

// handleListTasks lists the caller's tasks.
// GET /api/tasks
func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	list, err := s.tasks.List(r.Context(), UserID(r.Context()))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tasks": list,
		"count": len(list),
	})
}

type createTaskRequest struct {
	Title     string            `json:"title"`
	Category  string            `json:"category"`
	Target    int64             `json:"target"`
	Reward    domain.TaskReward `json:"reward"`
	Recurring bool              `json:"recurring"`
}

// handleCreateTask registers a new task for the caller.
// POST /api/tasks → 201
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Title == "" {
		writeFieldErrors(w, domain.FieldErrors{{Field: "title", Reason: "required"}})
		return
	}

	task, err := s.tasks.Create(r.Context(), UserID(r.Context()), req.Title, req.Category, req.Target, req.Reward, req.Recurring)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

type progressRequest struct {
	Delta int64 `json:"delta"`
}

// handleTaskProgress advances one of the caller's tasks.
// POST /api/tasks/{id}/progress
func (s *Server) handleTaskProgress(w http.ResponseWriter, r *http.Request) {
	task, err := s.ownTask(w, r)
	if err != nil {
		return
	}

	var req progressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Delta == 0 {
		req.Delta = 1
	}

	updated, err := s.tasks.Progress(r.Context(), task.ID, req.Delta)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleTaskReset reopens one of the caller's recurring tasks.
// POST /api/tasks/{id}/reset
func (s *Server) handleTaskReset(w http.ResponseWriter, r *http.Request) {
	task, err := s.ownTask(w, r)
	if err != nil {
		return
	}
	updated, err := s.tasks.Reset(r.Context(), task.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// ownTask loads the {id} task and enforces ownership. On failure the
// response has already been written.
func (s *Server) ownTask(w http.ResponseWriter, r *http.Request) (*domain.Task, error) {
	task, err := s.tasks.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return nil, err
	}
	if task.UserID != UserID(r.Context()) {
		writeError(w, http.StatusForbidden, "task belongs to another user")
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	errx "github.com/taskchat/server/internal/core/error"
	"github.com/taskchat/server/internal/store"
)

// Direct task routes mirror what the conversational tools do, for clients
// that want to render or edit tasks without going through the model.

type taskView struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func toTaskView(t *store.Task) taskView {
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func taskIDVar(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["taskId"], 10, 64)
	if err != nil {
		return 0, errx.Validation("invalid task id")
	}
	return id, nil
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errx.Validation("invalid request body"))
		return
	}
	if req.Title == "" {
		writeError(w, r, errx.Validation("title must not be empty"))
		return
	}
	if len(req.Title) > 1000 || len(req.Description) > 1000 {
		writeError(w, r, errx.Validation("title and description are limited to 1000 characters"))
		return
	}

	task, err := s.store.CreateTask(r.Context(), userIDFrom(r.Context()), req.Title, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskView(task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	filter := store.StatusFilter(r.URL.Query().Get("status"))
	if filter == "" {
		filter = store.StatusAll
	}
	if !filter.Valid() {
		writeError(w, r, errx.Validation("status must be all, pending or completed"))
		return
	}

	tasks, err := s.store.ListTasks(r.Context(), userIDFrom(r.Context()), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	views := make([]taskView, 0, len(tasks))
	for i := range tasks {
		views = append(views, toTaskView(&tasks[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": views, "count": len(views)})
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	task, err := s.store.GetTask(r.Context(), userIDFrom(r.Context()), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskView(task))
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req updateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errx.Validation("invalid request body"))
		return
	}
	if req.Title == nil && req.Description == nil && req.Completed == nil {
		writeError(w, r, errx.Validation("nothing to update"))
		return
	}
	if req.Title != nil && (*req.Title == "" || len(*req.Title) > 1000) {
		writeError(w, r, errx.Validation("title must be 1..1000 characters"))
		return
	}
	if req.Description != nil && len(*req.Description) > 1000 {
		writeError(w, r, errx.Validation("description is limited to 1000 characters"))
		return
	}

	userID := userIDFrom(r.Context())
	task, err := s.store.UpdateTask(r.Context(), userID, id, req.Title, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if req.Completed != nil && *req.Completed && !task.Completed {
		task, err = s.store.CompleteTask(r.Context(), userID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, toTaskView(task))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := taskIDVar(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.store.DeleteTask(r.Context(), userIDFrom(r.Context()), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

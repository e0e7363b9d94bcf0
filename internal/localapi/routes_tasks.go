package localapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"todoagent/internal/taskstore"
)

const maxRequestBytes = 1 << 20

func (s *Server) registerTaskRoutes(r chi.Router) {
	r.Get("/tasks", s.handleListTasks)
	r.Post("/tasks", s.handleAddTask)
	r.Put("/tasks/{id}", s.handleUpdateTask)
	r.Delete("/tasks/{id}", s.handleDeleteTask)
	r.Get("/task-details/{id}", s.handleTaskDetails)
}

func (s *Server) handleListTasks(w http.ResponseWriter, _ *http.Request) {
	tasks, err := s.deps.Tasks.ListTasks()
	if err != nil {
		s.logger.Error("list tasks failed", "err", err)
		respondError(w, "Failed to read tasks", err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	var task taskstore.Task
	if err := decodeBody(w, r, &task); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid task: "+err.Error())
		return
	}
	if err := task.Validate(); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid task: "+err.Error())
		return
	}
	added, err := s.deps.Tasks.AddTask(task)
	if err != nil {
		s.logger.Error("add task failed", "err", err)
		respondError(w, "Failed to add task", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Task added successfully", "task": added})
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var patch taskstore.TaskPatch
	if err := decodeBody(w, r, &patch); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid task update: "+err.Error())
		return
	}
	if err := patch.Validate(); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid task update: "+err.Error())
		return
	}
	updated, err := s.deps.Tasks.UpdateTask(id, patch)
	if err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Task not found")
			return
		}
		s.logger.Error("update task failed", "task_id", id, "err", err)
		respondError(w, "Failed to update task", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task updated successfully", "task": updated})
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Tasks.DeleteTask(id); err != nil {
		if errors.Is(err, taskstore.ErrNotFound) {
			respondMessage(w, http.StatusNotFound, "Task not found")
			return
		}
		s.logger.Error("delete task failed", "task_id", id, "err", err)
		respondError(w, "Failed to delete task", err)
		return
	}
	respondMessage(w, http.StatusOK, "Task deleted successfully")
}

func (s *Server) handleTaskDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, ok, err := s.deps.Tasks.FindByID(id)
	if err != nil {
		s.logger.Error("read task failed", "task_id", id, "err", err)
		respondError(w, "Failed to read tasks", err)
		return
	}
	if !ok {
		respondMessage(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"text": task.Text})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

package localapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"todoagent/internal/global"
	"todoagent/internal/taskstore"
)

const maxCallbackBytes = 4 << 20

func (s *Server) registerAgentRoutes(r chi.Router) {
	r.Post("/ai-task", s.handleAITask)
	r.Post("/webhook-response", s.handleWebhookResponse)
	r.Get("/agent-response", s.handleListAgentResponses)
}

// handleAITask forwards a task to the automation engine. Browser form posts
// carry the serialized task in the "task" field and are redirected to the
// detail page; JSON callers get the engine reply back.
func (s *Server) handleAITask(w http.ResponseWriter, r *http.Request) {
	task, fromForm, err := readAITask(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Invalid task data", "error": err.Error()})
		return
	}
	if s.deps.Gateway == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Failed to send task to webhook", "error": "gateway is not configured"})
		return
	}

	res, err := s.deps.Gateway.Dispatch(r.Context(), task)
	if err != nil {
		s.logger.Warn("ai task dispatch failed", "task_id", task.ID, "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Failed to send task to webhook", "error": errorDetail(err)})
		return
	}

	if fromForm {
		target, err := s.detailURL(res.ResponseID())
		if err != nil {
			s.logger.Error("load settings failed", "err", err)
			respondError(w, "Failed to load settings", err)
			return
		}
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Task data received successfully!",
		"webhookResponse": res.Reply.Payload,
	})
}

func (s *Server) handleWebhookResponse(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBytes))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Failed to read webhook response", "error": err.Error()})
		return
	}
	if s.deps.Gateway == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Failed to process webhook response", "error": "gateway is not configured"})
		return
	}

	res, err := s.deps.Gateway.HandleCallback(r.Context(), body)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "Failed to process webhook response", "error": errorDetail(err)})
		return
	}
	if res.Task == nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Task not found", "webhookResponse": res.Reply.Payload})
		return
	}
	if res.Warning != "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":         "Webhook response stored; task merge skipped",
			"warning":         res.Warning,
			"task":            res.Task,
			"webhookResponse": res.Reply.Payload,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task updated with webhook response", "task": res.Task})
}

func (s *Server) handleListAgentResponses(w http.ResponseWriter, _ *http.Request) {
	list, err := s.deps.Responses.ListResponses()
	if err != nil {
		s.logger.Error("list agent responses failed", "err", err)
		respondError(w, "Failed to read agent responses", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) detailURL(responseID string) (string, error) {
	page := global.DefaultDetailPage
	if s.deps.ConfigStore != nil {
		cfg, err := s.deps.ConfigStore.Effective()
		if err != nil {
			return "", err
		}
		page = cfg.DetailPage
	}
	sep := "?"
	if strings.Contains(page, "?") {
		sep = "&"
	}
	return page + sep + url.Values{"id": {responseID}}.Encode(), nil
}

func readAITask(w http.ResponseWriter, r *http.Request) (taskstore.Task, bool, error) {
	var task taskstore.Task
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
		raw := r.FormValue("task")
		if strings.TrimSpace(raw) == "" {
			return task, true, fmt.Errorf("form field %q is required", "task")
		}
		if err := json.Unmarshal([]byte(raw), &task); err != nil {
			return task, true, fmt.Errorf("decode form task: %w", err)
		}
		return task, true, nil
	default:
		err := decodeBody(w, r, &task)
		return task, false, err
	}
}

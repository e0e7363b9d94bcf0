package localapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"todoagent/internal/global"
)

const maxDispatchLimit = 500

func (s *Server) registerDispatchRoutes(r chi.Router) {
	r.Get("/dispatches", s.handleListDispatches)
}

func (s *Server) registerConfigRoutes(r chi.Router) {
	r.Get("/config", s.handleGetConfig)
	r.Put("/config", s.handlePutConfig)
}

func (s *Server) handleListDispatches(w http.ResponseWriter, r *http.Request) {
	if s.deps.DispatchLog == nil {
		writeJSON(w, http.StatusOK, []any{})
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxDispatchLimit)
	}
	entries, err := s.deps.DispatchLog.List(limit)
	if err != nil {
		s.logger.Error("list dispatches failed", "err", err)
		respondError(w, "Failed to read dispatch log", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type configResponse struct {
	Settings          global.Settings `json:"settings"`
	EffectiveURL      string          `json:"effective_webhook_url"`
	WebhookURLFromEnv bool            `json:"webhook_url_from_env"`
}

func (s *Server) handleGetConfig(w http.ResponseWriter, _ *http.Request) {
	if s.deps.ConfigStore == nil {
		respondMessage(w, http.StatusServiceUnavailable, "Settings unavailable")
		return
	}
	resp, err := s.buildConfigResponse()
	if err != nil {
		s.logger.Error("load settings failed", "err", err)
		respondError(w, "Failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handlePutConfig replaces the stored settings. Omitted fields fall back to
// their defaults.
func (s *Server) handlePutConfig(w http.ResponseWriter, r *http.Request) {
	if s.deps.ConfigStore == nil {
		respondMessage(w, http.StatusServiceUnavailable, "Settings unavailable")
		return
	}
	var in global.Settings
	if err := decodeBody(w, r, &in); err != nil {
		respondMessage(w, http.StatusBadRequest, "Invalid settings: "+err.Error())
		return
	}
	if _, err := s.deps.ConfigStore.Save(in); err != nil {
		s.logger.Error("save settings failed", "err", err)
		respondError(w, "Failed to save settings", err)
		return
	}
	resp, err := s.buildConfigResponse()
	if err != nil {
		respondError(w, "Failed to load settings", err)
		return
	}
	s.logger.Info("settings updated", "webhook_url", resp.EffectiveURL, "detail_page", resp.Settings.DetailPage)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) buildConfigResponse() (configResponse, error) {
	stored, err := s.deps.ConfigStore.LoadOrInit()
	if err != nil {
		return configResponse{}, err
	}
	effective, err := s.deps.ConfigStore.Effective()
	if err != nil {
		return configResponse{}, err
	}
	return configResponse{
		Settings:          stored,
		EffectiveURL:      effective.Webhook.URL,
		WebhookURLFromEnv: effective.Webhook.URL != stored.Webhook.URL,
	}, nil
}

package appserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"todoagent/internal/localapi"
)

type WebUIConfig struct {
	StaticDir string
}

type Deps struct {
	LocalAPI       localapi.Deps
	LocalAPIHandle http.Handler
	WebUI          WebUIConfig
}

// Server splits traffic between the local API and the static front end.
type Server struct {
	local http.Handler
	webui http.Handler
}

func NewServer(deps Deps) *Server {
	local := deps.LocalAPIHandle
	if local == nil {
		local = localapi.NewServer(deps.LocalAPI).Handler()
	}
	return &Server{
		local: local,
		webui: newWebUIHandler(deps.WebUI),
	}
}

func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.serveHTTP)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if isLocalAPIPath(r.URL.Path) {
		s.local.ServeHTTP(w, r)
		return
	}
	s.webui.ServeHTTP(w, r)
}

func isLocalAPIPath(p string) bool {
	switch {
	case p == "/ws" || p == "/events" || p == "/healthz":
		return true
	case p == "/api" || strings.HasPrefix(p, "/api/"):
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

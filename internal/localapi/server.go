package localapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"todoagent/internal/dispatchlog"
	"todoagent/internal/gateway"
	"todoagent/internal/global"
	"todoagent/internal/logging"
	"todoagent/internal/relay"
	"todoagent/internal/taskstore"
)

type TaskStore interface {
	ListTasks() ([]taskstore.Task, error)
	AddTask(task taskstore.Task) (taskstore.Task, error)
	UpdateTask(id string, patch taskstore.TaskPatch) (taskstore.Task, error)
	DeleteTask(id string) error
	FindByID(id string) (taskstore.Task, bool, error)
}

type ResponseStore interface {
	ListResponses() ([]taskstore.AgentResponse, error)
}

type Gateway interface {
	Dispatch(ctx context.Context, task taskstore.Task) (gateway.Result, error)
	HandleCallback(ctx context.Context, body []byte) (gateway.Result, error)
}

type EventSource interface {
	Subscribe() *relay.Listener
	Unsubscribe(l *relay.Listener)
	Len() int
	Dropped() uint64
}

type DispatchLog interface {
	List(limit int) ([]dispatchlog.Entry, error)
}

type ConfigStore interface {
	LoadOrInit() (global.Settings, error)
	Effective() (global.Settings, error)
	Save(cfg global.Settings) (global.Settings, error)
}

type Deps struct {
	Tasks       TaskStore
	Responses   ResponseStore
	Gateway     Gateway
	Events      EventSource
	DispatchLog DispatchLog
	ConfigStore ConfigStore
	Logger      *slog.Logger
}

type Server struct {
	deps   Deps
	router chi.Router
	logger *slog.Logger
}

func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	s := &Server{deps: deps, router: chi.NewRouter(), logger: logger}
	s.router.Use(chimw.RequestID)
	s.router.Use(logging.RequestLogger(logger))
	s.router.Use(chimw.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/api", func(r chi.Router) {
		s.registerTaskRoutes(r)
		s.registerAgentRoutes(r)
		s.registerDispatchRoutes(r)
		s.registerConfigRoutes(r)
	})
	s.registerEventRoutes(s.router)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	out := map[string]any{"status": "ok"}
	if s.deps.Events != nil {
		out["listeners"] = s.deps.Events.Len()
		out["dropped_events"] = s.deps.Events.Dropped()
	}
	writeJSON(w, http.StatusOK, out)
}

func respondMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

// respondError maps store and gateway failures onto status codes. A missing
// record is 404, everything else 500 with the error text.
func respondError(w http.ResponseWriter, msg string, err error) {
	if errors.Is(err, taskstore.ErrNotFound) {
		respondMessage(w, http.StatusNotFound, msg)
		return
	}
	writeJSON(w, http.StatusInternalServerError, map[string]any{"message": msg, "error": errorDetail(err)})
}

func errorDetail(err error) any {
	var gwErr *gateway.GatewayError
	if errors.As(err, &gwErr) {
		return map[string]any{"status": gwErr.Status, "body": gwErr.Body, "message": gwErr.Error()}
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

package localapi

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"todoagent/internal/relay"
)

var sseKeepAlive = 25 * time.Second

func (s *Server) registerEventRoutes(r chi.Router) {
	r.Get("/events", s.handleEvents)
	r.Get("/ws", s.handleWS)
}

// handleEvents streams every relay publish as one "data:" frame until the
// client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		respondMessage(w, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	l := s.deps.Events.Subscribe()
	defer s.deps.Events.Unsubscribe(l)
	s.logger.Debug("sse listener connected", "listener_id", l.ID())

	if _, err := io.WriteString(w, ": connected\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case evt, ok := <-l.Events():
			if !ok {
				return
			}
			if _, err := w.Write(formatSSE(evt)); err != nil {
				s.logger.Debug("sse write failed", "listener_id", l.ID(), "err", err)
				return
			}
			flusher.Flush()
		case <-ticker.C:
			if _, err := io.WriteString(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			s.logger.Debug("sse listener disconnected", "listener_id", l.ID(), "dropped_events", s.deps.Events.Dropped())
			return
		}
	}
}

// formatSSE writes the payload as data lines; multi-line JSON gets one data:
// prefix per line so the browser reassembles it.
func formatSSE(evt relay.Event) []byte {
	var b bytes.Buffer
	b.WriteString("id: ")
	b.WriteString(evt.ID)
	b.WriteByte('\n')
	for _, line := range bytes.Split(evt.Payload, []byte("\n")) {
		b.WriteString("data: ")
		b.Write(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.Bytes()
}

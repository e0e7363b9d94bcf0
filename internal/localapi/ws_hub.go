package localapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"todoagent/internal/protocol"
)

const wsWriteTimeout = 500 * time.Millisecond

// handleWS mirrors /events over a websocket, wrapping each event in a
// protocol.Message. Client frames are ignored.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.deps.Events == nil {
		respondMessage(w, http.StatusServiceUnavailable, "Event stream unavailable")
		return
	}
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket accept failed", "err", err)
		return
	}
	l := s.deps.Events.Subscribe()
	defer func() {
		s.deps.Events.Unsubscribe(l)
		_ = conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := conn.CloseRead(r.Context())
	for {
		select {
		case evt, ok := <-l.Events():
			if !ok {
				return
			}
			msg, err := json.Marshal(protocol.NewEvent(evt.ID, evt.Topic, evt.Payload))
			if err != nil {
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				s.logger.Debug("websocket write failed", "listener_id", l.ID(), "err", err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

package protocol

import "encoding/json"

const TypeEvent = "event"

// Message is the websocket envelope pushed to /ws clients.
type Message struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Op      string          `json:"op"`
	Payload json.RawMessage `json:"payload"`
	Error   *ErrPayload     `json:"error,omitempty"`
}

type ErrPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewEvent(id, op string, payload json.RawMessage) Message {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	return Message{ID: id, Type: TypeEvent, Op: op, Payload: payload}
}

package taskstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	fieldID        = "id"
	fieldText      = "text"
	fieldCompleted = "completed"
	fieldResponse  = "response"
)

// TaskResponse is the agent reply embedded into a task by the gateway.
type TaskResponse struct {
	Content json.RawMessage `json:"content,omitempty"`
}

// Task is a to-do record. Fields the server does not model are kept in Extra
// and written back unchanged.
type Task struct {
	ID        string
	Text      string
	Completed bool
	Response  *TaskResponse
	Extra     map[string]json.RawMessage
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.Text) == "" {
		return errors.New("text is required")
	}
	return nil
}

func (t Task) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(t.Extra)+4)
	for k, v := range t.Extra {
		out[k] = v
	}
	id, err := json.Marshal(t.ID)
	if err != nil {
		return nil, err
	}
	text, err := json.Marshal(t.Text)
	if err != nil {
		return nil, err
	}
	out[fieldID] = id
	out[fieldText] = text
	if t.Completed {
		out[fieldCompleted] = json.RawMessage("true")
	} else {
		out[fieldCompleted] = json.RawMessage("false")
	}
	if t.Response != nil {
		resp, err := json.Marshal(t.Response)
		if err != nil {
			return nil, err
		}
		out[fieldResponse] = resp
	}
	return json.Marshal(out)
}

func (t *Task) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var next Task
	if v, ok := raw[fieldID]; ok {
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		next.ID = id
		delete(raw, fieldID)
	}
	if v, ok := raw[fieldText]; ok {
		if err := decodeOptional(v, &next.Text); err != nil {
			return fmt.Errorf("task text: %w", err)
		}
		delete(raw, fieldText)
	}
	if v, ok := raw[fieldCompleted]; ok {
		if err := decodeOptional(v, &next.Completed); err != nil {
			return fmt.Errorf("task completed: %w", err)
		}
		delete(raw, fieldCompleted)
	}
	if v, ok := raw[fieldResponse]; ok {
		if resp, ok := decodeTaskResponse(v); ok {
			next.Response = resp
			delete(raw, fieldResponse)
		}
	}
	if len(raw) > 0 {
		next.Extra = compactFields(raw)
	}
	*t = next
	return nil
}

func (t Task) clone() Task {
	out := t
	if t.Response != nil {
		resp := *t.Response
		out.Response = &resp
	}
	if t.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// TaskPatch is a partial task update. Nil fields are left untouched; an id in
// the patch body is ignored so records keep their identity.
type TaskPatch struct {
	Text      *string
	Completed *bool
	Response  *TaskResponse
	Extra     map[string]json.RawMessage
}

func (p TaskPatch) Validate() error {
	if p.Text != nil && strings.TrimSpace(*p.Text) == "" {
		return errors.New("text must not be empty")
	}
	return nil
}

func (p *TaskPatch) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var next TaskPatch
	delete(raw, fieldID)
	if v, ok := raw[fieldText]; ok {
		var text string
		if err := decodeOptional(v, &text); err != nil {
			return fmt.Errorf("task text: %w", err)
		}
		next.Text = &text
		delete(raw, fieldText)
	}
	if v, ok := raw[fieldCompleted]; ok {
		var completed bool
		if err := decodeOptional(v, &completed); err != nil {
			return fmt.Errorf("task completed: %w", err)
		}
		next.Completed = &completed
		delete(raw, fieldCompleted)
	}
	if v, ok := raw[fieldResponse]; ok {
		if resp, ok := decodeTaskResponse(v); ok {
			next.Response = resp
			delete(raw, fieldResponse)
		}
	}
	if len(raw) > 0 {
		next.Extra = compactFields(raw)
	}
	*p = next
	return nil
}

// Apply merges p over t. Patch fields win; everything p does not name is kept.
func (t Task) Apply(p TaskPatch) Task {
	out := t.clone()
	if p.Text != nil {
		out.Text = *p.Text
	}
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.Response != nil {
		resp := *p.Response
		out.Response = &resp
		delete(out.Extra, fieldResponse)
	}
	if len(p.Extra) > 0 {
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage, len(p.Extra))
		}
		for k, v := range p.Extra {
			out.Extra[k] = v
		}
		if _, ok := p.Extra[fieldResponse]; ok {
			out.Response = nil
		}
	}
	return out
}

// AgentResponse is one reply from the automation engine. Everything except
// the id is passed through as-is.
type AgentResponse struct {
	ID     string
	Fields map[string]json.RawMessage
}

// Field returns the raw value stored under name, or nil.
func (r AgentResponse) Field(name string) json.RawMessage {
	if r.Fields == nil {
		return nil
	}
	return r.Fields[name]
}

// Merge overlays patch onto r. Patch fields win on conflict.
func (r AgentResponse) Merge(patch AgentResponse) AgentResponse {
	out := AgentResponse{ID: r.ID, Fields: make(map[string]json.RawMessage, len(r.Fields)+len(patch.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	for k, v := range patch.Fields {
		out.Fields[k] = v
	}
	if patch.ID != "" {
		out.ID = patch.ID
	}
	return out
}

func (r AgentResponse) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(r.Fields)+1)
	for k, v := range r.Fields {
		out[k] = v
	}
	id, err := json.Marshal(r.ID)
	if err != nil {
		return nil, err
	}
	out[fieldID] = id
	return json.Marshal(out)
}

func (r *AgentResponse) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	var next AgentResponse
	if v, ok := raw[fieldID]; ok {
		id, err := decodeID(v)
		if err != nil {
			return err
		}
		next.ID = id
		delete(raw, fieldID)
	}
	next.Fields = compactFields(raw)
	*r = next
	return nil
}

// decodeID accepts string ids and the numeric timestamp ids older clients
// wrote.
func decodeID(v json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "", nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", fmt.Errorf("id: %w", err)
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %w", err)
	}
	return n.String(), nil
}

func decodeOptional(v json.RawMessage, dst any) error {
	if bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil
	}
	return json.Unmarshal(v, dst)
}

func decodeTaskResponse(v json.RawMessage) (*TaskResponse, bool) {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	content, ok := fields["content"]
	if !ok || len(fields) != 1 {
		return nil, false
	}
	return &TaskResponse{Content: compactRaw(content)}, true
}

func compactFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	for k, v := range fields {
		fields[k] = compactRaw(v)
	}
	return fields
}

// compactRaw strips insignificant whitespace so indented files decode to the
// same bytes they were encoded from.
func compactRaw(v json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, v); err != nil {
		return v
	}
	return json.RawMessage(buf.Bytes())
}

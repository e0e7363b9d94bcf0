package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var ErrMalformedReply = errors.New("malformed webhook reply")

// Reply is the engine's answer after fence stripping.
type Reply struct {
	ID       string
	Response json.RawMessage
	// Payload is the whole reply object, forwarded to listeners as-is.
	Payload json.RawMessage
}

// ParseReply accepts either a plain JSON object or an object whose string
// "output" field holds fenced JSON. A one-element array wrapper, as workflow
// engines tend to return, is unwrapped first.
func ParseReply(body []byte) (Reply, error) {
	if !gjson.ValidBytes(body) {
		return Reply{}, fmt.Errorf("%w: body is not valid JSON", ErrMalformedReply)
	}
	doc := unwrapArray(gjson.ParseBytes(body))

	if out := doc.Get("output"); out.Type == gjson.String {
		inner := StripCodeFence(out.String())
		if !gjson.Valid(inner) {
			return Reply{}, fmt.Errorf("%w: output is not valid JSON after removing code fences", ErrMalformedReply)
		}
		doc = unwrapArray(gjson.Parse(inner))
	}
	if !doc.IsObject() {
		return Reply{}, fmt.Errorf("%w: expected a JSON object", ErrMalformedReply)
	}

	reply := Reply{Payload: json.RawMessage(doc.Raw)}
	if id := doc.Get("id"); id.Exists() {
		switch id.Type {
		case gjson.String:
			reply.ID = id.String()
		case gjson.Number:
			reply.ID = id.Raw
		}
	}
	resp := doc.Get("response")
	if !resp.Exists() {
		resp = doc.Get("content")
	}
	if resp.Exists() {
		reply.Response = json.RawMessage(resp.Raw)
	}
	return reply, nil
}

// StripCodeFence removes a leading ``` or ```json line and a trailing ```.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = s[len("```"):]
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "json")
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func unwrapArray(doc gjson.Result) gjson.Result {
	if !doc.IsArray() {
		return doc
	}
	items := doc.Array()
	if len(items) == 0 {
		return doc
	}
	return items[0]
}

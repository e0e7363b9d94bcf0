package taskstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResponseStore_UpsertMergesByID(t *testing.T) {
	s := NewResponseStore(filepath.Join(t.TempDir(), ResponsesFileName))

	if _, err := s.UpsertResponse(AgentResponse{ID: "1", Fields: map[string]json.RawMessage{
		"response": raw(`"draft"`),
		"model":    raw(`"m1"`),
	}}); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	merged, err := s.UpsertResponse(AgentResponse{ID: "1", Fields: map[string]json.RawMessage{
		"response": raw(`"final"`),
		"tokens":   raw(`42`),
	}})
	if err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}
	if string(merged.Field("response")) != `"final"` || string(merged.Field("model")) != `"m1"` || string(merged.Field("tokens")) != "42" {
		t.Fatalf("unexpected merged record: %#v", merged)
	}

	if _, err := s.UpsertResponse(AgentResponse{ID: "2", Fields: map[string]json.RawMessage{"response": raw(`"other"`)}}); err != nil {
		t.Fatalf("third upsert failed: %v", err)
	}
	list, err := s.ListResponses()
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 records, got %d: %#v", len(list), list)
	}
	seen := map[string]int{}
	for _, r := range list {
		seen[r.ID]++
	}
	if seen["1"] != 1 || seen["2"] != 1 {
		t.Fatalf("expected one record per id, got %#v", seen)
	}
	if list[0].ID != "1" || string(list[0].Field("response")) != `"final"` {
		t.Fatalf("expected merged record persisted first, got %#v", list[0])
	}
}

func TestResponseStore_SingleObjectFileIsOneElementList(t *testing.T) {
	s := NewResponseStore(filepath.Join(t.TempDir(), ResponsesFileName))
	if err := os.WriteFile(s.Path(), []byte(`{"id":"7","content":{"summary":"ok"}}`), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}
	list, err := s.ListResponses()
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != "7" || string(list[0].Field("content")) != `{"summary":"ok"}` {
		t.Fatalf("unexpected list: %#v", list)
	}

	if _, err := s.UpsertResponse(AgentResponse{ID: "8"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	list, err = s.ListResponses()
	if err != nil {
		t.Fatalf("ListResponses failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected single object normalized into a list, got %#v", list)
	}
}

func TestResponseStore_EmptyAndCorrupt(t *testing.T) {
	s := NewResponseStore(filepath.Join(t.TempDir(), ResponsesFileName))
	list, err := s.ListResponses()
	if err != nil || len(list) != 0 {
		t.Fatalf("expected empty list for missing file, got %#v err=%v", list, err)
	}
	if err := os.WriteFile(s.Path(), []byte("not json"), 0o644); err != nil {
		t.Fatalf("write file failed: %v", err)
	}
	if _, err := s.ListResponses(); !errors.Is(err, ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

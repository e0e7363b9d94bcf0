package global

import (
	"path/filepath"
	"testing"
)

func TestDefaultDataDir_UsesOverride(t *testing.T) {
	t.Setenv("TODOAGENT_DATA_DIR", "/tmp/todoagent-data-test")
	got, err := DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir returned error: %v", err)
	}
	if got != "/tmp/todoagent-data-test" {
		t.Fatalf("expected override path, got %q", got)
	}
}

func TestDefaultDataDir_FallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("TODOAGENT_DATA_DIR", "")
	t.Setenv("HOME", home)
	got, err := DefaultDataDir()
	if err != nil {
		t.Fatalf("DefaultDataDir returned error: %v", err)
	}
	if want := filepath.Join(home, ".config", "todoagent"); got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

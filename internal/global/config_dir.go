package global

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultDataDir returns ~/.config/todoagent.
func DefaultDataDir() (string, error) {
	if override := strings.TrimSpace(os.Getenv("TODOAGENT_DATA_DIR")); override != "" {
		return override, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "todoagent"), nil
}

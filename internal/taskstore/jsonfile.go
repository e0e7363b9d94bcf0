package taskstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"todoagent/internal/fsutil"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrCorruptData = errors.New("corrupt data")
)

// loadJSONList reads a whole-file JSON array. A missing or blank file is an
// empty list.
func loadJSONList[T any](path string, allowSingleObject bool) ([]T, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return []T{}, nil
	}
	if allowSingleObject && trimmed[0] == '{' {
		var one T
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
		}
		return []T{one}, nil
	}
	var list []T
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptData, path, err)
	}
	if list == nil {
		list = []T{}
	}
	return list, nil
}

func writeJSONAtomically(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, append(b, '\n'), 0o644)
}

package history

import (
	"encoding/json"
	"fmt"
)

// Row codec shared by the SQL backends: files and thinking are stored as
// JSON text and a nullable column.

func encodeFiles(files []string) (string, error) {
	if files == nil {
		files = []string{}
	}
	b, err := json.Marshal(files)
	if err != nil {
		return "", fmt.Errorf("encode files: %w", err)
	}
	return string(b), nil
}

func decodeFiles(raw string) ([]string, error) {
	files := []string{}
	if raw == "" {
		return files, nil
	}
	if err := json.Unmarshal([]byte(raw), &files); err != nil {
		return nil, fmt.Errorf("decode files: %w", err)
	}
	return files, nil
}

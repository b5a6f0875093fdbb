package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// bootstrapValues seeds a fresh .env for local development.
var bootstrapValues = map[string]string{
	"ANTHROPIC_API_KEY":      PlaceholderAPIKey,
	"ASSIST_SECRET_KEY":      InsecureSecretKey,
	"ASSIST_PROVIDER":        "anthropic",
	"ASSIST_HISTORY_BACKEND": "memory",
	"PORT":                   "5000",
}

// Bootstrap writes a template env file at path when none exists. It reports
// whether a file was created. An empty path is a no-op.
func Bootstrap(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := godotenv.Write(bootstrapValues, path); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

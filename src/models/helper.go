package models

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

// DefaultImageMediaType is used for image extensions outside the known table.
const DefaultImageMediaType = "image/jpeg"

var imageExtMap = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
}

// ErrMissingAPIKey is matched by errors.Is for every MissingAPIKeyError.
var ErrMissingAPIKey = errors.New("models: API key is not configured")

// MissingAPIKeyError reports which provider lacks credentials and where they
// are read from.
type MissingAPIKeyError struct {
	Provider string
	EnvVar   string
}

func (e *MissingAPIKeyError) Error() string {
	return fmt.Sprintf("%s API key is not configured (set %s)", e.Provider, e.EnvVar)
}

func (e *MissingAPIKeyError) Is(target error) bool { return target == ErrMissingAPIKey }

// ProviderOptions selects and configures an upstream provider.
type ProviderOptions struct {
	Provider   string // anthropic|claude|openai|gemini|google|ollama|dummy
	APIKey     string
	BaseURL    string // optional override; host URL for ollama
	HTTPClient *http.Client
}

// NewLLMProvider returns a concrete Agent.
func NewLLMProvider(ctx context.Context, opts ProviderOptions) (Agent, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", "anthropic", "claude":
		return NewAnthropicLLM(opts), nil
	case "openai":
		return NewOpenAILLM(opts), nil
	case "gemini", "google":
		g, err := NewGeminiLLM(ctx, opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	case "ollama":
		o, err := NewOllamaLLM(opts)
		if err != nil {
			return nil, err
		}
		return o, nil
	case "dummy":
		return NewDummyLLM(""), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", opts.Provider)
	}
}

// ImageMediaType maps a file name to an image MIME type by its lower-cased
// extension. Unknown extensions resolve to DefaultImageMediaType.
func ImageMediaType(name string) string {
	if mt, ok := imageExtMap[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return DefaultImageMediaType
}

// decodeImage returns the raw bytes of an image block.
func decodeImage(b Block) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(b.Data)
	if err != nil {
		return nil, fmt.Errorf("decode image block: %w", err)
	}
	return raw, nil
}

func dataURL(b Block) string {
	mt := b.MediaType
	if mt == "" {
		mt = DefaultImageMediaType
	}
	return "data:" + mt + ";base64," + b.Data
}

// joinText concatenates the text blocks, separated by blank lines. Providers
// without multi-part messages use it.
func joinText(blocks []Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		if b.Kind != BlockText {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(b.Text)
	}
	return sb.String()
}

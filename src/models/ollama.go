package models

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	ollama "github.com/ollama/ollama/api"
)

// ---------------------------- Ollama -----------------------------------------

type OllamaLLM struct {
	Client *ollama.Client
	host   string
}

// NewOllamaLLM targets opts.BaseURL, then OLLAMA_HOST, then the local default.
// Ollama needs no API key.
func NewOllamaLLM(opts ProviderOptions) (*OllamaLLM, error) {
	host := opts.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama host %q: %w", host, err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		// No client timeout: the model call is bounded only by the request context.
		httpClient = &http.Client{}
	}

	return &OllamaLLM{
		Client: ollama.NewClient(u, httpClient),
		host:   host,
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, req Request) (string, error) {
	var images []ollama.ImageData
	for _, b := range req.Blocks {
		if b.Kind != BlockImage {
			continue
		}
		raw, err := decodeImage(b)
		if err != nil {
			return "", err
		}
		images = append(images, ollama.ImageData(raw))
	}

	var messages []ollama.Message
	if req.System != "" {
		messages = append(messages, ollama.Message{Role: "system", Content: req.System})
	}
	messages = append(messages, ollama.Message{
		Role:    "user",
		Content: joinText(req.Blocks),
		Images:  images,
	})

	stream := false
	chatReq := &ollama.ChatRequest{
		Model:    req.Model,
		Messages: messages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var text strings.Builder
	if err := o.Client.Chat(ctx, chatReq, func(cr ollama.ChatResponse) error {
		text.WriteString(cr.Message.Content)
		return nil
	}); err != nil {
		return "", fmt.Errorf("ollama chat (%s): %w", o.host, err)
	}
	return text.String(), nil
}

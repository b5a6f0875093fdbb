package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ---------------------------- Google Gemini ----------------------------------

type GeminiLLM struct {
	Client *genai.Client
}

// NewGeminiLLM dials the Gemini API. Without a key the client stays nil and
// Generate reports a MissingAPIKeyError.
func NewGeminiLLM(ctx context.Context, opts ProviderOptions) (*GeminiLLM, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return &GeminiLLM{}, nil
	}
	clientOpts := []option.ClientOption{option.WithAPIKey(opts.APIKey)}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.BaseURL))
	}
	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}
	return &GeminiLLM{Client: client}, nil
}

func (g *GeminiLLM) Generate(ctx context.Context, req Request) (string, error) {
	if g.Client == nil {
		return "", &MissingAPIKeyError{Provider: "Gemini", EnvVar: "GEMINI_API_KEY"}
	}

	model := g.Client.GenerativeModel(req.Model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	parts := make([]genai.Part, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		switch b.Kind {
		case BlockImage:
			raw, err := decodeImage(b)
			if err != nil {
				return "", err
			}
			// ImageData wants the subtype only ("png", "jpeg").
			format := strings.TrimPrefix(strings.ToLower(b.MediaType), "image/")
			if format == "" {
				format = "jpeg"
			}
			parts = append(parts, genai.ImageData(format, raw))
		default:
			parts = append(parts, genai.Text(b.Text))
		}
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String(), nil
}

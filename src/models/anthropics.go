package models

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM implements Agent using Anthropic's Messages API.
type AnthropicLLM struct {
	Client *anthropic.Client
	apiKey string
}

// NewAnthropicLLM constructs a client. An empty key is accepted; Generate then
// reports a MissingAPIKeyError without touching the network.
func NewAnthropicLLM(opts ProviderOptions) *AnthropicLLM {
	reqOpts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(opts.APIKey),
		anthropicopt.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, anthropicopt.WithBaseURL(opts.BaseURL))
	}
	if opts.HTTPClient != nil {
		reqOpts = append(reqOpts, anthropicopt.WithHTTPClient(opts.HTTPClient))
	}
	cl := anthropic.NewClient(reqOpts...)
	return &AnthropicLLM{Client: &cl, apiKey: opts.APIKey}
}

// Generate performs a single-turn completion and returns concatenated text.
func (a *AnthropicLLM) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(a.apiKey) == "" {
		return "", &MissingAPIKeyError{Provider: "Anthropic", EnvVar: "ANTHROPIC_API_KEY"}
	}

	content := make([]anthropic.ContentBlockParamUnion, 0, len(req.Blocks))
	for _, b := range req.Blocks {
		switch b.Kind {
		case BlockImage:
			mt := sanitizeForAnthropic(b.MediaType)
			if mt == "" {
				mt = DefaultImageMediaType
			}
			content = append(content, anthropic.NewImageBlockBase64(mt, b.Data))
		default:
			content = append(content, anthropic.NewTextBlock(b.Text))
		}
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(req.MaxTokens),
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(content...),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("anthropic: response contained no text")
	}
	return b.String(), nil
}

// sanitizeForAnthropic keeps the image types the Messages API accepts.
// Return "" for anything else.
func sanitizeForAnthropic(mt string) string {
	mt = strings.ToLower(strings.TrimSpace(mt))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	for strings.HasPrefix(mt, "image/image/") {
		mt = strings.TrimPrefix(mt, "image/")
	}
	switch mt {
	case "image/png", "image/gif", "image/webp":
		return mt
	case "image/jpeg", "image/jpg", "image/pjpeg":
		return "image/jpeg"
	default:
		return ""
	}
}

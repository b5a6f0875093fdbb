package codeassist

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Protocol-Lattice/codeassist/src/models"
	"github.com/Protocol-Lattice/codeassist/src/observability"
)

// Answer is the outcome of one question. Thinking is nil unless thinking
// mode produced it.
type Answer struct {
	Response string
	Thinking *string
}

// Invoker calls the upstream model in plain or thinking mode. Upstream
// failures are returned as answer text, never as errors.
type Invoker struct {
	Model             models.Agent
	Catalog           *Catalog
	Temperature       float64
	MaxTokens         int
	ThinkingMaxTokens int
	Logger            *slog.Logger
}

// Invoke answers blocks with model. Thinking mode is used only when
// requested and supported by the model; if that call fails, one plain call
// is made instead.
func (inv *Invoker) Invoke(ctx context.Context, model string, blocks []models.Block, thinking bool) Answer {
	logger := observability.LoggerFromContext(ctx, inv.Logger)

	if thinking && inv.Catalog != nil && inv.Catalog.SupportsThinking(model) {
		text, err := inv.Model.Generate(ctx, models.Request{
			Model:       model,
			System:      systemPrompt(true),
			Blocks:      blocks,
			Temperature: inv.Temperature,
			MaxTokens:   inv.ThinkingMaxTokens,
		})
		if err == nil {
			split := SplitThinking(text)
			return Answer{Response: split.Answer, Thinking: &split.Thinking}
		}
		logger.Warn("thinking mode failed, retrying without thinking", "model", model, "error", err)
	}

	return Answer{Response: inv.Call(ctx, models.Request{
		Model:       model,
		System:      systemPrompt(false),
		Blocks:      blocks,
		Temperature: inv.Temperature,
		MaxTokens:   inv.MaxTokens,
	})}
}

// Call performs one plain request and folds any error into the returned text.
func (inv *Invoker) Call(ctx context.Context, req models.Request) string {
	text, err := inv.Model.Generate(ctx, req)
	if err == nil {
		return text
	}
	logger := observability.LoggerFromContext(ctx, inv.Logger)
	if errors.Is(err, models.ErrMissingAPIKey) {
		logger.Warn("model API key is not configured", "model", req.Model)
	} else {
		logger.Error("model API call failed", "model", req.Model, "error", err)
	}
	return "Error calling model API: " + err.Error()
}

package codeassist

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Protocol-Lattice/codeassist/src/history"
	"github.com/Protocol-Lattice/codeassist/src/models"
	"github.com/Protocol-Lattice/codeassist/src/observability"
	"github.com/Protocol-Lattice/codeassist/src/uploads"
)

// ErrEmptyQuestion rejects a question that is blank after trimming.
var ErrEmptyQuestion = errors.New("question must not be empty")

const logQuestionRunes = 100

// AskRequest is a question with optional attachments.
type AskRequest struct {
	Question       string    `json:"question"`
	Model          string    `json:"model,omitempty"`
	Files          []FileRef `json:"files,omitempty"`
	EnableThinking bool      `json:"enable_thinking,omitempty"`
}

// AskResult is what the client receives.
type AskResult struct {
	Response  string  `json:"response"`
	Thinking  *string `json:"thinking,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// Assistant answers questions and records them in per-session history.
type Assistant struct {
	invoker  *Invoker
	resolver *Resolver
	history  history.Store
	catalog  *Catalog
	logger   *slog.Logger
	now      func() time.Time
}

// Options configure a new Assistant.
type Options struct {
	Model             models.Agent
	History           history.Store
	Catalog           *Catalog
	Uploads           *uploads.Store
	Temperature       float64
	MaxTokens         int
	ThinkingMaxTokens int
	Logger            *slog.Logger
	Now               func() time.Time
}

// New creates an Assistant with the provided options.
func New(opts Options) (*Assistant, error) {
	if opts.Model == nil {
		return nil, errors.New("assistant requires a language model")
	}
	if opts.History == nil {
		return nil, errors.New("assistant requires a history store")
	}

	catalog := opts.Catalog
	if catalog == nil {
		var err error
		if catalog, err = NewCatalog("", ""); err != nil {
			return nil, err
		}
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 20000
	}
	thinkingMaxTokens := opts.ThinkingMaxTokens
	if thinkingMaxTokens <= 0 {
		thinkingMaxTokens = 16000
	}
	logger := opts.Logger
	if logger == nil {
		logger = observability.Discard()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Assistant{
		invoker: &Invoker{
			Model:             opts.Model,
			Catalog:           catalog,
			Temperature:       opts.Temperature,
			MaxTokens:         maxTokens,
			ThinkingMaxTokens: thinkingMaxTokens,
			Logger:            logger,
		},
		resolver: &Resolver{Uploads: opts.Uploads},
		history:  opts.History,
		catalog:  catalog,
		logger:   logger,
		now:      now,
	}, nil
}

// Ask answers req and appends the exchange to the session's history.
// Upstream failures come back as the response text; the only errors are
// ErrEmptyQuestion and context cancellation.
func (a *Assistant) Ask(ctx context.Context, sessionID string, req AskRequest) (*AskResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return nil, ErrEmptyQuestion
	}
	logger := observability.LoggerFromContext(ctx, a.logger)
	model := a.catalog.Resolve(req.Model)
	logger.Info("question received",
		"question", observability.Truncate(req.Question, logQuestionRunes),
		"model", model,
		"files", len(req.Files),
		"thinking", req.EnableThinking,
	)

	attached, err := a.resolver.ResolveContent(ctx, req.Files)
	if err != nil {
		return nil, err
	}
	blocks := AssemblePrompt(req.Question, attached)
	answer := a.invoker.Invoke(ctx, model, blocks, req.EnableThinking)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &AskResult{
		Response:  answer.Response,
		Thinking:  answer.Thinking,
		Timestamp: history.Now(a.now()),
	}

	names := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		names = append(names, f.Name)
	}
	entry := history.Entry{
		Timestamp: result.Timestamp,
		Question:  req.Question,
		Response:  result.Response,
		Thinking:  result.Thinking,
		Files:     names,
	}
	if err := a.history.Append(ctx, sessionID, entry); err != nil {
		logger.Error("failed to record history", "error", err)
	}
	return result, nil
}

// History returns the session's entries, oldest first.
func (a *Assistant) History(ctx context.Context, sessionID string) ([]history.Entry, error) {
	return a.history.List(ctx, sessionID)
}

// ClearHistory drops every entry of the session.
func (a *Assistant) ClearHistory(ctx context.Context, sessionID string) error {
	return a.history.Clear(ctx, sessionID)
}

// Catalog returns the model catalog.
func (a *Assistant) Catalog() *Catalog { return a.catalog }

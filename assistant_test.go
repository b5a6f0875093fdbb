package codeassist

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Protocol-Lattice/codeassist/src/history"
	"github.com/Protocol-Lattice/codeassist/src/models"
)

// scriptedAgent answers from a queue and records every request.
type scriptedAgent struct {
	mu       sync.Mutex
	replies  []reply
	requests []models.Request
}

type reply struct {
	text string
	err  error
}

func (s *scriptedAgent) Generate(_ context.Context, req models.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.replies) == 0 {
		return "default answer", nil
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.text, r.err
}

func newTestAssistant(t *testing.T, agent models.Agent) (*Assistant, history.Store) {
	t.Helper()
	store := history.NewMemoryStore(history.DefaultLimit, 0, 0)
	a, err := New(Options{
		Model:       agent,
		History:     store,
		Temperature: 0.7,
		Now:         func() time.Time { return time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a, store
}

func TestNewRequiresDependencies(t *testing.T) {
	if _, err := New(Options{History: history.NewMemoryStore(1, 1, 0)}); err == nil {
		t.Fatal("expected error without model")
	}
	if _, err := New(Options{Model: &scriptedAgent{}}); err == nil {
		t.Fatal("expected error without history")
	}
}

func TestAskEmptyQuestion(t *testing.T) {
	agent := &scriptedAgent{}
	a, _ := newTestAssistant(t, agent)
	for _, q := range []string{"", "   ", "\n\t"} {
		if _, err := a.Ask(context.Background(), "s", AskRequest{Question: q}); !errors.Is(err, ErrEmptyQuestion) {
			t.Fatalf("Ask(%q) error = %v, want ErrEmptyQuestion", q, err)
		}
	}
	if len(agent.requests) != 0 {
		t.Fatal("empty question must not reach the model")
	}
}

func TestAskPlainMode(t *testing.T) {
	agent := &scriptedAgent{replies: []reply{{text: "use two pointers"}}}
	a, _ := newTestAssistant(t, agent)

	res, err := a.Ask(context.Background(), "s", AskRequest{Question: "reverse a string in place"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Response != "use two pointers" || res.Thinking != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Timestamp != "2025-03-01 12:30:00" {
		t.Fatalf("Timestamp = %q", res.Timestamp)
	}

	req := agent.requests[0]
	if req.Model != "claude-3-7-sonnet-20250219" {
		t.Fatalf("default model not applied: %q", req.Model)
	}
	if req.MaxTokens != 20000 || req.Temperature != 0.7 || req.System != SystemPrompt {
		t.Fatalf("unexpected plain request: %+v", req)
	}
}

func TestAskThinkingMode(t *testing.T) {
	agent := &scriptedAgent{replies: []reply{{text: "思考过程\n最终答案：答案"}}}
	a, _ := newTestAssistant(t, agent)

	res, err := a.Ask(context.Background(), "s", AskRequest{Question: "q", EnableThinking: true})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Response != "答案" || res.Thinking == nil || *res.Thinking != "思考过程" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(agent.requests) != 1 || agent.requests[0].MaxTokens != 16000 {
		t.Fatalf("expected one thinking call with the thinking budget: %+v", agent.requests)
	}
	if !strings.Contains(agent.requests[0].System, FinalAnswerMarker) {
		t.Fatal("thinking call must use the augmented system prompt")
	}
}

func TestAskThinkingIgnoredForUnsupportedModel(t *testing.T) {
	agent := &scriptedAgent{}
	a, _ := newTestAssistant(t, agent)

	res, err := a.Ask(context.Background(), "s", AskRequest{Question: "q", Model: "claude-3-opus-20240229", EnableThinking: true})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Thinking != nil {
		t.Fatal("unsupported model must not produce thinking")
	}
	if agent.requests[0].MaxTokens != 20000 {
		t.Fatalf("expected plain budget, got %d", agent.requests[0].MaxTokens)
	}
}

func TestAskThinkingFallsBackOnce(t *testing.T) {
	agent := &scriptedAgent{replies: []reply{
		{err: errors.New("overloaded")},
		{text: "plain answer"},
	}}
	a, _ := newTestAssistant(t, agent)

	res, err := a.Ask(context.Background(), "s", AskRequest{Question: "q", EnableThinking: true})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if res.Response != "plain answer" || res.Thinking != nil {
		t.Fatalf("unexpected fallback result: %+v", res)
	}
	if len(agent.requests) != 2 || agent.requests[1].System != SystemPrompt {
		t.Fatalf("expected exactly one plain fallback call: %+v", agent.requests)
	}
}

func TestAskUpstreamErrorBecomesText(t *testing.T) {
	agent := &scriptedAgent{replies: []reply{
		{err: errors.New("boom")},
		{err: errors.New("still boom")},
	}}
	a, _ := newTestAssistant(t, agent)

	res, err := a.Ask(context.Background(), "s", AskRequest{Question: "q", EnableThinking: true})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(res.Response, "still boom") || res.Thinking != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(agent.requests) != 2 {
		t.Fatalf("expected no retry loop, got %d calls", len(agent.requests))
	}
}

func TestAskMissingAPIKey(t *testing.T) {
	a, _ := newTestAssistant(t, models.NewAnthropicLLM(models.ProviderOptions{}))

	res, err := a.Ask(context.Background(), "s", AskRequest{Question: "reverse a string in place"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if !strings.Contains(res.Response, "API key is not configured") {
		t.Fatalf("expected missing key message, got %q", res.Response)
	}
}

func TestAskRecordsHistory(t *testing.T) {
	agent := &scriptedAgent{}
	a, _ := newTestAssistant(t, agent)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		q := "question " + string(rune('a'+i))
		if _, err := a.Ask(ctx, "s", AskRequest{Question: q, Files: []FileRef{{Name: "x.go", Type: "text"}}}); err != nil {
			t.Fatalf("Ask: %v", err)
		}
	}
	entries, err := a.History(ctx, "s")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != history.DefaultLimit {
		t.Fatalf("expected %d entries, got %d", history.DefaultLimit, len(entries))
	}
	if entries[0].Question != "question c" || entries[9].Question != "question l" {
		t.Fatalf("unexpected window: first %q last %q", entries[0].Question, entries[9].Question)
	}
	if len(entries[0].Files) != 1 || entries[0].Files[0] != "x.go" {
		t.Fatalf("files not recorded: %v", entries[0].Files)
	}

	if err := a.ClearHistory(ctx, "s"); err != nil {
		t.Fatalf("ClearHistory: %v", err)
	}
	if entries, _ := a.History(ctx, "s"); len(entries) != 0 {
		t.Fatalf("expected empty history, got %d", len(entries))
	}
}

func TestCatalog(t *testing.T) {
	c, err := NewCatalog("", "")
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if len(c.Models()) != 3 || c.Default() != "claude-3-7-sonnet-20250219" {
		t.Fatalf("unexpected catalog: %+v default %q", c.Models(), c.Default())
	}
	cases := map[string]bool{
		"claude-3-7-sonnet-20250219": true,
		"claude-sonnet-4-20250514":   true,
		"claude-opus-4-1":            true,
		"claude-3-5-sonnet-20240620": false,
		"claude-3-opus-20240229":     false,
	}
	for model, want := range cases {
		if got := c.SupportsThinking(model); got != want {
			t.Errorf("SupportsThinking(%q) = %v, want %v", model, got, want)
		}
	}
	if c.Resolve("custom-model") != "custom-model" {
		t.Fatal("unknown model ids pass through")
	}
	if _, err := NewCatalog("", "("); err == nil {
		t.Fatal("expected error for invalid pattern")
	}
}

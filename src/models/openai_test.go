package models

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAILLMGenerate(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o",
			"choices":[{"index":0,"message":{"role":"assistant","content":"done"},"finish_reason":"stop"}]}`)
	}))
	defer srv.Close()

	llm := NewOpenAILLM(ProviderOptions{APIKey: "k", BaseURL: srv.URL + "/v1"})
	out, err := llm.Generate(context.Background(), Request{
		Model:     "gpt-4o",
		System:    "sys",
		MaxTokens: 100,
		Blocks:    []Block{TextBlock("q"), ImageBlock("image/png", "AAAA")},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "done" {
		t.Fatalf("unexpected output %q", out)
	}

	msgs := body["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(msgs))
	}
	if msgs[0].(map[string]any)["role"] != "system" {
		t.Errorf("first message should be system: %v", msgs[0])
	}
	parts := msgs[1].(map[string]any)["content"].([]any)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	if img["url"] != "data:image/png;base64,AAAA" {
		t.Errorf("image url = %v", img["url"])
	}
}

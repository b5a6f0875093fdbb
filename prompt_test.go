package codeassist

import (
	"strings"
	"testing"

	"github.com/Protocol-Lattice/codeassist/src/models"
)

func TestAssemblePrompt(t *testing.T) {
	attached := []models.Block{
		models.TextBlock("file: a.go\n```\npackage a\n```"),
		models.ImageBlock("image/png", "AAAA"),
	}
	got := AssemblePrompt("reverse a string in place", attached)

	if len(got) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(got))
	}
	if got[0].Kind != models.BlockText || !strings.Contains(got[0].Text, "<programming_question>\nreverse a string in place\n</programming_question>") {
		t.Fatalf("first block does not carry the question: %q", got[0].Text)
	}
	if got[1] != attached[0] || got[2] != attached[1] {
		t.Fatalf("attached blocks out of order: %#v", got[1:])
	}
}

func TestRenderQuestionIsVerbatim(t *testing.T) {
	q := "what does {question} or %s or <b> mean?"
	got := RenderQuestion(q)
	if !strings.Contains(got, q) {
		t.Fatalf("question was altered: %q", got)
	}
	if strings.Count(got, "{question}") != 1 {
		t.Fatal("substitution must happen exactly once")
	}
}

func TestAssemblePromptNoAttachments(t *testing.T) {
	got := AssemblePrompt("q", nil)
	if len(got) != 1 {
		t.Fatalf("expected only the question block, got %d", len(got))
	}
}

func TestSystemPromptModes(t *testing.T) {
	if strings.Contains(systemPrompt(false), FinalAnswerMarker) {
		t.Fatal("plain prompt should not mention the answer marker")
	}
	if !strings.HasPrefix(systemPrompt(true), SystemPrompt) || !strings.Contains(systemPrompt(true), FinalAnswerMarker) {
		t.Fatal("thinking prompt must extend the plain prompt with the marker instruction")
	}
}

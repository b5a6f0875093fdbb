package codeassist

import "strings"

// Split is a best-effort separation of a thinking-mode reply. Heuristic is
// always set: the model is only asked, never forced, to use the markers.
type Split struct {
	Thinking  string
	Answer    string
	Heuristic bool
}

// SplitThinking separates reasoning from the answer. The first
// FinalAnswerMarker wins; otherwise the answer starts at the first
// SummaryMarker (kept in the answer); otherwise the text is cut at its rune
// midpoint. Both halves are trimmed.
func SplitThinking(text string) Split {
	if i := strings.Index(text, FinalAnswerMarker); i >= 0 {
		return newSplit(text[:i], text[i+len(FinalAnswerMarker):])
	}
	if i := strings.Index(text, SummaryMarker); i >= 0 {
		return newSplit(text[:i], text[i:])
	}
	r := []rune(text)
	mid := len(r) / 2
	return newSplit(string(r[:mid]), string(r[mid:]))
}

func newSplit(thinking, answer string) Split {
	return Split{
		Thinking:  strings.TrimSpace(thinking),
		Answer:    strings.TrimSpace(answer),
		Heuristic: true,
	}
}

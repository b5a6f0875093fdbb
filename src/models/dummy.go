package models

import (
	"context"
	"fmt"
	"strings"
)

// DummyLLM is a lightweight model implementation useful for local testing without API calls.
type DummyLLM struct {
	Prefix string
}

func NewDummyLLM(prefix string) *DummyLLM {
	if strings.TrimSpace(prefix) == "" {
		prefix = "Dummy response:"
	}
	return &DummyLLM{Prefix: prefix}
}

// Generate echoes the last non-empty line of the text blocks and counts the
// attached images.
func (d *DummyLLM) Generate(_ context.Context, req Request) (string, error) {
	images := 0
	for _, b := range req.Blocks {
		if b.Kind == BlockImage {
			images++
		}
	}

	lines := strings.Split(joinText(req.Blocks), "\n")
	var last string
	for i := len(lines) - 1; i >= 0; i-- {
		if candidate := strings.TrimSpace(lines[i]); candidate != "" {
			last = candidate
			break
		}
	}
	if last == "" {
		last = "<empty prompt>"
	}
	if images > 0 {
		return fmt.Sprintf("%s %s [%d image(s)]", d.Prefix, last, images), nil
	}
	return fmt.Sprintf("%s %s", d.Prefix, last), nil
}

var _ Agent = (*DummyLLM)(nil)

package codeassist

import (
	"fmt"
	"regexp"
)

// DefaultThinkingPattern matches the model families that get thinking mode.
const DefaultThinkingPattern = `claude-3-7|claude-(sonnet|opus)-4`

// ModelInfo is one selectable model.
type ModelInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var defaultModels = []ModelInfo{
	{ID: "claude-3-7-sonnet-20250219", Name: "Claude 3.7 Sonnet (latest)"},
	{ID: "claude-3-5-sonnet-20240620", Name: "Claude 3.5 Sonnet"},
	{ID: "claude-3-opus-20240229", Name: "Claude 3 Opus"},
}

// Catalog lists the offered models and knows which support thinking mode.
type Catalog struct {
	models       []ModelInfo
	defaultModel string
	thinking     *regexp.Regexp
}

// NewCatalog builds the fixed catalog. An empty pattern selects
// DefaultThinkingPattern; an empty defaultModel selects the first entry.
func NewCatalog(defaultModel, thinkingPattern string) (*Catalog, error) {
	if thinkingPattern == "" {
		thinkingPattern = DefaultThinkingPattern
	}
	re, err := regexp.Compile(thinkingPattern)
	if err != nil {
		return nil, fmt.Errorf("thinking model pattern: %w", err)
	}
	if defaultModel == "" {
		defaultModel = defaultModels[0].ID
	}
	return &Catalog{
		models:       append([]ModelInfo(nil), defaultModels...),
		defaultModel: defaultModel,
		thinking:     re,
	}, nil
}

// Models returns a copy of the catalog entries.
func (c *Catalog) Models() []ModelInfo {
	return append([]ModelInfo(nil), c.models...)
}

func (c *Catalog) Default() string { return c.defaultModel }

// Resolve returns model, or the default when model is empty. Unknown ids
// pass through unchanged.
func (c *Catalog) Resolve(model string) string {
	if model == "" {
		return c.defaultModel
	}
	return model
}

// SupportsThinking reports whether model belongs to a reasoning family.
func (c *Catalog) SupportsThinking(model string) bool {
	return c.thinking.MatchString(model)
}

package models

import "context"

// BlockKind tags a Block as literal text or an embedded image.
type BlockKind string

const (
	BlockText  BlockKind = "text"
	BlockImage BlockKind = "image"
)

// Block is one unit of prompt payload. Text blocks use Text; image blocks
// carry a MediaType (image/png, image/jpeg, image/gif) and base64 Data.
type Block struct {
	Kind      BlockKind
	Text      string
	MediaType string
	Data      string
}

// TextBlock returns a text Block.
func TextBlock(text string) Block {
	return Block{Kind: BlockText, Text: text}
}

// ImageBlock returns an image Block from already base64-encoded data.
func ImageBlock(mediaType, data string) Block {
	return Block{Kind: BlockImage, MediaType: mediaType, Data: data}
}

// Request is a single-turn completion request: one system instruction and
// one user message made of ordered blocks.
type Request struct {
	Model       string
	System      string
	Blocks      []Block
	Temperature float64
	MaxTokens   int
}

// Agent is an upstream language model.
type Agent interface {
	Generate(ctx context.Context, req Request) (string, error)
}

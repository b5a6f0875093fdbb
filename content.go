package codeassist

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/Protocol-Lattice/codeassist/src/concurrent"
	"github.com/Protocol-Lattice/codeassist/src/models"
	"github.com/Protocol-Lattice/codeassist/src/uploads"
)

// FileRef is a file the client attached to a question, as returned by the
// upload endpoint or the GitHub fetcher.
type FileRef struct {
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
}

// Resolver turns attached files into prompt blocks. When Uploads is set,
// image paths must point inside its directory.
type Resolver struct {
	Uploads *uploads.Store
}

// imageReaders bounds how many attachments are read at once.
const imageReaders = 4

// ResolveContent converts refs into blocks, preserving order. Text files are
// rendered as fenced code; images are read and base64 encoded. An image that
// cannot be read becomes a warning text block. The only error is ctx's.
func (r *Resolver) ResolveContent(ctx context.Context, refs []FileRef) ([]models.Block, error) {
	return concurrent.Map(ctx, refs, imageReaders, r.resolve)
}

func (r *Resolver) resolve(ref FileRef) models.Block {
	if ref.Type != uploads.TypeImage {
		return models.TextBlock(renderTextFile(ref))
	}
	data, err := r.readImage(ref.Path)
	if err != nil {
		return models.TextBlock(fmt.Sprintf("\nWarning: unable to process image file %s: %v\n", ref.Name, err))
	}
	return models.ImageBlock(models.ImageMediaType(ref.Name), base64.StdEncoding.EncodeToString(data))
}

func (r *Resolver) readImage(path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no stored path")
	}
	if r != nil && r.Uploads != nil && !r.Uploads.Contains(path) {
		return nil, fmt.Errorf("path is outside the upload directory")
	}
	return os.ReadFile(path)
}

func renderTextFile(ref FileRef) string {
	return "file: " + ref.Name + "\n```\n" + ref.Content + "\n```"
}

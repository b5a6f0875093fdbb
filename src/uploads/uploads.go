// Package uploads accepts user files, stores them under one directory and
// extracts their text for prompting.
package uploads

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	TypeText  = "text"
	TypeImage = "image"

	DefaultMaxBytes = 16 << 20
)

var (
	ErrDisallowedType = errors.New("file type not allowed")
	ErrEmptyFilename  = errors.New("no file selected")
	ErrTooLarge       = errors.New("file exceeds upload limit")
	ErrNotFound       = errors.New("upload not found")
)

var imageExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {},
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Upload describes a stored file. Content is empty for images.
type Upload struct {
	Filename string
	Path     string
	Type     string
	Content  string
}

// Store writes uploads into Dir.
type Store struct {
	Dir      string
	MaxBytes int64
	allowed  map[string]struct{}
}

// NewStore creates dir if needed. Extensions are matched case-insensitively,
// without the leading dot.
func NewStore(dir string, allowed []string, maxBytes int64) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	set := make(map[string]struct{}, len(allowed))
	for _, ext := range allowed {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &Store{Dir: abs, MaxBytes: maxBytes, allowed: set}, nil
}

// Allowed reports whether name carries an allowed extension.
func (s *Store) Allowed(name string) bool {
	i := strings.LastIndex(name, ".")
	if i < 0 {
		return false
	}
	_, ok := s.allowed[strings.ToLower(name[i+1:])]
	return ok
}

// Save checks name against the allow-list, stores r under the sanitised name
// (replacing any previous file of that name) and reads text files back.
// Nothing is written when the type is disallowed or the body is too large.
func (s *Store) Save(name string, r io.Reader) (*Upload, error) {
	if name == "" {
		return nil, ErrEmptyFilename
	}
	if !s.Allowed(name) {
		return nil, ErrDisallowedType
	}
	filename := SecureFilename(name)
	if filename == "" {
		return nil, ErrEmptyFilename
	}
	dst := filepath.Join(s.Dir, filename)

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, io.LimitReader(r, s.MaxBytes+1))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if n > s.MaxBytes {
		return nil, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	up := &Upload{Filename: filename, Path: dst, Type: FileType(filename)}
	if up.Type == TypeText {
		up.Content = ReadText(dst)
	}
	return up, nil
}

// Resolve returns the on-disk path of a stored upload. Names that would
// escape Dir are reported as not found.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return "", ErrNotFound
	}
	p := filepath.Join(s.Dir, name)
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		return "", ErrNotFound
	}
	return p, nil
}

// Contains reports whether path lies inside Dir.
func (s *Store) Contains(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(s.Dir, abs)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}

// FileType is TypeImage for png/jpg/jpeg/gif and TypeText otherwise.
func FileType(name string) string {
	ext := name
	if i := strings.LastIndex(name, "."); i >= 0 {
		ext = name[i+1:]
	}
	if _, ok := imageExtensions[strings.ToLower(ext)]; ok {
		return TypeImage
	}
	return TypeText
}

// ReadText returns the file as UTF-8 with invalid bytes dropped. Read errors
// come back as a readable message in place of the content.
func ReadText(path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "unable to read file: " + err.Error()
	}
	return strings.ToValidUTF8(string(raw), "")
}

// SecureFilename reduces name to a safe ASCII file name: compatibility
// decomposition, non-ASCII dropped, path separators and whitespace runs
// become "_", anything outside [A-Za-z0-9_.-] removed, and leading or
// trailing dots and underscores trimmed. The result may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)
	var sb strings.Builder
	for _, r := range decomposed {
		if r < 0x80 {
			sb.WriteRune(r)
		}
	}
	s := strings.NewReplacer("/", " ", "\\", " ").Replace(sb.String())
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}

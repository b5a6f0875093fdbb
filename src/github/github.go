// Package github fetches files and directory listings through the GitHub
// contents API.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/text/encoding/unicode"
)

const (
	DefaultBaseURL = "https://api.github.com"
	DefaultBranch  = "master"
	DefaultTimeout = 10 * time.Second

	repoURLPrefix = "https://github.com/"
	maxBodyBytes  = 32 << 20
)

var (
	ErrInvalidRepoURL    = errors.New("invalid GitHub repository URL")
	ErrUnexpectedContent = errors.New("unable to retrieve content")
)

// APIError is a non-200 answer from GitHub.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("GitHub API error: %d - %s", e.Status, e.Message)
}

// Ref locates content in a repository.
type Ref struct {
	Owner  string
	Repo   string
	Branch string
	Path   string
}

// ParseRepoURL accepts "https://github.com/owner/repo", optionally followed by
// "/tree/<branch>", or the bare "owner/repo" form.
func ParseRepoURL(raw string) (Ref, error) {
	s := strings.Trim(strings.TrimSpace(raw), "/")
	s = strings.TrimPrefix(s, repoURLPrefix)
	parts := strings.Split(s, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Ref{}, ErrInvalidRepoURL
	}
	ref := Ref{Owner: parts[0], Repo: parts[1], Branch: DefaultBranch}
	if len(parts) > 3 && parts[2] == "tree" && parts[3] != "" {
		ref.Branch = parts[3]
	}
	return ref, nil
}

// Entry is one file of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

// Content is either a decoded file (Type "file") or a listing of the files
// in a directory (Type "directory").
type Content struct {
	Type    string
	Name    string
	Content string
	Files   []Entry
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Type == "directory" {
		files := c.Files
		if files == nil {
			files = []Entry{}
		}
		return json.Marshal(struct {
			Type  string  `json:"type"`
			Files []Entry `json:"files"`
		}{c.Type, files})
	}
	return json.Marshal(struct {
		Type    string `json:"type"`
		Content string `json:"content"`
		Name    string `json:"name"`
	}{c.Type, c.Content, c.Name})
}

// Client talks to the GitHub REST API.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

// NewClient returns a client with the given request timeout. Empty baseURL
// and non-positive timeout select the defaults.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Fetch resolves repoURL and returns the file or directory at path (the
// repository root when path is empty).
func (c *Client) Fetch(ctx context.Context, repoURL, path string) (*Content, error) {
	ref, err := ParseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}
	ref.Path = strings.Trim(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(ref), nil)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read github response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: gjson.GetBytes(body, "message").String()}
	}
	return parseContent(body)
}

func (c *Client) contentsURL(ref Ref) string {
	var sb strings.Builder
	sb.WriteString(c.BaseURL)
	sb.WriteString("/repos/")
	sb.WriteString(url.PathEscape(ref.Owner))
	sb.WriteString("/")
	sb.WriteString(url.PathEscape(ref.Repo))
	sb.WriteString("/contents")
	if ref.Path != "" {
		for _, seg := range strings.Split(ref.Path, "/") {
			sb.WriteString("/")
			sb.WriteString(url.PathEscape(seg))
		}
	}
	sb.WriteString("?")
	sb.WriteString(url.Values{"ref": {ref.Branch}}.Encode())
	return sb.String()
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return &http.Client{Timeout: DefaultTimeout}
}

func parseContent(body []byte) (*Content, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrUnexpectedContent
	}
	res := gjson.ParseBytes(body)

	if res.IsArray() {
		files := []Entry{}
		res.ForEach(func(_, item gjson.Result) bool {
			if item.Get("type").String() == "file" {
				files = append(files, Entry{
					Name: item.Get("name").String(),
					Path: item.Get("path").String(),
					URL:  item.Get("html_url").String(),
				})
			}
			return true
		})
		return &Content{Type: "directory", Files: files}, nil
	}

	encoded := res.Get("content")
	if !res.IsObject() || !encoded.Exists() {
		return nil, ErrUnexpectedContent
	}
	text, err := decodeContent(encoded.String())
	if err != nil {
		return nil, err
	}
	return &Content{Type: "file", Name: res.Get("name").String(), Content: text}, nil
}

// decodeContent undoes GitHub's line-wrapped base64 and decodes the bytes as
// UTF-8, replacing invalid sequences with U+FFFD.
func decodeContent(encoded string) (string, error) {
	compact := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, encoded)
	raw, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return "", fmt.Errorf("decode github content: %w", err)
	}
	text, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode github content: %w", err)
	}
	return string(text), nil
}

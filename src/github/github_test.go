package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestParseRepoURL(t *testing.T) {
	cases := []struct {
		in      string
		want    Ref
		wantErr bool
	}{
		{in: "https://github.com/golang/go", want: Ref{Owner: "golang", Repo: "go", Branch: "master"}},
		{in: "https://github.com/golang/go/", want: Ref{Owner: "golang", Repo: "go", Branch: "master"}},
		{in: "https://github.com/golang/go/tree/release-branch.go1.22", want: Ref{Owner: "golang", Repo: "go", Branch: "release-branch.go1.22"}},
		{in: "https://github.com/golang/go/tree", want: Ref{Owner: "golang", Repo: "go", Branch: "master"}},
		{in: "https://github.com/golang/go/blob/main", want: Ref{Owner: "golang", Repo: "go", Branch: "master"}},
		{in: "golang/go", want: Ref{Owner: "golang", Repo: "go", Branch: "master"}},
		{in: "https://github.com/golang", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRepoURL(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidRepoURL) {
					t.Fatalf("expected ErrInvalidRepoURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepoURL: %v", err)
			}
			if got != tc.want {
				t.Fatalf("ParseRepoURL(%q) = %+v, want %+v", tc.in, got, tc.want)
			}
		})
	}
}

func TestFetchFile(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte("package main\n\nfunc main() {}\n"))
	// GitHub wraps base64 at 60 columns.
	wrapped := encoded[:20] + "\n" + encoded[20:]

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octo/demo/contents/cmd/main.go" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("ref"); got != "dev" {
			t.Errorf("ref = %q, want dev", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"name":     "main.go",
			"encoding": "base64",
			"content":  wrapped,
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok", time.Second)
	got, err := c.Fetch(context.Background(), "https://github.com/octo/demo/tree/dev", "/cmd/main.go")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Type != "file" || got.Name != "main.go" || !strings.Contains(got.Content, "func main()") {
		t.Fatalf("unexpected content: %+v", got)
	}
}

func TestFetchDirectoryKeepsOnlyFiles(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/repos/octo/demo/contents" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no Authorization header without a token")
		}
		_, _ = w.Write([]byte(`[
			{"type":"file","name":"README.md","path":"README.md","html_url":"https://github.com/octo/demo/blob/master/README.md"},
			{"type":"dir","name":"src","path":"src","html_url":"https://github.com/octo/demo/tree/master/src"},
			{"type":"file","name":"go.mod","path":"go.mod","html_url":"https://github.com/octo/demo/blob/master/go.mod"}
		]`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), "octo/demo", "")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Type != "directory" || len(got.Files) != 2 {
		t.Fatalf("unexpected listing: %+v", got)
	}
	if got.Files[1].Name != "go.mod" || got.Files[0].URL == "" {
		t.Fatalf("unexpected entries: %+v", got.Files)
	}
}

func TestFetchAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), "octo/missing", "")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != 404 || apiErr.Message != "Not Found" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
	if !strings.Contains(err.Error(), "404") {
		t.Fatalf("error text should carry status: %q", err.Error())
	}
}

func TestFetchUnexpectedContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"type":"symlink","target":"elsewhere"}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "", time.Second).Fetch(context.Background(), "octo/demo", "link")
	if !errors.Is(err, ErrUnexpectedContent) {
		t.Fatalf("expected ErrUnexpectedContent, got %v", err)
	}
}

func TestDecodeContentReplacesInvalidUTF8(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte{'o', 'k', 0xff, '!'})
	got, err := decodeContent(encoded)
	if err != nil {
		t.Fatalf("decodeContent: %v", err)
	}
	if got != "ok�!" {
		t.Fatalf("decodeContent = %q", got)
	}
	if _, err := decodeContent("***"); err == nil {
		t.Fatal("expected base64 error")
	}
}

func TestContentJSONShape(t *testing.T) {
	dir, _ := json.Marshal(Content{Type: "directory"})
	if string(dir) != `{"type":"directory","files":[]}` {
		t.Fatalf("directory JSON = %s", dir)
	}
	file, _ := json.Marshal(Content{Type: "file", Name: "a.go", Content: "x"})
	if string(file) != `{"type":"file","content":"x","name":"a.go"}` {
		t.Fatalf("file JSON = %s", file)
	}
}

package uploads

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var testAllowed = []string{"txt", "py", "png", "jpg", "jpeg", "gif", "go"}

func newTestStore(t *testing.T, maxBytes int64) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "uploads"), testAllowed, maxBytes)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func TestSecureFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"My cool movie.mov", "My_cool_movie.mov"},
		{"../../../etc/passwd", "etc_passwd"},
		{"i contain cool ümläuts.txt", "i_contain_cool_umlauts.txt"},
		{"  spaced\tname .py ", "spaced_name_.py"},
		{"__init__.py", "init__.py"},
		{"文件.py", "py"},
		{"...", ""},
		{`C:\temp\evil.go`, "C_temp_evil.go"},
	}
	for _, tc := range cases {
		if got := SecureFilename(tc.in); got != tc.want {
			t.Errorf("SecureFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAllowed(t *testing.T) {
	s := newTestStore(t, 0)
	cases := map[string]bool{
		"main.go":      true,
		"SHOT.PNG":     true,
		"archive.tar":  false,
		"noextension":  false,
		"virus.exe":    false,
		"script.py.sh": false,
	}
	for name, want := range cases {
		if got := s.Allowed(name); got != want {
			t.Errorf("Allowed(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSaveText(t *testing.T) {
	s := newTestStore(t, 0)
	up, err := s.Save("hello world.py", strings.NewReader("print('hi')\xff\n"))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if up.Filename != "hello_world.py" || up.Type != TypeText {
		t.Fatalf("unexpected upload: %+v", up)
	}
	if up.Content != "print('hi')\n" {
		t.Fatalf("Content = %q", up.Content)
	}
	if filepath.Dir(up.Path) != s.Dir {
		t.Fatalf("stored outside upload dir: %s", up.Path)
	}
}

func TestSaveImageHasNoContent(t *testing.T) {
	s := newTestStore(t, 0)
	up, err := s.Save("shot.png", bytes.NewReader([]byte{0x89, 'P', 'N', 'G'}))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if up.Type != TypeImage || up.Content != "" {
		t.Fatalf("unexpected upload: %+v", up)
	}
	raw, err := os.ReadFile(up.Path)
	if err != nil || len(raw) != 4 {
		t.Fatalf("stored bytes = %v, %v", raw, err)
	}
}

func TestSaveRejectsWithoutWriting(t *testing.T) {
	cases := []struct {
		name string
		body string
		max  int64
		want error
	}{
		{name: "tool.exe", body: "MZ", want: ErrDisallowedType},
		{name: "", body: "x", want: ErrEmptyFilename},
		{name: "文件.", body: "x", want: ErrDisallowedType},
		{name: "big.txt", body: strings.Repeat("a", 11), max: 10, want: ErrTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestStore(t, tc.max)
			_, err := s.Save(tc.name, strings.NewReader(tc.body))
			if !errors.Is(err, tc.want) {
				t.Fatalf("Save error = %v, want %v", err, tc.want)
			}
			entries, _ := os.ReadDir(s.Dir)
			if len(entries) != 0 {
				t.Fatalf("expected nothing written, found %d entries", len(entries))
			}
		})
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := newTestStore(t, 0)
	if _, err := s.Save("a.txt", strings.NewReader("one")); err != nil {
		t.Fatal(err)
	}
	up, err := s.Save("a.txt", strings.NewReader("two"))
	if err != nil {
		t.Fatal(err)
	}
	if up.Content != "two" {
		t.Fatalf("Content = %q", up.Content)
	}
}

func TestResolve(t *testing.T) {
	s := newTestStore(t, 0)
	if _, err := s.Save("a.txt", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	if p, err := s.Resolve("a.txt"); err != nil || filepath.Base(p) != "a.txt" {
		t.Fatalf("Resolve = %q, %v", p, err)
	}
	for _, bad := range []string{"", "..", "../a.txt", "missing.txt", "sub/a.txt"} {
		if _, err := s.Resolve(bad); !errors.Is(err, ErrNotFound) {
			t.Errorf("Resolve(%q) = %v, want ErrNotFound", bad, err)
		}
	}
}

func TestContains(t *testing.T) {
	s := newTestStore(t, 0)
	if !s.Contains(filepath.Join(s.Dir, "a.png")) {
		t.Fatal("expected file in upload dir to be contained")
	}
	if s.Contains(filepath.Join(s.Dir, "..", "secret.png")) {
		t.Fatal("expected parent path to be rejected")
	}
	if s.Contains(s.Dir) {
		t.Fatal("the directory itself is not an upload")
	}
}

func TestFileType(t *testing.T) {
	cases := map[string]string{
		"a.PNG":  TypeImage,
		"a.jpeg": TypeImage,
		"a.gif":  TypeImage,
		"a.pdf":  TypeText,
		"png":    TypeImage,
	}
	for name, want := range cases {
		if got := FileType(name); got != want {
			t.Errorf("FileType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestReadTextMissingFile(t *testing.T) {
	got := ReadText(filepath.Join(t.TempDir(), "nope.txt"))
	if !strings.HasPrefix(got, "unable to read file:") {
		t.Fatalf("ReadText = %q", got)
	}
}

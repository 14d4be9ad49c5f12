package markdown

import (
	"os"
	"path/filepath"
	"testing"
)

func TestToSpeech(t *testing.T) {
	tt := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hello world", "Hello world"},
		{"heading and paragraph", "# Title\n\nSome text.", "Title\n\nSome text."},
		{"soft break", "one\ntwo", "one two"},
		{"emphasis", "a *very* **bold** move", "a very bold move"},
		{"link keeps text", "see [the docs](https://example.com) now", "see the docs now"},
		{"image keeps alt", "![a cat](cat.png)", "a cat"},
		{"code block dropped", "before\n\n```go\nfmt.Println()\n```\n\nafter", "before\n\nafter"},
		{"inline code kept", "run `make` first", "run make first"},
		{"autolink dropped", "visit <https://example.com> today", "visit  today"},
		{"list", "- one\n- two", "one\n\ntwo"},
		{"frontmatter", "---\ntitle: x\n---\nBody", "Body"},
		{"empty", "", ""},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			if got := ToSpeech([]byte(tc.in)); got != tc.want {
				t.Errorf("Expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestRemoveFrontmatter(t *testing.T) {
	tt := []struct {
		in   string
		want string
	}{
		{"---\na: b\n---\ntext", "text"},
		{"no frontmatter", "no frontmatter"},
		{"---\nunterminated", "---\nunterminated"},
		{"----\nnot: it\n---\n", "----\nnot: it\n---\n"},
	}
	for _, tc := range tt {
		if got := string(RemoveFrontmatter([]byte(tc.in))); got != tc.want {
			t.Errorf("RemoveFrontmatter(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestIsMarkdownFile(t *testing.T) {
	for path, want := range map[string]bool{
		"README.md":      true,
		"notes.MARKDOWN": true,
		"story.txt":      false,
		"noext":          false,
	} {
		if got := IsMarkdownFile(path); got != want {
			t.Errorf("IsMarkdownFile(%q): expected %v, got %v", path, want, got)
		}
	}
}

func TestReadFile(t *testing.T) {
	dir := t.TempDir()

	md := filepath.Join(dir, "doc.md")
	if err := os.WriteFile(md, []byte("# Hi\n\n```\ncode\n```\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	txt := filepath.Join(dir, "doc.txt")
	if err := os.WriteFile(txt, []byte("# Hi"), 0o600); err != nil {
		t.Fatal(err)
	}

	if got, err := ReadFile(md); err != nil || got != "Hi" {
		t.Errorf("Expected markdown to be converted, got %q (%v)", got, err)
	}
	if got, err := ReadFile(txt); err != nil || got != "# Hi" {
		t.Errorf("Expected plain text unchanged, got %q (%v)", got, err)
	}
	if _, err := ReadFile(filepath.Join(dir, "missing.md")); err == nil {
		t.Error("Expected error for missing file")
	}
}

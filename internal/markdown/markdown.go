// Package markdown turns markdown documents into plain text suitable for
// speech synthesis.
package markdown

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

var extensions = []string{".md", ".mdown", ".mkdn", ".mkd", ".markdown"}

var (
	frontmatterStart = []byte("---")
	blankLines       = regexp.MustCompile(`\n{3,}`)
)

// IsMarkdownFile reports whether path has a markdown extension.
func IsMarkdownFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, v := range extensions {
		if ext == v {
			return true
		}
	}
	return false
}

// ReadFile reads path and returns its speakable text. Markdown files are
// converted with ToSpeech; anything else is returned as is.
func ReadFile(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("unable to read file: %w", err)
	}
	if IsMarkdownFile(path) {
		return ToSpeech(b), nil
	}
	return string(b), nil
}

// RemoveFrontmatter strips a leading YAML frontmatter block.
func RemoveFrontmatter(src []byte) []byte {
	if !bytes.HasPrefix(src, frontmatterStart) {
		return src
	}
	lines := bytes.SplitAfter(src, []byte("\n"))
	if len(lines) < 2 || strings.TrimSpace(string(lines[0])) != "---" {
		return src
	}
	offset := len(lines[0])
	for _, line := range lines[1:] {
		offset += len(line)
		if strings.TrimSpace(string(line)) == "---" {
			return src[offset:]
		}
	}
	return src
}

// ToSpeech renders markdown as the text a reader would say out loud. Code
// blocks, raw HTML and bare URLs are dropped; link text and image alt text
// are kept. Blocks are separated by blank lines.
func ToSpeech(src []byte) string {
	src = RemoveFrontmatter(src)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch n := n.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.RawHTML,
			*ast.AutoLink, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			if !entering {
				return ast.WalkContinue, nil
			}
			b.Write(n.Segment.Value(src))
			switch {
			case n.HardLineBreak():
				b.WriteByte('\n')
			case n.SoftLineBreak():
				b.WriteByte(' ')
			}
		case *ast.String:
			if entering {
				b.Write(n.Value)
			}
		default:
			if !entering && n.Type() == ast.TypeBlock {
				endBlock(&b)
			}
		}
		return ast.WalkContinue, nil
	})

	out := blankLines.ReplaceAllString(b.String(), "\n\n")
	return strings.TrimSpace(out)
}

func endBlock(b *strings.Builder) {
	s := b.String()
	if s == "" || strings.HasSuffix(s, "\n\n") {
		return
	}
	if strings.HasSuffix(s, "\n") {
		b.WriteByte('\n')
		return
	}
	b.WriteString("\n\n")
}

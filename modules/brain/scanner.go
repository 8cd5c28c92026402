// Package brain scans a directory of markdown documents and shapes them
// into link candidates for tasks. The scanner is read-only and injected
// behind a narrow interface so the core's tests can substitute fakes.
package brain

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const previewLen = 200

// DocumentInfo is the shaped record for one markdown document.
type DocumentInfo struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Type    string `json:"type"`
	Preview string `json:"preview"`
}

// Scanner lists available documents.
type Scanner interface {
	Scan() ([]DocumentInfo, error)
}

// frontMatter is the recognized subset of document front matter.
type frontMatter struct {
	Title string `yaml:"title"`
	Type  string `yaml:"type"`
}

// DirScanner walks a directory tree for markdown files.
type DirScanner struct {
	root string
}

// NewDirScanner creates a scanner rooted at dir.
func NewDirScanner(dir string) *DirScanner {
	return &DirScanner{root: dir}
}

// Scan walks the tree and returns one record per markdown file, with paths
// relative to the scanner root. Unreadable files are skipped.
func (s *DirScanner) Scan() ([]DocumentInfo, error) {
	if s.root == "" {
		return []DocumentInfo{}, nil
	}

	docs := []DocumentInfo{}
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".md") {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			rel = path
		}

		doc := parseDocument(rel, string(data))
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// parseDocument splits optional YAML front matter from the body and derives
// title, type, and a plain-text preview.
func parseDocument(path, content string) DocumentInfo {
	doc := DocumentInfo{
		Path:  path,
		Title: strings.TrimSuffix(filepath.Base(path), ".md"),
		Type:  "markdown",
	}

	body := content
	if fm, rest, ok := splitFrontMatter(content); ok {
		body = rest
		var meta frontMatter
		if err := yaml.Unmarshal([]byte(fm), &meta); err == nil {
			if meta.Title != "" {
				doc.Title = meta.Title
			}
			if meta.Type != "" {
				doc.Type = meta.Type
			}
		}
	}

	doc.Preview = preview(body)
	return doc
}

// splitFrontMatter separates a leading "---" delimited block from the body.
func splitFrontMatter(content string) (fm, body string, ok bool) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content, false
	}
	rest := content[len("---\n"):]
	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", content, false
	}
	body = rest[end+len("\n---"):]
	body = strings.TrimPrefix(body, "\n")
	return rest[:end], body, true
}

// preview returns the first previewLen characters of the body with heading
// markers and blank lines collapsed.
func preview(body string) string {
	var b strings.Builder
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(line)
		if b.Len() >= previewLen {
			break
		}
	}
	runes := []rune(b.String())
	if len(runes) > previewLen {
		return string(runes[:previewLen])
	}
	return b.String()
}

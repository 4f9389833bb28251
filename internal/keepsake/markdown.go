package keepsake

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/keepsake/internal/apperr"
)

type frontmatter struct {
	ID    string `yaml:"id"`
	Kind  Kind   `yaml:"kind"`
	Title string `yaml:"title"`
	Image string `yaml:"image"`
}

// ParseMarkdown reads a keepsake written as Markdown with YAML frontmatter.
// The body becomes Body. Missing fields default to: id from the file name,
// kind letter, title from the first H1 heading.
func ParseMarkdown(name string, data []byte) (Keepsake, error) {
	block, body, ok := splitFrontmatter(data)
	var fm frontmatter
	if ok {
		if err := yaml.Unmarshal(block, &fm); err != nil {
			return Keepsake{}, fmt.Errorf("%w: %s: frontmatter: %v", apperr.ErrInvalidArgument, name, err)
		}
	}

	k := Keepsake{ID: fm.ID, Kind: fm.Kind, Title: fm.Title, Image: fm.Image}
	if k.ID == "" {
		k.ID = strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	}
	if k.Kind == "" {
		k.Kind = KindLetter
	}
	if k.Title == "" {
		k.Title, body = takeHeading(body)
	}
	k.Body = strings.TrimSpace(body)
	return k, nil
}

// LoadDir parses every .md file in dir, ordered by file name.
func LoadDir(dir string) ([]Keepsake, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read keepsakes dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]Keepsake, 0, len(names))
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(dir, n))
		if err != nil {
			return nil, err
		}
		k, err := ParseMarkdown(n, data)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, nil
}

// splitFrontmatter separates a leading --- delimited YAML block from the body.
// Without a closing delimiter the whole input is body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data), false
	}
	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return rest[:idx], body, true
}

// takeHeading returns the first H1 heading and the body without it.
func takeHeading(body string) (string, string) {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			rest := append(lines[:i:i], lines[i+1:]...)
			return strings.TrimSpace(trimmed[2:]), strings.Join(rest, "\n")
		}
	}
	return "", body
}

// Package markdown converts prompts to and from their markdown document
// form: YAML frontmatter for record metadata, one level-two heading per
// section. Section bodies carry raw markdown and may not themselves contain
// level-two headings.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/folio-sh/folio/internal/types"
)

// Meta is the frontmatter block of a prompt document.
type Meta struct {
	Name    string `yaml:"name,omitempty"`
	Extends string `yaml:"extends,omitempty"`
	Status  string `yaml:"status,omitempty"`
	Pinned  int    `yaml:"pinned,omitempty"`
}

// Doc is a parsed prompt document.
type Doc struct {
	Meta     Meta
	Title    string // first level-one heading, if any
	Sections []types.Section
}

// FromPrompt converts a stored record to its markdown document form.
func FromPrompt(p types.Prompt) *Doc {
	return &Doc{
		Meta: Meta{
			Name:    p.Name,
			Extends: p.Extends,
			Status:  string(p.Status),
			Pinned:  p.Pinned,
		},
		Sections: append([]types.Section(nil), p.Sections...),
	}
}

// Parse reads a prompt document. Frontmatter is optional; content before the
// first level-two heading only contributes the title.
func Parse(data []byte) (*Doc, error) {
	meta, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, err
	}

	doc := &Doc{Meta: meta}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(body))

	type mark struct {
		name      string
		lineStart int
		bodyStart int
	}
	var marks []mark

	// Only direct children of the document split sections, so headings
	// quoted inside blockquotes or fenced code stay part of a body.
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Lines().Len() == 0 {
			continue
		}
		switch h.Level {
		case 1:
			if doc.Title == "" {
				doc.Title = headingText(h, body)
			}
		case 2:
			first := h.Lines().At(0)
			last := h.Lines().At(h.Lines().Len() - 1)
			lineStart := bytes.LastIndexByte(body[:first.Start], '\n') + 1
			bodyStart := len(body)
			if nl := bytes.IndexByte(body[last.Stop:], '\n'); nl >= 0 {
				bodyStart = last.Stop + nl + 1
			}
			marks = append(marks, mark{
				name:      headingText(h, body),
				lineStart: lineStart,
				bodyStart: bodyStart,
			})
		}
	}

	for i, m := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1].lineStart
		}
		secBody := ""
		if m.bodyStart < end {
			secBody = strings.TrimSpace(string(body[m.bodyStart:end]))
		}
		doc.Sections = append(doc.Sections, types.Section{Name: m.name, Body: secBody})
	}

	return doc, nil
}

// Render writes a prompt document back out as markdown with frontmatter.
func Render(doc *Doc) ([]byte, error) {
	metaBytes, err := yaml.Marshal(doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal frontmatter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(metaBytes)
	b.WriteString("---\n")
	for _, sec := range doc.Sections {
		b.WriteString("\n## ")
		b.WriteString(sec.Name)
		b.WriteString("\n")
		if sec.Body != "" {
			b.WriteString("\n")
			b.WriteString(sec.Body)
			b.WriteString("\n")
		}
	}
	return []byte(b.String()), nil
}

// headingText extracts the raw source text of a heading.
func headingText(h *ast.Heading, source []byte) string {
	var b strings.Builder
	for i := 0; i < h.Lines().Len(); i++ {
		seg := h.Lines().At(i)
		b.Write(seg.Value(source))
	}
	return strings.TrimSpace(b.String())
}

// splitFrontmatter separates an optional leading YAML frontmatter block
// from the markdown body.
func splitFrontmatter(data []byte) (Meta, []byte, error) {
	var meta Meta

	lines := strings.Split(string(data), "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return meta, data, nil
	}

	for i, line := range lines[1:] {
		if strings.TrimSpace(line) == "---" {
			raw := strings.Join(lines[1:i+1], "\n")
			if err := yaml.Unmarshal([]byte(raw), &meta); err != nil {
				return meta, nil, fmt.Errorf("failed to parse frontmatter: %w", err)
			}
			body := strings.Join(lines[i+2:], "\n")
			return meta, []byte(body), nil
		}
	}

	// Unterminated frontmatter fence; treat the whole input as body.
	return meta, data, nil
}

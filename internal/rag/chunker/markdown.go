package chunker

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const maxHeadingLevel = 4

// segment is a run of markdown content under one heading path. path holds the
// active h1..h4 titles; unset levels stay empty.
type segment struct {
	path [maxHeadingLevel]string
	text string
}

func (s segment) title() string {
	var parts []string
	for _, p := range s.path {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " > ")
}

// markdownSegments walks the goldmark AST at the top level and groups block
// content by heading ancestry. Returns nil when the document has no headings
// of level 1-4 at all.
func markdownSegments(rawText string) []segment {
	src := []byte(rawText)
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(src))

	var segments []segment
	var path [maxHeadingLevel]string
	sawHeading := false
	var current bytes.Buffer

	flush := func() {
		content := strings.TrimSpace(current.String())
		current.Reset()
		if content == "" {
			return
		}
		segments = append(segments, segment{path: path, text: content})
	}

	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		if heading, ok := n.(*ast.Heading); ok && heading.Level <= maxHeadingLevel {
			flush()
			sawHeading = true
			path[heading.Level-1] = inlineText(heading, src)
			for level := heading.Level; level < maxHeadingLevel; level++ {
				path[level] = ""
			}
			continue
		}
		blockText := extractBlockText(n, src)
		if blockText == "" {
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(blockText)
	}
	flush()

	if !sawHeading {
		return nil
	}
	return segments
}

// inlineText collects the rendered text of an inline container like a heading.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
			continue
		}
		buf.WriteString(inlineText(c, src))
	}
	return strings.TrimSpace(buf.String())
}

// extractBlockText returns the raw source lines of a block node, recursing
// into containers (lists, quotes) whose own Lines are empty.
func extractBlockText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	if buf.Len() == 0 {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			childText := extractBlockText(c, src)
			if childText == "" {
				continue
			}
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(childText)
		}
	}
	return strings.TrimSpace(buf.String())
}

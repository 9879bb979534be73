// Package markdown finds ATX headings in a markdown document using the
// tree-sitter markdown grammar, so that '#' lines inside fenced code or
// HTML blocks are not mistaken for section boundaries.
package markdown

import (
	"context"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsmarkdown "github.com/smacker/go-tree-sitter/markdown/tree-sitter-markdown"
)

const headingQuery = `(atx_heading) @heading`

// Heading is one ATX heading. Line is 0-based.
type Heading struct {
	Level int
	Text  string
	Line  int
}

// Headings returns the document's headings in order. If the parser fails
// the document is scanned line by line instead.
func Headings(doc string) []Heading {
	hs, err := parseHeadings(doc)
	if err != nil {
		return scanHeadings(doc)
	}
	return hs
}

func parseHeadings(doc string) ([]Heading, error) {
	lang := tsmarkdown.GetLanguage()
	src := []byte(doc)

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	q, err := sitter.NewQuery([]byte(headingQuery), lang)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	lines := strings.Split(doc, "\n")
	var out []Heading
	seen := make(map[int]bool)
	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			row := int(c.Node.StartPoint().Row)
			if row >= len(lines) || seen[row] {
				continue
			}
			if h, ok := ParseHeadingLine(lines[row]); ok {
				h.Line = row
				out = append(out, h)
				seen[row] = true
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out, nil
}

func scanHeadings(doc string) []Heading {
	var out []Heading
	for i, line := range strings.Split(doc, "\n") {
		if h, ok := ParseHeadingLine(line); ok {
			h.Line = i
			out = append(out, h)
		}
	}
	return out
}

// ParseHeadingLine parses a single "## Title" line. Up to three leading
// spaces are allowed and the marker run must be 1..6 '#' followed by a
// space or the end of the line.
func ParseHeadingLine(line string) (Heading, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 {
		return Heading{}, false
	}
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 6 {
		return Heading{}, false
	}
	rest := trimmed[level:]
	if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
		return Heading{}, false
	}
	text := strings.TrimSpace(rest)
	// Closing sequence: "## Title ##".
	if stripped := strings.TrimRight(text, "#"); stripped != text && (stripped == "" || strings.HasSuffix(stripped, " ")) {
		text = strings.TrimSpace(stripped)
	}
	return Heading{Level: level, Text: text}, true
}

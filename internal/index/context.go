package index

import (
	"os"
	"path/filepath"
	"strings"
)

// Context returns up to n lines before and after line (1-based) of file,
// the line itself included, clipped to the file bounds. A file that has
// moved or vanished since the build yields nil.
func (idx *Index) Context(file string, line, n int) []string {
	if n < 0 {
		n = 0
	}
	lines, ok := idx.fileLines(file)
	if !ok {
		return nil
	}
	start := line - n - 1
	if start < 0 {
		start = 0
	}
	end := line + n
	if end > len(lines) {
		end = len(lines)
	}
	if start >= end {
		return nil
	}
	out := make([]string, end-start)
	copy(out, lines[start:end])
	return out
}

func (idx *Index) fileLines(file string) ([]string, bool) {
	if lines, ok := idx.lines.Get(file); ok {
		return lines, true
	}
	src, err := os.ReadFile(filepath.Join(idx.root, filepath.FromSlash(file)))
	if err != nil {
		idx.logger.Debug("index: context unavailable", "path", file, "error", err)
		return nil, false
	}
	content := strings.TrimSuffix(string(src), "\n")
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRightFunc(l, isSpace)
	}
	idx.lines.Add(file, lines)
	return lines, true
}

// Package budget estimates how many model tokens each memory file costs
// to read.
package budget

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"agentmem/internal/walker"
)

// barScale is the token count that fills a whole bar.
const barScale = 5000

// FileStats is the size and token estimate of one file.
type FileStats struct {
	Path   string `json:"path"`
	Bytes  int    `json:"bytes"`
	Lines  int    `json:"lines"`
	Tokens int    `json:"tokens"`
}

// Bar draws Tokens as a 10-cell bar where barScale tokens fills it.
func (s FileStats) Bar() string {
	filled := s.Tokens * 10 / barScale
	if filled > 10 {
		filled = 10
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", 10-filled)
}

// Counter turns text into a token count.
type Counter interface {
	Count(text string) int
}

// Heuristic is the dependency-free Counter backed by Estimate.
type Heuristic struct{}

func (Heuristic) Count(text string) int { return Estimate(text) }

// Estimate approximates tokens without a tokenizer: CJK runes weigh 0.7,
// Cyrillic runes 0.5 and everything else a quarter. The result is at least 1.
func Estimate(text string) int {
	var cjk, cyrillic, other int
	for _, r := range text {
		switch {
		case r >= 0x4E00 && r <= 0x9FFF, r >= 0x3040 && r <= 0x309F, r >= 0x30A0 && r <= 0x30FF:
			cjk++
		case r >= 0x0400 && r <= 0x04FF:
			cyrillic++
		default:
			other++
		}
	}
	tokens := int(float64(cjk)*0.7 + float64(cyrillic)*0.5 + float64(other)/4.0)
	if tokens < 1 {
		return 1
	}
	return tokens
}

// Options selects files and the counter used for them.
type Options struct {
	Extensions []string
	Ignore     []string
	// Counter defaults to Heuristic.
	Counter Counter
}

// AnalyzeDir measures every matching file under root, largest first.
// Files that cannot be read or are not UTF-8 are left out.
func AnalyzeDir(ctx context.Context, root string, opts Options) ([]FileStats, error) {
	counter := opts.Counter
	if counter == nil {
		counter = Heuristic{}
	}

	var stats []FileStats
	err := walker.Walk(ctx, root, walker.Options{
		Extensions: opts.Extensions,
		Ignore:     opts.Ignore,
		SkipHidden: true,
	}, func(fi walker.FileInfo) error {
		src, err := os.ReadFile(fi.Path)
		if err != nil || !utf8.Valid(src) {
			return nil
		}
		content := string(src)
		stats = append(stats, FileStats{
			Path:   fi.RelPath,
			Bytes:  len(src),
			Lines:  strings.Count(content, "\n") + 1,
			Tokens: counter.Count(content),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("budget: walk %s: %w", root, err)
	}

	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Tokens > stats[j].Tokens })
	return stats, nil
}

// Total sums tokens across stats.
func Total(stats []FileStats) int {
	n := 0
	for _, s := range stats {
		n += s.Tokens
	}
	return n
}

// WakeEntry is one file of a wake sequence.
type WakeEntry struct {
	Path   string `json:"path"`
	Found  bool   `json:"found"`
	Tokens int    `json:"tokens"`
}

// WakeCost counts the tokens of files, given relative to root, that an
// agent reads on startup. Missing files are reported with Found false.
func WakeCost(root string, files []string, counter Counter) ([]WakeEntry, int) {
	if counter == nil {
		counter = Heuristic{}
	}
	entries := make([]WakeEntry, 0, len(files))
	total := 0
	for _, f := range files {
		path := f
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, f)
		}
		src, err := os.ReadFile(path)
		if err != nil {
			entries = append(entries, WakeEntry{Path: f})
			continue
		}
		n := counter.Count(string(src))
		total += n
		entries = append(entries, WakeEntry{Path: f, Found: true, Tokens: n})
	}
	return entries, total
}

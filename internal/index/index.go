// Package index implements the lexical inverted index over a memory
// directory: every non-empty line of every note is tokenized and each
// distinct token points back at the (file, line) it came from.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"agentmem/internal/tokenize"
	"agentmem/internal/walker"

	lru "github.com/hashicorp/golang-lru/v2"
)

// bytesPerRef is the rough per-occurrence cost used by Stats.
const bytesPerRef = 50

// contextCacheSize bounds how many files' lines are kept for context lookups.
const contextCacheSize = 64

// DefaultSnapshotNames are never indexed, so a saved index does not index itself.
var DefaultSnapshotNames = []string{".agentmem-index.json", ".memory-index.json"}

// Options controls which files are indexed.
type Options struct {
	Extensions []string
	Ignore     []string
	// SkipPaths are files never indexed, typically the snapshot itself.
	SkipPaths []string
	Logger    *slog.Logger
}

// Occurrence is one line that contains a token.
type Occurrence struct {
	File string
	Line int
	Text string
}

// SearchResult is a single ranked hit.
type SearchResult struct {
	File    string   `json:"file"`
	Line    int      `json:"line_num"`
	Text    string   `json:"line_text"`
	Score   float64  `json:"score"`
	Context []string `json:"context,omitempty"`
}

// Stats summarizes an index.
type Stats struct {
	FilesIndexed   int     `json:"files_indexed"`
	UniqueTokens   int     `json:"unique_tokens"`
	TotalTokenRefs int     `json:"total_token_refs"`
	ApproxSizeKB   float64 `json:"index_size_kb"`
}

// Index maps tokens to the lines they occur on.
type Index struct {
	root   string
	opts   Options
	logger *slog.Logger

	inverted map[string][]Occurrence
	// order records tokens in first-seen order so snapshots and stats are stable.
	order []string

	fileCount  int
	tokenCount int

	lines *lru.Cache[string, []string]
}

func newIndex(root string, opts Options) *Index {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache, _ := lru.New[string, []string](contextCacheSize)
	return &Index{
		root:     root,
		opts:     opts,
		logger:   logger,
		inverted: make(map[string][]Occurrence),
		lines:    cache,
	}
}

// Build walks root and indexes every matching file. Files that cannot be
// read or are not valid UTF-8 are skipped.
func Build(ctx context.Context, root string, opts Options) (*Index, error) {
	idx := newIndex(root, opts)

	err := walker.Walk(ctx, root, walker.Options{
		Extensions: opts.Extensions,
		Ignore:     opts.Ignore,
		SkipHidden: true,
		SkipNames:  DefaultSnapshotNames,
		SkipPaths:  opts.SkipPaths,
	}, func(fi walker.FileInfo) error {
		src, err := os.ReadFile(fi.Path)
		if err != nil {
			idx.logger.Debug("index: skip unreadable file", "path", fi.RelPath, "error", err)
			return nil
		}
		if !utf8.Valid(src) {
			idx.logger.Debug("index: skip non-utf8 file", "path", fi.RelPath)
			return nil
		}
		idx.addFile(fi.RelPath, string(src))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("index: walk %s: %w", root, err)
	}

	idx.logger.Debug("index: built", "root", root, "files", idx.fileCount, "tokens", len(idx.inverted))
	return idx, nil
}

func (idx *Index) addFile(rel, content string) {
	idx.fileCount++
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimRightFunc(line, isSpace)
		if line == "" {
			continue
		}
		tokens := tokenize.Tokenize(line)
		idx.tokenCount += len(tokens)
		for _, tok := range tokenize.Distinct(tokens) {
			idx.add(tok, Occurrence{File: rel, Line: i + 1, Text: line})
		}
	}
}

func (idx *Index) add(token string, occ Occurrence) {
	list, ok := idx.inverted[token]
	if !ok {
		idx.order = append(idx.order, token)
	}
	idx.inverted[token] = append(list, occ)
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\v' || r == '\f'
}

// Root returns the directory the index was built from.
func (idx *Index) Root() string { return idx.root }

// Lookup returns the occurrences of a single, already normalized token.
func (idx *Index) Lookup(token string) []Occurrence {
	return idx.inverted[token]
}

type lineKey struct {
	file string
	line int
}

// Search ranks lines by how many distinct query tokens they contain.
// Scores are normalized by the number of distinct query tokens. Lines with
// equal scores keep the order in which they were first reached, which
// follows query-token order and then occurrence order; callers should not
// rely on it beyond that. A limit <= 0 returns every hit.
func (idx *Index) Search(query string, limit, contextLines int) []SearchResult {
	queryTokens := tokenize.Unique(query)
	if len(queryTokens) == 0 {
		return nil
	}

	type hit struct {
		occ   Occurrence
		count int
	}
	var hits []hit
	pos := make(map[lineKey]int)

	for _, tok := range queryTokens {
		for _, occ := range idx.inverted[tok] {
			k := lineKey{occ.File, occ.Line}
			if i, ok := pos[k]; ok {
				hits[i].count++
				continue
			}
			pos[k] = len(hits)
			hits = append(hits, hit{occ: occ, count: 1})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].count > hits[j].count
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]SearchResult, len(hits))
	for i, h := range hits {
		results[i] = SearchResult{
			File:  h.occ.File,
			Line:  h.occ.Line,
			Text:  h.occ.Text,
			Score: float64(h.count) / float64(len(queryTokens)),
		}
		if contextLines > 0 {
			results[i].Context = idx.Context(h.occ.File, h.occ.Line, contextLines)
		}
	}
	return results
}

// Stats reports index size counters. ApproxSizeKB is a linear estimate,
// not memory accounting.
func (idx *Index) Stats() Stats {
	refs := 0
	for _, list := range idx.inverted {
		refs += len(list)
	}
	return Stats{
		FilesIndexed:   idx.fileCount,
		UniqueTokens:   len(idx.inverted),
		TotalTokenRefs: idx.tokenCount,
		ApproxSizeKB:   float64(refs*bytesPerRef) / 1024,
	}
}

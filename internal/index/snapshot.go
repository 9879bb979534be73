package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"agentmem/internal/store"
)

// ErrNoSnapshot is returned by Load when path holds no saved index.
var ErrNoSnapshot = errors.New("index: no snapshot")

// jsonSnapshot is the flat JSON form: root, counters and the full map.
type jsonSnapshot struct {
	MemoryDir  string                  `json:"memory_dir"`
	FileCount  int                     `json:"file_count"`
	TokenCount int                     `json:"token_count"`
	Tokens     []string                `json:"tokens"`
	Inverted   map[string][]Occurrence `json:"inverted"`
}

// MarshalJSON encodes an occurrence as a [file, line, text] triple.
func (o Occurrence) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{o.File, o.Line, o.Text})
}

// UnmarshalJSON decodes a [file, line, text] triple.
func (o *Occurrence) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("index: occurrence has %d fields, want 3", len(raw))
	}
	if err := json.Unmarshal(raw[0], &o.File); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[1], &o.Line); err != nil {
		return err
	}
	return json.Unmarshal(raw[2], &o.Text)
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Save writes the index to path. A .json path gets a JSON document; any
// other path is a SQLite database.
func (idx *Index) Save(ctx context.Context, path string) error {
	if isJSONPath(path) {
		return idx.saveJSON(path)
	}

	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("index: save %s: %w", path, err)
	}
	defer s.Close()

	snap := store.Snapshot{
		Root:       idx.root,
		FileCount:  idx.fileCount,
		TokenCount: idx.tokenCount,
	}
	for _, tok := range idx.order {
		for _, occ := range idx.inverted[tok] {
			snap.Postings = append(snap.Postings, store.Posting{Token: tok, File: occ.File, Line: occ.Line, Text: occ.Text})
		}
	}
	if err := s.SaveSnapshot(ctx, snap); err != nil {
		return fmt.Errorf("index: save %s: %w", path, err)
	}
	return nil
}

func (idx *Index) saveJSON(path string) error {
	data, err := json.Marshal(jsonSnapshot{
		MemoryDir:  idx.root,
		FileCount:  idx.fileCount,
		TokenCount: idx.tokenCount,
		Tokens:     idx.order,
		Inverted:   idx.inverted,
	})
	if err != nil {
		return fmt.Errorf("index: encode snapshot: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("index: create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("index: write %s: %w", path, err)
	}
	return nil
}

// Load restores an index saved with Save. The result reflects the files
// as they were when saved; nothing is reconciled with the filesystem.
func Load(ctx context.Context, path string, opts Options) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrNoSnapshot, path)
		}
		return nil, fmt.Errorf("index: load %s: %w", path, err)
	}
	if isJSONPath(path) {
		return loadJSON(path, opts)
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("index: load %s: %w", path, err)
	}
	defer s.Close()

	snap, err := s.LoadSnapshot(ctx)
	if err != nil {
		if errors.Is(err, store.ErrEmpty) {
			return nil, fmt.Errorf("%w at %s", ErrNoSnapshot, path)
		}
		return nil, fmt.Errorf("index: load %s: %w", path, err)
	}

	idx := newIndex(snap.Root, opts)
	idx.fileCount = snap.FileCount
	idx.tokenCount = snap.TokenCount
	for _, p := range snap.Postings {
		idx.add(p.Token, Occurrence{File: p.File, Line: p.Line, Text: p.Text})
	}
	return idx, nil
}

func loadJSON(path string, opts Options) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("index: load %s: %w", path, err)
	}
	var snap jsonSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("index: decode %s: %w", path, err)
	}

	idx := newIndex(snap.MemoryDir, opts)
	idx.fileCount = snap.FileCount
	idx.tokenCount = snap.TokenCount
	if snap.Inverted != nil {
		idx.inverted = snap.Inverted
	}
	idx.order = snap.Tokens
	if len(idx.order) != len(idx.inverted) {
		// Older or hand-written snapshots may lack the order list.
		idx.order = idx.order[:0]
		for tok := range idx.inverted {
			idx.order = append(idx.order, tok)
		}
		sort.Strings(idx.order)
	}
	return idx, nil
}
